package metadata

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/Sternrassler/sra-metadata-client/pkg/accession"
	"github.com/Sternrassler/sra-metadata-client/pkg/table"
)

const sampleTSV = `# exported from the lab sheet
sample-id	run	body_site	depth	notes
#q2:types	categorical	categorical	numeric	categorical
s1	SRR100	gut	10	
# a comment between rows
s2		skin	3.5	resequenced
s3	SRR300	gut		
`

func TestLoad(t *testing.T) {
	md, err := Load(strings.NewReader(sampleTSV))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if md.IDHeader() != "sample-id" {
		t.Errorf("IDHeader() = %q", md.IDHeader())
	}
	if !reflect.DeepEqual(md.IDs(), []string{"s1", "s2", "s3"}) {
		t.Errorf("IDs() = %v", md.IDs())
	}
	if !reflect.DeepEqual(md.ColumnNames(), []string{"run", "body_site", "depth", "notes"}) {
		t.Errorf("ColumnNames() = %v", md.ColumnNames())
	}

	run, err := md.Column("run")
	if err != nil {
		t.Fatalf("Column(run) error = %v", err)
	}
	if !reflect.DeepEqual(run.Values(), []string{"SRR100", "", "SRR300"}) {
		t.Errorf("run values = %q", run.Values())
	}
	if !run.HasMissingValues() {
		t.Error("run should have missing values")
	}
	if got := run.DropMissingValues().Values(); !reflect.DeepEqual(got, []string{"SRR100", "SRR300"}) {
		t.Errorf("DropMissingValues() = %v", got)
	}

	depth, _ := md.Column("depth")
	if depth.Type() != accession.Numeric {
		t.Errorf("depth type = %q, want numeric", depth.Type())
	}

	if _, err := md.Column("missing"); err == nil {
		t.Error("Column(missing) should fail")
	}
}

func TestLoad_InferTypes(t *testing.T) {
	md, err := Load(strings.NewReader("id\tnum\ttext\tblank\na\t1\tx\t\nb\t2.5\t3\t\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := map[string]accession.ColumnType{
		"num":   accession.Numeric,
		"text":  accession.Categorical,
		"blank": accession.Categorical,
	}
	for name, typ := range want {
		col, err := md.Column(name)
		if err != nil {
			t.Fatalf("Column(%q) error = %v", name, err)
		}
		if col.Type() != typ {
			t.Errorf("%s type = %q, want %q", name, col.Type(), typ)
		}
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		tsv  string
	}{
		{name: "empty", tsv: ""},
		{name: "only comments", tsv: "# nothing\n"},
		{name: "unknown id header", tsv: "name\tx\na\t1\n"},
		{name: "duplicate id", tsv: "id\tx\na\t1\na\t2\n"},
		{name: "duplicate column", tsv: "id\tx\tx\na\t1\t2\n"},
		{name: "too many cells", tsv: "id\tx\na\t1\t2\n"},
		{name: "unknown type", tsv: "id\tx\n#q2:types\tdate\na\t1\n"},
		{name: "declared numeric with text", tsv: "id\tx\n#q2:types\tnumeric\na\tabc\n"},
		{name: "types after data", tsv: "id\tx\na\t1\n#q2:types\tnumeric\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.tsv))
			if !errors.Is(err, ErrFormat) {
				t.Errorf("Load() error = %v, want ErrFormat", err)
			}
		})
	}
}

func TestLoad_ShortRowsPadMissing(t *testing.T) {
	md, err := Load(strings.NewReader("id\ta\tb\nx\t1\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	b, _ := md.Column("b")
	if !b.HasMissingValues() {
		t.Error("short row should leave b missing")
	}
}

func TestLoadFile_FeedsCollect(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadata.tsv")
	if err := os.WriteFile(path, []byte(sampleTSV), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	md, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	if _, err := accession.Collect(md, "", false); !errors.Is(err, accession.ErrValidation) {
		t.Errorf("Collect() error = %v, want ErrValidation for missing run", err)
	}

	ids, err := accession.Collect(md, "", true)
	if err != nil {
		t.Fatalf("Collect(skipMissing) error = %v", err)
	}
	if !reflect.DeepEqual(ids, []string{"SRR100", "SRR300"}) {
		t.Errorf("Collect() = %v", ids)
	}
}

func TestWriteTable(t *testing.T) {
	r1 := table.NewRecord()
	r1.Set(table.IDField, table.String("SRR1"))
	r1.Set("layout", table.String("paired"))
	r1.Set("nreads", table.Int(5))

	r2 := table.NewRecord()
	r2.Set(table.IDField, table.String("SRR2"))
	r2.Set("layout", table.String("single"))
	r2.Set("nreads", table.Null())
	r2.Set("host_age", table.String("3"))

	asm := table.NewAssembler()
	asm.Add(r1)
	asm.Add(r2)
	tbl, err := asm.Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	var buf bytes.Buffer
	if err := WriteTable(&buf, tbl); err != nil {
		t.Fatalf("WriteTable() error = %v", err)
	}

	want := "id\tlayout\tnreads\thost_age\n" +
		"#q2:types\tcategorical\tnumeric\tcategorical\n" +
		"SRR1\tpaired\t5\t\n" +
		"SRR2\tsingle\t\t3\n"
	if buf.String() != want {
		t.Errorf("WriteTable() =\n%q\nwant\n%q", buf.String(), want)
	}

	// The written file loads back with the declared types.
	md, err := Load(&buf)
	if err != nil {
		t.Fatalf("Load() of written table error = %v", err)
	}
	nreads, _ := md.Column("nreads")
	if nreads.Type() != accession.Numeric {
		t.Errorf("nreads type = %q, want numeric", nreads.Type())
	}
}
