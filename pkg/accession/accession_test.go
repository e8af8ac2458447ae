package accession

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
)

// fakeColumn is an in-memory column; "" marks a missing value.
type fakeColumn struct {
	name   string
	typ    ColumnType
	values []string
}

func (c fakeColumn) Name() string     { return c.name }
func (c fakeColumn) Type() ColumnType { return c.typ }
func (c fakeColumn) Values() []string { return c.values }

func (c fakeColumn) HasMissingValues() bool {
	for _, v := range c.values {
		if v == "" {
			return true
		}
	}
	return false
}

func (c fakeColumn) DropMissingValues() Column {
	out := fakeColumn{name: c.name, typ: c.typ}
	for _, v := range c.values {
		if v != "" {
			out.values = append(out.values, v)
		}
	}
	return out
}

type fakeMetadata []fakeColumn

func (m fakeMetadata) ColumnNames() []string {
	names := make([]string, len(m))
	for i, c := range m {
		names[i] = c.name
	}
	return names
}

func (m fakeMetadata) Column(name string) (Column, error) {
	for _, c := range m {
		if c.name == name {
			return c, nil
		}
	}
	return nil, fmt.Errorf("no column %q", name)
}

func cat(name string, values ...string) fakeColumn {
	return fakeColumn{name: name, typ: Categorical, values: values}
}

func TestFindColumn_NoHint(t *testing.T) {
	tests := []struct {
		name         string
		md           fakeMetadata
		want         string
		wantCands    []string
		wantLeftover []string
	}{
		{
			name: "single candidate",
			md: fakeMetadata{
				cat("body_site", "gut", "skin"),
				cat("run", "SRR1", "SRR2"),
			},
			want: "run",
		},
		{
			name: "missing values do not disqualify",
			md: fakeMetadata{
				cat("run", "SRR1", "", "SRR3"),
			},
			want: "run",
		},
		{
			name: "numeric columns are ignored",
			md: fakeMetadata{
				{name: "n", typ: Numeric, values: []string{"SRR1"}},
				cat("run", "SRR1"),
			},
			want: "run",
		},
		{
			name: "two candidates",
			md: fakeMetadata{
				cat("run_a", "SRR1"),
				cat("run_b", "SRR2"),
			},
			wantCands: []string{"run_a", "run_b"},
		},
		{
			name: "no candidates with leftover",
			md: fakeMetadata{
				cat("mixed", "SRR1", "ERR2"),
				cat("body_site", "gut"),
			},
			wantLeftover: []string{"mixed"},
		},
		{
			name: "all-missing column is not a candidate",
			md: fakeMetadata{
				cat("empty", "", ""),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FindColumn(tt.md, "", RunPrefix)
			if tt.want != "" {
				if err != nil {
					t.Fatalf("FindColumn() error = %v", err)
				}
				if got != tt.want {
					t.Errorf("FindColumn() = %q, want %q", got, tt.want)
				}
				return
			}

			var se *SelectionError
			if !errors.As(err, &se) {
				t.Fatalf("FindColumn() error = %v, want *SelectionError", err)
			}
			if !errors.Is(err, ErrSelection) {
				t.Error("error does not match ErrSelection")
			}
			if !reflect.DeepEqual(se.Candidates, tt.wantCands) {
				t.Errorf("Candidates = %v, want %v", se.Candidates, tt.wantCands)
			}
			if !reflect.DeepEqual(se.Leftover, tt.wantLeftover) {
				t.Errorf("Leftover = %v, want %v", se.Leftover, tt.wantLeftover)
			}
			for _, name := range append(tt.wantCands, tt.wantLeftover...) {
				if !strings.Contains(err.Error(), name) {
					t.Errorf("error %q should name %q", err, name)
				}
			}
		})
	}
}

func TestFindColumn_Hint(t *testing.T) {
	md := fakeMetadata{
		cat("run", "SRR1", "", "SRR2"),
		cat("mixed", "SRR1", "x"),
		{name: "depth", typ: Numeric, values: []string{"1"}},
	}

	tests := []struct {
		name    string
		column  string
		wantErr string
	}{
		{name: "valid column", column: "run"},
		{name: "partial coverage", column: "mixed", wantErr: "does not have only SRR accessions"},
		{name: "not categorical", column: "depth", wantErr: "not a categorical column"},
		{name: "unknown column", column: "nope", wantErr: "nope"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FindColumn(md, tt.column, RunPrefix)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("FindColumn() error = %v", err)
				}
				if got != tt.column {
					t.Errorf("FindColumn() = %q, want %q", got, tt.column)
				}
				return
			}
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("FindColumn() error = %v, want ErrValidation", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q should contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestCollect(t *testing.T) {
	md := fakeMetadata{cat("run", "SRR2", "", "SRR1")}

	if _, err := Collect(md, "", false); !errors.Is(err, ErrValidation) {
		t.Errorf("Collect() with missing values error = %v, want ErrValidation", err)
	}

	ids, err := Collect(md, "", true)
	if err != nil {
		t.Fatalf("Collect(skipMissing) error = %v", err)
	}
	if !reflect.DeepEqual(ids, []string{"SRR2", "SRR1"}) {
		t.Errorf("Collect() = %v, want row order [SRR2 SRR1]", ids)
	}
}

func TestCollect_SelectionFailurePassesThrough(t *testing.T) {
	_, err := Collect(fakeMetadata{cat("a", "SRR1"), cat("b", "SRR2")}, "", false)
	if !errors.Is(err, ErrSelection) {
		t.Errorf("Collect() error = %v, want ErrSelection", err)
	}
}

func TestProjectUID(t *testing.T) {
	tests := []struct {
		project string
		want    string
		wantErr bool
	}{
		{project: "PRJNA123456", want: "123456"},
		{project: "PRJEB123", wantErr: true},
		{project: "prjna1", wantErr: true},
		{project: "PRJNA", wantErr: true},
		{project: "PRJNA12x", wantErr: true},
		{project: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.project, func(t *testing.T) {
			got, err := ProjectUID(tt.project)
			if tt.wantErr {
				if !errors.Is(err, ErrValidation) {
					t.Errorf("ProjectUID(%q) error = %v, want ErrValidation", tt.project, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ProjectUID(%q) error = %v", tt.project, err)
			}
			if got != tt.want {
				t.Errorf("ProjectUID(%q) = %q, want %q", tt.project, got, tt.want)
			}
		})
	}
}
