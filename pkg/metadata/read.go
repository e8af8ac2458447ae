package metadata

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/Sternrassler/sra-metadata-client/pkg/accession"
)

// LoadFile reads a metadata TSV from path.
func LoadFile(path string) (*Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open metadata: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load reads a metadata TSV. Columns without a #q2:types entry are numeric
// when every present value parses as a number, categorical otherwise.
func Load(r io.Reader) (*Metadata, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	var (
		header   []string
		declared []string
		rows     [][]string
	)

	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFormat, err)
		}
		line, _ := cr.FieldPos(0)
		trimCells(rec)

		if isBlank(rec) {
			continue
		}

		if header == nil {
			if strings.HasPrefix(rec[0], "#") && !isIDHeader(rec[0]) {
				continue
			}
			if !isIDHeader(rec[0]) {
				return nil, &FormatError{Line: line, Reason: fmt.Sprintf("unrecognized id header %q", rec[0])}
			}
			header = rec
			continue
		}

		if strings.EqualFold(rec[0], TypesDirective) {
			if declared != nil || len(rows) > 0 {
				return nil, &FormatError{Line: line, Reason: TypesDirective + " must directly follow the header"}
			}
			declared = rec[1:]
			continue
		}
		if strings.HasPrefix(rec[0], "#") {
			continue
		}

		if len(rec) > len(header) {
			return nil, &FormatError{Line: line, Reason: fmt.Sprintf("%d cells, header has %d", len(rec), len(header))}
		}
		rows = append(rows, rec)
	}

	if header == nil {
		return nil, &FormatError{Reason: "no header row"}
	}
	return build(header, declared, rows)
}

func build(header, declared []string, rows [][]string) (*Metadata, error) {
	md := &Metadata{
		idHeader: header[0],
		index:    make(map[string]int, len(header)-1),
	}

	for i, name := range header[1:] {
		if name == "" {
			return nil, &FormatError{Reason: fmt.Sprintf("column %d has no name", i+2)}
		}
		if _, dup := md.index[name]; dup || isIDHeader(name) {
			return nil, &FormatError{Reason: fmt.Sprintf("duplicate or reserved column name %q", name)}
		}
		md.index[name] = i
		md.columns = append(md.columns, &Column{name: name, values: make([]string, 0, len(rows))})
	}

	seen := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		id := row[0]
		if id == "" {
			return nil, &FormatError{Reason: "row with empty id"}
		}
		if _, dup := seen[id]; dup {
			return nil, &FormatError{Reason: fmt.Sprintf("duplicate id %q", id)}
		}
		seen[id] = struct{}{}
		md.ids = append(md.ids, id)

		for i, col := range md.columns {
			v := ""
			if i+1 < len(row) {
				v = row[i+1]
			}
			col.values = append(col.values, v)
		}
	}

	for i, col := range md.columns {
		var typ string
		if i < len(declared) {
			typ = strings.ToLower(declared[i])
		}
		switch typ {
		case string(accession.Categorical), string(accession.Numeric):
			col.typ = accession.ColumnType(typ)
		case "":
			col.typ = inferType(col.values)
		default:
			return nil, &FormatError{Reason: fmt.Sprintf("column %q has unknown type %q", col.name, declared[i])}
		}
		if col.typ == accession.Numeric && !numericValues(col.values) {
			return nil, &FormatError{Reason: fmt.Sprintf("column %q is declared numeric but holds non-numeric values", col.name)}
		}
	}

	return md, nil
}

// inferType treats a column as numeric when it has values and every present
// value parses as a float.
func inferType(values []string) accession.ColumnType {
	if isBlank(values) || !numericValues(values) {
		return accession.Categorical
	}
	return accession.Numeric
}

func numericValues(values []string) bool {
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			return false
		}
	}
	return true
}

func trimCells(rec []string) {
	for i := range rec {
		rec[i] = strings.TrimSpace(rec[i])
	}
}

func isBlank(rec []string) bool {
	for _, c := range rec {
		if c != "" {
			return false
		}
	}
	return true
}
