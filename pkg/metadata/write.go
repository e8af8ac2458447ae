package metadata

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/Sternrassler/sra-metadata-client/pkg/accession"
	"github.com/Sternrassler/sra-metadata-client/pkg/table"
)

// WriteTable writes t as a metadata TSV with an "id" header and a
// #q2:types row. Columns whose present values are all integers are numeric.
func WriteTable(w io.Writer, t *table.Table) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'

	columns := t.Columns()

	header := append([]string{table.IDField}, columns...)
	types := make([]string, 0, len(header))
	types = append(types, TypesDirective)
	for _, col := range columns {
		types = append(types, string(columnType(t, col)))
	}

	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := cw.Write(types); err != nil {
		return fmt.Errorf("write types: %w", err)
	}

	row := make([]string, len(header))
	for _, id := range t.IDs() {
		row[0] = id
		for i, col := range columns {
			row[i+1] = t.Value(id, col).String()
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row %s: %w", id, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteTableFile writes t to path, replacing any existing file.
func WriteTableFile(path string, t *table.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := WriteTable(f, t); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func columnType(t *table.Table, col string) accession.ColumnType {
	present := 0
	for _, id := range t.IDs() {
		v := t.Value(id, col)
		if v.IsNull() {
			continue
		}
		if v.Kind() != table.KindInt {
			return accession.Categorical
		}
		present++
	}
	if present == 0 {
		return accession.Categorical
	}
	return accession.Numeric
}
