// Package metadata reads and writes QIIME 2 style metadata TSV files: a
// header row whose first cell names the id column, an optional #q2:types
// row, '#' comment lines, and empty cells for missing values.
package metadata

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Sternrassler/sra-metadata-client/pkg/accession"
)

// TypesDirective starts the row declaring column types.
const TypesDirective = "#q2:types"

// ErrFormat matches every malformed metadata file.
var ErrFormat = errors.New("malformed metadata")

// FormatError reports a malformed metadata file.
type FormatError struct {
	Line   int
	Reason string
}

// Error implements the error interface.
func (e *FormatError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("metadata line %d: %s", e.Line, e.Reason)
	}
	return "metadata: " + e.Reason
}

// Is matches ErrFormat.
func (e *FormatError) Is(target error) bool {
	return target == ErrFormat
}

// Metadata is a loaded metadata file. Rows keep file order.
type Metadata struct {
	idHeader string
	ids      []string
	columns  []*Column
	index    map[string]int
}

// IDHeader returns the name of the id column.
func (m *Metadata) IDHeader() string {
	return m.idHeader
}

// IDs returns the row ids in file order.
func (m *Metadata) IDs() []string {
	out := make([]string, len(m.ids))
	copy(out, m.ids)
	return out
}

// Len returns the number of rows.
func (m *Metadata) Len() int {
	return len(m.ids)
}

// ColumnNames lists the non-id columns in file order.
func (m *Metadata) ColumnNames() []string {
	names := make([]string, len(m.columns))
	for i, c := range m.columns {
		names[i] = c.name
	}
	return names
}

// Column returns the named column.
func (m *Metadata) Column(name string) (accession.Column, error) {
	i, ok := m.index[name]
	if !ok {
		return nil, fmt.Errorf("column %q not found", name)
	}
	return m.columns[i], nil
}

// Column is one metadata column. Missing values are stored as "".
type Column struct {
	name   string
	typ    accession.ColumnType
	values []string
}

// Name returns the column name.
func (c *Column) Name() string {
	return c.name
}

// Type returns the declared or inferred column type.
func (c *Column) Type() accession.ColumnType {
	return c.typ
}

// HasMissingValues reports whether any row lacks a value.
func (c *Column) HasMissingValues() bool {
	for _, v := range c.values {
		if v == "" {
			return true
		}
	}
	return false
}

// DropMissingValues returns a copy holding only the present values.
func (c *Column) DropMissingValues() accession.Column {
	out := &Column{name: c.name, typ: c.typ, values: make([]string, 0, len(c.values))}
	for _, v := range c.values {
		if v != "" {
			out.values = append(out.values, v)
		}
	}
	return out
}

// Values returns the column's values in row order.
func (c *Column) Values() []string {
	out := make([]string, len(c.values))
	copy(out, c.values)
	return out
}

// idHeaders are the accepted id column names, lower-cased.
var idHeaders = map[string]struct{}{
	"id":          {},
	"sampleid":    {},
	"sample id":   {},
	"sample-id":   {},
	"featureid":   {},
	"feature id":  {},
	"feature-id":  {},
	"#sampleid":   {},
	"#sample id":  {},
	"#otuid":      {},
	"#otu id":     {},
	"sample_name": {},
}

// isIDHeader reports whether cell names an id column.
func isIDHeader(cell string) bool {
	_, ok := idHeaders[strings.ToLower(cell)]
	return ok
}
