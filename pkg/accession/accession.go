// Package accession selects and validates the accession identifiers that
// enter a fetch: run accessions taken from a metadata column, or a single
// BioProject accession.
package accession

import (
	"errors"
	"fmt"
	"strings"
)

// Accession prefixes.
const (
	RunPrefix     = "SRR"
	ProjectPrefix = "PRJNA"
)

var (
	// ErrValidation matches malformed identifiers and unusable columns.
	ErrValidation = errors.New("invalid accession input")

	// ErrSelection matches a failure to pick exactly one accession column.
	ErrSelection = errors.New("ambiguous accession column")
)

// ColumnType tags a metadata column.
type ColumnType string

const (
	Categorical ColumnType = "categorical"
	Numeric     ColumnType = "numeric"
)

// Metadata is the tabular source the selector reads from.
type Metadata interface {
	// ColumnNames lists the columns in declaration order.
	ColumnNames() []string
	// Column returns the named column.
	Column(name string) (Column, error)
}

// Column is one metadata column.
type Column interface {
	Name() string
	Type() ColumnType
	HasMissingValues() bool
	// DropMissingValues returns a copy without missing entries.
	DropMissingValues() Column
	// Values returns the entries in row order; missing entries are "".
	Values() []string
}

// ValidationError reports input that can never be fetched.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("%s %q: %s", e.Field, e.Value, e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Is matches ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// SelectionError reports zero or several qualifying columns.
type SelectionError struct {
	Prefix     string
	Candidates []string
	Leftover   []string
}

// Error implements the error interface.
func (e *SelectionError) Error() string {
	if len(e.Candidates) > 1 {
		return fmt.Sprintf("more than one column with %s accessions, select one of them: %s",
			e.Prefix, quoteList(e.Candidates))
	}
	msg := fmt.Sprintf("no columns found with only %s accessions", e.Prefix)
	if len(e.Leftover) > 0 {
		msg += fmt.Sprintf("; these columns had some %s accessions but contained other values as well: %s",
			e.Prefix, quoteList(e.Leftover))
	}
	return msg
}

// Is matches ErrSelection.
func (e *SelectionError) Is(target error) bool {
	return target == ErrSelection
}

func quoteList(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = fmt.Sprintf("%q", n)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
