package table

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicate is returned when two records share an identifier.
	ErrDuplicate = errors.New("duplicate accession")

	// ErrMissingID is returned when a record has no identifier field.
	ErrMissingID = errors.New("record has no identifier")
)

// DuplicateError reports an identifier seen more than once during assembly.
type DuplicateError struct {
	ID string
}

// Error implements the error interface.
func (e *DuplicateError) Error() string {
	return fmt.Sprintf("accession %q returned more than once", e.ID)
}

// Is matches ErrDuplicate.
func (e *DuplicateError) Is(target error) bool {
	return target == ErrDuplicate
}

// Table maps accession ids to records. Its column set is the union of the
// record fields in first-seen order, excluding the identifier. A Table is
// immutable once built.
type Table struct {
	ids     []string
	rows    map[string]*Record
	columns []string
}

// IDs returns the accession ids in insertion order.
func (t *Table) IDs() []string {
	out := make([]string, len(t.ids))
	copy(out, t.ids)
	return out
}

// Columns returns the unioned column set.
func (t *Table) Columns() []string {
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.ids)
}

// Row returns a copy of the record stored under id.
func (t *Table) Row(id string) (*Record, bool) {
	r, ok := t.rows[id]
	if !ok {
		return nil, false
	}
	return r.Clone(), true
}

// Value returns the cell at (id, column). Records lacking the column yield
// a null value.
func (t *Table) Value(id, column string) Value {
	r, ok := t.rows[id]
	if !ok {
		return Null()
	}
	v, ok := r.Get(column)
	if !ok {
		return Null()
	}
	return v
}

// Assembler accumulates records and builds a Table from them.
type Assembler struct {
	records []*Record
}

// NewAssembler creates an empty assembler.
func NewAssembler() *Assembler {
	return &Assembler{}
}

// Add appends a record.
func (a *Assembler) Add(r *Record) {
	a.records = append(a.records, r)
}

// Len returns the number of accumulated records.
func (a *Assembler) Len() int {
	return len(a.records)
}

// Build keys the accumulated records by identifier. Duplicate identifiers
// indicate an upstream correctness violation and fail the build.
func (a *Assembler) Build() (*Table, error) {
	t := &Table{
		ids:  make([]string, 0, len(a.records)),
		rows: make(map[string]*Record, len(a.records)),
	}
	seen := make(map[string]struct{})

	for _, r := range a.records {
		if !r.Has(IDField) {
			return nil, ErrMissingID
		}
		id := r.ID()
		if _, dup := t.rows[id]; dup {
			return nil, &DuplicateError{ID: id}
		}
		t.ids = append(t.ids, id)
		t.rows[id] = r.Clone()

		for _, f := range r.order {
			if f == IDField {
				continue
			}
			if _, ok := seen[f]; ok {
				continue
			}
			seen[f] = struct{}{}
			t.columns = append(t.columns, f)
		}
	}

	return t, nil
}
