package table

// IDField is the mandatory identifier field of every Record.
const IDField = "id"

// Record is a flat field mapping derived from one document. Fields keep the
// order in which they were first set.
type Record struct {
	fields map[string]Value
	order  []string
}

// NewRecord creates an empty record.
func NewRecord() *Record {
	return &Record{fields: make(map[string]Value)}
}

// Set assigns a field. Re-setting a field keeps its original position.
func (r *Record) Set(name string, v Value) {
	if _, ok := r.fields[name]; !ok {
		r.order = append(r.order, name)
	}
	r.fields[name] = v
}

// Get returns a field and whether it is present.
func (r *Record) Get(name string) (Value, bool) {
	v, ok := r.fields[name]
	return v, ok
}

// Has reports whether the field is present.
func (r *Record) Has(name string) bool {
	_, ok := r.fields[name]
	return ok
}

// ID returns the identifier field as a string, or "" when unset.
func (r *Record) ID() string {
	v, ok := r.fields[IDField]
	if !ok {
		return ""
	}
	return v.String()
}

// Fields returns the field names in insertion order.
func (r *Record) Fields() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of fields.
func (r *Record) Len() int {
	return len(r.order)
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	c := &Record{
		fields: make(map[string]Value, len(r.fields)),
		order:  make([]string, len(r.order)),
	}
	copy(c.order, r.order)
	for k, v := range r.fields {
		c.fields[k] = v
	}
	return c
}
