// Package table holds flattened SRA records and the keyed table assembled
// from them.
package table

import "strconv"

// Kind identifies which scalar a Value carries.
type Kind uint8

const (
	// KindNull marks an absent value.
	KindNull Kind = iota

	// KindString marks a string value.
	KindString

	// KindInt marks an integer value.
	KindInt
)

// Value is a scalar cell: a string, an integer, or absent.
type Value struct {
	kind Kind
	str  string
	num  int64
}

// Null returns an absent value.
func Null() Value {
	return Value{}
}

// String returns a string value.
func String(s string) Value {
	return Value{kind: KindString, str: s}
}

// Int returns an integer value.
func Int(n int64) Value {
	return Value{kind: KindInt, num: n}
}

// Kind reports which scalar the value carries.
func (v Value) Kind() Kind {
	return v.kind
}

// IsNull reports whether the value is absent.
func (v Value) IsNull() bool {
	return v.kind == KindNull
}

// Str returns the string payload and whether the value is a string.
func (v Value) Str() (string, bool) {
	return v.str, v.kind == KindString
}

// Int64 returns the integer payload and whether the value is an integer.
func (v Value) Int64() (int64, bool) {
	return v.num, v.kind == KindInt
}

// String renders the value for tabular output. Absent values render empty.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindInt:
		return strconv.FormatInt(v.num, 10)
	default:
		return ""
	}
}
