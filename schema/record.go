package schema

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ValueKind tells what a raw value holds.
type ValueKind uint8

// Raw value kinds.
const (
	NullValue ValueKind = iota
	NumberValue
	StringValue
)

// Value is a single raw field value: null, a number, or a string.
type Value struct {
	kind ValueKind
	num  float64
	str  string
}

// Null returns the null value.
func Null() Value { return Value{kind: NullValue} }

// Number returns a numeric value. NaN is treated as null.
func Number(f float64) Value {
	if math.IsNaN(f) {
		return Null()
	}
	return Value{kind: NumberValue, num: f}
}

// String returns a string value.
func String(s string) Value { return Value{kind: StringValue, str: s} }

// Kind returns the kind of the value.
func (v Value) Kind() ValueKind { return v.kind }

// IsNull reports whether the value is null.
func (v Value) IsNull() bool { return v.kind == NullValue }

// isMissingToken reports whether s spells a missing numeric value.
func isMissingToken(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "na", "nan", "null":
		return true
	}
	return false
}

// Float interprets the value as a nullable number.
// missing is true for null values and for the strings "", "NA", "NaN" and "null".
// A non-numeric string is an error, and so is an infinite or out-of-range number.
func (v Value) Float() (f float64, missing bool, err error) {
	switch v.kind {
	case NumberValue:
		if math.IsInf(v.num, 0) {
			return 0, false, fmt.Errorf("%v is not a finite number", v.num)
		}
		return v.num, false, nil
	case StringValue:
		if isMissingToken(v.str) {
			return 0, true, nil
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v.str), 64)
		if err != nil {
			return 0, false, fmt.Errorf("%q is not a number", v.str)
		}
		if math.IsNaN(f) {
			return 0, true, nil
		}
		if math.IsInf(f, 0) {
			return 0, false, fmt.Errorf("%q is not a finite number", v.str)
		}
		return f, false, nil
	default:
		return 0, true, nil
	}
}

// Text returns the value as a categorical code. Numbers use their shortest
// round-trip decimal form. ok is false for null.
func (v Value) Text() (s string, ok bool) {
	switch v.kind {
	case StringValue:
		return v.str, true
	case NumberValue:
		return strconv.FormatFloat(v.num, 'f', -1, 64), true
	default:
		return "", false
	}
}

// String renders the value for display.
func (v Value) String() string {
	if s, ok := v.Text(); ok {
		return s
	}
	return "null"
}

// Field is a named raw value.
type Field struct {
	Name  string
	Value Value
}

// RawRecord is an ordered, immutable set of named raw values.
type RawRecord struct {
	fields []Field
	index  map[string]int
}

// NewRawRecord builds a record from fields in their source order.
// Duplicate field names are rejected.
func NewRawRecord(fields ...Field) (RawRecord, error) {
	r := RawRecord{
		fields: make([]Field, len(fields)),
		index:  make(map[string]int, len(fields)),
	}
	for i, f := range fields {
		if _, dup := r.index[f.Name]; dup {
			return RawRecord{}, fmt.Errorf("duplicate field %q", f.Name)
		}
		r.fields[i] = f
		r.index[f.Name] = i
	}
	return r, nil
}

// Get returns the value of a field and whether the field is present.
func (r RawRecord) Get(name string) (Value, bool) {
	i, ok := r.index[name]
	if !ok {
		return Value{}, false
	}
	return r.fields[i].Value, true
}

// Has reports whether the record carries the named field.
func (r RawRecord) Has(name string) bool {
	_, ok := r.index[name]
	return ok
}

// Names returns field names in source order.
func (r RawRecord) Names() []string {
	names := make([]string, len(r.fields))
	for i, f := range r.fields {
		names[i] = f.Name
	}
	return names
}

// Fields returns a copy of the fields in source order.
func (r RawRecord) Fields() []Field {
	out := make([]Field, len(r.fields))
	copy(out, r.fields)
	return out
}

// Len returns the number of fields.
func (r RawRecord) Len() int { return len(r.fields) }
