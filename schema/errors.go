package schema

import (
	"errors"
	"fmt"
)

// Sentinel errors for the preprocessing lifecycle.
var (
	// ErrNotFitted is returned when a transform is attempted before fit.
	ErrNotFitted = errors.New("preprocessor is not fitted")

	// ErrAlreadyFitted is returned when fit is called on an already fitted preprocessor.
	ErrAlreadyFitted = errors.New("preprocessor is already fitted")

	// ErrEmptyBatch is returned when fit receives no records.
	ErrEmptyBatch = errors.New("training batch is empty")
)

// SchemaError reports a configured field that is missing from a record or carries an unusable value.
type SchemaError struct {
	Field  string // Name of the offending field
	Record int    // Index of the record in its batch, -1 when unknown
	Reason string // Short description, e.g. "missing field"
}

// Error implements the error interface.
func (e *SchemaError) Error() string {
	if e.Record >= 0 {
		return fmt.Sprintf("schema error: record %d: field %q: %s", e.Record, e.Field, e.Reason)
	}
	return fmt.Sprintf("schema error: field %q: %s", e.Field, e.Reason)
}

// NewSchemaError creates a SchemaError for a field without record context.
func NewSchemaError(field, reason string) *SchemaError {
	return &SchemaError{Field: field, Record: -1, Reason: reason}
}

// AtRecord attaches a record index to a SchemaError or MalformedDateError.
// Other errors are returned unchanged.
func AtRecord(err error, idx int) error {
	var se *SchemaError
	if errors.As(err, &se) {
		c := *se
		c.Record = idx
		return &c
	}
	var de *MalformedDateError
	if errors.As(err, &de) {
		c := *de
		c.Record = idx
		return &c
	}
	return err
}

// MalformedDateError reports a date value that is not in "YYYY.MM" form.
type MalformedDateError struct {
	Field  string
	Value  string
	Record int
}

// Error implements the error interface.
func (e *MalformedDateError) Error() string {
	if e.Record >= 0 {
		return fmt.Sprintf("malformed date: record %d: field %q: %q is not in YYYY.MM form", e.Record, e.Field, e.Value)
	}
	return fmt.Sprintf("malformed date: field %q: %q is not in YYYY.MM form", e.Field, e.Value)
}

// NewMalformedDateError creates a MalformedDateError without record context.
func NewMalformedDateError(field, value string) *MalformedDateError {
	return &MalformedDateError{Field: field, Value: value, Record: -1}
}
