package document

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	// ErrNoRoot is returned when parsed input contains no element.
	ErrNoRoot = errors.New("document: no root element")
	// ErrEmptyDocument is returned when deserialising a nil or empty node.
	ErrEmptyDocument = errors.New("document: empty document")
)

// DeserializationError reports a document whose shape does not match the
// requested Go type.
type DeserializationError struct {
	Type reflect.Type
	Err  error
}

func (e *DeserializationError) Error() string {
	name := "<nil>"
	if e.Type != nil {
		name = e.Type.String()
	}
	return fmt.Sprintf("document: cannot deserialize %s: %v", name, e.Err)
}

func (e *DeserializationError) Unwrap() error {
	return e.Err
}
