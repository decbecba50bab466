package codec

import (
	"errors"
	"fmt"

	"github.com/arthur-debert/rowstore/rowstore/convert"
)

var (
	// ErrUnsupportedType is returned when a scalar has no converter or a
	// stored type tag is not registered.
	ErrUnsupportedType = convert.ErrUnsupportedType

	// ErrSchemaMismatch is returned when a document's stored type differs
	// from the requested type.
	ErrSchemaMismatch = errors.New("schema mismatch")

	// ErrCorruptRecord is returned when a document's shape does not line up
	// with the type's fields.
	ErrCorruptRecord = errors.New("corrupt record")

	// ErrIllegalText is returned when a value's text cannot be stored in an
	// XML row document.
	ErrIllegalText = errors.New("text not representable in XML")

	// ErrConstruction is returned when the target type cannot be
	// instantiated.
	ErrConstruction = errors.New("cannot construct value")
)

// FieldError locates a failure at a field of a type.
type FieldError struct {
	Type  string
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s.%s: %v", e.Type, e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

func corruptf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCorruptRecord, fmt.Sprintf(format, args...))
}
