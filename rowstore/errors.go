package rowstore

import (
	"errors"

	"github.com/arthur-debert/rowstore/rowstore/codec"
	"github.com/arthur-debert/rowstore/rowstore/store"
)

// Errors returned by tables, for use with errors.Is.
var (
	ErrNotFound        = store.ErrNotFound
	ErrAlreadyExists   = store.ErrAlreadyExists
	ErrInvalidName     = store.ErrInvalidName
	ErrUnsupportedType = codec.ErrUnsupportedType
	ErrSchemaMismatch  = codec.ErrSchemaMismatch
	ErrCorruptRecord   = codec.ErrCorruptRecord
	ErrIllegalText     = codec.ErrIllegalText
	ErrConstruction    = codec.ErrConstruction

	// ErrNoTable is returned by Store.Dir for a table directory that does
	// not exist.
	ErrNoTable = errors.New("no such table")
)
