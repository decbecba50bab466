package store

import "errors"

var (
	// ErrNotFound is returned when a row file does not exist.
	ErrNotFound = errors.New("row not found")

	// ErrAlreadyExists is returned when a row file is written over an
	// existing one.
	ErrAlreadyExists = errors.New("row already exists")

	// ErrInvalidName is returned when a visible file in a table directory
	// is not named by a row ID.
	ErrInvalidName = errors.New("invalid row file name")
)
