package rowstore

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"reflect"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/arthur-debert/rowstore/rowstore/codec"
	"github.com/arthur-debert/rowstore/rowstore/store"
)

// Table stores values of type T, a pointer to a struct embedding Identity.
//
// Methods are safe for concurrent use and across processes as far as ID
// allocation goes. Concurrent Update or Delete calls on the same ID are not
// coordinated and the last writer wins.
type Table[T Identified] struct {
	name   string
	typ    reflect.Type
	dir    *store.Dir
	codec  *codec.Codec
	logger *slog.Logger
}

// NewTable opens the table of T in s, creating its directory and counter
// when missing. The directory is named after the lower-cased type name.
func NewTable[T Identified](s *Store) (*Table[T], error) {
	typ := reflect.TypeFor[T]()
	if typ.Kind() != reflect.Pointer || typ.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: table type %s is not a pointer to struct", ErrConstruction, typ)
	}
	if typ.Elem().Name() == "" {
		return nil, fmt.Errorf("%w: table type %s has no name", ErrConstruction, typ)
	}
	if _, err := s.codec.Describe(typ); err != nil {
		return nil, err
	}

	name := tableName(typ)
	dir, err := s.openDir(name)
	if err != nil {
		return nil, err
	}
	return &Table[T]{
		name:   name,
		typ:    typ,
		dir:    dir,
		codec:  s.codec,
		logger: s.logger.With("table", name),
	}, nil
}

func tableName(t reflect.Type) string {
	return cases.Lower(language.Und).String(t.Elem().Name())
}

// Name returns the table name, which is also its directory name.
func (t *Table[T]) Name() string {
	return t.name
}

// Dir returns the raw row directory of the table.
func (t *Table[T]) Dir() *store.Dir {
	return t.dir
}

// All returns every row of the table in ascending ID order.
func (t *Table[T]) All() ([]T, error) {
	ids, err := t.dir.IDs()
	if err != nil {
		return nil, err
	}
	rows := make([]T, 0, len(ids))
	for _, id := range ids {
		v, err := t.load(id)
		if err != nil {
			return nil, err
		}
		rows = append(rows, v)
	}
	return rows, nil
}

// SelectByID returns the row id, or ErrNotFound.
func (t *Table[T]) SelectByID(id int64) (T, error) {
	return t.load(id)
}

// Contains reports whether row id exists.
func (t *Table[T]) Contains(id int64) (bool, error) {
	return t.dir.Exists(id)
}

// Insert allocates a new ID, assigns it to v and writes v as a new row.
// A value that is already persisted is stored again under a new ID.
func (t *Table[T]) Insert(v T) (int64, error) {
	data, err := t.marshal(v)
	if err != nil {
		return 0, err
	}

	id, err := t.dir.Counter().Next()
	if err != nil {
		return 0, fmt.Errorf("failed to allocate %s id: %w", t.name, err)
	}
	prev, _ := v.ID()
	v.assignID(id)
	t.logger.Debug("assigned id", "id", id)

	if err := t.dir.Create(id, data); err != nil {
		v.assignID(prev)
		return 0, err
	}
	return id, nil
}

// Update replaces the content of row id with v, or fails with ErrNotFound.
// A value without an ID gets id. The old file is removed before the new
// one is written; a failure in between loses the row.
func (t *Table[T]) Update(id int64, v T) error {
	ok, err := t.dir.Exists(id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s/%d", ErrNotFound, t.name, id)
	}

	data, err := t.marshal(v)
	if err != nil {
		return err
	}
	if v.IsPersisted() {
		return t.dir.Replace(id, data)
	}
	if err := t.dir.Replace(id, data); err != nil {
		return err
	}
	v.assignID(id)
	t.logger.Debug("assigned id", "id", id)
	return nil
}

// Delete removes the row of v. It does nothing for values without an ID
// and tolerates rows that are already gone.
func (t *Table[T]) Delete(v T) error {
	id, ok := v.ID()
	if !ok {
		return nil
	}
	err := t.dir.Remove(id)
	if errors.Is(err, ErrNotFound) {
		t.logger.Debug("row already deleted", "id", id)
		return nil
	}
	return err
}

func (t *Table[T]) marshal(v T) ([]byte, error) {
	if rv := reflect.ValueOf(v); !rv.IsValid() || rv.IsNil() {
		return nil, fmt.Errorf("%w: nil %s value", ErrConstruction, t.name)
	}
	data, err := codec.Marshal(t.codec, v)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize %s: %w", t.name, err)
	}
	return data, nil
}

func (t *Table[T]) load(id int64) (T, error) {
	var zero T
	data, err := t.dir.Read(id)
	if err != nil {
		return zero, err
	}
	rec, err := codec.DecodeDocument(bytes.NewReader(data))
	if err != nil {
		return zero, fmt.Errorf("failed to read %s row %d: %w", t.name, id, err)
	}
	v, err := t.codec.Deserialize(t.typ, rec)
	if err != nil {
		return zero, fmt.Errorf("failed to read %s row %d: %w", t.name, id, err)
	}
	row := v.(T)
	row.assignID(id)
	return row, nil
}
