// Package codec converts struct values into self-describing Records and
// reads them back, and stores Records as XML row documents.
//
// Every container written carries the runtime type of its elements, so
// values are reconstructed without a schema beyond the struct's own fields.
package codec

import (
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/arthur-debert/rowstore/rowstore/convert"
)

// Initializer is implemented by types that need setup after allocation and
// before their fields are filled during Deserialize. An error fails the
// read with ErrConstruction.
type Initializer interface {
	Initialize() error
}

// Codec serializes struct values. A Codec is safe for concurrent use; field
// descriptors are built once per type and cached.
type Codec struct {
	reg         *convert.Registry
	descriptors sync.Map
}

// New returns a codec resolving scalars through reg. A nil reg uses
// convert.NewRegistry().
func New(reg *convert.Registry) *Codec {
	if reg == nil {
		reg = convert.NewRegistry()
	}
	return &Codec{reg: reg}
}

// Registry returns the converter registry of the codec.
func (c *Codec) Registry() *convert.Registry {
	return c.reg
}

// Serialize converts v, a struct or pointer to struct, into a Record.
func (c *Codec) Serialize(v any) (*Record, error) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || (rv.Kind() == reflect.Pointer && rv.IsNil()) {
		return nil, fmt.Errorf("%w: cannot serialize nil", ErrConstruction)
	}
	d, err := c.Describe(rv.Type())
	if err != nil {
		return nil, err
	}
	for rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}

	rec := &Record{Type: d.Tag, Fields: make([]Entry, 0, len(d.Fields))}
	for _, f := range d.Fields {
		fv := f.Get(rv)
		if !fv.IsValid() {
			fv = reflect.Zero(f.Type)
		}
		e, err := c.encode(f.Type, fv)
		if err != nil {
			return nil, &FieldError{Type: d.Tag, Field: f.Name, Err: err}
		}
		if f.Dynamic && e.Kind == Scalar && !e.Null {
			e.Type = convert.Tag(runtimeType(fv))
			if err := c.checkTag(f.Type, e.Type); err != nil {
				return nil, &FieldError{Type: d.Tag, Field: f.Name, Err: err}
			}
		}
		rec.Fields = append(rec.Fields, e)
	}
	return rec, nil
}

// Deserialize builds a new value of type t from rec. t is usually a pointer
// to struct, in which case the result is a pointer; for a struct type the
// result is a struct value.
func (c *Codec) Deserialize(t reflect.Type, rec *Record) (any, error) {
	d, err := c.Describe(t)
	if err != nil {
		return nil, err
	}
	if rec.Type != d.Tag {
		return nil, fmt.Errorf("%w: cannot read %s from stored %s", ErrSchemaMismatch, d.Tag, rec.Type)
	}
	if len(rec.Fields) != len(d.Fields) {
		return nil, corruptf("%s has %d fields, document has %d", d.Tag, len(d.Fields), len(rec.Fields))
	}

	ptr := reflect.New(d.Type)
	if init, ok := ptr.Interface().(Initializer); ok {
		if err := init.Initialize(); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrConstruction, d.Tag, err)
		}
	}

	root := ptr.Elem()
	for i, f := range d.Fields {
		e := &rec.Fields[i]
		// A nil pointer to a container is stored as the null scalar.
		nilPointer := e.Null && f.Type.Kind() == reflect.Pointer
		if !f.Dynamic && !nilPointer && e.Kind != f.Kind {
			return nil, &FieldError{Type: d.Tag, Field: f.Name, Err: corruptf("expected %s, document has %s", f.Kind, e.Kind)}
		}
		v, err := c.decode(f.Type, e, "")
		if err != nil {
			return nil, &FieldError{Type: d.Tag, Field: f.Name, Err: err}
		}
		f.Set(root, v)
	}

	if t.Kind() == reflect.Pointer {
		return ptr.Interface(), nil
	}
	return root.Interface(), nil
}

// encode converts v, whose declared type is decl, into an entry.
func (c *Codec) encode(decl reflect.Type, v reflect.Value) (Entry, error) {
	for decl.Kind() == reflect.Interface || decl.Kind() == reflect.Pointer {
		if v.IsNil() {
			return NullEntry(), nil
		}
		v = v.Elem()
		decl = v.Type()
	}

	if conv, ok := c.reg.Find(decl); ok {
		text, err := conv.Encode(v.Interface())
		if err != nil {
			return Entry{}, err
		}
		return ScalarEntry(text), nil
	}

	switch {
	case decl.Kind() == reflect.Slice:
		return c.encodeSequence(decl, v)
	case isSetType(decl):
		return c.encodeSet(decl, v)
	case decl.Kind() == reflect.Map:
		return c.encodeMapping(decl, v)
	}
	return Entry{}, fmt.Errorf("%w: no converter for %s", ErrUnsupportedType, convert.Tag(decl))
}

func (c *Codec) encodeSequence(t reflect.Type, v reflect.Value) (Entry, error) {
	e := Entry{Kind: Sequence, ElemType: Undetermined}
	if v.Len() == 0 {
		return e, nil
	}
	e.ElemType = elementTag(t.Elem(), v.Len(), v.Index)
	e.Items = make([]Entry, 0, v.Len())
	for i := 0; i < v.Len(); i++ {
		item, err := c.encodeElement(t.Elem(), v.Index(i), e.ElemType)
		if err != nil {
			return Entry{}, fmt.Errorf("element %d: %w", i, err)
		}
		e.Items = append(e.Items, item)
	}
	return e, nil
}

func (c *Codec) encodeSet(t reflect.Type, v reflect.Value) (Entry, error) {
	e := Entry{Kind: Set, ElemType: Undetermined}
	if v.Len() == 0 {
		return e, nil
	}

	keys := v.MapKeys()
	items := make([]Entry, len(keys))
	for i, k := range keys {
		item, err := c.encode(t.Key(), k)
		if err != nil {
			return Entry{}, fmt.Errorf("set element: %w", err)
		}
		items[i] = item
	}
	order := sortedOrder(items, func(e Entry) string { return e.Text })
	keys = permute(keys, order)

	e.ElemType = elementTag(t.Key(), len(keys), func(i int) reflect.Value { return keys[i] })
	e.Items = make([]Entry, 0, len(keys))
	for i, j := range order {
		item := items[j]
		if err := c.markElementType(&item, t.Key(), keys[i], e.ElemType); err != nil {
			return Entry{}, fmt.Errorf("set element: %w", err)
		}
		e.Items = append(e.Items, item)
	}
	return e, nil
}

func (c *Codec) encodeMapping(t reflect.Type, v reflect.Value) (Entry, error) {
	e := Entry{Kind: Mapping, KeyType: Undetermined, ValueType: Undetermined}
	if v.Len() == 0 {
		return e, nil
	}

	keys := v.MapKeys()
	texts := make([]string, len(keys))
	for i, k := range keys {
		text, err := c.encodeKey(t.Key(), k)
		if err != nil {
			return Entry{}, fmt.Errorf("map key: %w", err)
		}
		texts[i] = text
	}
	order := make([]int, len(keys))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return texts[order[a]] < texts[order[b]] })
	keys = permute(keys, order)
	values := make([]reflect.Value, len(keys))
	for i, k := range keys {
		values[i] = v.MapIndex(k)
	}

	e.KeyType = elementTag(t.Key(), len(keys), func(i int) reflect.Value { return keys[i] })
	e.ValueType = elementTag(t.Elem(), len(values), func(i int) reflect.Value { return values[i] })
	e.Pairs = make([]Pair, 0, len(keys))
	for i, k := range keys {
		value, err := c.encodeElement(t.Elem(), values[i], e.ValueType)
		if err != nil {
			return Entry{}, fmt.Errorf("map value %q: %w", texts[order[i]], err)
		}
		p := Pair{Key: texts[order[i]], Value: value}
		if rt := runtimeType(k); rt != nil {
			keyTag := e.KeyType
			if convert.Tag(rt) != e.KeyType {
				p.KeyType = convert.Tag(rt)
				keyTag = p.KeyType
			}
			if err := c.checkTag(t.Key(), keyTag); err != nil {
				return Entry{}, fmt.Errorf("map key %q: %w", p.Key, err)
			}
		}
		e.Pairs = append(e.Pairs, p)
	}
	return e, nil
}

// encodeElement encodes a container element and records its runtime type
// when it differs from the container's element tag.
func (c *Codec) encodeElement(decl reflect.Type, v reflect.Value, tag string) (Entry, error) {
	item, err := c.encode(decl, v)
	if err != nil {
		return Entry{}, err
	}
	if err := c.markElementType(&item, decl, v, tag); err != nil {
		return Entry{}, err
	}
	return item, nil
}

func (c *Codec) encodeKey(decl reflect.Type, v reflect.Value) (string, error) {
	e, err := c.encode(decl, v)
	if err != nil {
		return "", err
	}
	if e.Kind != Scalar {
		return "", fmt.Errorf("%w: map keys must be scalars, got %s", ErrUnsupportedType, e.Kind)
	}
	return e.Text, nil
}

func (c *Codec) markElementType(item *Entry, decl reflect.Type, v reflect.Value, tag string) error {
	if item.Kind != Scalar || item.Null {
		return nil
	}
	if rt := runtimeType(v); rt != nil && convert.Tag(rt) != tag {
		item.Type = convert.Tag(rt)
	}
	if item.Type != "" {
		return c.checkTag(decl, item.Type)
	}
	return c.checkTag(decl, tag)
}

// checkTag fails when reading a scalar stored under tag for a value declared
// as decl would need a registry lookup that cannot succeed. Named types
// served by the kind fallback must be aliased before they can be stored in
// interface-typed fields or elements.
func (c *Codec) checkTag(decl reflect.Type, tag string) error {
	if tag == "" || tag == Undetermined || tag == convert.Tag(decl) {
		return nil
	}
	if _, ok := c.reg.Resolve(tag); ok {
		return nil
	}
	return fmt.Errorf("%w: type tag %q is not registered, alias it to store it in %s", ErrUnsupportedType, tag, convert.Tag(decl))
}

// elementTag returns the tag of the first non-nil element's runtime type,
// or of the declared element type when every element is nil.
func elementTag(decl reflect.Type, n int, at func(int) reflect.Value) string {
	for i := 0; i < n; i++ {
		if rt := runtimeType(at(i)); rt != nil {
			return convert.Tag(rt)
		}
	}
	return convert.Tag(decl)
}

// runtimeType unwraps interfaces and pointers. It returns nil for nil values.
func runtimeType(v reflect.Value) reflect.Type {
	if !v.IsValid() {
		return nil
	}
	for v.Kind() == reflect.Interface || v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	return v.Type()
}

func sortedOrder(items []Entry, key func(Entry) string) []int {
	order := make([]int, len(items))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return key(items[order[a]]) < key(items[order[b]]) })
	return order
}

func permute(values []reflect.Value, order []int) []reflect.Value {
	out := make([]reflect.Value, len(order))
	for i, j := range order {
		out[i] = values[j]
	}
	return out
}
