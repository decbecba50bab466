// Package convert holds the scalar type converters used by the record codec.
//
// A Registry maps Go types to bidirectional text codecs and resolves the type
// tags written into row documents back to Go types.
package convert

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
)

// ErrUnsupportedType is returned when no converter exists for a scalar type
// or when a type tag cannot be resolved.
var ErrUnsupportedType = errors.New("unsupported type")

// Converter encodes a scalar value to text and back. Decode must be the
// inverse of Encode; the codec does not validate this.
type Converter interface {
	Encode(v any) (string, error)
	Decode(text string) (any, error)
}

// TypedConverter is the generic form of Converter, see Register.
type TypedConverter[T any] interface {
	Encode(v T) (string, error)
	Decode(text string) (T, error)
}

// Registry maps Go types to converters and type tags to Go types.
// It is safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	converters map[reflect.Type]Converter
	tags       map[string]reflect.Type
}

// NewRegistry returns a registry with the built-in converters installed.
func NewRegistry() *Registry {
	r := NewEmptyRegistry()
	registerBuiltins(r)
	return r
}

// NewEmptyRegistry returns a registry without any converters.
func NewEmptyRegistry() *Registry {
	return &Registry{
		converters: make(map[reflect.Type]Converter),
		tags:       make(map[string]reflect.Type),
	}
}

// Register installs c as the converter for t and makes t resolvable by its tag.
func (r *Registry) Register(t reflect.Type, c Converter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.converters[t] = c
	r.tags[Tag(t)] = t
}

// Alias makes tag resolve to t, in addition to t's own tag.
func (r *Registry) Alias(tag string, t reflect.Type) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tags[tag] = t
}

// Register installs a typed converter for T.
func Register[T any](r *Registry, c TypedConverter[T]) {
	r.Register(reflect.TypeFor[T](), typed[T]{c})
}

// Find returns the converter for t. Named types whose underlying kind is a
// basic kind fall back to the converter of that kind, and fixed-size arrays
// of a convertible element use the array converter.
func (r *Registry) Find(t reflect.Type) (Converter, bool) {
	if t == nil {
		return nil, false
	}
	r.mu.RLock()
	c, ok := r.converters[t]
	r.mu.RUnlock()
	if ok {
		return c, true
	}

	if base := basicType(t.Kind()); base != nil {
		r.mu.RLock()
		c, ok = r.converters[base]
		r.mu.RUnlock()
		if ok {
			return kindConverter{base: c, baseType: base, t: t}, true
		}
	}

	if t.Kind() == reflect.Array {
		elem, ok := r.Find(t.Elem())
		if ok {
			return arrayConverter{t: t, elem: elem, tag: Tag(t.Elem())}, true
		}
	}
	return nil, false
}

// MustFind is like Find but returns an ErrUnsupportedType error.
func (r *Registry) MustFind(t reflect.Type) (Converter, error) {
	c, ok := r.Find(t)
	if !ok {
		return nil, fmt.Errorf("%w: no converter for %s", ErrUnsupportedType, Tag(t))
	}
	return c, nil
}

// Resolve returns the Go type registered under tag.
func (r *Registry) Resolve(tag string) (reflect.Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tags[tag]
	return t, ok
}

// Encode converts v using the converter for its dynamic type.
func (r *Registry) Encode(v any) (string, error) {
	c, err := r.MustFind(reflect.TypeOf(v))
	if err != nil {
		return "", err
	}
	return c.Encode(v)
}

// Decode converts text into a value of type t.
func (r *Registry) Decode(t reflect.Type, text string) (any, error) {
	c, err := r.MustFind(t)
	if err != nil {
		return nil, err
	}
	return c.Decode(text)
}

// Tag returns the fully-qualified name of t: "pkg/path.Name" for named types
// and the Go spelling for unnamed ones. Pointers are tagged by their element.
func Tag(t reflect.Type) string {
	if t == nil {
		return "nil"
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() != "" && t.PkgPath() != "" {
		return t.PkgPath() + "." + t.Name()
	}
	return t.String()
}

// typed adapts a TypedConverter to Converter.
type typed[T any] struct {
	c TypedConverter[T]
}

func (t typed[T]) Encode(v any) (string, error) {
	tv, ok := v.(T)
	if !ok {
		return "", fmt.Errorf("%w: expected %s, got %T", ErrUnsupportedType, Tag(reflect.TypeFor[T]()), v)
	}
	return t.c.Encode(tv)
}

func (t typed[T]) Decode(text string) (any, error) {
	return t.c.Decode(text)
}

// kindConverter serves named types through the converter of their kind,
// e.g. `type Status string` through the string converter.
type kindConverter struct {
	base     Converter
	baseType reflect.Type
	t        reflect.Type
}

func (k kindConverter) Encode(v any) (string, error) {
	return k.base.Encode(reflect.ValueOf(v).Convert(k.baseType).Interface())
}

func (k kindConverter) Decode(text string) (any, error) {
	v, err := k.base.Decode(text)
	if err != nil {
		return nil, err
	}
	return reflect.ValueOf(v).Convert(k.t).Interface(), nil
}

func basicType(k reflect.Kind) reflect.Type {
	switch k {
	case reflect.String:
		return reflect.TypeFor[string]()
	case reflect.Bool:
		return reflect.TypeFor[bool]()
	case reflect.Int:
		return reflect.TypeFor[int]()
	case reflect.Int8:
		return reflect.TypeFor[int8]()
	case reflect.Int16:
		return reflect.TypeFor[int16]()
	case reflect.Int32:
		return reflect.TypeFor[int32]()
	case reflect.Int64:
		return reflect.TypeFor[int64]()
	case reflect.Uint:
		return reflect.TypeFor[uint]()
	case reflect.Uint8:
		return reflect.TypeFor[uint8]()
	case reflect.Uint16:
		return reflect.TypeFor[uint16]()
	case reflect.Uint32:
		return reflect.TypeFor[uint32]()
	case reflect.Uint64:
		return reflect.TypeFor[uint64]()
	case reflect.Float32:
		return reflect.TypeFor[float32]()
	case reflect.Float64:
		return reflect.TypeFor[float64]()
	}
	return nil
}
