package codec

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/arthur-debert/rowstore/rowstore/convert"
)

// TagName is the struct tag read by the codec. A field tagged
// `rowstore:"-"` is transient and never persisted.
const TagName = "rowstore"

// Descriptor lists the persistable fields of a struct type in the order
// they are written to and read from a Record.
type Descriptor struct {
	Type   reflect.Type
	Tag    string
	Fields []Field
}

// Field describes one persistable field.
type Field struct {
	Name string
	Type reflect.Type
	// Kind is the classification of the declared type. Dynamic fields
	// (interface-typed) are classified by their runtime value instead.
	Kind    Kind
	Dynamic bool

	// Get returns the field of the struct value root, or an invalid Value
	// when an embedded pointer on the path is nil.
	Get func(root reflect.Value) reflect.Value
	// Set stores v into the field of the addressable struct value root,
	// allocating embedded pointers on the path.
	Set func(root reflect.Value, v reflect.Value)
}

// Describe returns the cached descriptor of t, building it on first use.
// t may be a struct type or a pointer to one.
func (c *Codec) Describe(t reflect.Type) (*Descriptor, error) {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %v is not a struct type", ErrConstruction, t)
	}
	if d, ok := c.descriptors.Load(t); ok {
		return d.(*Descriptor), nil
	}

	d := &Descriptor{Type: t, Tag: convert.Tag(t)}
	if err := c.collectFields(d, t, nil, nil); err != nil {
		return nil, err
	}
	actual, _ := c.descriptors.LoadOrStore(t, d)
	return actual.(*Descriptor), nil
}

// Register builds and caches the descriptor for the type of v ahead of use.
func (c *Codec) Register(v any) error {
	_, err := c.Describe(reflect.TypeOf(v))
	return err
}

// collectFields appends the struct's own fields first, then the fields of
// each embedded struct, mirroring a walk from a type up through its bases.
func (c *Codec) collectFields(d *Descriptor, t reflect.Type, prefix []int, seen []reflect.Type) error {
	for _, s := range seen {
		if s == t {
			return fmt.Errorf("%w: %s embeds itself", ErrConstruction, convert.Tag(t))
		}
	}
	seen = append(seen, t)

	var embedded []reflect.StructField
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if isTransient(sf) {
			continue
		}
		if sf.Anonymous {
			et := sf.Type
			if et.Kind() == reflect.Pointer {
				if !sf.IsExported() {
					continue
				}
				et = et.Elem()
			}
			if et.Kind() == reflect.Struct {
				embedded = append(embedded, sf)
				continue
			}
		}
		if !sf.IsExported() {
			continue
		}
		f, err := c.newField(t, sf, appendIndex(prefix, i))
		if err != nil {
			return err
		}
		d.Fields = append(d.Fields, f)
	}

	for _, sf := range embedded {
		et := sf.Type
		if et.Kind() == reflect.Pointer {
			et = et.Elem()
		}
		if err := c.collectFields(d, et, appendIndex(prefix, sf.Index[0]), seen); err != nil {
			return err
		}
	}
	return nil
}

func (c *Codec) newField(owner reflect.Type, sf reflect.StructField, index []int) (Field, error) {
	switch sf.Type.Kind() {
	case reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return Field{}, &FieldError{
			Type:  convert.Tag(owner),
			Field: sf.Name,
			Err:   fmt.Errorf("%w: %s fields cannot be persisted", ErrUnsupportedType, sf.Type.Kind()),
		}
	}

	return Field{
		Name:    sf.Name,
		Type:    sf.Type,
		Kind:    c.classify(sf.Type),
		Dynamic: sf.Type.Kind() == reflect.Interface,
		Get: func(root reflect.Value) reflect.Value {
			return fieldByIndex(root, index, false)
		},
		Set: func(root reflect.Value, v reflect.Value) {
			fieldByIndex(root, index, true).Set(v)
		},
	}, nil
}

// classify returns the entry kind a value of declared type t is written as.
// A converter registered for t wins over the container kinds, so []byte
// and fixed-size arrays stay scalars.
func (c *Codec) classify(t reflect.Type) Kind {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() == reflect.Interface {
		return Scalar
	}
	if _, ok := c.reg.Find(t); ok {
		return Scalar
	}
	switch t.Kind() {
	case reflect.Slice:
		return Sequence
	case reflect.Map:
		if isSetType(t) {
			return Set
		}
		return Mapping
	}
	return Scalar
}

// isSetType reports whether t is a map used as a set: map[K]struct{}.
func isSetType(t reflect.Type) bool {
	return t.Kind() == reflect.Map && t.Elem().Kind() == reflect.Struct && t.Elem().NumField() == 0
}

func isTransient(sf reflect.StructField) bool {
	name, _, _ := strings.Cut(sf.Tag.Get(TagName), ",")
	return name == "-"
}

func appendIndex(prefix []int, i int) []int {
	index := make([]int, len(prefix)+1)
	copy(index, prefix)
	index[len(prefix)] = i
	return index
}

// fieldByIndex walks index from root. Nil embedded pointers yield an invalid
// Value unless alloc is set, in which case they are allocated.
func fieldByIndex(v reflect.Value, index []int, alloc bool) reflect.Value {
	for i, x := range index {
		if i > 0 && v.Kind() == reflect.Pointer {
			if v.IsNil() {
				if !alloc {
					return reflect.Value{}
				}
				v.Set(reflect.New(v.Type().Elem()))
			}
			v = v.Elem()
		}
		v = v.Field(x)
	}
	return v
}
