package codec

import (
	"fmt"
	"reflect"

	"github.com/arthur-debert/rowstore/rowstore/convert"
)

// Containers read into interface-typed fields or elements.
var (
	anySliceType = reflect.TypeFor[[]any]()
	anySetType   = reflect.TypeFor[map[any]struct{}]()
	anyMapType   = reflect.TypeFor[map[any]any]()
)

// decode builds a value assignable to decl from e. tag is the element type
// recorded by the enclosing container, empty for fields.
func (c *Codec) decode(decl reflect.Type, e *Entry, tag string) (reflect.Value, error) {
	if e.Kind == Scalar {
		return c.decodeScalar(decl, e, tag)
	}

	target, err := containerType(decl, e.Kind)
	if err != nil {
		return reflect.Value{}, err
	}
	var v reflect.Value
	switch e.Kind {
	case Sequence:
		v, err = c.decodeSequence(target, e)
	case Set:
		v, err = c.decodeSet(target, e)
	case Mapping:
		v, err = c.decodeMapping(target, e)
	default:
		return reflect.Value{}, corruptf("unknown entry kind %d", e.Kind)
	}
	if err != nil {
		return reflect.Value{}, err
	}
	return fit(decl, v)
}

func (c *Codec) decodeScalar(decl reflect.Type, e *Entry, tag string) (reflect.Value, error) {
	if e.Null && nillable(decl) {
		return reflect.Zero(decl), nil
	}

	base := decl
	for base.Kind() == reflect.Pointer {
		base = base.Elem()
	}
	typ := base
	hint := e.Type
	if hint == "" {
		hint = tag
	}
	if hint != "" && hint != Undetermined && hint != convert.Tag(base) {
		rt, ok := c.reg.Resolve(hint)
		if !ok {
			return reflect.Value{}, fmt.Errorf("%w: type tag %q is not registered", ErrUnsupportedType, hint)
		}
		typ = rt
	}
	if typ.Kind() == reflect.Interface {
		return reflect.Value{}, fmt.Errorf("%w: no runtime type stored for %s value", ErrUnsupportedType, convert.Tag(typ))
	}

	conv, err := c.reg.MustFind(typ)
	if err != nil {
		return reflect.Value{}, err
	}
	val, err := conv.Decode(e.Text)
	if err != nil {
		return reflect.Value{}, fmt.Errorf("decode %s from %q: %w", convert.Tag(typ), e.Text, err)
	}
	return fit(decl, reflect.ValueOf(val))
}

func (c *Codec) decodeSequence(t reflect.Type, e *Entry) (reflect.Value, error) {
	out := reflect.MakeSlice(t, 0, len(e.Items))
	if err := checkUndetermined(e.ElemType, len(e.Items)); err != nil {
		return reflect.Value{}, err
	}
	for i := range e.Items {
		v, err := c.decode(t.Elem(), &e.Items[i], e.ElemType)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("element %d: %w", i, err)
		}
		out = reflect.Append(out, v)
	}
	return out, nil
}

func (c *Codec) decodeSet(t reflect.Type, e *Entry) (reflect.Value, error) {
	out := reflect.MakeMapWithSize(t, len(e.Items))
	if err := checkUndetermined(e.ElemType, len(e.Items)); err != nil {
		return reflect.Value{}, err
	}
	member := reflect.Zero(t.Elem())
	for i := range e.Items {
		if e.Items[i].Kind != Scalar {
			return reflect.Value{}, corruptf("set element %d is a %s", i, e.Items[i].Kind)
		}
		k, err := c.decode(t.Key(), &e.Items[i], e.ElemType)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("set element %d: %w", i, err)
		}
		out.SetMapIndex(k, member)
	}
	return out, nil
}

func (c *Codec) decodeMapping(t reflect.Type, e *Entry) (reflect.Value, error) {
	out := reflect.MakeMapWithSize(t, len(e.Pairs))
	if err := checkUndetermined(e.KeyType, len(e.Pairs)); err != nil {
		return reflect.Value{}, err
	}
	for i := range e.Pairs {
		p := &e.Pairs[i]
		keyTag := p.KeyType
		if keyTag == "" {
			keyTag = e.KeyType
		}
		keyEntry := Entry{Kind: Scalar, Text: p.Key, Null: p.Key == NullText}
		k, err := c.decode(t.Key(), &keyEntry, keyTag)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("map key %q: %w", p.Key, err)
		}
		v, err := c.decode(t.Elem(), &p.Value, e.ValueType)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("map value %q: %w", p.Key, err)
		}
		out.SetMapIndex(k, v)
	}
	return out, nil
}

// containerType returns the container type to build for decl. Interface
// declarations get []any, map[any]struct{} or map[any]any.
func containerType(decl reflect.Type, kind Kind) (reflect.Type, error) {
	base := decl
	for base.Kind() == reflect.Pointer {
		base = base.Elem()
	}
	if base.Kind() == reflect.Interface {
		switch kind {
		case Sequence:
			return anySliceType, nil
		case Set:
			return anySetType, nil
		default:
			return anyMapType, nil
		}
	}

	var ok bool
	switch kind {
	case Sequence:
		ok = base.Kind() == reflect.Slice
	case Set:
		ok = isSetType(base)
	case Mapping:
		ok = base.Kind() == reflect.Map && !isSetType(base)
	}
	if !ok {
		return nil, corruptf("%s stored for %s", kind, convert.Tag(base))
	}
	return base, nil
}

func checkUndetermined(tag string, n int) error {
	if tag == Undetermined && n > 0 {
		return corruptf("container of %d elements has no element type", n)
	}
	return nil
}

// fit makes v assignable to decl, allocating pointers and converting between
// types of the same kind.
func fit(decl reflect.Type, v reflect.Value) (reflect.Value, error) {
	if v.Type().AssignableTo(decl) {
		return v, nil
	}
	if decl.Kind() == reflect.Pointer {
		inner, err := fit(decl.Elem(), v)
		if err != nil {
			return reflect.Value{}, err
		}
		p := reflect.New(decl.Elem())
		p.Elem().Set(inner)
		return p, nil
	}
	if v.Kind() == decl.Kind() && v.Type().ConvertibleTo(decl) {
		return v.Convert(decl), nil
	}
	return reflect.Value{}, corruptf("stored %s does not fit %s", convert.Tag(v.Type()), convert.Tag(decl))
}

func nillable(t reflect.Type) bool {
	return t.Kind() == reflect.Pointer || t.Kind() == reflect.Interface
}
