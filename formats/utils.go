package formats

import (
	"strings"

	"github.com/arthur-debert/rowstore/rowstore/codec"
)

// Value converts an entry into plain Go values: nil for absent scalars,
// strings for scalars, []any for lists and sets, map[string]any for maps.
func Value(e codec.Entry) any {
	switch e.Kind {
	case codec.Sequence, codec.Set:
		items := make([]any, 0, len(e.Items))
		for _, item := range e.Items {
			items = append(items, Value(item))
		}
		return items
	case codec.Mapping:
		m := make(map[string]any, len(e.Pairs))
		for _, p := range e.Pairs {
			m[p.Key] = Value(p.Value)
		}
		return m
	}
	if e.Null {
		return nil
	}
	return e.Text
}

// describe returns the container label of an entry, e.g. "list of string".
func describe(e codec.Entry) string {
	switch e.Kind {
	case codec.Sequence, codec.Set:
		return e.Kind.String() + " of " + e.ElemType
	case codec.Mapping:
		return "map of " + e.KeyType + " to " + e.ValueType
	}
	return e.Kind.String()
}

// singleLine escapes line breaks so a scalar stays on one line
func singleLine(s string) string {
	return strings.NewReplacer("\r", `\r`, "\n", `\n`).Replace(s)
}
