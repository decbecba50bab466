package convert

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
)

// NullText is the text stored for absent values.
const NullText = "null"

var arrayPattern = regexp.MustCompile(`^\[L(.+?);:([0-9]+?):\((.*?)\)$`)

// arrayConverter stores fixed-size arrays as "[L<elem>;:<len>:(a,b,c)".
// Element text must not contain commas or equal the null sentinel.
type arrayConverter struct {
	t    reflect.Type
	elem Converter
	tag  string
}

func (a arrayConverter) Encode(v any) (string, error) {
	rv := reflect.ValueOf(v)
	parts := make([]string, rv.Len())
	for i := range parts {
		ev := rv.Index(i)
		if (ev.Kind() == reflect.Pointer || ev.Kind() == reflect.Interface) && ev.IsNil() {
			parts[i] = NullText
			continue
		}
		s, err := a.elem.Encode(ev.Interface())
		if err != nil {
			return "", fmt.Errorf("array element %d: %w", i, err)
		}
		if strings.Contains(s, ",") || s == NullText {
			return "", fmt.Errorf("array element %d: %q cannot be stored in an array", i, s)
		}
		parts[i] = s
	}
	return fmt.Sprintf("[L%s;:%d:(%s)", a.tag, len(parts), strings.Join(parts, ",")), nil
}

func (a arrayConverter) Decode(text string) (any, error) {
	m := arrayPattern.FindStringSubmatch(text)
	if m == nil {
		return nil, fmt.Errorf("cannot translate to array: %q", text)
	}
	if m[1] != a.tag {
		return nil, fmt.Errorf("%w: array of %s stored, %s expected", ErrUnsupportedType, m[1], a.tag)
	}
	n, err := strconv.Atoi(m[2])
	if err != nil || n != a.t.Len() {
		return nil, fmt.Errorf("cannot translate to array: length %s, expected %d", m[2], a.t.Len())
	}

	out := reflect.New(a.t).Elem()
	if n == 0 {
		return out.Interface(), nil
	}
	data := strings.Split(m[3], ",")
	if len(data) != n {
		return nil, fmt.Errorf("cannot translate to array: %d elements, expected %d", len(data), n)
	}
	for i, s := range data {
		if s == NullText {
			continue
		}
		v, err := a.elem.Decode(s)
		if err != nil {
			return nil, fmt.Errorf("array element %d: %w", i, err)
		}
		out.Index(i).Set(reflect.ValueOf(v))
	}
	return out.Interface(), nil
}
