package convert

import (
	"encoding/base64"
	"fmt"
	"image/color"
	"regexp"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Func builds a TypedConverter from a pair of functions.
func Func[T any](encode func(T) (string, error), decode func(string) (T, error)) TypedConverter[T] {
	return funcConverter[T]{encode: encode, decode: decode}
}

type funcConverter[T any] struct {
	encode func(T) (string, error)
	decode func(string) (T, error)
}

func (f funcConverter[T]) Encode(v T) (string, error)    { return f.encode(v) }
func (f funcConverter[T]) Decode(text string) (T, error) { return f.decode(text) }

func registerBuiltins(r *Registry) {
	Register(r, Func(
		func(v string) (string, error) { return v, nil },
		func(s string) (string, error) { return s, nil },
	))
	Register(r, Func(
		func(v bool) (string, error) { return strconv.FormatBool(v), nil },
		strconv.ParseBool,
	))

	registerInt[int](r, strconv.IntSize)
	registerInt[int8](r, 8)
	registerInt[int16](r, 16)
	registerInt[int32](r, 32)
	registerInt[int64](r, 64)
	registerUint[uint](r, strconv.IntSize)
	registerUint[uint8](r, 8)
	registerUint[uint16](r, 16)
	registerUint[uint32](r, 32)
	registerUint[uint64](r, 64)
	registerFloat[float32](r, 32)
	registerFloat[float64](r, 64)

	Register(r, Func(
		func(v time.Time) (string, error) { return v.Format(time.RFC3339Nano), nil },
		func(s string) (time.Time, error) { return time.Parse(time.RFC3339Nano, s) },
	))
	Register(r, Func(
		func(v time.Duration) (string, error) { return v.String(), nil },
		time.ParseDuration,
	))
	Register(r, Func(
		func(v []byte) (string, error) { return base64.StdEncoding.EncodeToString(v), nil },
		base64.StdEncoding.DecodeString,
	))
	Register(r, Func(
		func(v uuid.UUID) (string, error) { return v.String(), nil },
		uuid.Parse,
	))
	Register[color.RGBA](r, colorConverter{})
}

func registerInt[T ~int | ~int8 | ~int16 | ~int32 | ~int64](r *Registry, bits int) {
	Register(r, Func(
		func(v T) (string, error) { return strconv.FormatInt(int64(v), 10), nil },
		func(s string) (T, error) {
			n, err := strconv.ParseInt(s, 10, bits)
			return T(n), err
		},
	))
}

func registerUint[T ~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64](r *Registry, bits int) {
	Register(r, Func(
		func(v T) (string, error) { return strconv.FormatUint(uint64(v), 10), nil },
		func(s string) (T, error) {
			n, err := strconv.ParseUint(s, 10, bits)
			return T(n), err
		},
	))
}

func registerFloat[T ~float32 | ~float64](r *Registry, bits int) {
	Register(r, Func(
		func(v T) (string, error) { return strconv.FormatFloat(float64(v), 'g', -1, bits), nil },
		func(s string) (T, error) {
			f, err := strconv.ParseFloat(s, bits)
			return T(f), err
		},
	))
}

var colorPattern = regexp.MustCompile(`^([0-9]+),([0-9]+),([0-9]+)$`)

// colorConverter stores colours as "r,g,b". Alpha is not kept; decoded
// colours are opaque.
type colorConverter struct{}

func (colorConverter) Encode(c color.RGBA) (string, error) {
	return fmt.Sprintf("%d,%d,%d", c.R, c.G, c.B), nil
}

func (colorConverter) Decode(text string) (color.RGBA, error) {
	m := colorPattern.FindStringSubmatch(text)
	if m == nil {
		return color.RGBA{}, fmt.Errorf("cannot translate to color: %q", text)
	}
	var rgb [3]uint8
	for i := range rgb {
		n, err := strconv.ParseUint(m[i+1], 10, 8)
		if err != nil {
			return color.RGBA{}, fmt.Errorf("cannot translate to color: %q: %w", text, err)
		}
		rgb[i] = uint8(n)
	}
	return color.RGBA{R: rgb[0], G: rgb[1], B: rgb[2], A: 0xff}, nil
}
