package codec

import (
	"github.com/arthur-debert/rowstore/rowstore/convert"
)

// Undetermined is the type tag of an empty container whose element type
// cannot be taken from its contents.
const Undetermined = "NULL"

// NullText is the scalar text of an absent value. A string field holding
// the literal text "null" reads back as absent.
const NullText = convert.NullText

// Kind classifies an Entry.
type Kind int

const (
	Scalar Kind = iota
	Sequence
	Set
	Mapping
)

func (k Kind) String() string {
	switch k {
	case Scalar:
		return "scalar"
	case Sequence:
		return "list"
	case Set:
		return "set"
	case Mapping:
		return "map"
	}
	return "unknown"
}

// Record is the self-describing tree form of a serialized value.
type Record struct {
	// Type is the fully-qualified name of the serialized type.
	Type string
	// Fields holds one entry per persistable field, in descriptor order.
	Fields []Entry
}

// Entry is one node of a Record.
type Entry struct {
	Kind Kind

	// Text and Null are used by scalars. Type is set on scalars of
	// interface-typed fields and names the runtime type.
	Text string
	Null bool
	Type string

	// ElemType and Items are used by sequences and sets.
	ElemType string
	Items    []Entry

	// KeyType, ValueType and Pairs are used by mappings.
	KeyType   string
	ValueType string
	Pairs     []Pair
}

// Pair is one mapping entry. Keys are stored as converter text. KeyType is
// set when the key's runtime type differs from the mapping's KeyType.
type Pair struct {
	Key     string
	KeyType string
	Value   Entry
}

// ScalarEntry returns a scalar entry holding text.
func ScalarEntry(text string) Entry {
	return Entry{Kind: Scalar, Text: text}
}

// NullEntry returns the scalar entry of an absent value.
func NullEntry() Entry {
	return Entry{Kind: Scalar, Text: NullText, Null: true}
}

// Len returns the number of items or pairs of a container entry.
func (e Entry) Len() int {
	if e.Kind == Mapping {
		return len(e.Pairs)
	}
	return len(e.Items)
}
