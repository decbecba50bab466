package codec

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"reflect"
	"unicode/utf8"
)

// Element and attribute names of the row document.
const (
	elRoot     = "reflection-dao"
	elClass    = "class"
	elField    = "field"
	elList     = "list"
	elSet      = "set"
	elMap      = "map"
	elData     = "data"
	elEntry    = "entry"
	attrType   = "type"
	attrKey    = "key"
	attrKeyTyp = "key-type"
	attrValTyp = "value-type"
)

// node is a generic XML element.
type node struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Text    string     `xml:",chardata"`
	Nodes   []node     `xml:",any"`
}

func (n *node) attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

func (n *node) setAttr(name, value string) error {
	if err := checkText(value); err != nil {
		return fmt.Errorf("attribute %s: %w", name, err)
	}
	n.Attrs = append(n.Attrs, xml.Attr{Name: xml.Name{Local: name}, Value: value})
	return nil
}

func (n *node) setText(text string) error {
	if err := checkText(text); err != nil {
		return err
	}
	n.Text = text
	return nil
}

// checkText fails on text that XML 1.0 cannot hold: invalid UTF-8 and
// characters outside the Char production.
func checkText(s string) error {
	for i, r := range s {
		if r == utf8.RuneError {
			if _, size := utf8.DecodeRuneInString(s[i:]); size == 1 {
				return fmt.Errorf("%w: invalid UTF-8 at byte %d", ErrIllegalText, i)
			}
		}
		if !isXMLChar(r) {
			return fmt.Errorf("%w: character %U at byte %d", ErrIllegalText, r, i)
		}
	}
	return nil
}

func isXMLChar(r rune) bool {
	switch {
	case r == 0x09, r == 0x0A, r == 0x0D:
		return true
	case r >= 0x20 && r <= 0xD7FF:
		return true
	case r >= 0xE000 && r <= 0xFFFD:
		return true
	case r >= 0x10000 && r <= 0x10FFFF:
		return true
	}
	return false
}

// EncodeDocument writes rec as an XML row document.
func EncodeDocument(w io.Writer, rec *Record) error {
	root := node{XMLName: xml.Name{Local: elRoot}}
	class := node{XMLName: xml.Name{Local: elClass}}
	if err := class.setText(rec.Type); err != nil {
		return fmt.Errorf("encode document: class: %w", err)
	}
	root.Nodes = append(root.Nodes, class)
	for i := range rec.Fields {
		f := node{XMLName: xml.Name{Local: elField}}
		if err := fillNode(&f, &rec.Fields[i]); err != nil {
			return fmt.Errorf("encode document: field %d: %w", i, err)
		}
		root.Nodes = append(root.Nodes, f)
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	if err := enc.Encode(root); err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// fillNode writes e into n: scalars as text, containers as one child element.
func fillNode(n *node, e *Entry) error {
	switch e.Kind {
	case Scalar:
		if err := n.setText(e.Text); err != nil {
			return err
		}
		if e.Type != "" {
			return n.setAttr(attrType, e.Type)
		}
	case Sequence, Set:
		name := elList
		if e.Kind == Set {
			name = elSet
		}
		c := node{XMLName: xml.Name{Local: name}}
		if err := c.setAttr(attrType, e.ElemType); err != nil {
			return err
		}
		for i := range e.Items {
			d := node{XMLName: xml.Name{Local: elData}}
			if err := fillNode(&d, &e.Items[i]); err != nil {
				return fmt.Errorf("element %d: %w", i, err)
			}
			c.Nodes = append(c.Nodes, d)
		}
		n.Nodes = append(n.Nodes, c)
	case Mapping:
		c := node{XMLName: xml.Name{Local: elMap}}
		if err := c.setAttr(attrKeyTyp, e.KeyType); err != nil {
			return err
		}
		if err := c.setAttr(attrValTyp, e.ValueType); err != nil {
			return err
		}
		for i := range e.Pairs {
			p := &e.Pairs[i]
			en := node{XMLName: xml.Name{Local: elEntry}}
			if err := en.setAttr(attrKey, p.Key); err != nil {
				return err
			}
			if p.KeyType != "" {
				if err := en.setAttr(attrKeyTyp, p.KeyType); err != nil {
					return err
				}
			}
			if err := fillNode(&en, &p.Value); err != nil {
				return fmt.Errorf("map value %q: %w", p.Key, err)
			}
			c.Nodes = append(c.Nodes, en)
		}
		n.Nodes = append(n.Nodes, c)
	}
	return nil
}

// DecodeDocument parses an XML row document. No target type is needed.
func DecodeDocument(r io.Reader) (*Record, error) {
	var root node
	if err := xml.NewDecoder(r).Decode(&root); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptRecord, err)
	}
	if root.XMLName.Local != elRoot {
		return nil, corruptf("unexpected root element <%s>", root.XMLName.Local)
	}
	if len(root.Nodes) == 0 || root.Nodes[0].XMLName.Local != elClass {
		return nil, corruptf("missing <%s> element", elClass)
	}

	rec := &Record{Type: root.Nodes[0].Text}
	for i := 1; i < len(root.Nodes); i++ {
		n := &root.Nodes[i]
		if n.XMLName.Local != elField {
			return nil, corruptf("unexpected element <%s> at position %d", n.XMLName.Local, i)
		}
		e, err := entryFromNode(n)
		if err != nil {
			return nil, fmt.Errorf("field %d: %w", i-1, err)
		}
		rec.Fields = append(rec.Fields, e)
	}
	return rec, nil
}

func entryFromNode(n *node) (Entry, error) {
	if len(n.Nodes) == 0 {
		e := ScalarEntry(n.Text)
		e.Null = n.Text == NullText
		e.Type, _ = n.attr(attrType)
		return e, nil
	}
	if len(n.Nodes) != 1 {
		return Entry{}, corruptf("<%s> holds %d elements", n.XMLName.Local, len(n.Nodes))
	}

	c := &n.Nodes[0]
	switch c.XMLName.Local {
	case elList, elSet:
		kind := Sequence
		if c.XMLName.Local == elSet {
			kind = Set
		}
		elemType, ok := c.attr(attrType)
		if !ok {
			return Entry{}, corruptf("<%s> without %s attribute", c.XMLName.Local, attrType)
		}
		e := Entry{Kind: kind, ElemType: elemType}
		for i := range c.Nodes {
			d := &c.Nodes[i]
			if d.XMLName.Local != elData {
				return Entry{}, corruptf("unexpected <%s> in <%s>", d.XMLName.Local, c.XMLName.Local)
			}
			item, err := entryFromNode(d)
			if err != nil {
				return Entry{}, err
			}
			e.Items = append(e.Items, item)
		}
		return e, nil

	case elMap:
		keyType, ok1 := c.attr(attrKeyTyp)
		valueType, ok2 := c.attr(attrValTyp)
		if !ok1 || !ok2 {
			return Entry{}, corruptf("<%s> without %s/%s attributes", elMap, attrKeyTyp, attrValTyp)
		}
		e := Entry{Kind: Mapping, KeyType: keyType, ValueType: valueType}
		for i := range c.Nodes {
			en := &c.Nodes[i]
			if en.XMLName.Local != elEntry {
				return Entry{}, corruptf("unexpected <%s> in <%s>", en.XMLName.Local, elMap)
			}
			key, ok := en.attr(attrKey)
			if !ok {
				return Entry{}, corruptf("<%s> without %s attribute", elEntry, attrKey)
			}
			payload := en
			if len(en.Nodes) == 1 && en.Nodes[0].XMLName.Local == elData {
				payload = &en.Nodes[0]
			}
			value, err := entryFromNode(payload)
			if err != nil {
				return Entry{}, err
			}
			p := Pair{Key: key, Value: value}
			p.KeyType, _ = en.attr(attrKeyTyp)
			e.Pairs = append(e.Pairs, p)
		}
		return e, nil
	}
	return Entry{}, corruptf("unexpected <%s> in <%s>", c.XMLName.Local, n.XMLName.Local)
}

// Marshal serializes v and encodes it as a row document.
func Marshal(c *Codec, v any) ([]byte, error) {
	rec, err := c.Serialize(v)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := EncodeDocument(&buf, rec); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes a row document into a new value of type T.
func Unmarshal[T any](c *Codec, data []byte) (T, error) {
	var zero T
	rec, err := DecodeDocument(bytes.NewReader(data))
	if err != nil {
		return zero, err
	}
	v, err := c.Deserialize(reflect.TypeFor[T](), rec)
	if err != nil {
		return zero, err
	}
	return v.(T), nil
}
