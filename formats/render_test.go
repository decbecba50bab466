package formats

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"

	"github.com/arthur-debert/rowstore/rowstore/codec"
)

func sampleRow() Row {
	return Row{
		Table: "book",
		ID:    3,
		Record: &codec.Record{
			Type: "x.Book",
			Fields: []codec.Entry{
				codec.ScalarEntry("le name"),
				codec.NullEntry(),
				{Kind: codec.Sequence, ElemType: "string", Items: []codec.Entry{codec.ScalarEntry("a"), codec.ScalarEntry("b")}},
				{Kind: codec.Mapping, KeyType: "string", ValueType: "int", Pairs: []codec.Pair{
					{Key: "alice", Value: codec.ScalarEntry("5")},
				}},
				{Kind: codec.Scalar, Text: "42", Type: "int"},
			},
		},
	}
}

func render(t *testing.T, format *DocumentFormat, rows ...Row) string {
	t.Helper()
	var buf bytes.Buffer
	if err := format.Render(&buf, rows); err != nil {
		t.Fatalf("%s render: %v", format.Name, err)
	}
	return buf.String()
}

func TestPlainTextRender(t *testing.T) {
	got := render(t, PlainText, sampleRow())
	want := `table: book
id: 3
type: x.Book
---

0: le name
1: <null>
2: (list of string, 2)
  - 0: a
  - 1: b
3: (map of string to int, 1)
  alice: 5
4: 42 (int)
`
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("plaintext mismatch (-want +got):\n%s", diff)
	}

	two := render(t, PlainText, sampleRow(), sampleRow())
	if strings.Count(two, "---\n") != 2 {
		t.Errorf("expected two row sections, got:\n%s", two)
	}
}

func TestMarkdownRender(t *testing.T) {
	got := render(t, Markdown, sampleRow())
	want := "# book/3\n\n`x.Book`\n\n" +
		"1. `le name`\n" +
		"2. _null_\n" +
		"3. _list of string_\n" +
		"   - `a`\n" +
		"   - `b`\n" +
		"4. _map of string to int_\n" +
		"   - **alice**: `5`\n" +
		"5. `42`\n"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("markdown mismatch (-want +got):\n%s", diff)
	}
}

func TestJSONRender(t *testing.T) {
	out := render(t, JSON, sampleRow(), sampleRow())

	dec := json.NewDecoder(strings.NewReader(out))
	count := 0
	for dec.More() {
		var got map[string]any
		if err := dec.Decode(&got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		want := map[string]any{
			"table":  "book",
			"id":     float64(3),
			"type":   "x.Book",
			"fields": []any{"le name", nil, []any{"a", "b"}, map[string]any{"alice": "5"}, "42"},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("json mismatch (-want +got):\n%s", diff)
		}
		count++
	}
	if count != 2 {
		t.Errorf("expected 2 objects, got %d", count)
	}
}

func TestYAMLRender(t *testing.T) {
	out := render(t, YAML, sampleRow(), sampleRow())

	dec := yaml.NewDecoder(strings.NewReader(out))
	for i := 0; i < 2; i++ {
		var got map[string]any
		if err := dec.Decode(&got); err != nil {
			t.Fatalf("decode document %d: %v\n%s", i, err, out)
		}
		want := map[string]any{
			"table":  "book",
			"id":     3,
			"type":   "x.Book",
			"fields": []any{"le name", nil, []any{"a", "b"}, map[string]any{"alice": "5"}, "42"},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("yaml mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestXMLRender(t *testing.T) {
	row := sampleRow()
	out := render(t, XML, row)

	rec, err := codec.DecodeDocument(strings.NewReader(out))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if diff := cmp.Diff(row.Record, rec); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}

	var buf bytes.Buffer
	if err := XML.Render(&buf, []Row{row, row}); err == nil {
		t.Error("expected an error for several rows")
	}
}

func TestValue(t *testing.T) {
	set := codec.Entry{Kind: codec.Set, ElemType: codec.Undetermined}
	if got, ok := Value(set).([]any); !ok || len(got) != 0 {
		t.Errorf("Value(empty set) = %#v", Value(set))
	}
	if Value(codec.NullEntry()) != nil {
		t.Error("null scalar should be nil")
	}
}
