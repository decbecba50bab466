package formats

import (
	"fmt"
	"io"
	"strings"

	"github.com/arthur-debert/rowstore/rowstore/codec"
)

// PlainText format implementation
// Each row: a header section (table, id, type), separator (---), blank
// line, then one line per field. Containers list their elements indented
// below the field line. Rows are separated by a blank line.
var PlainText = &DocumentFormat{
	Name:      "plaintext",
	Extension: ".txt",
	Render: func(w io.Writer, rows []Row) error {
		var result strings.Builder
		for i, row := range rows {
			if i > 0 {
				result.WriteString("\n")
			}
			fmt.Fprintf(&result, "table: %s\nid: %d\ntype: %s\n---\n\n", row.Table, row.ID, row.Record.Type)
			for n, f := range row.Record.Fields {
				writePlainEntry(&result, fmt.Sprintf("%d", n), f, 0)
			}
		}
		_, err := io.WriteString(w, result.String())
		return err
	},
}

func init() {
	mustRegister(PlainText)
}

func writePlainEntry(b *strings.Builder, label string, e codec.Entry, depth int) {
	indent := strings.Repeat("  ", depth)
	switch e.Kind {
	case codec.Sequence, codec.Set:
		fmt.Fprintf(b, "%s%s: (%s, %d)\n", indent, label, describe(e), len(e.Items))
		for i, item := range e.Items {
			writePlainEntry(b, fmt.Sprintf("- %d", i), item, depth+1)
		}
	case codec.Mapping:
		fmt.Fprintf(b, "%s%s: (%s, %d)\n", indent, label, describe(e), len(e.Pairs))
		for _, p := range e.Pairs {
			writePlainEntry(b, singleLine(p.Key), p.Value, depth+1)
		}
	default:
		fmt.Fprintf(b, "%s%s: %s\n", indent, label, formatValue(e))
	}
}

// formatValue converts a scalar entry to its display text
func formatValue(e codec.Entry) string {
	text := singleLine(e.Text)
	if e.Null {
		return "<null>"
	}
	if e.Type != "" {
		return text + " (" + e.Type + ")"
	}
	return text
}
