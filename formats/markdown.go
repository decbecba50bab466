package formats

import (
	"fmt"
	"io"
	"strings"

	"github.com/arthur-debert/rowstore/rowstore/codec"
)

// Markdown format implementation
// Each row: "# table/id" header, the row type in backticks, then a
// numbered list of fields. Container elements are nested bullets.
var Markdown = &DocumentFormat{
	Name:      "markdown",
	Extension: ".md",
	Render: func(w io.Writer, rows []Row) error {
		var result strings.Builder
		for i, row := range rows {
			if i > 0 {
				result.WriteString("\n")
			}
			fmt.Fprintf(&result, "# %s/%d\n\n`%s`\n\n", row.Table, row.ID, row.Record.Type)
			for n, f := range row.Record.Fields {
				writeMarkdownEntry(&result, fmt.Sprintf("%d. ", n+1), f, 0)
			}
		}
		_, err := io.WriteString(w, result.String())
		return err
	},
}

func init() {
	mustRegister(Markdown)
}

func writeMarkdownEntry(b *strings.Builder, marker string, e codec.Entry, depth int) {
	indent := strings.Repeat("   ", depth)
	switch e.Kind {
	case codec.Sequence, codec.Set:
		fmt.Fprintf(b, "%s%s_%s_\n", indent, marker, describe(e))
		for _, item := range e.Items {
			writeMarkdownEntry(b, "- ", item, depth+1)
		}
	case codec.Mapping:
		fmt.Fprintf(b, "%s%s_%s_\n", indent, marker, describe(e))
		for _, p := range e.Pairs {
			writeMarkdownEntry(b, "- **"+singleLine(p.Key)+"**: ", p.Value, depth+1)
		}
	default:
		if e.Null {
			fmt.Fprintf(b, "%s%s_null_\n", indent, marker)
			return
		}
		fmt.Fprintf(b, "%s%s`%s`\n", indent, marker, singleLine(e.Text))
	}
}
