package formats

import (
	"fmt"
	"io"

	"github.com/arthur-debert/rowstore/rowstore/codec"
)

// XML format implementation
// The stored row document itself. Holds a single row.
var XML = &DocumentFormat{
	Name:      "xml",
	Extension: ".xml",
	Render: func(w io.Writer, rows []Row) error {
		if len(rows) != 1 {
			return fmt.Errorf("xml format renders exactly one row, got %d", len(rows))
		}
		return codec.EncodeDocument(w, rows[0].Record)
	},
}

func init() {
	mustRegister(XML)
}
