package formats

import (
	"encoding/json"
	"fmt"
	"io"
)

// jsonRow is the JSON shape of a row
type jsonRow struct {
	Table  string `json:"table"`
	ID     int64  `json:"id"`
	Type   string `json:"type"`
	Fields []any  `json:"fields"`
}

// JSON format implementation
// One indented JSON object per row, as a concatenated stream.
var JSON = &DocumentFormat{
	Name:      "json",
	Extension: ".json",
	Render: func(w io.Writer, rows []Row) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		for _, row := range rows {
			out := jsonRow{Table: row.Table, ID: row.ID, Type: row.Record.Type, Fields: make([]any, 0, len(row.Record.Fields))}
			for _, f := range row.Record.Fields {
				out.Fields = append(out.Fields, Value(f))
			}
			if err := enc.Encode(out); err != nil {
				return fmt.Errorf("failed to encode %s/%d: %w", row.Table, row.ID, err)
			}
		}
		return nil
	},
}

func init() {
	mustRegister(JSON)
}
