package formats

import (
	"fmt"
	"io"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/arthur-debert/rowstore/rowstore/codec"
)

// YAML format implementation
// One YAML document per row in a "---" separated stream. Map entries keep
// their stored order.
var YAML = &DocumentFormat{
	Name:      "yaml",
	Extension: ".yaml",
	Render: func(w io.Writer, rows []Row) error {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		for _, row := range rows {
			if err := enc.Encode(yamlRow(row)); err != nil {
				return fmt.Errorf("failed to encode %s/%d: %w", row.Table, row.ID, err)
			}
		}
		return enc.Close()
	},
}

func init() {
	mustRegister(YAML)
}

func yamlRow(row Row) *yaml.Node {
	fields := &yaml.Node{Kind: yaml.SequenceNode}
	for _, f := range row.Record.Fields {
		fields.Content = append(fields.Content, yamlEntry(f))
	}
	return &yaml.Node{
		Kind: yaml.MappingNode,
		Content: []*yaml.Node{
			yamlString("table"), yamlString(row.Table),
			yamlString("id"), {Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatInt(row.ID, 10)},
			yamlString("type"), yamlString(row.Record.Type),
			yamlString("fields"), fields,
		},
	}
}

func yamlEntry(e codec.Entry) *yaml.Node {
	switch e.Kind {
	case codec.Sequence, codec.Set:
		n := &yaml.Node{Kind: yaml.SequenceNode}
		for _, item := range e.Items {
			n.Content = append(n.Content, yamlEntry(item))
		}
		return n
	case codec.Mapping:
		n := &yaml.Node{Kind: yaml.MappingNode}
		for _, p := range e.Pairs {
			n.Content = append(n.Content, yamlString(p.Key), yamlEntry(p.Value))
		}
		return n
	}
	if e.Null {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	}
	return yamlString(e.Text)
}

func yamlString(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}
