// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package yaml

import (
	"bytes"
	"fmt"

	"archivist/internal/formatters"
	"archivist/internal/metadata"

	"gopkg.in/yaml.v3"
)

// Formatter implements YAML output formatting
type Formatter struct{}

// NewFormatter creates a new YAML formatter
func NewFormatter() *Formatter {
	return &Formatter{}
}

func (f *Formatter) Name() string {
	return "yaml"
}

func (f *Formatter) Description() string {
	return "YAML format output with the same structure as JSON"
}

func (f *Formatter) FileExtension() string {
	return ".yaml"
}

func (f *Formatter) Format(items []formatters.Item, options formatters.FormatterOptions) ([]byte, error) {
	columns := options.Columns()
	seq := &yaml.Node{Kind: yaml.SequenceNode}

	for _, it := range formatters.Exportable(items) {
		row := rowNode(formatters.Project(it.Record, columns))
		if !options.Verbose {
			seq.Content = append(seq.Content, row)
			continue
		}

		entry := &yaml.Node{Kind: yaml.MappingNode}
		if it.Name != "" {
			entry.Content = append(entry.Content, scalar("archive_name"), scalar(it.Name))
		}
		if it.Status != "" {
			entry.Content = append(entry.Content, scalar("status"), scalar(it.Status))
		}
		entry.Content = append(entry.Content, scalar("metadata"), row)
		if it.Report != nil {
			var report yaml.Node
			if err := report.Encode(it.Report); err != nil {
				return nil, fmt.Errorf("encode report of %s: %w", it.Name, err)
			}
			entry.Content = append(entry.Content, scalar("report"), &report)
		}
		seq.Content = append(seq.Content, entry)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(seq); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// rowNode builds a mapping that keeps the template's key order.
func rowNode(row formatters.Row) *yaml.Node {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for i, field := range row.Fields {
		value := &yaml.Node{Kind: yaml.ScalarNode, Value: metadata.ValueString(row.Values[i])}
		switch v := row.Values[i].(type) {
		case int, int64:
			value.Tag = "!!int"
		case float64:
			value.Tag = "!!float"
			if v == float64(int64(v)) {
				value.Tag = "!!int"
			}
		default:
			value.Tag = "!!str"
		}
		node.Content = append(node.Content, scalar(field), value)
	}
	return node
}

func scalar(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

// Register the formatter during package initialization
func init() {
	formatters.Register(NewFormatter())
}
