// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package table

import (
	"fmt"

	"archivist/internal/formatters"
	"archivist/internal/metadata"

	"github.com/jedib0t/go-pretty/v6/table"
)

const titleWidth = 40

// Formatter renders one table row per record.
type Formatter struct{}

// NewFormatter creates a new table formatter
func NewFormatter() *Formatter {
	return &Formatter{}
}

func (f *Formatter) Name() string {
	return "table"
}

func (f *Formatter) Description() string {
	return "Terminal table with one row per record"
}

func (f *Formatter) FileExtension() string {
	return ".txt"
}

func (f *Formatter) Format(items []formatters.Item, options formatters.FormatterOptions) ([]byte, error) {
	columns := options.Columns()
	exportable := formatters.Exportable(items)

	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	if options.Title != "" {
		t.SetTitle(options.Title)
	}

	header := table.Row{"#"}
	var configs []table.ColumnConfig
	for i, c := range columns {
		header = append(header, c)
		if c == metadata.FieldTitle {
			configs = append(configs, table.ColumnConfig{Number: i + 2, WidthMax: titleWidth})
		}
	}
	if options.Verbose {
		header = append(header, "corrections")
	}
	t.AppendHeader(header)
	t.SetColumnConfigs(configs)

	corrections := 0
	for i, it := range exportable {
		row := table.Row{i + 1}
		for _, c := range columns {
			row = append(row, formatters.Cell(it.Record, c))
		}
		applied := len(it.Report.Applied())
		corrections += applied
		if options.Verbose {
			row = append(row, applied)
		}
		t.AppendRow(row)
	}

	footer := table.Row{"Total", fmt.Sprintf("%d records", len(exportable))}
	if options.Verbose {
		footer = append(footer, fmt.Sprintf("%d corrections", corrections))
	}
	t.AppendFooter(footer)

	return []byte(t.Render() + "\n"), nil
}

// Register the formatter during package initialization
func init() {
	formatters.Register(NewFormatter())
}
