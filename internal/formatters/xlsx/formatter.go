// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package xlsx

import (
	"bytes"
	"fmt"

	"archivist/internal/formatters"
	"archivist/internal/metadata"

	"github.com/xuri/excelize/v2"
)

const (
	// DefaultSheet names the record sheet when no title is given.
	DefaultSheet = "档案目录"
	// DecisionsSheet lists rule decisions in verbose mode.
	DecisionsSheet = "规则修正"
)

var decisionHeaders = []string{"档案", "阶段", "规则", "字段", "原值", "新值", "锁定"}

// Formatter writes an Excel workbook.
type Formatter struct{}

// NewFormatter creates a new xlsx formatter
func NewFormatter() *Formatter {
	return &Formatter{}
}

func (f *Formatter) Name() string {
	return "xlsx"
}

func (f *Formatter) Description() string {
	return "Excel workbook with one row per record"
}

func (f *Formatter) FileExtension() string {
	return ".xlsx"
}

func (f *Formatter) Format(items []formatters.Item, options formatters.FormatterOptions) ([]byte, error) {
	sheet := options.Title
	if sheet == "" {
		sheet = DefaultSheet
	}
	columns := options.Columns()
	exportable := formatters.Exportable(items)

	book := excelize.NewFile()
	defer func() { _ = book.Close() }()

	if err := book.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	bold, err := book.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	if err := writeRow(book, sheet, 1, toAny(columns)); err != nil {
		return nil, err
	}
	for i, it := range exportable {
		row := formatters.Project(it.Record, columns)
		if err := writeRow(book, sheet, i+2, row.Values); err != nil {
			return nil, err
		}
	}
	if err := styleHeader(book, sheet, len(columns), bold); err != nil {
		return nil, err
	}

	if options.Verbose {
		if err := writeDecisions(book, exportable, bold); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := book.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeDecisions(book *excelize.File, items []formatters.Item, style int) error {
	if _, err := book.NewSheet(DecisionsSheet); err != nil {
		return fmt.Errorf("create sheet %s: %w", DecisionsSheet, err)
	}
	if err := writeRow(book, DecisionsSheet, 1, toAny(decisionHeaders)); err != nil {
		return err
	}
	if err := styleHeader(book, DecisionsSheet, len(decisionHeaders), style); err != nil {
		return err
	}

	rowNum := 2
	for _, it := range items {
		if it.Report == nil {
			continue
		}
		for _, d := range it.Report.Decisions {
			locked := ""
			if d.Skipped {
				locked = "是"
			}
			values := []any{it.Name, string(d.Stage), d.Rule, d.Field,
				metadata.ValueString(d.From), metadata.ValueString(d.To), locked}
			if err := writeRow(book, DecisionsSheet, rowNum, values); err != nil {
				return err
			}
			rowNum++
		}
	}
	return nil
}

func writeRow(book *excelize.File, sheet string, row int, values []any) error {
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err := book.SetCellValue(sheet, cell, v); err != nil {
			return fmt.Errorf("set %s!%s: %w", sheet, cell, err)
		}
	}
	return nil
}

func styleHeader(book *excelize.File, sheet string, n, style int) error {
	if n == 0 {
		return nil
	}
	last, err := excelize.CoordinatesToCellName(n, 1)
	if err != nil {
		return err
	}
	return book.SetCellStyle(sheet, "A1", last, style)
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

// Register the formatter during package initialization
func init() {
	formatters.Register(NewFormatter())
}
