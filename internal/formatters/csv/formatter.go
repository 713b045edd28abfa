// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package csv

import (
	"fmt"
	"strings"

	"archivist/internal/formatters"
	"archivist/internal/metadata"
	"archivist/internal/rules"
)

// BOM lets spreadsheet applications detect UTF-8.
const BOM = "\ufeff"

// DecisionsColumn is appended in verbose mode.
const DecisionsColumn = "规则修正"

// Formatter implements CSV output formatting
type Formatter struct{}

// NewFormatter creates a new CSV formatter
func NewFormatter() *Formatter {
	return &Formatter{}
}

func (f *Formatter) Name() string {
	return "csv"
}

func (f *Formatter) Description() string {
	return "Comma-separated values with a UTF-8 BOM for spreadsheet import"
}

func (f *Formatter) FileExtension() string {
	return ".csv"
}

func (f *Formatter) Format(items []formatters.Item, options formatters.FormatterOptions) ([]byte, error) {
	headers := options.Columns()

	header := make([]string, 0, len(headers)+1)
	for _, h := range headers {
		header = append(header, f.escapeCSVField(h))
	}
	if options.Verbose {
		header = append(header, DecisionsColumn)
	}

	var b strings.Builder
	b.WriteString(BOM)
	b.WriteString(strings.Join(header, ","))
	b.WriteString("\r\n")

	for _, it := range formatters.Exportable(items) {
		b.WriteString(f.createCSVRow(it, headers, options))
		b.WriteString("\r\n")
	}
	return []byte(b.String()), nil
}

// createCSVRow creates a CSV row for a record
func (f *Formatter) createCSVRow(it formatters.Item, headers []string, options formatters.FormatterOptions) string {
	fields := make([]string, 0, len(headers)+1)
	for _, h := range headers {
		fields = append(fields, f.escapeCSVField(formatters.Cell(it.Record, h)))
	}
	if options.Verbose {
		fields = append(fields, f.escapeCSVField(describeDecisions(it.Report)))
	}
	return strings.Join(fields, ",")
}

func describeDecisions(report *rules.Report) string {
	var parts []string
	for _, d := range report.Applied() {
		parts = append(parts, fmt.Sprintf("%s:%s=%s", d.Rule, d.Field, metadata.ValueString(d.To)))
	}
	return strings.Join(parts, "; ")
}

// escapeCSVField properly escapes CSV fields and prevents CSV injection
func (f *Formatter) escapeCSVField(field string) string {
	field = f.sanitizeFormulaInjection(field)

	// If field contains comma, quote, or newline, wrap in quotes and escape internal quotes
	if strings.ContainsAny(field, ",\"\n\r") {
		escaped := strings.ReplaceAll(field, "\"", "\"\"")
		return fmt.Sprintf("\"%s\"", escaped)
	}
	return field
}

// sanitizeFormulaInjection prevents CSV injection attacks by sanitizing formula characters
func (f *Formatter) sanitizeFormulaInjection(field string) string {
	if len(field) == 0 {
		return field
	}

	firstChar := field[0]
	if firstChar == '=' || firstChar == '+' || firstChar == '-' || firstChar == '@' {
		// Prefix with single quote to prevent formula execution
		return "'" + field
	}

	return field
}

// Register the formatter during package initialization
func init() {
	formatters.Register(NewFormatter())
}
