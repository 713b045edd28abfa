// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package text

import (
	"fmt"
	"strings"

	"archivist/internal/formatters"
	"archivist/internal/metadata"
	"archivist/internal/rules"

	"github.com/fatih/color"
	prettytext "github.com/jedib0t/go-pretty/v6/text"
)

// Formatter implements text-based output formatting
type Formatter struct {
	colors map[string]*color.Color
}

// NewFormatter creates a new text formatter
func NewFormatter() *Formatter {
	return &Formatter{
		colors: map[string]*color.Color{
			"green":  color.New(color.FgGreen),
			"yellow": color.New(color.FgYellow),
			"red":    color.New(color.FgRed),
			"cyan":   color.New(color.FgCyan),
			"faint":  color.New(color.Faint),
			"white":  color.New(color.FgWhite, color.Bold),
		},
	}
}

func (f *Formatter) Name() string {
	return "text"
}

func (f *Formatter) Description() string {
	return "Human-readable record listing with corrected fields highlighted"
}

func (f *Formatter) FileExtension() string {
	return ".txt"
}

func (f *Formatter) Format(items []formatters.Item, options formatters.FormatterOptions) ([]byte, error) {
	// Disable colors if requested
	if options.NoColor {
		color.NoColor = true
	}

	if len(items) == 0 {
		return []byte("No records.\n"), nil
	}

	columns := options.Columns()
	width := 0
	for _, c := range columns {
		if w := prettytext.RuneWidthWithoutEscSequences(c); w > width {
			width = w
		}
	}

	var b strings.Builder
	corrections := 0
	for i, it := range items {
		if i > 0 {
			b.WriteString("\n")
		}
		f.appendHeader(&b, i+1, it)
		if it.Record == nil {
			continue
		}
		changed := make(map[string]bool)
		for _, field := range it.Report.ChangedFields() {
			changed[field] = true
		}
		corrections += len(it.Report.Applied())

		for _, field := range columns {
			value := formatters.Cell(it.Record, field)
			label := prettytext.Pad(field, width, ' ')
			switch {
			case changed[field]:
				value = f.colors["yellow"].Sprint(value) + f.colors["faint"].Sprint(" *")
			case value == "":
				value = f.colors["faint"].Sprint("-")
			}
			fmt.Fprintf(&b, "  %s  %s\n", label, value)
		}
		if options.Verbose {
			f.appendDecisions(&b, it.Report)
		}
	}

	fmt.Fprintf(&b, "\n%s %d records, %d corrections\n", f.colors["white"].Sprint("Summary:"), len(items), corrections)
	return []byte(b.String()), nil
}

func (f *Formatter) appendHeader(b *strings.Builder, n int, it formatters.Item) {
	name := it.Name
	if name == "" {
		name = fmt.Sprintf("record %d", n)
	}
	fmt.Fprintf(b, "%s %s", f.colors["white"].Sprintf("[%d]", n), f.colors["cyan"].Sprint(name))

	switch {
	case it.Error != "":
		fmt.Fprintf(b, "  %s %s\n", f.colors["red"].Sprint(strings.ToUpper(orDefault(it.Status, "error"))), it.Error)
	case it.Status != "":
		fmt.Fprintf(b, "  %s\n", f.colors["green"].Sprint(strings.ToUpper(it.Status)))
	default:
		b.WriteString("\n")
	}
}

func (f *Formatter) appendDecisions(b *strings.Builder, report *rules.Report) {
	if report == nil || len(report.Decisions) == 0 {
		b.WriteString(f.colors["faint"].Sprint("  no corrections") + "\n")
		return
	}
	b.WriteString("  decisions:\n")
	for _, d := range report.Decisions {
		line := fmt.Sprintf("    %-13s %-28s %s: %q -> %q", d.Stage, d.Rule, d.Field,
			metadata.ValueString(d.From), metadata.ValueString(d.To))
		if d.Skipped {
			line = f.colors["faint"].Sprint(line + " (locked)")
		}
		b.WriteString(line + "\n")
	}
	if report.PeriodLocked {
		fmt.Fprintf(b, "  period locked by %s\n", report.LockedBy)
	}
	fmt.Fprintf(b, "  code: %s\n", report.Code)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// Register the formatter during package initialization
func init() {
	formatters.Register(NewFormatter())
}
