// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package json

import (
	"bytes"
	"encoding/json"

	"archivist/internal/formatters"
	"archivist/internal/rules"
)

// Formatter implements JSON output formatting
type Formatter struct{}

// NewFormatter creates a new JSON formatter
func NewFormatter() *Formatter {
	return &Formatter{}
}

func (f *Formatter) Name() string {
	return "json"
}

func (f *Formatter) Description() string {
	return "Array of records restricted to the header template"
}

func (f *Formatter) FileExtension() string {
	return ".json"
}

// verboseItem carries the rule decisions next to the exported row.
type verboseItem struct {
	Name     string         `json:"archive_name,omitempty"`
	Status   string         `json:"status,omitempty"`
	Metadata formatters.Row `json:"metadata"`
	Report   *rules.Report  `json:"report,omitempty"`
}

func (f *Formatter) Format(items []formatters.Item, options formatters.FormatterOptions) ([]byte, error) {
	columns := options.Columns()
	exportable := formatters.Exportable(items)

	var payload any
	if options.Verbose {
		out := make([]verboseItem, 0, len(exportable))
		for _, it := range exportable {
			out = append(out, verboseItem{
				Name:     it.Name,
				Status:   it.Status,
				Metadata: formatters.Project(it.Record, columns),
				Report:   it.Report,
			})
		}
		payload = out
	} else {
		out := make([]formatters.Row, 0, len(exportable))
		for _, it := range exportable {
			out = append(out, formatters.Project(it.Record, columns))
		}
		payload = out
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(payload); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Register the formatter during package initialization
func init() {
	formatters.Register(NewFormatter())
}
