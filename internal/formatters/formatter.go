// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package formatters

import (
	"fmt"
	"sort"
	"strings"

	"archivist/internal/metadata"
	"archivist/internal/rules"
)

// DefaultTemplate is the header template used when none is named.
const DefaultTemplate = "default"

// Item is one record to export together with what the engine did to it.
type Item struct {
	Name   string
	Status string
	Error  string
	Record metadata.Record
	Report *rules.Report
}

// FormatterOptions defines configuration options for formatters
type FormatterOptions struct {
	Fields  []string // Header template, in column order
	Verbose bool     // Whether to include rule decisions
	NoColor bool     // Whether to disable colored output
	Title   string   // Sheet name or table caption
}

// Columns returns the header template, falling back to the schema order.
func (o FormatterOptions) Columns() []string {
	if len(o.Fields) == 0 {
		return metadata.FieldNames()
	}
	return o.Fields
}

// Formatter interface defines methods that all output formatters must implement
type Formatter interface {
	// Format renders items according to the formatter's output format
	Format(items []Item, options FormatterOptions) ([]byte, error)

	// Name returns the name of the formatter (e.g., "json", "text", "csv")
	Name() string

	// Description returns a brief description of what this formatter outputs
	Description() string

	// FileExtension returns the recommended file extension for this format (e.g., ".json", ".csv")
	FileExtension() string
}

// Templates maps a template name to its ordered header fields.
type Templates map[string][]string

// DefaultTemplates returns the built-in header templates.
func DefaultTemplates() Templates {
	return Templates{
		DefaultTemplate: metadata.FieldNames(),
		"catalog": {
			metadata.FieldArchivalYear,
			metadata.FieldCategoryCode,
			metadata.FieldRetentionPeriod,
			metadata.FieldTitle,
			metadata.FieldFileNumber,
			metadata.FieldResponsibleParty,
			metadata.FieldFormationTime,
			metadata.FieldPageCount,
			metadata.FieldRemarks,
		},
		"disclosure": {
			metadata.FieldTitle,
			metadata.FieldFileNumber,
			metadata.FieldSecurityLevel,
			metadata.FieldSecurityPeriod,
			metadata.FieldOpenStatus,
			metadata.FieldDeferredReason,
		},
	}
}

// Headers returns the fields of the named template. An empty name selects
// the default template.
func (t Templates) Headers(name string) ([]string, error) {
	if name == "" {
		name = DefaultTemplate
	}
	fields, ok := t[name]
	if !ok {
		return nil, fmt.Errorf("template %q not found. Available templates: %s", name, strings.Join(t.Names(), ", "))
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("template %q has no fields", name)
	}
	return append([]string(nil), fields...), nil
}

// Names returns the template names in sorted order.
func (t Templates) Names() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Merge returns a copy of t with every template in overlay added or replaced.
func (t Templates) Merge(overlay Templates) Templates {
	out := make(Templates, len(t)+len(overlay))
	for name, fields := range t {
		out[name] = fields
	}
	for name, fields := range overlay {
		out[name] = fields
	}
	return out
}

// Exportable returns the items that carry a record. Items without one (parse
// failures) have nothing to export.
func Exportable(items []Item) []Item {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if it.Record != nil {
			out = append(out, it)
		}
	}
	return out
}

// Cell renders one field of a record for tabular output. Absent and nil
// values render as "".
func Cell(rec metadata.Record, field string) string {
	return metadata.ValueString(rec[field])
}

// Registry holds all registered formatters
type Registry struct {
	formatters map[string]Formatter
}

// NewRegistry creates a new formatter registry
func NewRegistry() *Registry {
	return &Registry{
		formatters: make(map[string]Formatter),
	}
}

// Register adds a formatter to the registry
func (r *Registry) Register(formatter Formatter) {
	r.formatters[formatter.Name()] = formatter
}

// Get retrieves a formatter by name
func (r *Registry) Get(name string) (Formatter, bool) {
	formatter, exists := r.formatters[name]
	return formatter, exists
}

// List returns all registered formatter names, sorted
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.formatters))
	for name := range r.formatters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FormatInfo describes a formatter for help output and file naming
type FormatInfo struct {
	Name        string
	Description string
	Extension   string
	MimeType    string
	Binary      bool
}

// DefaultRegistry is the global formatter registry
var DefaultRegistry = NewRegistry()

// Register is a convenience function to register a formatter with the default registry
func Register(formatter Formatter) {
	DefaultRegistry.Register(formatter)
}

// Get is a convenience function to get a formatter from the default registry
func Get(name string) (Formatter, bool) {
	return DefaultRegistry.Get(name)
}

// List is a convenience function to list all formatters in the default registry
func List() []string {
	return DefaultRegistry.List()
}

// Export renders items with the named formatter from the default registry.
func Export(format string, items []Item, options FormatterOptions) ([]byte, error) {
	formatter, exists := Get(format)
	if !exists {
		return nil, fmt.Errorf("unsupported format '%s'. Available formats: %s", format, strings.Join(List(), ", "))
	}
	return formatter.Format(items, options)
}

// GetFormatInfo returns metadata about a specific formatter
func GetFormatInfo(name string) FormatInfo {
	formatter, exists := Get(name)
	if !exists {
		return FormatInfo{}
	}

	info := FormatInfo{
		Name:        formatter.Name(),
		Description: formatter.Description(),
		Extension:   formatter.FileExtension(),
	}

	switch name {
	case "json":
		info.MimeType = "application/json"
	case "csv":
		info.MimeType = "text/csv"
	case "yaml":
		info.MimeType = "application/x-yaml"
	case "text", "table":
		info.MimeType = "text/plain"
	case "xlsx":
		info.MimeType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		info.Binary = true
	default:
		info.MimeType = "application/octet-stream"
	}

	return info
}

// GetSupportedFormats returns information about all available formatters
func GetSupportedFormats() []FormatInfo {
	var formats []FormatInfo
	for _, name := range List() {
		formats = append(formats, GetFormatInfo(name))
	}
	return formats
}
