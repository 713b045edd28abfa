// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package rules

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"archivist/internal/metadata"
)

// Resolution is the outcome of a classification code lookup.
type Resolution int

const (
	// Unresolved means no effective year could be parsed; the code is left as is.
	Unresolved Resolution = iota
	// Resolved means the code was written from the year-appropriate table.
	Resolved
	// UnknownCategory means the year parsed but the category name has no
	// exact entry in the table; the code is left as is.
	UnknownCategory
)

func (r Resolution) String() string {
	switch r {
	case Resolved:
		return "resolved"
	case UnknownCategory:
		return "unknown_category"
	default:
		return "unresolved"
	}
}

// MarshalText renders the resolution by name in JSON and YAML output.
func (r Resolution) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText parses a resolution name.
func (r *Resolution) UnmarshalText(b []byte) error {
	switch string(b) {
	case "resolved":
		*r = Resolved
	case "unknown_category":
		*r = UnknownCategory
	case "unresolved", "":
		*r = Unresolved
	default:
		return fmt.Errorf("unknown code resolution %q", string(b))
	}
	return nil
}

// EffectiveYear returns the year a record's classification code is keyed by:
// the first four characters of the formation time, else the archival year.
func EffectiveYear(rec metadata.Record) (int, bool) {
	formed := rec.Trimmed(metadata.FieldFormationTime)
	if utf8.RuneCountInString(formed) >= 4 {
		if year, err := strconv.Atoi(string([]rune(formed)[:4])); err == nil && year > 0 {
			return year, true
		}
	}
	if year, ok := rec.Int(metadata.FieldArchivalYear); ok && year > 0 {
		return year, true
	}
	return 0, false
}

// resolveCode recomputes the classification code from the effective year and
// the category name. The category lookup is exact.
func (p *pass) resolveCode(rule string) Resolution {
	year, ok := EffectiveYear(p.rec)
	if !ok {
		p.logger.Debug("classification code unresolved, no usable year")
		return Unresolved
	}
	category := strings.TrimSpace(p.rec.String(metadata.FieldCategoryName))
	code, ok := p.tables.CodeFor(year, category)
	if !ok {
		return UnknownCategory
	}
	p.set(rule, metadata.FieldCategoryCode, code)
	return Resolved
}
