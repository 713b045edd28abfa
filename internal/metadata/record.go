// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package metadata defines the archival metadata record produced by the
// extraction step and corrected by the rules engine.
package metadata

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Record maps schema field names to values. A value is a string, an integer
// or nil. Records decoded from JSON may carry float64 or json.Number values;
// the accessors below treat those as integers.
type Record map[string]any

// nullLiteral is what extractors emit when they mean "no value" but quote it.
const nullLiteral = "null"

// Clone returns a shallow copy of the record. Values are immutable scalars so
// a shallow copy is enough to keep the caller's record untouched.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Has reports whether the field key is present, regardless of its value.
func (r Record) Has(field string) bool {
	_, ok := r[field]
	return ok
}

// String returns the field rendered as a string. Absent and nil values
// render as "".
func (r Record) String(field string) string {
	return ValueString(r[field])
}

// Trimmed returns String(field) with surrounding whitespace removed.
func (r Record) Trimmed(field string) string {
	return strings.TrimSpace(r.String(field))
}

// IsBlank reports whether the field has no usable value.
func (r Record) IsBlank(field string) bool {
	return IsBlankValue(r[field])
}

// Set stores a value for field.
func (r Record) Set(field string, value any) {
	r[field] = value
}

// Null stores nil for field.
func (r Record) Null(field string) {
	r[field] = nil
}

// Int parses the field as a base-10 integer.
func (r Record) Int(field string) (int, bool) {
	switch v := r[field].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if v == float64(int(v)) {
			return int(v), true
		}
		return 0, false
	case json.Number:
		n, err := strconv.Atoi(v.String())
		return n, err == nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		return n, err == nil
	default:
		return 0, false
	}
}

// NonNullCount returns how many fields carry a non-blank value.
func (r Record) NonNullCount() int {
	n := 0
	for _, v := range r {
		if !IsBlankValue(v) {
			n++
		}
	}
	return n
}

// ValueString renders a record value as a string.
func ValueString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// IsBlankValue reports whether v is nil, empty, whitespace or the literal
// string "null".
func IsBlankValue(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	if !ok {
		return false
	}
	s = strings.TrimSpace(s)
	return s == "" || s == nullLiteral
}
