// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package extraction turns the raw response of a metadata extractor into a
// metadata.Record. Extractors are free-text generators, so the response may
// be wrapped in markdown fences, surrounded by prose or not quite valid JSON.
package extraction

import (
	"bytes"
	"encoding/json"
	"errors"
	"regexp"
	"strconv"
	"strings"

	"archivist/internal/metadata"
)

// ErrEmptyResponse is returned when no field could be recovered.
var ErrEmptyResponse = errors.New("extraction response contains no metadata")

// Method tells which parsing strategy produced a record.
type Method string

const (
	MethodStrict   Method = "strict"
	MethodRepaired Method = "repaired"
	MethodRegex    Method = "regex"
)

var (
	trailingComma = regexp.MustCompile(`,(\s*[}\]])`)

	// Field patterns for the last-resort scan, tried in order. The first
	// pattern that yields a key wins for that key.
	fieldString = regexp.MustCompile(`"([^"]+)":\s*"([^"]*)"`)
	fieldNumber = regexp.MustCompile(`"([^"]+)":\s*(\d+)`)
	fieldNull   = regexp.MustCompile(`"([^"]+)":\s*null`)
	fieldList   = regexp.MustCompile(`"([^"]+)":\s*(\[.*?\])`)
)

// Clean strips markdown code fences and any prose around the outermost
// JSON object.
func Clean(response string) string {
	s := strings.TrimSpace(response)
	switch {
	case strings.HasPrefix(s, "```json"):
		s = s[len("```json"):]
	case strings.HasPrefix(s, "```"):
		s = s[len("```"):]
	}
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		s = s[start : end+1]
	}
	return strings.TrimSpace(s)
}

// Parse cleans response and decodes it. Strict JSON is tried first, then a
// repaired form with single quotes turned into double quotes and trailing
// commas removed, and finally a per-field scan restricted to schema fields.
func Parse(response string) (metadata.Record, Method, error) {
	cleaned := Clean(response)
	if cleaned == "" {
		return nil, "", ErrEmptyResponse
	}

	if rec, err := decode(cleaned); err == nil {
		return rec, MethodStrict, nil
	}

	repaired := strings.ReplaceAll(cleaned, "'", `"`)
	repaired = trailingComma.ReplaceAllString(repaired, "$1")
	if rec, err := decode(repaired); err == nil {
		return rec, MethodRepaired, nil
	}

	rec := scanFields(cleaned)
	if len(rec) == 0 {
		return nil, "", ErrEmptyResponse
	}
	return rec, MethodRegex, nil
}

// decode requires a JSON object. Integral numbers become int.
func decode(s string) (metadata.Record, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, ErrEmptyResponse
	}
	rec := make(metadata.Record, len(raw))
	for k, v := range raw {
		rec[k] = normalize(v)
	}
	return rec, nil
}

func normalize(v any) any {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	if i, err := strconv.Atoi(n.String()); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}

func scanFields(text string) metadata.Record {
	rec := metadata.Record{}
	keep := func(key string, value any) {
		if !metadata.InSchema(key) || rec.Has(key) {
			return
		}
		rec[key] = value
	}

	for _, m := range fieldString.FindAllStringSubmatch(text, -1) {
		keep(m[1], scalar(m[2]))
	}
	for _, m := range fieldNumber.FindAllStringSubmatch(text, -1) {
		keep(m[1], scalar(m[2]))
	}
	for _, m := range fieldNull.FindAllStringSubmatch(text, -1) {
		keep(m[1], nil)
	}
	for _, m := range fieldList.FindAllStringSubmatch(text, -1) {
		keep(m[1], m[2])
	}
	return rec
}

// scalar maps "" and "null" to nil and all-digit strings to int.
func scalar(s string) any {
	if s == "" || s == "null" {
		return nil
	}
	if isDigits(s) {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return s
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
