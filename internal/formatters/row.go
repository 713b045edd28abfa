// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package formatters

import (
	"bytes"
	"encoding/json"

	"archivist/internal/metadata"
)

// Row is a record projected onto a header template. Values keep their
// scalar type; absent and nil values become "".
type Row struct {
	Fields []string
	Values []any
}

// Project builds the row of rec for fields.
func Project(rec metadata.Record, fields []string) Row {
	row := Row{Fields: fields, Values: make([]any, len(fields))}
	for i, field := range fields {
		v, ok := rec[field]
		if !ok || v == nil {
			v = ""
		}
		row.Values[i] = v
	}
	return row
}

// MarshalJSON writes the row as an object whose keys follow the template order.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	encode := func(v any) ([]byte, error) {
		buf.Reset()
		if err := enc.Encode(v); err != nil {
			return nil, err
		}
		return bytes.TrimRight(buf.Bytes(), "\n"), nil
	}

	out := []byte{'{'}
	for i, field := range r.Fields {
		if i > 0 {
			out = append(out, ',')
		}
		key, err := encode(field)
		if err != nil {
			return nil, err
		}
		out = append(append(out, key...), ':')
		val, err := encode(r.Values[i])
		if err != nil {
			return nil, err
		}
		out = append(out, val...)
	}
	return append(out, '}'), nil
}
