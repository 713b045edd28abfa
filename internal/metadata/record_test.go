// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package metadata

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsBlankValue(t *testing.T) {
	cases := []struct {
		name  string
		value any
		want  bool
	}{
		{"nil", nil, true},
		{"empty string", "", true},
		{"whitespace", "  \t", true},
		{"null literal", "null", true},
		{"padded null literal", " null ", true},
		{"text", "综合类", false},
		{"zero int", 0, false},
		{"float", 3.0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsBlankValue(tc.value))
		})
	}
}

func TestRecord_Int(t *testing.T) {
	rec := Record{
		"a": 2020,
		"b": float64(2019),
		"c": " 2021 ",
		"d": json.Number("2018"),
		"e": "2020年",
		"f": 12.5,
		"g": nil,
	}

	n, ok := rec.Int("a")
	require.True(t, ok)
	assert.Equal(t, 2020, n)

	n, ok = rec.Int("b")
	require.True(t, ok)
	assert.Equal(t, 2019, n)

	n, ok = rec.Int("c")
	require.True(t, ok)
	assert.Equal(t, 2021, n)

	n, ok = rec.Int("d")
	require.True(t, ok)
	assert.Equal(t, 2018, n)

	for _, field := range []string{"e", "f", "g", "missing"} {
		_, ok := rec.Int(field)
		assert.False(t, ok, "field %q should not parse", field)
	}
}

func TestRecord_StringRendersNumbers(t *testing.T) {
	rec := Record{FieldPageCount: float64(12), FieldArchivalYear: 2020, FieldTitle: nil}
	assert.Equal(t, "12", rec.String(FieldPageCount))
	assert.Equal(t, "2020", rec.String(FieldArchivalYear))
	assert.Equal(t, "", rec.String(FieldTitle))
	assert.Equal(t, "", rec.String("missing"))
}

func TestRecord_CloneIsIndependent(t *testing.T) {
	rec := Record{FieldTitle: "关于印发制度的通知"}
	clone := rec.Clone()
	clone.Set(FieldTitle, "changed")

	assert.Equal(t, "关于印发制度的通知", rec.String(FieldTitle))
	assert.Nil(t, Record(nil).Clone())
}

func TestRecord_NonNullCount(t *testing.T) {
	rec := Record{FieldTitle: "题名", FieldFileNumber: "null", FieldSecurityLevel: nil, FieldPageCount: 3}
	assert.Equal(t, 2, rec.NonNullCount())
}

func TestSchema(t *testing.T) {
	names := FieldNames()
	require.Len(t, names, len(Schema))
	assert.Equal(t, FieldFondsNumber, names[0])
	assert.True(t, InSchema(FieldTitle))
	assert.False(t, InSchema("source_folder"))
}
