// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package rules

import (
	"encoding/json"
	"testing"

	"archivist/internal/metadata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEffectiveYear(t *testing.T) {
	tests := []struct {
		name   string
		rec    metadata.Record
		want   int
		wantOK bool
	}{
		{"compact formation time", metadata.Record{metadata.FieldFormationTime: "20210315"}, 2021, true},
		{"dashed formation time", metadata.Record{metadata.FieldFormationTime: "2019-05-01"}, 2019, true},
		{"chinese formation time", metadata.Record{metadata.FieldFormationTime: "2018年5月"}, 2018, true},
		{"formation beats archival", metadata.Record{metadata.FieldFormationTime: "2019", metadata.FieldArchivalYear: "2022"}, 2019, true},
		{"bad formation falls back", metadata.Record{metadata.FieldFormationTime: "未知日期", metadata.FieldArchivalYear: "2022"}, 2022, true},
		{"short formation falls back", metadata.Record{metadata.FieldFormationTime: "20", metadata.FieldArchivalYear: 2020}, 2020, true},
		{"archival float", metadata.Record{metadata.FieldArchivalYear: float64(2017)}, 2017, true},
		{"nothing usable", metadata.Record{metadata.FieldFormationTime: "null", metadata.FieldArchivalYear: "不详"}, 0, false},
		{"empty", metadata.Record{}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := EffectiveYear(tt.rec)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveCode_YearCutoff(t *testing.T) {
	e := New(nil)
	tests := []struct {
		year     string
		category string
		want     string
	}{
		{"2020", metadata.CategoryParty, "DQL"},
		{"2024", metadata.CategoryGeneral, "ZHL"},
		{"2021", metadata.CategoryBusiness, "YWL"},
		{"2019", metadata.CategoryParty, "001"},
		{"2019", metadata.CategoryGeneral, "002"},
		{"1998", metadata.CategoryBusiness, "003"},
	}
	for _, tt := range tests {
		out, res := e.ResolveCode(metadata.Record{
			metadata.FieldArchivalYear: tt.year,
			metadata.FieldCategoryName: tt.category,
		})
		assert.Equal(t, Resolved, res)
		assert.Equal(t, tt.want, out[metadata.FieldCategoryCode], "%s %s", tt.year, tt.category)
	}
}

func TestResolveCode_OverwritesStaleCode(t *testing.T) {
	out, res := New(nil).ResolveCode(metadata.Record{
		metadata.FieldFormationTime: "20190708",
		metadata.FieldCategoryName:  metadata.CategoryGeneral,
		metadata.FieldCategoryCode:  "ZHL",
	})
	assert.Equal(t, Resolved, res)
	assert.Equal(t, "002", out[metadata.FieldCategoryCode])
}

func TestResolveCode_ExactMatchOnly(t *testing.T) {
	for _, category := range []string{"业务管理类", "业务", "综合", "党群类别", ""} {
		out, res := New(nil).ResolveCode(metadata.Record{
			metadata.FieldArchivalYear: "2021",
			metadata.FieldCategoryName: category,
			metadata.FieldCategoryCode: "KEEP",
		})
		assert.Equal(t, UnknownCategory, res, category)
		assert.Equal(t, "KEEP", out[metadata.FieldCategoryCode], category)
	}
}

func TestResolveCode_UnresolvedLeavesCodeStale(t *testing.T) {
	out, res := New(nil).ResolveCode(metadata.Record{
		metadata.FieldCategoryName: metadata.CategoryGeneral,
		metadata.FieldCategoryCode: "003",
	})
	assert.Equal(t, Unresolved, res)
	assert.NotEqual(t, Resolved, res)
	assert.Equal(t, "003", out[metadata.FieldCategoryCode])
}

func TestResolveCode_EmptyRecord(t *testing.T) {
	out, res := New(nil).ResolveCode(nil)
	assert.Nil(t, out)
	assert.Equal(t, Unresolved, res)
}

func TestResolution_Text(t *testing.T) {
	data, err := json.Marshal(map[string]Resolution{"code": UnknownCategory})
	require.NoError(t, err)
	assert.JSONEq(t, `{"code":"unknown_category"}`, string(data))

	var r Resolution
	require.NoError(t, r.UnmarshalText([]byte("resolved")))
	assert.Equal(t, Resolved, r)
	assert.Error(t, r.UnmarshalText([]byte("maybe")))
}
