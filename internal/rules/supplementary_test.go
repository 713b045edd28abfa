// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package rules

import (
	"strings"
	"testing"

	"archivist/internal/metadata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func supplementary(t *testing.T, rec metadata.Record, text string) (metadata.Record, *Report) {
	t.Helper()
	return New(nil).ApplySupplementary(rec, text)
}

func skippedRules(r *Report) []string {
	var out []string
	for _, d := range r.Skipped() {
		out = append(out, d.Rule)
	}
	return out
}

func TestRuleNames_Order(t *testing.T) {
	names := RuleNames()
	require.Len(t, names, 11)
	assert.Equal(t, RuleBriefing, names[0])
	assert.Equal(t, RuleBusinessGuard, names[9])
	assert.Equal(t, RuleFileNumberEscalation, names[10])
}

func TestBriefingRule_Categories(t *testing.T) {
	tests := []struct {
		name     string
		title    string
		text     string
		category string
		code     string
	}{
		{"party", "党支部工作简报", "", metadata.CategoryParty, "DQL"},
		{"party from body", "工作简报", "本期介绍工会活动", metadata.CategoryParty, "DQL"},
		{"business", "档案管理工作简报", "", metadata.CategoryBusiness, "YWL"},
		{"general", "2021年度安全生产简报", "", metadata.CategoryGeneral, "ZHL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, report := supplementary(t, metadata.Record{
				metadata.FieldTitle:           tt.title,
				metadata.FieldFormationTime:   "20210601",
				metadata.FieldRetentionPeriod: metadata.PeriodPermanent,
			}, tt.text)

			assert.Equal(t, metadata.Period10Years, out[metadata.FieldRetentionPeriod])
			assert.Equal(t, tt.category, out[metadata.FieldCategoryName])
			assert.Equal(t, tt.code, out[metadata.FieldCategoryCode])
			assert.True(t, report.PeriodLocked)
			assert.Equal(t, RuleBriefing, report.LockedBy)
		})
	}
}

func TestPeriodLock_AllLaterRulesSkipped(t *testing.T) {
	out, report := supplementary(t, metadata.Record{
		metadata.FieldTitle:           "本公司考勤管理办法批评通报中标结果公示通知简报",
		metadata.FieldFileNumber:      "某发〔2021〕3号",
		metadata.FieldFormationTime:   "20210101",
		metadata.FieldRetentionPeriod: metadata.Period1Year,
	}, "档案寄存地址变更 设备安装 党支部关于调整委员的请示")

	assert.Equal(t, metadata.Period10Years, out[metadata.FieldRetentionPeriod])
	assert.Equal(t, []string{
		RuleAddressChange,
		RuleMaintenance,
		RuleInternalRegulation,
		RuleCriticismNotice,
		RuleBidResult,
		RulePartyBranchAdjustment,
		RuleFileNumberEscalation,
	}, skippedRules(report))

	// category writes are not subject to the lock
	assert.Equal(t, metadata.CategoryParty, out[metadata.FieldCategoryName])
	assert.Equal(t, "DQL", out[metadata.FieldCategoryCode])
	assert.True(t, report.Fired(RuleInternalRegulation))
}

func TestPeriodLock_MonotonicForAnyTriggerCombination(t *testing.T) {
	triggers := []struct{ title, text string }{
		{"培训", ""},
		{"", "档案寄存地址变更"},
		{"维修的函", "安装"},
		{"管理办法", "本单位"},
		{"通报批评", ""},
		{"中标通知书", ""},
		{"", "党支部关于更换书记的请示"},
	}
	initial := []any{nil, "", metadata.Period1Year, metadata.Period30Years, metadata.PeriodPermanent, "乱写"}

	for mask := 0; mask < 1<<len(triggers); mask++ {
		var title, text strings.Builder
		title.WriteString("情况简报")
		for i, tr := range triggers {
			if mask&(1<<i) != 0 {
				title.WriteString(tr.title)
				text.WriteString(tr.text + " ")
			}
		}
		for _, period := range initial {
			rec := metadata.Record{
				metadata.FieldTitle:           title.String(),
				metadata.FieldRetentionPeriod: period,
				metadata.FieldFileNumber:      "某发〔2020〕1号",
			}
			out, report := supplementary(t, rec, text.String())
			require.Equal(t, metadata.Period10Years, out[metadata.FieldRetentionPeriod], "title=%s text=%s", title.String(), text.String())
			for _, d := range report.Applied() {
				if d.Field == metadata.FieldRetentionPeriod {
					assert.Equal(t, RuleBriefing, d.Rule, "only the briefing rule may write the period")
				}
			}
		}
	}
}

func TestRunChain_LockedStateIsRespectedPerRule(t *testing.T) {
	e := New(nil)
	report := &Report{}
	p := e.newPass(metadata.Record{
		metadata.FieldTitle:           "关于档案寄存地址变更的函",
		metadata.FieldRetentionPeriod: metadata.PeriodPermanent,
	}, "", report)

	state := p.runChain(chainState{periodLocked: true, lockedBy: "test"}, []supplementaryRule{
		{RuleAddressChange, addressChangeRule},
	})

	assert.True(t, state.periodLocked)
	assert.Equal(t, "test", state.lockedBy)
	assert.Equal(t, metadata.PeriodPermanent, p.rec[metadata.FieldRetentionPeriod])
	require.Len(t, report.Skipped(), 1)
	assert.Equal(t, metadata.Period10Years, report.Skipped()[0].To)

	unlocked := p.runChain(chainState{}, []supplementaryRule{{RuleAddressChange, addressChangeRule}})
	assert.False(t, unlocked.periodLocked)
	assert.Equal(t, metadata.Period10Years, p.rec[metadata.FieldRetentionPeriod])
}

func TestInternalTrainingRule(t *testing.T) {
	tests := []struct {
		name         string
		title        string
		text         string
		period       any
		wantCategory any
		wantPeriod   any
	}{
		{"raises short period", "新员工入职培训", "", metadata.Period10Years, metadata.CategoryBusiness, metadata.Period30Years},
		{"raises empty period", "消防安全培训", "", nil, metadata.CategoryBusiness, metadata.Period30Years},
		{"keeps permanent", "新员工入职培训", "", metadata.PeriodPermanent, metadata.CategoryBusiness, metadata.PeriodPermanent},
		{"keeps thirty years", "新员工入职培训", "", metadata.Period30Years, metadata.CategoryBusiness, metadata.Period30Years},
		{"management excluded", "培训管理制度", "", metadata.Period10Years, nil, metadata.Period10Years},
		{"party training excluded", "新员工入职培训", "组织党员学习", metadata.Period10Years, nil, metadata.Period10Years},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := metadata.Record{metadata.FieldTitle: tt.title, metadata.FieldArchivalYear: "2022"}
			if tt.period != nil {
				rec[metadata.FieldRetentionPeriod] = tt.period
			}
			out, _ := supplementary(t, rec, tt.text)
			assert.Equal(t, tt.wantCategory, out[metadata.FieldCategoryName])
			assert.Equal(t, tt.wantPeriod, out[metadata.FieldRetentionPeriod])
			if tt.wantCategory != nil {
				assert.Equal(t, "YWL", out[metadata.FieldCategoryCode])
			}
		})
	}
}

func TestAddressChangeRule(t *testing.T) {
	out, report := supplementary(t, metadata.Record{
		metadata.FieldTitle:           "关于变更的说明",
		metadata.FieldRetentionPeriod: metadata.Period30Years,
	}, "我司档案寄存地址变更如下")
	assert.Equal(t, metadata.Period10Years, out[metadata.FieldRetentionPeriod])
	assert.True(t, report.Fired(RuleAddressChange))
}

func TestMaintenanceRule(t *testing.T) {
	out, _ := supplementary(t, metadata.Record{
		metadata.FieldTitle:           "关于办公楼空调维修的函",
		metadata.FieldRetentionPeriod: metadata.Period30Years,
	}, "")
	assert.Equal(t, metadata.Period10Years, out[metadata.FieldRetentionPeriod])

	out, _ = supplementary(t, metadata.Record{
		metadata.FieldTitle:           "空调维修记录",
		metadata.FieldRetentionPeriod: metadata.Period30Years,
	}, "")
	assert.Equal(t, metadata.Period30Years, out[metadata.FieldRetentionPeriod], "needs an internal document type")
}

func TestGenericNoticeRule(t *testing.T) {
	out, report := supplementary(t, metadata.Record{
		metadata.FieldTitle:           "关于召开例会的通知",
		metadata.FieldRetentionPeriod: metadata.Period30Years,
	}, "")
	assert.Equal(t, metadata.Period10Years, out[metadata.FieldRetentionPeriod])
	assert.True(t, report.Fired(RuleGenericNotice))

	out, report = supplementary(t, metadata.Record{
		metadata.FieldTitle:           "关于召开例会的通知",
		metadata.FieldRetentionPeriod: metadata.Period10Years,
		metadata.FieldFileNumber:      "某发〔2021〕8号",
	}, "")
	assert.False(t, report.Fired(RuleGenericNotice))
	assert.Equal(t, metadata.Period30Years, out[metadata.FieldRetentionPeriod], "file number escalation tops up")

	out, _ = supplementary(t, metadata.Record{
		metadata.FieldTitle:           "关于表彰先进个人的通知",
		metadata.FieldRetentionPeriod: metadata.PeriodPermanent,
	}, "")
	assert.Equal(t, metadata.PeriodPermanent, out[metadata.FieldRetentionPeriod], "important notices are left alone")
}

func TestInternalRegulationRule(t *testing.T) {
	out, _ := supplementary(t, metadata.Record{
		metadata.FieldTitle:           "考勤管理办法",
		metadata.FieldCategoryName:    metadata.CategoryBusiness,
		metadata.FieldRetentionPeriod: metadata.Period10Years,
		metadata.FieldFormationTime:   "20190301",
	}, "适用于本公司全体员工")
	assert.Equal(t, metadata.CategoryGeneral, out[metadata.FieldCategoryName])
	assert.Equal(t, metadata.Period30Years, out[metadata.FieldRetentionPeriod])
	assert.Equal(t, "002", out[metadata.FieldCategoryCode])
}

func TestInternalRegulationRule_ChangesCategoryUnderLock(t *testing.T) {
	out, report := supplementary(t, metadata.Record{
		metadata.FieldTitle:         "党支部考勤管理办法简报",
		metadata.FieldFormationTime: "20220301",
	}, "适用于本单位")
	assert.Equal(t, metadata.CategoryGeneral, out[metadata.FieldCategoryName])
	assert.Equal(t, "ZHL", out[metadata.FieldCategoryCode])
	assert.Equal(t, metadata.Period10Years, out[metadata.FieldRetentionPeriod])
	assert.Equal(t, []string{RuleInternalRegulation}, skippedRules(report))
}

func TestCriticismAndBidRules(t *testing.T) {
	tests := []struct {
		title string
		want  any
	}{
		{"关于张三的通报批评", metadata.Period30Years},
		{"关于李四的批评通报", metadata.Period30Years},
		{"某项目中标结果公示", metadata.Period30Years},
		{"中标通知书", metadata.Period30Years},
		{"关于中标的函", metadata.Period5Years},
		{"结果公示", metadata.Period5Years},
	}
	for _, tt := range tests {
		out, _ := supplementary(t, metadata.Record{
			metadata.FieldTitle:           tt.title,
			metadata.FieldRetentionPeriod: metadata.Period5Years,
		}, "")
		assert.Equal(t, tt.want, out[metadata.FieldRetentionPeriod], tt.title)
	}
}

func TestPartyBranchAdjustmentRule(t *testing.T) {
	out, report := supplementary(t, metadata.Record{
		metadata.FieldTitle:           "关于调整支部委员的请示",
		metadata.FieldCategoryName:    metadata.CategoryGeneral,
		metadata.FieldRetentionPeriod: metadata.Period10Years,
		metadata.FieldArchivalYear:    "2023",
	}, "第一党支部拟调整委员如下")
	assert.True(t, report.Fired(RulePartyBranchAdjustment))
	assert.Equal(t, metadata.CategoryParty, out[metadata.FieldCategoryName])
	assert.Equal(t, metadata.Period30Years, out[metadata.FieldRetentionPeriod])
	assert.Equal(t, "DQL", out[metadata.FieldCategoryCode])
}

func TestPartyBranchAdjustmentRule_ElectionResultExcluded(t *testing.T) {
	out, report := supplementary(t, metadata.Record{
		metadata.FieldTitle:           "关于支部委员调整及选举结果的请示",
		metadata.FieldCategoryName:    metadata.CategoryGeneral,
		metadata.FieldRetentionPeriod: metadata.PeriodPermanent,
	}, "党支部换届选举结果")
	assert.False(t, report.Fired(RulePartyBranchAdjustment))
	assert.Equal(t, metadata.CategoryGeneral, out[metadata.FieldCategoryName])
	assert.Equal(t, metadata.PeriodPermanent, out[metadata.FieldRetentionPeriod])
}

func TestBusinessGuardRule(t *testing.T) {
	out, report := supplementary(t, metadata.Record{
		metadata.FieldTitle:        "年度工作总结",
		metadata.FieldCategoryName: metadata.CategoryBusiness,
		metadata.FieldArchivalYear: 2021,
	}, "")
	assert.True(t, report.Fired(RuleBusinessGuard))
	assert.Equal(t, metadata.CategoryGeneral, out[metadata.FieldCategoryName])
	assert.Equal(t, "ZHL", out[metadata.FieldCategoryCode])

	out, _ = supplementary(t, metadata.Record{
		metadata.FieldTitle:        "档案整理工作总结",
		metadata.FieldCategoryName: metadata.CategoryBusiness,
	}, "")
	assert.Equal(t, metadata.CategoryBusiness, out[metadata.FieldCategoryName], "archive work is legitimate business")

	out, _ = supplementary(t, metadata.Record{
		metadata.FieldTitle:        "设备台账",
		metadata.FieldCategoryName: metadata.CategoryBusiness,
	}, "")
	assert.Equal(t, metadata.CategoryBusiness, out[metadata.FieldCategoryName], "no general document type in title")
}

func TestFileNumberEscalation_NeverLowers(t *testing.T) {
	tests := []struct {
		period any
		want   any
	}{
		{metadata.Period1Year, metadata.Period30Years},
		{metadata.Period10Years, metadata.Period30Years},
		{"", metadata.Period30Years},
		{"长期", metadata.Period30Years},
		{metadata.Period30Years, metadata.Period30Years},
		{metadata.PeriodPermanent, metadata.PeriodPermanent},
	}
	for _, tt := range tests {
		out, _ := supplementary(t, metadata.Record{
			metadata.FieldTitle:           "关于加强安全管理的意见",
			metadata.FieldFileNumber:      "某发〔2021〕12号",
			metadata.FieldRetentionPeriod: tt.period,
		}, "")
		assert.Equal(t, tt.want, out[metadata.FieldRetentionPeriod], "from %v", tt.period)
	}
}

func TestFileNumberEscalation_BlankNumberIgnored(t *testing.T) {
	for _, number := range []any{nil, "", "  ", "null"} {
		out, report := supplementary(t, metadata.Record{
			metadata.FieldTitle:           "关于加强安全管理的意见",
			metadata.FieldFileNumber:      number,
			metadata.FieldRetentionPeriod: metadata.Period10Years,
		}, "")
		assert.False(t, report.Fired(RuleFileNumberEscalation))
		assert.Equal(t, metadata.Period10Years, out[metadata.FieldRetentionPeriod])
	}
}
