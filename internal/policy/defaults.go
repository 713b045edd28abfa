// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package policy

import (
	"sync"

	"archivist/internal/metadata"
)

const (
	openBracket  = `[\[【（(〔［]`
	closeBracket = `[\]】）)〕］]`
	notBracket   = `[^\[\]【】（）()〔〕［］]`
	dash         = `[-—–－]`
)

// Definition is the uncompiled, serializable form of the policy tables.
type Definition struct {
	Keywords                 map[string][]string `yaml:"keywords"`
	Patterns                 map[string][]string `yaml:"patterns"`
	ForceNullFields          []string            `yaml:"force_null_fields"`
	SecurityLevels           []string            `yaml:"security_levels"`
	ControlledSecurityLevels []string            `yaml:"controlled_security_levels"`
	SecretPeriods            []string            `yaml:"secret_periods"`
	PeriodOrder              []string            `yaml:"period_order"` // ascending
	CodeCutoffYear           int                 `yaml:"code_cutoff_year"`
	CodesNew                 map[string]string   `yaml:"codes_new"`
	CodesOld                 map[string]string   `yaml:"codes_old"`
}

// DefaultDefinition returns a fresh copy of the built-in policy.
func DefaultDefinition() Definition {
	return Definition{
		Keywords: map[string][]string{
			string(BriefingMarker):   {"简报"},
			string(BriefingParty):    {"党风廉政", "党支部", "党员", "党建", "纪委", "廉政", "工青妇", "工会", "团委"},
			string(BriefingBusiness): {"档案整理", "档案管理", "档案工作", "内部培训", "业务培训"},

			string(Training):           {"培训"},
			string(TrainingManagement): {"制度", "经费", "管理", "考勤"},
			string(PartyTraining):      {"党务", "党员", "党建", "党支部", "党课", "党校", "入党"},

			string(AddressChange):    {"寄存地址变更", "档案寄存地址", "寄存地点变更", "寄存地址的变更"},
			string(Maintenance):      {"安装", "维修", "检修"},
			string(InternalDocTypes): {"函", "通知"},

			string(NoticeMarker):    {"通知"},
			string(ImportantNotice): {"重要", "重大", "紧急", "任免", "表彰", "处分", "奖惩", "机构设置", "换届", "人事"},

			string(Regulation):           {"制度", "管理办法", "条例", "实施细则", "章程"},
			string(InternalOrganization): {"本公司", "我公司", "公司内部", "公司各部门", "本单位", "我单位", "各部门", "全体员工"},

			string(CriticismNotice): {"批评通报", "通报批评"},
			string(BidMarker):       {"中标"},
			string(BidResult):       {"结果公示", "中标通知", "中标公示", "中标结果", "通知函", "通知书"},

			string(PartyBranch):           {"党支部"},
			string(PartyBranchAdjustment): {"更换", "调整", "增补", "变更"},
			string(PartyBranchTarget):     {"组织", "委员", "书记"},
			string(RequestMarker):         {"请示"},
			string(ElectionResult):        {"选举结果", "换届选举结果", "当选", "选举产生", "选举大会", "党员大会选举"},

			string(BusinessLegitimate): {"档案整理", "档案管理", "档案工作", "档案规范", "档案数字化", "档案移交", "培训"},
			string(GeneralDocTypes):    {"通知", "函", "请示", "批复", "报告", "纪要", "计划", "总结", "名册", "介绍信", "会议"},

			string(Privacy):          {"工资表", "薪酬明细", "工资明细", "身份证号", "身份证号码", "家庭住址", "个人档案", "体检报告", "病历"},
			string(Commercial):       {"报价单", "成本核算", "利润分析", "客户名单", "投标报价", "底价", "商业秘密"},
			string(CommercialExempt): {"中标结果", "中标公示", "结果公示", "中标通知"},
			string(NegativeTitle):    {"批评通报", "通报批评", "处分决定", "问责", "诫勉约谈", "诫勉谈话", "撤职", "开除", "警告处分"},
		},
		Patterns: map[string][]string{
			string(PrivacyPatterns): {
				`\b[1-9]\d{5}(?:19|20)\d{2}(?:0[1-9]|1[0-2])(?:0[1-9]|[12]\d|3[01])\d{3}[\dXx]\b`,
			},
			string(NegativePatterns): {
				`给予[^，。；,;]{0,12}?(?:严重警告|警告|记大过|记过|降级|撤职|留党察看|留用察看|开除党籍|开除公职|开除)处分`,
				`(?:党纪|政务|行政|纪律)处分`,
				`开除(?:党籍|公职)`,
				`诫勉(?:谈话|约谈)`,
				`立案(?:审查|调查)`,
			},
			string(TitleAnnotations): {
				`\s*` + openBracket + `\d{6,8}` + closeBracket + `$`,
				`\s*` + openBracket + `\d{4}年\d{1,2}月\d{1,2}日` + closeBracket + `$`,
				`\s*` + openBracket + `\d{4}年?(?:版|修订版?|第?\d*[号期])` + closeBracket + `$`,
				`^` + openBracket + `\d{4}` + closeBracket + `\s*`,
				`^` + openBracket + `\d{4}年\d{1,2}月(?:\d{1,2}日)?` + closeBracket + `\s*`,
				`\s*` + openBracket + notBracket + `*` + openBracket + `\d{4}` + closeBracket + `\s*第?\d+号` + closeBracket + `$`,
				`\s+[^\s\[\]【】（）()〔〕［］]*` + openBracket + `\d{4}` + closeBracket + `\s*第?\d+号$`,
				`\s*` + openBracket + `\d{4}` + closeBracket + `\s*第?\d+号$`,
			},
			string(BriefingIssue): {
				`\s*` + dash + `+\s*第?\d+期$`,
				`\s*` + openBracket + `第?\d+期` + closeBracket + `$`,
				`\s*第\d+期$`,
			},
			string(TitlePrefix): {
				`^\d{1,3}号\s+`,
			},
		},
		ForceNullFields: []string{
			metadata.FieldFondsNumber,
			metadata.FieldArchiveCode,
			metadata.FieldArchiveName,
			metadata.FieldOutsourcer,
		},
		SecurityLevels: []string{
			metadata.SecurityNone,
			metadata.SecurityInternal,
			metadata.SecuritySecret,
			metadata.SecurityConfidential,
			metadata.SecurityTopSecret,
		},
		ControlledSecurityLevels: []string{
			metadata.SecurityInternal,
			metadata.SecuritySecret,
			metadata.SecurityConfidential,
			metadata.SecurityTopSecret,
		},
		SecretPeriods: []string{metadata.Period1Year, metadata.Period5Years, metadata.Period10Years},
		PeriodOrder: []string{
			metadata.Period1Year,
			metadata.Period5Years,
			metadata.Period10Years,
			metadata.Period30Years,
			metadata.PeriodPermanent,
		},
		CodeCutoffYear: 2020,
		CodesNew: map[string]string{
			metadata.CategoryParty:    "DQL",
			metadata.CategoryGeneral:  "ZHL",
			metadata.CategoryBusiness: "YWL",
		},
		CodesOld: map[string]string{
			metadata.CategoryParty:    "001",
			metadata.CategoryGeneral:  "002",
			metadata.CategoryBusiness: "003",
		},
	}
}

var (
	defaultOnce   sync.Once
	defaultTables *Tables
)

// Default returns the shared compiled built-in tables.
func Default() *Tables {
	defaultOnce.Do(func() {
		defaultTables = MustCompile(DefaultDefinition())
	})
	return defaultTables
}
