// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package metadata

// Entity categories.
const (
	CategoryParty    = "党群类"
	CategoryGeneral  = "综合类"
	CategoryBusiness = "业务类"
)

// Retention periods.
const (
	Period1Year     = "1年"
	Period5Years    = "5年"
	Period10Years   = "10年"
	Period30Years   = "30年"
	PeriodPermanent = "永久"
)

// Security levels.
const (
	SecurityNone         = "非涉密"
	SecurityInternal     = "内部"
	SecuritySecret       = "秘密"
	SecurityConfidential = "机密"
	SecurityTopSecret    = "绝密"
)

// Open status values.
const (
	StatusOpen       = "开放"
	StatusControlled = "控制"
)

// Deferred-opening reasons.
const (
	ReasonWorkSecret       = "工作秘密"
	ReasonPersonalPrivacy  = "个人隐私"
	ReasonCommercialSecret = "商业秘密"
	ReasonNegativeInfo     = "负面信息"
)
