// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package rules

import (
	"archivist/internal/metadata"
	"archivist/internal/policy"
)

// Disclosure check names, in priority order.
const (
	CheckSecurityLevel   = "security_level"
	CheckPrivacy         = "privacy"
	CheckCommercial      = "commercial_secret"
	CheckNegativeTitle   = "negative_title"
	CheckNegativePattern = "negative_pattern"
)

type disclosureInput struct {
	tables *policy.Tables
	level  string
	title  string
	text   string
}

type disclosureCheck struct {
	name   string
	reason string
	match  func(in disclosureInput) bool
}

// disclosureChecks is evaluated top to bottom; the first match decides the
// reason. The security level check reads only the structured field.
var disclosureChecks = []disclosureCheck{
	{
		name:   CheckSecurityLevel,
		reason: metadata.ReasonWorkSecret,
		match: func(in disclosureInput) bool {
			return in.tables.ControlledSecurityLevel(in.level)
		},
	},
	{
		name:   CheckPrivacy,
		reason: metadata.ReasonPersonalPrivacy,
		match: func(in disclosureInput) bool {
			return in.tables.Keywords(policy.Privacy).InAny(in.title, in.text) ||
				in.tables.Patterns(policy.PrivacyPatterns).MatchAny(in.title, in.text)
		},
	},
	{
		name:   CheckCommercial,
		reason: metadata.ReasonCommercialSecret,
		match: func(in disclosureInput) bool {
			return in.tables.Keywords(policy.Commercial).InAny(in.title, in.text) &&
				!in.tables.Keywords(policy.CommercialExempt).In(in.title)
		},
	},
	{
		name:   CheckNegativeTitle,
		reason: metadata.ReasonNegativeInfo,
		match: func(in disclosureInput) bool {
			return in.tables.Keywords(policy.NegativeTitle).In(in.title)
		},
	},
	{
		name:   CheckNegativePattern,
		reason: metadata.ReasonNegativeInfo,
		match: func(in disclosureInput) bool {
			return in.tables.Patterns(policy.NegativePatterns).MatchAny(in.title, in.text)
		},
	},
}

// DisclosureChecks returns the disclosure check names in priority order.
func DisclosureChecks() []string {
	names := make([]string, len(disclosureChecks))
	for i, c := range disclosureChecks {
		names[i] = c.name
	}
	return names
}

// disclosure resets the record to open and then applies the first matching
// check.
func (p *pass) disclosure() {
	in := disclosureInput{
		tables: p.tables,
		level:  p.rec.Trimmed(metadata.FieldSecurityLevel),
		title:  p.rec.Trimmed(metadata.FieldTitle),
		text:   p.text,
	}

	status, reason := metadata.StatusOpen, ""
	rule := "default_open"
	for _, check := range disclosureChecks {
		if check.match(in) {
			status, reason, rule = metadata.StatusControlled, check.reason, check.name
			break
		}
	}

	p.set(rule, metadata.FieldOpenStatus, status)
	if reason == "" {
		p.clear(rule, metadata.FieldDeferredReason)
		return
	}
	p.set(rule, metadata.FieldDeferredReason, reason)
}
