// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package policy holds the immutable keyword, pattern and lookup tables the
// rules engine evaluates against. Tables are compiled once from a Definition
// and never modified afterwards, so a single *Tables may be shared by any
// number of concurrent engine invocations.
package policy

import (
	"fmt"
	"sort"
	"strings"
)

// KeywordList names a keyword table.
type KeywordList string

// Keyword tables used by the supplementary rules, the disclosure classifier
// and the title normalizer.
const (
	BriefingMarker        KeywordList = "briefing_marker"
	BriefingParty         KeywordList = "briefing_party"
	BriefingBusiness      KeywordList = "briefing_business"
	Training              KeywordList = "training"
	TrainingManagement    KeywordList = "training_management"
	PartyTraining         KeywordList = "party_training"
	AddressChange         KeywordList = "address_change"
	Maintenance           KeywordList = "maintenance"
	InternalDocTypes      KeywordList = "internal_doc_types"
	NoticeMarker          KeywordList = "notice_marker"
	ImportantNotice       KeywordList = "important_notice"
	Regulation            KeywordList = "regulation"
	InternalOrganization  KeywordList = "internal_organization"
	CriticismNotice       KeywordList = "criticism_notice"
	BidMarker             KeywordList = "bid_marker"
	BidResult             KeywordList = "bid_result"
	PartyBranch           KeywordList = "party_branch"
	PartyBranchAdjustment KeywordList = "party_branch_adjustment"
	PartyBranchTarget     KeywordList = "party_branch_target"
	RequestMarker         KeywordList = "request_marker"
	ElectionResult        KeywordList = "election_result"
	BusinessLegitimate    KeywordList = "business_legitimate"
	GeneralDocTypes       KeywordList = "general_doc_types"
	Privacy               KeywordList = "privacy"
	Commercial            KeywordList = "commercial"
	CommercialExempt      KeywordList = "commercial_exempt"
	NegativeTitle         KeywordList = "negative_title"
)

// PatternList names a regular expression table.
type PatternList string

// Pattern tables. The title tables are applied in list order.
const (
	PrivacyPatterns  PatternList = "privacy"
	NegativePatterns PatternList = "negative"
	TitleAnnotations PatternList = "title_annotations"
	BriefingIssue    PatternList = "briefing_issue"
	TitlePrefix      PatternList = "title_prefix"
)

// KeywordLists returns every keyword table a Definition must provide.
func KeywordLists() []KeywordList {
	return []KeywordList{
		BriefingMarker, BriefingParty, BriefingBusiness,
		Training, TrainingManagement, PartyTraining,
		AddressChange, Maintenance, InternalDocTypes,
		NoticeMarker, ImportantNotice,
		Regulation, InternalOrganization,
		CriticismNotice, BidMarker, BidResult,
		PartyBranch, PartyBranchAdjustment, PartyBranchTarget, RequestMarker, ElectionResult,
		BusinessLegitimate, GeneralDocTypes,
		Privacy, Commercial, CommercialExempt, NegativeTitle,
	}
}

// PatternLists returns every pattern table a Definition must provide.
func PatternLists() []PatternList {
	return []PatternList{PrivacyPatterns, NegativePatterns, TitleAnnotations, BriefingIssue, TitlePrefix}
}

// Tables is the compiled, read-only policy.
type Tables struct {
	keywords map[KeywordList]KeywordSet
	patterns map[PatternList]PatternSet

	forceNull        []string
	securityLevels   map[string]bool
	controlledLevels map[string]bool
	secretPeriods    map[string]bool
	periodRank       map[string]int

	cutoffYear int
	codesNew   map[string]string
	codesOld   map[string]string
}

// Compile validates def and builds Tables from it.
func Compile(def Definition) (*Tables, error) {
	t := &Tables{
		keywords:         make(map[KeywordList]KeywordSet, len(def.Keywords)),
		patterns:         make(map[PatternList]PatternSet, len(def.Patterns)),
		forceNull:        append([]string(nil), def.ForceNullFields...),
		securityLevels:   toSet(def.SecurityLevels),
		controlledLevels: toSet(def.ControlledSecurityLevels),
		secretPeriods:    toSet(def.SecretPeriods),
		periodRank:       make(map[string]int, len(def.PeriodOrder)),
		cutoffYear:       def.CodeCutoffYear,
		codesNew:         copyMap(def.CodesNew),
		codesOld:         copyMap(def.CodesOld),
	}

	known := make(map[KeywordList]bool)
	for _, name := range KeywordLists() {
		known[name] = true
		words, ok := def.Keywords[string(name)]
		if !ok {
			return nil, fmt.Errorf("keyword table %q is missing", name)
		}
		t.keywords[name] = NewKeywordSet(words...)
	}
	if unknown := unknownKeys(def.Keywords, func(k string) bool { return known[KeywordList(k)] }); len(unknown) > 0 {
		return nil, fmt.Errorf("unknown keyword tables: %s", strings.Join(unknown, ", "))
	}

	knownPatterns := make(map[PatternList]bool)
	for _, name := range PatternLists() {
		knownPatterns[name] = true
		exprs, ok := def.Patterns[string(name)]
		if !ok {
			return nil, fmt.Errorf("pattern table %q is missing", name)
		}
		set, err := NewPatternSet(exprs...)
		if err != nil {
			return nil, fmt.Errorf("pattern table %q: %w", name, err)
		}
		t.patterns[name] = set
	}
	if unknown := unknownKeys(def.Patterns, func(k string) bool { return knownPatterns[PatternList(k)] }); len(unknown) > 0 {
		return nil, fmt.Errorf("unknown pattern tables: %s", strings.Join(unknown, ", "))
	}

	if len(def.PeriodOrder) == 0 {
		return nil, fmt.Errorf("period order is empty")
	}
	for i, p := range def.PeriodOrder {
		if _, dup := t.periodRank[p]; dup {
			return nil, fmt.Errorf("period %q listed twice in period order", p)
		}
		t.periodRank[p] = i + 1
	}

	for level := range t.controlledLevels {
		if !t.securityLevels[level] {
			return nil, fmt.Errorf("controlled security level %q is not a valid security level", level)
		}
	}

	if def.CodeCutoffYear <= 0 {
		return nil, fmt.Errorf("code cutoff year must be positive, got %d", def.CodeCutoffYear)
	}
	if len(def.CodesNew) == 0 || len(def.CodesOld) == 0 {
		return nil, fmt.Errorf("both code tables must be non-empty")
	}

	return t, nil
}

// MustCompile is Compile that panics on error. It is meant for built-in
// definitions only.
func MustCompile(def Definition) *Tables {
	t, err := Compile(def)
	if err != nil {
		panic(fmt.Sprintf("policy: %v", err))
	}
	return t
}

// Keywords returns the named keyword table. An unknown name yields an empty
// set that never matches.
func (t *Tables) Keywords(name KeywordList) KeywordSet {
	return t.keywords[name]
}

// Patterns returns the named pattern table.
func (t *Tables) Patterns(name PatternList) PatternSet {
	return t.patterns[name]
}

// ForceNullFields returns the fields that must always end up null.
func (t *Tables) ForceNullFields() []string {
	return append([]string(nil), t.forceNull...)
}

// ValidSecurityLevel reports whether level is in the security level domain.
func (t *Tables) ValidSecurityLevel(level string) bool {
	return t.securityLevels[level]
}

// ControlledSecurityLevel reports whether level restricts disclosure.
func (t *Tables) ControlledSecurityLevel(level string) bool {
	return t.controlledLevels[level]
}

// ValidSecretPeriod reports whether period is in the secrecy period domain.
func (t *Tables) ValidSecretPeriod(period string) bool {
	return t.secretPeriods[period]
}

// PeriodRank returns the position of a retention period in the ordered
// domain, starting at 1. Unknown or empty periods rank 0, below everything.
func (t *Tables) PeriodRank(period string) int {
	return t.periodRank[period]
}

// PeriodBelow reports whether period ranks strictly below target.
func (t *Tables) PeriodBelow(period, target string) bool {
	return t.PeriodRank(period) < t.PeriodRank(target)
}

// CutoffYear returns the first year that uses the new code table.
func (t *Tables) CutoffYear() int {
	return t.cutoffYear
}

// CodeFor looks up the classification code of category for year. The lookup
// is an exact match on the category name.
func (t *Tables) CodeFor(year int, category string) (string, bool) {
	table := t.codesOld
	if year >= t.cutoffYear {
		table = t.codesNew
	}
	code, ok := table[category]
	return code, ok && code != ""
}

func toSet(values []string) map[string]bool {
	m := make(map[string]bool, len(values))
	for _, v := range values {
		m[v] = true
	}
	return m
}

func copyMap(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func unknownKeys(m map[string][]string, known func(string) bool) []string {
	var unknown []string
	for k := range m {
		if !known(k) {
			unknown = append(unknown, k)
		}
	}
	sort.Strings(unknown)
	return unknown
}
