// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package rules

import (
	"regexp"
	"strings"

	"archivist/internal/metadata"
	"archivist/internal/policy"
)

const (
	openBracket  = `[\[【（(〔［]`
	closeBracket = `[\]】）)〕］]`
	notBracket   = `[^\[\]【】（）()〔〕［］]`
	dash         = `[-—–－]`
)

// bracketPairs maps each closing bracket to the openers it may close.
var bracketPairs = map[rune]string{
	']': "[［",
	'］': "［[",
	'】': "【",
	')': "(（",
	'）': "（(",
	'〕': "〔",
}

var issuanceClause = regexp.MustCompile(`^` + openBracket + `(` + notBracket + `+)` + closeBracket + `\s*(关于(?:印发|发布)《([^》]+)》.*)$`)

// titleNormalizer removes machine-introduced annotations from titles.
// The annotation, issue and prefix patterns come from the policy tables; the
// bracket matching steps are fixed.
type titleNormalizer struct {
	annotations    []*regexp.Regexp
	briefing       policy.KeywordSet
	briefingSource *regexp.Regexp
	issues         []*regexp.Regexp
	prefixes       []*regexp.Regexp
}

func newTitleNormalizer(tables *policy.Tables) *titleNormalizer {
	n := &titleNormalizer{
		annotations: tables.Patterns(policy.TitleAnnotations).Regexps(),
		briefing:    tables.Keywords(policy.BriefingMarker),
		issues:      tables.Patterns(policy.BriefingIssue).Regexps(),
		prefixes:    tables.Patterns(policy.TitlePrefix).Regexps(),
	}
	if words := n.briefing.Words(); len(words) > 0 {
		quoted := make([]string, len(words))
		for i, w := range words {
			quoted[i] = regexp.QuoteMeta(w)
		}
		n.briefingSource = regexp.MustCompile(`\s*` + dash + `+` + `[^-—–－]*(?:` + strings.Join(quoted, "|") + `)$`)
	}
	return n
}

// Normalize applies the cleanup steps repeatedly until a full pass changes
// nothing. Every step only removes text, so the loop terminates and the
// result is a fixed point.
func (n *titleNormalizer) Normalize(title string) string {
	cur := strings.TrimSpace(title)
	for {
		next := n.pass(cur)
		if next == cur {
			return cur
		}
		cur = next
	}
}

func (n *titleNormalizer) pass(t string) string {
	t = stripAll(n.annotations, t)
	t = stripDuplicateSuffix(t)
	if n.briefing.In(t) {
		t = n.stripBriefingSource(t)
		t = stripAll(n.issues, t)
	}
	t = stripAll(n.prefixes, t)
	t = collapseIssuanceClause(t)
	return t
}

func stripAll(patterns []*regexp.Regexp, t string) string {
	for _, re := range patterns {
		t = strip(re, t)
	}
	return t
}

// strip removes the match of re from t unless that would leave nothing.
func strip(re *regexp.Regexp, t string) string {
	out := strings.TrimSpace(re.ReplaceAllString(t, ""))
	if out == "" {
		return t
	}
	return out
}

func (n *titleNormalizer) stripBriefingSource(t string) string {
	if n.briefingSource == nil {
		return t
	}
	loc := n.briefingSource.FindStringIndex(t)
	if loc == nil || loc[0] == 0 {
		return t
	}
	if out := strings.TrimSpace(t[:loc[0]]); out != "" {
		return out
	}
	return t
}

// stripDuplicateSuffix removes a trailing bracketed clause whose content is
// exactly the text before it.
func stripDuplicateSuffix(t string) string {
	r := []rune(t)
	if len(r) < 3 {
		return t
	}
	openers, ok := bracketPairs[r[len(r)-1]]
	if !ok {
		return t
	}
	for i := len(r) - 2; i > 0; i-- {
		if !strings.ContainsRune(openers, r[i]) {
			continue
		}
		body := strings.TrimSpace(string(r[:i]))
		inner := strings.TrimSpace(string(r[i+1 : len(r)-1]))
		if body != "" && body == inner {
			return body
		}
	}
	return t
}

// collapseIssuanceClause drops a leading bracketed clause that repeats the
// subject of the "关于印发《X》" clause following it.
func collapseIssuanceClause(t string) string {
	m := issuanceClause.FindStringSubmatch(t)
	if m == nil {
		return t
	}
	lead := strings.Trim(strings.TrimSpace(m[1]), "《》")
	if lead != strings.TrimSpace(m[3]) {
		return t
	}
	return strings.TrimSpace(m[2])
}

func (p *pass) normalizeTitle() {
	raw, ok := p.rec[metadata.FieldTitle].(string)
	if !ok || metadata.IsBlankValue(raw) {
		return
	}
	p.set("title_normalize", metadata.FieldTitle, p.titles.Normalize(raw))
}
