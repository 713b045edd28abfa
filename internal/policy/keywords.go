// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package policy

import (
	"fmt"
	"regexp"
	"strings"

	ahocorasick "github.com/cloudflare/ahocorasick"
)

// KeywordSet answers "does any keyword occur in this text" with a single
// Aho-Corasick pass. Matching is byte-oriented, which is exact for UTF-8
// substrings. A KeywordSet is safe for concurrent use.
type KeywordSet struct {
	words   []string
	matcher *ahocorasick.Matcher
}

// NewKeywordSet builds a set from words. Blank words are dropped.
func NewKeywordSet(words ...string) KeywordSet {
	kept := make([]string, 0, len(words))
	for _, w := range words {
		if w = strings.TrimSpace(w); w != "" {
			kept = append(kept, w)
		}
	}
	if len(kept) == 0 {
		return KeywordSet{}
	}
	return KeywordSet{
		words:   kept,
		matcher: ahocorasick.NewStringMatcher(kept),
	}
}

// In reports whether any keyword occurs in text.
func (k KeywordSet) In(text string) bool {
	if k.matcher == nil || text == "" {
		return false
	}
	return len(k.matcher.MatchThreadSafe([]byte(text))) > 0
}

// InAny reports whether any keyword occurs in any of texts.
func (k KeywordSet) InAny(texts ...string) bool {
	for _, text := range texts {
		if k.In(text) {
			return true
		}
	}
	return false
}

// Matched returns the keywords found in text, in table order.
func (k KeywordSet) Matched(text string) []string {
	if k.matcher == nil || text == "" {
		return nil
	}
	hits := k.matcher.MatchThreadSafe([]byte(text))
	seen := make(map[int]bool, len(hits))
	for _, h := range hits {
		seen[h] = true
	}
	var out []string
	for i, w := range k.words {
		if seen[i] {
			out = append(out, w)
		}
	}
	return out
}

// Words returns a copy of the keywords.
func (k KeywordSet) Words() []string {
	return append([]string(nil), k.words...)
}

// Len returns the number of keywords.
func (k KeywordSet) Len() int {
	return len(k.words)
}

// PatternSet is an ordered list of compiled regular expressions.
type PatternSet struct {
	patterns []*regexp.Regexp
}

// NewPatternSet compiles exprs in order.
func NewPatternSet(exprs ...string) (PatternSet, error) {
	set := PatternSet{patterns: make([]*regexp.Regexp, 0, len(exprs))}
	for _, expr := range exprs {
		re, err := regexp.Compile(expr)
		if err != nil {
			return PatternSet{}, fmt.Errorf("compile pattern %q: %w", expr, err)
		}
		set.patterns = append(set.patterns, re)
	}
	return set, nil
}

// MatchAny reports whether any pattern matches any of texts. Patterns are
// tried in order, and each pattern is tried against every text before the
// next pattern.
func (p PatternSet) MatchAny(texts ...string) bool {
	for _, re := range p.patterns {
		for _, text := range texts {
			if text != "" && re.MatchString(text) {
				return true
			}
		}
	}
	return false
}

// Regexps returns the compiled patterns in order.
func (p PatternSet) Regexps() []*regexp.Regexp {
	return append([]*regexp.Regexp(nil), p.patterns...)
}

// Len returns the number of patterns.
func (p PatternSet) Len() int {
	return len(p.patterns)
}
