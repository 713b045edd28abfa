// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package rules is the deterministic policy layer that corrects extracted
// archival metadata. An Engine runs five stages in fixed order:
//
//	Sanitize → supplementary rule chain → disclosure → code resolution → title
//
// Every stage treats its input as untrusted and never fails; malformed values
// are corrected or nulled. The Engine holds only read-only tables, so one
// Engine may serve any number of goroutines.
package rules

import (
	"strconv"
	"sync"

	"archivist/internal/logging"
	"archivist/internal/metadata"
	"archivist/internal/observability"
	"archivist/internal/policy"
)

// Engine applies the policy tables to metadata records.
type Engine struct {
	tables   *policy.Tables
	titles   *titleNormalizer
	logger   logging.Logger
	observer *observability.StandardObserver
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger rule firings are reported to.
func WithLogger(l logging.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithObserver enables stage timing.
func WithObserver(o *observability.StandardObserver) Option {
	return func(e *Engine) {
		e.observer = o
	}
}

// New creates an Engine over tables. A nil tables value selects the built-in
// policy.
func New(tables *policy.Tables, opts ...Option) *Engine {
	if tables == nil {
		tables = policy.Default()
	}
	e := &Engine{
		tables: tables,
		titles: newTitleNormalizer(tables),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// GetComponentName implements observability.Observable.
func (e *Engine) GetComponentName() string {
	return "rules_engine"
}

// Tables returns the policy tables the engine evaluates.
func (e *Engine) Tables() *policy.Tables {
	return e.tables
}

// Apply runs the full pipeline over a copy of rec and returns the corrected
// record with a report of every decision. rec itself is never modified. An
// empty record is returned as is.
func (e *Engine) Apply(rec metadata.Record, text string) (metadata.Record, *Report) {
	report := &Report{}
	if len(rec) == 0 {
		return rec, report
	}

	var finishTiming func(bool, map[string]interface{})
	if e.observer != nil {
		finishTiming = e.observer.StartTiming(e.GetComponentName(), "apply", "")
	}

	p := e.newPass(rec.Clone(), text, report)
	p.stage(StageSanitize, p.sanitize)
	p.stage(StageSupplementary, p.supplementary)
	p.stage(StageDisclosure, p.disclosure)
	p.stage(StageCode, func() { report.Code = p.resolveCode("final") })
	p.stage(StageTitle, p.normalizeTitle)

	if finishTiming != nil {
		finishTiming(true, map[string]interface{}{
			"decisions":     len(report.Decisions),
			"period_locked": report.PeriodLocked,
			"code":          report.Code.String(),
		})
	}
	return p.rec, report
}

// Sanitize runs only the field sanitizer.
func (e *Engine) Sanitize(rec metadata.Record) (metadata.Record, *Report) {
	return e.single(rec, "", func(p *pass) { p.sanitize() })
}

// ApplySupplementary runs only the supplementary rule chain.
func (e *Engine) ApplySupplementary(rec metadata.Record, text string) (metadata.Record, *Report) {
	return e.single(rec, text, func(p *pass) { p.supplementary() })
}

// ClassifyDisclosure runs only the disclosure classifier.
func (e *Engine) ClassifyDisclosure(rec metadata.Record, text string) (metadata.Record, *Report) {
	return e.single(rec, text, func(p *pass) { p.disclosure() })
}

// ResolveCode runs only the classification code resolver.
func (e *Engine) ResolveCode(rec metadata.Record) (metadata.Record, Resolution) {
	out, report := e.single(rec, "", func(p *pass) { p.report.Code = p.resolveCode("final") })
	return out, report.Code
}

// NormalizeTitle returns the normalized form of title.
func (e *Engine) NormalizeTitle(title string) string {
	return e.titles.Normalize(title)
}

var defaultEngine = sync.OnceValue(func() *Engine { return New(nil) })

// NormalizeTitle normalizes title with the built-in policy.
func NormalizeTitle(title string) string {
	return defaultEngine().NormalizeTitle(title)
}

func (e *Engine) single(rec metadata.Record, text string, run func(*pass)) (metadata.Record, *Report) {
	report := &Report{}
	if len(rec) == 0 {
		return rec, report
	}
	p := e.newPass(rec.Clone(), text, report)
	run(p)
	return p.rec, report
}

// pass is the state of one invocation. It is never shared between calls.
type pass struct {
	tables *policy.Tables
	titles *titleNormalizer
	logger logging.Logger
	obs    *observability.StandardObserver
	rec    metadata.Record
	text   string
	report *Report
	cur    Stage
}

func (e *Engine) newPass(rec metadata.Record, text string, report *Report) *pass {
	return &pass{
		tables: e.tables,
		titles: e.titles,
		logger: e.logger,
		obs:    e.observer,
		rec:    rec,
		text:   text,
		report: report,
	}
}

func (p *pass) stage(s Stage, run func()) {
	p.cur = s
	if p.obs != nil && p.obs.DebugObserver != nil {
		finish := p.obs.DebugObserver.StartStep("rules_engine", string(s), "")
		before := len(p.report.Decisions)
		run()
		finish(true, pluralDecisions(len(p.report.Decisions)-before))
		return
	}
	run()
}

// set writes value to field and records the change. Writes that leave the
// value unchanged are dropped, and a nil write never adds an absent field.
func (p *pass) set(rule, field string, value any) {
	old, present := p.rec[field]
	if !present && value == nil {
		return
	}
	if present && sameValue(old, value) {
		return
	}
	p.rec[field] = value
	p.report.add(Decision{Stage: p.cur, Rule: rule, Field: field, From: old, To: value})
	p.logger.Debug("rule applied",
		logging.String("stage", string(p.cur)),
		logging.String("rule", rule),
		logging.String("field", field),
		logging.Any("from", old),
		logging.Any("to", value),
	)
}

// clear nulls field. Unlike set, an absent field is added as nil: the
// disclosure fields are always present in a classified record. Adding the
// key changes no value, so no decision is recorded for it.
func (p *pass) clear(rule, field string) {
	if _, present := p.rec[field]; !present {
		p.rec[field] = nil
		return
	}
	p.set(rule, field, nil)
}

// withheld records a write the period lock suppressed.
func (p *pass) withheld(rule, field string, value any) {
	old := p.rec[field]
	p.report.add(Decision{Stage: p.cur, Rule: rule, Field: field, From: old, To: value, Skipped: true})
	p.logger.Debug("rule skipped, period locked",
		logging.String("rule", rule),
		logging.String("locked_by", p.report.LockedBy),
		logging.Any("current", old),
		logging.Any("wanted", value),
	)
}

func pluralDecisions(n int) string {
	if n == 1 {
		return "1 decision"
	}
	return strconv.Itoa(n) + " decisions"
}
