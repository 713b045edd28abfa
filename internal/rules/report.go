// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package rules

import (
	"archivist/internal/metadata"
)

// Stage identifies a pipeline stage.
type Stage string

const (
	StageSanitize      Stage = "sanitize"
	StageSupplementary Stage = "supplementary"
	StageDisclosure    Stage = "disclosure"
	StageCode          Stage = "code"
	StageTitle         Stage = "title"
)

// Decision records one correction made, or withheld, by a rule.
type Decision struct {
	Stage Stage  `json:"stage" yaml:"stage"`
	Rule  string `json:"rule" yaml:"rule"`
	Field string `json:"field" yaml:"field"`
	From  any    `json:"from" yaml:"from"`
	To    any    `json:"to" yaml:"to"`
	// Skipped is set when the period lock suppressed the write.
	Skipped bool `json:"skipped,omitempty" yaml:"skipped,omitempty"`
}

// Report describes what one Apply call changed.
type Report struct {
	Decisions []Decision `json:"decisions" yaml:"decisions"`
	// PeriodLocked reports whether the period lock was set during the call.
	PeriodLocked bool `json:"period_locked" yaml:"period_locked"`
	// LockedBy names the rule that set the lock.
	LockedBy string `json:"locked_by,omitempty" yaml:"locked_by,omitempty"`
	// Code is the outcome of the final classification code pass.
	Code Resolution `json:"code_resolution" yaml:"code_resolution"`
}

// Applied returns the decisions that changed the record.
func (r *Report) Applied() []Decision {
	if r == nil {
		return nil
	}
	var out []Decision
	for _, d := range r.Decisions {
		if !d.Skipped {
			out = append(out, d)
		}
	}
	return out
}

// Skipped returns the decisions withheld by the period lock.
func (r *Report) Skipped() []Decision {
	if r == nil {
		return nil
	}
	var out []Decision
	for _, d := range r.Decisions {
		if d.Skipped {
			out = append(out, d)
		}
	}
	return out
}

// Fired reports whether rule produced any decision, applied or skipped.
func (r *Report) Fired(rule string) bool {
	if r == nil {
		return false
	}
	for _, d := range r.Decisions {
		if d.Rule == rule {
			return true
		}
	}
	return false
}

// ChangedFields returns the fields whose value was changed, in first-change order.
func (r *Report) ChangedFields() []string {
	seen := make(map[string]bool)
	var out []string
	for _, d := range r.Applied() {
		if !seen[d.Field] {
			seen[d.Field] = true
			out = append(out, d.Field)
		}
	}
	return out
}

func (r *Report) add(d Decision) {
	r.Decisions = append(r.Decisions, d)
}

// sameValue compares two record values by their rendered form, treating nil
// and absent alike.
func sameValue(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return metadata.ValueString(a) == metadata.ValueString(b)
}
