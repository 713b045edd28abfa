// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package rules

import (
	"archivist/internal/logging"
	"archivist/internal/metadata"
	"archivist/internal/policy"
)

// Supplementary rule names, in execution order.
const (
	RuleBriefing              = "briefing"
	RuleInternalTraining      = "internal_training"
	RuleAddressChange         = "address_change"
	RuleMaintenance           = "maintenance"
	RuleGenericNotice         = "generic_notice"
	RuleInternalRegulation    = "internal_regulation"
	RuleCriticismNotice       = "criticism_notice"
	RuleBidResult             = "bid_result"
	RulePartyBranchAdjustment = "party_branch_adjustment"
	RuleBusinessGuard         = "business_guard"
	RuleFileNumberEscalation  = "file_number_escalation"
)

// chainState is threaded through the supplementary rules of one invocation.
// Once periodLocked is set no later rule may write the retention period.
type chainState struct {
	periodLocked bool
	lockedBy     string
}

// chain is the view a supplementary rule evaluates.
type chain struct {
	*pass
	title   string
	content string // title + " " + raw text
	state   chainState
}

type supplementaryRule struct {
	name  string
	apply func(c *chain)
}

// supplementaryRules is order-sensitive: the briefing rule must run first
// because it locks the period, and file-number escalation must run last so it
// only tops up what the others left.
var supplementaryRules = []supplementaryRule{
	{RuleBriefing, briefingRule},
	{RuleInternalTraining, internalTrainingRule},
	{RuleAddressChange, addressChangeRule},
	{RuleMaintenance, maintenanceRule},
	{RuleGenericNotice, genericNoticeRule},
	{RuleInternalRegulation, internalRegulationRule},
	{RuleCriticismNotice, criticismNoticeRule},
	{RuleBidResult, bidResultRule},
	{RulePartyBranchAdjustment, partyBranchAdjustmentRule},
	{RuleBusinessGuard, businessGuardRule},
	{RuleFileNumberEscalation, fileNumberEscalationRule},
}

// RuleNames returns the supplementary rule names in execution order.
func RuleNames() []string {
	names := make([]string, len(supplementaryRules))
	for i, r := range supplementaryRules {
		names[i] = r.name
	}
	return names
}

func (p *pass) supplementary() {
	state := p.runChain(chainState{}, supplementaryRules)
	p.report.PeriodLocked = state.periodLocked
	p.report.LockedBy = state.lockedBy
}

// runChain applies rules in order starting from state and returns the final
// state.
func (p *pass) runChain(state chainState, rules []supplementaryRule) chainState {
	title := p.rec.Trimmed(metadata.FieldTitle)
	c := &chain{
		pass:    p,
		title:   title,
		content: title + " " + p.text,
		state:   state,
	}
	p.report.LockedBy = state.lockedBy
	for _, r := range rules {
		r.apply(c)
	}
	return c.state
}

func (c *chain) kw(name policy.KeywordList) policy.KeywordSet {
	return c.tables.Keywords(name)
}

func (c *chain) period() string {
	return c.rec.Trimmed(metadata.FieldRetentionPeriod)
}

func (c *chain) hasFileNumber() bool {
	return !c.rec.IsBlank(metadata.FieldFileNumber)
}

// lockPeriod writes period and sets the lock.
func (c *chain) lockPeriod(rule, period string) {
	c.set(rule, metadata.FieldRetentionPeriod, period)
	c.state.periodLocked = true
	c.state.lockedBy = rule
	c.report.LockedBy = rule
}

// setPeriod writes period unless the lock is set.
func (c *chain) setPeriod(rule, period string) {
	if c.state.periodLocked {
		c.withheld(rule, metadata.FieldRetentionPeriod, period)
		return
	}
	c.set(rule, metadata.FieldRetentionPeriod, period)
}

// raisePeriod writes period only when the current period ranks below it.
func (c *chain) raisePeriod(rule, period string) {
	if !c.tables.PeriodBelow(c.period(), period) {
		return
	}
	c.setPeriod(rule, period)
}

// setCategory writes the category regardless of the lock and re-resolves
// the classification code.
func (c *chain) setCategory(rule, category string) {
	c.set(rule, metadata.FieldCategoryName, category)
	c.resolveCode(rule)
}

func briefingRule(c *chain) {
	if !c.kw(policy.BriefingMarker).In(c.title) {
		return
	}
	c.lockPeriod(RuleBriefing, metadata.Period10Years)

	category := metadata.CategoryGeneral
	switch {
	case c.kw(policy.BriefingParty).In(c.content):
		category = metadata.CategoryParty
	case c.kw(policy.BriefingBusiness).In(c.content):
		category = metadata.CategoryBusiness
	}
	c.setCategory(RuleBriefing, category)
}

func internalTrainingRule(c *chain) {
	if !c.kw(policy.Training).In(c.title) ||
		c.kw(policy.TrainingManagement).In(c.title) ||
		c.kw(policy.PartyTraining).In(c.content) {
		return
	}
	c.set(RuleInternalTraining, metadata.FieldCategoryName, metadata.CategoryBusiness)
	c.raisePeriod(RuleInternalTraining, metadata.Period30Years)
	c.resolveCode(RuleInternalTraining)
}

func addressChangeRule(c *chain) {
	if c.kw(policy.AddressChange).In(c.content) {
		c.setPeriod(RuleAddressChange, metadata.Period10Years)
	}
}

func maintenanceRule(c *chain) {
	if c.kw(policy.Maintenance).In(c.content) && c.kw(policy.InternalDocTypes).In(c.title) {
		c.setPeriod(RuleMaintenance, metadata.Period10Years)
	}
}

func genericNoticeRule(c *chain) {
	if !c.kw(policy.NoticeMarker).In(c.title) || c.hasFileNumber() {
		return
	}
	if c.kw(policy.ImportantNotice).In(c.content) {
		return
	}
	c.setPeriod(RuleGenericNotice, metadata.Period10Years)
}

// internalRegulationRule changes the category even when the period is locked.
func internalRegulationRule(c *chain) {
	if !c.kw(policy.Regulation).In(c.title) || !c.kw(policy.InternalOrganization).In(c.content) {
		return
	}
	c.set(RuleInternalRegulation, metadata.FieldCategoryName, metadata.CategoryGeneral)
	c.setPeriod(RuleInternalRegulation, metadata.Period30Years)
	c.resolveCode(RuleInternalRegulation)
}

func criticismNoticeRule(c *chain) {
	if c.kw(policy.CriticismNotice).In(c.title) {
		c.setPeriod(RuleCriticismNotice, metadata.Period30Years)
	}
}

func bidResultRule(c *chain) {
	if c.kw(policy.BidMarker).In(c.title) && c.kw(policy.BidResult).In(c.title) {
		c.setPeriod(RuleBidResult, metadata.Period30Years)
	}
}

// partyBranchAdjustmentRule never touches election results; those are
// retained permanently.
func partyBranchAdjustmentRule(c *chain) {
	if !c.kw(policy.PartyBranch).In(c.content) {
		return
	}
	if c.kw(policy.ElectionResult).In(c.content) {
		c.logger.Debug("party branch election result, rule not applied",
			logging.String("rule", RulePartyBranchAdjustment))
		return
	}
	if !c.kw(policy.PartyBranchAdjustment).In(c.content) ||
		!c.kw(policy.PartyBranchTarget).In(c.content) ||
		!c.kw(policy.RequestMarker).In(c.content) {
		return
	}
	c.set(RulePartyBranchAdjustment, metadata.FieldCategoryName, metadata.CategoryParty)
	c.setPeriod(RulePartyBranchAdjustment, metadata.Period30Years)
	c.resolveCode(RulePartyBranchAdjustment)
}

func businessGuardRule(c *chain) {
	if c.rec.Trimmed(metadata.FieldCategoryName) != metadata.CategoryBusiness {
		return
	}
	if c.kw(policy.BusinessLegitimate).In(c.content) || !c.kw(policy.GeneralDocTypes).In(c.title) {
		return
	}
	c.setCategory(RuleBusinessGuard, metadata.CategoryGeneral)
}

func fileNumberEscalationRule(c *chain) {
	if c.hasFileNumber() {
		c.raisePeriod(RuleFileNumberEscalation, metadata.Period30Years)
	}
}
