// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package rules

import (
	"strings"

	"archivist/internal/metadata"
)

// sanitize enforces the field-level constraints that do not depend on
// document content.
func (p *pass) sanitize() {
	for _, field := range p.tables.ForceNullFields() {
		if p.rec.Has(field) {
			p.set("force_null", field, nil)
		}
	}

	if p.rec.IsBlank(metadata.FieldFilingUnitName) && !p.rec.IsBlank(metadata.FieldResponsibleParty) {
		p.set("filing_unit_mirror", metadata.FieldFilingUnitName, p.rec[metadata.FieldResponsibleParty])
	}

	// An invalid level takes its secrecy period with it.
	if level, ok := p.enumValue(metadata.FieldSecurityLevel); ok {
		if p.tables.ValidSecurityLevel(level) {
			p.set("security_level", metadata.FieldSecurityLevel, level)
		} else {
			p.set("security_level", metadata.FieldSecurityLevel, nil)
			p.set("security_level", metadata.FieldSecurityPeriod, nil)
		}
	}

	if period, ok := p.enumValue(metadata.FieldSecurityPeriod); ok {
		if p.tables.ValidSecretPeriod(period) {
			p.set("security_period", metadata.FieldSecurityPeriod, period)
		} else {
			p.set("security_period", metadata.FieldSecurityPeriod, nil)
		}
	}
}

// enumValue returns the trimmed value of an enum field that carries any
// non-nil value, including ones that are blank or the literal "null".
func (p *pass) enumValue(field string) (string, bool) {
	v, ok := p.rec[field]
	if !ok || v == nil {
		return "", false
	}
	return strings.TrimSpace(metadata.ValueString(v)), true
}
