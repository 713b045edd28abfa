// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package policy

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML policy file and overlays it on the built-in definition.
// Any table present in the file replaces the built-in table of the same name;
// tables the file does not mention keep their built-in contents.
func Load(path string) (*Tables, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("error reading policy file: %w", err)
	}
	def, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("error parsing policy file %s: %w", path, err)
	}
	return Compile(def)
}

// Parse decodes YAML policy data on top of DefaultDefinition.
func Parse(data []byte) (Definition, error) {
	var overlay Definition
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return Definition{}, err
	}
	return Merge(DefaultDefinition(), overlay), nil
}

// Merge returns base with every non-empty part of overlay applied.
func Merge(base, overlay Definition) Definition {
	for name, words := range overlay.Keywords {
		base.Keywords[name] = words
	}
	for name, exprs := range overlay.Patterns {
		base.Patterns[name] = exprs
	}
	if overlay.ForceNullFields != nil {
		base.ForceNullFields = overlay.ForceNullFields
	}
	if overlay.SecurityLevels != nil {
		base.SecurityLevels = overlay.SecurityLevels
	}
	if overlay.ControlledSecurityLevels != nil {
		base.ControlledSecurityLevels = overlay.ControlledSecurityLevels
	}
	if overlay.SecretPeriods != nil {
		base.SecretPeriods = overlay.SecretPeriods
	}
	if overlay.PeriodOrder != nil {
		base.PeriodOrder = overlay.PeriodOrder
	}
	if overlay.CodeCutoffYear != 0 {
		base.CodeCutoffYear = overlay.CodeCutoffYear
	}
	if overlay.CodesNew != nil {
		base.CodesNew = overlay.CodesNew
	}
	if overlay.CodesOld != nil {
		base.CodesOld = overlay.CodesOld
	}
	return base
}
