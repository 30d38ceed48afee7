// Copyright 2020 the Drone Authors. All rights reserved.
// Use of this source code is governed by the Blue Oak Model License
// that can be found in the LICENSE file.

package tags

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/drone/drone-test-report/model"
)

// RulesFile is a YAML document listing tag expressions:
//
//	rules:
//	  - "com\\.example\\..*:add:backend"
//	  - "Flaky:update:"
type RulesFile struct {
	Rules []string `yaml:"rules"`
}

// LoadRulesFile reads the expressions listed in the YAML file at path.
func LoadRulesFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read rules file: %w", model.ErrIO, err)
	}

	var f RulesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: parse rules file: %w", model.ErrSyntax, err)
	}
	return f.Rules, nil
}
