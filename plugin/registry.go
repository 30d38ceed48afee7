// Copyright 2020 the Drone Authors. All rights reserved.
// Use of this source code is governed by the Blue Oak Model License
// that can be found in the LICENSE file.

package plugin

import (
	"fmt"
	"sort"
	"strings"

	"github.com/drone/drone-test-report/junit"
	"github.com/drone/drone-test-report/model"
)

// Registry maps report type discriminators to their parsers.
type Registry struct {
	parsers map[string]model.Parser
}

// NewRegistry creates a registry with all built-in parsers.
func NewRegistry() *Registry {
	r := &Registry{
		parsers: make(map[string]model.Parser),
	}
	r.Register("junit", junit.New())
	return r
}

// Register adds or replaces the parser for reportType.
func (r *Registry) Register(reportType string, parser model.Parser) {
	r.parsers[reportType] = parser
}

// Lookup returns the parser for reportType.
func (r *Registry) Lookup(reportType string) (model.Parser, error) {
	parser, ok := r.parsers[reportType]
	if !ok {
		return nil, fmt.Errorf("%w: %q, supported types: %s", ErrUnknownReportType, reportType, strings.Join(r.Types(), ", "))
	}
	return parser, nil
}

// Types returns the registered discriminators in sorted order.
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.parsers))
	for t := range r.parsers {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
