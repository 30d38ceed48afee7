// Copyright 2020 the Drone Authors. All rights reserved.
// Use of this source code is governed by the Blue Oak Model License
// that can be found in the LICENSE file.

// Package tags mutates the tags of report entries with rules of the form
// PATTERN:OPERATION:TAGLIST.
package tags

import (
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/drone/drone-test-report/report"
)

// Operation is the mutation an expression applies.
type Operation int

const (
	Add Operation = iota
	Remove
	Update
)

var operations = map[string]Operation{
	"add":    Add,
	"remove": Remove,
	"update": Update,
}

func (o Operation) String() string {
	switch o {
	case Add:
		return "add"
	case Remove:
		return "remove"
	case Update:
		return "update"
	default:
		return "unknown"
	}
}

// Expression is a parsed tag rule.
type Expression struct {
	// Pattern is matched anywhere in the entry path.
	Pattern   *regexp.Regexp
	Operation Operation
	Tags      []string
}

// ParseExpressions parses raw rules in order. Rules that do not parse are
// left out of the result.
func ParseExpressions(raw []string) []Expression {
	exprs := make([]Expression, 0, len(raw))
	for _, s := range raw {
		expr, ok := parseExpression(s)
		if !ok {
			logrus.WithField("expression", s).Debug("Ignoring invalid tag expression")
			continue
		}
		exprs = append(exprs, expr)
	}
	return exprs
}

func parseExpression(s string) (Expression, bool) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) != 3 || parts[0] == "" {
		return Expression{}, false
	}

	op, ok := operations[parts[1]]
	if !ok {
		return Expression{}, false
	}

	var list []string
	for _, tag := range strings.Split(parts[2], ",") {
		if tag != "" {
			list = append(list, tag)
		}
	}
	if len(list) == 0 && op != Update {
		return Expression{}, false
	}

	pattern, err := regexp.Compile(parts[0])
	if err != nil {
		return Expression{}, false
	}

	return Expression{
		Pattern:   pattern,
		Operation: op,
		Tags:      []string(*report.NewTags(list...)),
	}, true
}

// Apply runs every expression against every entry of r. Expressions run in
// order and each one sees the changes made by the previous ones.
func Apply(r *report.Report, exprs []Expression) {
	for _, expr := range exprs {
		for i := range r.Tests {
			entry := &r.Tests[i]
			if expr.Pattern.MatchString(entry.Path) {
				expr.apply(entry)
			}
		}
	}
}

func (e Expression) apply(entry *report.Entry) {
	switch e.Operation {
	case Add:
		if entry.Tags == nil {
			entry.Tags = report.NewTags()
		}
		entry.Tags.Add(e.Tags...)
	case Remove:
		if entry.Tags != nil {
			entry.Tags.Remove(e.Tags...)
		}
	case Update:
		entry.Tags = report.NewTags(e.Tags...)
	}
}
