// Copyright 2020 the Drone Authors. All rights reserved.
// Use of this source code is governed by the Blue Oak Model License
// that can be found in the LICENSE file.

package plugin

import (
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/drone/drone-test-report/report"
	"github.com/drone/drone-test-report/tags"
)

// execTag applies tag expressions to an existing report. Without
// PLUGIN_OUTPUT the input report is updated in place.
func execTag(args Args, logger *logrus.Entry) error {
	logger = logger.
		WithField("PLUGIN_INPUT", args.PluginInput).
		WithField("PLUGIN_OUTPUT", args.PluginOutput).
		WithField("PLUGIN_TAG_RULES_FILE", args.PluginTagRulesFile)

	if len(args.PluginInput) == 0 {
		errMsg := "Input report path should not be empty"
		logger.Error(errMsg)
		return errors.New(errMsg)
	}

	r, err := report.Load(args.PluginInput)
	if err != nil {
		logger.WithError(err).Error("Failed to load report")
		return err
	}

	raw := append([]string{}, args.PluginTagExpressions...)
	if args.PluginTagRulesFile != "" {
		rules, err := tags.LoadRulesFile(args.PluginTagRulesFile)
		if err != nil {
			logger.WithError(err).Error("Failed to load tag rules file")
			return err
		}
		raw = append(raw, rules...)
	}

	exprs := tags.ParseExpressions(raw)
	if skipped := len(raw) - len(exprs); skipped > 0 {
		logger.Debugf("Ignored %d invalid tag expression(s)", skipped)
	}
	tags.Apply(r, exprs)

	output := args.PluginOutput
	if output == "" {
		output = args.PluginInput
	}
	if err := report.Save(r, output); err != nil {
		logger.WithError(err).Errorf("Failed to write report %s", output)
		return err
	}

	logger.Infof("Applied %d tag expression(s) to %d test(s)", len(exprs), len(r.Tests))
	return nil
}
