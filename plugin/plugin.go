// Copyright 2020 the Drone Authors. All rights reserved.
// Use of this source code is governed by the Blue Oak Model License
// that can be found in the LICENSE file.

package plugin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kballard/go-shellquote"
	"github.com/sirupsen/logrus"
)

const (
	CommandParse = "parse"
	CommandTag   = "tag"

	// DefaultOutput is written when no output path is configured for parse.
	DefaultOutput = "output.json"

	dateLayout = "2006-01-02T15:04:05.000Z07:00"
)

var (
	ErrUnknownCommand    = errors.New("unknown command")
	ErrUnknownReportType = errors.New("unknown report type")
)

// now stamps new reports.
var now = time.Now

// Args provides plugin execution arguments.
type Args struct {
	// Level defines the plugin log level.
	Level                      string      `envconfig:"PLUGIN_LOG_LEVEL"`
	PluginCommand              string      `envconfig:"PLUGIN_COMMAND"`
	PluginReportType           string      `envconfig:"PLUGIN_REPORT_TYPE"`
	PluginTestReportPath       string      `envconfig:"PLUGIN_TEST_REPORT_PATH"`
	PluginInput                string      `envconfig:"PLUGIN_INPUT"`
	PluginOutput               string      `envconfig:"PLUGIN_OUTPUT"`
	PluginTags                 []string    `envconfig:"PLUGIN_TAGS"`
	PluginTagExpressions       Expressions `envconfig:"PLUGIN_TAG_EXPRESSIONS"`
	PluginTagRulesFile         string      `envconfig:"PLUGIN_TAG_RULES_FILE"`
	PluginXSLTPath             string      `envconfig:"PLUGIN_XSLT_PATH"`
	PluginWorkers              int         `envconfig:"PLUGIN_WORKERS" default:"1"`
	PluginFailIfNoResults      bool        `envconfig:"PLUGIN_FAIL_IF_NO_RESULTS"`
	PluginFailedTestsFailBuild bool        `envconfig:"PLUGIN_FAILED_TESTS_FAIL_BUILD"`
}

// Expressions is a list of tag expressions read from a single variable.
// Tag lists contain commas, so the value is split with shell quoting rules.
// An unquoted backslash escapes the next character and is removed, so
// patterns containing backslashes must be single-quoted:
//
//	PLUGIN_TAG_EXPRESSIONS="'^com\.example:add:backend,nightly' Flaky:update:"
type Expressions []string

// Decode implements envconfig.Decoder.
func (e *Expressions) Decode(value string) error {
	words, err := shellquote.Split(value)
	if err != nil {
		return fmt.Errorf("split tag expressions: %w", err)
	}
	*e = words
	return nil
}

// Exec executes the plugin.
func Exec(ctx context.Context, args Args) error {
	command := args.PluginCommand
	if command == "" {
		command = CommandParse
	}

	logger := logrus.WithField("PLUGIN_COMMAND", command)

	switch command {
	case CommandParse:
		return execParse(ctx, args, logger)
	case CommandTag:
		return execTag(args, logger)
	default:
		logger.Error("Unsupported command")
		return fmt.Errorf("%w: %q, supported commands: %s, %s", ErrUnknownCommand, command, CommandParse, CommandTag)
	}
}
