// Copyright 2020 the Drone Authors. All rights reserved.
// Use of this source code is governed by the Blue Oak Model License
// that can be found in the LICENSE file.

package plugin

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/drone/drone-test-report/model"
	"github.com/drone/drone-test-report/report"
)

// execParse converts the test report files found at PLUGIN_TEST_REPORT_PATH
// into a single report document.
func execParse(ctx context.Context, args Args, logger *logrus.Entry) error {
	logger = logger.
		WithField("PLUGIN_REPORT_TYPE", args.PluginReportType).
		WithField("PLUGIN_TEST_REPORT_PATH", args.PluginTestReportPath).
		WithField("PLUGIN_FAIL_IF_NO_RESULTS", args.PluginFailIfNoResults).
		WithField("PLUGIN_FAILED_TESTS_FAIL_BUILD", args.PluginFailedTestsFailBuild)

	logger.Info("Starting plugin execution")

	// Resolve the parser before touching any file
	parser, err := NewRegistry().Lookup(args.PluginReportType)
	if err != nil {
		logger.WithError(err).Error("Unsupported report type")
		return err
	}

	var transform *stylesheet
	if args.PluginXSLTPath != "" {
		transform, err = loadStylesheet(args.PluginXSLTPath)
		if err != nil {
			logger.WithError(err).Error("Failed to load XSLT stylesheet")
			return err
		}
		defer transform.Close()
	}

	files, err := findTestFiles(args.PluginTestReportPath, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to find test files")
		return fmt.Errorf("failed to find test files: %w", err)
	}

	logger.Infof("Found %d test report file(s)", len(files))

	if len(files) == 0 {
		if args.PluginFailIfNoResults {
			errMsg := "no test results found, failing the build as PLUGIN_FAIL_IF_NO_RESULTS is set to true"
			logger.Error(errMsg)
			return errors.New(errMsg)
		}
		logger.Warn("No test results found, but failing the build is not configured.")
	}

	parse := func(file string) ([]model.Suite, error) {
		return parseTestFile(file, parser, transform)
	}
	results, err := parseTestFiles(ctx, files, parse, args.PluginWorkers, logger)
	if err != nil {
		return err
	}

	entries := []report.Entry{}
	for _, suites := range results {
		entries = append(entries, report.Build(suites, args.PluginTags)...)
	}
	r := report.New(now().UTC().Format(dateLayout), entries)

	output := args.PluginOutput
	if output == "" {
		output = DefaultOutput
	}
	if err := report.Save(r, output); err != nil {
		logger.WithError(err).Errorf("Failed to write report %s", output)
		return err
	}

	counts := r.Count()
	logger.
		WithField("success", counts[report.Success]).
		WithField("skipped", counts[report.Skipped]).
		WithField("failure", counts[report.Failure]).
		WithField("error", counts[report.Error]).
		Infof("Wrote %d test(s) to %s", len(r.Tests), output)

	if failed := counts[report.Failure] + counts[report.Error]; failed > 0 && args.PluginFailedTestsFailBuild {
		errMsg := fmt.Sprintf("%d test(s) failed, failing the build as PLUGIN_FAILED_TESTS_FAIL_BUILD is set to true", failed)
		logger.Error(errMsg)
		return errors.New(errMsg)
	}

	logger.Info("Plugin execution completed successfully")
	return nil
}

// findTestFiles locates the test result files for reportPath, which is a
// file, a directory searched recursively for *.xml files, or a glob
// pattern supporting **.
func findTestFiles(reportPath string, logger *logrus.Entry) ([]string, error) {

	if len(reportPath) == 0 {
		errMsg := "Test Report Path should not be empty"
		return nil, errors.New(errMsg)
	}

	// existing paths win over glob expansion, so run[1]/ is read literally
	info, err := os.Stat(reportPath)
	if errors.Is(err, fs.ErrNotExist) && strings.ContainsAny(reportPath, "*?[{") {
		files, err := doublestar.FilepathGlob(reportPath, doublestar.WithFilesOnly())
		if err != nil || len(files) == 0 {
			return nil, err
		}
		sort.Strings(files)
		return files, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrIO, err)
	}
	if !info.IsDir() {
		return []string{reportPath}, nil
	}

	var files []string
	err = filepath.WalkDir(reportPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == reportPath {
				return err
			}
			logger.WithError(err).Warnf("Skipping unreadable path %s", path)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && strings.EqualFold(filepath.Ext(path), ".xml") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrIO, err)
	}
	return files, nil
}

// fileParser is implemented by parsers that read report files directly.
type fileParser interface {
	ParseFile(path string) ([]model.Suite, error)
}

// parseTestFile reads a single report, optionally transforms it and parses
// it into suites.
func parseTestFile(file string, parser model.Parser, transform *stylesheet) ([]model.Suite, error) {
	if fp, ok := parser.(fileParser); ok && transform == nil {
		return fp.ParseFile(file)
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrIO, err)
	}

	if transform != nil {
		data, err = transform.Transform(data)
		if err != nil {
			return nil, err
		}
	}

	return parser.Parse(bytes.NewReader(data))
}

// parseTestFiles parses files on up to workers goroutines. The result for
// files[i] is stored at index i; a file that fails to parse is logged and
// leaves its slot empty.
func parseTestFiles(ctx context.Context, files []string, parse func(string) ([]model.Suite, error), workers int, logger *logrus.Entry) ([][]model.Suite, error) {
	results := make([][]model.Suite, len(files))

	var g errgroup.Group
	g.SetLimit(max(workers, 1))

	for i, file := range files {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			suites, err := parse(file)
			if err != nil {
				logger.WithError(err).Errorf("Failed to process test result file %s", file)
				return nil
			}
			logger.Debugf("Parsed %d suite(s) from %s", len(suites), file)
			results[i] = suites
			return nil
		})
	}
	// workers log their own failures and never return an error
	g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
