// Copyright 2020 the Drone Authors. All rights reserved.
// Use of this source code is governed by the Blue Oak Model License
// that can be found in the LICENSE file.

package plugin

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/drone/drone-test-report/model"
	"github.com/drone/drone-test-report/report"
)

const (
	successXML = `<testsuite name="S" tests="1" failures="0" errors="0" skipped="0" time="1.0" timestamp="T"><testcase name="t1" classname="C" time="1.0"/></testsuite>`
	failedXML  = `<testsuites><testsuite name="F"><testcase name="f1" time="0.1234"><failure message="expected 1"/></testcase><testcase name="f2"><error/></testcase></testsuite></testsuites>`
	skippedXML = `<testsuite name="K"><testcase name="k1"><skipped message="later"/></testcase></testsuite>`
)

func stubNow(t *testing.T) {
	t.Helper()
	now = func() time.Time {
		return time.Date(2025, 1, 6, 16, 34, 21, 123000000, time.FixedZone("CET", 3600))
	}
	t.Cleanup(func() { now = time.Now })
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func testLogger() *logrus.Entry {
	return logrus.WithField("test", true)
}

// testRunner structure to match your format
type testRunner struct {
	name  string
	input string
	want  []string
	err   error
}

// TestFindTestFiles tests the findTestFiles function with various cases
func TestFindTestFiles(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, filepath.Join(dir, "a", "TEST-1.xml"), successXML)
	b := writeFile(t, filepath.Join(dir, "b.XML"), successXML)
	writeFile(t, filepath.Join(dir, "notes.txt"), "not a report")
	c := writeFile(t, filepath.Join(dir, "z", "c.xml"), successXML)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "empty"), 0755))
	bracketDir := t.TempDir()
	d := writeFile(t, filepath.Join(bracketDir, "run[1]", "TEST-a.xml"), successXML)

	tests := []testRunner{
		{
			name:  "singleFile",
			input: b,
			want:  []string{b},
		},
		{
			name:  "directoryIsWalkedInLexicalOrder",
			input: dir,
			want:  []string{a, b, c},
		},
		{
			name:  "recursiveGlob",
			input: filepath.Join(dir, "**", "*.xml"),
			want:  []string{a, c},
		},
		{
			name:  "globWithoutMatches",
			input: filepath.Join(dir, "invalid", "*.xml"),
			want:  nil,
		},
		{
			name:  "emptyDirectory",
			input: filepath.Join(dir, "empty"),
			want:  nil,
		},
		{
			name:  "bracketedLiteralFile",
			input: d,
			want:  []string{d},
		},
		{
			name:  "bracketedLiteralDirectory",
			input: filepath.Join(bracketDir, "run[1]"),
			want:  []string{d},
		},
		{
			name:  "globStillExpandsWhenPathIsMissing",
			input: filepath.Join(bracketDir, "run*", "*.xml"),
			want:  []string{d},
		},
		{
			name:  "emptyPath",
			input: "",
			want:  nil,
			err:   errors.New("Test Report Path should not be empty"),
		},
		{
			name:  "missingPath",
			input: filepath.Join(dir, "missing.xml"),
			want:  nil,
			err:   model.ErrIO,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			files, err := findTestFiles(tc.input, testLogger())

			if diff := cmp.Diff(tc.want, files); diff != "" {
				t.Errorf("findTestFiles() mismatch (-want +got):\n%s", diff)
			}

			switch {
			case tc.err == nil && err != nil:
				t.Errorf("findTestFiles() expected no error, got: %v", err)
			case tc.err != nil && err == nil:
				t.Errorf("findTestFiles() expected error: %v, got none", tc.err)
			case tc.err != nil && !errors.Is(err, tc.err) && err.Error() != tc.err.Error():
				t.Errorf("findTestFiles() expected error: %v, got: %v", tc.err, err)
			}
		})
	}
}

func TestParseTestFile(t *testing.T) {
	dir := t.TempDir()
	parser, err := NewRegistry().Lookup("junit")
	require.NoError(t, err)

	suites, err := parseTestFile(writeFile(t, filepath.Join(dir, "ok.xml"), failedXML), parser, nil)
	require.NoError(t, err)
	require.Len(t, suites, 1)
	require.Equal(t, model.Failed{Message: "expected 1"}, suites[0].Tests[0].Status)

	_, err = parseTestFile(filepath.Join(dir, "missing.xml"), parser, nil)
	require.ErrorIs(t, err, model.ErrIO)
	require.ErrorIs(t, err, fs.ErrNotExist)

	_, err = parseTestFile(writeFile(t, filepath.Join(dir, "bad.xml"), "<testsuite>"), parser, nil)
	require.ErrorIs(t, err, model.ErrSyntax)
}

func TestParseTestFile_StreamParser(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, filepath.Join(dir, "any.xml"), "ignored")

	suites, err := parseTestFile(file, stubParser{}, nil)
	require.NoError(t, err)
	require.Equal(t, []model.Suite{{Name: "stub"}}, suites)

	_, err = parseTestFile(filepath.Join(dir, "missing.xml"), stubParser{}, nil)
	require.ErrorIs(t, err, model.ErrIO)
}

func TestExec_Parse(t *testing.T) {
	stubNow(t)
	dir := t.TempDir()
	output := filepath.Join(dir, "out", "report.json")

	err := Exec(context.Background(), Args{
		PluginReportType:     "junit",
		PluginTestReportPath: writeFile(t, filepath.Join(dir, "TEST-S.xml"), successXML),
		PluginOutput:         output,
	})
	require.NoError(t, err)

	require.JSONEq(t, `{
		"version": 1,
		"date": "2025-01-06T15:34:21.123Z",
		"tests": [
			{"lastExecutionType": "SUCCESS", "name": "t1", "path": "S", "durationMs": 1000}
		]
	}`, readFile(t, output))
}

func TestExec_ParseDefaultsToParseCommandAndOutput(t *testing.T) {
	stubNow(t)
	dir := t.TempDir()
	t.Chdir(dir)

	err := Exec(context.Background(), Args{
		PluginReportType:     "junit",
		PluginTestReportPath: writeFile(t, filepath.Join(dir, "TEST-S.xml"), successXML),
	})
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(dir, DefaultOutput))
}

func TestExec_ParseWithTags(t *testing.T) {
	stubNow(t)
	dir := t.TempDir()
	output := filepath.Join(dir, "report.json")

	err := Exec(context.Background(), Args{
		PluginCommand:        CommandParse,
		PluginReportType:     "junit",
		PluginTestReportPath: writeFile(t, filepath.Join(dir, "TEST-F.xml"), failedXML),
		PluginOutput:         output,
		PluginTags:           []string{"nightly", "", "linux", "nightly"},
	})
	require.NoError(t, err)

	require.JSONEq(t, `{
		"version": 1,
		"date": "2025-01-06T15:34:21.123Z",
		"tests": [
			{"lastExecutionType": "FAILURE", "name": "f1", "path": "F", "durationMs": 123, "message": "expected 1", "tags": ["nightly", "linux"]},
			{"lastExecutionType": "ERROR", "name": "f2", "path": "F", "durationMs": 0, "message": "", "tags": ["nightly", "linux"]}
		]
	}`, readFile(t, output))
}

func TestExec_ParseBatch(t *testing.T) {
	stubNow(t)
	dir := t.TempDir()
	input := filepath.Join(dir, "results")
	writeFile(t, filepath.Join(input, "1-success.xml"), successXML)
	writeFile(t, filepath.Join(input, "2-broken.xml"), "<testsuite><testcase>")
	writeFile(t, filepath.Join(input, "3-failed.xml"), failedXML)
	writeFile(t, filepath.Join(input, "4-unknown-root.xml"), `<test-run/>`)
	writeFile(t, filepath.Join(input, "5-skipped.xml"), skippedXML)

	var reports []*report.Report
	for _, workers := range []int{0, 1, 4} {
		output := filepath.Join(dir, "report.json")
		err := Exec(context.Background(), Args{
			PluginReportType:     "junit",
			PluginTestReportPath: input,
			PluginOutput:         output,
			PluginWorkers:        workers,
		})
		require.NoError(t, err)

		r, err := report.Load(output)
		require.NoError(t, err)
		reports = append(reports, r)
	}

	var names []string
	for _, e := range reports[0].Tests {
		names = append(names, e.Path+"/"+e.Name)
	}
	if diff := cmp.Diff([]string{"S/t1", "F/f1", "F/f2", "K/k1"}, names); diff != "" {
		t.Errorf("batch order mismatch (-want +got):\n%s", diff)
	}
	for _, r := range reports[1:] {
		if diff := cmp.Diff(reports[0], r); diff != "" {
			t.Errorf("parallel batch differs from sequential (-want +got):\n%s", diff)
		}
	}
}

func TestExec_ParseUnknownReportType(t *testing.T) {
	dir := t.TempDir()
	output := filepath.Join(dir, "report.json")

	err := Exec(context.Background(), Args{
		PluginReportType:     "nunit",
		PluginTestReportPath: filepath.Join(dir, "missing.xml"),
		PluginOutput:         output,
	})
	require.ErrorIs(t, err, ErrUnknownReportType)
	require.NoFileExists(t, output)
}

func TestExec_UnknownCommand(t *testing.T) {
	err := Exec(context.Background(), Args{PluginCommand: "publish"})
	require.ErrorIs(t, err, ErrUnknownCommand)
}

func TestExec_ParseMissingInput(t *testing.T) {
	dir := t.TempDir()
	err := Exec(context.Background(), Args{
		PluginReportType:     "junit",
		PluginTestReportPath: filepath.Join(dir, "missing.xml"),
		PluginOutput:         filepath.Join(dir, "report.json"),
	})
	require.ErrorIs(t, err, model.ErrIO)
}

func TestExec_ParseNoResults(t *testing.T) {
	stubNow(t)
	dir := t.TempDir()
	output := filepath.Join(dir, "report.json")
	args := Args{
		PluginReportType:     "junit",
		PluginTestReportPath: filepath.Join(dir, "*.xml"),
		PluginOutput:         output,
	}

	require.NoError(t, Exec(context.Background(), args))
	require.JSONEq(t, `{"version": 1, "date": "2025-01-06T15:34:21.123Z", "tests": []}`, readFile(t, output))

	args.PluginFailIfNoResults = true
	require.Error(t, Exec(context.Background(), args))
}

func TestExec_ParseFailedTestsFailBuild(t *testing.T) {
	dir := t.TempDir()
	output := filepath.Join(dir, "report.json")
	args := Args{
		PluginReportType:           "junit",
		PluginTestReportPath:       writeFile(t, filepath.Join(dir, "TEST-F.xml"), failedXML),
		PluginOutput:               output,
		PluginFailedTestsFailBuild: true,
	}

	err := Exec(context.Background(), args)
	require.EqualError(t, err, "2 test(s) failed, failing the build as PLUGIN_FAILED_TESTS_FAIL_BUILD is set to true")
	require.FileExists(t, output)

	args.PluginTestReportPath = writeFile(t, filepath.Join(dir, "TEST-K.xml"), skippedXML)
	require.NoError(t, Exec(context.Background(), args))
}

func TestExec_ParseCancelled(t *testing.T) {
	dir := t.TempDir()
	output := filepath.Join(dir, "report.json")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Exec(ctx, Args{
		PluginReportType:     "junit",
		PluginTestReportPath: writeFile(t, filepath.Join(dir, "TEST-S.xml"), successXML),
		PluginOutput:         output,
	})
	require.ErrorIs(t, err, context.Canceled)
	require.NoFileExists(t, output)
}

const stylesheetXSL = `<?xml version="1.0"?>
<xsl:stylesheet version="1.0" xmlns:xsl="http://www.w3.org/1999/XSL/Transform">
  <xsl:output method="xml" indent="yes"/>
  <xsl:template match="/results">
    <testsuite name="{@suite}">
      <xsl:for-each select="result">
        <testcase name="{@name}" time="{@seconds}">
          <xsl:if test="@outcome = 'fail'">
            <failure message="{@reason}"/>
          </xsl:if>
        </testcase>
      </xsl:for-each>
    </testsuite>
  </xsl:template>
</xsl:stylesheet>`

func TestExec_ParseWithXSLT(t *testing.T) {
	stubNow(t)
	dir := t.TempDir()
	output := filepath.Join(dir, "report.json")
	input := writeFile(t, filepath.Join(dir, "results.xml"), `<results suite="Custom">
		<result name="a" seconds="0.25" outcome="pass"/>
		<result name="b" seconds="2" outcome="fail" reason="nope"/>
	</results>`)

	err := Exec(context.Background(), Args{
		PluginReportType:     "junit",
		PluginTestReportPath: input,
		PluginOutput:         output,
		PluginXSLTPath:       writeFile(t, filepath.Join(dir, "convert.xsl"), stylesheetXSL),
	})
	require.NoError(t, err)

	require.JSONEq(t, `{
		"version": 1,
		"date": "2025-01-06T15:34:21.123Z",
		"tests": [
			{"lastExecutionType": "SUCCESS", "name": "a", "path": "Custom", "durationMs": 250},
			{"lastExecutionType": "FAILURE", "name": "b", "path": "Custom", "durationMs": 2000, "message": "nope"}
		]
	}`, readFile(t, output))

	// the input document is left untouched
	require.Contains(t, readFile(t, input), `<results suite="Custom">`)
}

func TestExec_ParseWithMissingXSLT(t *testing.T) {
	dir := t.TempDir()
	err := Exec(context.Background(), Args{
		PluginReportType:     "junit",
		PluginTestReportPath: writeFile(t, filepath.Join(dir, "TEST-S.xml"), successXML),
		PluginOutput:         filepath.Join(dir, "report.json"),
		PluginXSLTPath:       filepath.Join(dir, "missing.xsl"),
	})
	require.ErrorIs(t, err, model.ErrIO)
}

func TestExpressionsDecode(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Expressions
	}{
		{name: "single", input: `S:add:a,b`, want: Expressions{"S:add:a,b"}},
		{name: "quoted", input: `"S:add:a,b" 'com\.example:update:'`, want: Expressions{"S:add:a,b", `com\.example:update:`}},
		{name: "newlines", input: "S:add:a\nS:remove:b", want: Expressions{"S:add:a", "S:remove:b"}},
		{name: "quotedSpaces", input: `"My Suite:add:slow tests"`, want: Expressions{"My Suite:add:slow tests"}},
		{name: "singleQuotedBackslash", input: `'^com\.example:add:x'`, want: Expressions{`^com\.example:add:x`}},
		{name: "unquotedBackslashIsRemoved", input: `com\.example:add:x`, want: Expressions{`com.example:add:x`}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got Expressions
			require.NoError(t, got.Decode(tc.input))
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("Decode() mismatch (-want +got):\n%s", diff)
			}
		})
	}

	var got Expressions
	require.Error(t, got.Decode(`"unterminated`))
}

func TestArgsFromEnvironment(t *testing.T) {
	t.Setenv("PLUGIN_COMMAND", "tag")
	t.Setenv("PLUGIN_INPUT", "report.json")
	t.Setenv("PLUGIN_TAGS", "nightly,linux")
	t.Setenv("PLUGIN_TAG_EXPRESSIONS", `"S:add:tag1,tag2" "S:remove:tag1"`)
	t.Setenv("PLUGIN_FAILED_TESTS_FAIL_BUILD", "true")

	var args Args
	require.NoError(t, envconfig.Process("", &args))

	want := Args{
		PluginCommand:              "tag",
		PluginInput:                "report.json",
		PluginTags:                 []string{"nightly", "linux"},
		PluginTagExpressions:       Expressions{"S:add:tag1,tag2", "S:remove:tag1"},
		PluginWorkers:              1,
		PluginFailedTestsFailBuild: true,
	}
	if diff := cmp.Diff(want, args); diff != "" {
		t.Errorf("envconfig.Process() mismatch (-want +got):\n%s", diff)
	}
}
