// Copyright 2020 the Drone Authors. All rights reserved.
// Use of this source code is governed by the Blue Oak Model License
// that can be found in the LICENSE file.

package junit

import (
	"encoding/xml"
)

// TestSuites is the optional wrapper around a list of suites.
type TestSuites struct {
	XMLName    xml.Name    `xml:"testsuites"`
	TestSuites []TestSuite `xml:"testsuite"`
}

// TestSuite is a single <testsuite> element. Every attribute is optional.
type TestSuite struct {
	XMLName   xml.Name   `xml:"testsuite"`
	Name      string     `xml:"name,attr"`
	Tests     int        `xml:"tests,attr"`
	Failures  int        `xml:"failures,attr"`
	Errors    int        `xml:"errors,attr"`
	Skipped   int        `xml:"skipped,attr"`
	Time      float64    `xml:"time,attr"`
	Timestamp string     `xml:"timestamp,attr"`
	TestCases []TestCase `xml:"testcase"`
}

// TestCase is a single <testcase> element.
type TestCase struct {
	Name      string  `xml:"name,attr"`
	Classname string  `xml:"classname,attr"`
	Time      float64 `xml:"time,attr"`
	Failure   *Result `xml:"failure"`
	Error     *Result `xml:"error"`
	Skipped   *Result `xml:"skipped"`
}

// Result is the payload of a <failure>, <error> or <skipped> marker.
type Result struct {
	Message string `xml:"message,attr"`
}
