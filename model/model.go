// Copyright 2020 the Drone Authors. All rights reserved.
// Use of this source code is governed by the Blue Oak Model License
// that can be found in the LICENSE file.

// Package model defines the format agnostic representation of a test
// run that every report parser produces.
package model

import "io"

// Suite is one named group of test outcomes.
type Suite struct {
	Name string
	// Duration is the suite run time in seconds.
	Duration  float64
	Timestamp string
	Tests     []Test
}

// Test is a single test outcome.
type Test struct {
	Name string
	// Elapsed is the test run time in seconds.
	Elapsed float64
	Status  Status
}

// Status is the outcome of a test. It is implemented by Passed, Skipped,
// Failed and Errored only.
type Status interface {
	status()
}

// Passed marks a successful test.
type Passed struct{}

// Skipped marks a test that did not run.
type Skipped struct {
	Message string
}

// Failed marks a test whose assertions failed.
type Failed struct {
	Message string
}

// Errored marks a test that stopped on an unexpected error.
type Errored struct {
	Message string
}

func (Passed) status()  {}
func (Skipped) status() {}
func (Failed) status()  {}
func (Errored) status() {}

// Message returns the message carried by s. Passed carries none.
func Message(s Status) (string, bool) {
	switch v := s.(type) {
	case Skipped:
		return v.Message, true
	case Failed:
		return v.Message, true
	case Errored:
		return v.Message, true
	default:
		return "", false
	}
}

// Parser converts a report document into suites.
type Parser interface {
	Parse(r io.Reader) ([]Suite, error)
}
