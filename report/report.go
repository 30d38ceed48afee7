// Copyright 2020 the Drone Authors. All rights reserved.
// Use of this source code is governed by the Blue Oak Model License
// that can be found in the LICENSE file.

// Package report defines the persisted test report document, builds it
// from parsed suites and stores it as JSON.
package report

import "slices"

// CurrentVersion is the document version written by this package.
const CurrentVersion = 1

// ExecutionType is the outcome of the last execution of a test.
type ExecutionType string

const (
	Success ExecutionType = "SUCCESS"
	Skipped ExecutionType = "SKIPPED"
	Failure ExecutionType = "FAILURE"
	Error   ExecutionType = "ERROR"
)

// Report is the persisted test report.
type Report struct {
	Version int     `json:"version"`
	Date    string  `json:"date"`
	Tests   []Entry `json:"tests"`
}

// Entry is the last known outcome of one test.
//
// Message and Tags are optional: nil means absent, which is distinct from
// an empty message or an empty tag list.
type Entry struct {
	LastExecutionType ExecutionType `json:"lastExecutionType"`
	Name              string        `json:"name"`
	// Path is the name of the suite the test belongs to.
	Path       string  `json:"path"`
	DurationMs uint64  `json:"durationMs"`
	Message    *string `json:"message,omitempty"`
	Tags       *Tags   `json:"tags,omitempty"`
}

// Tags is an insertion ordered list of distinct tags.
type Tags []string

// NewTags returns a tag list holding the distinct values of tags in order of
// first appearance. The result is never nil.
func NewTags(tags ...string) *Tags {
	t := make(Tags, 0, len(tags))
	t.Add(tags...)
	return &t
}

// Add appends every tag that is not already present.
func (t *Tags) Add(tags ...string) {
	for _, tag := range tags {
		if !slices.Contains(*t, tag) {
			*t = append(*t, tag)
		}
	}
}

// Remove drops every listed tag. Missing tags are ignored.
func (t *Tags) Remove(tags ...string) {
	*t = slices.DeleteFunc(*t, func(tag string) bool {
		return slices.Contains(tags, tag)
	})
}

// Contains reports whether tag is present.
func (t *Tags) Contains(tag string) bool {
	return t != nil && slices.Contains(*t, tag)
}

// New returns a report dated date holding entries.
func New(date string, entries []Entry) *Report {
	if entries == nil {
		entries = []Entry{}
	}
	return &Report{
		Version: CurrentVersion,
		Date:    date,
		Tests:   entries,
	}
}

// Count returns the number of entries per execution type.
func (r *Report) Count() map[ExecutionType]int {
	counts := make(map[ExecutionType]int)
	for _, e := range r.Tests {
		counts[e.LastExecutionType]++
	}
	return counts
}
