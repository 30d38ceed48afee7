// Copyright 2020 the Drone Authors. All rights reserved.
// Use of this source code is governed by the Blue Oak Model License
// that can be found in the LICENSE file.

package report

import (
	"math"
	"slices"

	"github.com/drone/drone-test-report/model"
)

// Build flattens suites into report entries. Every entry receives its own
// copy of tags; blank tags are dropped and an empty tag list leaves the
// entries untagged.
func Build(suites []model.Suite, tags []string) []Entry {
	tags = slices.DeleteFunc(slices.Clone(tags), func(tag string) bool {
		return tag == ""
	})

	entries := []Entry{}
	for _, suite := range suites {
		for _, test := range suite.Tests {
			entry := Entry{
				LastExecutionType: ExecutionTypeOf(test.Status),
				Name:              test.Name,
				Path:              suite.Name,
				DurationMs:        DurationMs(test.Elapsed),
			}
			if msg, ok := model.Message(test.Status); ok {
				entry.Message = &msg
			}
			if len(tags) > 0 {
				entry.Tags = NewTags(tags...)
			}
			entries = append(entries, entry)
		}
	}
	return entries
}

// ExecutionTypeOf maps a test status to its execution type.
func ExecutionTypeOf(s model.Status) ExecutionType {
	switch s.(type) {
	case model.Skipped:
		return Skipped
	case model.Failed:
		return Failure
	case model.Errored:
		return Error
	default:
		return Success
	}
}

// DurationMs converts seconds to whole milliseconds, truncating toward zero.
// Negative and NaN durations become 0.
func DurationMs(seconds float64) uint64 {
	ms := seconds * 1000
	if math.IsNaN(ms) || ms <= 0 {
		return 0
	}
	if ms >= math.MaxUint64 {
		return math.MaxUint64
	}
	return uint64(ms)
}
