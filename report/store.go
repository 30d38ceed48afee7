// Copyright 2020 the Drone Authors. All rights reserved.
// Use of this source code is governed by the Blue Oak Model License
// that can be found in the LICENSE file.

package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/moby/sys/atomicwriter"

	"github.com/drone/drone-test-report/model"
)

// Load reads the report stored at path. The file is read completely before
// it is decoded, so the same path may be saved to afterwards.
func Load(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read report: %w", model.ErrIO, err)
	}
	return decode(data)
}

// Read decodes a report from r.
func Read(r io.Reader) (*Report, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: read report: %w", model.ErrIO, err)
	}
	return decode(data)
}

func decode(data []byte) (*Report, error) {
	if err := Validate(data); err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrSyntax, err)
	}

	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("%w: decode report: %w", model.ErrSyntax, err)
	}
	if r.Tests == nil {
		r.Tests = []Entry{}
	}
	return &r, nil
}

// Save writes r to path, replacing any existing file.
func Save(r *Report, path string) error {
	var buf bytes.Buffer
	if err := Write(&buf, r); err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("%w: create report directory: %w", model.ErrIO, err)
		}
	}
	if err := atomicwriter.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("%w: write report: %w", model.ErrIO, err)
	}
	return nil
}

// Write encodes r as indented JSON.
func Write(w io.Writer, r *Report) error {
	if r.Tests == nil {
		cp := *r
		cp.Tests = []Entry{}
		r = &cp
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}
