// Copyright 2020 the Drone Authors. All rights reserved.
// Use of this source code is governed by the Blue Oak Model License
// that can be found in the LICENSE file.

package plugin

import (
	"fmt"
	"os"
	"sync"

	"github.com/wamuir/go-xslt"

	"github.com/drone/drone-test-report/model"
)

// stylesheet rewrites input documents into JUnit XML before they are parsed.
type stylesheet struct {
	mu sync.Mutex
	xs *xslt.Stylesheet
}

// loadStylesheet compiles the XSLT stylesheet stored at path.
func loadStylesheet(path string) (*stylesheet, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read XSLT file: %w", model.ErrIO, err)
	}

	xs, err := xslt.NewStylesheet(content)
	if err != nil {
		return nil, fmt.Errorf("create stylesheet: %w", err)
	}
	return &stylesheet{xs: xs}, nil
}

// Transform applies the stylesheet to a document held in memory.
func (s *stylesheet) Transform(input []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	transformed, err := s.xs.Transform(input)
	if err != nil {
		return nil, fmt.Errorf("%w: apply XSLT transformation: %w", model.ErrSyntax, err)
	}
	return transformed, nil
}

// Close releases the compiled stylesheet.
func (s *stylesheet) Close() {
	s.xs.Close()
}
