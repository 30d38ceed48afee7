// Copyright 2020 the Drone Authors. All rights reserved.
// Use of this source code is governed by the Blue Oak Model License
// that can be found in the LICENSE file.

// Package junit parses JUnit XML reports into the canonical test model.
package junit

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/net/html/charset"

	"github.com/drone/drone-test-report/model"
)

// Parser reads documents rooted at <testsuite> or <testsuites>.
type Parser struct{}

// New returns a JUnit parser.
func New() *Parser {
	return &Parser{}
}

// ParseFile parses the JUnit document stored at path.
func (p *Parser) ParseFile(path string) ([]model.Suite, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrIO, err)
	}
	defer file.Close()

	return p.Parse(file)
}

// Parse parses a JUnit document. A lone <testsuite> yields one suite and a
// <testsuites> wrapper yields its children in document order.
func (p *Parser) Parse(r io.Reader) ([]model.Suite, error) {
	src := &sourceReader{r: r}
	dec := xml.NewDecoder(src)
	dec.CharsetReader = charset.NewReaderLabel

	var suites []model.Suite
	for suites == nil {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil, fmt.Errorf("%w: document has no root element", model.ErrSyntax)
		}
		if err != nil {
			return nil, src.wrap(err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		switch start.Name.Local {
		case "testsuite":
			var suite TestSuite
			if err := dec.DecodeElement(&suite, &start); err != nil {
				return nil, src.wrap(err)
			}
			suites = []model.Suite{suite.toModel()}
		case "testsuites":
			var wrapper TestSuites
			if err := dec.DecodeElement(&wrapper, &start); err != nil {
				return nil, src.wrap(err)
			}
			suites = make([]model.Suite, 0, len(wrapper.TestSuites))
			for _, suite := range wrapper.TestSuites {
				suites = append(suites, suite.toModel())
			}
		default:
			return nil, fmt.Errorf("%w: unexpected root element <%s>", model.ErrSyntax, start.Name.Local)
		}
	}

	// only comments, processing instructions and whitespace may follow the root
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, src.wrap(err)
		}
		switch tok := tok.(type) {
		case xml.StartElement:
			return nil, fmt.Errorf("%w: unexpected element <%s> after root element", model.ErrSyntax, tok.Name.Local)
		case xml.CharData:
			if len(bytes.TrimSpace(tok)) != 0 {
				return nil, fmt.Errorf("%w: unexpected text after root element", model.ErrSyntax)
			}
		case xml.Directive:
			return nil, fmt.Errorf("%w: unexpected directive after root element", model.ErrSyntax)
		}
	}

	return suites, nil
}

func (s TestSuite) toModel() model.Suite {
	tests := make([]model.Test, 0, len(s.TestCases))
	for _, c := range s.TestCases {
		tests = append(tests, model.Test{
			Name:    c.Name,
			Elapsed: c.Time,
			Status:  c.status(),
		})
	}
	return model.Suite{
		Name:      s.Name,
		Duration:  s.Time,
		Timestamp: s.Timestamp,
		Tests:     tests,
	}
}

// status picks the first marker present: failure, error, skipped.
func (c TestCase) status() model.Status {
	switch {
	case c.Failure != nil:
		return model.Failed{Message: c.Failure.Message}
	case c.Error != nil:
		return model.Errored{Message: c.Error.Message}
	case c.Skipped != nil:
		return model.Skipped{Message: c.Skipped.Message}
	default:
		return model.Passed{}
	}
}

// sourceReader remembers read failures so that decoder errors can be told
// apart from broken input.
type sourceReader struct {
	r   io.Reader
	err error
}

func (s *sourceReader) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		s.err = err
	}
	return n, err
}

func (s *sourceReader) wrap(err error) error {
	if s.err != nil {
		return fmt.Errorf("%w: %w", model.ErrIO, s.err)
	}
	return fmt.Errorf("%w: %w", model.ErrSyntax, err)
}
