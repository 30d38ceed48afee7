// Copyright 2020 the Drone Authors. All rights reserved.
// Use of this source code is governed by the Blue Oak Model License
// that can be found in the LICENSE file.

package report

import (
	"bytes"
	_ "embed"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed report.schema.json
var schemaJSON []byte

var (
	schema     *jsonschema.Schema
	schemaOnce sync.Once
	schemaErr  error
)

func compileSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
		if err != nil {
			schemaErr = fmt.Errorf("unmarshal report schema: %w", err)
			return
		}

		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("report.schema.json", doc); err != nil {
			schemaErr = fmt.Errorf("add report schema resource: %w", err)
			return
		}

		schema, err = compiler.Compile("report.schema.json")
		if err != nil {
			schemaErr = fmt.Errorf("compile report schema: %w", err)
		}
	})
	return schema, schemaErr
}

// Validate checks that data is a JSON test report document.
func Validate(data []byte) error {
	s, err := compileSchema()
	if err != nil {
		return err
	}

	v, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}

	if err := s.Validate(v); err != nil {
		return fmt.Errorf("report validation failed: %w", err)
	}
	return nil
}
