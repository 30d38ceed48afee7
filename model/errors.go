// Copyright 2020 the Drone Authors. All rights reserved.
// Use of this source code is governed by the Blue Oak Model License
// that can be found in the LICENSE file.

package model

import "errors"

var (
	// ErrIO reports an input or output that could not be read or written.
	ErrIO = errors.New("i/o error")

	// ErrSyntax reports a document that is not well formed or does not
	// have the expected shape.
	ErrSyntax = errors.New("syntax error")
)
