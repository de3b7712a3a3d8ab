// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package vhs

import "errors"

// Effect errors.
var (
	// ErrClosed is returned by Render after Close.
	ErrClosed = errors.New("vhs: effect closed")

	// ErrNilBackend is returned by New when WithBackend is given nil.
	ErrNilBackend = errors.New("vhs: nil backend")

	// ErrInvalidFrame is returned for a frame without a source texture or
	// with a non-positive size.
	ErrInvalidFrame = errors.New("vhs: invalid frame")
)
