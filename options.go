// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package vhs

import (
	"io/fs"

	"github.com/gogpu/vhs/internal/assets"
	"github.com/gogpu/vhs/render"
)

// Option configures an Effect during creation.
//
// Example:
//
//	// CPU rendering with generated noise textures
//	fx, err := vhs.New()
//
//	// GPU rendering through a HAL backend, textures from disk
//	fx, err := vhs.New(
//	    vhs.WithBackend(gpu),
//	    vhs.WithAssets(os.DirFS("textures")),
//	)
type Option func(*options)

type options struct {
	backend    render.Backend
	backendSet bool
	source     assets.Source
	rand       func() float32
	states     *StateStore
	crt        bool
	eager      bool
}

func defaultOptions() options {
	return options{crt: true}
}

// WithBackend sets the backend the effect draws with. The effect does not
// close a backend it was given. Without this option the effect creates and
// owns a CPU backend.
func WithBackend(b render.Backend) Option {
	return func(o *options) {
		o.backend = b
		o.backendSet = true
	}
}

// WithAssets reads the static textures (vhsGrain.png, horizontalNoise.png,
// stripeNoise.png, crtMask.png) from fsys. Without this option they are
// generated procedurally.
func WithAssets(fsys fs.FS) Option {
	return func(o *options) {
		o.source = assets.FS(fsys)
	}
}

// WithGeneratedAssets synthesizes the static textures from seed.
func WithGeneratedAssets(seed uint64) Option {
	return func(o *options) {
		o.source = assets.Generated(seed)
	}
}

// WithRand sets the source of per-frame random values: noise jumps, stripe
// and grain jitter. r must return values in [0, 1). It is only called
// while the effect holds its render lock.
func WithRand(r func() float32) Option {
	return func(o *options) {
		o.rand = r
	}
}

// WithStateStore shares a per-camera state store between effects.
func WithStateStore(s *StateStore) Option {
	return func(o *options) {
		o.states = s
	}
}

// WithCRT enables or disables the CRT mask stage. It is enabled by
// default; with it disabled the CRT intensities are ignored.
func WithCRT(enabled bool) Option {
	return func(o *options) {
		o.crt = enabled
	}
}

// WithEagerAssets loads textures and programs in New instead of on the
// first processed frame, so missing assets fail construction.
func WithEagerAssets() Option {
	return func(o *options) {
		o.eager = true
	}
}
