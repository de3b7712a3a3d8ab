// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package vhs is a screen-space post-processing effect that imitates
// analog videotape: chroma bleed, horizontal noise bands, motion smear,
// film grain, edge ringing and an optional CRT mask.
//
// # Overview
//
// The effect runs once per camera per frame. It reads the camera's
// rendered color texture and produces a replacement:
//
//	noise (low res) -> blur pyramid -> smear (low res) -> composite
//
// Every intermediate texture is transient. Passes declare what they read
// and write in a per-frame render graph, which allocates each texture
// just before its first use and frees it right after its last.
//
// # Quick Start
//
//	fx, err := vhs.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer fx.Close()
//
//	cpu := fx.Backend().(*software.Backend)
//	src, _ := cpu.NewTexture("frame", img)
//
//	s := vhs.DefaultSettings()
//	s.Intensity = 1
//	res, err := fx.Render(vhs.Frame{
//	    Camera:    vhs.Camera{ID: 1},
//	    Source:    src,
//	    DeltaTime: time.Second / 60,
//	    Settings:  &s,
//	})
//	out, _ := cpu.ReadImage(res.Output)
//	fx.ReleaseOutput(res)
//
// # Backends
//
// The effect draws through a render.Backend. The default is a CPU backend
// that evaluates each shader program in Go; the halgpu package runs the
// same programs as WGSL on a gogpu/wgpu HAL device.
//
// # Activation
//
// IsActive tells the host whether a frame needs the effect at all. It is
// false whenever the master intensity is zero.
//
// # Logging
//
// vhs is silent by default. SetLogger enables structured logging through
// log/slog for the effect and its backends.
package vhs
