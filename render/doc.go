// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package render defines the backend-neutral vocabulary the VHS effect is
// written against: textures, shader program identifiers, pooled parameter
// blocks, and the Backend that executes full-screen draws.
//
// Two backends implement it: a CPU backend that runs each program as Go
// code over float textures, and a GPU backend over gogpu/wgpu HAL. The
// effect itself never touches either directly.
//
// # Parameter blocks
//
// Every draw gets its own ParamBlock from AcquireParams and returns it with
// ReleaseParams once the draw is recorded:
//
//	p := render.AcquireParams()
//	defer render.ReleaseParams(p)
//	p.SetTexture(render.ParamBlitTexture, src)
//	p.SetVector(render.ParamBlitScaleBias, [4]float32{1, 1, 0, 0})
//	err := backend.Draw(render.DrawCall{Target: dst, Program: render.ProgramSmear,
//	    VertexCount: render.FullScreenVertices, Params: p})
//
// # Device integration
//
// GPU hosts hand their device to the effect through DeviceHandle
// (gpucontext.DeviceProvider). The effect never creates a device.
package render
