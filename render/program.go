// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import "fmt"

// ProgramID names one of the effect's shader programs.
type ProgramID uint8

const (
	// ProgramNoiseGen renders stripe noise. One pass.
	ProgramNoiseGen ProgramID = iota

	// ProgramBlur builds the blur pyramid. Passes BlurDownsampleFirst,
	// BlurDownsample, BlurUpsample.
	ProgramBlur

	// ProgramSmear applies one directional smear stage. One pass.
	ProgramSmear

	// ProgramComposite combines every intermediate into the output. One pass.
	ProgramComposite

	programCount
)

// Blur program pass indices.
const (
	BlurDownsampleFirst = 0
	BlurDownsample      = 1
	BlurUpsample        = 2
)

var programNames = [programCount]string{"noisegen", "blur", "smear", "composite"}

var programPasses = [programCount]int{1, 3, 1, 1}

// Programs returns every program identifier.
func Programs() []ProgramID {
	return []ProgramID{ProgramNoiseGen, ProgramBlur, ProgramSmear, ProgramComposite}
}

// String returns the program name.
func (p ProgramID) String() string {
	if p < programCount {
		return programNames[p]
	}
	return fmt.Sprintf("ProgramID(%d)", uint8(p))
}

// PassCount returns the number of passes (modes) the program has.
func (p ProgramID) PassCount() int {
	if p < programCount {
		return programPasses[p]
	}
	return 0
}

// Valid reports whether pass is a pass of p.
func (p ProgramID) Valid(pass int) bool {
	return pass >= 0 && pass < p.PassCount()
}

// BlendMode is the output merge used by a pass.
type BlendMode uint8

const (
	// BlendReplace overwrites the target.
	BlendReplace BlendMode = iota

	// BlendAlpha mixes src over the existing target with the fragment's
	// alpha: dst = src*a + dst*(1-a). The shader writes its blend weight
	// into alpha.
	BlendAlpha
)

// PassBlend returns the blend mode of a program pass. Only the blur
// upsample accumulates into its target.
func PassBlend(p ProgramID, pass int) BlendMode {
	if p == ProgramBlur && pass == BlurUpsample {
		return BlendAlpha
	}
	return BlendReplace
}

// ProgramSource is a compiled shader program handed to a backend.
type ProgramSource struct {
	ID    ProgramID
	Label string

	// WGSL is the program source. Fragment entry points are named
	// fs_pass<N> for pass N; the vertex entry point is vs_main.
	WGSL string

	// SPIRV is WGSL compiled by naga, little-endian words.
	SPIRV []uint32
}

// EntryPoint returns the fragment entry point for a pass.
func EntryPoint(pass int) string {
	return fmt.Sprintf("fs_pass%d", pass)
}

var programTextures = [programCount][]string{
	ProgramNoiseGen:  {ParamHorizontalNoise, ParamStripeNoise},
	ProgramBlur:      {ParamBlitTexture, ParamNoise},
	ProgramSmear:     {ParamBlitTexture},
	ProgramComposite: {ParamBlitTexture, ParamBlurredTex, ParamSmearedTex, ParamGrain, ParamCRTMask},
}

// FirstTextureBinding is the binding index of a program's first texture.
// Binding 0 holds the uniform block, 1 the clamping sampler and 2 the
// repeating sampler.
const FirstTextureBinding = 3

// TextureParams returns the texture parameters a program samples, in
// binding order starting at FirstTextureBinding.
func (p ProgramID) TextureParams() []string {
	if p < programCount {
		return append([]string(nil), programTextures[p]...)
	}
	return nil
}
