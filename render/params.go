// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"sync"
	"sync/atomic"
)

// Shader parameter names. Every program reads its inputs by these names.
const (
	ParamBlitTexture   = "_BlitTexture"
	ParamBlitScaleBias = "_BlitScaleBias"

	ParamHorizontalNoise        = "_HorizontalNoise"
	ParamHorizontalNoisePos     = "_HorizontalNoisePos"
	ParamHorizontalNoisePower   = "_HorizontalNoisePower"
	ParamStripeNoise            = "_StripeNoise"
	ParamStripeNoiseScaleOffset = "_StripeNoiseScaleOffset"

	ParamOddScale      = "_OddScale"
	ParamBlurBias      = "_BlurBias"
	ParamNoise         = "_Noise"
	ParamNoiseOpacity  = "_NoiseOpacity"
	ParamUpsampleBlend = "_UpsampleBlend"

	ParamTexelSize              = "_TexelSize"
	ParamSmearOffsetAttenuation = "_SmearOffsetAttenuation"

	ParamBlurredTex          = "_BlurredTex"
	ParamSmearedTex          = "_SmearedTex"
	ParamSmearIntensity      = "_SmearIntensity"
	ParamColorBleedIntensity = "_ColorBleedIntensity"
	ParamGrain               = "_Grain"
	ParamGrainIntensity      = "_GrainIntensity"
	ParamGrainScaleOffset    = "_GrainScaleOffset"
	ParamEdgeIntensity       = "_EdgeIntensity"
	ParamEdgeDistance        = "_EdgeDistance"
	ParamCRTMask             = "_CRTMask"
	ParamCRTScale            = "_CRTScale"
)

// ParamBlock is a scoped set of named shader inputs for one draw call.
// Blocks come from a pool: AcquireParams returns an empty block and
// ReleaseParams clears it, so nothing bound for one draw is visible to the
// next.
type ParamBlock struct {
	floats   map[string]float32
	vectors  map[string][4]float32
	textures map[string]Texture
}

var paramPool = sync.Pool{
	New: func() any {
		return &ParamBlock{
			floats:   make(map[string]float32, 8),
			vectors:  make(map[string][4]float32, 4),
			textures: make(map[string]Texture, 4),
		}
	},
}

var paramsOutstanding atomic.Int64

// AcquireParams returns an empty parameter block.
func AcquireParams() *ParamBlock {
	paramsOutstanding.Add(1)
	return paramPool.Get().(*ParamBlock)
}

// ReleaseParams clears b and returns it to the pool. b must not be used
// afterwards. Releasing nil is a no-op.
func ReleaseParams(b *ParamBlock) {
	if b == nil {
		return
	}
	b.Reset()
	paramsOutstanding.Add(-1)
	paramPool.Put(b)
}

// OutstandingParams returns the number of acquired, unreleased blocks.
func OutstandingParams() int64 {
	return paramsOutstanding.Load()
}

// Reset removes every parameter.
func (b *ParamBlock) Reset() {
	clear(b.floats)
	clear(b.vectors)
	clear(b.textures)
}

// SetFloat binds a scalar.
func (b *ParamBlock) SetFloat(name string, v float32) { b.floats[name] = v }

// SetVector binds a 4-component vector.
func (b *ParamBlock) SetVector(name string, v [4]float32) { b.vectors[name] = v }

// SetTexture binds a texture. A nil texture unbinds name.
func (b *ParamBlock) SetTexture(name string, t Texture) {
	if t == nil {
		delete(b.textures, name)
		return
	}
	b.textures[name] = t
}

// Float returns a bound scalar, or 0.
func (b *ParamBlock) Float(name string) float32 { return b.floats[name] }

// Vector returns a bound vector, or the zero vector.
func (b *ParamBlock) Vector(name string) [4]float32 { return b.vectors[name] }

// Texture returns a bound texture, or nil.
func (b *ParamBlock) Texture(name string) Texture { return b.textures[name] }

// HasFloat reports whether a scalar is bound.
func (b *ParamBlock) HasFloat(name string) bool {
	_, ok := b.floats[name]
	return ok
}

// HasVector reports whether a vector is bound.
func (b *ParamBlock) HasVector(name string) bool {
	_, ok := b.vectors[name]
	return ok
}

// Textures calls fn for every bound texture.
func (b *ParamBlock) Textures(fn func(name string, t Texture)) {
	for name, t := range b.textures {
		fn(name, t)
	}
}

// Len returns the number of bound parameters.
func (b *ParamBlock) Len() int {
	return len(b.floats) + len(b.vectors) + len(b.textures)
}

// Clone copies b into a newly acquired block.
func (b *ParamBlock) Clone() *ParamBlock {
	c := AcquireParams()
	for k, v := range b.floats {
		c.floats[k] = v
	}
	for k, v := range b.vectors {
		c.vectors[k] = v
	}
	for k, v := range b.textures {
		c.textures[k] = v
	}
	return c
}
