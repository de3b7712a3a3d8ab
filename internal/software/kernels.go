// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package software

import (
	"math"

	"github.com/gogpu/vhs/internal/color"
	"github.com/gogpu/vhs/render"
)

// fragment computes one output texel at normalized (u, v).
type fragment func(u, v float32) color.ColorF32

// bound is a draw's parameter block with textures resolved to this backend.
type bound struct {
	params   *render.ParamBlock
	textures map[string]*Texture
}

func (b *bound) tex(name string) *Texture      { return b.textures[name] }
func (b *bound) f(name string) float32         { return b.params.Float(name) }
func (b *bound) vec(name string) [4]float32    { return b.params.Vector(name) }
func sampleR(t *Texture, u, v float32) float32 { return sampleOr(t, u, v).R }

func sampleOr(t *Texture, u, v float32) color.ColorF32 {
	if t == nil {
		return color.ColorF32{}
	}
	return t.Sample(u, v)
}

// kernel builds the fragment function of one program pass.
type kernel func(b *bound) fragment

func kernelFor(p render.ProgramID, pass int) kernel {
	switch p {
	case render.ProgramNoiseGen:
		return noiseGen
	case render.ProgramBlur:
		switch pass {
		case render.BlurDownsampleFirst:
			return func(b *bound) fragment { return downsample(b, true) }
		case render.BlurDownsample:
			return func(b *bound) fragment { return downsample(b, false) }
		case render.BlurUpsample:
			return upsample
		}
	case render.ProgramSmear:
		return smear
	case render.ProgramComposite:
		return composite
	}
	return nil
}

// noiseGen writes signed stripe noise: horizontal bands where the scrolling
// band texture exceeds 1-power, modulated by tiled speckle.
func noiseGen(b *bound) fragment {
	hn := b.tex(render.ParamHorizontalNoise)
	sn := b.tex(render.ParamStripeNoise)
	pos := b.f(render.ParamHorizontalNoisePos)
	power := b.f(render.ParamHorizontalNoisePower)
	so := b.vec(render.ParamStripeNoiseScaleOffset)
	return func(u, v float32) color.ColorF32 {
		h := sampleR(hn, 0.5, v+pos)
		band := color.Saturate((h - (1 - power)) / max(power, 1e-3))
		s := sampleR(sn, u*so[0]+so[2], v*so[1]+so[3])*2 - 1
		return color.ColorF32{R: band * (0.25 + 0.75*s), A: 1}
	}
}

// downsample averages four diagonal bilinear taps one source texel from the
// odd-corrected center, shifted horizontally by the bleed bias. The first
// level also adds stripe noise.
func downsample(b *bound, first bool) fragment {
	src := b.tex(render.ParamBlitTexture)
	odd := b.vec(render.ParamOddScale)
	bias := b.f(render.ParamBlurBias)
	var noise *Texture
	var opacity float32
	if first {
		noise = b.tex(render.ParamNoise)
		opacity = b.f(render.ParamNoiseOpacity)
	}
	tx, ty := odd[2], odd[3]
	return func(u, v float32) color.ColorF32 {
		cu := (u-0.5)*odd[0] + 0.5 + bias*tx*2
		cv := (v-0.5)*odd[1] + 0.5
		c := avg4(src, cu, cv, tx, ty)
		if noise != nil {
			n := noise.Sample(u, v).R * opacity
			c.R += n
			c.G += n
			c.B += n
		}
		c.A = 1
		return c
	}
}

// upsample averages four taps half a source texel out and emits the blend
// weight as alpha.
func upsample(b *bound) fragment {
	src := b.tex(render.ParamBlitTexture)
	blend := b.f(render.ParamUpsampleBlend)
	var tx, ty float32
	if src != nil {
		tx, ty = 0.5/float32(src.w), 0.5/float32(src.h)
	}
	return func(u, v float32) color.ColorF32 {
		c := avg4(src, u, v, tx, ty)
		c.A = blend
		return c
	}
}

func avg4(t *Texture, u, v, dx, dy float32) color.ColorF32 {
	if t == nil {
		return color.ColorF32{}
	}
	a := t.Sample(u-dx, v-dy)
	b := t.Sample(u+dx, v-dy)
	c := t.Sample(u-dx, v+dy)
	d := t.Sample(u+dx, v+dy)
	return color.ColorF32{
		R: (a.R + b.R + c.R + d.R) * 0.25,
		G: (a.G + b.G + c.G + d.G) * 0.25,
		B: (a.B + b.B + c.B + d.B) * 0.25,
		A: (a.A + b.A + c.A + d.A) * 0.25,
	}
}

// smearTaps is the number of trailing samples per smear stage.
const smearTaps = 5

// smear is an exponentially weighted trail to the left: each output texel
// mixes in texels offset*k to its left with weight exp(-attenuation*k).
func smear(b *bound) fragment {
	src := b.tex(render.ParamBlitTexture)
	ts := b.vec(render.ParamTexelSize)
	oa := b.vec(render.ParamSmearOffsetAttenuation)
	var weights [smearTaps]float32
	var total float32
	for k := range weights {
		weights[k] = float32(math.Exp(-float64(oa[1]) * float64(k)))
		total += weights[k]
	}
	step := oa[0] * ts[0]
	return func(u, v float32) color.ColorF32 {
		var acc color.ColorF32
		for k, w := range weights {
			c := sampleOr(src, u-float32(k)*step, v)
			acc.R += c.R * w
			acc.G += c.G * w
			acc.B += c.B * w
		}
		return color.ColorF32{R: acc.R / total, G: acc.G / total, B: acc.B / total, A: 1}
	}
}

// grainTiles is how many grain tiles span the frame at grain scale 1.
const grainTiles = 16

// composite rebuilds the frame in YIQ: luma from the slightly blurred level
// with edge ringing, smear trail, and grain; chroma bled toward the heavily
// blurred level; then the optional CRT mask.
func composite(b *bound) fragment {
	base := b.tex(render.ParamBlitTexture)
	blurred := b.tex(render.ParamBlurredTex)
	if blurred == nil {
		blurred = base
	}
	smeared := b.tex(render.ParamSmearedTex)
	grain := b.tex(render.ParamGrain)
	mask := b.tex(render.ParamCRTMask)

	bleed := b.f(render.ParamColorBleedIntensity)
	edge := b.f(render.ParamEdgeIntensity)
	edgeDist := b.f(render.ParamEdgeDistance)
	smearI := b.f(render.ParamSmearIntensity)
	grainI := b.f(render.ParamGrainIntensity)
	gso := b.vec(render.ParamGrainScaleOffset)
	crt := b.vec(render.ParamCRTScale)
	useCRT := mask != nil && (crt[2] > 0 || crt[3] > 0)

	return func(u, v float32) color.ColorF32 {
		y, i, q := color.ToYIQ(sampleOr(base, u, v))
		_, bi, bq := color.ToYIQ(sampleOr(blurred, u, v))
		i = color.Lerp(i, bi, bleed)
		q = color.Lerp(q, bq, bleed)

		ey, _, _ := color.ToYIQ(sampleOr(base, u+edgeDist, v))
		y += (y - ey) * edge

		if smearI > 0 && smeared != nil {
			sy, _, _ := color.ToYIQ(smeared.Sample(u, v))
			y = color.Lerp(y, max(y, sy), smearI)
		}

		if grain != nil {
			g := grain.Sample(u*gso[0]*grainTiles+gso[2], v*gso[1]*grainTiles+gso[3]).R*2 - 1
			y += g * grainI * 0.5
		}

		out := color.FromYIQ(y, i, q)
		if useCRT {
			m := mask.Sample(u*crt[0], v*crt[1])
			scan := color.Lerp(1, m.A, crt[3])
			out.R *= color.Lerp(1, m.R, crt[2]) * scan
			out.G *= color.Lerp(1, m.G, crt[2]) * scan
			out.B *= color.Lerp(1, m.B, crt[2]) * scan
		}
		out.R = color.Saturate(out.R)
		out.G = color.Saturate(out.G)
		out.B = color.Saturate(out.B)
		out.A = 1
		return out
	}
}
