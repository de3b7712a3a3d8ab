// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package sizing resolves per-frame dimensions and pass parameters from the
// frame size and a configuration snapshot.
//
// Resolve is a pure function of its inputs. It allocates nothing on the GPU
// and builds the pyramid layout anew for every frame.
package sizing

import "math"

// Low-resolution buffer caps for the noise and smear targets.
const (
	MaxLowResWidth  = 640
	MaxLowResHeight = 480
)

// Blur pyramid depth limits. blurAmount is clamped to this range before
// truncation, so a pyramid always has between MinBlurIterations and
// MaxBlurIterations levels.
const (
	MinBlurAmount = 3
	MaxBlurAmount = 8
)

// upsampleCeiling scales every upsample blend weight so no level fully
// replaces the finer one beneath it.
const upsampleCeiling = 0.8

// Config is the subset of the effect configuration the resolver reads.
// Values are expected to be clamped already.
type Config struct {
	Intensity float32

	ColorBleedIntensity float32
	ColorBleedRadius    float32
	ColorBleedDirection float32

	GrainIntensity float32
	GrainScale     float32

	SmearIntensity float32

	StripeNoiseDensity float32
	StripeNoiseOpacity float32

	EdgeIntensity float32
	EdgeDistance  float32

	CRTSize              float32
	CRTPixelIntensity    float32
	CRTScanlineIntensity float32
}

// Level is one blur pyramid level.
type Level struct {
	Width  int
	Height int

	// OddScale corrects sampling for the dimensions this level was
	// downsampled from. See OddScale.
	OddScale [4]float32

	// UpsampleBlend is the weight used when this level is upsampled into
	// the next finer one.
	UpsampleBlend float32
}

// Plan is everything the passes need for one frame. All intensities are
// premultiplied by the master intensity.
type Plan struct {
	Width  int
	Height int

	LowResWidth  int
	LowResHeight int

	BlurAmount     float32
	BlurIterations int
	Levels         []Level // owned by the caller
	BlurBias       float32

	NoiseEnabled bool
	NoiseOpacity float32
	NoisePower   float32

	SmearEnabled   bool
	SmearIntensity float32

	ColorBleedIntensity float32
	GrainIntensity      float32
	GrainScale          float32
	EdgeIntensity       float32
	EdgeDistance        float32

	CRTSize              float32
	CRTPixelIntensity    float32
	CRTScanlineIntensity float32
}

// CRTEnabled reports whether the composite should sample the CRT mask.
func (p *Plan) CRTEnabled() bool {
	return p.CRTPixelIntensity > 0 || p.CRTScanlineIntensity > 0
}

// Resolve computes the plan for a width x height frame.
// Non-positive dimensions are treated as 1.
func Resolve(width, height int, cfg Config) Plan {
	width = max(width, 1)
	height = max(height, 1)

	m := cfg.Intensity
	p := Plan{
		Width:        width,
		Height:       height,
		LowResWidth:  max(min(MaxLowResWidth, width/2), 1),
		LowResHeight: max(min(MaxLowResHeight, height/2), 1),
		BlurBias:     cfg.ColorBleedDirection,

		NoiseEnabled: NoiseEnabled(cfg),
		SmearEnabled: SmearEnabled(cfg),

		ColorBleedIntensity: cfg.ColorBleedIntensity * m,
		GrainIntensity:      cfg.GrainIntensity * m,
		GrainScale:          cfg.GrainScale,
		EdgeIntensity:       cfg.EdgeIntensity * m,
		EdgeDistance:        cfg.EdgeDistance,

		CRTSize:              cfg.CRTSize,
		CRTPixelIntensity:    cfg.CRTPixelIntensity * m,
		CRTScanlineIntensity: cfg.CRTScanlineIntensity * m,
	}
	if p.NoiseEnabled {
		p.NoiseOpacity = cfg.StripeNoiseOpacity * m
		p.NoisePower = cfg.StripeNoiseDensity * cfg.StripeNoiseDensity
	}
	if p.SmearEnabled {
		p.SmearIntensity = cfg.SmearIntensity * m
	}

	p.BlurAmount, p.BlurIterations = BlurDepth(width, cfg.ColorBleedRadius)
	p.Levels = Pyramid(width, height, p.BlurAmount, p.BlurIterations)
	return p
}

// BlurDepth returns blurAmount = clamp(log2(width*radius*0.25), 3, 8) and
// its floor. A zero radius yields the minimum depth.
func BlurDepth(width int, radius float32) (amount float32, iterations int) {
	v := math.Log2(float64(width) * float64(radius) * 0.25)
	if math.IsNaN(v) {
		v = MinBlurAmount
	}
	v = math.Max(MinBlurAmount, math.Min(MaxBlurAmount, v))
	amount = float32(v)
	return amount, int(math.Floor(float64(amount)))
}

// Pyramid builds iterations levels by repeated integer halving of
// width x height. Each level's OddScale is computed from the dimensions it
// is downsampled from. Level dimensions never drop below 1.
func Pyramid(width, height int, amount float32, iterations int) []Level {
	if iterations <= 0 {
		return nil
	}
	levels := make([]Level, iterations)
	w, h := width, height
	for i := range levels {
		levels[i].OddScale = OddScale(w, h)
		w = max(w/2, 1)
		h = max(h/2, 1)
		levels[i].Width = w
		levels[i].Height = h

		blend := float32(1)
		if i == iterations-1 {
			blend = amount - float32(iterations)
		}
		levels[i].UpsampleBlend = blend * upsampleCeiling
	}
	return levels
}

// OddScale returns the sampling correction for a w x h source:
//
//	(even(w) ? 1 : (w/2-1)/(w/2),
//	 even(h) ? 1 : (h/2-1)/(h/2),
//	 even(w) ? 1/w : 1/(w-1),
//	 even(h) ? 1/h : 1/(h-1))
//
// A dimension of 1 has no texel to step back to; its scale is 0 and its
// texel size is 1.
func OddScale(w, h int) [4]float32 {
	sx, tx := oddAxis(w)
	sy, ty := oddAxis(h)
	return [4]float32{sx, sy, tx, ty}
}

func oddAxis(n int) (scale, texel float32) {
	n = max(n, 1)
	if n%2 == 0 {
		return 1, 1 / float32(n)
	}
	if n == 1 {
		return 0, 1
	}
	half := float32(n / 2)
	return (half - 1) / half, 1 / float32(n-1)
}

// NoiseEnabled reports whether stripe noise contributes to the frame.
func NoiseEnabled(cfg Config) bool {
	return cfg.StripeNoiseDensity > 0 && cfg.StripeNoiseOpacity > 0
}

// SmearEnabled reports whether the smear pass runs.
func SmearEnabled(cfg Config) bool {
	return cfg.SmearIntensity*cfg.Intensity > 0
}

// SmearOffsetAttenuation holds the two smear stages' (offset, attenuation).
var SmearOffsetAttenuation = [2][2]float32{{1, 0.3}, {5, 1.2}}

// TexelSize returns (1/w, 1/h, w, h).
func TexelSize(w, h int) [4]float32 {
	w, h = max(w, 1), max(h, 1)
	return [4]float32{1 / float32(w), 1 / float32(h), float32(w), float32(h)}
}

// GrainScaleOffset returns the grain sampling transform with a per-frame
// random offset.
func GrainScaleOffset(scale, rx, ry float32) [4]float32 {
	return [4]float32{0.6 * scale, scale, rx, ry}
}

// StripeScaleOffset returns the stripe-noise sampling transform for a
// low-resolution target and a texW x texH stripe texture.
func StripeScaleOffset(lrW, lrH, texW, texH int, rx, ry float32) [4]float32 {
	return [4]float32{
		float32(lrW) / float32(max(texW, 1)),
		float32(lrH) / float32(max(texH, 1)),
		rx, ry,
	}
}

// CRTScale returns the CRT mask sampling vector for an outW x outH target.
func CRTScale(outW, outH, texW, texH int, size, pixel, scanline float32) [4]float32 {
	if size <= 0 {
		size = 1
	}
	return [4]float32{
		float32(outW) / float32(max(texW, 1)) / size,
		float32(outH) / float32(max(texH, 1)) / size,
		pixel, scanline,
	}
}
