// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package passes records the effect's passes into a render graph.
//
// Each recorder declares the textures its pass reads and writes and the
// draws it issues when the graph runs. Recorders never draw directly; the
// graph decides when transient textures exist.
package passes

import (
	"fmt"
	"time"

	"github.com/gogpu/vhs/internal/assets"
	"github.com/gogpu/vhs/internal/graph"
	"github.com/gogpu/vhs/internal/sizing"
	"github.com/gogpu/vhs/internal/temporal"
	"github.com/gogpu/vhs/render"
)

// Inputs is what every recorder needs for one frame.
type Inputs struct {
	Backend render.Backend
	Plan    *sizing.Plan
	Assets  assets.Set

	// State is the camera's temporal state. It is only touched when noise
	// is enabled, and may be nil otherwise.
	State     *temporal.State
	DeltaTime time.Duration

	// Rand supplies the per-frame jitter values. nil yields zeros.
	Rand temporal.Rand
}

func (in *Inputs) rand() float32 {
	if in.Rand == nil {
		return 0
	}
	return in.Rand()
}

// Pass names, as they appear in the graph schedule.
const (
	NoisePass     = "noise"
	SmearPass1    = "smear_1"
	SmearPass2    = "smear_2"
	CompositePass = "composite"
)

// DownsamplePass returns the name of the pass that fills pyramid level i.
func DownsamplePass(i int) string { return fmt.Sprintf("blur_down_%d", i) }

// UpsamplePass returns the name of the pass that blends level i+1 into i.
func UpsamplePass(i int) string { return fmt.Sprintf("blur_up_%d", i) }

// Noise records the stripe-noise pass using the camera's next phase and
// returns the uncommitted advance. It returns graph.Invalid without
// recording anything when noise is disabled.
func Noise(g *graph.Graph, in *Inputs) (graph.ResourceID, temporal.Step, error) {
	p := in.Plan
	if !p.NoiseEnabled {
		return graph.Invalid, temporal.Step{}, nil
	}
	if in.State == nil {
		return graph.Invalid, temporal.Step{}, fmt.Errorf("passes: noise enabled without camera state")
	}

	step := in.State.Next(in.DeltaTime, in.Rand)
	phase := step.Phase()
	stripe := in.Assets.StripeNoise
	so := sizing.StripeScaleOffset(p.LowResWidth, p.LowResHeight,
		int(stripe.Width()), int(stripe.Height()), in.rand(), in.rand())

	noise := g.Create(NoisePass, render.DefaultTextureDescriptor(
		uint32(p.LowResWidth), uint32(p.LowResHeight), render.FormatNoise))

	err := g.AddPass(NoisePass, func(b *graph.Builder) {
		b.Write(noise)
	}, func(ctx *graph.Context) error {
		return Blit(in.Backend, NoisePass, ctx.Texture(noise), in.Assets.Black,
			render.ProgramNoiseGen, 0, func(pb *render.ParamBlock) {
				pb.SetTexture(render.ParamHorizontalNoise, in.Assets.HorizontalNoise)
				pb.SetFloat(render.ParamHorizontalNoisePos, phase)
				pb.SetFloat(render.ParamHorizontalNoisePower, p.NoisePower)
				pb.SetTexture(render.ParamStripeNoise, stripe)
				pb.SetVector(render.ParamStripeNoiseScaleOffset, so)
			})
	})
	if err != nil {
		return graph.Invalid, temporal.Step{}, err
	}
	return noise, step, nil
}

// Blur records the pyramid: a downsample per level, the first from source
// with noise mixed in, then upsamples from level N-2 down to level 1.
// Level 0 is never written by an upsample. noise may be graph.Invalid.
func Blur(g *graph.Graph, in *Inputs, source, noise graph.ResourceID) ([]graph.ResourceID, error) {
	p := in.Plan
	levels := make([]graph.ResourceID, len(p.Levels))
	for i, lv := range p.Levels {
		levels[i] = g.Create(fmt.Sprintf("pyramid_%d", i), render.DefaultTextureDescriptor(
			uint32(lv.Width), uint32(lv.Height), render.FormatIntermediate))
	}

	for i := range levels {
		src := source
		if i > 0 {
			src = levels[i-1]
		}
		dst := levels[i]
		lv := p.Levels[i]
		name := DownsamplePass(i)
		mode := render.BlurDownsample
		if i == 0 {
			mode = render.BlurDownsampleFirst
		}
		withNoise := i == 0 && noise != graph.Invalid

		err := g.AddPass(name, func(b *graph.Builder) {
			b.Read(src)
			if withNoise {
				b.Read(noise)
			}
			b.Write(dst)
		}, func(ctx *graph.Context) error {
			return Blit(in.Backend, name, ctx.Texture(dst), ctx.Texture(src),
				render.ProgramBlur, mode, func(pb *render.ParamBlock) {
					pb.SetVector(render.ParamOddScale, lv.OddScale)
					pb.SetFloat(render.ParamBlurBias, p.BlurBias)
					if mode == render.BlurDownsampleFirst {
						opacity := float32(0)
						if withNoise {
							pb.SetTexture(render.ParamNoise, ctx.Texture(noise))
							opacity = p.NoiseOpacity
						}
						pb.SetFloat(render.ParamNoiseOpacity, opacity)
					}
				})
		})
		if err != nil {
			return nil, err
		}
	}

	for i := len(levels) - 2; i >= 1; i-- {
		coarse, fine := levels[i+1], levels[i]
		blend := p.Levels[i+1].UpsampleBlend
		name := UpsamplePass(i)
		err := g.AddPass(name, func(b *graph.Builder) {
			b.Read(coarse)
			b.ReadWrite(fine)
		}, func(ctx *graph.Context) error {
			return Blit(in.Backend, name, ctx.Texture(fine), ctx.Texture(coarse),
				render.ProgramBlur, render.BlurUpsample, func(pb *render.ParamBlock) {
					pb.SetFloat(render.ParamUpsampleBlend, blend)
				})
		})
		if err != nil {
			return nil, err
		}
	}
	return levels, nil
}

// Smear records the two smear stages from base at low resolution. It
// returns graph.Invalid without recording anything when smear is disabled.
func Smear(g *graph.Graph, in *Inputs, base graph.ResourceID) (graph.ResourceID, error) {
	p := in.Plan
	if !p.SmearEnabled {
		return graph.Invalid, nil
	}
	texel := sizing.TexelSize(p.LowResWidth, p.LowResHeight)
	src := base
	var out graph.ResourceID
	for stage, name := range []string{SmearPass1, SmearPass2} {
		oa := sizing.SmearOffsetAttenuation[stage]
		from := src
		dst := g.Create(name, render.DefaultTextureDescriptor(
			uint32(p.LowResWidth), uint32(p.LowResHeight), render.FormatIntermediate))
		err := g.AddPass(name, func(b *graph.Builder) {
			b.Read(from)
			b.Write(dst)
		}, func(ctx *graph.Context) error {
			return Blit(in.Backend, name, ctx.Texture(dst), ctx.Texture(from),
				render.ProgramSmear, 0, func(pb *render.ParamBlock) {
					pb.SetVector(render.ParamTexelSize, texel)
					pb.SetVector(render.ParamSmearOffsetAttenuation, [4]float32{oa[0], oa[1], 0, 0})
				})
		})
		if err != nil {
			return graph.Invalid, err
		}
		src, out = dst, dst
	}
	return out, nil
}

// Composite records the final pass into output. bleed falls back to base
// when the pyramid has fewer than two levels; smear may be graph.Invalid.
func Composite(g *graph.Graph, in *Inputs, base, bleed, smear, output graph.ResourceID) error {
	p := in.Plan
	if bleed == graph.Invalid {
		bleed = base
	}
	grain := sizing.GrainScaleOffset(p.GrainScale, in.rand(), in.rand())

	var crt [4]float32
	useCRT := p.CRTEnabled() && in.Assets.CRTMask != nil
	if useCRT {
		mask := in.Assets.CRTMask
		crt = sizing.CRTScale(p.Width, p.Height, int(mask.Width()), int(mask.Height()),
			p.CRTSize, p.CRTPixelIntensity, p.CRTScanlineIntensity)
	}

	return g.AddPass(CompositePass, func(b *graph.Builder) {
		b.Read(base)
		if bleed != base {
			b.Read(bleed)
		}
		if smear != graph.Invalid {
			b.Read(smear)
		}
		b.Write(output)
	}, func(ctx *graph.Context) error {
		return Blit(in.Backend, CompositePass, ctx.Texture(output), ctx.Texture(base),
			render.ProgramComposite, 0, func(pb *render.ParamBlock) {
				pb.SetTexture(render.ParamBlurredTex, ctx.Texture(bleed))
				pb.SetFloat(render.ParamColorBleedIntensity, p.ColorBleedIntensity)
				if smear != graph.Invalid {
					pb.SetTexture(render.ParamSmearedTex, ctx.Texture(smear))
					pb.SetFloat(render.ParamSmearIntensity, p.SmearIntensity)
				}
				pb.SetTexture(render.ParamGrain, in.Assets.Grain)
				pb.SetFloat(render.ParamGrainIntensity, p.GrainIntensity)
				pb.SetVector(render.ParamGrainScaleOffset, grain)
				pb.SetFloat(render.ParamEdgeIntensity, p.EdgeIntensity)
				pb.SetFloat(render.ParamEdgeDistance, -p.EdgeDistance)
				if useCRT {
					pb.SetTexture(render.ParamCRTMask, in.Assets.CRTMask)
					pb.SetVector(render.ParamCRTScale, crt)
				}
			})
	})
}

// Frame is the graph resources of one recorded frame.
type Frame struct {
	Source graph.ResourceID
	Output graph.ResourceID
	Noise  graph.ResourceID
	Levels []graph.ResourceID
	Smear  graph.ResourceID

	// Phase is the camera's pending noise advance. The caller commits it
	// after the frame is flushed. It is the zero Step when noise is off.
	Phase temporal.Step
}

// Record adds every pass of the effect to g in order: noise, blur, smear,
// composite. output must already be declared; it is written by the
// composite pass.
func Record(g *graph.Graph, in *Inputs, source, output graph.ResourceID) (*Frame, error) {
	f := &Frame{Source: source, Output: output}
	var err error
	if f.Noise, f.Phase, err = Noise(g, in); err != nil {
		return nil, err
	}
	if f.Levels, err = Blur(g, in, source, f.Noise); err != nil {
		return nil, err
	}
	if len(f.Levels) == 0 {
		return nil, fmt.Errorf("passes: empty blur pyramid")
	}
	base, bleed := f.Levels[0], graph.Invalid
	if len(f.Levels) > 1 {
		bleed = f.Levels[1]
	}
	if f.Smear, err = Smear(g, in, base); err != nil {
		return nil, err
	}
	if err := Composite(g, in, base, bleed, f.Smear, output); err != nil {
		return nil, err
	}
	return f, nil
}
