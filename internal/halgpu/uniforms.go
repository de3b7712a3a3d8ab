// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package halgpu

import (
	"encoding/binary"
	"math"

	"github.com/gogpu/vhs/render"
)

// uniformSize is the byte size of the shared Params block: eleven vec4.
const uniformSize = 11 * 16

// Params block slots.
const (
	slotScaleBias = iota
	slotOddScale
	slotTexelSize
	slotSmearOffsetAttenuation
	slotGrainScaleOffset
	slotCRTScale
	slotStripeScaleOffset
	slotNoise
	slotMixing
	slotEdge
	slotBound
)

// vectorSlots maps vector parameters to their slot.
var vectorSlots = map[string]int{
	render.ParamOddScale:               slotOddScale,
	render.ParamTexelSize:              slotTexelSize,
	render.ParamSmearOffsetAttenuation: slotSmearOffsetAttenuation,
	render.ParamGrainScaleOffset:       slotGrainScaleOffset,
	render.ParamCRTScale:               slotCRTScale,
	render.ParamStripeNoiseScaleOffset: slotStripeScaleOffset,
}

// scalarLanes maps scalar parameters to a slot and component.
var scalarLanes = map[string][2]int{
	render.ParamHorizontalNoisePos:   {slotNoise, 0},
	render.ParamHorizontalNoisePower: {slotNoise, 1},
	render.ParamBlurBias:             {slotNoise, 2},
	render.ParamNoiseOpacity:         {slotNoise, 3},
	render.ParamUpsampleBlend:        {slotMixing, 0},
	render.ParamSmearIntensity:       {slotMixing, 1},
	render.ParamColorBleedIntensity:  {slotMixing, 2},
	render.ParamGrainIntensity:       {slotMixing, 3},
	render.ParamEdgeIntensity:        {slotEdge, 0},
	render.ParamEdgeDistance:         {slotEdge, 1},
}

// boundLanes maps optional composite inputs to their presence flag.
var boundLanes = map[string]int{
	render.ParamBlurredTex: 0,
	render.ParamSmearedTex: 1,
	render.ParamGrain:      2,
	render.ParamCRTMask:    3,
}

// packUniforms lays out a parameter block as the std140 Params struct.
// An unbound scale-bias defaults to the full frame.
func packUniforms(p *render.ParamBlock) []byte {
	var slots [11][4]float32
	slots[slotScaleBias] = [4]float32{1, 1, 0, 0}
	if p.HasVector(render.ParamBlitScaleBias) {
		slots[slotScaleBias] = p.Vector(render.ParamBlitScaleBias)
	}
	for name, slot := range vectorSlots {
		if p.HasVector(name) {
			slots[slot] = p.Vector(name)
		}
	}
	for name, lane := range scalarLanes {
		if p.HasFloat(name) {
			slots[lane[0]][lane[1]] = p.Float(name)
		}
	}
	for name, lane := range boundLanes {
		if p.Texture(name) != nil {
			slots[slotBound][lane] = 1
		}
	}

	out := make([]byte, uniformSize)
	for i, v := range slots {
		for j, f := range v {
			binary.LittleEndian.PutUint32(out[(i*4+j)*4:], math.Float32bits(f))
		}
	}
	return out
}
