// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"testing"

	"github.com/gogpu/gputypes"
)

type fakeTexture struct{ label string }

func (fakeTexture) Width() uint32                  { return 1 }
func (fakeTexture) Height() uint32                 { return 1 }
func (fakeTexture) Format() gputypes.TextureFormat { return FormatColor }
func (f fakeTexture) Label() string                { return f.label }

func TestParamBlockIsolation(t *testing.T) {
	before := OutstandingParams()

	a := AcquireParams()
	a.SetFloat(ParamNoiseOpacity, 0.5)
	a.SetVector(ParamBlitScaleBias, [4]float32{1, 1, 0, 0})
	a.SetTexture(ParamNoise, fakeTexture{"noise"})
	if a.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", a.Len())
	}
	ReleaseParams(a)

	b := AcquireParams()
	defer ReleaseParams(b)
	if b.Len() != 0 {
		t.Errorf("fresh block has %d params, want 0", b.Len())
	}
	if b.Texture(ParamNoise) != nil {
		t.Error("texture leaked from a released block")
	}
	if b.HasFloat(ParamNoiseOpacity) {
		t.Error("float leaked from a released block")
	}
	if got := OutstandingParams(); got != before+1 {
		t.Errorf("OutstandingParams() = %d, want %d", got, before+1)
	}
}

func TestParamBlockAccessors(t *testing.T) {
	b := AcquireParams()
	defer ReleaseParams(b)

	b.SetFloat(ParamBlurBias, -0.25)
	b.SetVector(ParamOddScale, [4]float32{1, 0.5, 0.1, 0.2})
	tex := fakeTexture{"src"}
	b.SetTexture(ParamBlitTexture, tex)

	if got := b.Float(ParamBlurBias); got != -0.25 {
		t.Errorf("Float = %v, want -0.25", got)
	}
	if got := b.Vector(ParamOddScale); got != [4]float32{1, 0.5, 0.1, 0.2} {
		t.Errorf("Vector = %v", got)
	}
	if got := b.Float("_Missing"); got != 0 {
		t.Errorf("missing Float = %v, want 0", got)
	}

	seen := 0
	b.Textures(func(name string, got Texture) {
		seen++
		if name != ParamBlitTexture || got != tex {
			t.Errorf("Textures visited %s=%v", name, got)
		}
	})
	if seen != 1 {
		t.Errorf("Textures visited %d, want 1", seen)
	}

	b.SetTexture(ParamBlitTexture, nil)
	if b.Texture(ParamBlitTexture) != nil {
		t.Error("SetTexture(nil) did not unbind")
	}
}

func TestParamBlockClone(t *testing.T) {
	b := AcquireParams()
	b.SetFloat(ParamGrainIntensity, 0.1)
	c := b.Clone()
	ReleaseParams(b)
	defer ReleaseParams(c)

	if got := c.Float(ParamGrainIntensity); got != 0.1 {
		t.Errorf("clone Float = %v, want 0.1", got)
	}
}

func TestReleaseNil(t *testing.T) {
	before := OutstandingParams()
	ReleaseParams(nil)
	if OutstandingParams() != before {
		t.Error("ReleaseParams(nil) changed the outstanding count")
	}
}

func BenchmarkAcquireRelease(b *testing.B) {
	b.ReportAllocs()
	for b.Loop() {
		p := AcquireParams()
		p.SetFloat(ParamNoiseOpacity, 1)
		ReleaseParams(p)
	}
}
