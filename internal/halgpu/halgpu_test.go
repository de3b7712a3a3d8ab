// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package halgpu

import (
	"context"
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"log/slog"
	"math"
	"strings"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/vhs/render"
)

func lane(buf []byte, slot, comp int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(buf[(slot*4+comp)*4:]))
}

type stubTexture struct{}

func (stubTexture) Width() uint32                  { return 1 }
func (stubTexture) Height() uint32                 { return 1 }
func (stubTexture) Format() gputypes.TextureFormat { return render.FormatColor }
func (stubTexture) Label() string                  { return "stub" }

func TestPackUniformsDefaults(t *testing.T) {
	p := render.AcquireParams()
	defer render.ReleaseParams(p)

	buf := packUniforms(p)
	if len(buf) != uniformSize {
		t.Fatalf("len = %d, want %d", len(buf), uniformSize)
	}
	want := [4]float32{1, 1, 0, 0}
	for i, w := range want {
		if got := lane(buf, slotScaleBias, i); got != w {
			t.Errorf("scale_bias[%d] = %v, want %v", i, got, w)
		}
	}
	for slot := slotOddScale; slot <= slotBound; slot++ {
		for c := range 4 {
			if got := lane(buf, slot, c); got != 0 {
				t.Errorf("slot %d[%d] = %v, want 0", slot, c, got)
			}
		}
	}
}

func TestPackUniformsLayout(t *testing.T) {
	p := render.AcquireParams()
	defer render.ReleaseParams(p)

	p.SetVector(render.ParamBlitScaleBias, [4]float32{0.5, 0.5, 0.25, 0})
	p.SetVector(render.ParamOddScale, [4]float32{1.01, 1.02, 0, 0})
	p.SetVector(render.ParamCRTScale, [4]float32{160, 135, 0.25, 0})
	p.SetFloat(render.ParamHorizontalNoisePos, 0.3)
	p.SetFloat(render.ParamNoiseOpacity, 0.7)
	p.SetFloat(render.ParamUpsampleBlend, 0.8)
	p.SetFloat(render.ParamGrainIntensity, 0.4)
	p.SetFloat(render.ParamEdgeDistance, -0.002)
	p.SetTexture(render.ParamSmearedTex, stubTexture{})
	p.SetTexture(render.ParamCRTMask, stubTexture{})

	buf := packUniforms(p)
	tests := []struct {
		name       string
		slot, comp int
		want       float32
	}{
		{"scale_bias.z", slotScaleBias, 2, 0.25},
		{"odd_scale.y", slotOddScale, 1, 1.02},
		{"crt_scale.x", slotCRTScale, 0, 160},
		{"crt_scale.z", slotCRTScale, 2, 0.25},
		{"noise.x", slotNoise, 0, 0.3},
		{"noise.w", slotNoise, 3, 0.7},
		{"mixing.x", slotMixing, 0, 0.8},
		{"mixing.w", slotMixing, 3, 0.4},
		{"edge.y", slotEdge, 1, -0.002},
		{"bound.blurred", slotBound, 0, 0},
		{"bound.smeared", slotBound, 1, 1},
		{"bound.grain", slotBound, 2, 0},
		{"bound.crt", slotBound, 3, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := lane(buf, tt.slot, tt.comp); got != tt.want {
				t.Errorf("%s = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestEveryScalarParamHasALane(t *testing.T) {
	seen := make(map[[2]int]string)
	for name, l := range scalarLanes {
		if other, dup := seen[l]; dup {
			t.Errorf("%s and %s share slot %d lane %d", name, other, l[0], l[1])
		}
		seen[l] = name
	}
	for name, slot := range vectorSlots {
		if slot == slotScaleBias || slot >= slotNoise {
			t.Errorf("vector %s maps to reserved slot %d", name, slot)
		}
	}
}

func TestAlignedRowBytes(t *testing.T) {
	tests := []struct {
		width, bpp uint32
		want       uint32
	}{
		{1, 4, 256},
		{64, 4, 256},
		{65, 4, 512},
		{1920, 4, 7680},
		{15, 8, 256},
		{960, 1, 1024},
	}
	for _, tt := range tests {
		if got := alignedRowBytes(tt.width, tt.bpp); got != tt.want {
			t.Errorf("alignedRowBytes(%d, %d) = %d, want %d", tt.width, tt.bpp, got, tt.want)
		}
	}
}

func TestBytesPerPixel(t *testing.T) {
	tests := []struct {
		format gputypes.TextureFormat
		want   uint32
	}{
		{render.FormatColor, 4},
		{gputypes.TextureFormatBGRA8Unorm, 4},
		{render.FormatIntermediate, 8},
		{render.FormatNoise, 1},
		{gputypes.TextureFormatDepth24PlusStencil8, 0},
	}
	for _, tt := range tests {
		if got := bytesPerPixel(tt.format); got != tt.want {
			t.Errorf("bytesPerPixel(%v) = %d, want %d", tt.format, got, tt.want)
		}
	}
}

func TestTextureUsage(t *testing.T) {
	got := textureUsage(render.TextureUsageTextureBinding | render.TextureUsageRenderAttachment)
	want := gputypes.TextureUsageTextureBinding | gputypes.TextureUsageRenderAttachment
	if got != want {
		t.Errorf("textureUsage = %v, want %v", got, want)
	}
	if got := textureUsage(0); got != 0 {
		t.Errorf("textureUsage(0) = %v, want 0", got)
	}
}

func TestStraightRGBA8(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 2, 1))
	src.Set(0, 0, color.NRGBA{R: 200, G: 100, B: 50, A: 255})
	src.Set(1, 0, color.NRGBA{R: 255, A: 128})

	pix := straightRGBA8(src, 2, 1)
	if len(pix) != 8 {
		t.Fatalf("len = %d, want 8", len(pix))
	}
	if pix[0] != 200 || pix[1] != 100 || pix[2] != 50 || pix[3] != 255 {
		t.Errorf("opaque texel = %v, want [200 100 50 255]", pix[0:4])
	}
	if pix[4] < 250 || pix[7] != 128 {
		t.Errorf("translucent texel = %v, want straight red with alpha 128", pix[4:8])
	}

	scaled := straightRGBA8(src, 4, 2)
	if len(scaled) != 32 {
		t.Errorf("scaled len = %d, want 32", len(scaled))
	}
}

func TestUnpackRows(t *testing.T) {
	const w, h, pitch = 2, 2, 256
	data := make([]byte, pitch*h)
	copy(data[0:], []byte{1, 2, 3, 4, 5, 6, 7, 8})
	copy(data[pitch:], []byte{9, 10, 11, 12, 13, 14, 15, 16})

	img := unpackRows(data, w, h, pitch, false)
	if got := img.Pix[img.Stride : img.Stride+4]; got[0] != 9 || got[3] != 12 {
		t.Errorf("row 1 = %v, want [9 10 11 12]", got)
	}

	img = unpackRows(data, w, h, pitch, true)
	if got := img.Pix[0:4]; got[0] != 3 || got[2] != 1 {
		t.Errorf("bgra row 0 = %v, want [3 2 1 4]", got)
	}
}

func TestBlendState(t *testing.T) {
	if blendState(render.BlendReplace) != nil {
		t.Error("blendState(BlendReplace) != nil")
	}
	bs := blendState(render.BlendAlpha)
	if bs == nil {
		t.Fatal("blendState(BlendAlpha) = nil")
	}
	if bs.Color.SrcFactor != gputypes.BlendFactorSrcAlpha || bs.Alpha.SrcFactor != gputypes.BlendFactorOne {
		t.Errorf("blendState = %+v, want SrcAlpha color and One alpha", bs)
	}
}

func TestLayoutEntries(t *testing.T) {
	for _, p := range render.Programs() {
		n := len(p.TextureParams())
		entries := layoutEntries(n)
		if len(entries) != render.FirstTextureBinding+n {
			t.Errorf("%v: %d entries, want %d", p, len(entries), render.FirstTextureBinding+n)
		}
		for i, e := range entries {
			if e.Binding != uint32(i) {
				t.Errorf("%v: entry %d has binding %d", p, i, e.Binding)
			}
		}
	}
}

func TestShaderSourcePrefersSPIRV(t *testing.T) {
	src := render.ProgramSource{WGSL: "fn main() {}", SPIRV: []uint32{0x07230203}}
	if got := shaderSource(src); len(got.SPIRV) != 1 || got.WGSL != "" {
		t.Errorf("shaderSource = %+v, want SPIR-V only", got)
	}
	src.SPIRV = nil
	if got := shaderSource(src); got.WGSL == "" {
		t.Error("shaderSource without SPIR-V has no WGSL")
	}
}

type noHAL struct{ render.NullDeviceHandle }

func TestNewWithoutHAL(t *testing.T) {
	_, err := New(noHAL{})
	if !errors.Is(err, ErrNoHAL) {
		t.Errorf("New(no HAL) error = %v, want ErrNoHAL", err)
	}
}

func TestWaitError(t *testing.T) {
	cause := errors.New("lost")
	tests := []struct {
		name    string
		ok      bool
		err     error
		wantNil bool
		want    string
	}{
		{"signaled", true, nil, true, ""},
		{"timeout", false, nil, false, "timed out"},
		{"failed", false, cause, false, "lost"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := waitError(tt.ok, tt.err)
			if tt.wantNil {
				if err != nil {
					t.Errorf("waitError = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, ErrDeviceLost) {
				t.Errorf("waitError = %v, want ErrDeviceLost", err)
			}
			if tt.err != nil && !errors.Is(err, tt.err) {
				t.Errorf("waitError = %v, want wrapped %v", err, tt.err)
			}
			if msg := err.Error(); !strings.Contains(msg, tt.want) || strings.Contains(msg, "%!") {
				t.Errorf("waitError message = %q, want it to mention %q", msg, tt.want)
			}
		})
	}
}

func TestDiscardHandler(t *testing.T) {
	var h slog.Handler = discard{}
	if h.Enabled(context.Background(), slog.LevelError) {
		t.Error("discard handler reports enabled")
	}
	if _, ok := h.WithAttrs(nil).(discard); !ok {
		t.Error("WithAttrs did not return a discard handler")
	}
}
