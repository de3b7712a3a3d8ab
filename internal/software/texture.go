// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package software

import (
	"image"
	"math"

	"github.com/gogpu/gputypes"
	"golang.org/x/image/draw"

	"github.com/gogpu/vhs/internal/color"
	"github.com/gogpu/vhs/render"
)

// Texture is a CPU texture. Texels are stored as four float32 per pixel and
// quantized on write to what the declared format can hold, so CPU output
// matches what a GPU target of the same format would contain.
type Texture struct {
	owner   *Backend
	label   string
	w, h    int
	format  gputypes.TextureFormat
	address render.AddressMode
	pix     []float32
}

// Width returns the texture width in pixels.
func (t *Texture) Width() uint32 { return uint32(t.w) }

// Height returns the texture height in pixels.
func (t *Texture) Height() uint32 { return uint32(t.h) }

// Format returns the texture pixel format.
func (t *Texture) Format() gputypes.TextureFormat { return t.format }

// Label returns the debug label.
func (t *Texture) Label() string { return t.label }

func supported(f gputypes.TextureFormat) bool {
	switch f {
	case gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatBGRA8Unorm,
		gputypes.TextureFormatRGBA16Float, gputypes.TextureFormatR8Snorm,
		gputypes.TextureFormatR8Unorm:
		return true
	}
	return false
}

// store writes c at (x, y), quantized to the texture format.
func (t *Texture) store(x, y int, c color.ColorF32) {
	i := (y*t.w + x) * 4
	p := t.pix[i : i+4 : i+4]
	switch t.format {
	case gputypes.TextureFormatR8Snorm:
		p[0], p[1], p[2], p[3] = color.Snorm8(c.R), 0, 0, 1
	case gputypes.TextureFormatR8Unorm:
		p[0], p[1], p[2], p[3] = color.Unorm8(c.R), 0, 0, 1
	case gputypes.TextureFormatRGBA16Float:
		p[0], p[1], p[2], p[3] = half(c.R), half(c.G), half(c.B), half(c.A)
	default:
		p[0], p[1], p[2], p[3] = color.Unorm8(c.R), color.Unorm8(c.G), color.Unorm8(c.B), color.Unorm8(c.A)
	}
}

// half clamps to the finite float16 range. Mantissa rounding is not
// modeled; the difference is below what an 8-bit output can show.
func half(v float32) float32 {
	const maxHalf = 65504
	switch {
	case v != v:
		return 0
	case v > maxHalf:
		return maxHalf
	case v < -maxHalf:
		return -maxHalf
	}
	return v
}

func (t *Texture) texel(x, y int) color.ColorF32 {
	i := (y*t.w + x) * 4
	p := t.pix[i : i+4 : i+4]
	return color.ColorF32{R: p[0], G: p[1], B: p[2], A: p[3]}
}

func (t *Texture) wrap(i, n int) int {
	if t.address == render.AddressRepeat {
		i %= n
		if i < 0 {
			i += n
		}
		return i
	}
	return max(0, min(n-1, i))
}

// Sample returns the bilinearly filtered color at normalized (u, v), with
// texel centers at (i+0.5)/size.
func (t *Texture) Sample(u, v float32) color.ColorF32 {
	fx := u*float32(t.w) - 0.5
	fy := v*float32(t.h) - 0.5
	x0f := float32(math.Floor(float64(fx)))
	y0f := float32(math.Floor(float64(fy)))
	ax, ay := fx-x0f, fy-y0f
	x0, y0 := int(x0f), int(y0f)

	xa, xb := t.wrap(x0, t.w), t.wrap(x0+1, t.w)
	ya, yb := t.wrap(y0, t.h), t.wrap(y0+1, t.h)

	c00, c10 := t.texel(xa, ya), t.texel(xb, ya)
	c01, c11 := t.texel(xa, yb), t.texel(xb, yb)

	mix := func(a, b, c, d float32) float32 {
		top := a + (b-a)*ax
		bot := c + (d-c)*ax
		return top + (bot-top)*ay
	}
	return color.ColorF32{
		R: mix(c00.R, c10.R, c01.R, c11.R),
		G: mix(c00.G, c10.G, c01.G, c11.G),
		B: mix(c00.B, c10.B, c01.B, c11.B),
		A: mix(c00.A, c10.A, c01.A, c11.A),
	}
}

// upload converts img into t, scaling it to t's size when they differ.
func (t *Texture) upload(img image.Image) {
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Bounds().Dx() != t.w || rgba.Bounds().Dy() != t.h {
		rgba = image.NewRGBA(image.Rect(0, 0, t.w, t.h))
		if img.Bounds().Dx() == t.w && img.Bounds().Dy() == t.h {
			draw.Draw(rgba, rgba.Bounds(), img, img.Bounds().Min, draw.Src)
		} else {
			draw.BiLinear.Scale(rgba, rgba.Bounds(), img, img.Bounds(), draw.Src, nil)
		}
	}
	b := rgba.Bounds()
	for y := range t.h {
		off := rgba.PixOffset(b.Min.X, b.Min.Y+y)
		row := rgba.Pix[off : off+t.w*4]
		for x := range t.w {
			p := row[x*4 : x*4+4 : x*4+4]
			c := color.U8ToF32(color.ColorU8{R: p[0], G: p[1], B: p[2], A: p[3]})
			// Assets are stored straight-alpha; image.RGBA is premultiplied.
			if c.A > 0 && c.A < 1 {
				c.R, c.G, c.B = c.R/c.A, c.G/c.A, c.B/c.A
			}
			t.store(x, y, c)
		}
	}
}

// image converts t to an 8-bit RGBA image. Single-channel formats are
// expanded to gray, mapping signed values from [-1,1] to [0,1].
func (t *Texture) image() *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, t.w, t.h))
	for y := range t.h {
		for x := range t.w {
			c := t.texel(x, y)
			switch t.format {
			case gputypes.TextureFormatR8Snorm:
				g := c.R*0.5 + 0.5
				c = color.ColorF32{R: g, G: g, B: g, A: 1}
			case gputypes.TextureFormatR8Unorm:
				c = color.ColorF32{R: c.R, G: c.R, B: c.R, A: 1}
			}
			u := color.F32ToU8(c)
			i := y*out.Stride + x*4
			out.Pix[i], out.Pix[i+1], out.Pix[i+2], out.Pix[i+3] = u.R, u.G, u.B, u.A
		}
	}
	return out
}
