// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package halgpu

import (
	"image"

	"github.com/gogpu/gputypes"
	"golang.org/x/image/draw"

	"github.com/gogpu/vhs/render"
)

// copyPitchAlignment is the required BytesPerRow alignment for
// texture-to-buffer copies.
const copyPitchAlignment = 256

// bytesPerPixel returns the texel size of a format the effect renders
// into, or 0 for formats the backend does not allocate.
func bytesPerPixel(f gputypes.TextureFormat) uint32 {
	switch f {
	case gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatBGRA8Unorm:
		return 4
	case gputypes.TextureFormatRGBA16Float:
		return 8
	case gputypes.TextureFormatR8Snorm, gputypes.TextureFormatR8Unorm:
		return 1
	}
	return 0
}

// alignedRowBytes rounds a row of width texels up to copyPitchAlignment.
func alignedRowBytes(width, bpp uint32) uint32 {
	row := width * bpp
	return (row + copyPitchAlignment - 1) &^ (copyPitchAlignment - 1)
}

// textureUsage converts render usage flags.
func textureUsage(u render.TextureUsage) gputypes.TextureUsage {
	var out gputypes.TextureUsage
	if u.Has(render.TextureUsageCopySrc) {
		out |= gputypes.TextureUsageCopySrc
	}
	if u.Has(render.TextureUsageCopyDst) {
		out |= gputypes.TextureUsageCopyDst
	}
	if u.Has(render.TextureUsageTextureBinding) {
		out |= gputypes.TextureUsageTextureBinding
	}
	if u.Has(render.TextureUsageRenderAttachment) {
		out |= gputypes.TextureUsageRenderAttachment
	}
	return out
}

// straightRGBA8 converts img to tightly packed straight-alpha RGBA8 of size
// w x h, scaling when the sizes differ.
func straightRGBA8(img image.Image, w, h int) []byte {
	if n, ok := img.(*image.NRGBA); ok && n.Bounds().Dx() == w && n.Bounds().Dy() == h && n.Stride == w*4 {
		return n.Pix
	}
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	if img.Bounds().Dx() == w && img.Bounds().Dy() == h {
		draw.Draw(dst, dst.Bounds(), img, img.Bounds().Min, draw.Src)
	} else {
		draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	}
	return dst.Pix
}

// unpackRows strips row padding from a readback into an RGBA image,
// swapping channels for BGRA sources.
func unpackRows(data []byte, w, h, pitch uint32, bgra bool) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, int(w), int(h)))
	for y := uint32(0); y < h; y++ {
		src := data[y*pitch : y*pitch+w*4]
		dst := out.Pix[int(y)*out.Stride : int(y)*out.Stride+int(w)*4]
		copy(dst, src)
		if bgra {
			for i := 0; i < len(dst); i += 4 {
				dst[i], dst[i+2] = dst[i+2], dst[i]
			}
		}
	}
	return out
}
