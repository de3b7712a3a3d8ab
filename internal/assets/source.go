// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package assets

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"math"
	"math/rand/v2"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Static texture names.
const (
	Grain           = "vhsGrain.png"
	HorizontalNoise = "horizontalNoise.png"
	StripeNoise     = "stripeNoise.png"
	CRTMask         = "crtMask.png"
)

// TextureNames lists every static texture the effect samples.
func TextureNames() []string {
	return []string{Grain, HorizontalNoise, StripeNoise, CRTMask}
}

// Source supplies static texture images by name.
type Source interface {
	Open(name string) (image.Image, error)
}

// FS returns a Source decoding images from fsys. PNG, JPEG, BMP, TIFF and
// WebP are recognized by content.
func FS(fsys fs.FS) Source { return fsSource{fsys} }

type fsSource struct{ fsys fs.FS }

func (s fsSource) Open(name string) (image.Image, error) {
	f, err := s.fsys.Open(name)
	if err != nil {
		return nil, fmt.Errorf("assets: %s: %w: %w", name, ErrMissingAsset, err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("assets: decode %s: %w: %w", name, ErrMissingAsset, err)
	}
	return img, nil
}

// Generated returns a Source that synthesizes every static texture from
// seed. The same seed always yields the same pixels.
func Generated(seed uint64) Source { return generated{seed} }

type generated struct{ seed uint64 }

func (g generated) Open(name string) (image.Image, error) {
	rng := rand.New(rand.NewPCG(g.seed, hashName(name)))
	switch name {
	case Grain:
		return genGrain(rng, 128), nil
	case HorizontalNoise:
		return genBands(rng, 256), nil
	case StripeNoise:
		return genStripes(rng, 256, 128), nil
	case CRTMask:
		return genCRTMask(), nil
	}
	return nil, fmt.Errorf("assets: generate %s: %w", name, ErrMissingAsset)
}

func hashName(s string) uint64 {
	h := uint64(14695981039346656037)
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= 1099511628211
	}
	return h
}

// genGrain is uniform per-texel noise.
func genGrain(rng *rand.Rand, size int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, size, size))
	for i := range img.Pix {
		img.Pix[i] = uint8(rng.IntN(256))
	}
	return img
}

// genBands is a one-column strip of smooth value noise sharpened toward
// zero, so only a few rows cross a high threshold.
func genBands(rng *rand.Rand, height int) *image.Gray {
	const knots = 16
	var k [knots]float64
	for i := range k {
		k[i] = rng.Float64()
	}
	img := image.NewGray(image.Rect(0, 0, 1, height))
	for y := range height {
		t := float64(y) / float64(height) * knots
		i := int(t)
		f := t - float64(i)
		f = f * f * (3 - 2*f)
		v := k[i%knots]*(1-f) + k[(i+1)%knots]*f
		img.Pix[y] = uint8(math.Round(math.Pow(v, 2) * 255))
	}
	return img
}

// genStripes is speckle stretched into short horizontal runs.
func genStripes(rng *rand.Rand, w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := range h {
		row := img.Pix[y*img.Stride : y*img.Stride+w]
		for x := 0; x < w; {
			run := 1 + rng.IntN(8)
			v := uint8(rng.IntN(256))
			for ; run > 0 && x < w; run-- {
				row[x] = v
				x++
			}
		}
	}
	return img
}

// genCRTMask is an aperture grille: red, green and blue phosphor columns
// in RGB, and a dark scanline row in alpha.
func genCRTMask() *image.NRGBA {
	const w, h = 6, 4
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		a := uint8(255)
		if y == h-1 {
			a = 64
		}
		for x := range w {
			c := color.NRGBA{R: 48, G: 48, B: 48, A: a}
			switch x / 2 {
			case 0:
				c.R = 255
			case 1:
				c.G = 255
			case 2:
				c.B = 255
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}
