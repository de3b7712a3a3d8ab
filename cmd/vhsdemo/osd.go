package main

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// drawOSD draws text in the top-left corner in the style of a VCR
// on-screen display, returning a new image.
func drawOSD(img image.Image, text string) (image.Image, error) {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)

	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, err
	}
	size := max(12, float64(b.Dy())/14)
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, err
	}
	defer face.Close()

	margin := int(size)
	dot := fixed.P(margin, margin+face.Metrics().Ascent.Ceil())
	// Drop shadow first, then the text.
	for _, layer := range []struct {
		offset int
		c      color.Color
	}{
		{2, color.RGBA{A: 0xc0}},
		{0, color.RGBA{R: 0xf0, G: 0xf0, B: 0xf0, A: 0xff}},
	} {
		d := &font.Drawer{
			Dst:  dst,
			Src:  image.NewUniform(layer.c),
			Face: face,
			Dot:  dot.Add(fixed.P(layer.offset, layer.offset)),
		}
		d.DrawString(text)
	}
	return dst, nil
}
