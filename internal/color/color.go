// Package color provides the float color type the CPU kernels work in and
// conversions to and from stored texel formats.
package color

// ColorF32 represents a color with float32 components, nominally [0,1].
// Intermediate results may leave that range; storage clamps them.
type ColorF32 struct {
	R, G, B, A float32
}

// ColorU8 represents a color with uint8 components in [0,255].
type ColorU8 struct {
	R, G, B, A uint8
}

// U8ToF32 converts ColorU8 to ColorF32.
// Each uint8 component [0,255] is mapped to float32 [0,1].
func U8ToF32(c ColorU8) ColorF32 {
	return ColorF32{
		R: float32(c.R) / 255.0,
		G: float32(c.G) / 255.0,
		B: float32(c.B) / 255.0,
		A: float32(c.A) / 255.0,
	}
}

// F32ToU8 converts ColorF32 to ColorU8.
// Each float32 component [0,1] is mapped to uint8 [0,255] with rounding.
func F32ToU8(c ColorF32) ColorU8 {
	return ColorU8{
		R: clampAndRound(c.R),
		G: clampAndRound(c.G),
		B: clampAndRound(c.B),
		A: clampAndRound(c.A),
	}
}

// clampAndRound clamps a float32 to [0,1] and converts to uint8 with rounding.
func clampAndRound(v float32) uint8 {
	if !(v > 0) {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255.0 + 0.5)
}

// Unorm8 quantizes v the way an 8-bit unsigned normalized texel stores it.
func Unorm8(v float32) float32 {
	return float32(clampAndRound(v)) / 255
}

// Snorm8 quantizes v the way an 8-bit signed normalized texel stores it:
// clamped to [-1,1] in steps of 1/127.
func Snorm8(v float32) float32 {
	switch {
	case !(v > -1): // also NaN
		if v != v {
			return 0
		}
		return -1
	case v >= 1:
		return 1
	}
	q := v * 127
	if q < 0 {
		q -= 0.5
	} else {
		q += 0.5
	}
	return float32(int32(q)) / 127
}

// Saturate clamps v to [0,1].
func Saturate(v float32) float32 {
	if !(v > 0) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Lerp returns a + (b-a)*t.
func Lerp(a, b, t float32) float32 {
	return a + (b-a)*t
}
