package color

// Matrix3 is a row-major 3x3 color transform.
type Matrix3 [9]float32

// Apply transforms (a, b, c).
func (m *Matrix3) Apply(a, b, c float32) (float32, float32, float32) {
	return m[0]*a + m[1]*b + m[2]*c,
		m[3]*a + m[4]*b + m[5]*c,
		m[6]*a + m[7]*b + m[8]*c
}

// RGBToYIQ separates luma (Y) from the two chroma axes (I, Q) of the
// NTSC signal, which is what a VHS deck records at different bandwidths.
var RGBToYIQ = Matrix3{
	0.299, 0.587, 0.114,
	0.595716, -0.274453, -0.321263,
	0.211456, -0.522591, 0.311135,
}

// YIQToRGB is the inverse of RGBToYIQ.
var YIQToRGB = Matrix3{
	1, 0.9563, 0.6210,
	1, -0.2721, -0.6474,
	1, -1.1070, 1.7046,
}

// ToYIQ converts an RGB color to (Y, I, Q).
func ToYIQ(c ColorF32) (y, i, q float32) {
	return RGBToYIQ.Apply(c.R, c.G, c.B)
}

// FromYIQ converts (Y, I, Q) to an opaque RGB color.
func FromYIQ(y, i, q float32) ColorF32 {
	r, g, b := YIQToRGB.Apply(y, i, q)
	return ColorF32{R: r, G: g, B: b, A: 1}
}
