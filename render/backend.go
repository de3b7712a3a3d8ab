// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"errors"
	"image"
)

// Backend errors.
var (
	// ErrUnsupportedFormat is returned for a texture format the backend
	// cannot allocate or sample.
	ErrUnsupportedFormat = errors.New("render: unsupported texture format")

	// ErrUnknownProgram is returned when a draw names a program that was
	// never loaded or a pass the program does not have.
	ErrUnknownProgram = errors.New("render: unknown program or pass")

	// ErrNoTarget is returned for a draw without a render target.
	ErrNoTarget = errors.New("render: draw has no target")
)

// DrawCall is one full-screen draw.
type DrawCall struct {
	// Label names the draw in logs and debug markers.
	Label string

	// Target is the color attachment.
	Target Texture

	// Program and Pass select the shader mode.
	Program ProgramID
	Pass    int

	// VertexCount is the number of procedural vertices. Full-screen draws
	// use FullScreenVertices.
	VertexCount uint32

	// Params holds the draw's inputs. The backend reads it during Draw
	// and does not retain it.
	Params *ParamBlock
}

// FullScreenVertices is the vertex count of the oversized triangle that
// covers the viewport without a diagonal seam.
const FullScreenVertices = 3

// Backend executes the effect's draws. Implementations record draws in
// call order; Flush submits everything recorded since the last Flush.
type Backend interface {
	// Name identifies the backend in logs.
	Name() string

	// CreateTexture allocates a texture.
	CreateTexture(desc TextureDescriptor) (Texture, error)

	// WriteTexture uploads img into tex. img is converted to tex's format.
	WriteTexture(tex Texture, img image.Image) error

	// DestroyTexture frees tex. Destroying nil is a no-op.
	DestroyTexture(tex Texture)

	// LoadProgram makes a program available to Draw.
	LoadProgram(src ProgramSource) error

	// Draw records one draw.
	Draw(call DrawCall) error

	// Flush submits recorded draws and waits for them where the backend
	// has a queue.
	Flush() error

	// Close releases every resource the backend owns.
	Close() error
}

// ImageReader is implemented by backends that can read a texture back
// into CPU memory.
type ImageReader interface {
	ReadImage(tex Texture) (*image.RGBA, error)
}

// SPIRVConsumer is implemented by backends that build shader modules from
// SPIR-V. Programs are compiled only for backends that report true.
type SPIRVConsumer interface {
	ConsumesSPIRV() bool
}

// NeedsSPIRV reports whether b builds its shaders from SPIR-V.
func NeedsSPIRV(b Backend) bool {
	c, ok := b.(SPIRVConsumer)
	return ok && c.ConsumesSPIRV()
}
