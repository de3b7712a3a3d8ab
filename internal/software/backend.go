// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package software is a CPU implementation of render.Backend.
//
// Each shader program is a Go function evaluated per output texel, in row
// bands spread over a worker pool. Draws execute immediately; Flush has
// nothing to submit.
package software

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gogpu/vhs/internal/color"
	"github.com/gogpu/vhs/internal/parallel"
	"github.com/gogpu/vhs/render"
)

// ErrForeignTexture is returned for a texture created by another backend.
var ErrForeignTexture = errors.New("software: texture not created by this backend")

// ErrClosed is returned after Close.
var ErrClosed = errors.New("software: backend closed")

// Stats counts backend activity.
type Stats struct {
	Draws        uint64
	LiveTextures int64
}

// Backend is the CPU backend.
type Backend struct {
	pool   *parallel.WorkerPool
	logger atomic.Pointer[slog.Logger]

	mu       sync.Mutex
	programs map[render.ProgramID]bool
	closed   bool

	draws atomic.Uint64
	live  atomic.Int64
}

// New creates a CPU backend with the given number of workers. workers <= 0
// uses GOMAXPROCS.
func New(workers int) *Backend {
	b := &Backend{
		pool:     parallel.NewWorkerPool(workers),
		programs: make(map[render.ProgramID]bool),
	}
	b.logger.Store(slog.New(discard{}))
	return b
}

// Name returns "software".
func (b *Backend) Name() string { return "software" }

// SetLogger sets the backend logger. nil silences it.
func (b *Backend) SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(discard{})
	}
	b.logger.Store(l)
}

// CreateTexture allocates a zeroed texture.
func (b *Backend) CreateTexture(desc render.TextureDescriptor) (render.Texture, error) {
	if !supported(desc.Format) {
		return nil, fmt.Errorf("%w: %v", render.ErrUnsupportedFormat, desc.Format)
	}
	if desc.Width == 0 || desc.Height == 0 {
		return nil, fmt.Errorf("software: texture %q has zero size %dx%d", desc.Label, desc.Width, desc.Height)
	}
	t := &Texture{
		owner:   b,
		label:   desc.Label,
		w:       int(desc.Width),
		h:       int(desc.Height),
		format:  desc.Format,
		address: desc.Address,
		pix:     make([]float32, int(desc.Width)*int(desc.Height)*4),
	}
	b.live.Add(1)
	return t, nil
}

// NewTexture creates an RGBA8 texture holding img. Hosts use it to hand
// camera frames to the effect.
func (b *Backend) NewTexture(label string, img image.Image) (*Texture, error) {
	r := img.Bounds()
	tex, err := b.CreateTexture(render.TextureDescriptor{
		Label:  label,
		Width:  uint32(r.Dx()),
		Height: uint32(r.Dy()),
		Format: render.FormatColor,
		Usage:  render.TextureUsageTextureBinding | render.TextureUsageCopyDst | render.TextureUsageCopySrc,
	})
	if err != nil {
		return nil, err
	}
	t := tex.(*Texture)
	t.upload(img)
	return t, nil
}

func (b *Backend) own(tex render.Texture) (*Texture, error) {
	t, ok := tex.(*Texture)
	if !ok || t == nil || t.owner != b {
		return nil, ErrForeignTexture
	}
	return t, nil
}

// WriteTexture uploads img into tex, scaling it if the sizes differ.
func (b *Backend) WriteTexture(tex render.Texture, img image.Image) error {
	t, err := b.own(tex)
	if err != nil {
		return err
	}
	t.upload(img)
	return nil
}

// DestroyTexture frees tex.
func (b *Backend) DestroyTexture(tex render.Texture) {
	t, err := b.own(tex)
	if err != nil || t.pix == nil {
		return
	}
	t.pix = nil
	b.live.Add(-1)
}

// ReadImage converts tex to an 8-bit image.
func (b *Backend) ReadImage(tex render.Texture) (*image.RGBA, error) {
	t, err := b.own(tex)
	if err != nil {
		return nil, err
	}
	if t.pix == nil {
		return nil, fmt.Errorf("software: read destroyed texture %q", t.label)
	}
	return t.image(), nil
}

// LoadProgram registers a program. The CPU backend evaluates its built-in
// kernel for the program; the WGSL source is not interpreted.
func (b *Backend) LoadProgram(src render.ProgramSource) error {
	if src.ID.PassCount() == 0 {
		return fmt.Errorf("%w: %v", render.ErrUnknownProgram, src.ID)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	b.programs[src.ID] = true
	return nil
}

// Draw evaluates one full-screen pass into call.Target.
func (b *Backend) Draw(call render.DrawCall) error {
	b.mu.Lock()
	loaded, closed := b.programs[call.Program], b.closed
	b.mu.Unlock()
	if closed {
		return ErrClosed
	}
	if !loaded || !call.Program.Valid(call.Pass) {
		return fmt.Errorf("%w: %v pass %d", render.ErrUnknownProgram, call.Program, call.Pass)
	}
	if call.Target == nil {
		return render.ErrNoTarget
	}
	dst, err := b.own(call.Target)
	if err != nil {
		return fmt.Errorf("software: draw %q target: %w", call.Label, err)
	}
	if dst.pix == nil {
		return fmt.Errorf("software: draw %q into destroyed texture", call.Label)
	}

	in := &bound{params: call.Params, textures: make(map[string]*Texture, 4)}
	if in.params == nil {
		in.params = render.AcquireParams()
		defer render.ReleaseParams(in.params)
	}
	var bindErr error
	in.params.Textures(func(name string, tex render.Texture) {
		t, err := b.own(tex)
		if err != nil {
			bindErr = fmt.Errorf("software: draw %q binds %s: %w", call.Label, name, err)
			return
		}
		if t == dst {
			// Sampling the target while writing it; read from a snapshot.
			c := *t
			c.pix = append([]float32(nil), t.pix...)
			t = &c
		}
		in.textures[name] = t
	})
	if bindErr != nil {
		return bindErr
	}

	frag := kernelFor(call.Program, call.Pass)(in)
	blend := render.PassBlend(call.Program, call.Pass)
	sb := [4]float32{1, 1, 0, 0}
	if in.params.HasVector(render.ParamBlitScaleBias) {
		sb = in.params.Vector(render.ParamBlitScaleBias)
	}

	w, h := dst.w, dst.h
	b.pool.Bands(h, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			v := (float32(y)+0.5)/float32(h)*sb[1] + sb[3]
			for x := range w {
				u := (float32(x)+0.5)/float32(w)*sb[0] + sb[2]
				c := frag(u, v)
				if blend == render.BlendAlpha {
					c = blendAlpha(c, dst.texel(x, y))
				}
				dst.store(x, y, c)
			}
		}
	})

	b.draws.Add(1)
	b.logger.Load().Debug("software: draw",
		"label", call.Label, "program", call.Program.String(), "pass", call.Pass,
		"target", dst.label, "size", [2]int{w, h})
	return nil
}

// blendAlpha mixes src over dst with src alpha: color SrcAlpha /
// OneMinusSrcAlpha, alpha One / OneMinusSrcAlpha.
func blendAlpha(src, dst color.ColorF32) color.ColorF32 {
	a := src.A
	return color.ColorF32{
		R: src.R*a + dst.R*(1-a),
		G: src.G*a + dst.G*(1-a),
		B: src.B*a + dst.B*(1-a),
		A: a + dst.A*(1-a),
	}
}

// Flush is a no-op: draws complete inside Draw.
func (b *Backend) Flush() error { return nil }

// Stats returns activity counters.
func (b *Backend) Stats() Stats {
	return Stats{Draws: b.draws.Load(), LiveTextures: b.live.Load()}
}

// Close stops the worker pool. Textures already created stay readable.
func (b *Backend) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()
	b.pool.Close()
	return nil
}

var _ render.Backend = (*Backend)(nil)
var _ render.ImageReader = (*Backend)(nil)
