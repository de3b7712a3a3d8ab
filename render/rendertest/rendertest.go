// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package rendertest provides a recording render.Backend for tests.
package rendertest

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/vhs/render"
)

// Texture is a texture of the recording backend. It has no storage.
type Texture struct {
	Desc      render.TextureDescriptor
	ID        int
	Destroyed bool
	Writes    int
}

// Width returns the texture width.
func (t *Texture) Width() uint32 { return t.Desc.Width }

// Height returns the texture height.
func (t *Texture) Height() uint32 { return t.Desc.Height }

// Format returns the texture format.
func (t *Texture) Format() gputypes.TextureFormat { return t.Desc.Format }

// Label returns the texture label.
func (t *Texture) Label() string { return t.Desc.Label }

// Draw is a recorded draw with a copy of its parameters taken during the
// call.
type Draw struct {
	Label       string
	Target      *Texture
	Program     render.ProgramID
	Pass        int
	VertexCount uint32

	Floats   map[string]float32
	Vectors  map[string][4]float32
	Textures map[string]*Texture
}

// Event is one backend call, for ordering assertions.
type Event struct {
	Op    string // "create", "destroy", "draw", "flush"
	Label string
}

// Backend records every call. The zero value is not usable; use New.
type Backend struct {
	mu       sync.Mutex
	nextID   int
	textures []*Texture
	programs map[render.ProgramID]render.ProgramSource
	draws    []Draw
	events   []Event
	flushes  int
	closed   bool

	// FailDraw, when set, is returned by Draw for draws with this label.
	FailDraw string

	// FailCreate, when set, is returned by CreateTexture for this label.
	FailCreate string

	// FailFlush makes Flush return ErrInjected.
	FailFlush bool
}

// ErrInjected is returned for draws and creations matching FailDraw or
// FailCreate, and by Flush when FailFlush is set.
var ErrInjected = errors.New("rendertest: injected failure")

// New returns an empty recording backend.
func New() *Backend {
	return &Backend{programs: make(map[render.ProgramID]render.ProgramSource)}
}

// Name returns "recording".
func (b *Backend) Name() string { return "recording" }

// CreateTexture records the creation.
func (b *Backend) CreateTexture(desc render.TextureDescriptor) (render.Texture, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.FailCreate != "" && desc.Label == b.FailCreate {
		return nil, ErrInjected
	}
	if desc.Width == 0 || desc.Height == 0 {
		return nil, fmt.Errorf("rendertest: zero-size texture %q", desc.Label)
	}
	b.nextID++
	t := &Texture{Desc: desc, ID: b.nextID}
	b.textures = append(b.textures, t)
	b.events = append(b.events, Event{"create", desc.Label})
	return t, nil
}

// NewTexture creates a texture sized like img, as hosts do for frames.
func (b *Backend) NewTexture(label string, w, h int) *Texture {
	t, err := b.CreateTexture(render.TextureDescriptor{
		Label: label, Width: uint32(w), Height: uint32(h), Format: render.FormatColor,
		Usage: render.TextureUsageTextureBinding | render.TextureUsageCopyDst,
	})
	if err != nil {
		panic(err)
	}
	return t.(*Texture)
}

// WriteTexture counts the upload.
func (b *Backend) WriteTexture(tex render.Texture, _ image.Image) error {
	t, ok := tex.(*Texture)
	if !ok {
		return fmt.Errorf("rendertest: foreign texture %T", tex)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	t.Writes++
	return nil
}

// DestroyTexture records the destruction.
func (b *Backend) DestroyTexture(tex render.Texture) {
	t, ok := tex.(*Texture)
	if !ok || t == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if !t.Destroyed {
		t.Destroyed = true
		b.events = append(b.events, Event{"destroy", t.Desc.Label})
	}
}

// LoadProgram records the program.
func (b *Backend) LoadProgram(src render.ProgramSource) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.programs[src.ID] = src
	return nil
}

// Draw copies the call's parameters and records it.
func (b *Backend) Draw(call render.DrawCall) error {
	if call.Target == nil {
		return render.ErrNoTarget
	}
	d := Draw{
		Label:       call.Label,
		Target:      call.Target.(*Texture),
		Program:     call.Program,
		Pass:        call.Pass,
		VertexCount: call.VertexCount,
		Floats:      map[string]float32{},
		Vectors:     map[string][4]float32{},
		Textures:    map[string]*Texture{},
	}
	if p := call.Params; p != nil {
		for _, name := range paramNames {
			if p.HasFloat(name) {
				d.Floats[name] = p.Float(name)
			}
			if p.HasVector(name) {
				d.Vectors[name] = p.Vector(name)
			}
		}
		p.Textures(func(name string, t render.Texture) {
			d.Textures[name] = t.(*Texture)
		})
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.FailDraw != "" && call.Label == b.FailDraw {
		return ErrInjected
	}
	if d.Target.Destroyed {
		return fmt.Errorf("rendertest: draw %q into destroyed %q", call.Label, d.Target.Desc.Label)
	}
	for name, t := range d.Textures {
		if t.Destroyed {
			return fmt.Errorf("rendertest: draw %q samples destroyed %s %q", call.Label, name, t.Desc.Label)
		}
	}
	b.draws = append(b.draws, d)
	b.events = append(b.events, Event{"draw", call.Label})
	return nil
}

var paramNames = []string{
	render.ParamBlitScaleBias,
	render.ParamHorizontalNoisePos, render.ParamHorizontalNoisePower, render.ParamStripeNoiseScaleOffset,
	render.ParamOddScale, render.ParamBlurBias, render.ParamNoiseOpacity, render.ParamUpsampleBlend,
	render.ParamTexelSize, render.ParamSmearOffsetAttenuation,
	render.ParamSmearIntensity, render.ParamColorBleedIntensity, render.ParamGrainIntensity,
	render.ParamGrainScaleOffset, render.ParamEdgeIntensity, render.ParamEdgeDistance, render.ParamCRTScale,
}

// Flush counts the submission.
func (b *Backend) Flush() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.flushes++
	b.events = append(b.events, Event{Op: "flush"})
	if b.FailFlush {
		return ErrInjected
	}
	return nil
}

// Close marks the backend closed.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

// Draws returns the recorded draws in order.
func (b *Backend) Draws() []Draw {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Draw(nil), b.draws...)
}

// DrawLabels returns the labels of the recorded draws in order.
func (b *Backend) DrawLabels() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.draws))
	for i, d := range b.draws {
		out[i] = d.Label
	}
	return out
}

// Events returns every recorded call in order.
func (b *Backend) Events() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Event(nil), b.events...)
}

// Textures returns every texture ever created.
func (b *Backend) Textures() []*Texture {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*Texture(nil), b.textures...)
}

// Live returns the textures not yet destroyed.
func (b *Backend) Live() []*Texture {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []*Texture
	for _, t := range b.textures {
		if !t.Destroyed {
			out = append(out, t)
		}
	}
	return out
}

// Programs returns the number of loaded programs.
func (b *Backend) Programs() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.programs)
}

// Flushes returns the number of Flush calls.
func (b *Backend) Flushes() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.flushes
}

// Closed reports whether Close was called.
func (b *Backend) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// Reset forgets recorded draws and events, keeping textures.
func (b *Backend) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.draws = nil
	b.events = nil
}

var _ render.Backend = (*Backend)(nil)
