// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package assets

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gogpu/vhs/render"
)

// Asset errors.
var (
	// ErrMissingAsset is returned when a static texture or shader program
	// cannot be found or decoded. The effect cannot run without it.
	ErrMissingAsset = errors.New("assets: missing asset")

	// ErrShaderCompile is returned when a program fails to compile.
	ErrShaderCompile = errors.New("assets: shader compile failed")
)

// BlackTexture is the label of the 1x1 black texture used as the noise
// program's source.
const BlackTexture = "vhsBlack"

// Provider owns the effect's static textures and programs on one backend.
// Acquire loads them on first use; later calls return the cached set.
// Release destroys them. A Provider is safe for concurrent use.
type Provider struct {
	source Source
	logger atomic.Pointer[slog.Logger]

	mu       sync.Mutex
	backend  render.Backend
	textures map[string]render.Texture
}

// NewProvider returns a provider reading textures from src. A nil src uses
// Generated(1).
func NewProvider(src Source) *Provider {
	if src == nil {
		src = Generated(1)
	}
	p := &Provider{source: src}
	p.logger.Store(slog.New(discard{}))
	return p
}

// SetLogger sets the provider logger. nil silences it.
func (p *Provider) SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(discard{})
	}
	p.logger.Store(l)
}

// Acquire loads every static texture and program into b. It is idempotent
// for the same backend. Acquiring with a different backend releases the
// previous set first. On error nothing stays allocated.
func (p *Provider) Acquire(b render.Backend) error {
	if b == nil {
		return fmt.Errorf("assets: acquire: nil backend")
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.backend == b && p.textures != nil {
		return nil
	}
	p.releaseLocked()

	textures := make(map[string]render.Texture, len(TextureNames())+1)
	fail := func(err error) error {
		for _, t := range textures {
			b.DestroyTexture(t)
		}
		return err
	}

	for _, name := range TextureNames() {
		img, err := p.source.Open(name)
		if err != nil {
			return fail(err)
		}
		tex, err := upload(b, name, img, render.AddressRepeat)
		if err != nil {
			return fail(err)
		}
		textures[name] = tex
	}

	black := image.NewRGBA(image.Rect(0, 0, 1, 1))
	black.Pix[3] = 0xff
	tex, err := upload(b, BlackTexture, black, render.AddressClamp)
	if err != nil {
		return fail(err)
	}
	textures[BlackTexture] = tex

	compile := render.NeedsSPIRV(b)
	for _, id := range render.Programs() {
		src, err := programFor(id, compile)
		if err != nil {
			return fail(err)
		}
		if err := b.LoadProgram(src); err != nil {
			return fail(fmt.Errorf("assets: load program %v on %s: %w", id, b.Name(), err))
		}
	}

	p.backend = b
	p.textures = textures
	p.logger.Load().Info("assets: acquired", "backend", b.Name(), "textures", len(textures))
	return nil
}

func upload(b render.Backend, name string, img image.Image, address render.AddressMode) (render.Texture, error) {
	r := img.Bounds()
	if r.Empty() {
		return nil, fmt.Errorf("assets: %s is empty: %w", name, ErrMissingAsset)
	}
	tex, err := b.CreateTexture(render.AssetTextureDescriptor(name, uint32(r.Dx()), uint32(r.Dy()), address))
	if err != nil {
		return nil, fmt.Errorf("assets: create %s: %w", name, err)
	}
	if err := b.WriteTexture(tex, img); err != nil {
		b.DestroyTexture(tex)
		return nil, fmt.Errorf("assets: upload %s: %w", name, err)
	}
	return tex, nil
}

// Release destroys every loaded texture. Safe to call when nothing is
// loaded.
func (p *Provider) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.releaseLocked()
}

func (p *Provider) releaseLocked() {
	if p.textures == nil {
		return
	}
	for _, t := range p.textures {
		p.backend.DestroyTexture(t)
	}
	p.logger.Load().Info("assets: released", "backend", p.backend.Name())
	p.textures = nil
	p.backend = nil
}

// Acquired reports whether assets are loaded.
func (p *Provider) Acquired() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.textures != nil
}

// Texture returns a loaded texture by name, or nil.
func (p *Provider) Texture(name string) render.Texture {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.textures[name]
}

// Set is a snapshot of the loaded textures for one frame.
type Set struct {
	Grain           render.Texture
	HorizontalNoise render.Texture
	StripeNoise     render.Texture
	CRTMask         render.Texture
	Black           render.Texture
}

// Textures returns the loaded textures. ok is false before Acquire.
func (p *Provider) Textures() (s Set, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.textures == nil {
		return Set{}, false
	}
	return Set{
		Grain:           p.textures[Grain],
		HorizontalNoise: p.textures[HorizontalNoise],
		StripeNoise:     p.textures[StripeNoise],
		CRTMask:         p.textures[CRTMask],
		Black:           p.textures[BlackTexture],
	}, true
}
