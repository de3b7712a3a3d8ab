// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package halgpu implements render.Backend on a wgpu HAL device shared with
// the host.
//
// Every draw is one render pass of the oversized full-screen triangle.
// Draws are encoded into a single command buffer that Flush submits and
// waits for. Per-draw uniform buffers and bind groups live until that
// submission completes.
package halgpu

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/vhs/render"
)

var (
	// ErrNoHAL is returned when the device handle does not expose HAL
	// device and queue objects.
	ErrNoHAL = errors.New("halgpu: device handle does not expose HAL types")

	// ErrDeviceLost is returned when a submission does not complete.
	ErrDeviceLost = errors.New("halgpu: GPU did not complete submission")

	// ErrForeignTexture is returned for a texture created by another backend.
	ErrForeignTexture = errors.New("halgpu: texture not created by this backend")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("halgpu: backend closed")
)

// submitTimeout bounds the fence wait in Flush and ReadImage.
const submitTimeout = 5 * time.Second

// Texture is a HAL texture with its default view.
type Texture struct {
	owner   *Backend
	label   string
	w, h    uint32
	format  gputypes.TextureFormat
	address render.AddressMode
	tex     hal.Texture
	view    hal.TextureView
}

// Width returns the texture width in pixels.
func (t *Texture) Width() uint32 { return t.w }

// Height returns the texture height in pixels.
func (t *Texture) Height() uint32 { return t.h }

// Format returns the texture pixel format.
func (t *Texture) Format() gputypes.TextureFormat { return t.format }

// Label returns the debug label.
func (t *Texture) Label() string { return t.label }

// Address returns the address mode requested at creation. Programs pick
// their sampler statically, so it is informational on this backend.
func (t *Texture) Address() render.AddressMode { return t.address }

// frameResources are per-draw objects released after submission.
type frameResources struct {
	buffers    []hal.Buffer
	bindGroups []hal.BindGroup
}

// Backend is the GPU backend.
type Backend struct {
	device hal.Device
	queue  hal.Queue
	logger atomic.Pointer[slog.Logger]

	mu        sync.Mutex
	programs  map[render.ProgramID]*program
	clamp     hal.Sampler
	repeat    hal.Sampler
	black     *Texture
	textures  map[*Texture]struct{}
	encoder   hal.CommandEncoder
	recording bool
	pending   frameResources
	deferred  []func()
	draws     int
	closed    bool
}

// New creates a backend on the host's device. handle must expose
// HalDevice() and HalQueue() returning hal.Device and hal.Queue.
func New(handle render.DeviceHandle) (*Backend, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := any(handle).(halProvider)
	if !ok {
		return nil, ErrNoHAL
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is not hal.Device", ErrNoHAL)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrNoHAL)
	}
	return NewWithDevice(device, queue)
}

// NewWithDevice creates a backend on an existing device and queue. The
// backend does not destroy them.
func NewWithDevice(device hal.Device, queue hal.Queue) (*Backend, error) {
	b := &Backend{
		device:   device,
		queue:    queue,
		programs: make(map[render.ProgramID]*program),
		textures: make(map[*Texture]struct{}),
	}
	b.logger.Store(slog.New(discard{}))

	var err error
	if b.clamp, err = b.createSampler("vhs_clamp_sampler", gputypes.AddressModeClampToEdge); err != nil {
		return nil, err
	}
	if b.repeat, err = b.createSampler("vhs_repeat_sampler", gputypes.AddressModeRepeat); err != nil {
		device.DestroySampler(b.clamp)
		return nil, err
	}
	black := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	black.Pix[3] = 0xff
	if b.black, err = b.NewTexture("vhs_fallback_black", black); err != nil {
		device.DestroySampler(b.clamp)
		device.DestroySampler(b.repeat)
		return nil, err
	}
	return b, nil
}

func (b *Backend) createSampler(label string, mode gputypes.AddressMode) (hal.Sampler, error) {
	s, err := b.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        label,
		AddressModeU: mode,
		AddressModeV: mode,
		AddressModeW: mode,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
		MipmapFilter: gputypes.FilterModeLinear,
	})
	if err != nil {
		return nil, fmt.Errorf("halgpu: create %s: %w", label, err)
	}
	return s, nil
}

// Name returns "halgpu".
func (b *Backend) Name() string { return "halgpu" }

// ConsumesSPIRV reports true: shader modules are built from SPIR-V when
// a program carries it.
func (b *Backend) ConsumesSPIRV() bool { return true }

// SetLogger sets the backend logger. nil silences it.
func (b *Backend) SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(discard{})
	}
	b.logger.Store(l)
}

// CreateTexture allocates a texture and its default view.
func (b *Backend) CreateTexture(desc render.TextureDescriptor) (render.Texture, error) {
	t, err := b.createTexture(desc)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (b *Backend) createTexture(desc render.TextureDescriptor) (*Texture, error) {
	if bytesPerPixel(desc.Format) == 0 {
		return nil, fmt.Errorf("%w: %v", render.ErrUnsupportedFormat, desc.Format)
	}
	if desc.Width == 0 || desc.Height == 0 {
		return nil, fmt.Errorf("halgpu: texture %q has zero size %dx%d", desc.Label, desc.Width, desc.Height)
	}
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	tex, err := b.device.CreateTexture(&hal.TextureDescriptor{
		Label:         desc.Label,
		Size:          hal.Extent3D{Width: desc.Width, Height: desc.Height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        desc.Format,
		Usage:         textureUsage(desc.Usage),
	})
	if err != nil {
		return nil, fmt.Errorf("halgpu: create texture %q: %w", desc.Label, err)
	}
	view, err := b.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         desc.Label + "_view",
		Format:        desc.Format,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		b.device.DestroyTexture(tex)
		return nil, fmt.Errorf("halgpu: create view for %q: %w", desc.Label, err)
	}

	t := &Texture{
		owner:   b,
		label:   desc.Label,
		w:       desc.Width,
		h:       desc.Height,
		format:  desc.Format,
		address: desc.Address,
		tex:     tex,
		view:    view,
	}
	b.mu.Lock()
	b.textures[t] = struct{}{}
	b.mu.Unlock()
	return t, nil
}

// NewTexture creates an RGBA8 texture holding img. Hosts use it to hand
// camera frames to the effect.
func (b *Backend) NewTexture(label string, img image.Image) (*Texture, error) {
	r := img.Bounds()
	t, err := b.createTexture(render.TextureDescriptor{
		Label:  label,
		Width:  uint32(r.Dx()),
		Height: uint32(r.Dy()),
		Format: render.FormatColor,
		Usage:  render.TextureUsageTextureBinding | render.TextureUsageCopyDst | render.TextureUsageCopySrc,
	})
	if err != nil {
		return nil, err
	}
	if err := b.WriteTexture(t, img); err != nil {
		b.DestroyTexture(t)
		return nil, err
	}
	return t, nil
}

func (b *Backend) own(tex render.Texture) (*Texture, error) {
	t, ok := tex.(*Texture)
	if !ok || t == nil || t.owner != b {
		return nil, ErrForeignTexture
	}
	if t.tex == nil {
		return nil, fmt.Errorf("halgpu: texture %q was destroyed", t.label)
	}
	return t, nil
}

// WriteTexture uploads img into an RGBA8 texture, scaling it if the sizes
// differ.
func (b *Backend) WriteTexture(tex render.Texture, img image.Image) error {
	t, err := b.own(tex)
	if err != nil {
		return err
	}
	if t.format != gputypes.TextureFormatRGBA8Unorm {
		return fmt.Errorf("%w: upload to %v", render.ErrUnsupportedFormat, t.format)
	}
	data := straightRGBA8(img, int(t.w), int(t.h))
	b.queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: t.tex, MipLevel: 0},
		data,
		&hal.ImageDataLayout{Offset: 0, BytesPerRow: t.w * 4, RowsPerImage: t.h},
		&hal.Extent3D{Width: t.w, Height: t.h, DepthOrArrayLayers: 1},
	)
	return nil
}

// DestroyTexture frees tex. Textures still referenced by unsubmitted
// draws are freed after the next Flush.
func (b *Backend) DestroyTexture(tex render.Texture) {
	t, err := b.own(tex)
	if err != nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.textures, t)
	if b.recording {
		// The encoder may still reference the view; defer to Flush.
		b.deferred = append(b.deferred, t.release())
		return
	}
	t.release()()
}

// release detaches the HAL objects and returns a func that destroys them.
func (t *Texture) release() func() {
	tex, view, dev := t.tex, t.view, t.owner.device
	t.tex, t.view = nil, nil
	return func() {
		dev.DestroyTextureView(view)
		dev.DestroyTexture(tex)
	}
}

// LoadProgram builds the program's shader module and bind group layout.
// Pipelines are created on first use per pass and target format.
func (b *Backend) LoadProgram(src render.ProgramSource) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	if old := b.programs[src.ID]; old != nil {
		old.destroy(b.device)
	}
	p, err := newProgram(b.device, src)
	if err != nil {
		delete(b.programs, src.ID)
		return err
	}
	b.programs[src.ID] = p
	return nil
}

// Draw encodes one full-screen render pass into call.Target.
func (b *Backend) Draw(call render.DrawCall) error {
	if call.Target == nil {
		return render.ErrNoTarget
	}
	dst, err := b.own(call.Target)
	if err != nil {
		return fmt.Errorf("halgpu: draw %q target: %w", call.Label, err)
	}
	params := call.Params
	if params == nil {
		params = render.AcquireParams()
		defer render.ReleaseParams(params)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	prog := b.programs[call.Program]
	if prog == nil || !call.Program.Valid(call.Pass) {
		return fmt.Errorf("%w: %v pass %d", render.ErrUnknownProgram, call.Program, call.Pass)
	}

	views := make([]hal.TextureView, 0, len(prog.textures))
	for _, name := range prog.textures {
		tex := params.Texture(name)
		if tex == nil {
			views = append(views, b.black.view)
			continue
		}
		t, err := b.own(tex)
		if err != nil {
			return fmt.Errorf("halgpu: draw %q binds %s: %w", call.Label, name, err)
		}
		if t == dst {
			return fmt.Errorf("halgpu: draw %q samples its own target %q", call.Label, dst.label)
		}
		views = append(views, t.view)
	}

	blend := render.PassBlend(call.Program, call.Pass)
	pipeline, err := prog.pipeline(b.device, call.Pass, dst.format, blend)
	if err != nil {
		return err
	}

	uniforms := packUniforms(params)
	buf, err := b.device.CreateBuffer(&hal.BufferDescriptor{
		Label: call.Label + "_params",
		Size:  uniformSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("halgpu: draw %q uniform buffer: %w", call.Label, err)
	}
	b.queue.WriteBuffer(buf, 0, uniforms)
	b.pending.buffers = append(b.pending.buffers, buf)

	entries := make([]gputypes.BindGroupEntry, 0, render.FirstTextureBinding+len(views))
	entries = append(entries,
		gputypes.BindGroupEntry{Binding: 0, Resource: gputypes.BufferBinding{
			Buffer: buf.NativeHandle(), Offset: 0, Size: uniformSize,
		}},
		gputypes.BindGroupEntry{Binding: 1, Resource: gputypes.SamplerBinding{Sampler: b.clamp.NativeHandle()}},
		gputypes.BindGroupEntry{Binding: 2, Resource: gputypes.SamplerBinding{Sampler: b.repeat.NativeHandle()}},
	)
	for i, v := range views {
		entries = append(entries, gputypes.BindGroupEntry{
			Binding:  uint32(render.FirstTextureBinding + i),
			Resource: gputypes.TextureViewBinding{TextureView: v.NativeHandle()},
		})
	}
	bindGroup, err := b.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   call.Label + "_bind",
		Layout:  prog.layout,
		Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("halgpu: draw %q bind group: %w", call.Label, err)
	}
	b.pending.bindGroups = append(b.pending.bindGroups, bindGroup)

	if err := b.beginLocked(); err != nil {
		return err
	}
	load := gputypes.LoadOpClear
	if blend == render.BlendAlpha {
		load = gputypes.LoadOpLoad
	}
	rp := b.encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: call.Label,
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       dst.view,
			LoadOp:     load,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: gputypes.Color{R: 0, G: 0, B: 0, A: 0},
		}},
	})
	rp.SetPipeline(pipeline)
	rp.SetBindGroup(0, bindGroup, nil)
	vertices := call.VertexCount
	if vertices == 0 {
		vertices = render.FullScreenVertices
	}
	rp.Draw(vertices, 1, 0, 0)
	rp.End()
	b.draws++

	b.logger.Load().Debug("halgpu: draw",
		"label", call.Label, "program", call.Program.String(), "pass", call.Pass,
		"target", dst.label, "size", [2]uint32{dst.w, dst.h})
	return nil
}

// beginLocked opens the frame encoder if it is not recording.
func (b *Backend) beginLocked() error {
	if b.recording {
		return nil
	}
	enc, err := b.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "vhs_encoder"})
	if err != nil {
		return fmt.Errorf("halgpu: create command encoder: %w", err)
	}
	if err := enc.BeginEncoding("vhs_frame"); err != nil {
		return fmt.Errorf("halgpu: begin encoding: %w", err)
	}
	b.encoder = enc
	b.recording = true
	return nil
}

// Flush submits every draw recorded since the last Flush and waits for
// the GPU to finish them.
func (b *Backend) Flush() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	return b.flushLocked()
}

func (b *Backend) flushLocked() error {
	defer b.releasePendingLocked()
	if !b.recording {
		return nil
	}
	b.recording = false
	cmdBuf, err := b.encoder.EndEncoding()
	b.encoder = nil
	if err != nil {
		return fmt.Errorf("halgpu: end encoding: %w", err)
	}
	defer b.device.FreeCommandBuffer(cmdBuf)
	draws := b.draws
	b.draws = 0
	if err := b.submitLocked(cmdBuf); err != nil {
		return err
	}
	b.logger.Load().Debug("halgpu: flushed", "draws", draws)
	return nil
}

// submitLocked submits cmdBuf and waits on a fence.
func (b *Backend) submitLocked(cmdBuf hal.CommandBuffer) error {
	fence, err := b.device.CreateFence()
	if err != nil {
		return fmt.Errorf("halgpu: create fence: %w", err)
	}
	defer b.device.DestroyFence(fence)
	if err := b.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("halgpu: submit: %w", err)
	}
	ok, err := b.device.Wait(fence, 1, submitTimeout)
	return waitError(ok, err)
}

// waitError maps a fence wait result to ErrDeviceLost.
func waitError(ok bool, err error) error {
	switch {
	case err != nil:
		return fmt.Errorf("%w: wait: %w", ErrDeviceLost, err)
	case !ok:
		return fmt.Errorf("%w: fence timed out after %v", ErrDeviceLost, submitTimeout)
	}
	return nil
}

// releasePendingLocked destroys per-draw objects and deferred textures.
func (b *Backend) releasePendingLocked() {
	for _, bg := range b.pending.bindGroups {
		b.device.DestroyBindGroup(bg)
	}
	for _, buf := range b.pending.buffers {
		b.device.DestroyBuffer(buf)
	}
	b.pending = frameResources{}
	for _, fn := range b.deferred {
		fn()
	}
	b.deferred = nil
}

// ReadImage flushes pending draws and copies a 4-byte-per-texel texture
// back into CPU memory.
func (b *Backend) ReadImage(tex render.Texture) (*image.RGBA, error) {
	t, err := b.own(tex)
	if err != nil {
		return nil, err
	}
	if bytesPerPixel(t.format) != 4 {
		return nil, fmt.Errorf("%w: readback of %v", render.ErrUnsupportedFormat, t.format)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}
	if err := b.flushLocked(); err != nil {
		return nil, err
	}

	pitch := alignedRowBytes(t.w, 4)
	size := uint64(pitch) * uint64(t.h)
	staging, err := b.device.CreateBuffer(&hal.BufferDescriptor{
		Label: t.label + "_readback",
		Size:  size,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("halgpu: create staging buffer: %w", err)
	}
	defer b.device.DestroyBuffer(staging)

	enc, err := b.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "vhs_readback"})
	if err != nil {
		return nil, fmt.Errorf("halgpu: create command encoder: %w", err)
	}
	if err := enc.BeginEncoding("vhs_readback"); err != nil {
		return nil, fmt.Errorf("halgpu: begin encoding: %w", err)
	}
	enc.TransitionTextures([]hal.TextureBarrier{{
		Texture: t.tex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageRenderAttachment,
			NewUsage: gputypes.TextureUsageCopySrc,
		},
	}})
	enc.CopyTextureToBuffer(t.tex, staging, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{Offset: 0, BytesPerRow: pitch, RowsPerImage: t.h},
		TextureBase:  hal.ImageCopyTexture{Texture: t.tex, MipLevel: 0},
		Size:         hal.Extent3D{Width: t.w, Height: t.h, DepthOrArrayLayers: 1},
	}})
	enc.TransitionTextures([]hal.TextureBarrier{{
		Texture: t.tex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageCopySrc,
			NewUsage: gputypes.TextureUsageRenderAttachment,
		},
	}})
	cmdBuf, err := enc.EndEncoding()
	if err != nil {
		return nil, fmt.Errorf("halgpu: end encoding: %w", err)
	}
	defer b.device.FreeCommandBuffer(cmdBuf)
	if err := b.submitLocked(cmdBuf); err != nil {
		return nil, err
	}

	data := make([]byte, size)
	if err := b.queue.ReadBuffer(staging, 0, data); err != nil {
		return nil, fmt.Errorf("halgpu: readback: %w", err)
	}
	return unpackRows(data, t.w, t.h, pitch, t.format == gputypes.TextureFormatBGRA8Unorm), nil
}

// Close waits for pending work and destroys every object the backend
// created. The device and queue stay with the host.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	err := b.flushLocked()
	b.closed = true

	for _, p := range b.programs {
		p.destroy(b.device)
	}
	b.programs = nil
	for t := range b.textures {
		t.release()()
	}
	b.textures = nil
	b.device.DestroySampler(b.clamp)
	b.device.DestroySampler(b.repeat)
	b.logger.Load().Info("halgpu: closed")
	return err
}
