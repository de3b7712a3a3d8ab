// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package vhs

import (
	"fmt"
	"image"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/gogpu/vhs/internal/assets"
	"github.com/gogpu/vhs/internal/graph"
	"github.com/gogpu/vhs/internal/passes"
	"github.com/gogpu/vhs/internal/sizing"
	"github.com/gogpu/vhs/internal/software"
	"github.com/gogpu/vhs/render"
)

// Objects that accept a logger. SetLogger forwards to every registered one.
var (
	backendsMu sync.Mutex
	backends   = make(map[any]struct{})
)

func register(objs ...any) {
	l := Logger()
	backendsMu.Lock()
	for _, o := range objs {
		backends[o] = struct{}{}
	}
	backendsMu.Unlock()
	for _, o := range objs {
		propagateLogger(o, l)
	}
}

func unregister(objs ...any) {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	for _, o := range objs {
		delete(backends, o)
	}
}

// SkipReason says why a frame was passed through unchanged.
type SkipReason uint8

const (
	// SkipNone means the effect was applied.
	SkipNone SkipReason = iota

	// SkipCameraType means the camera is a preview or reflection camera.
	SkipCameraType

	// SkipNoSettings means the frame carried no settings.
	SkipNoSettings

	// SkipInactive means the settings do not activate the effect.
	SkipInactive
)

func (r SkipReason) String() string {
	switch r {
	case SkipNone:
		return "none"
	case SkipCameraType:
		return "camera type"
	case SkipNoSettings:
		return "no settings"
	case SkipInactive:
		return "inactive"
	}
	return fmt.Sprintf("SkipReason(%d)", uint8(r))
}

// Frame is one camera's input for one frame.
type Frame struct {
	Camera Camera

	// Source is the rendered scene color. It is only read.
	Source render.Texture

	// Width and Height default to the source size when zero.
	Width, Height int

	// DeltaTime is the time since the camera's previous frame.
	DeltaTime time.Duration

	// Settings is the resolved configuration for this camera. nil skips
	// the frame.
	Settings *Settings

	// Target, if set, receives the composite. Otherwise the effect
	// allocates an output texture the caller releases with ReleaseOutput.
	Target render.Texture
}

// Plan summarizes the resolved per-frame sizing.
type Plan struct {
	LowResWidth, LowResHeight int
	BlurAmount                float32
	BlurIterations            int
	Levels                    []image.Point
	NoiseEnabled              bool
	SmearEnabled              bool
	CRTEnabled                bool
}

func publicPlan(p *sizing.Plan) Plan {
	out := Plan{
		LowResWidth:    p.LowResWidth,
		LowResHeight:   p.LowResHeight,
		BlurAmount:     p.BlurAmount,
		BlurIterations: p.BlurIterations,
		Levels:         make([]image.Point, len(p.Levels)),
		NoiseEnabled:   p.NoiseEnabled,
		SmearEnabled:   p.SmearEnabled,
		CRTEnabled:     p.CRTEnabled(),
	}
	for i, lv := range p.Levels {
		out.Levels[i] = image.Pt(lv.Width, lv.Height)
	}
	return out
}

// Result is the outcome of Render.
type Result struct {
	// Output replaces the camera color for downstream consumers. For a
	// skipped frame it is the unchanged source.
	Output render.Texture

	// Applied is true when the effect ran.
	Applied bool

	// Skip says why the frame was not processed.
	Skip SkipReason

	// Plan is the sizing the frame was rendered with. Zero when skipped.
	Plan Plan

	// Schedule lists the passes that ran, in order.
	Schedule []string

	allocated bool
}

// Effect applies the VHS pipeline to camera frames. Render may be called
// from several goroutines; frames are processed one at a time.
type Effect struct {
	backend     render.Backend
	ownsBackend bool
	assets      *assets.Provider
	states      *StateStore
	rand        func() float32
	crt         bool

	mu     sync.Mutex
	closed bool
}

// New creates an effect.
func New(opts ...Option) (*Effect, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	e := &Effect{
		backend: o.backend,
		assets:  assets.NewProvider(o.source),
		states:  o.states,
		rand:    o.rand,
		crt:     o.crt,
	}
	if o.backendSet && o.backend == nil {
		return nil, ErrNilBackend
	}
	if e.backend == nil {
		e.backend = software.New(0)
		e.ownsBackend = true
	}
	if e.states == nil {
		e.states = NewStateStore()
	}
	if e.rand == nil {
		e.rand = rand.Float32
	}
	register(e.backend, e.assets)

	Logger().Info("vhs: effect created", "backend", e.backend.Name(), "crt", e.crt)

	if o.eager {
		if err := e.assets.Acquire(e.backend); err != nil {
			_ = e.Close()
			return nil, fmt.Errorf("vhs: %w", err)
		}
	}
	return e, nil
}

// Backend returns the backend the effect draws with. Hosts create source
// textures through it.
func (e *Effect) Backend() render.Backend { return e.backend }

// Render processes one frame. Skipped frames are not errors: the result
// carries the source unchanged and the reason.
func (e *Effect) Render(f Frame) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return Result{}, ErrClosed
	}

	skip := Result{Output: f.Source}
	if !f.Camera.Type.Processed() {
		skip.Skip = SkipCameraType
		return skip, nil
	}
	if f.Settings == nil {
		skip.Skip = SkipNoSettings
		return skip, nil
	}
	settings := f.Settings.Clamp()
	if !settings.IsActive() {
		skip.Skip = SkipInactive
		return skip, nil
	}

	if f.Source == nil {
		return Result{}, fmt.Errorf("%w: no source texture", ErrInvalidFrame)
	}
	w, h := f.Width, f.Height
	if w == 0 && h == 0 {
		w, h = int(f.Source.Width()), int(f.Source.Height())
	}
	if w <= 0 || h <= 0 {
		return Result{}, fmt.Errorf("%w: size %dx%d", ErrInvalidFrame, w, h)
	}

	if err := e.assets.Acquire(e.backend); err != nil {
		return Result{}, fmt.Errorf("vhs: %w", err)
	}
	set, _ := e.assets.Textures()

	cfg := settings.config()
	if !e.crt {
		cfg.CRTPixelIntensity, cfg.CRTScanlineIntensity = 0, 0
	}
	plan := sizing.Resolve(w, h, cfg)

	in := &passes.Inputs{
		Backend:   e.backend,
		Plan:      &plan,
		Assets:    set,
		DeltaTime: f.DeltaTime,
		Rand:      e.rand,
	}
	if plan.NoiseEnabled {
		in.State = e.states.GetOrCreate(f.Camera.ID)
	}

	g := graph.New(e.backend)
	source := g.Import("source", f.Source)
	var output graph.ResourceID
	if f.Target != nil {
		output = g.Import("target", f.Target)
	} else {
		output = g.Create("output", render.TextureDescriptor{
			Label:  "vhs_output",
			Width:  uint32(w),
			Height: uint32(h),
			Format: f.Source.Format(),
			Usage: render.TextureUsageTextureBinding | render.TextureUsageRenderAttachment |
				render.TextureUsageCopySrc,
		})
		if err := g.Export(output); err != nil {
			return Result{}, err
		}
	}

	fr, err := passes.Record(g, in, source, output)
	if err != nil {
		return Result{}, fmt.Errorf("vhs: record: %w", err)
	}
	schedule, err := g.Schedule()
	if err != nil {
		return Result{}, fmt.Errorf("vhs: compile: %w", err)
	}
	if err := g.Execute(); err != nil {
		return Result{}, fmt.Errorf("vhs: execute: %w", err)
	}
	if err := e.backend.Flush(); err != nil {
		if f.Target == nil {
			e.backend.DestroyTexture(g.Texture(output))
		}
		return Result{}, fmt.Errorf("vhs: flush: %w", err)
	}
	fr.Phase.Commit()

	stats := g.Stats()
	Logger().Debug("vhs: frame",
		"camera", uint64(f.Camera.ID),
		"size", [2]int{w, h},
		"levels", plan.BlurIterations,
		"noise", plan.NoiseEnabled,
		"smear", plan.SmearEnabled,
		"passes", stats.Passes,
		"allocations", stats.Allocations,
		"peak_live", stats.PeakLive)

	return Result{
		Output:    g.Texture(output),
		Applied:   true,
		Plan:      publicPlan(&plan),
		Schedule:  schedule,
		allocated: f.Target == nil,
	}, nil
}

// ReleaseOutput destroys the output texture the effect allocated for r.
// It does nothing for skipped frames or frames rendered into a Target.
func (e *Effect) ReleaseOutput(r Result) {
	if r.allocated && r.Output != nil {
		e.backend.DestroyTexture(r.Output)
	}
}

// Forget drops the temporal state of a camera. Hosts call it when a camera
// is destroyed; otherwise state lives as long as the effect's store.
func (e *Effect) Forget(id CameraID) {
	e.states.Forget(id)
}

// Close releases the static assets and closes the backend if the effect
// created it. Render fails with ErrClosed afterwards.
func (e *Effect) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	e.assets.Release()
	unregister(e.backend, e.assets)
	Logger().Info("vhs: effect closed", "backend", e.backend.Name())
	if e.ownsBackend {
		if err := e.backend.Close(); err != nil {
			Logger().Warn("vhs: backend close failed", "err", err)
			return fmt.Errorf("vhs: close backend: %w", err)
		}
	}
	return nil
}

func (s Settings) config() sizing.Config {
	return sizing.Config{
		Intensity:            s.Intensity,
		ColorBleedIntensity:  s.ColorBleedIntensity,
		ColorBleedRadius:     s.ColorBleedRadius,
		ColorBleedDirection:  s.ColorBleedDirection,
		GrainIntensity:       s.GrainIntensity,
		GrainScale:           s.GrainScale,
		SmearIntensity:       s.SmearIntensity,
		StripeNoiseDensity:   s.StripeNoiseDensity,
		StripeNoiseOpacity:   s.StripeNoiseOpacity,
		EdgeIntensity:        s.EdgeIntensity,
		EdgeDistance:         s.EdgeDistance,
		CRTSize:              s.CRTSize,
		CRTPixelIntensity:    s.CRTPixelIntensity,
		CRTScanlineIntensity: s.CRTScanlineIntensity,
	}
}
