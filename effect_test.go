package vhs

import (
	"errors"
	"image"
	"image/color"
	"slices"
	"testing"
	"testing/fstest"
	"time"

	"github.com/gogpu/vhs/internal/assets"
	"github.com/gogpu/vhs/internal/software"
	"github.com/gogpu/vhs/render"
	"github.com/gogpu/vhs/render/rendertest"
)

func activeSettings() *Settings {
	s := DefaultSettings()
	s.Intensity = 1
	return &s
}

func half() float32 { return 0.5 }

func newRecording(t *testing.T, opts ...Option) (*Effect, *rendertest.Backend) {
	t.Helper()
	b := rendertest.New()
	fx, err := New(append([]Option{WithBackend(b), WithRand(half)}, opts...)...)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = fx.Close() })
	return fx, b
}

func TestRenderSkips(t *testing.T) {
	inactive := DefaultSettings()
	noContribution := Settings{Intensity: 1, SmearIntensity: 0.5}

	tests := []struct {
		name  string
		frame Frame
		want  SkipReason
	}{
		{"preview camera", Frame{Camera: Camera{Type: CameraPreview}}, SkipCameraType},
		{"reflection camera", Frame{Camera: Camera{Type: CameraReflection}, Settings: activeSettings()}, SkipCameraType},
		{"no settings", Frame{}, SkipNoSettings},
		{"zero intensity", Frame{Settings: &inactive}, SkipInactive},
		{"nothing contributes", Frame{Settings: &noContribution}, SkipInactive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx, b := newRecording(t)
			src := b.NewTexture("src", 64, 64)
			tt.frame.Source = src

			res, err := fx.Render(tt.frame)
			if err != nil {
				t.Fatalf("Render() = %v", err)
			}
			if res.Applied || res.Skip != tt.want {
				t.Errorf("Render() = applied %v skip %v, want skip %v", res.Applied, res.Skip, tt.want)
			}
			if res.Output != src {
				t.Error("skipped frame did not pass the source through")
			}
			if len(b.Draws()) != 0 || b.Programs() != 0 {
				t.Errorf("skipped frame drew %d times and loaded %d programs", len(b.Draws()), b.Programs())
			}
		})
	}
}

func TestRender1080p(t *testing.T) {
	fx, b := newRecording(t)
	src := b.NewTexture("src", 1920, 1080)

	res, err := fx.Render(Frame{
		Camera:    Camera{ID: 1},
		Source:    src,
		DeltaTime: time.Second / 60,
		Settings:  activeSettings(),
	})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Applied || res.Skip != SkipNone {
		t.Fatalf("Render() = %+v, want applied", res)
	}

	var widths []int
	for _, p := range res.Plan.Levels {
		widths = append(widths, p.X)
	}
	if want := []int{960, 480, 240, 120, 60, 30, 15}; !slices.Equal(widths, want) {
		t.Errorf("level widths = %v, want %v", widths, want)
	}
	if res.Plan.LowResWidth != 640 || res.Plan.LowResHeight != 480 {
		t.Errorf("low res = %dx%d, want 640x480", res.Plan.LowResWidth, res.Plan.LowResHeight)
	}
	if len(res.Schedule) != 14 || res.Schedule[0] != "noise" || res.Schedule[13] != "composite" {
		t.Errorf("schedule = %v", res.Schedule)
	}

	out := res.Output
	if out == nil || out == src || out.Width() != 1920 || out.Height() != 1080 || out.Format() != src.Format() {
		t.Fatalf("output = %v", out)
	}
	if b.Flushes() != 1 {
		t.Errorf("flushes = %d, want 1", b.Flushes())
	}
	if b.Programs() != 4 {
		t.Errorf("programs = %d, want 4", b.Programs())
	}

	// 5 static textures, the source, and the output.
	if got := len(b.Live()); got != 7 {
		t.Errorf("live textures = %d, want 7", got)
	}
	fx.ReleaseOutput(res)
	if got := len(b.Live()); got != 6 {
		t.Errorf("live textures after ReleaseOutput = %d, want 6", got)
	}
}

func TestRenderIntoTarget(t *testing.T) {
	fx, b := newRecording(t)
	src := b.NewTexture("src", 320, 240)
	dst := b.NewTexture("dst", 320, 240)

	res, err := fx.Render(Frame{Source: src, Target: dst, Settings: activeSettings()})
	if err != nil {
		t.Fatal(err)
	}
	if res.Output != dst {
		t.Errorf("output = %v, want the target", res.Output)
	}
	fx.ReleaseOutput(res)
	if dst.Destroyed {
		t.Error("ReleaseOutput destroyed a host target")
	}
}

func TestRenderInvalidFrame(t *testing.T) {
	fx, b := newRecording(t)
	src := b.NewTexture("src", 32, 32)

	tests := []struct {
		name  string
		frame Frame
	}{
		{"no source", Frame{Settings: activeSettings()}},
		{"negative size", Frame{Source: src, Width: -4, Height: 8, Settings: activeSettings()}},
		{"half size", Frame{Source: src, Width: 8, Settings: activeSettings()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := fx.Render(tt.frame); !errors.Is(err, ErrInvalidFrame) {
				t.Errorf("Render() = %v, want ErrInvalidFrame", err)
			}
		})
	}
}

func TestNewNilBackend(t *testing.T) {
	if _, err := New(WithBackend(nil)); !errors.Is(err, ErrNilBackend) {
		t.Errorf("New(WithBackend(nil)) = %v, want ErrNilBackend", err)
	}
}

func TestClose(t *testing.T) {
	b := rendertest.New()
	fx, err := New(WithBackend(b), WithEagerAssets())
	if err != nil {
		t.Fatal(err)
	}
	if len(b.Live()) != 5 {
		t.Errorf("eager assets: live = %d, want 5", len(b.Live()))
	}
	if err := fx.Close(); err != nil {
		t.Fatal(err)
	}
	if err := fx.Close(); err != nil {
		t.Errorf("second Close() = %v", err)
	}
	if len(b.Live()) != 0 {
		t.Errorf("live textures after Close = %d, want 0", len(b.Live()))
	}
	if b.Closed() {
		t.Error("Close closed a backend the effect does not own")
	}
	if _, err := fx.Render(Frame{Settings: activeSettings()}); !errors.Is(err, ErrClosed) {
		t.Errorf("Render after Close = %v, want ErrClosed", err)
	}
}

func TestMissingAssets(t *testing.T) {
	empty := fstest.MapFS{}

	if _, err := New(WithBackend(rendertest.New()), WithAssets(empty), WithEagerAssets()); !errors.Is(err, assets.ErrMissingAsset) {
		t.Errorf("eager New() = %v, want ErrMissingAsset", err)
	}

	fx, b := newRecording(t, WithAssets(empty))
	src := b.NewTexture("src", 32, 32)
	if _, err := fx.Render(Frame{Source: src, Settings: activeSettings()}); !errors.Is(err, assets.ErrMissingAsset) {
		t.Errorf("lazy Render() = %v, want ErrMissingAsset", err)
	}
	if len(b.Draws()) != 0 {
		t.Error("drew with missing assets")
	}
}

func TestTemporalStatePerCamera(t *testing.T) {
	store := NewStateStore()
	fx, b := newRecording(t, WithStateStore(store))
	src := b.NewTexture("src", 128, 96)

	render := func(id CameraID) {
		t.Helper()
		res, err := fx.Render(Frame{Camera: Camera{ID: id}, Source: src, DeltaTime: time.Second, Settings: activeSettings()})
		if err != nil {
			t.Fatal(err)
		}
		fx.ReleaseOutput(res)
	}
	render(1)
	render(1)
	render(2)

	if store.Len() != 2 {
		t.Fatalf("store holds %d cameras, want 2", store.Len())
	}
	one, _ := store.Get(1)
	two, _ := store.Get(2)
	if one.Steps() != 2 || two.Steps() != 1 {
		t.Errorf("steps = %d, %d; want 2, 1", one.Steps(), two.Steps())
	}
	if got := one.Phase(); got != 0.008 {
		t.Errorf("camera 1 phase = %v, want 0.008", got)
	}

	fx.Forget(1)
	if _, ok := store.Get(1); ok {
		t.Error("Forget left camera 1 in the store")
	}
}

func TestDroppedFrameKeepsPhase(t *testing.T) {
	tests := []struct {
		name  string
		setup func(b *rendertest.Backend)
	}{
		{"draw fails", func(b *rendertest.Backend) { b.FailDraw = "composite" }},
		{"flush fails", func(b *rendertest.Backend) { b.FailFlush = true }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewStateStore()
			fx, b := newRecording(t, WithStateStore(store))
			src := b.NewTexture("src", 128, 96)
			frame := Frame{Camera: Camera{ID: 7}, Source: src, DeltaTime: time.Second, Settings: activeSettings()}

			res, err := fx.Render(frame)
			if err != nil {
				t.Fatal(err)
			}
			fx.ReleaseOutput(res)

			tt.setup(b)
			if _, err := fx.Render(frame); !errors.Is(err, rendertest.ErrInjected) {
				t.Fatalf("Render() = %v, want ErrInjected", err)
			}
			st, _ := store.Get(7)
			if st.Steps() != 1 || st.Phase() != 0.004 {
				t.Errorf("after dropped frame: steps %d phase %v, want 1 0.004", st.Steps(), st.Phase())
			}
		})
	}
}

func TestNoStateWithoutNoise(t *testing.T) {
	store := NewStateStore()
	fx, b := newRecording(t, WithStateStore(store))
	s := activeSettings()
	s.StripeNoiseDensity = 0

	res, err := fx.Render(Frame{Camera: Camera{ID: 3}, Source: b.NewTexture("src", 64, 64), Settings: s})
	if err != nil {
		t.Fatal(err)
	}
	if res.Plan.NoiseEnabled || slices.Contains(res.Schedule, "noise") {
		t.Error("noise ran with zero density")
	}
	if store.Len() != 0 {
		t.Errorf("store holds %d cameras, want 0", store.Len())
	}
}

func TestWithCRT(t *testing.T) {
	s := activeSettings()
	s.CRTPixelIntensity = 1

	for _, enabled := range []bool{true, false} {
		fx, b := newRecording(t, WithCRT(enabled))
		res, err := fx.Render(Frame{Source: b.NewTexture("src", 64, 64), Settings: s})
		if err != nil {
			t.Fatal(err)
		}
		if res.Plan.CRTEnabled != enabled {
			t.Errorf("WithCRT(%v): CRTEnabled = %v", enabled, res.Plan.CRTEnabled)
		}
	}
}

func gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x * 255 / w), G: uint8(y * 255 / h), B: 128, A: 255})
		}
	}
	return img
}

func renderCPU(t *testing.T, s *Settings) *image.RGBA {
	t.Helper()
	fx, err := New(WithRand(half), WithGeneratedAssets(9))
	if err != nil {
		t.Fatal(err)
	}
	defer fx.Close()
	cpu := fx.Backend().(*software.Backend)
	src, err := cpu.NewTexture("frame", gradient(96, 64))
	if err != nil {
		t.Fatal(err)
	}
	res, err := fx.Render(Frame{Camera: Camera{ID: 1}, Source: src, DeltaTime: time.Second / 30, Settings: s})
	if err != nil {
		t.Fatal(err)
	}
	out, err := cpu.ReadImage(res.Output)
	if err != nil {
		t.Fatal(err)
	}
	fx.ReleaseOutput(res)
	return out
}

func TestRenderSoftwareDeterministic(t *testing.T) {
	s := activeSettings()
	s.SmearIntensity = 0.5
	s.CRTScanlineIntensity = 0.5

	a, b := renderCPU(t, s), renderCPU(t, s)
	if a.Bounds() != image.Rect(0, 0, 96, 64) {
		t.Fatalf("output bounds = %v", a.Bounds())
	}
	if !slices.Equal(a.Pix, b.Pix) {
		t.Error("identical inputs rendered different pixels")
	}
	if slices.Equal(a.Pix, gradient(96, 64).Pix) {
		t.Error("effect left the frame unchanged")
	}
	for i := 3; i < len(a.Pix); i += 4 {
		if a.Pix[i] != 255 {
			t.Fatalf("alpha at pixel %d = %d, want 255", i/4, a.Pix[i])
		}
	}
}

func TestSoftwareBackendClosedWithEffect(t *testing.T) {
	fx, err := New()
	if err != nil {
		t.Fatal(err)
	}
	cpu := fx.Backend().(*software.Backend)
	_ = fx.Close()
	if err := cpu.LoadProgram(render.ProgramSource{ID: render.ProgramBlur}); !errors.Is(err, software.ErrClosed) {
		t.Errorf("owned backend still open: LoadProgram = %v", err)
	}
}
