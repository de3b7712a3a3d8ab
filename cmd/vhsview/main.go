// Command vhsview shows the VHS effect live on an image in a window.
//
// Keys: Up/Down change intensity, S toggles smear, N toggles stripe
// noise, C toggles the CRT mask, Space pauses time.
package main

import (
	"flag"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/gogpu/vhs"
	"github.com/gogpu/vhs/internal/software"
)

type viewer struct {
	backend *software.Backend
	effect  *vhs.Effect
	source  *software.Texture
	screen  *ebiten.Image

	settings vhs.Settings
	smear    float32
	noise    float32
	paused   bool
	last     time.Time
	status   string
}

func (v *viewer) Update() error {
	step := float32(0.05)
	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyArrowUp):
		_ = v.settings.Set("intensity", v.settings.Intensity+step)
	case inpututil.IsKeyJustPressed(ebiten.KeyArrowDown):
		_ = v.settings.Set("intensity", v.settings.Intensity-step)
	case inpututil.IsKeyJustPressed(ebiten.KeyS):
		v.smear, v.settings.SmearIntensity = v.settings.SmearIntensity, v.smear
	case inpututil.IsKeyJustPressed(ebiten.KeyN):
		v.noise, v.settings.StripeNoiseOpacity = v.settings.StripeNoiseOpacity, v.noise
	case inpututil.IsKeyJustPressed(ebiten.KeyC):
		v.settings.CRTPixelIntensity = 0.5 - v.settings.CRTPixelIntensity
		v.settings.CRTScanlineIntensity = 0.5 - v.settings.CRTScanlineIntensity
	case inpututil.IsKeyJustPressed(ebiten.KeySpace):
		v.paused = !v.paused
	}

	now := time.Now()
	dt := now.Sub(v.last)
	v.last = now
	if v.paused {
		dt = 0
	}

	res, err := v.effect.Render(vhs.Frame{
		Camera:    vhs.Camera{ID: 1, Type: vhs.CameraGame},
		Source:    v.source,
		DeltaTime: dt,
		Settings:  &v.settings,
	})
	if err != nil {
		return err
	}
	defer v.effect.ReleaseOutput(res)
	img, err := v.backend.ReadImage(res.Output)
	if err != nil {
		return err
	}
	v.screen.WritePixels(img.Pix)
	v.status = fmt.Sprintf("intensity %.2f  smear %.2f  noise %.2f  passes %d  %s",
		v.settings.Intensity, v.settings.SmearIntensity, v.settings.StripeNoiseOpacity,
		len(res.Schedule), res.Skip)
	return nil
}

func (v *viewer) Draw(screen *ebiten.Image) {
	screen.DrawImage(v.screen, nil)
	ebitenutil.DebugPrint(screen, v.status)
}

func (v *viewer) Layout(int, int) (int, int) {
	b := v.screen.Bounds()
	return b.Dx(), b.Dy()
}

func main() {
	in := flag.String("in", "", "input image (png or jpeg)")
	settingsFile := flag.String("settings", "", "JSON settings file")
	workers := flag.Int("workers", 0, "CPU workers, 0 for GOMAXPROCS")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	vhs.SetLogger(logger)

	if err := run(*in, *settingsFile, *workers); err != nil {
		logger.Error("vhsview", "err", err)
		os.Exit(1)
	}
}

func run(in, settingsFile string, workers int) error {
	if in == "" {
		return fmt.Errorf("-in is required")
	}
	f, err := os.Open(in)
	if err != nil {
		return err
	}
	src, _, err := image.Decode(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("decode %s: %w", in, err)
	}

	settings := vhs.DefaultSettings()
	settings.Intensity = 1
	settings.SmearIntensity = 0.4
	if settingsFile != "" {
		if settings, err = vhs.LoadSettingsFile(settingsFile); err != nil {
			return err
		}
	}

	backend := software.New(workers)
	defer backend.Close()
	effect, err := vhs.New(vhs.WithBackend(backend), vhs.WithEagerAssets())
	if err != nil {
		return err
	}
	defer effect.Close()

	source, err := backend.NewTexture("input", src)
	if err != nil {
		return err
	}
	defer backend.DestroyTexture(source)

	b := src.Bounds()
	v := &viewer{
		backend:  backend,
		effect:   effect,
		source:   source,
		screen:   ebiten.NewImage(b.Dx(), b.Dy()),
		settings: settings,
		last:     time.Now(),
	}
	ebiten.SetWindowSize(b.Dx(), b.Dy())
	ebiten.SetWindowTitle("vhsview")
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	return ebiten.RunGame(v)
}
