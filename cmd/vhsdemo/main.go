// Command vhsdemo applies the VHS effect to an image on the CPU backend and
// writes the result as PNG.
//
// Usage:
//
//	vhsdemo -in photo.jpg -out vhs.png -intensity 1 -smearIntensity 0.4
//	vhsdemo -in photo.png -frames 30 -out frames/vhs.png -osd "PLAY ▶"
//
// With -frames > 1 the output name gets a frame number before its
// extension, and the temporal noise advances by -dt per frame.
package main

import (
	"flag"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/image/draw"
	"golang.org/x/term"

	"github.com/gogpu/vhs"
	"github.com/gogpu/vhs/internal/software"
)

// paramFlag sets one settings field from the command line.
type paramFlag struct {
	settings *vhs.Settings
	name     string
}

func (f paramFlag) String() string {
	if f.settings == nil {
		return ""
	}
	v, _ := f.settings.Get(f.name)
	return strconv.FormatFloat(float64(v), 'g', -1, 32)
}

func (f paramFlag) Set(s string) error {
	v, err := strconv.ParseFloat(s, 32)
	if err != nil {
		return err
	}
	return f.settings.Set(f.name, float32(v))
}

type config struct {
	in, out, settingsFile, osd, assets string
	frames, width, height, workers     int
	dt                                 time.Duration
	seed                               uint64
	noCRT, verbose                     bool
}

func main() {
	var cfg config
	settings := vhs.DefaultSettings()
	settings.Intensity = 1

	flag.StringVar(&cfg.in, "in", "", "input image (png or jpeg)")
	flag.StringVar(&cfg.out, "out", "vhs.png", "output png")
	flag.StringVar(&cfg.settingsFile, "settings", "", "JSON settings file, applied before parameter flags")
	flag.StringVar(&cfg.osd, "osd", "", "on-screen display text drawn before the effect")
	flag.StringVar(&cfg.assets, "assets", "", "directory with vhsGrain.png, horizontalNoise.png, stripeNoise.png, crtMask.png")
	flag.IntVar(&cfg.frames, "frames", 1, "number of frames to render")
	flag.IntVar(&cfg.width, "width", 0, "resize input to this width")
	flag.IntVar(&cfg.height, "height", 0, "resize input to this height")
	flag.IntVar(&cfg.workers, "workers", 0, "CPU workers, 0 for GOMAXPROCS")
	flag.DurationVar(&cfg.dt, "dt", time.Second/60, "time between frames")
	flag.Uint64Var(&cfg.seed, "seed", 1, "seed for generated assets and stripe jitter")
	flag.BoolVar(&cfg.noCRT, "nocrt", false, "disable the CRT mask")
	flag.BoolVar(&cfg.verbose, "v", false, "debug logging")
	for _, p := range vhs.Params() {
		flag.Var(paramFlag{&settings, p.Name}, p.Name,
			fmt.Sprintf("%s [%g, %g]", p.Usage, p.Min, p.Max))
	}
	flag.Parse()

	logger := newLogger(cfg.verbose)
	vhs.SetLogger(logger)

	// The settings file is the base; explicit flags override it.
	if cfg.settingsFile != "" {
		loaded, err := vhs.LoadSettingsFile(cfg.settingsFile)
		if err != nil {
			fatal(logger, "load settings", err)
		}
		flag.Visit(func(f *flag.Flag) {
			if _, ok := loaded.Get(f.Name); ok {
				v, _ := settings.Get(f.Name)
				_ = loaded.Set(f.Name, v)
			}
		})
		settings = loaded
	}

	if err := run(cfg, settings, logger); err != nil {
		fatal(logger, "vhsdemo", err)
	}
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if term.IsTerminal(int(os.Stderr.Fd())) {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, "err", err)
	os.Exit(1)
}

func run(cfg config, settings vhs.Settings, logger *slog.Logger) error {
	if cfg.in == "" {
		return fmt.Errorf("-in is required")
	}
	src, err := loadImage(cfg.in)
	if err != nil {
		return err
	}
	src = resize(src, cfg.width, cfg.height)
	if cfg.osd != "" {
		if src, err = drawOSD(src, cfg.osd); err != nil {
			return err
		}
	}

	backend := software.New(cfg.workers)
	defer backend.Close()

	rng := rand.New(rand.NewPCG(cfg.seed, cfg.seed^0x9e3779b97f4a7c15))
	opts := []vhs.Option{
		vhs.WithBackend(backend),
		vhs.WithRand(rng.Float32),
		vhs.WithCRT(!cfg.noCRT),
		vhs.WithEagerAssets(),
	}
	if cfg.assets != "" {
		opts = append(opts, vhs.WithAssets(os.DirFS(cfg.assets)))
	} else {
		opts = append(opts, vhs.WithGeneratedAssets(cfg.seed))
	}
	effect, err := vhs.New(opts...)
	if err != nil {
		return err
	}
	defer effect.Close()

	source, err := backend.NewTexture("input", src)
	if err != nil {
		return err
	}
	defer backend.DestroyTexture(source)

	camera := vhs.Camera{ID: 1, Type: vhs.CameraGame}
	for i := range cfg.frames {
		start := time.Now()
		res, err := effect.Render(vhs.Frame{
			Camera:    camera,
			Source:    source,
			DeltaTime: cfg.dt,
			Settings:  &settings,
		})
		if err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		img, err := backend.ReadImage(res.Output)
		effect.ReleaseOutput(res)
		if err != nil {
			return fmt.Errorf("frame %d readback: %w", i, err)
		}

		name := cfg.out
		if cfg.frames > 1 {
			name = numbered(cfg.out, i)
		}
		if err := savePNG(name, img); err != nil {
			return err
		}
		logger.Info("frame written",
			"file", name,
			"applied", res.Applied,
			"skip", res.Skip.String(),
			"levels", res.Plan.BlurIterations,
			"passes", len(res.Schedule),
			"elapsed", time.Since(start).Round(time.Microsecond))
	}
	return nil
}

func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

// resize scales img with Catmull-Rom. A zero dimension keeps the aspect
// ratio; both zero returns img unchanged.
func resize(img image.Image, w, h int) image.Image {
	b := img.Bounds()
	switch {
	case w <= 0 && h <= 0:
		return img
	case w <= 0:
		w = max(1, b.Dx()*h/b.Dy())
	case h <= 0:
		h = max(1, b.Dy()*w/b.Dx())
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// numbered inserts a zero-padded frame index before the extension.
func numbered(path string, i int) string {
	ext := filepath.Ext(path)
	return fmt.Sprintf("%s_%04d%s", strings.TrimSuffix(path, ext), i, ext)
}

func savePNG(path string, img image.Image) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
