package vhs

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParamsTable(t *testing.T) {
	ps := Params()
	if len(ps) != 14 {
		t.Fatalf("len(Params()) = %d, want 14", len(ps))
	}
	seen := map[string]bool{}
	for _, p := range ps {
		if seen[p.Name] {
			t.Errorf("duplicate parameter %q", p.Name)
		}
		seen[p.Name] = true
		if !(p.Min <= p.Default && p.Default <= p.Max) {
			t.Errorf("%s: default %v outside [%v, %v]", p.Name, p.Default, p.Min, p.Max)
		}
		if p.Usage == "" {
			t.Errorf("%s has no usage text", p.Name)
		}
	}
	ps[0].Max = 99
	if Params()[0].Max == 99 {
		t.Error("Params() exposes the internal table")
	}
}

func TestSettingsSetClamps(t *testing.T) {
	tests := []struct {
		name string
		in   float32
		want float32
	}{
		{"intensity", 2, 1},
		{"intensity", -1, 0},
		{"colorBleedDirection", -3, -1},
		{"smearIntensity", 1, 0.8},
		{"grainScale", 0, 0.01},
		{"edgeDistance", 0.01, 0.005},
		{"crtSize", 100, 8},
		{"edgeIntensity", 1.5, 1.5},
		{"grainIntensity", float32(math.NaN()), 0.1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			if err := s.Set(tt.name, tt.in); err != nil {
				t.Fatal(err)
			}
			if got, ok := s.Get(tt.name); !ok || got != tt.want {
				t.Errorf("Set(%s, %v) stored %v, want %v", tt.name, tt.in, got, tt.want)
			}
		})
	}

	var s Settings
	if err := s.Set("speckNoise", 1); !errors.Is(err, ErrUnknownParam) {
		t.Errorf("Set(unknown) = %v, want ErrUnknownParam", err)
	}
	if _, ok := s.Get("speckNoise"); ok {
		t.Error("Get(unknown) ok")
	}
}

func TestSettingsClamp(t *testing.T) {
	s := Settings{Intensity: 5, SmearIntensity: 3, ColorBleedDirection: -9, CRTSize: 0}
	c := s.Clamp()
	if c.Intensity != 1 || c.SmearIntensity != 0.8 || c.ColorBleedDirection != -1 || c.CRTSize != 0.25 {
		t.Errorf("Clamp() = %+v", c)
	}
	if s.Intensity != 5 {
		t.Error("Clamp mutated its receiver")
	}
}

func TestIsActive(t *testing.T) {
	active := DefaultSettings()
	active.Intensity = 1

	tests := []struct {
		name string
		mod  func(*Settings)
		want bool
	}{
		{"defaults with intensity", func(*Settings) {}, true},
		{"zero intensity", func(s *Settings) { s.Intensity = 0 }, false},
		{"negative intensity", func(s *Settings) { s.Intensity = -1 }, false},
		{"only bleed", func(s *Settings) { *s = Settings{Intensity: 1, ColorBleedIntensity: 0.1} }, true},
		{"only edge", func(s *Settings) { *s = Settings{Intensity: 1, EdgeIntensity: 0.1} }, true},
		{"only grain", func(s *Settings) { *s = Settings{Intensity: 1, GrainIntensity: 0.1} }, true},
		{"noise needs opacity", func(s *Settings) { *s = Settings{Intensity: 1, StripeNoiseDensity: 1} }, false},
		{"noise", func(s *Settings) { *s = Settings{Intensity: 1, StripeNoiseDensity: 1, StripeNoiseOpacity: 1} }, true},
		{"smear alone", func(s *Settings) { *s = Settings{Intensity: 1, SmearIntensity: 0.8} }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := active
			tt.mod(&s)
			if got := IsActive(&s); got != tt.want {
				t.Errorf("IsActive() = %v, want %v", got, tt.want)
			}
		})
	}
	if IsActive(nil) {
		t.Error("IsActive(nil) = true")
	}
}

func TestIsActiveFalseWithoutIntensity(t *testing.T) {
	values := []float32{0, 0.01, 0.5, 1, 2}
	for _, m := range []float32{0, -0.5} {
		for _, v := range values {
			s := Settings{
				Intensity: m, ColorBleedIntensity: v, EdgeIntensity: v, GrainIntensity: v,
				StripeNoiseDensity: v, StripeNoiseOpacity: v, SmearIntensity: v,
			}
			if s.IsActive() {
				t.Errorf("IsActive() = true for intensity %v, others %v", m, v)
			}
		}
	}
}

func TestLerp(t *testing.T) {
	a := DefaultSettings()
	b := DefaultSettings()
	b.Intensity = 1
	b.EdgeIntensity = 1.5

	mid := Lerp(a, b, 0.5)
	if mid.Intensity != 0.5 || mid.EdgeIntensity != 1 {
		t.Errorf("Lerp(0.5) = intensity %v edge %v, want 0.5 1", mid.Intensity, mid.EdgeIntensity)
	}
	if got := Lerp(a, b, 3); got != b {
		t.Errorf("Lerp(3) = %+v, want b", got)
	}
	if got := Lerp(a, b, -1); got != a {
		t.Errorf("Lerp(-1) = %+v, want a", got)
	}
}

func TestLoadSettings(t *testing.T) {
	s, err := LoadSettings(strings.NewReader(`{"intensity": 0.7, "smearIntensity": 5}`))
	if err != nil {
		t.Fatal(err)
	}
	if s.Intensity != 0.7 || s.SmearIntensity != 0.8 || s.GrainScale != 0.1 {
		t.Errorf("LoadSettings() = %+v", s)
	}

	if _, err := LoadSettings(strings.NewReader(`{"speckNoise": 1}`)); err == nil {
		t.Error("unknown field accepted")
	}
	if _, err := LoadSettings(strings.NewReader(`{`)); err == nil {
		t.Error("truncated JSON accepted")
	}
}

func TestLoadSettingsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vhs.json")
	if err := os.WriteFile(path, []byte(`{"intensity": 1, "crtScanlineIntensity": 0.3}`), 0o600); err != nil {
		t.Fatal(err)
	}
	s, err := LoadSettingsFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if s.Intensity != 1 || s.CRTScanlineIntensity != 0.3 {
		t.Errorf("LoadSettingsFile() = %+v", s)
	}
	if _, err := LoadSettingsFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("missing file accepted")
	}
}
