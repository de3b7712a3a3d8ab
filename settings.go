// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package vhs

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrUnknownParam is returned by Settings.Set for a name that is not in the
// parameter table.
var ErrUnknownParam = errors.New("vhs: unknown parameter")

// Settings is a resolved snapshot of the effect configuration for one camera
// and one frame. The effect never mutates a Settings value it is given.
//
// Every field has a declared range (see Params). Values written through Set,
// Clamp, or the JSON loaders are clamped to that range.
type Settings struct {
	// Intensity is the master intensity. Every derived intensity is
	// multiplied by it before reaching a pass.
	Intensity float32 `json:"intensity"`

	ColorBleedIntensity float32 `json:"colorBleedIntensity"`
	ColorBleedRadius    float32 `json:"colorBleedRadius"`
	ColorBleedDirection float32 `json:"colorBleedDirection"`

	GrainIntensity float32 `json:"grainIntensity"`
	GrainScale     float32 `json:"grainScale"`

	SmearIntensity float32 `json:"smearIntensity"`

	StripeNoiseDensity float32 `json:"stripeNoiseDensity"`
	StripeNoiseOpacity float32 `json:"stripeNoiseOpacity"`

	EdgeIntensity float32 `json:"edgeIntensity"`
	EdgeDistance  float32 `json:"edgeDistance"`

	CRTSize              float32 `json:"crtSize"`
	CRTPixelIntensity    float32 `json:"crtPixelIntensity"`
	CRTScanlineIntensity float32 `json:"crtScanlineIntensity"`
}

// Param describes one configuration parameter.
type Param struct {
	Name    string
	Min     float32
	Max     float32
	Default float32
	Usage   string

	field func(*Settings) *float32
}

// Clamp limits v to the parameter's range.
func (p Param) Clamp(v float32) float32 {
	switch {
	case v != v: // NaN
		return p.Default
	case v < p.Min:
		return p.Min
	case v > p.Max:
		return p.Max
	}
	return v
}

var params = []Param{
	{"intensity", 0, 1, 0, "master intensity", func(s *Settings) *float32 { return &s.Intensity }},
	{"colorBleedIntensity", 0, 1, 0.5, "color bleed strength", func(s *Settings) *float32 { return &s.ColorBleedIntensity }},
	{"colorBleedRadius", 0, 1, 0.5, "color bleed radius, drives blur pyramid depth", func(s *Settings) *float32 { return &s.ColorBleedRadius }},
	{"colorBleedDirection", -1, 1, 0, "horizontal bias of the bleed", func(s *Settings) *float32 { return &s.ColorBleedDirection }},
	{"grainIntensity", 0, 1, 0.1, "film grain strength", func(s *Settings) *float32 { return &s.GrainIntensity }},
	{"grainScale", 0.01, 2, 0.1, "film grain texture scale", func(s *Settings) *float32 { return &s.GrainScale }},
	{"smearIntensity", 0, 0.8, 0, "motion smear strength", func(s *Settings) *float32 { return &s.SmearIntensity }},
	{"stripeNoiseDensity", 0, 1, 0.1, "density of horizontal noise bands", func(s *Settings) *float32 { return &s.StripeNoiseDensity }},
	{"stripeNoiseOpacity", 0, 1, 1, "opacity of horizontal noise bands", func(s *Settings) *float32 { return &s.StripeNoiseOpacity }},
	{"edgeIntensity", 0, 2, 0.5, "edge ringing strength", func(s *Settings) *float32 { return &s.EdgeIntensity }},
	{"edgeDistance", 0, 0.005, 0.002, "edge ringing offset in UV units", func(s *Settings) *float32 { return &s.EdgeDistance }},
	{"crtSize", 0.25, 8, 1, "CRT mask cell size", func(s *Settings) *float32 { return &s.CRTSize }},
	{"crtPixelIntensity", 0, 1, 0, "CRT phosphor mask strength", func(s *Settings) *float32 { return &s.CRTPixelIntensity }},
	{"crtScanlineIntensity", 0, 1, 0, "CRT scanline strength", func(s *Settings) *float32 { return &s.CRTScanlineIntensity }},
}

// Params returns the parameter table in declaration order.
// The returned slice is a copy.
func Params() []Param {
	out := make([]Param, len(params))
	copy(out, params)
	return out
}

func lookupParam(name string) (Param, bool) {
	for _, p := range params {
		if p.Name == name {
			return p, true
		}
	}
	return Param{}, false
}

// DefaultSettings returns the default configuration. Master intensity
// defaults to zero, so the defaults alone are not active.
func DefaultSettings() Settings {
	var s Settings
	for _, p := range params {
		*p.field(&s) = p.Default
	}
	return s
}

// Clamp returns a copy of s with every parameter limited to its range.
func (s Settings) Clamp() Settings {
	for _, p := range params {
		f := p.field(&s)
		*f = p.Clamp(*f)
	}
	return s
}

// Set writes the named parameter, clamping v at the range boundary.
func (s *Settings) Set(name string, v float32) error {
	p, ok := lookupParam(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownParam, name)
	}
	*p.field(s) = p.Clamp(v)
	return nil
}

// Get reads the named parameter.
func (s *Settings) Get(name string) (float32, bool) {
	p, ok := lookupParam(name)
	if !ok {
		return 0, false
	}
	return *p.field(s), true
}

// IsActive reports whether the effect would change the image. The master
// intensity must be positive and at least one of bleed, edge, grain, or
// stripe noise (density and opacity together) must contribute.
func (s Settings) IsActive() bool {
	if s.Intensity <= 0 {
		return false
	}
	return s.ColorBleedIntensity > 0 ||
		s.EdgeIntensity > 0 ||
		s.GrainIntensity > 0 ||
		(s.StripeNoiseDensity > 0 && s.StripeNoiseOpacity > 0)
}

// IsActive reports whether s is non-nil and active. Hosts call it before
// invoking the pipeline at all.
func IsActive(s *Settings) bool {
	return s != nil && s.IsActive()
}

// Lerp blends two configurations parameter by parameter. t is clamped to
// [0, 1]. Hosts use it to interpolate between volumes.
func Lerp(a, b Settings, t float32) Settings {
	t = max(0, min(1, t))
	var out Settings
	for _, p := range params {
		av, bv := *p.field(&a), *p.field(&b)
		*p.field(&out) = av + (bv-av)*t
	}
	return out.Clamp()
}

// LoadSettings decodes a JSON object of parameter values. Missing fields
// keep their defaults and unknown fields are rejected. The result is clamped.
func LoadSettings(r io.Reader) (Settings, error) {
	s := DefaultSettings()
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&s); err != nil {
		return Settings{}, fmt.Errorf("vhs: decode settings: %w", err)
	}
	return s.Clamp(), nil
}

// LoadSettingsFile reads settings from a JSON file.
func LoadSettingsFile(path string) (Settings, error) {
	f, err := os.Open(path)
	if err != nil {
		return Settings{}, fmt.Errorf("vhs: open settings: %w", err)
	}
	defer f.Close()
	return LoadSettings(f)
}
