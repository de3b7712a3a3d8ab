// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import "testing"

func TestProgramPasses(t *testing.T) {
	tests := []struct {
		p      ProgramID
		name   string
		passes int
	}{
		{ProgramNoiseGen, "noisegen", 1},
		{ProgramBlur, "blur", 3},
		{ProgramSmear, "smear", 1},
		{ProgramComposite, "composite", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.p.String() != tt.name {
				t.Errorf("String() = %q, want %q", tt.p.String(), tt.name)
			}
			if tt.p.PassCount() != tt.passes {
				t.Errorf("PassCount() = %d, want %d", tt.p.PassCount(), tt.passes)
			}
			if !tt.p.Valid(tt.passes - 1) {
				t.Errorf("Valid(%d) = false", tt.passes-1)
			}
			if tt.p.Valid(tt.passes) || tt.p.Valid(-1) {
				t.Error("Valid accepted an out-of-range pass")
			}
		})
	}
	if len(Programs()) != 4 {
		t.Errorf("len(Programs()) = %d, want 4", len(Programs()))
	}
	if got := ProgramID(9).String(); got != "ProgramID(9)" {
		t.Errorf("String() = %q", got)
	}
}

func TestPassBlend(t *testing.T) {
	for _, p := range Programs() {
		for pass := range p.PassCount() {
			want := BlendReplace
			if p == ProgramBlur && pass == BlurUpsample {
				want = BlendAlpha
			}
			if got := PassBlend(p, pass); got != want {
				t.Errorf("PassBlend(%v, %d) = %v, want %v", p, pass, got, want)
			}
		}
	}
}

func TestEntryPoint(t *testing.T) {
	if got := EntryPoint(2); got != "fs_pass2" {
		t.Errorf("EntryPoint(2) = %q, want fs_pass2", got)
	}
}

func TestTextureParams(t *testing.T) {
	tests := []struct {
		p     ProgramID
		first string
		n     int
	}{
		{ProgramNoiseGen, ParamHorizontalNoise, 2},
		{ProgramBlur, ParamBlitTexture, 2},
		{ProgramSmear, ParamBlitTexture, 1},
		{ProgramComposite, ParamBlitTexture, 5},
	}
	for _, tt := range tests {
		got := tt.p.TextureParams()
		if len(got) != tt.n || got[0] != tt.first {
			t.Errorf("%v.TextureParams() = %v, want %d starting with %s", tt.p, got, tt.n, tt.first)
		}
		got[0] = "mutated"
		if tt.p.TextureParams()[0] != tt.first {
			t.Errorf("%v.TextureParams() shares its backing array", tt.p)
		}
	}
	if ProgramID(9).TextureParams() != nil {
		t.Error("unknown program has textures")
	}
}
