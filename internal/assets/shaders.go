// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package assets

import (
	"embed"
	"fmt"
	"sync"

	"github.com/gogpu/naga"

	"github.com/gogpu/vhs/render"
)

//go:embed shaders/*.wgsl
var shaderFiles embed.FS

var shaderFile = map[render.ProgramID]string{
	render.ProgramNoiseGen:  "shaders/noisegen.wgsl",
	render.ProgramBlur:      "shaders/blur.wgsl",
	render.ProgramSmear:     "shaders/smear.wgsl",
	render.ProgramComposite: "shaders/composite.wgsl",
}

// ShaderSource returns the complete WGSL of a program: the shared
// declarations followed by the program's fragment stages.
func ShaderSource(p render.ProgramID) (string, error) {
	name, ok := shaderFile[p]
	if !ok {
		return "", fmt.Errorf("assets: shader for %v: %w", p, ErrMissingAsset)
	}
	common, err := shaderFiles.ReadFile("shaders/common.wgsl")
	if err != nil {
		return "", fmt.Errorf("assets: shared shader code: %w", ErrMissingAsset)
	}
	body, err := shaderFiles.ReadFile(name)
	if err != nil {
		return "", fmt.Errorf("assets: %s: %w", name, ErrMissingAsset)
	}
	return string(common) + "\n" + string(body), nil
}

type compiled struct {
	once sync.Once
	src  render.ProgramSource
	err  error
}

// Programs are compiled at most once per process and shared by every
// provider.
var programCache = map[render.ProgramID]*compiled{
	render.ProgramNoiseGen:  {},
	render.ProgramBlur:      {},
	render.ProgramSmear:     {},
	render.ProgramComposite: {},
}

// Program returns the compiled program p. The WGSL is compiled to SPIR-V on
// first use; later calls return the cached result, including a cached
// failure.
func Program(p render.ProgramID) (render.ProgramSource, error) {
	c, ok := programCache[p]
	if !ok {
		return render.ProgramSource{}, fmt.Errorf("assets: program %v: %w", p, ErrMissingAsset)
	}
	c.once.Do(func() {
		c.src, c.err = compileProgram(p)
	})
	return c.src, c.err
}

func programFor(p render.ProgramID, compile bool) (render.ProgramSource, error) {
	if compile {
		return Program(p)
	}
	wgsl, err := ShaderSource(p)
	if err != nil {
		return render.ProgramSource{}, err
	}
	return render.ProgramSource{ID: p, Label: "vhs_" + p.String(), WGSL: wgsl}, nil
}

func compileProgram(p render.ProgramID) (render.ProgramSource, error) {
	wgsl, err := ShaderSource(p)
	if err != nil {
		return render.ProgramSource{}, err
	}
	spirv, err := compileSPIRV(wgsl)
	if err != nil {
		return render.ProgramSource{}, fmt.Errorf("assets: program %v: %w: %w", p, ErrShaderCompile, err)
	}
	return render.ProgramSource{
		ID:    p,
		Label: "vhs_" + p.String(),
		WGSL:  wgsl,
		SPIRV: spirv,
	}, nil
}

// compileSPIRV compiles WGSL to little-endian SPIR-V words.
func compileSPIRV(wgsl string) ([]uint32, error) {
	raw, err := naga.Compile(wgsl)
	if err != nil {
		return nil, err
	}
	if len(raw)%4 != 0 {
		return nil, fmt.Errorf("spir-v length %d is not a multiple of 4", len(raw))
	}
	words := make([]uint32, len(raw)/4)
	for i := range words {
		words[i] = uint32(raw[i*4]) |
			uint32(raw[i*4+1])<<8 |
			uint32(raw[i*4+2])<<16 |
			uint32(raw[i*4+3])<<24
	}
	return words, nil
}
