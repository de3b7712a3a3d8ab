// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package halgpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/vhs/render"
)

// pipelineKey selects a render pipeline of a program.
type pipelineKey struct {
	pass   int
	format gputypes.TextureFormat
}

// program holds a loaded shader program and its pipelines.
type program struct {
	id         render.ProgramID
	label      string
	textures   []string
	shader     hal.ShaderModule
	layout     hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipelines  map[pipelineKey]hal.RenderPipeline
}

// shaderSource prefers SPIR-V and falls back to WGSL.
func shaderSource(src render.ProgramSource) hal.ShaderSource {
	if len(src.SPIRV) > 0 {
		return hal.ShaderSource{SPIRV: src.SPIRV}
	}
	return hal.ShaderSource{WGSL: src.WGSL}
}

// layoutEntries returns the bind group layout shared by every pass of a
// program: uniforms, both samplers, then n textures.
func layoutEntries(n int) []gputypes.BindGroupLayoutEntry {
	entries := []gputypes.BindGroupLayoutEntry{
		{
			Binding:    0,
			Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
			Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
		},
		{
			Binding:    1,
			Visibility: gputypes.ShaderStageFragment,
			Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
		},
		{
			Binding:    2,
			Visibility: gputypes.ShaderStageFragment,
			Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
		},
	}
	for i := range n {
		entries = append(entries, gputypes.BindGroupLayoutEntry{
			Binding:    uint32(render.FirstTextureBinding + i),
			Visibility: gputypes.ShaderStageFragment,
			Texture: &gputypes.TextureBindingLayout{
				SampleType:    gputypes.TextureSampleTypeFloat,
				ViewDimension: gputypes.TextureViewDimension2D,
			},
		})
	}
	return entries
}

// blendState returns the fixed-function blend of a pass, or nil to
// replace. Alpha blending matches the CPU backend: color SrcAlpha /
// OneMinusSrcAlpha, alpha One / OneMinusSrcAlpha.
func blendState(mode render.BlendMode) *gputypes.BlendState {
	if mode != render.BlendAlpha {
		return nil
	}
	return &gputypes.BlendState{
		Color: gputypes.BlendComponent{
			SrcFactor: gputypes.BlendFactorSrcAlpha,
			DstFactor: gputypes.BlendFactorOneMinusSrcAlpha,
			Operation: gputypes.BlendOperationAdd,
		},
		Alpha: gputypes.BlendComponent{
			SrcFactor: gputypes.BlendFactorOne,
			DstFactor: gputypes.BlendFactorOneMinusSrcAlpha,
			Operation: gputypes.BlendOperationAdd,
		},
	}
}

func newProgram(device hal.Device, src render.ProgramSource) (*program, error) {
	if len(src.SPIRV) == 0 && src.WGSL == "" {
		return nil, fmt.Errorf("halgpu: program %v has no shader source", src.ID)
	}
	label := src.Label
	if label == "" {
		label = "vhs_" + src.ID.String()
	}
	p := &program{
		id:        src.ID,
		label:     label,
		textures:  src.ID.TextureParams(),
		pipelines: make(map[pipelineKey]hal.RenderPipeline),
	}

	var err error
	p.shader, err = device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  label + "_shader",
		Source: shaderSource(src),
	})
	if err != nil {
		return nil, fmt.Errorf("halgpu: compile %s shader: %w", label, err)
	}
	p.layout, err = device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   label + "_layout",
		Entries: layoutEntries(len(p.textures)),
	})
	if err != nil {
		p.destroy(device)
		return nil, fmt.Errorf("halgpu: create %s bind group layout: %w", label, err)
	}
	p.pipeLayout, err = device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            label + "_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{p.layout},
	})
	if err != nil {
		p.destroy(device)
		return nil, fmt.Errorf("halgpu: create %s pipeline layout: %w", label, err)
	}
	return p, nil
}

// pipeline returns the pipeline for a pass rendering into format,
// creating it on first use.
func (p *program) pipeline(device hal.Device, pass int, format gputypes.TextureFormat, mode render.BlendMode) (hal.RenderPipeline, error) {
	key := pipelineKey{pass: pass, format: format}
	if rp, ok := p.pipelines[key]; ok {
		return rp, nil
	}
	rp, err := device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  fmt.Sprintf("%s_pass%d_%v", p.label, pass, format),
		Layout: p.pipeLayout,
		Vertex: hal.VertexState{
			Module:     p.shader,
			EntryPoint: "vs_main",
		},
		Fragment: &hal.FragmentState{
			Module:     p.shader,
			EntryPoint: render.EntryPoint(pass),
			Targets: []gputypes.ColorTargetState{
				{
					Format:    format,
					Blend:     blendState(mode),
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("halgpu: create %s pass %d pipeline: %w", p.label, pass, err)
	}
	p.pipelines[key] = rp
	return rp, nil
}

func (p *program) destroy(device hal.Device) {
	for k, rp := range p.pipelines {
		device.DestroyRenderPipeline(rp)
		delete(p.pipelines, k)
	}
	if p.pipeLayout != nil {
		device.DestroyPipelineLayout(p.pipeLayout)
		p.pipeLayout = nil
	}
	if p.layout != nil {
		device.DestroyBindGroupLayout(p.layout)
		p.layout = nil
	}
	if p.shader != nil {
		device.DestroyShaderModule(p.shader)
		p.shader = nil
	}
}
