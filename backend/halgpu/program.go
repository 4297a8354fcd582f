// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package halgpu

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/texquad"
	"github.com/gogpu/texquad/geom"
	"github.com/gogpu/texquad/proxy"
	"github.com/gogpu/texquad/quadaa"
	"github.com/gogpu/texquad/texop"
	"github.com/gogpu/wgpu/hal"
)

// uniformSize is the byte size of the per-draw uniform block.
// Layout: viewport (vec4<f32>) + gamut rows (3 x vec4<f32>) = 64 bytes.
const uniformSize = 64

// programKey selects a shader and pipeline. Everything else that varies
// per draw lives in vertex attributes or the uniform block.
type programKey struct {
	spec      quadaa.VertexSpec
	texelDims bool
	xform     bool
	msaa      bool
}

func keyFor(gp *texop.GeometryProcessor, pipeline texop.Pipeline) programKey {
	return programKey{
		spec:      gp.Spec,
		texelDims: gp.TextureType == proxy.TypeRectangle,
		xform:     gp.ColorXform != nil,
		msaa:      pipeline.HWAntialias,
	}
}

type program struct {
	shader     hal.ShaderModule
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipeline   hal.RenderPipeline
}

func (p *program) destroy(device hal.Device) {
	if p.pipeline != nil {
		device.DestroyRenderPipeline(p.pipeline)
	}
	if p.pipeLayout != nil {
		device.DestroyPipelineLayout(p.pipeLayout)
	}
	if p.bindLayout != nil {
		device.DestroyBindGroupLayout(p.bindLayout)
	}
	if p.shader != nil {
		device.DestroyShaderModule(p.shader)
	}
	*p = program{}
}

// shaderSource generates the WGSL program for k. Vertex inputs follow
// quadaa.VertexSpec.Attributes location order.
func shaderSource(k programKey) string {
	spec := k.spec
	persp := spec.DeviceQuadType == geom.QuadTypePerspective
	localPersp := spec.HasLocal && spec.LocalQuadType == geom.QuadTypePerspective

	var b strings.Builder
	b.WriteString(`struct Uniforms {
    viewport: vec4<f32>,
    gamut0: vec4<f32>,
    gamut1: vec4<f32>,
    gamut2: vec4<f32>,
}

@group(0) @binding(0) var<uniform> u: Uniforms;
@group(0) @binding(1) var src_tex: texture_2d<f32>;
@group(0) @binding(2) var src_sampler: sampler;

struct VertexInput {
`)
	loc := 0
	field := func(name, typ string) {
		fmt.Fprintf(&b, "    @location(%d) %s: %s,\n", loc, name, typ)
		loc++
	}
	if persp {
		field("position", "vec3<f32>")
	} else {
		field("position", "vec2<f32>")
	}
	field("color", "vec4<f32>")
	if spec.HasLocal {
		if localPersp {
			field("local", "vec3<f32>")
		} else {
			field("local", "vec2<f32>")
		}
	}
	if spec.Domain {
		field("domain", "vec4<f32>")
	}
	if spec.UsesCoverageAA() {
		field("coverage", "f32")
	}
	b.WriteString(`}

struct VertexOutput {
    @builtin(position) position: vec4<f32>,
    @location(0) color: vec4<f32>,
    @location(1) local: vec3<f32>,
    @location(2) domain: vec4<f32>,
    @location(3) coverage: f32,
}

@vertex
fn vs_main(in: VertexInput) -> VertexOutput {
    var out: VertexOutput;
`)
	if persp {
		b.WriteString("    out.position = vec4<f32>(in.position.xy * u.viewport.xy + u.viewport.zw * in.position.z, 0.0, in.position.z);\n")
	} else {
		b.WriteString("    out.position = vec4<f32>(in.position * u.viewport.xy + u.viewport.zw, 0.0, 1.0);\n")
	}
	b.WriteString("    out.color = in.color;\n")
	switch {
	case localPersp:
		b.WriteString("    out.local = in.local;\n")
	case spec.HasLocal:
		b.WriteString("    out.local = vec3<f32>(in.local, 1.0);\n")
	default:
		b.WriteString("    out.local = vec3<f32>(0.0, 0.0, 1.0);\n")
	}
	if spec.Domain {
		b.WriteString("    out.domain = in.domain;\n")
	} else {
		b.WriteString("    out.domain = vec4<f32>(0.0, 0.0, 0.0, 0.0);\n")
	}
	if spec.UsesCoverageAA() {
		b.WriteString("    out.coverage = in.coverage;\n")
	} else {
		b.WriteString("    out.coverage = 1.0;\n")
	}
	b.WriteString(`    return out;
}

@fragment
fn fs_main(in: VertexOutput) -> @location(0) vec4<f32> {
    var uv = in.local.xy / in.local.z;
`)
	if spec.Domain {
		b.WriteString("    uv = clamp(uv, in.domain.xy, in.domain.zw);\n")
	}
	if k.texelDims {
		b.WriteString("    uv = uv / vec2<f32>(textureDimensions(src_tex));\n")
	}
	b.WriteString("    var c = textureSample(src_tex, src_sampler, uv);\n")
	if k.xform {
		b.WriteString("    let gamut = mat3x3<f32>(u.gamut0.xyz, u.gamut1.xyz, u.gamut2.xyz);\n")
		b.WriteString("    c = vec4<f32>(gamut * c.rgb, c.a);\n")
	}
	b.WriteString("    return c * in.color * in.coverage;\n}\n")
	return b.String()
}

// compileSPIRV compiles WGSL to little-endian SPIR-V words.
func compileSPIRV(src string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(src)
	if err != nil {
		return nil, fmt.Errorf("compile quad shader: %w", err)
	}
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(spirvBytes[i*4:])
	}
	return words, nil
}

// programFor returns the cached program for k, building it on first use.
func (t *Target) programFor(k programKey) (*program, error) {
	if p, ok := t.programs[k]; ok {
		return p, nil
	}
	p, err := t.buildProgram(k)
	if err != nil {
		return nil, err
	}
	t.programs[k] = p
	texquad.Logger().Debug("halgpu: program", "spec", k.spec.String(), "texel_dims", k.texelDims, "xform", k.xform)
	return p, nil
}

func (t *Target) buildProgram(k programKey) (*program, error) {
	label := t.cfg.Label + "_quad"
	words, err := compileSPIRV(shaderSource(k))
	if err != nil {
		return nil, err
	}
	p := &program{}
	p.shader, err = t.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  label + "_shader",
		Source: hal.ShaderSource{SPIRV: words},
	})
	if err != nil {
		return nil, fmt.Errorf("create quad shader module: %w", err)
	}

	// Binding 0: uniforms, binding 1: sampled texture, binding 2: sampler.
	p.bindLayout, err = t.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: label + "_bind_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
			},
			{
				Binding:    1,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
			{
				Binding:    2,
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
		},
	})
	if err != nil {
		p.destroy(t.device)
		return nil, fmt.Errorf("create quad bind group layout: %w", err)
	}

	p.pipeLayout, err = t.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            label + "_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{p.bindLayout},
	})
	if err != nil {
		p.destroy(t.device)
		return nil, fmt.Errorf("create quad pipeline layout: %w", err)
	}

	samples := uint32(1)
	if k.msaa {
		samples = t.cfg.SampleCount
	}
	premulBlend := gputypes.BlendStatePremultiplied()
	p.pipeline, err = t.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  label + "_pipeline",
		Layout: p.pipeLayout,
		Vertex: hal.VertexState{
			Module:     p.shader,
			EntryPoint: "vs_main",
			Buffers:    k.spec.Layout(),
		},
		Fragment: &hal.FragmentState{
			Module:     p.shader,
			EntryPoint: "fs_main",
			Targets: []gputypes.ColorTargetState{
				{
					Format:    t.cfg.TargetFormat,
					Blend:     &premulBlend,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: samples,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		p.destroy(t.device)
		return nil, fmt.Errorf("create quad pipeline: %w", err)
	}
	return p, nil
}

// samplerFor returns the sampler for ss, creating it on first use. An
// unset address mode clamps to edge.
func (t *Target) samplerFor(ss texop.SamplerState) (hal.Sampler, error) {
	var unset gputypes.AddressMode
	if ss.AddressMode == unset {
		ss.AddressMode = gputypes.AddressModeClampToEdge
	}
	if s, ok := t.samplers[ss]; ok {
		return s, nil
	}
	minMag, mip := ss.Filter.FilterModes()
	s, err := t.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        fmt.Sprintf("%s_sampler_%s_%d", t.cfg.Label, ss.Filter, ss.AddressMode),
		AddressModeU: ss.AddressMode,
		AddressModeV: ss.AddressMode,
		AddressModeW: ss.AddressMode,
		MagFilter:    minMag,
		MinFilter:    minMag,
		MipmapFilter: mip,
	})
	if err != nil {
		return nil, fmt.Errorf("create sampler: %w", err)
	}
	t.samplers[ss] = s
	return s, nil
}
