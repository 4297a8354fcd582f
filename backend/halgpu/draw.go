// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package halgpu

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/texquad"
	"github.com/gogpu/texquad/proxy"
	"github.com/gogpu/texquad/texop"
	"github.com/gogpu/wgpu/hal"
)

// ErrBadSubmission is returned for a draw with inconsistent bindings.
var ErrBadSubmission = errors.New("halgpu: malformed submission")

// RenderPass is the subset of a render pass encoder Record needs.
type RenderPass interface {
	SetPipeline(pipeline hal.RenderPipeline)
	SetBindGroup(index uint32, group hal.BindGroup, offsets []uint32)
	SetVertexBuffer(slot uint32, buffer hal.Buffer, offset uint64)
	SetIndexBuffer(buffer hal.Buffer, format gputypes.IndexFormat, offset uint64)
	DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32)
}

type recordedMesh struct {
	vertices   *vertexChunk
	indices    hal.Buffer
	bindGroup  int // index into recordedDraw.bindGroups
	baseVertex int
	firstIndex int
	indexCount int
}

// recordedDraw is one Draw call awaiting Record. It owns its uniform
// buffer and bind groups.
type recordedDraw struct {
	program    *program
	uniforms   hal.Buffer
	bindGroups []hal.BindGroup
	meshes     []recordedMesh
}

func (d *recordedDraw) destroy(device hal.Device) {
	for _, bg := range d.bindGroups {
		device.DestroyBindGroup(bg)
	}
	d.bindGroups = nil
	if d.uniforms != nil {
		device.DestroyBuffer(d.uniforms)
		d.uniforms = nil
	}
}

// uniformBytes encodes the viewport mapping from device pixels to clip
// space followed by the gamut matrix columns.
func uniformBytes(width, height float32, xform *texop.ColorSpaceXform) []byte {
	vals := [16]float32{
		2 / width, -2 / height, -1, 1,
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
	}
	if xform != nil {
		g := xform.Gamut
		for col := range 3 {
			for row := range 3 {
				vals[4+col*4+row] = g[row*3+col]
			}
		}
	}
	buf := make([]byte, uniformSize)
	for i, v := range vals {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// Draw implements texop.FlushTarget. The submission is validated and its
// GPU state is built now; commands are encoded by Record.
func (t *Target) Draw(gp *texop.GeometryProcessor, pipeline texop.Pipeline,
	fixed *texop.FixedDynamicState, dynamic *texop.DynamicStateArrays, meshes []texop.Mesh) error {
	if (fixed == nil) == (dynamic == nil) {
		return fmt.Errorf("%w: need exactly one of fixed or dynamic textures", ErrBadSubmission)
	}
	if dynamic != nil && len(dynamic.Textures) != len(meshes) {
		return fmt.Errorf("%w: %d textures for %d meshes", ErrBadSubmission, len(dynamic.Textures), len(meshes))
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.destroyed {
		return ErrDestroyed
	}
	prog, err := t.programFor(keyFor(gp, pipeline))
	if err != nil {
		return err
	}
	sampler, err := t.samplerFor(gp.Sampler)
	if err != nil {
		return err
	}

	d := &recordedDraw{program: prog, meshes: make([]recordedMesh, 0, len(meshes))}
	ub := uniformBytes(t.viewport[0], t.viewport[1], gp.ColorXform)
	d.uniforms, err = t.device.CreateBuffer(&hal.BufferDescriptor{
		Label: t.cfg.Label + "_quad_uniforms",
		Size:  uniformSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create uniform buffer: %w", err)
	}
	t.queue.WriteBuffer(d.uniforms, 0, ub)

	groups := make(map[*Texture]int)
	for i, m := range meshes {
		p := meshTexture(fixed, dynamic, i)
		tex, err := t.textureOf(p)
		if err != nil {
			d.destroy(t.device)
			return err
		}
		bgIndex, ok := groups[tex]
		if !ok {
			bg, err := t.device.CreateBindGroup(&hal.BindGroupDescriptor{
				Label:  t.cfg.Label + "_quad_bind_" + tex.label,
				Layout: prog.bindLayout,
				Entries: []gputypes.BindGroupEntry{
					{Binding: 0, Resource: gputypes.BufferBinding{
						Buffer: d.uniforms.NativeHandle(), Offset: 0, Size: uniformSize,
					}},
					{Binding: 1, Resource: gputypes.TextureViewBinding{
						TextureView: tex.view.NativeHandle(),
					}},
					{Binding: 2, Resource: gputypes.SamplerBinding{
						Sampler: sampler.NativeHandle(),
					}},
				},
			})
			if err != nil {
				d.destroy(t.device)
				return fmt.Errorf("create quad bind group: %w", err)
			}
			bgIndex = len(d.bindGroups)
			groups[tex] = bgIndex
			d.bindGroups = append(d.bindGroups, bg)
		}
		chunk, ok := m.VertexBuffer.(*vertexChunk)
		if !ok {
			d.destroy(t.device)
			return fmt.Errorf("%w: mesh %d vertex buffer %T", ErrBadSubmission, i, m.VertexBuffer)
		}
		ib, ok := m.Index.Buffer.(hal.Buffer)
		if !ok {
			d.destroy(t.device)
			return fmt.Errorf("%w: mesh %d index buffer %T", ErrBadSubmission, i, m.Index.Buffer)
		}
		d.meshes = append(d.meshes, recordedMesh{
			vertices:   chunk,
			indices:    ib,
			bindGroup:  bgIndex,
			baseVertex: m.BaseVertex,
			firstIndex: m.Index.FirstIndex,
			indexCount: m.Index.Count,
		})
	}
	t.draws = append(t.draws, d)
	texquad.Logger().Debug("halgpu: draw", "meshes", len(meshes), "textures", len(groups), "spec", gp.Spec.String())
	return nil
}

func meshTexture(fixed *texop.FixedDynamicState, dynamic *texop.DynamicStateArrays, i int) *proxy.TextureProxy {
	if dynamic != nil {
		return dynamic.Textures[i]
	}
	return fixed.Texture
}

// Record uploads pending vertex data and encodes every recorded draw into
// pass in submission order. Draws stay recorded until Reset.
func (t *Target) Record(pass RenderPass) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.destroyed {
		return ErrDestroyed
	}
	t.vertices.upload()

	var (
		boundGroup int
		boundVerts *vertexChunk
		boundIdx   hal.Buffer
		indexCalls int
	)
	for _, d := range t.draws {
		pass.SetPipeline(d.program.pipeline)
		// Bind groups are tracked by slot. HAL handles need not be distinct.
		boundGroup, boundVerts, boundIdx = -1, nil, nil
		for _, m := range d.meshes {
			if m.bindGroup != boundGroup {
				pass.SetBindGroup(0, d.bindGroups[m.bindGroup], nil)
				boundGroup = m.bindGroup
			}
			if m.vertices != boundVerts {
				pass.SetVertexBuffer(0, m.vertices.buf, 0)
				boundVerts = m.vertices
			}
			if m.indices != boundIdx {
				pass.SetIndexBuffer(m.indices, gputypes.IndexFormatUint16, 0)
				boundIdx = m.indices
			}
			//nolint:gosec // G115: counts are bounded by the 16-bit index range
			pass.DrawIndexed(uint32(m.indexCount), 1, uint32(m.firstIndex), int32(m.baseVertex), 0)
			indexCalls++
		}
	}
	texquad.Logger().Debug("halgpu: recorded", "draws", len(t.draws), "indexed_calls", indexCalls)
	return nil
}

// Draws returns how many submissions are waiting for Record.
func (t *Target) Draws() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.draws)
}
