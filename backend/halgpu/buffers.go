// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package halgpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/texquad"
	"github.com/gogpu/texquad/quadaa"
	"github.com/gogpu/texquad/texop"
	"github.com/gogpu/wgpu/hal"
	"honnef.co/go/safeish"
)

// vertexChunk is a device vertex buffer with a CPU mirror that meshes are
// tessellated into. The used prefix is uploaded by Record.
type vertexChunk struct {
	buf      hal.Buffer
	data     []byte
	used     int
	uploaded int
}

type vertexPool struct {
	device hal.Device
	queue  hal.Queue
	label  string
	limit  int
	chunk  int

	chunks []*vertexChunk
	cur    int
	spent  int
}

func (vp *vertexPool) init(device hal.Device, queue hal.Queue, cfg Config) {
	vp.device = device
	vp.queue = queue
	vp.label = cfg.Label
	vp.limit = cfg.MaxVertexBytes
	vp.chunk = min(vertexChunkBytes, cfg.MaxVertexBytes)
}

// alloc returns space for between 1 and fallback vertices, preferring at
// least minCount. Chunks are reused in order after a reset; once the budget
// is spent the current chunk's remainder is handed out even when short.
func (vp *vertexPool) alloc(stride, minCount, fallback int) (texop.VertexSpace, error) {
	want := max(minCount, fallback)
	for {
		avail := 0
		if vp.cur < len(vp.chunks) {
			avail = vp.chunks[vp.cur].avail(stride)
			if avail >= minCount {
				return vp.chunks[vp.cur].take(stride, min(avail, want)), nil
			}
			if vp.cur+1 < len(vp.chunks) {
				vp.cur++
				continue
			}
		}
		size := max(vp.chunk, alignUp(minCount*stride, 4))
		size = min(size, vp.limit-vp.spent)
		size -= size % stride
		if size < stride {
			if avail > 0 {
				return vp.chunks[vp.cur].take(stride, min(avail, want)), nil
			}
			return texop.VertexSpace{}, fmt.Errorf("%w: %d of %d bytes used", ErrVertexBudget, vp.spent, vp.limit)
		}
		if err := vp.grow(size); err != nil {
			return texop.VertexSpace{}, err
		}
	}
}

func (c *vertexChunk) avail(stride int) int {
	return (len(c.data) - alignUp(c.used, stride)) / stride
}

func (c *vertexChunk) take(stride, n int) texop.VertexSpace {
	start := alignUp(c.used, stride)
	c.used = start + n*stride
	return texop.VertexSpace{
		Buffer:      c,
		FirstVertex: start / stride,
		Data:        c.data[start:c.used],
		Count:       n,
	}
}

func (vp *vertexPool) grow(size int) error {
	//nolint:gosec // G115: size is positive and bounded by the budget
	buf, err := vp.device.CreateBuffer(&hal.BufferDescriptor{
		Label: fmt.Sprintf("%s_vertices_%d", vp.label, len(vp.chunks)),
		Size:  uint64(size),
		Usage: gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create vertex buffer: %w", err)
	}
	vp.chunks = append(vp.chunks, &vertexChunk{buf: buf, data: make([]byte, size)})
	vp.cur = len(vp.chunks) - 1
	vp.spent += size
	texquad.Logger().Debug("halgpu: vertex chunk", "bytes", size, "spent", vp.spent)
	return nil
}

// upload writes every tessellated but not yet uploaded byte range.
func (vp *vertexPool) upload() {
	for _, c := range vp.chunks {
		if c.used > c.uploaded {
			//nolint:gosec // G115: offsets are non-negative
			vp.queue.WriteBuffer(c.buf, uint64(c.uploaded), c.data[c.uploaded:c.used])
			c.uploaded = c.used
		}
	}
}

// reset makes every chunk reusable. Chunks stay allocated and count
// against the budget.
func (vp *vertexPool) reset() {
	for _, c := range vp.chunks {
		c.used = 0
		c.uploaded = 0
	}
	vp.cur = 0
}

func (vp *vertexPool) destroy() {
	for _, c := range vp.chunks {
		vp.device.DestroyBuffer(c.buf)
	}
	clear(vp.chunks)
	vp.chunks = vp.chunks[:0]
	vp.cur = 0
	vp.spent = 0
}

func alignUp(n, a int) int {
	if a <= 1 {
		return n
	}
	return (n + a - 1) / a * a
}

// indexPatterns holds one index buffer per tessellation kind, each sized
// for the largest pattern a 16-bit index can address.
type indexPatterns struct {
	device hal.Device
	queue  hal.Queue
	label  string

	plain hal.Buffer
	aa    hal.Buffer
}

func (ip *indexPatterns) init(device hal.Device, queue hal.Queue, label string) {
	ip.device = device
	ip.queue = queue
	ip.label = label
}

func (ip *indexPatterns) get(spec quadaa.VertexSpec, quadCount int) (texop.IndexBuffer, error) {
	maxQuads := quadaa.MaxQuadsPerPattern(spec)
	if quadCount <= 0 || quadCount > maxQuads {
		return texop.IndexBuffer{}, fmt.Errorf("halgpu: index pattern for %d quads, limit %d", quadCount, maxQuads)
	}
	slot, kind := &ip.plain, "quad"
	if spec.UsesCoverageAA() {
		slot, kind = &ip.aa, "aa_quad"
	}
	if *slot == nil {
		pattern := quadaa.IndexPattern(spec, maxQuads)
		data := safeish.SliceCast[[]byte](pattern)
		buf, err := ip.device.CreateBuffer(&hal.BufferDescriptor{
			Label: ip.label + "_" + kind + "_indices",
			Size:  uint64(len(data)),
			Usage: gputypes.BufferUsageIndex | gputypes.BufferUsageCopyDst,
		})
		if err != nil {
			return texop.IndexBuffer{}, fmt.Errorf("create %s index buffer: %w", kind, err)
		}
		ip.queue.WriteBuffer(buf, 0, data)
		*slot = buf
	}
	return texop.IndexBuffer{Buffer: *slot, Count: quadCount * spec.IndicesPerQuad()}, nil
}

func (ip *indexPatterns) destroy() {
	for _, b := range []*hal.Buffer{&ip.plain, &ip.aa} {
		if *b != nil {
			ip.device.DestroyBuffer(*b)
			*b = nil
		}
	}
}

// MakeVertexSpaceAtLeast implements texop.FlushTarget.
func (t *Target) MakeVertexSpaceAtLeast(stride, minCount, fallbackCount int) (texop.VertexSpace, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.destroyed {
		return texop.VertexSpace{}, ErrDestroyed
	}
	return t.vertices.alloc(stride, minCount, fallbackCount)
}

// QuadIndexPattern implements texop.FlushTarget.
func (t *Target) QuadIndexPattern(spec quadaa.VertexSpec, quadCount int) (texop.IndexBuffer, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.destroyed {
		return texop.IndexBuffer{}, ErrDestroyed
	}
	return t.indices.get(spec, quadCount)
}
