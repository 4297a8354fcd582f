package texop

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/texquad/proxy"
	"github.com/gogpu/texquad/quadaa"
)

// VertexSpace is a region of a vertex buffer handed out by a FlushTarget.
type VertexSpace struct {
	// Buffer is the backend's buffer handle.
	Buffer any
	// FirstVertex is the index of Data's first vertex within Buffer.
	FirstVertex int
	// Data receives Count vertices.
	Data  []byte
	Count int
}

// IndexBuffer references a patterned quad index buffer.
type IndexBuffer struct {
	Buffer     any
	FirstIndex int
	Count      int
}

// Mesh is one indexed draw over consecutive quads sampling one texture.
type Mesh struct {
	VertexBuffer any
	BaseVertex   int
	VertexCount  int
	Index        IndexBuffer
	QuadCount    int
}

// SamplerState is how the geometry processor samples its texture.
type SamplerState struct {
	Filter      Filter
	AddressMode gputypes.AddressMode
}

// GeometryProcessor describes the program that consumes the vertices.
type GeometryProcessor struct {
	Spec        quadaa.VertexSpec
	TextureType proxy.TextureType
	Format      gputypes.TextureFormat
	Sampler     SamplerState
	ColorXform  *ColorSpaceXform
}

// VertexStride returns the byte size of one vertex.
func (gp *GeometryProcessor) VertexStride() int { return gp.Spec.VertexSize() }

// Pipeline is the fixed-function state of a submission.
type Pipeline struct {
	// HWAntialias enables multisampled rasterization.
	HWAntialias bool
}

// FixedDynamicState binds one texture for every mesh of a submission.
type FixedDynamicState struct {
	Texture *proxy.TextureProxy
}

// DynamicStateArrays binds Textures[i] for mesh i.
type DynamicStateArrays struct {
	Textures []*proxy.TextureProxy
}

// FlushTarget receives assembled submissions.
type FlushTarget interface {
	// ResourceProvider instantiates proxies before tessellation.
	ResourceProvider() proxy.ResourceProvider

	// Caps reports backend capabilities.
	Caps() Caps

	// MakeVertexSpaceAtLeast returns space for up to fallbackCount vertices
	// of stride bytes, ideally at least minCount. It may return fewer than
	// minCount; the caller asks again for the rest. A zero Count or an
	// error means the target is out of space.
	MakeVertexSpaceAtLeast(stride, minCount, fallbackCount int) (VertexSpace, error)

	// QuadIndexPattern returns indices for quadCount quads laid out as in
	// quadaa.IndexPattern.
	QuadIndexPattern(spec quadaa.VertexSpec, quadCount int) (IndexBuffer, error)

	// Draw submits meshes. Exactly one of fixed and dynamic is non-nil.
	Draw(gp *GeometryProcessor, pipeline Pipeline, fixed *FixedDynamicState,
		dynamic *DynamicStateArrays, meshes []Mesh) error
}
