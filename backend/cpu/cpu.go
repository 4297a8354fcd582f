// Package cpu provides an in-memory flush target for texture ops.
//
// Vertex and index data land in plain byte slices and every submission is
// recorded, which makes the target useful for tests, tooling and
// inspecting batching decisions without a GPU.
package cpu

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/texquad"
	"github.com/gogpu/texquad/proxy"
	"github.com/gogpu/texquad/quadaa"
	"github.com/gogpu/texquad/texop"
)

// Target errors.
var (
	// ErrOutOfVertexSpace is returned when the vertex budget is exhausted.
	ErrOutOfVertexSpace = errors.New("cpu: vertex budget exhausted")

	// ErrTextureBudget is returned when a texture would exceed the budget.
	ErrTextureBudget = errors.New("cpu: texture budget exceeded")

	// ErrBadSubmission is returned for a draw with inconsistent bindings.
	ErrBadSubmission = errors.New("cpu: malformed submission")
)

// Config configures a Target. Zero values mean unlimited.
type Config struct {
	// VertexBudget caps the vertices handed out between Resets.
	VertexBudget int
	// MaxVerticesPerAlloc caps a single MakeVertexSpaceAtLeast result.
	MaxVerticesPerAlloc int
	// TextureBudget caps the bytes of textures created by the provider.
	TextureBudget int64
	// Caps are reported to the batching engine.
	Caps texop.Caps
}

// Texture is a texture held in memory.
type Texture struct {
	Label  string
	Width  int
	Height int
	Fmt    gputypes.TextureFormat
	Pixels []byte
}

// Size implements proxy.Texture.
func (t *Texture) Size() (int, int) { return t.Width, t.Height }

// Format implements proxy.Texture.
func (t *Texture) Format() gputypes.TextureFormat { return t.Fmt }

// Buffer is one vertex allocation.
type Buffer struct {
	ID     int
	Stride int
	Data   []byte
}

// Submission is a recorded Draw call.
type Submission struct {
	GP       texop.GeometryProcessor
	Pipeline texop.Pipeline
	// Textures holds the texture of each mesh.
	Textures []*proxy.TextureProxy
	Meshes   []texop.Mesh
}

// Target implements texop.FlushTarget in memory.
type Target struct {
	cfg Config

	mu           sync.Mutex
	buffers      []*Buffer
	submissions  []Submission
	verticesUsed int
	textureBytes int64
	textures     int
}

// New returns a target configured by cfg.
func New(cfg Config) *Target {
	return &Target{cfg: cfg}
}

// ResourceProvider implements texop.FlushTarget.
func (t *Target) ResourceProvider() proxy.ResourceProvider { return t }

// Caps implements texop.FlushTarget.
func (t *Target) Caps() texop.Caps { return t.cfg.Caps }

// CreateTexture implements proxy.ResourceProvider.
func (t *Target) CreateTexture(d proxy.Desc) (proxy.Texture, error) {
	size := int64(d.Width) * int64(d.Height) * int64(bytesPerPixel(d.Format))
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cfg.TextureBudget > 0 && t.textureBytes+size > t.cfg.TextureBudget {
		return nil, fmt.Errorf("%w: %d bytes for %q, %d of %d in use",
			ErrTextureBudget, size, d.Label, t.textureBytes, t.cfg.TextureBudget)
	}
	t.textureBytes += size
	t.textures++
	return &Texture{
		Label:  d.Label,
		Width:  d.Width,
		Height: d.Height,
		Fmt:    d.Format,
		Pixels: make([]byte, size),
	}, nil
}

func bytesPerPixel(f gputypes.TextureFormat) int {
	if f == gputypes.TextureFormatR8Unorm {
		return 1
	}
	return 4
}

// MakeVertexSpaceAtLeast implements texop.FlushTarget. It hands out
// fallbackCount vertices when the budget allows and otherwise whatever
// remains, which may be fewer than minCount.
func (t *Target) MakeVertexSpaceAtLeast(stride, minCount, fallbackCount int) (texop.VertexSpace, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	count := max(minCount, fallbackCount)
	if t.cfg.MaxVerticesPerAlloc > 0 {
		count = min(count, t.cfg.MaxVerticesPerAlloc)
	}
	if t.cfg.VertexBudget > 0 {
		count = min(count, t.cfg.VertexBudget-t.verticesUsed)
	}
	if count <= 0 {
		return texop.VertexSpace{}, fmt.Errorf("%w: %d of %d used", ErrOutOfVertexSpace, t.verticesUsed, t.cfg.VertexBudget)
	}
	buf := &Buffer{ID: len(t.buffers), Stride: stride, Data: make([]byte, count*stride)}
	t.buffers = append(t.buffers, buf)
	t.verticesUsed += count
	return texop.VertexSpace{Buffer: buf, Data: buf.Data, Count: count}, nil
}

// QuadIndexPattern implements texop.FlushTarget.
func (t *Target) QuadIndexPattern(spec quadaa.VertexSpec, quadCount int) (texop.IndexBuffer, error) {
	if quadCount <= 0 || quadCount > quadaa.MaxQuadsPerPattern(spec) {
		return texop.IndexBuffer{}, fmt.Errorf("cpu: index pattern for %d quads", quadCount)
	}
	idx := quadaa.IndexPattern(spec, quadCount)
	return texop.IndexBuffer{Buffer: idx, Count: len(idx)}, nil
}

// Draw implements texop.FlushTarget.
func (t *Target) Draw(gp *texop.GeometryProcessor, pipeline texop.Pipeline,
	fixed *texop.FixedDynamicState, dynamic *texop.DynamicStateArrays, meshes []texop.Mesh) error {
	if (fixed == nil) == (dynamic == nil) {
		return fmt.Errorf("%w: need exactly one of fixed or dynamic textures", ErrBadSubmission)
	}
	textures := make([]*proxy.TextureProxy, len(meshes))
	if dynamic != nil {
		if len(dynamic.Textures) != len(meshes) {
			return fmt.Errorf("%w: %d textures for %d meshes", ErrBadSubmission, len(dynamic.Textures), len(meshes))
		}
		copy(textures, dynamic.Textures)
	} else {
		for i := range textures {
			textures[i] = fixed.Texture
		}
	}
	t.mu.Lock()
	t.submissions = append(t.submissions, Submission{
		GP:       *gp,
		Pipeline: pipeline,
		Textures: textures,
		Meshes:   append([]texop.Mesh(nil), meshes...),
	})
	t.mu.Unlock()
	texquad.Logger().Debug("cpu: draw", "meshes", len(meshes), "spec", gp.Spec.String())
	return nil
}

// Submissions returns the recorded draws.
func (t *Target) Submissions() []Submission {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Submission(nil), t.submissions...)
}

// VerticesUsed returns vertices handed out since the last Reset.
func (t *Target) VerticesUsed() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.verticesUsed
}

// TexturesCreated returns how many textures the provider made.
func (t *Target) TexturesCreated() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.textures
}

// MeshVertices returns the vertex bytes of m.
func MeshVertices(m texop.Mesh) []byte {
	buf, ok := m.VertexBuffer.(*Buffer)
	if !ok {
		return nil
	}
	return buf.Data[m.BaseVertex*buf.Stride : (m.BaseVertex+m.VertexCount)*buf.Stride]
}

// Reset drops recorded submissions and restores the vertex budget.
// Textures stay allocated.
func (t *Target) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	clear(t.buffers)
	t.buffers = t.buffers[:0]
	clear(t.submissions)
	t.submissions = t.submissions[:0]
	t.verticesUsed = 0
}
