package texop

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/texquad/geom"
	"github.com/gogpu/texquad/proxy"
	"github.com/gogpu/texquad/quadaa"
)

type memTexture struct{ w, h int }

func (t memTexture) Size() (int, int)               { return t.w, t.h }
func (t memTexture) Format() gputypes.TextureFormat { return gputypes.TextureFormatRGBA8Unorm }

type draw struct {
	gp       GeometryProcessor
	pipeline Pipeline
	fixed    *FixedDynamicState
	dynamic  *DynamicStateArrays
	meshes   []Mesh
}

// fakeTarget hands out vertex space from a budget and records draws.
type fakeTarget struct {
	caps          Caps
	vertexBudget  int // 0 is unlimited
	perAlloc      int // 0 is unlimited
	failIndices   bool
	failTexture   error
	used          int
	requests      [][2]int
	draws         []draw
	buffers       [][]byte
}

func (f *fakeTarget) ResourceProvider() proxy.ResourceProvider { return f }
func (f *fakeTarget) Caps() Caps                               { return f.caps }

func (f *fakeTarget) CreateTexture(d proxy.Desc) (proxy.Texture, error) {
	if f.failTexture != nil {
		return nil, f.failTexture
	}
	return memTexture{d.Width, d.Height}, nil
}

func (f *fakeTarget) MakeVertexSpaceAtLeast(stride, minCount, fallbackCount int) (VertexSpace, error) {
	f.requests = append(f.requests, [2]int{minCount, fallbackCount})
	n := fallbackCount
	if f.perAlloc > 0 {
		n = min(n, f.perAlloc)
	}
	if f.vertexBudget > 0 {
		n = min(n, f.vertexBudget-f.used)
	}
	if n <= 0 {
		return VertexSpace{}, errors.New("fake: out of vertices")
	}
	f.used += n
	buf := make([]byte, n*stride)
	f.buffers = append(f.buffers, buf)
	return VertexSpace{Buffer: len(f.buffers) - 1, Data: buf, Count: n}, nil
}

func (f *fakeTarget) QuadIndexPattern(spec quadaa.VertexSpec, quadCount int) (IndexBuffer, error) {
	if f.failIndices {
		return IndexBuffer{}, errors.New("fake: no indices")
	}
	return IndexBuffer{Count: quadCount * spec.IndicesPerQuad()}, nil
}

func (f *fakeTarget) Draw(gp *GeometryProcessor, pipeline Pipeline, fixed *FixedDynamicState,
	dynamic *DynamicStateArrays, meshes []Mesh) error {
	f.draws = append(f.draws, draw{*gp, pipeline, fixed, dynamic, append([]Mesh(nil), meshes...)})
	return nil
}

// meshBytes returns the vertex bytes of a recorded mesh.
func (f *fakeTarget) meshBytes(stride int, m Mesh) []byte {
	buf := f.buffers[m.VertexBuffer.(int)]
	return buf[m.BaseVertex*stride : (m.BaseVertex+m.VertexCount)*stride]
}

func readF32(b []byte, off int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b[off:]))
}

func newProxy(t *testing.T, w, h int) *proxy.TextureProxy {
	t.Helper()
	p, err := proxy.New(proxy.Desc{Width: w, Height: h})
	if err != nil {
		t.Fatalf("proxy.New: %v", err)
	}
	return p
}

var white = quadaa.PMColor{1, 1, 1, 1}

// rectOp records src drawn at dst under identity with no AA.
func rectOp(t *testing.T, p *proxy.TextureProxy, filter Filter, src, dst geom.Rect) *Op {
	t.Helper()
	op, err := NewOp(nil, p, filter, white, src, dst, quadaa.AANone, quadaa.EdgeNone,
		ConstraintFast, geom.Identity(), nil)
	if err != nil {
		t.Fatalf("NewOp: %v", err)
	}
	return op
}

func mustPanic(t *testing.T, name string, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Errorf("%s did not panic", name)
		}
	}()
	fn()
}
