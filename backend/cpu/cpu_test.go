package cpu

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/texquad/geom"
	"github.com/gogpu/texquad/proxy"
	"github.com/gogpu/texquad/quadaa"
	"github.com/gogpu/texquad/texop"
)

func newProxy(t *testing.T, label string) *proxy.TextureProxy {
	t.Helper()
	p, err := proxy.New(proxy.Desc{Width: 32, Height: 32, Label: label})
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func drawOp(t *testing.T, pool *texop.Pool, p *proxy.TextureProxy, dst geom.Rect) *texop.Op {
	t.Helper()
	op, err := texop.NewOp(pool, p, texop.FilterBilerp, quadaa.PMColor{1, 1, 1, 1},
		geom.RectWH(16, 16), dst, quadaa.AANone, quadaa.EdgeNone,
		texop.ConstraintFast, geom.Identity(), nil)
	if err != nil {
		t.Fatal(err)
	}
	return op
}

func TestMergeThenChain(t *testing.T) {
	caps := texop.Caps{DynamicStateArrayTextures: true}
	target := New(Config{Caps: caps})
	pool := texop.NewPool()
	list := texop.NewList(target.Caps(), texop.WithPool(pool))

	tex1, tex2 := newProxy(t, "tex1"), newProxy(t, "tex2")
	for _, op := range []*texop.Op{
		drawOp(t, pool, tex1, geom.RectXYWH(0, 0, 32, 32)),
		drawOp(t, pool, tex1, geom.RectXYWH(32, 0, 32, 32)),
		drawOp(t, pool, tex2, geom.RectXYWH(64, 0, 32, 32)),
	} {
		if err := list.Add(op); err != nil {
			t.Fatal(err)
		}
	}
	stats, err := list.Flush(target)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Draws != 1 || stats.Meshes != 2 {
		t.Fatalf("stats = %+v, want 1 draw with 2 meshes", stats)
	}
	subs := target.Submissions()
	if len(subs) != 1 {
		t.Fatalf("submissions = %d, want 1", len(subs))
	}
	s := subs[0]
	if s.Textures[0] != tex1 || s.Textures[1] != tex2 {
		t.Error("mesh textures out of order")
	}
	if s.Meshes[0].QuadCount != 2 || s.Meshes[1].QuadCount != 1 {
		t.Errorf("mesh quads = %d, %d; want 2, 1", s.Meshes[0].QuadCount, s.Meshes[1].QuadCount)
	}
	if s.GP.Sampler.AddressMode != gputypes.AddressModeClampToEdge {
		t.Error("sampler must clamp to edge")
	}
	if target.TexturesCreated() != 2 {
		t.Errorf("TexturesCreated() = %d, want 2", target.TexturesCreated())
	}
	if tex1.Refs() != 1 || tex1.PendingReads() != 0 {
		t.Errorf("tex1 refs %d reads %d after flush", tex1.Refs(), tex1.PendingReads())
	}
}

func TestVertexBudgetShortfall(t *testing.T) {
	target := New(Config{VertexBudget: 4 * 70, MaxVerticesPerAlloc: 4 * 32})
	list := texop.NewList(target.Caps())
	p := newProxy(t, "atlas")
	for i := range 100 {
		if err := list.Add(drawOp(t, nil, p, geom.RectXYWH(float32(i), 0, 32, 32))); err != nil {
			t.Fatal(err)
		}
	}
	if n := len(list.Chains()); n != 1 {
		t.Fatalf("chains = %d, want 1 merged op", n)
	}
	stats, err := list.Flush(target)
	if !errors.Is(err, texop.ErrVertexAllocFailed) || !errors.Is(err, ErrOutOfVertexSpace) {
		t.Fatalf("err = %v, want vertex shortfall", err)
	}
	if stats.Quads != 70 || stats.FailedChains != 1 || stats.Draws != 1 {
		t.Fatalf("stats = %+v", stats)
	}
	q := 0
	for _, m := range target.Submissions()[0].Meshes {
		verts := MeshVertices(m)
		stride := len(verts) / m.VertexCount
		for i := range m.QuadCount {
			x := readX(verts[i*4*stride:])
			if x != float32(q) {
				t.Fatalf("quad %d starts at x %v, want %v", q, x, q)
			}
			q++
		}
	}
	if q != 70 {
		t.Errorf("walked %d quads, want 70", q)
	}
	if target.VerticesUsed() != 280 {
		t.Errorf("VerticesUsed() = %d, want 280", target.VerticesUsed())
	}
	target.Reset()
	if target.VerticesUsed() != 0 || len(target.Submissions()) != 0 {
		t.Error("Reset() kept state")
	}
}

func TestTextureBudget(t *testing.T) {
	target := New(Config{TextureBudget: 32 * 32 * 4})
	a, b := newProxy(t, "a"), newProxy(t, "b")
	if !a.Instantiate(target) {
		t.Fatal("first texture must fit")
	}
	if b.Instantiate(target) || !errors.Is(b.Err(), ErrTextureBudget) {
		t.Errorf("second texture err = %v, want ErrTextureBudget", b.Err())
	}
}

func TestDrawValidatesBindings(t *testing.T) {
	target := New(Config{})
	gp := &texop.GeometryProcessor{}
	meshes := []texop.Mesh{{QuadCount: 1}}
	if err := target.Draw(gp, texop.Pipeline{}, nil, nil, meshes); !errors.Is(err, ErrBadSubmission) {
		t.Errorf("no bindings err = %v", err)
	}
	dyn := &texop.DynamicStateArrays{}
	if err := target.Draw(gp, texop.Pipeline{}, nil, dyn, meshes); !errors.Is(err, ErrBadSubmission) {
		t.Errorf("short dynamic array err = %v", err)
	}
}

func TestQuadIndexPattern(t *testing.T) {
	target := New(Config{})
	spec := quadaa.VertexSpec{AAType: quadaa.AACoverage}
	ib, err := target.QuadIndexPattern(spec, 2)
	if err != nil {
		t.Fatal(err)
	}
	if ib.Count != 60 || len(ib.Buffer.([]uint16)) != 60 {
		t.Errorf("Count = %d, want 60", ib.Count)
	}
	if _, err := target.QuadIndexPattern(spec, 0); err == nil {
		t.Error("zero quads must fail")
	}
}
