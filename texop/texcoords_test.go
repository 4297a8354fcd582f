package texop

import (
	"testing"

	"github.com/gogpu/texquad/geom"
	"github.com/gogpu/texquad/proxy"
)

func descProxy(t *testing.T, typ proxy.TextureType, origin proxy.Origin) *proxy.TextureProxy {
	t.Helper()
	p, err := proxy.New(proxy.Desc{Width: 100, Height: 50, Type: typ, Origin: origin})
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestSrcQuad(t *testing.T) {
	src := geom.Rect{L: 10, T: 5, R: 60, B: 25}
	tests := []struct {
		name   string
		typ    proxy.TextureType
		origin proxy.Origin
		want   geom.Rect
	}{
		{"2d top-left", proxy.Type2D, proxy.OriginTopLeft, geom.Rect{L: 0.1, T: 0.1, R: 0.6, B: 0.5}},
		{"2d bottom-left", proxy.Type2D, proxy.OriginBottomLeft, geom.Rect{L: 0.1, T: 0.9, R: 0.6, B: 0.5}},
		{"rectangle top-left", proxy.TypeRectangle, proxy.OriginTopLeft, src},
		{"rectangle bottom-left", proxy.TypeRectangle, proxy.OriginBottomLeft, geom.Rect{L: 10, T: 45, R: 60, B: 25}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := srcQuad(descProxy(t, tt.typ, tt.origin), src)
			if !rectNear(got, tt.want) {
				t.Errorf("srcQuad() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDomainRect(t *testing.T) {
	src := geom.Rect{L: 10, T: 5, R: 60, B: 25}
	rect := func(o proxy.Origin) *proxy.TextureProxy { return descProxy(t, proxy.TypeRectangle, o) }
	tests := []struct {
		name   string
		clamp  bool
		filter Filter
		p      *proxy.TextureProxy
		src    geom.Rect
		want   geom.Rect
	}{
		{"no domain", false, FilterBilerp, rect(proxy.OriginTopLeft), src, largeRect},
		{"nearest", true, FilterNearest, rect(proxy.OriginTopLeft), src, src},
		{"bilerp inset", true, FilterBilerp, rect(proxy.OriginTopLeft), src, geom.Rect{L: 10.5, T: 5.5, R: 59.5, B: 24.5}},
		{"bilerp narrow", true, FilterBilerp, rect(proxy.OriginTopLeft), geom.Rect{L: 10, T: 5, R: 10.5, B: 25}, geom.Rect{L: 10.25, T: 5.5, R: 10.25, B: 24.5}},
		{"mipmap no inset", true, FilterMipMap, rect(proxy.OriginTopLeft), src, src},
		{"bottom-left flip", true, FilterNearest, rect(proxy.OriginBottomLeft), src, geom.Rect{L: 10, T: 25, R: 60, B: 45}},
		{"normalized", true, FilterBilerp, descProxy(t, proxy.Type2D, proxy.OriginTopLeft), src, geom.Rect{L: 0.105, T: 0.11, R: 0.595, B: 0.49}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := domainRect(tt.clamp, tt.filter, tt.p, tt.src); !rectNear(got, tt.want) {
				t.Errorf("domainRect() = %v, want %v", got, tt.want)
			}
		})
	}
}

// The unclamped domain must contain every texture coordinate a quad can
// produce, including the AA outset.
func TestLargeRectContainsTexCoords(t *testing.T) {
	p := descProxy(t, proxy.TypeRectangle, proxy.OriginBottomLeft)
	q := srcQuad(p, geom.Rect{L: 0, T: 0, R: 100, B: 50})
	outset := geom.Rect{L: min(q.L, q.R), T: min(q.T, q.B), R: max(q.L, q.R), B: max(q.T, q.B)}.Outset(1, 1)
	if !largeRect.Contains(outset) {
		t.Errorf("largeRect does not contain %v", outset)
	}
}

func rectNear(a, b geom.Rect) bool {
	const eps = 1e-5
	d := func(x, y float32) bool { return x-y < eps && y-x < eps }
	return d(a.L, b.L) && d(a.T, b.T) && d(a.R, b.R) && d(a.B, b.B)
}
