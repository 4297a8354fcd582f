package geom

import "testing"

func TestNewQuadCornerOrder(t *testing.T) {
	q := NewQuad(Rect{L: 1, T: 2, R: 5, B: 7}, Identity())
	want := []Point{{1, 2}, {1, 7}, {5, 2}, {5, 7}}
	for i, p := range want {
		if got := q.Point(i); got != p {
			t.Errorf("corner %d = %v, want %v", i, got, p)
		}
	}
	if q.AsRect() != (Rect{L: 1, T: 2, R: 5, B: 7}) {
		t.Errorf("AsRect() = %v", q.AsRect())
	}
}

func TestQuadBoundsPerspectiveDivide(t *testing.T) {
	q := Quad{
		X: [4]float32{0, 0, 20, 20},
		Y: [4]float32{0, 20, 0, 20},
		W: [4]float32{1, 1, 2, 2},
	}
	got := q.Bounds(QuadTypePerspective)
	want := Rect{L: 0, T: 0, R: 10, B: 20}
	if got != want {
		t.Errorf("Bounds(Perspective) = %v, want %v", got, want)
	}
	// Without the divide the raw coordinates are used.
	if got := q.Bounds(QuadTypeStandard); got.R != 20 {
		t.Errorf("Bounds(Standard).R = %v, want 20", got.R)
	}
}

func TestBoundsZeroArea(t *testing.T) {
	tests := []struct {
		name string
		r    Rect
		zero bool
	}{
		{"normal", RectXYWH(0, 0, 4, 4), false},
		{"zero width", RectXYWH(3, 0, 0, 4), true},
		{"point", RectXYWH(3, 3, 0, 0), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBounds(NewQuad(tt.r, Identity()), QuadTypeRect, false)
			if b.ZeroArea != tt.zero {
				t.Errorf("ZeroArea = %v, want %v", b.ZeroArea, tt.zero)
			}
		})
	}
}

func TestBoundsJoinAndOuter(t *testing.T) {
	a := NewBounds(QuadFromRect(RectXYWH(0, 0, 2, 2)), QuadTypeRect, false)
	b := NewBounds(QuadFromRect(RectXYWH(5, 5, 0, 3)), QuadTypeRect, true)
	j := a.Join(b)
	if j.Rect != (Rect{L: 0, T: 0, R: 5, B: 8}) {
		t.Errorf("Join().Rect = %v", j.Rect)
	}
	if !j.AABloat || j.ZeroArea {
		t.Errorf("Join() flags = bloat %v zero %v, want true false", j.AABloat, j.ZeroArea)
	}
	if got := j.Outer(); got != (Rect{L: -0.5, T: -0.5, R: 5.5, B: 8.5}) {
		t.Errorf("Outer() = %v", got)
	}
}

func TestAAHasEffect(t *testing.T) {
	tests := []struct {
		name string
		r    Rect
		typ  QuadType
		want bool
	}{
		{"pixel aligned", RectXYWH(0, 0, 10, 10), QuadTypeRect, false},
		{"half pixel", RectXYWH(0.5, 0, 10, 10), QuadTypeRect, true},
		{"fractional size", RectXYWH(0, 0, 10, 10.25), QuadTypeRect, true},
		{"standard", RectXYWH(0, 0, 10, 10), QuadTypeStandard, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := QuadFromRect(tt.r).AAHasEffect(tt.typ); got != tt.want {
				t.Errorf("AAHasEffect() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFraction(t *testing.T) {
	tests := []struct{ in, want float32 }{
		{0, 0}, {1.25, 0.25}, {-0.75, 0.25}, {3, 0},
	}
	for _, tt := range tests {
		if got := Fraction(tt.in); got != tt.want {
			t.Errorf("Fraction(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestRectJoinIgnoresEmpty(t *testing.T) {
	r := RectXYWH(1, 1, 2, 2)
	if got := r.Join(Rect{}); got != r {
		t.Errorf("Join(empty) = %v, want %v", got, r)
	}
	if got := (Rect{}).Join(r); got != r {
		t.Errorf("empty.Join(r) = %v, want %v", got, r)
	}
}

func TestQuadList(t *testing.T) {
	var a, b QuadList[int]
	a.Push(QuadFromRect(RectWH(1, 1)), QuadTypeRect, 1)
	b.Push(QuadFromRect(RectWH(2, 2)), QuadTypeStandard, 2)
	b.Push(QuadFromRect(RectWH(3, 3)), QuadTypeRect, 3)
	a.Concat(&b)
	if a.Len() != 3 || a.Type() != QuadTypeStandard {
		t.Fatalf("Len, Type = %d, %v; want 3, Standard", a.Len(), a.Type())
	}
	for i := range 3 {
		if _, m := a.At(i); m != i+1 {
			t.Errorf("At(%d) meta = %d, want %d", i, m, i+1)
		}
	}
	a.Reset()
	if a.Len() != 0 || a.Type() != QuadTypeRect {
		t.Error("Reset() did not empty the list")
	}
}
