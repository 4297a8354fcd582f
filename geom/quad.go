package geom

import "fmt"

// QuadType classifies a device-space quad. Values are ordered by
// increasing generality so the type of a batch is the max of its members.
type QuadType uint8

const (
	// QuadTypeRect is an axis-aligned rectangle.
	QuadTypeRect QuadType = iota
	// QuadTypeStandard is a convex quad produced by an affine transform.
	QuadTypeStandard
	// QuadTypePerspective is a quad whose corners carry non-unit w.
	QuadTypePerspective
)

var quadTypeNames = [...]string{
	QuadTypeRect:        "Rect",
	QuadTypeStandard:    "Standard",
	QuadTypePerspective: "Perspective",
}

// String returns the quad type name.
func (t QuadType) String() string {
	if int(t) < len(quadTypeNames) {
		return quadTypeNames[t]
	}
	return fmt.Sprintf("QuadType(%d)", t)
}

// QuadTypeForTransformedRect classifies the image of any rect under m.
func QuadTypeForTransformedRect(m Matrix) QuadType {
	switch {
	case m.RectStaysRect():
		return QuadTypeRect
	case m.HasPerspective():
		return QuadTypePerspective
	default:
		return QuadTypeStandard
	}
}

// Corner indices. Corners follow the source rect in the order
// top-left, bottom-left, top-right, bottom-right.
const (
	CornerTL = 0
	CornerBL = 1
	CornerTR = 2
	CornerBR = 3
)

// Quad holds four homogeneous device-space corners.
type Quad struct {
	X, Y, W [4]float32
}

// NewQuad maps the corners of r through m.
func NewQuad(r Rect, m Matrix) Quad {
	xs := [4]float32{r.L, r.L, r.R, r.R}
	ys := [4]float32{r.T, r.B, r.T, r.B}
	var q Quad
	for i := range 4 {
		p := m.MapPoint(xs[i], ys[i])
		q.X[i], q.Y[i], q.W[i] = p[0], p[1], p[2]
	}
	return q
}

// QuadFromRect returns the untransformed corners of r.
func QuadFromRect(r Rect) Quad {
	return Quad{
		X: [4]float32{r.L, r.L, r.R, r.R},
		Y: [4]float32{r.T, r.B, r.T, r.B},
		W: [4]float32{1, 1, 1, 1},
	}
}

// Point returns corner i after the perspective divide.
func (q Quad) Point(i int) Point {
	if q.W[i] == 1 {
		return Point{X: q.X[i], Y: q.Y[i]}
	}
	iw := 1 / q.W[i]
	return Point{X: q.X[i] * iw, Y: q.Y[i] * iw}
}

// Bounds returns the device bounding box. Perspective quads divide by w
// first; other types use x and y directly.
func (q Quad) Bounds(t QuadType) Rect {
	var xs, ys [4]float32
	if t == QuadTypePerspective {
		for i := range 4 {
			p := q.Point(i)
			xs[i], ys[i] = p.X, p.Y
		}
	} else {
		xs, ys = q.X, q.Y
	}
	return Rect{
		L: min(xs[0], xs[1], xs[2], xs[3]),
		T: min(ys[0], ys[1], ys[2], ys[3]),
		R: max(xs[0], xs[1], xs[2], xs[3]),
		B: max(ys[0], ys[1], ys[2], ys[3]),
	}
}

// AsRect returns the rect spanned by the top-left and bottom-right corners.
// Meaningful only for QuadTypeRect.
func (q Quad) AsRect() Rect {
	return Rect{L: q.X[CornerTL], T: q.Y[CornerTL], R: q.X[CornerBR], B: q.Y[CornerBR]}
}

// AAHasEffect reports whether analytic antialiasing can change the pixels
// covered by q. A rect whose edges sit on integer coordinates is fully
// covered or uncovered per pixel.
func (q Quad) AAHasEffect(t QuadType) bool {
	if t != QuadTypeRect {
		return true
	}
	return !(IsInteger(q.X[CornerTL]) && IsInteger(q.Y[CornerTL]) &&
		IsInteger(q.X[CornerBR]) && IsInteger(q.Y[CornerBR]))
}

// Bounds is the recorded device extent of a draw.
type Bounds struct {
	Rect Rect
	// AABloat is set when antialiasing may touch pixels beyond Rect.
	AABloat bool
	// ZeroArea is set for draws whose geometry encloses no area.
	ZeroArea bool
}

// NewBounds returns the bounds of q, flagging zero-area geometry.
func NewBounds(q Quad, t QuadType, aaBloat bool) Bounds {
	r := q.Bounds(t)
	return Bounds{Rect: r, AABloat: aaBloat, ZeroArea: r.Width() == 0 || r.Height() == 0}
}

// Join merges o into b.
func (b Bounds) Join(o Bounds) Bounds {
	r := joinAny(b.Rect, o.Rect)
	return Bounds{
		Rect:     r,
		AABloat:  b.AABloat || o.AABloat,
		ZeroArea: b.ZeroArea && o.ZeroArea,
	}
}

// Outer returns the rect including the half-pixel antialiasing outset.
func (b Bounds) Outer() Rect {
	if b.AABloat {
		return b.Rect.Outset(0.5, 0.5)
	}
	return b.Rect
}

// joinAny unions sorted rects, including zero-area ones.
func joinAny(a, o Rect) Rect {
	return Rect{L: min(a.L, o.L), T: min(a.T, o.T), R: max(a.R, o.R), B: max(a.B, o.B)}
}
