package geom

import "math"

// Point is a device or texture space position.
type Point struct {
	X, Y float32
}

// Rect is an axis-aligned rectangle stored as left, top, right, bottom.
// A sorted rect has L <= R and T <= B.
type Rect struct {
	L, T, R, B float32
}

// RectXYWH returns the rect with origin (x, y) and the given size.
func RectXYWH(x, y, w, h float32) Rect {
	return Rect{L: x, T: y, R: x + w, B: y + h}
}

// RectWH returns the rect at the origin with the given size.
func RectWH(w, h float32) Rect {
	return Rect{R: w, B: h}
}

// Width returns R - L.
func (r Rect) Width() float32 { return r.R - r.L }

// Height returns B - T.
func (r Rect) Height() float32 { return r.B - r.T }

// IsEmpty reports whether the rect has zero or negative area.
func (r Rect) IsEmpty() bool { return !(r.L < r.R && r.T < r.B) }

// Center returns the midpoint of the rect.
func (r Rect) Center() Point {
	return Point{X: 0.5 * (r.L + r.R), Y: 0.5 * (r.T + r.B)}
}

// Outset grows the rect by dx horizontally and dy vertically on each side.
func (r Rect) Outset(dx, dy float32) Rect {
	return Rect{L: r.L - dx, T: r.T - dy, R: r.R + dx, B: r.B + dy}
}

// Join returns the smallest rect containing both r and o.
// An empty operand is ignored.
func (r Rect) Join(o Rect) Rect {
	if o.IsEmpty() {
		return r
	}
	if r.IsEmpty() {
		return o
	}
	return Rect{
		L: min(r.L, o.L),
		T: min(r.T, o.T),
		R: max(r.R, o.R),
		B: max(r.B, o.B),
	}
}

// Contains reports whether o lies entirely inside r.
func (r Rect) Contains(o Rect) bool {
	return r.L <= o.L && r.T <= o.T && r.R >= o.R && r.B >= o.B
}

// Fraction returns x minus its floor, computed in single precision.
func Fraction(x float32) float32 {
	return x - float32(math.Floor(float64(x)))
}

// IsInteger reports whether x has no fractional part.
func IsInteger(x float32) bool {
	return x == float32(math.Floor(float64(x)))
}
