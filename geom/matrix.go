package geom

import (
	"math"

	"golang.org/x/image/math/f32"
)

// Matrix is a 3x3 projective transform in row-major order:
//
//	| ScaleX SkewX  TransX |
//	| SkewY  ScaleY TransY |
//	| Persp0 Persp1 Persp2 |
//
// Points are treated as column vectors, so p' = M * (x, y, 1).
type Matrix f32.Mat3

// Element indices into Matrix.
const (
	MScaleX = iota
	MSkewX
	MTransX
	MSkewY
	MScaleY
	MTransY
	MPersp0
	MPersp1
	MPersp2
)

// Identity returns the identity transform.
func Identity() Matrix {
	return Matrix{1, 0, 0, 0, 1, 0, 0, 0, 1}
}

// Translate returns a translation by (tx, ty).
func Translate(tx, ty float32) Matrix {
	return Matrix{1, 0, tx, 0, 1, ty, 0, 0, 1}
}

// Scale returns a scale by (sx, sy).
func Scale(sx, sy float32) Matrix {
	return Matrix{sx, 0, 0, 0, sy, 0, 0, 0, 1}
}

// Skew returns a skew by (kx, ky).
func Skew(kx, ky float32) Matrix {
	return Matrix{1, kx, 0, ky, 1, 0, 0, 0, 1}
}

// Rotate returns a rotation by angle radians. Multiples of a quarter turn
// are snapped so they keep rects axis-aligned.
func Rotate(angle float64) Matrix {
	sin, cos := math.Sincos(angle)
	s, c := snapZero(float32(sin)), snapZero(float32(cos))
	return Matrix{c, -s, 0, s, c, 0, 0, 0, 1}
}

func snapZero(v float32) float32 {
	if math.Abs(float64(v)) < 1e-7 {
		return 0
	}
	return v
}

// Perspective returns a transform with the given bottom-row perspective terms.
func Perspective(px, py float32) Matrix {
	return Matrix{1, 0, 0, 0, 1, 0, px, py, 1}
}

// Concat returns m * o, which applies o first and then m.
func (m Matrix) Concat(o Matrix) Matrix {
	var r Matrix
	for row := range 3 {
		for col := range 3 {
			r[row*3+col] = m[row*3]*o[col] + m[row*3+1]*o[3+col] + m[row*3+2]*o[6+col]
		}
	}
	return r
}

// MapPoint maps (x, y, 1) and returns the homogeneous result.
func (m Matrix) MapPoint(x, y float32) f32.Vec3 {
	return f32.Vec3{
		m[MScaleX]*x + m[MSkewX]*y + m[MTransX],
		m[MSkewY]*x + m[MScaleY]*y + m[MTransY],
		m[MPersp0]*x + m[MPersp1]*y + m[MPersp2],
	}
}

// HasPerspective reports whether the bottom row differs from [0 0 1].
func (m Matrix) HasPerspective() bool {
	return m[MPersp0] != 0 || m[MPersp1] != 0 || m[MPersp2] != 1
}

// RectStaysRect reports whether the transform maps every axis-aligned
// rect to an axis-aligned rect: a non-degenerate scale, or a quarter
// turn expressed entirely through the skew terms.
func (m Matrix) RectStaysRect() bool {
	if m.HasPerspective() {
		return false
	}
	sx, kx := m[MScaleX], m[MSkewX]
	ky, sy := m[MSkewY], m[MScaleY]
	if kx == 0 && ky == 0 {
		return sx != 0 && sy != 0
	}
	return sx == 0 && sy == 0 && kx != 0 && ky != 0
}

// Invert returns the inverse of m and false if m is singular.
func (m Matrix) Invert() (Matrix, bool) {
	inv, ok := invert3(f32.Mat3(m))
	return Matrix(inv), ok
}

func invert3(a f32.Mat3) (f32.Mat3, bool) {
	c00 := a[4]*a[8] - a[5]*a[7]
	c01 := a[5]*a[6] - a[3]*a[8]
	c02 := a[3]*a[7] - a[4]*a[6]
	det := a[0]*c00 + a[1]*c01 + a[2]*c02
	if det == 0 || math.IsNaN(float64(det)) || math.Abs(float64(det)) < 1e-12 {
		return f32.Mat3{}, false
	}
	inv := 1 / det
	return f32.Mat3{
		c00 * inv,
		(a[2]*a[7] - a[1]*a[8]) * inv,
		(a[1]*a[5] - a[2]*a[4]) * inv,
		c01 * inv,
		(a[0]*a[8] - a[2]*a[6]) * inv,
		(a[2]*a[3] - a[0]*a[5]) * inv,
		c02 * inv,
		(a[1]*a[6] - a[0]*a[7]) * inv,
		(a[0]*a[4] - a[1]*a[3]) * inv,
	}, true
}
