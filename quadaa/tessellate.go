package quadaa

import (
	"encoding/binary"
	"fmt"
	"math"

	"golang.org/x/image/math/f32"

	"github.com/gogpu/texquad/geom"
)

// aaOffset is the distance edges move outward and inward for coverage AA.
const aaOffset = 0.5

// Tessellate writes the vertices of one quad to the front of dst and
// returns the unused remainder. local is the texture-space rect sampled by
// the quad, its corners matching device corners TL, BL, TR, BR. domain is
// written only when spec carries one.
//
// dst must hold spec.VerticesPerQuad()*spec.VertexSize() bytes.
func Tessellate(dst []byte, spec VertexSpec, device geom.Quad, color PMColor,
	local geom.Rect, domain geom.Rect, edges EdgeFlags) []byte {
	n := spec.VerticesPerQuad() * spec.VertexSize()
	if len(dst) < n {
		panic(fmt.Sprintf("quadaa: vertex storage %d bytes, need %d", len(dst), n))
	}
	w := vertexWriter{buf: dst, spec: spec}
	w.encodeColor(color)

	if !spec.UsesCoverageAA() {
		lx := [4]float32{local.L, local.L, local.R, local.R}
		ly := [4]float32{local.T, local.B, local.T, local.B}
		for i := range 4 {
			w.vertex(device.X[i], device.Y[i], device.W[i], lx[i], ly[i], domain, 1)
		}
		return dst[n:]
	}

	verts, ok := coverageVertices(device, edges)
	if !ok {
		w.fallback(device, local, domain)
		return dst[n:]
	}
	for _, v := range verts {
		x, y := v.x, v.y
		if spec.perspective() {
			x, y = x*v.w, y*v.w
		}
		w.vertex(x, y, v.w,
			local.L+v.u*(local.R-local.L), local.T+v.v*(local.B-local.T),
			domain, v.coverage)
	}
	return dst[n:]
}

// aaVertex is a tessellated point with its position in the quad's
// parameter space.
type aaVertex struct {
	x, y     float32 // projected device position
	w        float32 // homogeneous w at that position
	u, v     float32 // parameter along TL->TR and TL->BL
	coverage float32
}

// coverageVertices computes the outset and inset rings of q. It reports
// false for degenerate quads, which keep their original corners.
func coverageVertices(q geom.Quad, edges EdgeFlags) ([8]aaVertex, bool) {
	var out [8]aaVertex
	var p [4]geom.Point
	for i := range 4 {
		p[i] = q.Point(i)
	}
	inv, ok := squareToQuadInverse(q)
	if !ok {
		return out, false
	}
	area := signedArea(p)
	if area == 0 {
		return out, false
	}

	outer, inner, innerCov, ok := aaRings(p, area, edges)
	if !ok {
		return out, false
	}
	for i := range 4 {
		out[i] = unproject(inv, outer[i], 0)
		out[4+i] = unproject(inv, inner[i], innerCov)
	}
	return out, true
}

// Boundary edges in winding order, with the flag that antialiases each.
var quadEdges = [4]struct {
	from, to int
	flag     EdgeFlags
}{
	{geom.CornerTL, geom.CornerBL, EdgeLeft},
	{geom.CornerBL, geom.CornerBR, EdgeBottom},
	{geom.CornerBR, geom.CornerTR, EdgeRight},
	{geom.CornerTR, geom.CornerTL, EdgeTop},
}

// Edge indices into quadEdges.
const (
	edgeLeft = iota
	edgeBottom
	edgeRight
	edgeTop
)

// Each corner is the intersection of two edges.
var cornerEdges = [4][2]int{
	geom.CornerTL: {edgeTop, edgeLeft},
	geom.CornerBL: {edgeLeft, edgeBottom},
	geom.CornerTR: {edgeRight, edgeTop},
	geom.CornerBR: {edgeBottom, edgeRight},
}

type line struct {
	origin, dir, normal geom.Point
}

// aaRings offsets each flagged edge by half a pixel both ways. Spans
// narrower than the combined inset collapse the inner ring onto the
// center line and scale its coverage down.
func aaRings(p [4]geom.Point, area float32, edges EdgeFlags) (outer, inner [4]geom.Point, innerCov float32, ok bool) {
	var lines [4]line
	for i, e := range quadEdges {
		d := sub(p[e.to], p[e.from])
		l := length(d)
		if l == 0 {
			return outer, inner, 0, false
		}
		d = scale(d, 1/l)
		n := geom.Point{X: -d.Y, Y: d.X}
		if area > 0 {
			n = scale(n, -1)
		}
		lines[i] = line{origin: p[e.from], dir: d, normal: n}
	}

	var outDist, inDist [4]float32
	for i, e := range quadEdges {
		if edges&e.flag != 0 {
			outDist[i] = aaOffset
			inDist[i] = -aaOffset
		}
	}

	// Spans between opposite edges.
	width := abs(cross(lines[edgeLeft].dir, sub(p[geom.CornerTR], p[geom.CornerTL])))
	height := abs(cross(lines[edgeTop].dir, sub(p[geom.CornerBL], p[geom.CornerTL])))
	insetX := -(inDist[edgeLeft] + inDist[edgeRight])
	insetY := -(inDist[edgeTop] + inDist[edgeBottom])

	innerCov = 1
	narrowX := insetX > 0 && width < insetX
	narrowY := insetY > 0 && height < insetY
	if narrowX {
		inDist[edgeLeft], inDist[edgeRight] = 0, 0
		innerCov *= width / insetX
	}
	if narrowY {
		inDist[edgeTop], inDist[edgeBottom] = 0, 0
		innerCov *= height / insetY
	}

	outer = offsetCorners(p, lines, outDist)
	inner = offsetCorners(p, lines, inDist)
	if narrowX {
		inner[geom.CornerTL], inner[geom.CornerTR] = collapse(inner[geom.CornerTL], inner[geom.CornerTR])
		inner[geom.CornerBL], inner[geom.CornerBR] = collapse(inner[geom.CornerBL], inner[geom.CornerBR])
	}
	if narrowY {
		inner[geom.CornerTL], inner[geom.CornerBL] = collapse(inner[geom.CornerTL], inner[geom.CornerBL])
		inner[geom.CornerTR], inner[geom.CornerBR] = collapse(inner[geom.CornerTR], inner[geom.CornerBR])
	}
	return outer, inner, innerCov, true
}

func offsetCorners(p [4]geom.Point, lines [4]line, dist [4]float32) [4]geom.Point {
	var c [4]geom.Point
	for corner, pair := range cornerEdges {
		a, b := lines[pair[0]], lines[pair[1]]
		oa := add(a.origin, scale(a.normal, dist[pair[0]]))
		ob := add(b.origin, scale(b.normal, dist[pair[1]]))
		den := cross(a.dir, b.dir)
		if abs(den) < 1e-6 {
			// Collinear edges: shift the corner along both normals.
			c[corner] = add(p[corner], add(scale(a.normal, dist[pair[0]]), scale(b.normal, dist[pair[1]])))
			continue
		}
		s := cross(sub(ob, oa), b.dir) / den
		c[corner] = add(oa, scale(a.dir, s))
	}
	return c
}

func collapse(a, b geom.Point) (geom.Point, geom.Point) {
	m := geom.Point{X: 0.5 * (a.X + b.X), Y: 0.5 * (a.Y + b.Y)}
	return m, m
}

// squareToQuadInverse inverts the map (u, v, 1) -> homogeneous device
// point. Quads from transformed rects satisfy P(u,v) = TL + u*(TR-TL) + v*(BL-TL).
func squareToQuadInverse(q geom.Quad) (f32.Mat3, bool) {
	tl, tr, bl := geom.CornerTL, geom.CornerTR, geom.CornerBL
	h := geom.Matrix{
		q.X[tr] - q.X[tl], q.X[bl] - q.X[tl], q.X[tl],
		q.Y[tr] - q.Y[tl], q.Y[bl] - q.Y[tl], q.Y[tl],
		q.W[tr] - q.W[tl], q.W[bl] - q.W[tl], q.W[tl],
	}
	inv, ok := h.Invert()
	return f32.Mat3(inv), ok
}

func unproject(inv f32.Mat3, p geom.Point, coverage float32) aaVertex {
	u := inv[0]*p.X + inv[1]*p.Y + inv[2]
	v := inv[3]*p.X + inv[4]*p.Y + inv[5]
	s := inv[6]*p.X + inv[7]*p.Y + inv[8]
	if s == 0 {
		s = math.SmallestNonzeroFloat32
	}
	return aaVertex{x: p.X, y: p.Y, w: 1 / s, u: u / s, v: v / s, coverage: coverage}
}

func signedArea(p [4]geom.Point) float32 {
	ring := [4]int{geom.CornerTL, geom.CornerBL, geom.CornerBR, geom.CornerTR}
	var a float32
	for i := range 4 {
		a += cross(p[ring[i]], p[ring[(i+1)%4]])
	}
	return 0.5 * a
}

func add(a, b geom.Point) geom.Point          { return geom.Point{X: a.X + b.X, Y: a.Y + b.Y} }
func sub(a, b geom.Point) geom.Point          { return geom.Point{X: a.X - b.X, Y: a.Y - b.Y} }
func scale(a geom.Point, s float32) geom.Point { return geom.Point{X: a.X * s, Y: a.Y * s} }
func cross(a, b geom.Point) float32           { return a.X*b.Y - a.Y*b.X }
func length(a geom.Point) float32             { return float32(math.Hypot(float64(a.X), float64(a.Y))) }
func abs(v float32) float32                   { return float32(math.Abs(float64(v))) }

// vertexWriter appends interleaved little-endian vertices.
type vertexWriter struct {
	buf   []byte
	off   int
	spec  VertexSpec
	color [8]byte
}

func (w *vertexWriter) encodeColor(c PMColor) {
	if w.spec.ColorType == ColorHalf {
		c.PutHalf(w.color[:])
		return
	}
	b := c.Bytes()
	copy(w.color[:], b[:])
}

func (w *vertexWriter) f32(v float32) {
	binary.LittleEndian.PutUint32(w.buf[w.off:], math.Float32bits(v))
	w.off += 4
}

func (w *vertexWriter) vertex(x, y, wh, u, v float32, domain geom.Rect, coverage float32) {
	if w.spec.perspective() {
		w.f32(x)
		w.f32(y)
		w.f32(wh)
	} else {
		w.f32(x)
		w.f32(y)
	}
	if w.spec.ColorType == ColorHalf {
		w.off += copy(w.buf[w.off:], w.color[:colorHalfSize])
	} else {
		w.off += copy(w.buf[w.off:], w.color[:colorByteSize])
	}
	if w.spec.HasLocal {
		w.f32(u)
		w.f32(v)
		if w.spec.LocalQuadType == geom.QuadTypePerspective {
			w.f32(1)
		}
	}
	if w.spec.Domain {
		w.f32(domain.L)
		w.f32(domain.T)
		w.f32(domain.R)
		w.f32(domain.B)
	}
	if w.spec.UsesCoverageAA() {
		w.f32(coverage)
	}
}

// fallback emits the original corners twice: outer ring at zero coverage
// and inner ring at full coverage.
func (w *vertexWriter) fallback(q geom.Quad, local, domain geom.Rect) {
	lx := [4]float32{local.L, local.L, local.R, local.R}
	ly := [4]float32{local.T, local.B, local.T, local.B}
	for _, cov := range [2]float32{0, 1} {
		for i := range 4 {
			w.vertex(q.X[i], q.Y[i], q.W[i], lx[i], ly[i], domain, cov)
		}
	}
}
