package quadaa

import "math"

// Index pattern for one quad without coverage AA: two triangles over the
// corners TL, BL, TR, BR.
var quadIndices = [indicesPerQuad]uint16{0, 1, 2, 2, 1, 3}

// Index pattern for one coverage-AA quad. Vertices 0-3 are the outset
// corners and 4-7 the inset corners, both in TL, BL, TR, BR order.
var aaQuadIndices = [indicesPerAAQuad]uint16{
	4, 5, 6, 6, 5, 7, // inner
	0, 1, 4, 4, 1, 5, // left
	1, 3, 5, 5, 3, 7, // bottom
	3, 2, 7, 7, 2, 6, // right
	2, 0, 6, 6, 0, 4, // top
}

// MaxQuadsPerPattern is the largest quad count a 16-bit index pattern can
// address for spec.
func MaxQuadsPerPattern(spec VertexSpec) int {
	return (math.MaxUint16 + 1) / spec.VerticesPerQuad()
}

// IndexPattern returns indices for quadCount consecutive quads. It panics if
// the vertices would not be addressable with 16-bit indices.
func IndexPattern(spec VertexSpec, quadCount int) []uint16 {
	if quadCount > MaxQuadsPerPattern(spec) {
		panic("quadaa: index pattern exceeds 16-bit range")
	}
	var one []uint16
	if spec.UsesCoverageAA() {
		one = aaQuadIndices[:]
	} else {
		one = quadIndices[:]
	}
	stride := uint16(spec.VerticesPerQuad())
	out := make([]uint16, 0, quadCount*len(one))
	for q := range quadCount {
		base := uint16(q) * stride
		for _, i := range one {
			out = append(out, base+i)
		}
	}
	return out
}
