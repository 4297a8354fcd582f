package quadaa

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/texquad/geom"
)

// ColorType is the precision of the per-vertex color attribute.
type ColorType uint8

const (
	// ColorByte packs RGBA as unorm8x4.
	ColorByte ColorType = iota
	// ColorHalf packs RGBA as float16x4 for out-of-range colors.
	ColorHalf
)

// String returns the color type name.
func (c ColorType) String() string {
	if c == ColorHalf {
		return "Half"
	}
	return "Byte"
}

// Domain reports whether vertices carry a sampling domain rect.
type Domain bool

// Domain values.
const (
	DomainNone Domain = false
	DomainYes  Domain = true
)

// Vertex attribute sizes in bytes.
const (
	position2Size  = 2 * 4
	position3Size  = 3 * 4
	colorByteSize  = 4
	colorHalfSize  = 4 * 2
	localRectSize  = 2 * 4
	localPerspSize = 3 * 4
	domainSize     = 4 * 4
	coverageSize   = 4
)

// Per-quad vertex and index counts.
const (
	verticesPerQuad   = 4
	verticesPerAAQuad = 8
	indicesPerQuad    = 6
	indicesPerAAQuad  = 30
)

// VertexSpec is the vertex format shared by every quad of a submission.
type VertexSpec struct {
	DeviceQuadType geom.QuadType
	LocalQuadType  geom.QuadType
	HasLocal       bool
	ColorType      ColorType
	Domain         Domain
	AAType         AAType
}

// String implements fmt.Stringer.
func (s VertexSpec) String() string {
	return fmt.Sprintf("VertexSpec{device:%s local:%s color:%s domain:%t aa:%s}",
		s.DeviceQuadType, s.LocalQuadType, s.ColorType, bool(s.Domain), s.AAType)
}

// UsesCoverageAA reports whether quads are tessellated with an outset ring.
func (s VertexSpec) UsesCoverageAA() bool { return s.AAType == AACoverage }

// VerticesPerQuad returns 8 with coverage AA and 4 otherwise.
func (s VertexSpec) VerticesPerQuad() int {
	if s.UsesCoverageAA() {
		return verticesPerAAQuad
	}
	return verticesPerQuad
}

// IndicesPerQuad returns 30 with coverage AA and 6 otherwise.
func (s VertexSpec) IndicesPerQuad() int {
	if s.UsesCoverageAA() {
		return indicesPerAAQuad
	}
	return indicesPerQuad
}

func (s VertexSpec) perspective() bool { return s.DeviceQuadType == geom.QuadTypePerspective }

// VertexSize returns the byte stride of one vertex.
func (s VertexSpec) VertexSize() int {
	n := position2Size
	if s.perspective() {
		n = position3Size
	}
	if s.ColorType == ColorHalf {
		n += colorHalfSize
	} else {
		n += colorByteSize
	}
	if s.HasLocal {
		if s.LocalQuadType == geom.QuadTypePerspective {
			n += localPerspSize
		} else {
			n += localRectSize
		}
	}
	if s.Domain {
		n += domainSize
	}
	if s.UsesCoverageAA() {
		n += coverageSize
	}
	return n
}

// Attributes returns the interleaved vertex attributes in shader
// location order: position, color, local, domain, coverage.
func (s VertexSpec) Attributes() []gputypes.VertexAttribute {
	attrs := make([]gputypes.VertexAttribute, 0, 5)
	var offset uint64
	add := func(f gputypes.VertexFormat, size int) {
		attrs = append(attrs, gputypes.VertexAttribute{
			Format:         f,
			Offset:         offset,
			ShaderLocation: uint32(len(attrs)),
		})
		offset += uint64(size)
	}
	if s.perspective() {
		add(gputypes.VertexFormatFloat32x3, position3Size)
	} else {
		add(gputypes.VertexFormatFloat32x2, position2Size)
	}
	if s.ColorType == ColorHalf {
		add(gputypes.VertexFormatFloat16x4, colorHalfSize)
	} else {
		add(gputypes.VertexFormatUnorm8x4, colorByteSize)
	}
	if s.HasLocal {
		if s.LocalQuadType == geom.QuadTypePerspective {
			add(gputypes.VertexFormatFloat32x3, localPerspSize)
		} else {
			add(gputypes.VertexFormatFloat32x2, localRectSize)
		}
	}
	if s.Domain {
		add(gputypes.VertexFormatFloat32x4, domainSize)
	}
	if s.UsesCoverageAA() {
		add(gputypes.VertexFormatFloat32, coverageSize)
	}
	return attrs
}

// Layout returns the single interleaved vertex buffer layout.
func (s VertexSpec) Layout() []gputypes.VertexBufferLayout {
	return []gputypes.VertexBufferLayout{{
		ArrayStride: uint64(s.VertexSize()),
		StepMode:    gputypes.VertexStepModeVertex,
		Attributes:  s.Attributes(),
	}}
}
