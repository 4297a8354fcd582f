// Package quadaa resolves antialiasing for quads and expands quads into
// interleaved vertex data.
package quadaa

import (
	"fmt"
	"strings"

	"github.com/gogpu/texquad/geom"
)

// AAType is an antialiasing method.
type AAType uint8

const (
	// AANone draws aliased edges.
	AANone AAType = iota
	// AACoverage computes per-pixel coverage from outset geometry.
	AACoverage
	// AAMSAA relies on a multisampled render target.
	AAMSAA
)

var aaTypeNames = [...]string{
	AANone:     "None",
	AACoverage: "Coverage",
	AAMSAA:     "MSAA",
}

// String returns the method name.
func (a AAType) String() string {
	if int(a) < len(aaTypeNames) {
		return aaTypeNames[a]
	}
	return fmt.Sprintf("AAType(%d)", a)
}

// EdgeFlags selects which edges of a quad are antialiased.
type EdgeFlags uint8

// Edge bits.
const (
	EdgeLeft   EdgeFlags = 1 << 0
	EdgeTop    EdgeFlags = 1 << 1
	EdgeRight  EdgeFlags = 1 << 2
	EdgeBottom EdgeFlags = 1 << 3

	EdgeNone EdgeFlags = 0
	EdgeAll            = EdgeLeft | EdgeTop | EdgeRight | EdgeBottom
)

// String lists the set edges, e.g. "L|T".
func (e EdgeFlags) String() string {
	if e == EdgeNone {
		return "none"
	}
	var parts []string
	for _, f := range []struct {
		bit  EdgeFlags
		name string
	}{{EdgeLeft, "L"}, {EdgeTop, "T"}, {EdgeRight, "R"}, {EdgeBottom, "B"}} {
		if e&f.bit != 0 {
			parts = append(parts, f.name)
		}
	}
	return strings.Join(parts, "|")
}

// ResolveAAForQuad returns the method and edge mask a quad actually needs.
//
// Coverage with no edges, or on a rect whose edges lie on pixel
// boundaries, becomes AANone. AANone clears the mask and AAMSAA
// antialiases every edge.
func ResolveAAForQuad(aa AAType, edges EdgeFlags, q geom.Quad, t geom.QuadType) (AAType, EdgeFlags) {
	switch aa {
	case AANone:
		return AANone, EdgeNone
	case AACoverage:
		if edges == EdgeNone {
			return AANone, EdgeNone
		}
		if !q.AAHasEffect(t) {
			return AANone, EdgeNone
		}
		return AACoverage, edges
	case AAMSAA:
		return AAMSAA, EdgeAll
	default:
		panic(fmt.Sprintf("quadaa: unknown AA type %d", aa))
	}
}
