// Package texop batches textured-quad draws.
//
// An Op records one or more textured quads. Adjacent ops are combined
// pairwise: ops sharing a texture and sampler state merge into one op,
// ops that differ only in a compatible texture are chained into one
// submission with per-mesh textures, and anything else stays separate.
// At flush a Chain resolves a common vertex format, tessellates every
// quad and hands meshes to a FlushTarget.
//
// # Lifecycle
//
// Ops hold a plain reference on each texture proxy while recording.
// Finalize converts those into pending reads exactly once, and Release
// drops whichever kind the op currently holds.
//
// # Concurrency
//
// Ops, chains and lists are not safe for concurrent use. Recording must be
// complete before a flush starts, which may then run on another goroutine.
package texop

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
)

// Flush and construction errors.
var (
	// ErrNilProxy is returned when an op is built without a texture proxy.
	ErrNilProxy = errors.New("texop: nil texture proxy")

	// ErrEmptySet is returned when a set op has no entries.
	ErrEmptySet = errors.New("texop: empty texture set")

	// ErrInstantiateFailed is returned when a proxy of a chain cannot be
	// backed by a texture. Nothing is drawn for that chain.
	ErrInstantiateFailed = errors.New("texop: texture instantiation failed")

	// ErrVertexAllocFailed is returned when the target cannot provide
	// vertex space for the remaining quads of a chain.
	ErrVertexAllocFailed = errors.New("texop: could not allocate vertices")

	// ErrIndexAllocFailed is returned when the target cannot provide the
	// index pattern for a mesh.
	ErrIndexAllocFailed = errors.New("texop: could not allocate indices")

	// ErrListClosed is returned when recording into a closed list.
	ErrListClosed = errors.New("texop: list is closed")
)

// Filter is the texture sampling filter.
type Filter uint8

const (
	// FilterNearest samples the nearest texel.
	FilterNearest Filter = iota
	// FilterBilerp interpolates the four nearest texels.
	FilterBilerp
	// FilterMipMap interpolates within and between mip levels.
	FilterMipMap
)

// String returns the filter name.
func (f Filter) String() string {
	switch f {
	case FilterNearest:
		return "Nearest"
	case FilterBilerp:
		return "Bilerp"
	case FilterMipMap:
		return "MipMap"
	default:
		return fmt.Sprintf("Filter(%d)", f)
	}
}

// FilterModes returns the min/mag and mipmap filter modes for f.
func (f Filter) FilterModes() (minMag, mipmap gputypes.FilterMode) {
	switch f {
	case FilterBilerp:
		return gputypes.FilterModeLinear, gputypes.FilterModeNearest
	case FilterMipMap:
		return gputypes.FilterModeLinear, gputypes.FilterModeLinear
	default:
		return gputypes.FilterModeNearest, gputypes.FilterModeNearest
	}
}

// Constraint controls whether sampling is clamped to the source rect.
type Constraint uint8

const (
	// ConstraintStrict never samples outside the source rect.
	ConstraintStrict Constraint = iota
	// ConstraintFast may filter texels just outside the source rect.
	ConstraintFast
)

// CombineResult is the outcome of combining two ops.
type CombineResult uint8

const (
	// CannotCombine keeps the ops in separate submissions.
	CannotCombine CombineResult = iota
	// Merged moved the later op's quads into the earlier op.
	Merged
	// MayChain allows the ops to share one submission with per-mesh textures.
	MayChain
)

var combineResultNames = [...]string{
	CannotCombine: "CannotCombine",
	Merged:        "Merged",
	MayChain:      "MayChain",
}

// String returns the result name.
func (r CombineResult) String() string {
	if int(r) < len(combineResultNames) {
		return combineResultNames[r]
	}
	return fmt.Sprintf("CombineResult(%d)", r)
}

// Caps are the backend capabilities consulted while batching.
type Caps struct {
	// DynamicStateArrayTextures allows a different texture per mesh
	// within one submission.
	DynamicStateArrayTextures bool
}

// ColorSpaceXform is a color-space conversion applied to sampled texels.
// Ops only compare transforms for equality; backends apply Gamut, a
// row-major 3x3 matrix on linear RGB.
type ColorSpaceXform struct {
	Src, Dst string
	Gamut    [9]float32
}

// ColorSpaceXformsEqual reports whether a and b describe the same
// conversion. Two nil transforms are equal.
func ColorSpaceXformsEqual(a, b *ColorSpaceXform) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}

// VisitorType identifies who is walking an op's proxies.
type VisitorType uint8

const (
	// VisitGeneric visits every proxy.
	VisitGeneric VisitorType = iota
	// VisitAllocatorGather is the resource allocator collecting proxies
	// that still need backing storage.
	VisitAllocatorGather
)
