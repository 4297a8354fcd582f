package texop

import (
	"fmt"
	"strings"

	"github.com/gogpu/texquad/geom"
	"github.com/gogpu/texquad/proxy"
	"github.com/gogpu/texquad/quadaa"
)

// quadInfo is the per-quad metadata. flags packs the domain bit and the
// four AA edge bits.
type quadInfo struct {
	color quadaa.PMColor
	src   geom.Rect
	flags uint8
}

const (
	infoDomainBit  = 1 << 0
	infoEdgesShift = 1
)

func newQuadInfo(color quadaa.PMColor, src geom.Rect, domain bool, edges quadaa.EdgeFlags) quadInfo {
	info := quadInfo{color: color, src: src, flags: uint8(edges&quadaa.EdgeAll) << infoEdgesShift}
	if domain {
		info.flags |= infoDomainBit
	}
	return info
}

func (q quadInfo) domain() bool { return q.flags&infoDomainBit != 0 }

func (q quadInfo) edges() quadaa.EdgeFlags {
	return quadaa.EdgeFlags(q.flags>>infoEdgesShift) & quadaa.EdgeAll
}

type opState uint8

const (
	opRecording opState = iota
	opFinalized
	opReleased
)

// Op is a batch of textured quads drawn with one sampler state.
type Op struct {
	quads    geom.QuadList[quadInfo]
	bindings bindingTable
	xform    *ColorSpaceXform
	filter   Filter
	aa       quadaa.AAType
	bounds   geom.Bounds
	state    opState

	domain              bool
	wideColor           bool
	skipAllocatorGather bool
}

// SetEntry is one textured rect of a set op.
type SetEntry struct {
	Proxy   *proxy.TextureProxy
	SrcRect geom.Rect
	DstRect geom.Rect
	AAFlags quadaa.EdgeFlags
	Alpha   float32
}

// filterHasEffect reports whether filtering src onto an axis-aligned
// device rect changes any sample: true unless the size matches exactly
// and the left and top edges share their sub-pixel offset.
func filterHasEffect(device geom.Quad, src geom.Rect) bool {
	r := device.AsRect()
	return r.Width() != src.Width() || r.Height() != src.Height() ||
		geom.Fraction(r.L) != geom.Fraction(src.L) ||
		geom.Fraction(r.T) != geom.Fraction(src.T)
}

// NewOp records one textured rect. dst is mapped through viewMatrix and
// sampled from src, given in texels of p. The op takes its own ref on p.
//
// The filter is demoted to nearest when an axis-aligned draw samples
// texels one-to-one, and a strict constraint relaxes to fast when nearest
// filtering without coverage AA cannot bleed past src.
func NewOp(pool *Pool, p *proxy.TextureProxy, filter Filter, color quadaa.PMColor,
	src, dst geom.Rect, aa quadaa.AAType, aaFlags quadaa.EdgeFlags,
	constraint Constraint, viewMatrix geom.Matrix, xform *ColorSpaceXform) (*Op, error) {
	if p == nil {
		return nil, ErrNilProxy
	}
	quadType := geom.QuadTypeForTransformedRect(viewMatrix)
	quad := geom.NewQuad(dst, viewMatrix)

	aa, aaFlags = quadaa.ResolveAAForQuad(aa, aaFlags, quad, quadType)
	if quadType == geom.QuadTypeRect && filter != FilterNearest && !filterHasEffect(quad, src) {
		filter = FilterNearest
	}
	if constraint == ConstraintStrict && filter == FilterNearest && aa != quadaa.AACoverage {
		constraint = ConstraintFast
	}
	domain := constraint == ConstraintStrict

	op := pool.get()
	op.xform = xform
	op.filter = filter
	op.aa = aa
	op.domain = domain
	op.wideColor = !color.FitsInBytes()
	op.skipAllocatorGather = p.CanSkipResourceAllocator()
	op.bindings.push(binding{hold: holdProxy(p), quads: 1})
	op.quads.Push(quad, quadType, newQuadInfo(color, src, domain, aaFlags))
	op.bounds = geom.NewBounds(quad, quadType, aa == quadaa.AACoverage)
	return op, nil
}

// NewOpFromSet records one rect per entry, all sharing viewMatrix and
// filter. Each entry's color is its alpha clamped to [0, 1]. Set ops never
// clamp sampling to a domain.
//
// Every proxy must have the same texture type and format.
func NewOpFromSet(pool *Pool, entries []SetEntry, filter Filter, aa quadaa.AAType,
	viewMatrix geom.Matrix, xform *ColorSpaceXform) (*Op, error) {
	if len(entries) == 0 {
		return nil, ErrEmptySet
	}
	for i, e := range entries {
		if e.Proxy == nil {
			return nil, fmt.Errorf("entry %d: %w", i, ErrNilProxy)
		}
		if !proxy.CompatibleAsDynamicState(entries[0].Proxy, e.Proxy) {
			panic(fmt.Sprintf("texop: set entry %d proxy %v incompatible with %v", i, e.Proxy, entries[0].Proxy))
		}
	}
	quadType := geom.QuadTypeForTransformedRect(viewMatrix)

	op := pool.get()
	op.xform = xform
	op.skipAllocatorGather = true
	overallAA := quadaa.AANone
	mustFilter := false
	for i, e := range entries {
		quad := geom.NewQuad(e.DstRect, viewMatrix)
		aaForQuad, edges := quadaa.ResolveAAForQuad(aa, e.AAFlags, quad, quadType)
		if aaForQuad != quadaa.AANone {
			overallAA = aa
		}
		if !mustFilter && filter != FilterNearest {
			mustFilter = quadType != geom.QuadTypeRect || filterHasEffect(quad, e.SrcRect)
		}
		op.bindings.push(binding{hold: holdProxy(e.Proxy), quads: 1})
		op.quads.Push(quad, quadType, newQuadInfo(quadaa.Alpha(e.Alpha), e.SrcRect, false, edges))
		op.skipAllocatorGather = op.skipAllocatorGather && e.Proxy.CanSkipResourceAllocator()

		b := geom.NewBounds(quad, quadType, false)
		if i == 0 {
			op.bounds = b
		} else {
			op.bounds = op.bounds.Join(b)
		}
	}
	op.aa = overallAA
	op.bounds.AABloat = overallAA == quadaa.AACoverage
	op.filter = filter
	if !mustFilter {
		op.filter = FilterNearest
	}
	return op, nil
}

// Filter returns the sampling filter after any demotion.
func (o *Op) Filter() Filter { return o.filter }

// AAType returns the op's aggregate antialiasing method.
func (o *Op) AAType() quadaa.AAType { return o.aa }

// HasDomain reports whether any quad clamps sampling to its source rect.
func (o *Op) HasDomain() bool { return o.domain }

// WideColor reports whether any quad needs half-float color.
func (o *Op) WideColor() bool { return o.wideColor }

// QuadCount returns the number of recorded quads.
func (o *Op) QuadCount() int { return o.quads.Len() }

// QuadType returns the most general quad type of the op.
func (o *Op) QuadType() geom.QuadType { return o.quads.Type() }

// ProxyCount returns the number of texture bindings.
func (o *Op) ProxyCount() int { return o.bindings.len() }

// Proxy returns the proxy of binding i.
func (o *Op) Proxy(i int) *proxy.TextureProxy { return o.bindings.at(i).hold.proxy }

// ColorSpaceXform returns the op's color transform, possibly nil.
func (o *Op) ColorSpaceXform() *ColorSpaceXform { return o.xform }

// Bounds returns the device bounds of every quad.
func (o *Op) Bounds() geom.Bounds { return o.bounds }

// Finalized reports whether Finalize has run.
func (o *Op) Finalized() bool { return o.state == opFinalized }

// Finalize registers a pending read on every proxy and drops the op's
// plain refs. The op can no longer merge. Calling it twice panics.
func (o *Op) Finalize() {
	if o.state != opRecording {
		panic("texop: op finalized twice")
	}
	o.state = opFinalized
	o.bindings.each(func(b *binding) { b.hold.finalize() })
}

// Release drops the op's hold on its proxies: plain refs before Finalize,
// pending reads after. Releasing twice panics.
func (o *Op) Release() {
	if o.state == opReleased {
		panic("texop: op released twice")
	}
	o.bindings.each(func(b *binding) { b.hold.release() })
	o.state = opReleased
}

// VisitProxies calls fn for each proxy. The allocator gather skips ops
// whose proxies are all already backed.
func (o *Op) VisitProxies(fn func(*proxy.TextureProxy), v VisitorType) {
	if v == VisitAllocatorGather && o.skipAllocatorGather {
		return
	}
	o.bindings.each(func(b *binding) { fn(b.hold.proxy) })
}

// String returns a multi-line dump of the op for debugging.
func (o *Op) String() string {
	var sb strings.Builder
	outer := o.bounds.Outer()
	fmt.Fprintf(&sb, "TextureOp: quads %d filter %s aa %s domain %t wide %t bounds [%.2f %.2f %.2f %.2f]\n",
		o.quads.Len(), o.filter, o.aa, o.domain, o.wideColor, outer.L, outer.T, outer.R, outer.B)
	q := 0
	for i := range o.bindings.len() {
		b := o.bindings.at(i)
		fmt.Fprintf(&sb, "  %v quads %d\n", b.hold.proxy, b.quads)
		for range b.quads {
			quad, info := o.quads.At(q)
			fmt.Fprintf(&sb, "    %d: color %v edges %v src %v dst", q, info.color, info.edges(), info.src)
			for c := range 4 {
				p := quad.Point(c)
				fmt.Fprintf(&sb, " (%.2f, %.2f)", p.X, p.Y)
			}
			sb.WriteByte('\n')
			q++
		}
	}
	return sb.String()
}

// reset clears the op for reuse, keeping storage.
func (o *Op) reset() {
	o.quads.Reset()
	o.bindings.reset()
	o.xform = nil
	o.filter = FilterNearest
	o.aa = quadaa.AANone
	o.bounds = geom.Bounds{}
	o.state = opRecording
	o.domain = false
	o.wideColor = false
	o.skipAllocatorGather = false
}
