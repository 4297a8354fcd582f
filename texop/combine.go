package texop

import (
	"github.com/gogpu/texquad"
	"github.com/gogpu/texquad/proxy"
	"github.com/gogpu/texquad/quadaa"
)

// aaCompatible reports whether ops with methods a and b can share a draw
// and whether the result must switch to coverage AA.
func aaCompatible(a, b quadaa.AAType) (ok, upgrade bool) {
	if a == b {
		return true, false
	}
	pair := func(x, y quadaa.AAType) bool { return x == quadaa.AACoverage && y == quadaa.AANone }
	if pair(a, b) || pair(b, a) {
		return true, true
	}
	return false, false
}

// CombineIfPossible tries to fold that, which was recorded after o, into o.
//
// Ops with different color transforms, incompatible AA or different
// filters never share a draw. Otherwise two single-texture ops on the same
// proxy merge; any other pair may chain when the textures are
// interchangeable per mesh and caps allow it.
//
// On Merged, o owns all of that's quads and the caller must Release that.
// Both ops must still be recording.
func (o *Op) CombineIfPossible(that *Op, caps Caps) CombineResult {
	if o.state != opRecording || that.state != opRecording {
		panic("texop: combine of a finalized op")
	}
	if !ColorSpaceXformsEqual(o.xform, that.xform) {
		return CannotCombine
	}
	ok, upgradeToCoverage := aaCompatible(o.aa, that.aa)
	if !ok {
		return CannotCombine
	}
	if o.filter != that.filter {
		return CannotCombine
	}

	a, b := o.Proxy(0), that.Proxy(0)
	if o.bindings.len() > 1 || that.bindings.len() > 1 || a.ID() != b.ID() {
		if proxy.CompatibleAsDynamicState(a, b) && caps.DynamicStateArrayTextures {
			texquad.Logger().Debug("texop: chain", "proxy", a.ID(), "next", b.ID())
			return MayChain
		}
		return CannotCombine
	}

	o.bindings.first.quads += that.bindings.first.quads
	o.quads.Concat(&that.quads)
	o.domain = o.domain || that.domain
	o.wideColor = o.wideColor || that.wideColor
	o.skipAllocatorGather = o.skipAllocatorGather && that.skipAllocatorGather
	if upgradeToCoverage {
		o.aa = quadaa.AACoverage
	}
	o.bounds = o.bounds.Join(that.bounds)
	texquad.Logger().Debug("texop: merge", "proxy", a.ID(), "quads", o.quads.Len())
	return Merged
}
