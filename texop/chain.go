package texop

import (
	"fmt"
	"log/slog"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/texquad"
	"github.com/gogpu/texquad/geom"
	"github.com/gogpu/texquad/proxy"
	"github.com/gogpu/texquad/quadaa"
)

// Chain is an ordered run of ops submitted back to back as one draw.
type Chain struct {
	ops []*Op
}

// NewChain starts a chain at head.
func NewChain(head *Op) *Chain {
	return &Chain{ops: []*Op{head}}
}

// Append adds op after the current tail. op must have been accepted with
// MayChain; mixing color transforms or incompatible AA panics.
func (c *Chain) Append(op *Op) {
	head := c.ops[0]
	if !ColorSpaceXformsEqual(head.xform, op.xform) {
		panic("texop: chained ops with different color transforms")
	}
	if ok, _ := aaCompatible(head.aa, op.aa); !ok {
		panic(fmt.Sprintf("texop: chained ops mix AA %v and %v", head.aa, op.aa))
	}
	if head.filter != op.filter {
		panic(fmt.Sprintf("texop: chained ops mix filters %v and %v", head.filter, op.filter))
	}
	c.ops = append(c.ops, op)
}

// Ops returns the chain members in submission order.
func (c *Chain) Ops() []*Op { return c.ops }

// Len returns the number of ops.
func (c *Chain) Len() int { return len(c.ops) }

// Tail returns the last op.
func (c *Chain) Tail() *Op { return c.ops[len(c.ops)-1] }

// VertexSpec resolves the vertex format covering every member: the most
// general quad type, half color if any member is wide, a domain if any
// member clamps, and coverage AA if any member uses it.
func (c *Chain) VertexSpec() quadaa.VertexSpec {
	head := c.ops[0]
	spec := quadaa.VertexSpec{
		DeviceQuadType: geom.QuadTypeRect,
		LocalQuadType:  geom.QuadTypeRect,
		HasLocal:       true,
		AAType:         head.aa,
	}
	for _, op := range c.ops {
		spec.DeviceQuadType = max(spec.DeviceQuadType, op.quads.Type())
		if op.wideColor {
			spec.ColorType = quadaa.ColorHalf
		}
		if op.domain {
			spec.Domain = quadaa.DomainYes
		}
		if op.aa == quadaa.AACoverage {
			if spec.AAType != quadaa.AACoverage && spec.AAType != quadaa.AANone {
				panic(fmt.Sprintf("texop: chain mixes AA %v and coverage", spec.AAType))
			}
			spec.AAType = quadaa.AACoverage
		}
	}
	return spec
}

// DrawStats summarizes one prepared chain.
type DrawStats struct {
	Draws    int
	Meshes   int
	Quads    int
	Vertices int
}

// PrepareDraws instantiates every proxy, tessellates all quads and submits
// them to target as one draw. Every op must be finalized.
//
// A proxy that fails to instantiate abandons the chain before anything is
// written. Running out of vertex or index space stops tessellation; meshes
// completed before the shortfall are still submitted and the error reports
// how many quads were dropped.
func (c *Chain) PrepareDraws(target FlushTarget) (DrawStats, error) {
	var stats DrawStats
	log := texquad.Logger()

	numProxies, totalQuads := 0, 0
	rp := target.ResourceProvider()
	for _, op := range c.ops {
		if op.state != opFinalized {
			panic("texop: prepare of an op that is not finalized")
		}
		for i := range op.bindings.len() {
			b := op.bindings.at(i)
			numProxies++
			totalQuads += b.quads
			if p := b.hold.proxy; !p.Instantiate(rp) {
				log.Warn("texop: abandoning chain", "proxy", p.ID(), "err", p.Err())
				return stats, fmt.Errorf("%w: proxy %d: %w", ErrInstantiateFailed, p.ID(), p.Err())
			}
		}
	}

	spec := c.VertexSpec()
	head := c.ops[0]
	first := head.Proxy(0)
	gp := &GeometryProcessor{
		Spec:        spec,
		TextureType: first.TextureType(),
		Format:      first.Format(),
		Sampler:     SamplerState{Filter: head.filter, AddressMode: gputypes.AddressModeClampToEdge},
		ColorXform:  head.xform,
	}
	pipeline := Pipeline{HWAntialias: spec.AAType == quadaa.AAMSAA}

	var fixed *FixedDynamicState
	var dynamic *DynamicStateArrays
	if numProxies > 1 {
		dynamic = &DynamicStateArrays{Textures: make([]*proxy.TextureProxy, 0, numProxies)}
	} else {
		fixed = &FixedDynamicState{Texture: first}
	}

	stride := gp.VertexStride()
	perQuad := spec.VerticesPerQuad()
	maxMeshQuads := quadaa.MaxQuadsPerPattern(spec)
	verticesLeft := totalQuads * perQuad
	meshes := make([]Mesh, 0, numProxies)

	var (
		space   VertexSpace
		used    int
		failure error
	)
assemble:
	for _, op := range c.ops {
		q := 0
		for i := range op.bindings.len() {
			b := op.bindings.at(i)
			p := b.hold.proxy
			for left := b.quads; left > 0; {
				if space.Count-used < perQuad {
					want := min(left, maxMeshQuads) * perQuad
					var err error
					space, err = target.MakeVertexSpaceAtLeast(stride, want, verticesLeft)
					used = 0
					if err != nil || space.Count < perQuad {
						failure = shortfall(ErrVertexAllocFailed, err, verticesLeft/perQuad, totalQuads)
						break assemble
					}
					log.Debug("texop: vertex space", "stride", stride, "want", want, "got", space.Count)
				}
				n := min(left, (space.Count-used)/perQuad, maxMeshQuads)
				idx, err := target.QuadIndexPattern(spec, n)
				if err != nil {
					failure = shortfall(ErrIndexAllocFailed, err, verticesLeft/perQuad, totalQuads)
					break assemble
				}
				op.tessellate(space.Data[used*stride:], spec, p, q, n)
				meshes = append(meshes, Mesh{
					VertexBuffer: space.Buffer,
					BaseVertex:   space.FirstVertex + used,
					VertexCount:  n * perQuad,
					Index:        idx,
					QuadCount:    n,
				})
				if dynamic != nil {
					dynamic.Textures = append(dynamic.Textures, p)
				}
				used += n * perQuad
				verticesLeft -= n * perQuad
				left -= n
				q += n
				stats.Quads += n
				stats.Vertices += n * perQuad
			}
		}
	}

	stats.Meshes = len(meshes)
	if len(meshes) > 0 {
		if err := target.Draw(gp, pipeline, fixed, dynamic, meshes); err != nil {
			return stats, fmt.Errorf("texop: draw: %w", err)
		}
		stats.Draws = 1
	}
	if failure != nil {
		log.Warn("texop: submission truncated", "meshes", len(meshes),
			slog.Int("quads", stats.Quads), slog.Int("total", totalQuads), "err", failure)
	}
	return stats, failure
}

func shortfall(kind, cause error, dropped, total int) error {
	if cause != nil {
		return fmt.Errorf("%w: %d of %d quads not buffered: %w", kind, dropped, total, cause)
	}
	return fmt.Errorf("%w: %d of %d quads not buffered", kind, dropped, total)
}

// tessellate writes quads [start, start+n) of o, which all sample p.
func (o *Op) tessellate(dst []byte, spec quadaa.VertexSpec, p *proxy.TextureProxy, start, n int) {
	for i := start; i < start+n; i++ {
		quad, info := o.quads.At(i)
		dst = quadaa.Tessellate(dst, spec, quad, info.color,
			srcQuad(p, info.src), domainRect(info.domain(), o.filter, p, info.src), info.edges())
	}
}
