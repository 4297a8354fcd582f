package texop

import (
	"math"

	"github.com/gogpu/texquad/geom"
	"github.com/gogpu/texquad/proxy"
)

// largeRect is a domain that never constrains sampling.
var largeRect = geom.Rect{L: -100000, T: -100000, R: 1000000, B: 1000000}

// texelScale returns the factors mapping texel coordinates to sampler
// coordinates and the height used to flip bottom-left textures.
func texelScale(p *proxy.TextureProxy) (iw, ih, h float32) {
	if p.TextureType() == proxy.TypeRectangle {
		return 1, 1, float32(p.Height())
	}
	return 1 / float32(p.Width()), 1 / float32(p.Height()), 1
}

// srcQuad maps a texel rect to the sampler-space rect whose corners match
// the device quad's TL, BL, TR, BR.
func srcQuad(p *proxy.TextureProxy, src geom.Rect) geom.Rect {
	iw, ih, h := texelScale(p)
	r := geom.Rect{L: iw * src.L, T: ih * src.T, R: iw * src.R, B: ih * src.B}
	if p.Origin() == proxy.OriginBottomLeft {
		r.T = h - r.T
		r.B = h - r.B
	}
	return r
}

// domainRect returns the rect sampling is clamped to. Bilinear filtering
// pulls each edge in by half a texel; spans under one texel collapse to
// their center.
func domainRect(clamp bool, filter Filter, p *proxy.TextureProxy, src geom.Rect) geom.Rect {
	if !clamp {
		return largeRect
	}
	d := src
	if filter == FilterBilerp {
		c := d.Center()
		if abs32(d.Width()) < 1 {
			d.L, d.R = c.X, c.X
		} else {
			d.L += 0.5
			d.R -= 0.5
		}
		if abs32(d.Height()) < 1 {
			d.T, d.B = c.Y, c.Y
		} else {
			d.T += 0.5
			d.B -= 0.5
		}
	}
	iw, ih, h := texelScale(p)
	d = geom.Rect{L: d.L * iw, T: d.T * ih, R: d.R * iw, B: d.B * ih}
	if p.Origin() == proxy.OriginBottomLeft {
		return geom.Rect{L: d.L, T: h - d.B, R: d.R, B: h - d.T}
	}
	return d
}

func abs32(v float32) float32 { return float32(math.Abs(float64(v))) }
