// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package halgpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/texquad"
	"github.com/gogpu/texquad/proxy"
	"github.com/gogpu/wgpu/hal"
)

// Texture is a device texture created for a proxy.
type Texture struct {
	tex       hal.Texture
	view      hal.TextureView
	width     int
	height    int
	format    gputypes.TextureFormat
	sizeBytes uint64
	label     string
}

// Size implements proxy.Texture.
func (t *Texture) Size() (int, int) { return t.width, t.height }

// Format implements proxy.Texture.
func (t *Texture) Format() gputypes.TextureFormat { return t.format }

// HAL returns the underlying texture, for uploads by the host.
func (t *Texture) HAL() hal.Texture { return t.tex }

// View returns the sampled view.
func (t *Texture) View() hal.TextureView { return t.view }

func (t *Texture) destroy(device hal.Device) {
	if t.view != nil {
		device.DestroyTextureView(t.view)
		t.view = nil
	}
	if t.tex != nil {
		device.DestroyTexture(t.tex)
		t.tex = nil
	}
}

// MemoryStats reports texture memory held by a Target.
type MemoryStats struct {
	BudgetBytes  uint64
	UsedBytes    uint64
	TextureCount int
}

// String returns a human-readable summary.
func (s MemoryStats) String() string {
	return fmt.Sprintf("Memory[%d/%d MB, %d textures]",
		s.UsedBytes/(1024*1024), s.BudgetBytes/(1024*1024), s.TextureCount)
}

// MemoryStats returns current texture memory usage.
func (t *Target) MemoryStats() MemoryStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return MemoryStats{
		BudgetBytes:  t.budgetBytes(),
		UsedBytes:    t.textureBytes,
		TextureCount: len(t.textures),
	}
}

func (t *Target) budgetBytes() uint64 {
	//nolint:gosec // G115: TextureBudgetMB is positive after defaults
	return uint64(t.cfg.TextureBudgetMB) * 1024 * 1024
}

func bytesPerPixel(f gputypes.TextureFormat) uint64 {
	if f == gputypes.TextureFormatR8Unorm {
		return 1
	}
	return 4
}

// CreateTexture implements proxy.ResourceProvider.
func (t *Target) CreateTexture(d proxy.Desc) (proxy.Texture, error) {
	if d.Width <= 0 || d.Height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", proxy.ErrInvalidSize, d.Width, d.Height)
	}
	//nolint:gosec // G115: dimensions validated positive
	size := uint64(d.Width) * uint64(d.Height) * bytesPerPixel(d.Format)

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.destroyed {
		return nil, ErrDestroyed
	}
	if budget := t.budgetBytes(); t.textureBytes+size > budget {
		return nil, fmt.Errorf("%w: %q needs %d bytes, %d of %d in use",
			ErrTextureBudget, d.Label, size, t.textureBytes, budget)
	}

	label := t.cfg.Label + "_" + d.Label
	//nolint:gosec // G115: dimensions validated positive
	tex, err := t.device.CreateTexture(&hal.TextureDescriptor{
		Label: label,
		Size: hal.Extent3D{
			Width:              uint32(d.Width),
			Height:             uint32(d.Height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        d.Format,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create texture %q: %w", d.Label, err)
	}
	view, err := t.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label: label + "_view",
	})
	if err != nil {
		t.device.DestroyTexture(tex)
		return nil, fmt.Errorf("create texture view %q: %w", d.Label, err)
	}

	out := &Texture{
		tex:       tex,
		view:      view,
		width:     d.Width,
		height:    d.Height,
		format:    d.Format,
		sizeBytes: size,
		label:     d.Label,
	}
	t.textures[out] = struct{}{}
	t.textureBytes += size
	texquad.Logger().Debug("halgpu: texture", "label", d.Label, "bytes", size, "used", t.textureBytes)
	return out, nil
}

// FreeTexture destroys tex and returns its memory to the budget. The proxy
// backed by tex must no longer be drawn.
func (t *Target) FreeTexture(tex *Texture) {
	if tex == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.textures[tex]; !ok {
		return
	}
	delete(t.textures, tex)
	t.textureBytes -= tex.sizeBytes
	tex.destroy(t.device)
}

// textureOf returns the device texture backing an instantiated proxy.
func (t *Target) textureOf(p *proxy.TextureProxy) (*Texture, error) {
	tex, ok := p.PeekTexture().(*Texture)
	if !ok {
		return nil, fmt.Errorf("%w: proxy %d", ErrForeignTexture, p.ID())
	}
	if _, ok := t.textures[tex]; !ok {
		return nil, fmt.Errorf("%w: proxy %d", ErrForeignTexture, p.ID())
	}
	return tex, nil
}
