// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package proxy provides deferred texture handles.
//
// A TextureProxy describes a texture that may not be backed by a GPU
// allocation yet. Draw operations hold references to proxies while they
// are recorded and convert them into pending reads when finalized. The
// backing Texture is created lazily by a ResourceProvider at flush time.
package proxy

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/texquad"
)

// Proxy errors.
var (
	// ErrInvalidSize is returned for a non-positive width or height.
	ErrInvalidSize = errors.New("proxy: invalid texture size")

	// ErrNoProvider is returned when instantiating without a resource provider.
	ErrNoProvider = errors.New("proxy: nil resource provider")
)

// TextureType is the sampling class of a texture.
type TextureType uint8

const (
	// Type2D is a normalized-coordinate 2D texture.
	Type2D TextureType = iota
	// TypeRectangle samples with unnormalized texel coordinates.
	TypeRectangle
	// TypeExternal is an externally produced image, sampled normalized.
	TypeExternal
)

// String returns the texture type name.
func (t TextureType) String() string {
	switch t {
	case Type2D:
		return "2D"
	case TypeRectangle:
		return "Rectangle"
	case TypeExternal:
		return "External"
	default:
		return fmt.Sprintf("TextureType(%d)", t)
	}
}

// Origin is the row order of texture storage.
type Origin uint8

const (
	// OriginTopLeft stores row zero at the top.
	OriginTopLeft Origin = iota
	// OriginBottomLeft stores row zero at the bottom.
	OriginBottomLeft
)

// String returns the origin name.
func (o Origin) String() string {
	if o == OriginBottomLeft {
		return "BottomLeft"
	}
	return "TopLeft"
}

// ID uniquely identifies a proxy for the life of the process.
type ID uint32

var lastID atomic.Uint32

func nextID() ID { return ID(lastID.Add(1)) }

// Desc describes the texture a proxy stands for.
type Desc struct {
	Width, Height int
	Format        gputypes.TextureFormat
	Type          TextureType
	Origin        Origin
	Label         string
}

// Texture is a concrete backing allocation.
type Texture interface {
	Size() (width, height int)
	Format() gputypes.TextureFormat
}

// ResourceProvider creates backing textures on demand.
type ResourceProvider interface {
	CreateTexture(desc Desc) (Texture, error)
}

// TextureProxy is a reference-counted deferred texture handle.
//
// The ref and pending-read counters are atomic so flush may run on a
// different goroutine than recording. A new proxy carries one ref owned
// by its creator.
type TextureProxy struct {
	id   ID
	desc Desc

	refs         atomic.Int32
	pendingReads atomic.Int32

	mu      sync.Mutex
	texture Texture
	wrapped bool
	lastErr error
}

// New returns an uninstantiated proxy for desc.
func New(desc Desc) (*TextureProxy, error) {
	if desc.Width <= 0 || desc.Height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, desc.Width, desc.Height)
	}
	if desc.Format == gputypes.TextureFormatUndefined {
		desc.Format = gputypes.TextureFormatRGBA8Unorm
	}
	p := &TextureProxy{id: nextID(), desc: desc}
	p.refs.Store(1)
	return p, nil
}

// Wrap returns a proxy already backed by tex. Wrapped proxies never need
// the resource allocator.
func Wrap(tex Texture, typ TextureType, origin Origin) *TextureProxy {
	w, h := tex.Size()
	p := &TextureProxy{
		id: nextID(),
		desc: Desc{
			Width:  w,
			Height: h,
			Format: tex.Format(),
			Type:   typ,
			Origin: origin,
		},
		texture: tex,
		wrapped: true,
	}
	p.refs.Store(1)
	return p
}

// ID returns the unique proxy id.
func (p *TextureProxy) ID() ID { return p.id }

// Width returns the texture width in texels.
func (p *TextureProxy) Width() int { return p.desc.Width }

// Height returns the texture height in texels.
func (p *TextureProxy) Height() int { return p.desc.Height }

// Format returns the pixel format.
func (p *TextureProxy) Format() gputypes.TextureFormat { return p.desc.Format }

// TextureType returns the sampling class.
func (p *TextureProxy) TextureType() TextureType { return p.desc.Type }

// Origin returns the storage origin.
func (p *TextureProxy) Origin() Origin { return p.desc.Origin }

// Ref adds a plain reference.
func (p *TextureProxy) Ref() { p.refs.Add(1) }

// Unref drops a plain reference. Dropping more refs than were taken panics.
func (p *TextureProxy) Unref() {
	if n := p.refs.Add(-1); n < 0 {
		panic(fmt.Sprintf("proxy: unref of proxy %d below zero", p.id))
	}
}

// AddPendingRead records that a scheduled draw will read the texture.
func (p *TextureProxy) AddPendingRead() { p.pendingReads.Add(1) }

// CompletedRead retires one pending read.
func (p *TextureProxy) CompletedRead() {
	if n := p.pendingReads.Add(-1); n < 0 {
		panic(fmt.Sprintf("proxy: completed read of proxy %d without pending read", p.id))
	}
}

// Refs returns the current plain reference count.
func (p *TextureProxy) Refs() int { return int(p.refs.Load()) }

// PendingReads returns the number of outstanding scheduled reads.
func (p *TextureProxy) PendingReads() int { return int(p.pendingReads.Load()) }

// Idle reports whether no reference or pending read remains.
func (p *TextureProxy) Idle() bool {
	return p.refs.Load() == 0 && p.pendingReads.Load() == 0
}

// CanSkipResourceAllocator reports whether the proxy is already backed and
// need not be visited when the allocator gathers proxies.
func (p *TextureProxy) CanSkipResourceAllocator() bool { return p.wrapped }

// Instantiate ensures a backing texture exists, creating it through rp on
// first use. It reports false on failure; Err returns the cause.
func (p *TextureProxy) Instantiate(rp ResourceProvider) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.texture != nil {
		return true
	}
	if rp == nil {
		p.lastErr = ErrNoProvider
		return false
	}
	tex, err := rp.CreateTexture(p.desc)
	if err != nil {
		p.lastErr = fmt.Errorf("proxy %d: %w", p.id, err)
		texquad.Logger().Warn("proxy: instantiate failed",
			"id", p.id, "width", p.desc.Width, "height", p.desc.Height, "err", err)
		return false
	}
	p.texture = tex
	p.lastErr = nil
	return true
}

// PeekTexture returns the backing texture or nil before instantiation.
func (p *TextureProxy) PeekTexture() Texture {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.texture
}

// Err returns the last instantiation failure.
func (p *TextureProxy) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

// String implements fmt.Stringer.
func (p *TextureProxy) String() string {
	return fmt.Sprintf("proxy(%d %dx%d %s %s)", p.id, p.desc.Width, p.desc.Height, p.desc.Type, p.desc.Origin)
}

// CompatibleAsDynamicState reports whether a and b can be swapped per mesh
// within one submission: same texture type and pixel format.
func CompatibleAsDynamicState(a, b *TextureProxy) bool {
	return a.desc.Type == b.desc.Type && a.desc.Format == b.desc.Format
}
