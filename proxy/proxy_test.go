// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package proxy

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"
)

type fakeTexture struct {
	w, h   int
	format gputypes.TextureFormat
}

func (t *fakeTexture) Size() (int, int)               { return t.w, t.h }
func (t *fakeTexture) Format() gputypes.TextureFormat { return t.format }

type fakeProvider struct {
	created int
	err     error
}

func (p *fakeProvider) CreateTexture(d Desc) (Texture, error) {
	if p.err != nil {
		return nil, p.err
	}
	p.created++
	return &fakeTexture{w: d.Width, h: d.Height, format: d.Format}, nil
}

func mustNew(t *testing.T, d Desc) *TextureProxy {
	t.Helper()
	p, err := New(d)
	if err != nil {
		t.Fatalf("New(%+v) error = %v", d, err)
	}
	return p
}

func TestNewValidatesSize(t *testing.T) {
	for _, d := range []Desc{{Width: 0, Height: 4}, {Width: 4, Height: -1}} {
		if _, err := New(d); !errors.Is(err, ErrInvalidSize) {
			t.Errorf("New(%dx%d) error = %v, want ErrInvalidSize", d.Width, d.Height, err)
		}
	}
}

func TestNewDefaultsAndIDs(t *testing.T) {
	a := mustNew(t, Desc{Width: 8, Height: 8})
	b := mustNew(t, Desc{Width: 8, Height: 8})
	if a.ID() == b.ID() {
		t.Error("proxies share an id")
	}
	if a.Format() != gputypes.TextureFormatRGBA8Unorm {
		t.Errorf("default format = %v, want RGBA8Unorm", a.Format())
	}
	if a.Refs() != 1 {
		t.Errorf("Refs() = %d, want 1", a.Refs())
	}
}

func TestRefAccounting(t *testing.T) {
	p := mustNew(t, Desc{Width: 4, Height: 4})
	p.Ref()
	p.AddPendingRead()
	p.Unref()
	p.Unref()
	if p.Idle() {
		t.Fatal("Idle() with a pending read")
	}
	p.CompletedRead()
	if !p.Idle() {
		t.Fatalf("Idle() = false, refs %d reads %d", p.Refs(), p.PendingReads())
	}
}

func TestUnrefBelowZeroPanics(t *testing.T) {
	p := mustNew(t, Desc{Width: 4, Height: 4})
	p.Unref()
	defer func() {
		if recover() == nil {
			t.Error("Unref below zero did not panic")
		}
	}()
	p.Unref()
}

func TestCompletedReadWithoutPendingPanics(t *testing.T) {
	p := mustNew(t, Desc{Width: 4, Height: 4})
	defer func() {
		if recover() == nil {
			t.Error("CompletedRead without AddPendingRead did not panic")
		}
	}()
	p.CompletedRead()
}

func TestInstantiate(t *testing.T) {
	p := mustNew(t, Desc{Width: 16, Height: 32, Label: "atlas"})
	rp := &fakeProvider{}
	if p.PeekTexture() != nil {
		t.Fatal("texture present before Instantiate")
	}
	if !p.Instantiate(rp) || !p.Instantiate(rp) {
		t.Fatal("Instantiate() = false")
	}
	if rp.created != 1 {
		t.Errorf("provider created %d textures, want 1", rp.created)
	}
	if w, h := p.PeekTexture().Size(); w != 16 || h != 32 {
		t.Errorf("texture size = %dx%d", w, h)
	}
}

func TestInstantiateFailure(t *testing.T) {
	boom := errors.New("out of memory")
	p := mustNew(t, Desc{Width: 16, Height: 16})
	if p.Instantiate(&fakeProvider{err: boom}) {
		t.Fatal("Instantiate() = true with failing provider")
	}
	if !errors.Is(p.Err(), boom) {
		t.Errorf("Err() = %v, want %v", p.Err(), boom)
	}
	if p.Instantiate(nil) || !errors.Is(p.Err(), ErrNoProvider) {
		t.Errorf("Instantiate(nil) err = %v, want ErrNoProvider", p.Err())
	}
}

func TestWrap(t *testing.T) {
	p := Wrap(&fakeTexture{w: 3, h: 5, format: gputypes.TextureFormatBGRA8Unorm}, TypeRectangle, OriginBottomLeft)
	if !p.CanSkipResourceAllocator() {
		t.Error("wrapped proxy must skip the resource allocator")
	}
	if p.Width() != 3 || p.Height() != 5 || p.Origin() != OriginBottomLeft || p.TextureType() != TypeRectangle {
		t.Errorf("wrapped proxy = %v", p)
	}
	if !p.Instantiate(nil) {
		t.Error("wrapped proxy must already be instantiated")
	}
}

func TestCompatibleAsDynamicState(t *testing.T) {
	base := Desc{Width: 4, Height: 4, Format: gputypes.TextureFormatRGBA8Unorm}
	tests := []struct {
		name string
		b    Desc
		want bool
	}{
		{"same", Desc{Width: 64, Height: 2, Format: gputypes.TextureFormatRGBA8Unorm}, true},
		{"origin differs", Desc{Width: 4, Height: 4, Format: gputypes.TextureFormatRGBA8Unorm, Origin: OriginBottomLeft}, true},
		{"format differs", Desc{Width: 4, Height: 4, Format: gputypes.TextureFormatR8Unorm}, false},
		{"type differs", Desc{Width: 4, Height: 4, Format: gputypes.TextureFormatRGBA8Unorm, Type: TypeRectangle}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CompatibleAsDynamicState(mustNew(t, base), mustNew(t, tt.b)); got != tt.want {
				t.Errorf("CompatibleAsDynamicState() = %v, want %v", got, tt.want)
			}
		})
	}
}
