// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package halgpu implements texop.FlushTarget on a gogpu/wgpu HAL device.
//
// A Target owns the device-side state a batched flush needs: textures for
// instantiated proxies, vertex buffers carved into per-mesh ranges, the
// shared quad index patterns, and one render pipeline per vertex layout.
// Draw only records submissions. Record uploads vertex data and encodes
// the recorded draws into a render pass owned by the caller.
//
//	target, err := halgpu.New(device, queue, halgpu.Config{})
//	list := texop.NewList(target.Caps())
//	// ... add ops ...
//	stats, err := list.Flush(target)
//	err = target.Record(pass)
//	target.Reset()
package halgpu

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/texquad"
	"github.com/gogpu/texquad/proxy"
	"github.com/gogpu/texquad/texop"
	"github.com/gogpu/wgpu/hal"
)

// Target errors.
var (
	// ErrNilDevice is returned when no HAL device or queue is available.
	ErrNilDevice = errors.New("halgpu: nil device or queue")

	// ErrNoHAL is returned by NewFromProvider for providers without HAL access.
	ErrNoHAL = errors.New("halgpu: provider does not expose HAL types")

	// ErrTextureBudget is returned when a texture would exceed the budget.
	ErrTextureBudget = errors.New("halgpu: texture budget exceeded")

	// ErrVertexBudget is returned when the per-frame vertex budget is spent.
	ErrVertexBudget = errors.New("halgpu: vertex budget exceeded")

	// ErrForeignTexture is returned when a proxy is backed by a texture
	// this target did not create.
	ErrForeignTexture = errors.New("halgpu: texture not created by this target")

	// ErrDestroyed is returned after Destroy.
	ErrDestroyed = errors.New("halgpu: target destroyed")
)

// Defaults applied to zero Config fields.
const (
	// DefaultTextureBudgetMB caps texture memory.
	DefaultTextureBudgetMB = 256

	// DefaultMaxVertexBytes caps vertex data per frame.
	DefaultMaxVertexBytes = 16 << 20

	// vertexChunkBytes is the size of each pooled vertex buffer.
	vertexChunkBytes = 1 << 20
)

// Config configures a Target.
type Config struct {
	// MaxVertexBytes caps the vertex bytes handed out between Resets.
	// Defaults to DefaultMaxVertexBytes if <= 0.
	MaxVertexBytes int

	// TextureBudgetMB caps the memory of textures created for proxies.
	// Defaults to DefaultTextureBudgetMB if <= 0.
	TextureBudgetMB int

	// TargetFormat is the color attachment format of the render pass.
	// Defaults to BGRA8Unorm.
	TargetFormat gputypes.TextureFormat

	// SampleCount is the render pass sample count. Defaults to 1.
	SampleCount uint32

	// Label prefixes the labels of created GPU objects.
	Label string

	// Caps are reported to the batching engine.
	Caps texop.Caps
}

func (c Config) withDefaults() Config {
	if c.MaxVertexBytes <= 0 {
		c.MaxVertexBytes = DefaultMaxVertexBytes
	}
	if c.TextureBudgetMB <= 0 {
		c.TextureBudgetMB = DefaultTextureBudgetMB
	}
	if c.TargetFormat == gputypes.TextureFormatUndefined {
		c.TargetFormat = gputypes.TextureFormatBGRA8Unorm
	}
	if c.SampleCount == 0 {
		c.SampleCount = 1
	}
	if c.Label == "" {
		c.Label = "texquad"
	}
	return c
}

// Target records texture-op draws against a HAL device.
//
// Target is safe for concurrent use, but a flush, Record and Reset of the
// same frame must not overlap.
type Target struct {
	device hal.Device
	queue  hal.Queue
	cfg    Config

	mu           sync.Mutex
	destroyed    bool
	textures     map[*Texture]struct{}
	textureBytes uint64
	vertices     vertexPool
	indices      indexPatterns
	programs     map[programKey]*program
	samplers     map[texop.SamplerState]hal.Sampler
	viewport     [2]float32
	draws        []*recordedDraw
}

// New returns a target using device and queue.
func New(device hal.Device, queue hal.Queue, cfg Config) (*Target, error) {
	if device == nil || queue == nil {
		return nil, ErrNilDevice
	}
	cfg = cfg.withDefaults()
	t := &Target{
		device:   device,
		queue:    queue,
		cfg:      cfg,
		textures: make(map[*Texture]struct{}),
		programs: make(map[programKey]*program),
		samplers: make(map[texop.SamplerState]hal.Sampler),
		viewport: [2]float32{1, 1},
	}
	t.vertices.init(device, queue, cfg)
	t.indices.init(device, queue, cfg.Label)
	texquad.Logger().Info("halgpu: target ready", "label", cfg.Label,
		"format", cfg.TargetFormat, "samples", cfg.SampleCount,
		"vertex_budget", cfg.MaxVertexBytes, "texture_budget_mb", cfg.TextureBudgetMB)
	return t, nil
}

// NewFromProvider returns a target on a device shared by a host such as
// gogpu. The provider must also implement HalDevice() any and HalQueue() any
// returning hal.Device and hal.Queue.
func NewFromProvider(provider gpucontext.DeviceProvider, cfg Config) (*Target, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrNoHAL
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is not hal.Device", ErrNoHAL)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrNoHAL)
	}
	if cfg.TargetFormat == gputypes.TextureFormatUndefined {
		cfg.TargetFormat = provider.SurfaceFormat()
	}
	return New(device, queue, cfg)
}

// ResourceProvider implements texop.FlushTarget.
func (t *Target) ResourceProvider() proxy.ResourceProvider { return t }

// Caps implements texop.FlushTarget.
func (t *Target) Caps() texop.Caps { return t.cfg.Caps }

// Config returns the configuration with defaults applied.
func (t *Target) Config() Config { return t.cfg }

// SetViewport sets the device-space size mapped onto clip space by the
// next recorded draws.
func (t *Target) SetViewport(width, height int) {
	t.mu.Lock()
	t.viewport = [2]float32{float32(max(width, 1)), float32(max(height, 1))}
	t.mu.Unlock()
}

// Reset drops recorded draws and recycles vertex space. Textures,
// pipelines and index patterns are kept.
func (t *Target) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resetLocked()
}

func (t *Target) resetLocked() {
	for _, d := range t.draws {
		d.destroy(t.device)
	}
	clear(t.draws)
	t.draws = t.draws[:0]
	t.vertices.reset()
}

// Destroy releases every GPU object owned by the target. Textures handed
// out by CreateTexture become invalid. Safe to call more than once.
func (t *Target) Destroy() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.destroyed {
		return
	}
	t.resetLocked()
	t.vertices.destroy()
	t.indices.destroy()
	for k, p := range t.programs {
		p.destroy(t.device)
		delete(t.programs, k)
	}
	for ss, s := range t.samplers {
		t.device.DestroySampler(s)
		delete(t.samplers, ss)
	}
	for tex := range t.textures {
		tex.destroy(t.device)
	}
	clear(t.textures)
	t.textureBytes = 0
	t.destroyed = true
	texquad.Logger().Debug("halgpu: destroyed", "label", t.cfg.Label)
}
