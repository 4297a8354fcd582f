// Package texquad batches and tessellates textured-quad draw operations.
//
// # Overview
//
// Callers record textured rectangles, each sampling a deferred texture
// handle, as draw operations. Adjacent operations are merged into a single
// draw when they share a texture and state, chained into one batched
// submission when only the texture differs, or kept apart. At flush the
// accumulated quads are expanded into interleaved vertex data with per-mesh
// texture bindings.
//
// # Packages
//
//   - geom: matrices, rectangles, device-space quads and their classification
//   - proxy: deferred texture handles with reference and pending-read tracking
//   - quadaa: antialiasing resolution, vertex layouts and quad tessellation
//   - texop: draw operations, combine/chain decisions and submission assembly
//   - backend/cpu: in-memory flush target
//   - backend/halgpu: flush target backed by a gogpu/wgpu HAL device
//
// # Logging
//
// The module is silent by default. Use [SetLogger] to route diagnostics
// to any [log/slog] handler.
package texquad
