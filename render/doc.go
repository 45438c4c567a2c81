// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package render defines the contracts between the tile rasterizer and the
// graphics stack that actually draws.
//
// The rasterizer RECEIVES a Device from the host application; it never
// creates one. Backends live in backend/software (CPU, built on gg) and
// backend/wgpu (GPU, built on gogpu/wgpu hal).
//
// # Core Types
//
//   - Node: caller-owned content drawn into a DrawSink
//   - Graph: the nodes a pass draws, membership lasting one frame
//   - Device: attach/detach a color target, draw a Pass, read pixels back
//   - Stager: optional GPU-side staging for asynchronous readback
//   - Attachment: a caller Texture or an internal PixelBuffer
//   - Extent, Projection, Viewport: world rectangle to pixel mapping
//
// # Frame Phases
//
// A device sees, per frame and from a single goroutine:
//
//	Detach → Attach → Draw → ReadPixels | Staging().BeginReadback
//
// Staged transfers complete on a later frame; StagingBuffer.Poll reports
// completion without blocking.
//
// # Thread Safety
//
// Devices, Graphs and DrawSinks are NOT thread-safe. They are owned by the
// render goroutine. StagingBuffer is safe for concurrent use.
package render
