// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package software is a CPU render.Device built on gg.
//
// Nodes receive a *gg.Context through DrawSink.Canvas; DrawSink.RenderPass
// is nil. Texture targets must be created with NewTexture.
//
// With WithStagingLatency the device also simulates GPU staged readback:
// the pixels are copied into a row-padded buffer (BGRA by default) that
// becomes readable a fixed number of polls later. This reproduces the
// frame latency of a hardware readback without a GPU.
package software
