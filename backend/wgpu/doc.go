// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package wgpu provides a render.Device backed by a gogpu/wgpu HAL device.
//
// Targets are BGRA8Unorm textures with RenderAttachment and CopySrc usage.
// Each draw pass opens one GPU render pass on the bound texture; nodes may
// record into it through DrawSink.RenderPass, or draw on DrawSink.Canvas,
// a CPU canvas uploaded into the texture before the render pass executes.
//
// Readback follows the WebGPU copy rules: rows are padded to 256 bytes and
// the texture is transitioned to CopySrc around the copy. Staged readback
// submits the copy with a fence and polls the fence without blocking, one
// poll per frame:
//
//	dev, err := wgpu.NewDevice(halDevice, halQueue)
//	r, err := tilerast.New(dev)
//
// A host that already owns a device, such as gogpu, passes its provider to
// Open instead.
package wgpu
