// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/tilerast/render"
)

// WebGPU (and DX12) requires BytesPerRow aligned to 256 bytes.
const copyPitchAlignment = 256

// stager issues texture-to-buffer copies and polls their fences.
type stager struct {
	device *Device
}

// BeginReadback submits a copy of the bound texture into a new map-read
// buffer. The returned staging buffer is ready once the copy's fence
// signals.
func (s stager) BeginReadback(_ *render.DrawContext, dst *render.PixelBuffer) (*render.StagingBuffer, error) {
	tr, err := s.device.beginTransfer(dst)
	if err != nil {
		return nil, err
	}
	sb, err := render.NewStagingBuffer(render.StagingDescriptor{
		Label:       s.device.opts.label + "_staging",
		Width:       dst.Width(),
		Height:      dst.Height(),
		BytesPerRow: tr.bytesPerRow,
		Format:      gputypes.TextureFormatBGRA8Unorm,
		Usage:       gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	}, tr)
	if err != nil {
		tr.Release()
		return nil, err
	}
	return sb, nil
}

// transfer is one submitted texture-to-buffer copy.
type transfer struct {
	device      *Device
	buf         hal.Buffer
	cmd         hal.CommandBuffer
	fence       hal.Fence
	bytesPerRow int
	height      int
	data        []byte
	released    bool
}

func (t *transfer) size() uint64 {
	return uint64(t.bytesPerRow) * uint64(t.height)
}

// Poll checks the fence without blocking and reads the buffer once it
// has signaled.
func (t *transfer) Poll() ([]byte, bool, error) {
	if t.released {
		return nil, false, render.ErrStagingDestroyed
	}
	if t.data != nil {
		return t.data, true, nil
	}
	done, err := t.device.device.Wait(t.fence, 1, 0)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", render.ErrDeviceLost, err)
	}
	if !done {
		return nil, false, nil
	}
	data := make([]byte, t.size())
	if err := t.device.queue.ReadBuffer(t.buf, 0, data); err != nil {
		return nil, false, fmt.Errorf("wgpu: read buffer: %w", err)
	}
	t.data = data
	return data, true, nil
}

// Release waits for the copy to leave the GPU, then frees it.
func (t *transfer) Release() {
	if t.released {
		return
	}
	t.released = true
	dev := t.device.device
	if t.data == nil {
		_, _ = dev.Wait(t.fence, 1, t.device.opts.readTimeout)
	}
	dev.DestroyFence(t.fence)
	dev.FreeCommandBuffer(t.cmd)
	dev.DestroyBuffer(t.buf)
	t.data = nil
}

// beginTransfer encodes and submits a copy of the bound texture into a
// new buffer sized for dst.
func (d *Device) beginTransfer(dst *render.PixelBuffer) (*transfer, error) {
	t := d.target
	if t == nil {
		return nil, render.ErrNotAttached
	}
	if dst == nil || dst.Width() != t.width || dst.Height() != t.height {
		return nil, fmt.Errorf("%w: attachment %dx%d", ErrSizeMismatch, t.width, t.height)
	}

	w, h := uint32(t.width), uint32(t.height)
	bytesPerRow := render.AlignedBytesPerRow(t.width, copyPitchAlignment)
	size := uint64(bytesPerRow) * uint64(h)

	buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: d.opts.label + "_readback",
		Size:  size,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create staging buffer: %w", err)
	}

	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: d.opts.label + "_readback_encoder",
	})
	if err != nil {
		d.device.DestroyBuffer(buf)
		return nil, fmt.Errorf("wgpu: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding(d.opts.label + "_readback"); err != nil {
		encoder.DiscardEncoding()
		d.device.DestroyBuffer(buf)
		return nil, fmt.Errorf("wgpu: begin encoding: %w", err)
	}

	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: t.tex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageRenderAttachment,
			NewUsage: gputypes.TextureUsageCopySrc,
		},
	}})
	encoder.CopyTextureToBuffer(t.tex, buf, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{Offset: 0, BytesPerRow: uint32(bytesPerRow), RowsPerImage: h},
		TextureBase:  hal.ImageCopyTexture{Texture: t.tex, MipLevel: 0},
		Size:         hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	}})
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: t.tex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageCopySrc,
			NewUsage: gputypes.TextureUsageRenderAttachment,
		},
	}})

	cmd, err := encoder.EndEncoding()
	if err != nil {
		encoder.DiscardEncoding()
		d.device.DestroyBuffer(buf)
		return nil, fmt.Errorf("wgpu: end encoding: %w", err)
	}
	fence, err := d.device.CreateFence()
	if err != nil {
		d.device.FreeCommandBuffer(cmd)
		d.device.DestroyBuffer(buf)
		return nil, fmt.Errorf("wgpu: create fence: %w", err)
	}
	if err := d.queue.Submit([]hal.CommandBuffer{cmd}, fence, 1); err != nil {
		d.device.DestroyFence(fence)
		d.device.FreeCommandBuffer(cmd)
		d.device.DestroyBuffer(buf)
		return nil, fmt.Errorf("%w: submit readback: %w", render.ErrDeviceLost, err)
	}

	d.opts.logger.Debug("wgpu: readback submitted", "texture", t.label, "bytes", size)
	return &transfer{
		device:      d,
		buf:         buf,
		cmd:         cmd,
		fence:       fence,
		bytesPerRow: bytesPerRow,
		height:      t.height,
	}, nil
}
