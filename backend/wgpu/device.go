// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"context"
	"errors"
	"fmt"

	"github.com/gogpu/gg"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/tilerast/render"
)

// Errors returned by the wgpu device.
var (
	// ErrNoHAL is returned when a provider does not expose HAL types.
	ErrNoHAL = errors.New("wgpu: provider does not expose HAL device and queue")

	// ErrSizeMismatch is returned when a readback destination differs in
	// size from the bound attachment.
	ErrSizeMismatch = errors.New("wgpu: destination size does not match attachment")

	// ErrTimeout is returned when the GPU did not finish a synchronous
	// readback in time.
	ErrTimeout = errors.New("wgpu: timed out waiting for GPU")
)

// Device is a render.Device on a HAL device and queue.
//
// Device is NOT thread-safe; it belongs to the render goroutine.
type Device struct {
	device hal.Device
	queue  hal.Queue
	opts   options

	// target is the bound texture, either a caller texture or scratch.
	target     *Texture
	attachment render.Attachment
	viewport   render.Viewport

	// scratch backs PixelBuffer attachments; reused while the size holds.
	scratch *Texture

	pixmap *gg.Pixmap
	canvas *gg.Context
	upload []byte

	inflight []submission
}

// submission is a command buffer the GPU may still be executing.
type submission struct {
	cmd   hal.CommandBuffer
	fence hal.Fence
}

// NewDevice wraps a HAL device and queue.
func NewDevice(device hal.Device, queue hal.Queue, opts ...Option) (*Device, error) {
	if device == nil || queue == nil {
		return nil, fmt.Errorf("%w: nil device or queue", ErrNoHAL)
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Device{device: device, queue: queue, opts: o}, nil
}

// Open creates a Device on the HAL device of a host provider. The
// provider must also implement HalDevice() any and HalQueue() any
// returning hal.Device and hal.Queue, as gogpu's device provider does.
func Open(provider render.DeviceHandle, opts ...Option) (*Device, error) {
	if provider == nil {
		return nil, fmt.Errorf("%w: nil provider", ErrNoHAL)
	}
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrNoHAL, provider)
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is not hal.Device", ErrNoHAL)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrNoHAL)
	}
	return NewDevice(device, queue, opts...)
}

// Capabilities reports the device limits.
func (d *Device) Capabilities() render.DeviceCapabilities {
	return render.DeviceCapabilities{
		MaxTextureSize:  d.opts.maxTextureSize,
		Format:          gputypes.TextureFormatBGRA8Unorm,
		SupportsStaging: d.opts.staging,
		DeviceName:      d.opts.label,
	}
}

// Attach binds a. Texture attachments must be *Texture created by d;
// buffer attachments draw into a scratch texture of the same size.
func (d *Device) Attach(a render.Attachment, vp render.Viewport) error {
	w, h := a.Size()
	if w <= 0 || h <= 0 || vp.Empty() {
		return fmt.Errorf("%w: size %dx%d, viewport %dx%d", render.ErrUnsupportedAttachment, w, h, vp.Width, vp.Height)
	}
	if w > d.opts.maxTextureSize || h > d.opts.maxTextureSize {
		return fmt.Errorf("%w: %dx%d exceeds %d", render.ErrUnsupportedAttachment, w, h, d.opts.maxTextureSize)
	}

	var target *Texture
	switch a.Kind() {
	case render.AttachmentTexture:
		t, ok := a.Texture.(*Texture)
		if !ok || t.owner != d || t.tex == nil {
			return fmt.Errorf("%w: texture %T not created by this device", render.ErrUnsupportedAttachment, a.Texture)
		}
		target = t
	case render.AttachmentBuffer:
		if d.scratch == nil || d.scratch.width != w || d.scratch.height != h {
			if d.scratch != nil {
				d.reclaim(true)
				d.scratch.Destroy()
				d.scratch = nil
			}
			t, err := d.NewTexture(w, h, d.opts.label+"_scratch")
			if err != nil {
				return fmt.Errorf("%w: %w", render.ErrUnsupportedAttachment, err)
			}
			d.scratch = t
		}
		target = d.scratch
	default:
		return fmt.Errorf("%w: empty attachment", render.ErrUnsupportedAttachment)
	}

	if d.pixmap == nil || d.pixmap.Width() != w || d.pixmap.Height() != h {
		d.pixmap = gg.NewPixmap(w, h)
		d.upload = make([]byte, w*h*4)
	}
	if d.canvas != nil {
		_ = d.canvas.Close()
	}
	d.canvas = gg.NewContext(w, h, gg.WithPixmap(d.pixmap))
	d.target = target
	d.attachment = a
	d.viewport = vp

	d.opts.logger.Debug("wgpu: attached", "kind", a.Kind().String(), "texture", target.label, "width", w, "height", h)
	return nil
}

// Detach releases the bound attachment and frees finished submissions.
func (d *Device) Detach() {
	if d.canvas != nil {
		_ = d.canvas.Close()
	}
	d.canvas = nil
	d.target = nil
	d.attachment = render.Attachment{}
	d.viewport = render.Viewport{}
	d.reclaim(false)
}

// Attachment returns the bound attachment.
func (d *Device) Attachment() render.Attachment {
	return d.attachment
}

// Draw records one render pass on the bound texture. The CPU canvas is
// cleared to the pass clear color, drawn by nodes alongside the render
// pass, and written to the texture ahead of the submitted commands.
func (d *Device) Draw(ctx context.Context, pass *render.Pass) error {
	if d.target == nil {
		return render.ErrNotAttached
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	t := d.target

	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: d.opts.label + "_draw_encoder",
	})
	if err != nil {
		return fmt.Errorf("wgpu: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding(d.opts.label + "_draw"); err != nil {
		encoder.DiscardEncoding()
		return fmt.Errorf("wgpu: begin encoding: %w", err)
	}

	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: d.opts.label + "_draw_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:    t.view,
			LoadOp:  gputypes.LoadOpLoad,
			StoreOp: gputypes.StoreOpStore,
		}},
	})

	d.canvas.ClearWithColor(gg.FromColor(pass.ClearColor))
	s := &sink{pass: pass, canvas: d.canvas, rp: rp}
	for i, n := range pass.Nodes {
		if err := ctx.Err(); err != nil {
			rp.End()
			encoder.DiscardEncoding()
			return err
		}
		d.canvas.Identity()
		d.canvas.ClearPath()
		if err := n.Draw(s); err != nil {
			rp.End()
			encoder.DiscardEncoding()
			return fmt.Errorf("wgpu: node %d: %w", i, err)
		}
	}
	rp.End()

	cmd, err := encoder.EndEncoding()
	if err != nil {
		encoder.DiscardEncoding()
		return fmt.Errorf("wgpu: end encoding: %w", err)
	}

	// Queue writes are ordered before later submissions.
	render.ConvertBGRAToRGBA(d.pixmap.Data(), d.upload)
	d.queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: t.tex, MipLevel: 0},
		d.upload,
		&hal.ImageDataLayout{Offset: 0, BytesPerRow: uint32(t.width * 4), RowsPerImage: uint32(t.height)},
		&hal.Extent3D{Width: uint32(t.width), Height: uint32(t.height), DepthOrArrayLayers: 1},
	)

	if err := d.submit(cmd); err != nil {
		return err
	}
	d.opts.logger.Debug("wgpu: pass drawn", "frame", pass.Frame, "nodes", len(pass.Nodes), "texture", t.label)
	return nil
}

// ReadPixels copies the bound texture into dst, waiting for the GPU up to
// the configured read timeout.
func (d *Device) ReadPixels(_ *render.DrawContext, dst *render.PixelBuffer) error {
	tr, err := d.beginTransfer(dst)
	if err != nil {
		return err
	}
	defer tr.Release()

	ok, err := d.device.Wait(tr.fence, 1, d.opts.readTimeout)
	if err != nil {
		return fmt.Errorf("%w: %w", render.ErrDeviceLost, err)
	}
	if !ok {
		return fmt.Errorf("%w after %v", ErrTimeout, d.opts.readTimeout)
	}
	data := make([]byte, tr.size())
	if err := d.queue.ReadBuffer(tr.buf, 0, data); err != nil {
		return fmt.Errorf("wgpu: read buffer: %w", err)
	}
	copyRows(dst, data, tr.bytesPerRow)
	return nil
}

// Staging returns the fence-polled stager, or nil when staging is disabled.
func (d *Device) Staging() render.Stager {
	if !d.opts.staging {
		return nil
	}
	return stager{device: d}
}

// Close waits for in-flight work and destroys the scratch texture.
func (d *Device) Close() error {
	d.Detach()
	d.reclaim(true)
	if d.scratch != nil {
		d.scratch.Destroy()
		d.scratch = nil
	}
	return nil
}

// submit queues cmd with a fresh fence and tracks it until reclaimed.
func (d *Device) submit(cmd hal.CommandBuffer) error {
	fence, err := d.device.CreateFence()
	if err != nil {
		d.device.FreeCommandBuffer(cmd)
		return fmt.Errorf("wgpu: create fence: %w", err)
	}
	if err := d.queue.Submit([]hal.CommandBuffer{cmd}, fence, 1); err != nil {
		d.device.DestroyFence(fence)
		d.device.FreeCommandBuffer(cmd)
		return fmt.Errorf("%w: submit: %w", render.ErrDeviceLost, err)
	}
	d.inflight = append(d.inflight, submission{cmd: cmd, fence: fence})
	return nil
}

// reclaim frees submissions whose fence has signaled. With wait set it
// blocks on each for up to the read timeout.
func (d *Device) reclaim(wait bool) {
	var timeout = d.opts.readTimeout
	if !wait {
		timeout = 0
	}
	kept := d.inflight[:0]
	for _, s := range d.inflight {
		done, err := d.device.Wait(s.fence, 1, timeout)
		if err != nil || done {
			d.device.DestroyFence(s.fence)
			d.device.FreeCommandBuffer(s.cmd)
			continue
		}
		kept = append(kept, s)
	}
	clear(d.inflight[len(kept):])
	d.inflight = kept
}

// inflightCount reports the number of unreclaimed submissions.
func (d *Device) inflightCount() int {
	return len(d.inflight)
}

// copyRows strips row padding from BGRA data into dst.
func copyRows(dst *render.PixelBuffer, data []byte, bytesPerRow int) {
	rowBytes := dst.Width() * 4
	pix := dst.Pixels()
	stride := dst.Stride()
	for y := 0; y < dst.Height(); y++ {
		render.ConvertBGRAToRGBA(data[y*bytesPerRow:y*bytesPerRow+rowBytes], pix[y*stride:y*stride+rowBytes])
	}
}

var _ render.Device = (*Device)(nil)
