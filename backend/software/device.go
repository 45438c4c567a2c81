// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package software

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/gogpu/gg"
	"github.com/gogpu/gputypes"
	xdraw "golang.org/x/image/draw"

	"github.com/gogpu/tilerast/render"
)

// ErrSizeMismatch is returned when a readback destination differs in size
// from the bound attachment.
var ErrSizeMismatch = errors.New("software: destination size does not match attachment")

// DeviceName is reported in the device capabilities.
const DeviceName = "software (gg)"

// Device is a CPU render.Device. Nodes draw into a gg.Context backed by a
// pixmap the size of the bound attachment.
//
// Device is NOT thread-safe; it belongs to the render goroutine.
type Device struct {
	opts options

	attachment render.Attachment
	viewport   render.Viewport
	pixmap     *gg.Pixmap
	canvas     *gg.Context
	drawn      bool

	stager *stager
}

// NewDevice creates a software device.
func NewDevice(opts ...Option) *Device {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	d := &Device{opts: o}
	if o.stagingLatency > 0 {
		d.stager = &stager{device: d}
	}
	return d
}

// Capabilities reports the device limits.
func (d *Device) Capabilities() render.DeviceCapabilities {
	return render.DeviceCapabilities{
		MaxTextureSize:  d.opts.maxTextureSize,
		Format:          gputypes.TextureFormatRGBA8Unorm,
		SupportsStaging: d.stager != nil,
		DeviceName:      DeviceName,
	}
}

// Attach binds a. Texture attachments must be *Texture.
func (d *Device) Attach(a render.Attachment, vp render.Viewport) error {
	switch a.Kind() {
	case render.AttachmentTexture:
		if _, ok := a.Texture.(*Texture); !ok {
			return fmt.Errorf("%w: texture %T", render.ErrUnsupportedAttachment, a.Texture)
		}
	case render.AttachmentBuffer:
	default:
		return fmt.Errorf("%w: empty attachment", render.ErrUnsupportedAttachment)
	}

	w, h := a.Size()
	if w <= 0 || h <= 0 || vp.Empty() {
		return fmt.Errorf("%w: size %dx%d, viewport %dx%d", render.ErrUnsupportedAttachment, w, h, vp.Width, vp.Height)
	}
	if limit := d.opts.maxTextureSize; limit > 0 && (w > limit || h > limit) {
		return fmt.Errorf("%w: %dx%d exceeds %d", render.ErrUnsupportedAttachment, w, h, limit)
	}

	if d.pixmap == nil || d.pixmap.Width() != w || d.pixmap.Height() != h {
		d.pixmap = gg.NewPixmap(w, h)
	}
	if d.canvas != nil {
		_ = d.canvas.Close()
	}
	d.canvas = gg.NewContext(w, h, gg.WithPixmap(d.pixmap))
	d.attachment = a
	d.viewport = vp
	d.drawn = false

	d.opts.logger.Debug("software: attached", "kind", a.Kind().String(), "width", w, "height", h)
	return nil
}

// Detach releases the bound attachment.
func (d *Device) Detach() {
	if d.canvas != nil {
		_ = d.canvas.Close()
	}
	d.canvas = nil
	d.attachment = render.Attachment{}
	d.viewport = render.Viewport{}
	d.drawn = false
}

// Attachment returns the bound attachment.
func (d *Device) Attachment() render.Attachment {
	return d.attachment
}

// Draw clears the target and draws every node of the pass in order.
// Texture targets receive the result when the pass ends.
func (d *Device) Draw(ctx context.Context, pass *render.Pass) error {
	if d.canvas == nil {
		return render.ErrNotAttached
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	d.canvas.ClearWithColor(gg.FromColor(pass.ClearColor))
	s := &sink{pass: pass, canvas: d.canvas}
	for i, n := range pass.Nodes {
		d.canvas.Identity()
		d.canvas.ClearPath()
		if err := n.Draw(s); err != nil {
			return fmt.Errorf("software: node %d: %w", i, err)
		}
	}

	if tex, ok := d.attachment.Texture.(*Texture); ok {
		xdraw.Copy(tex.img, image.Point{}, d.pixmapImage(), d.pixmap.Bounds(), xdraw.Src, nil)
	}
	d.drawn = true
	d.opts.logger.Debug("software: pass drawn", "frame", pass.Frame, "nodes", len(pass.Nodes))
	return nil
}

// ReadPixels copies the bound target into dst.
func (d *Device) ReadPixels(_ *render.DrawContext, dst *render.PixelBuffer) error {
	if d.canvas == nil {
		return render.ErrNotAttached
	}
	if err := d.checkSize(dst); err != nil {
		return err
	}
	xdraw.Copy(dst.Image(), image.Point{}, d.pixmapImage(), d.pixmap.Bounds(), xdraw.Src, nil)
	return nil
}

// Staging returns the simulated stager, or nil when staging latency is zero.
func (d *Device) Staging() render.Stager {
	if d.stager == nil {
		return nil
	}
	return d.stager
}

func (d *Device) checkSize(dst *render.PixelBuffer) error {
	if dst == nil {
		return fmt.Errorf("%w: nil destination", ErrSizeMismatch)
	}
	if dst.Width() != d.pixmap.Width() || dst.Height() != d.pixmap.Height() {
		return fmt.Errorf("%w: %dx%d, attachment %dx%d", ErrSizeMismatch,
			dst.Width(), dst.Height(), d.pixmap.Width(), d.pixmap.Height())
	}
	return nil
}

// pixmapImage views the pixmap bytes as an *image.RGBA without copying.
func (d *Device) pixmapImage() *image.RGBA {
	w, h := d.pixmap.Width(), d.pixmap.Height()
	return &image.RGBA{
		Pix:    d.pixmap.Data(),
		Stride: w * 4,
		Rect:   image.Rect(0, 0, w, h),
	}
}

var _ render.Device = (*Device)(nil)

