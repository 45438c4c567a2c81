// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// targetUsage is the usage of every render target: drawn, uploaded into
// and read back.
const targetUsage = gputypes.TextureUsageRenderAttachment |
	gputypes.TextureUsageCopySrc |
	gputypes.TextureUsageCopyDst

// Texture is a GPU render target created by a Device. It can be passed to
// SubmitTexture and sampled by the host afterwards.
type Texture struct {
	owner  *Device
	tex    hal.Texture
	view   hal.TextureView
	width  int
	height int
	label  string
}

// NewTexture creates a width x height BGRA8Unorm target on d.
func (d *Device) NewTexture(width, height int, label string) (*Texture, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("wgpu: invalid texture size %dx%d", width, height)
	}
	if width > d.opts.maxTextureSize || height > d.opts.maxTextureSize {
		return nil, fmt.Errorf("wgpu: texture %dx%d exceeds limit %d", width, height, d.opts.maxTextureSize)
	}
	if label == "" {
		label = d.opts.label + "_target"
	}

	tex, err := d.device.CreateTexture(&hal.TextureDescriptor{
		Label:         label,
		Size:          hal.Extent3D{Width: uint32(width), Height: uint32(height), DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatBGRA8Unorm,
		Usage:         targetUsage,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create texture %q: %w", label, err)
	}
	view, err := d.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label: label + "_view",
	})
	if err != nil {
		d.device.DestroyTexture(tex)
		return nil, fmt.Errorf("wgpu: create texture view %q: %w", label, err)
	}

	return &Texture{
		owner:  d,
		tex:    tex,
		view:   view,
		width:  width,
		height: height,
		label:  label,
	}, nil
}

// Width returns the texture width in pixels.
func (t *Texture) Width() int { return t.width }

// Height returns the texture height in pixels.
func (t *Texture) Height() int { return t.height }

// Format returns gputypes.TextureFormatBGRA8Unorm.
func (t *Texture) Format() gputypes.TextureFormat { return gputypes.TextureFormatBGRA8Unorm }

// Label returns the texture's debug label.
func (t *Texture) Label() string { return t.label }

// HalTexture returns the underlying HAL texture.
func (t *Texture) HalTexture() hal.Texture { return t.tex }

// HalView returns the texture's default view.
func (t *Texture) HalView() hal.TextureView { return t.view }

// Destroy releases the texture. It must not be bound.
func (t *Texture) Destroy() {
	if t.tex == nil {
		return
	}
	if t.view != nil {
		t.owner.device.DestroyTextureView(t.view)
		t.view = nil
	}
	t.owner.device.DestroyTexture(t.tex)
	t.tex = nil
}
