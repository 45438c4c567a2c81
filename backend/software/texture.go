// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package software

import (
	"image"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/tilerast/render"
)

// Texture is a host-memory render target for the software device.
type Texture struct {
	img   *image.RGBA
	label string
}

// NewTexture allocates a width x height RGBA8 texture.
func NewTexture(width, height int) *Texture {
	return &Texture{img: image.NewRGBA(image.Rect(0, 0, width, height))}
}

// NewTextureLabeled allocates a texture with a debug label.
func NewTextureLabeled(label string, width, height int) *Texture {
	t := NewTexture(width, height)
	t.label = label
	return t
}

// Width returns the texture width in pixels.
func (t *Texture) Width() int { return t.img.Bounds().Dx() }

// Height returns the texture height in pixels.
func (t *Texture) Height() int { return t.img.Bounds().Dy() }

// Format returns RGBA8Unorm.
func (t *Texture) Format() gputypes.TextureFormat { return gputypes.TextureFormatRGBA8Unorm }

// Label returns the debug label.
func (t *Texture) Label() string { return t.label }

// Image returns the texture contents. The image shares memory with the
// texture and changes when a pass draws into it.
func (t *Texture) Image() *image.RGBA { return t.img }

var _ render.Texture = (*Texture)(nil)
