// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package render

import (
	"fmt"
	"image"
	"image/color"

	"github.com/gogpu/gputypes"
)

// Texture is a caller-supplied render target.
//
// Each backend has its own texture type; the pipeline only needs its size.
// Rendering into a Texture is fire-and-forget: nothing is read back.
type Texture interface {
	// Width returns the texture width in pixels.
	Width() int

	// Height returns the texture height in pixels.
	Height() int

	// Format returns the texture pixel format.
	Format() gputypes.TextureFormat
}

// PixelBuffer is a host-memory RGBA8 buffer that receives a readback.
//
// The rasterizer allocates one per readback job and binds it as the draw
// destination; the device renders into an implicit target of the same size
// and copies the result here.
type PixelBuffer struct {
	img *image.RGBA
}

// NewPixelBuffer allocates a width x height RGBA8 buffer.
func NewPixelBuffer(width, height int) *PixelBuffer {
	return &PixelBuffer{
		img: image.NewRGBA(image.Rect(0, 0, width, height)),
	}
}

// Width returns the buffer width in pixels.
func (b *PixelBuffer) Width() int {
	return b.img.Bounds().Dx()
}

// Height returns the buffer height in pixels.
func (b *PixelBuffer) Height() int {
	return b.img.Bounds().Dy()
}

// Format returns the pixel format (RGBA8).
func (b *PixelBuffer) Format() gputypes.TextureFormat {
	return gputypes.TextureFormatRGBA8Unorm
}

// Pixels returns direct access to the pixel data.
func (b *PixelBuffer) Pixels() []byte {
	return b.img.Pix
}

// Stride returns the number of bytes per row.
func (b *PixelBuffer) Stride() int {
	return b.img.Stride
}

// Image returns the underlying *image.RGBA.
// The returned image shares memory with the buffer.
func (b *PixelBuffer) Image() *image.RGBA {
	return b.img
}

// Clear fills the buffer with c.
func (b *PixelBuffer) Clear(c color.RGBA) {
	pix := b.img.Pix
	for i := 0; i+3 < len(pix); i += 4 {
		pix[i+0] = c.R
		pix[i+1] = c.G
		pix[i+2] = c.B
		pix[i+3] = c.A
	}
}

// AttachmentKind says which of the two targets an Attachment carries.
type AttachmentKind int

const (
	// AttachmentNone is the zero Attachment.
	AttachmentNone AttachmentKind = iota
	// AttachmentTexture binds a caller-supplied texture.
	AttachmentTexture
	// AttachmentBuffer binds an implicit target backed by a PixelBuffer.
	AttachmentBuffer
)

// String returns the string representation of AttachmentKind.
func (k AttachmentKind) String() string {
	switch k {
	case AttachmentNone:
		return "None"
	case AttachmentTexture:
		return "Texture"
	case AttachmentBuffer:
		return "Buffer"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// Attachment is the color target of a draw pass. Exactly one of Texture
// and Buffer is set.
type Attachment struct {
	Texture Texture
	Buffer  *PixelBuffer
}

// TextureAttachment returns an Attachment binding t.
func TextureAttachment(t Texture) Attachment {
	return Attachment{Texture: t}
}

// BufferAttachment returns an Attachment binding an implicit target
// sized to b.
func BufferAttachment(b *PixelBuffer) Attachment {
	return Attachment{Buffer: b}
}

// Kind reports which target a carries.
func (a Attachment) Kind() AttachmentKind {
	switch {
	case a.Texture != nil:
		return AttachmentTexture
	case a.Buffer != nil:
		return AttachmentBuffer
	default:
		return AttachmentNone
	}
}

// Size returns the attachment size in pixels.
func (a Attachment) Size() (width, height int) {
	switch {
	case a.Texture != nil:
		return a.Texture.Width(), a.Texture.Height()
	case a.Buffer != nil:
		return a.Buffer.Width(), a.Buffer.Height()
	default:
		return 0, 0
	}
}

// Viewport is the pixel rectangle a pass draws into.
type Viewport struct {
	X, Y          int
	Width, Height int
}

// FullViewport returns a viewport covering the whole attachment.
func FullViewport(a Attachment) Viewport {
	w, h := a.Size()
	return Viewport{Width: w, Height: h}
}

// Empty reports whether the viewport covers no pixels.
func (v Viewport) Empty() bool {
	return v.Width <= 0 || v.Height <= 0
}
