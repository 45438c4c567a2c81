// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"image/color"
	"math"
	"testing"

	"github.com/gogpu/gputypes"
)

type sizedTexture struct{ w, h int }

func (t sizedTexture) Width() int                     { return t.w }
func (t sizedTexture) Height() int                    { return t.h }
func (t sizedTexture) Format() gputypes.TextureFormat { return gputypes.TextureFormatRGBA8Unorm }

func TestNewPixelBuffer(t *testing.T) {
	tests := []struct {
		name   string
		width  int
		height int
	}{
		{"tile", 256, 256},
		{"small", 1, 1},
		{"wide", 512, 64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewPixelBuffer(tt.width, tt.height)

			if b.Width() != tt.width {
				t.Errorf("Width() = %d, want %d", b.Width(), tt.width)
			}
			if b.Height() != tt.height {
				t.Errorf("Height() = %d, want %d", b.Height(), tt.height)
			}
			if b.Format() != gputypes.TextureFormatRGBA8Unorm {
				t.Errorf("Format() = %v, want RGBA8Unorm", b.Format())
			}
			if b.Stride() != tt.width*4 {
				t.Errorf("Stride() = %d, want %d", b.Stride(), tt.width*4)
			}
			if len(b.Pixels()) != tt.width*tt.height*4 {
				t.Errorf("len(Pixels()) = %d, want %d", len(b.Pixels()), tt.width*tt.height*4)
			}
		})
	}
}

func TestPixelBufferClear(t *testing.T) {
	b := NewPixelBuffer(4, 4)
	b.Clear(color.RGBA{R: 10, G: 20, B: 30, A: 255})

	got := b.Image().RGBAAt(3, 3)
	want := color.RGBA{R: 10, G: 20, B: 30, A: 255}
	if got != want {
		t.Errorf("RGBAAt(3, 3) = %v, want %v", got, want)
	}
}

func TestAttachmentKind(t *testing.T) {
	tests := []struct {
		name   string
		a      Attachment
		kind   AttachmentKind
		w, h   int
		kindSt string
	}{
		{"none", Attachment{}, AttachmentNone, 0, 0, "None"},
		{"texture", TextureAttachment(sizedTexture{64, 32}), AttachmentTexture, 64, 32, "Texture"},
		{"buffer", BufferAttachment(NewPixelBuffer(16, 16)), AttachmentBuffer, 16, 16, "Buffer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Kind(); got != tt.kind {
				t.Errorf("Kind() = %v, want %v", got, tt.kind)
			}
			if got := tt.a.Kind().String(); got != tt.kindSt {
				t.Errorf("Kind().String() = %q, want %q", got, tt.kindSt)
			}
			w, h := tt.a.Size()
			if w != tt.w || h != tt.h {
				t.Errorf("Size() = %dx%d, want %dx%d", w, h, tt.w, tt.h)
			}
			vp := FullViewport(tt.a)
			if vp.Width != tt.w || vp.Height != tt.h {
				t.Errorf("FullViewport() = %+v, want %dx%d", vp, tt.w, tt.h)
			}
		})
	}
}

func TestExtentValid(t *testing.T) {
	tests := []struct {
		name string
		e    Extent
		want bool
	}{
		{"unit", NewExtent(0, 0, 1, 1), true},
		{"geodetic", NewExtent(-180, -90, 180, 90), true},
		{"zero width", NewExtent(1, 0, 1, 1), false},
		{"zero height", NewExtent(0, 2, 1, 2), false},
		{"inverted", NewExtent(1, 1, 0, 0), false},
		{"nan", NewExtent(math.NaN(), 0, 1, 1), false},
		{"inf", NewExtent(0, 0, math.Inf(1), 1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.e.Valid(); got != tt.want {
				t.Errorf("%v.Valid() = %v, want %v", tt.e, got, tt.want)
			}
		})
	}
}

func TestOrthoFromExtent(t *testing.T) {
	e := NewExtent(-10, -5, 30, 15)
	p := Ortho(e, DefaultNear, DefaultFar)

	if p.Left != -10 || p.Right != 30 || p.Bottom != -5 || p.Top != 15 {
		t.Errorf("Ortho() bounds = %+v, want extent bounds %v", p, e)
	}
	if p.Near != -100 || p.Far != 100 {
		t.Errorf("Ortho() near/far = %g/%g, want -100/100", p.Near, p.Far)
	}
	if p.Extent() != e {
		t.Errorf("Extent() = %v, want %v", p.Extent(), e)
	}

	m := p.Matrix()
	// Left/bottom map to -1, right/top to +1.
	x := m[0]*e.XMin + m[12]
	y := m[5]*e.YMax + m[13]
	if math.Abs(x+1) > 1e-12 {
		t.Errorf("clip x at left = %g, want -1", x)
	}
	if math.Abs(y-1) > 1e-12 {
		t.Errorf("clip y at top = %g, want 1", y)
	}
}

func TestPixelTransform(t *testing.T) {
	p := Ortho(NewExtent(0, 0, 1, 1), DefaultNear, DefaultFar)
	vp := Viewport{Width: 256, Height: 256}

	tests := []struct {
		name           string
		wx, wy, px, py float64
	}{
		{"top-left", 0, 1, 0, 0},
		{"bottom-right", 1, 0, 256, 256},
		{"center", 0.5, 0.5, 128, 128},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			px, py := p.WorldToPixel(tt.wx, tt.wy, vp)
			if math.Abs(px-tt.px) > 1e-9 || math.Abs(py-tt.py) > 1e-9 {
				t.Errorf("WorldToPixel(%g, %g) = (%g, %g), want (%g, %g)", tt.wx, tt.wy, px, py, tt.px, tt.py)
			}
		})
	}

	if got := p.PixelsPerUnit(vp); got != 256 {
		t.Errorf("PixelsPerUnit() = %g, want 256", got)
	}
}
