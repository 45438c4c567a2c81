// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"fmt"
	"math"

	"github.com/gogpu/gg"
)

// Extent is an axis-aligned world-space rectangle.
type Extent struct {
	XMin, YMin float64
	XMax, YMax float64
}

// NewExtent returns the extent with the given bounds.
func NewExtent(xmin, ymin, xmax, ymax float64) Extent {
	return Extent{XMin: xmin, YMin: ymin, XMax: xmax, YMax: ymax}
}

// Width returns XMax - XMin.
func (e Extent) Width() float64 { return e.XMax - e.XMin }

// Height returns YMax - YMin.
func (e Extent) Height() float64 { return e.YMax - e.YMin }

// Valid reports whether e has finite bounds and a positive area.
func (e Extent) Valid() bool {
	for _, v := range [...]float64{e.XMin, e.YMin, e.XMax, e.YMax} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return e.Width() > 0 && e.Height() > 0
}

// Contains reports whether (x, y) lies inside e, borders included.
func (e Extent) Contains(x, y float64) bool {
	return x >= e.XMin && x <= e.XMax && y >= e.YMin && y <= e.YMax
}

// Intersects reports whether e and o overlap.
func (e Extent) Intersects(o Extent) bool {
	return e.XMin <= o.XMax && o.XMin <= e.XMax && e.YMin <= o.YMax && o.YMin <= e.YMax
}

// String returns "[xmin,ymin,xmax,ymax]".
func (e Extent) String() string {
	return fmt.Sprintf("[%g,%g,%g,%g]", e.XMin, e.YMin, e.XMax, e.YMax)
}

// Default depth range for tile passes. Content is planar, so any generous
// symmetric range works.
const (
	DefaultNear = -100.0
	DefaultFar  = 100.0
)

// Projection is an orthographic projection volume.
type Projection struct {
	Left, Right float64
	Bottom, Top float64
	Near, Far   float64
}

// Ortho returns a top-down orthographic projection whose left/right/bottom/top
// are taken directly from e.
func Ortho(e Extent, near, far float64) Projection {
	return Projection{
		Left:   e.XMin,
		Right:  e.XMax,
		Bottom: e.YMin,
		Top:    e.YMax,
		Near:   near,
		Far:    far,
	}
}

// Extent returns the world rectangle covered by p.
func (p Projection) Extent() Extent {
	return Extent{XMin: p.Left, YMin: p.Bottom, XMax: p.Right, YMax: p.Top}
}

// Matrix returns the column-major clip-space matrix, matching glOrtho.
func (p Projection) Matrix() [16]float64 {
	rl := p.Right - p.Left
	tb := p.Top - p.Bottom
	fn := p.Far - p.Near
	return [16]float64{
		2 / rl, 0, 0, 0,
		0, 2 / tb, 0, 0,
		0, 0, -2 / fn, 0,
		-(p.Right + p.Left) / rl, -(p.Top + p.Bottom) / tb, -(p.Far + p.Near) / fn, 1,
	}
}

// PixelTransform returns the affine map from world coordinates to pixel
// coordinates in vp. World +Y points up; pixel row 0 is at Top.
func (p Projection) PixelTransform(vp Viewport) gg.Matrix {
	sx := float64(vp.Width) / (p.Right - p.Left)
	sy := float64(vp.Height) / (p.Top - p.Bottom)
	return gg.Matrix{
		A: sx, B: 0, C: float64(vp.X) - p.Left*sx,
		D: 0, E: -sy, F: float64(vp.Y) + p.Top*sy,
	}
}

// WorldToPixel maps a world point into vp.
func (p Projection) WorldToPixel(x, y float64, vp Viewport) (px, py float64) {
	pt := p.PixelTransform(vp).TransformPoint(gg.Pt(x, y))
	return pt.X, pt.Y
}

// PixelsPerUnit returns the horizontal world-to-pixel scale in vp.
func (p Projection) PixelsPerUnit(vp Viewport) float64 {
	return float64(vp.Width) / (p.Right - p.Left)
}
