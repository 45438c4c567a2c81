// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package vector

import (
	"math"

	"github.com/gogpu/tilerast/render"
)

// Point is a position in world coordinates.
type Point struct {
	X, Y float64
}

// Geometry is a feature shape in world coordinates.
type Geometry interface {
	// Bounds returns the smallest extent containing the geometry. A
	// geometry with no points returns an inverted extent that intersects
	// nothing.
	Bounds() render.Extent
}

// LineString is an open polyline.
type LineString []Point

// Bounds implements Geometry.
func (l LineString) Bounds() render.Extent { return bounds(l) }

// Ring is a closed polyline; the closing edge is implicit.
type Ring []Point

// Polygon is an outer ring followed by zero or more holes. It is filled
// with the even-odd rule.
type Polygon []Ring

// Bounds implements Geometry. Only the outer ring counts.
func (p Polygon) Bounds() render.Extent {
	if len(p) == 0 {
		return bounds(nil)
	}
	return bounds(p[0])
}

// MultiPoint is a set of point markers.
type MultiPoint []Point

// Bounds implements Geometry.
func (m MultiPoint) Bounds() render.Extent { return bounds(m) }

func bounds(pts []Point) render.Extent {
	e := render.Extent{XMin: math.Inf(1), YMin: math.Inf(1), XMax: math.Inf(-1), YMax: math.Inf(-1)}
	for _, p := range pts {
		e.XMin = min(e.XMin, p.X)
		e.YMin = min(e.YMin, p.Y)
		e.XMax = max(e.XMax, p.X)
		e.YMax = max(e.YMax, p.Y)
	}
	return e
}
