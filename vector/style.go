// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package vector

import (
	"image/color"
)

// Style describes how a feature is painted. Sizes are in pixels so
// strokes keep their width across zoom levels.
type Style struct {
	// Fill paints polygon interiors and point markers. Nil means no fill.
	Fill color.Color

	// Stroke paints lines, polygon outlines and marker outlines. Nil
	// means no stroke.
	Stroke color.Color

	// Width is the stroke width. Zero means 1.
	Width float64

	// Radius is the point marker radius. Zero means 3.
	Radius float64

	// Dash is an optional dash pattern in pixels.
	Dash []float64
}

func (s Style) width() float64 {
	if s.Width <= 0 {
		return 1
	}
	return s.Width
}

func (s Style) radius() float64 {
	if s.Radius <= 0 {
		return 3
	}
	return s.Radius
}

// merge returns s with unset fields taken from def.
func (s Style) merge(def Style) Style {
	if s.Fill == nil {
		s.Fill = def.Fill
	}
	if s.Stroke == nil {
		s.Stroke = def.Stroke
	}
	if s.Width == 0 {
		s.Width = def.Width
	}
	if s.Radius == 0 {
		s.Radius = def.Radius
	}
	if s.Dash == nil {
		s.Dash = def.Dash
	}
	return s
}
