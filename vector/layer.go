// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package vector

import (
	"fmt"

	"github.com/gogpu/gg"

	"github.com/gogpu/tilerast/render"
)

// Feature is one shape with an optional style override and label.
type Feature struct {
	ID       string
	Geometry Geometry

	// Style overrides the layer style field by field.
	Style Style

	// Label is drawn by a LabelLayer built from this layer.
	Label string
}

// Layer is a render.Node drawing features in order.
//
// A Layer must not be modified while a job that renders it is in flight.
type Layer struct {
	name     string
	style    Style
	features []Feature
}

// NewLayer creates an empty layer with a default style.
func NewLayer(name string, style Style) *Layer {
	return &Layer{name: name, style: style}
}

// Name returns the layer name.
func (l *Layer) Name() string { return l.name }

// Add appends features.
func (l *Layer) Add(features ...Feature) {
	l.features = append(l.features, features...)
}

// Len returns the number of features.
func (l *Layer) Len() int { return len(l.features) }

// Features returns the layer's features. The slice must not be modified.
func (l *Layer) Features() []Feature { return l.features }

// Visible returns the features whose bounds intersect e.
func (l *Layer) Visible(e render.Extent) []Feature {
	var out []Feature
	for _, f := range l.features {
		if f.Geometry != nil && f.Geometry.Bounds().Intersects(e) {
			out = append(out, f)
		}
	}
	return out
}

// Draw implements render.Node.
func (l *Layer) Draw(s render.DrawSink) error {
	dc := s.Canvas()
	if dc == nil {
		return fmt.Errorf("vector: layer %q: %w", l.name, render.ErrUnsupportedSink)
	}
	proj := s.Projection()
	m := proj.PixelTransform(s.Viewport())

	for _, f := range l.Visible(proj.Extent()) {
		if err := l.drawFeature(dc, m, f); err != nil {
			return fmt.Errorf("vector: layer %q feature %q: %w", l.name, f.ID, err)
		}
	}
	return nil
}

func (l *Layer) drawFeature(dc *gg.Context, m gg.Matrix, f Feature) error {
	st := f.Style.merge(l.style)
	switch g := f.Geometry.(type) {
	case Polygon:
		dc.SetFillRule(gg.FillRuleEvenOdd)
		defer dc.SetFillRule(gg.FillRuleNonZero)
		for _, ring := range g {
			tracePath(dc, m, ring)
			dc.ClosePath()
		}
		return paint(dc, st, true)
	case LineString:
		tracePath(dc, m, g)
		return paint(dc, st, false)
	case MultiPoint:
		for _, p := range g {
			pt := m.TransformPoint(gg.Pt(p.X, p.Y))
			dc.DrawCircle(pt.X, pt.Y, st.radius())
			if err := paint(dc, st, true); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unsupported geometry %T", g)
	}
}

// tracePath adds pts to the current path in pixel space.
func tracePath(dc *gg.Context, m gg.Matrix, pts []Point) {
	for i, p := range pts {
		pt := m.TransformPoint(gg.Pt(p.X, p.Y))
		if i == 0 {
			dc.MoveTo(pt.X, pt.Y)
		} else {
			dc.LineTo(pt.X, pt.Y)
		}
	}
}

// paint fills and strokes the current path, then clears it.
func paint(dc *gg.Context, st Style, fill bool) error {
	defer dc.ClearPath()
	if fill && st.Fill != nil {
		dc.SetColor(st.Fill)
		if st.Stroke == nil {
			return dc.Fill()
		}
		if err := dc.FillPreserve(); err != nil {
			return err
		}
	}
	if st.Stroke == nil {
		return nil
	}
	dc.SetColor(st.Stroke)
	dc.SetLineWidth(st.width())
	dc.SetDash(st.Dash...)
	return dc.Stroke()
}

var _ render.Node = (*Layer)(nil)
