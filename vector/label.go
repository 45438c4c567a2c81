// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package vector

import (
	"fmt"
	"image/color"
	"sync"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/gogpu/tilerast/render"
)

// Case is a text transform applied to labels before drawing.
type Case int

const (
	// CaseNone draws labels as given.
	CaseNone Case = iota
	// CaseUpper upper-cases labels.
	CaseUpper
	// CaseTitle title-cases labels.
	CaseTitle
)

// String returns the string representation of Case.
func (c Case) String() string {
	switch c {
	case CaseNone:
		return "none"
	case CaseUpper:
		return "upper"
	case CaseTitle:
		return "title"
	default:
		return fmt.Sprintf("Case(%d)", int(c))
	}
}

// Apply transforms s. Labels carry no language tag, so the transform is
// language-neutral.
func (c Case) Apply(s string) string {
	switch c {
	case CaseUpper:
		return cases.Upper(language.Und).String(s)
	case CaseTitle:
		return cases.Title(language.Und).String(s)
	default:
		return s
	}
}

var (
	defaultSourceOnce sync.Once
	defaultSource     *text.FontSource
	defaultSourceErr  error
)

// DefaultFace returns a Go Regular face of the given size.
func DefaultFace(size float64) (text.Face, error) {
	defaultSourceOnce.Do(func() {
		defaultSource, defaultSourceErr = text.NewFontSource(goregular.TTF)
	})
	if defaultSourceErr != nil {
		return nil, fmt.Errorf("vector: load default font: %w", defaultSourceErr)
	}
	return defaultSource.Face(size), nil
}

// Label is text anchored at a world position.
type Label struct {
	Text string
	At   Point
}

// LabelLayer is a render.Node drawing labels centered on their anchors.
// Labels whose anchor falls outside the tile are skipped.
type LabelLayer struct {
	Face  text.Face
	Color color.Color
	Case  Case

	// Halo, when set, is drawn one pixel around each label for contrast.
	Halo color.Color

	Labels []Label
}

// NewLabelLayer creates a label layer from the labelled features of l.
// Each label anchors at the center of its feature bounds.
func NewLabelLayer(l *Layer, face text.Face, c color.Color) *LabelLayer {
	ll := &LabelLayer{Face: face, Color: c}
	for _, f := range l.Features() {
		if f.Label == "" || f.Geometry == nil {
			continue
		}
		b := f.Geometry.Bounds()
		ll.Labels = append(ll.Labels, Label{
			Text: f.Label,
			At:   Point{X: (b.XMin + b.XMax) / 2, Y: (b.YMin + b.YMax) / 2},
		})
	}
	return ll
}

// Draw implements render.Node.
func (ll *LabelLayer) Draw(s render.DrawSink) error {
	dc := s.Canvas()
	if dc == nil {
		return fmt.Errorf("vector: labels: %w", render.ErrUnsupportedSink)
	}
	if ll.Face == nil {
		return fmt.Errorf("vector: labels: nil face")
	}
	proj := s.Projection()
	vp := s.Viewport()
	extent := proj.Extent()

	dc.Push()
	defer dc.Pop()
	dc.SetFont(ll.Face)
	fg := ll.Color
	if fg == nil {
		fg = color.Black
	}

	for _, lb := range ll.Labels {
		if lb.Text == "" || !extent.Contains(lb.At.X, lb.At.Y) {
			continue
		}
		str := ll.Case.Apply(lb.Text)
		x, y := proj.WorldToPixel(lb.At.X, lb.At.Y, vp)
		if ll.Halo != nil {
			dc.SetColor(ll.Halo)
			for _, d := range haloOffsets {
				dc.DrawStringAnchored(str, x+d.X, y+d.Y, 0.5, 0.5)
			}
		}
		dc.SetColor(fg)
		dc.DrawStringAnchored(str, x, y, 0.5, 0.5)
	}
	return nil
}

var haloOffsets = [...]gg.Point{{X: -1}, {X: 1}, {Y: -1}, {Y: 1}}

var _ render.Node = (*LabelLayer)(nil)
