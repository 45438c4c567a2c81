// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package vector

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/gogpu/gg"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/tilerast/backend/software"
	"github.com/gogpu/tilerast/render"
)

var (
	red  = color.RGBA{R: 255, A: 255}
	blue = color.RGBA{B: 255, A: 255}
)

// render64 draws nodes over the unit extent into a 64x64 buffer.
func render64(t *testing.T, nodes ...render.Node) *image.RGBA {
	t.Helper()
	d := software.NewDevice()
	buf := render.NewPixelBuffer(64, 64)
	a := render.BufferAttachment(buf)
	if err := d.Attach(a, render.FullViewport(a)); err != nil {
		t.Fatalf("Attach() error = %v", err)
	}
	pass := &render.Pass{
		Frame:      1,
		Projection: render.Ortho(render.NewExtent(0, 0, 1, 1), render.DefaultNear, render.DefaultFar),
		Viewport:   render.FullViewport(a),
		Nodes:      nodes,
	}
	if err := d.Draw(context.Background(), pass); err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	if err := d.ReadPixels(nil, buf); err != nil {
		t.Fatalf("ReadPixels() error = %v", err)
	}
	return buf.Image()
}

func TestBounds(t *testing.T) {
	tests := []struct {
		name string
		g    Geometry
		want render.Extent
	}{
		{"line", LineString{{1, 2}, {3, -1}}, render.NewExtent(1, -1, 3, 2)},
		{"polygon outer ring", Polygon{{{0, 0}, {4, 0}, {4, 4}}, {{10, 10}, {11, 11}}}, render.NewExtent(0, 0, 4, 4)},
		{"point", MultiPoint{{5, 5}}, render.NewExtent(5, 5, 5, 5)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.g.Bounds(); got != tt.want {
				t.Errorf("Bounds() = %v, want %v", got, tt.want)
			}
		})
	}

	if (LineString{}).Bounds().Intersects(render.NewExtent(-1, -1, 1, 1)) {
		t.Error("empty geometry intersects an extent")
	}
}

func TestVisible(t *testing.T) {
	l := NewLayer("test", Style{})
	l.Add(
		Feature{ID: "in", Geometry: MultiPoint{{0.5, 0.5}}},
		Feature{ID: "edge", Geometry: LineString{{1, 0}, {2, 0}}},
		Feature{ID: "out", Geometry: MultiPoint{{3, 3}}},
		Feature{ID: "nil"},
	)
	got := l.Visible(render.NewExtent(0, 0, 1, 1))
	if len(got) != 2 || got[0].ID != "in" || got[1].ID != "edge" {
		t.Errorf("Visible() = %v, want [in edge]", got)
	}
	if l.Len() != 4 {
		t.Errorf("Len() = %d, want 4", l.Len())
	}
}

func TestLayerPolygon(t *testing.T) {
	l := NewLayer("areas", Style{Fill: red})
	// Left half of the tile.
	l.Add(Feature{ID: "west", Geometry: Polygon{{{0, 0}, {0.5, 0}, {0.5, 1}, {0, 1}}}})
	img := render64(t, l)

	if got := img.RGBAAt(16, 32); got != red {
		t.Errorf("inside pixel = %v, want %v", got, red)
	}
	if got := img.RGBAAt(48, 32); got.A != 0 {
		t.Errorf("outside pixel = %v, want transparent", got)
	}
}

func TestLayerPolygonHole(t *testing.T) {
	l := NewLayer("areas", Style{Fill: red})
	l.Add(Feature{Geometry: Polygon{
		{{0, 0}, {1, 0}, {1, 1}, {0, 1}},
		{{0.25, 0.25}, {0.75, 0.25}, {0.75, 0.75}, {0.25, 0.75}},
	}})
	img := render64(t, l)

	if got := img.RGBAAt(4, 4); got != red {
		t.Errorf("ring pixel = %v, want %v", got, red)
	}
	if got := img.RGBAAt(32, 32); got.A != 0 {
		t.Errorf("hole pixel = %v, want transparent", got)
	}
}

func TestLayerLineAndPoint(t *testing.T) {
	l := NewLayer("mixed", Style{Stroke: blue, Width: 4})
	// World y=0.75 is pixel row 16.
	l.Add(Feature{Geometry: LineString{{0, 0.75}, {1, 0.75}}})
	l.Add(Feature{Geometry: MultiPoint{{0.5, 0.25}}, Style: Style{Fill: red, Radius: 6}})
	img := render64(t, l)

	if got := img.RGBAAt(32, 16); got != blue {
		t.Errorf("line pixel = %v, want %v", got, blue)
	}
	if got := img.RGBAAt(32, 48); got.R != 255 || got.A != 255 {
		t.Errorf("point pixel = %v, want red", got)
	}
	if got := img.RGBAAt(32, 32); got.A != 0 {
		t.Errorf("background pixel = %v, want transparent", got)
	}
}

func TestStyleMerge(t *testing.T) {
	def := Style{Fill: red, Stroke: blue, Width: 2, Radius: 5}
	got := Style{Fill: blue}.merge(def)
	if got.Fill != blue || got.Stroke != blue || got.Width != 2 || got.Radius != 5 {
		t.Errorf("merge() = %+v", got)
	}
	if w := (Style{}).width(); w != 1 {
		t.Errorf("default width = %g, want 1", w)
	}
	if r := (Style{}).radius(); r != 3 {
		t.Errorf("default radius = %g, want 3", r)
	}
}

func TestCase(t *testing.T) {
	tests := []struct {
		c    Case
		in   string
		want string
	}{
		{CaseNone, "main street", "main street"},
		{CaseUpper, "main street", "MAIN STREET"},
		{CaseTitle, "main street", "Main Street"},
	}
	for _, tt := range tests {
		t.Run(tt.c.String(), func(t *testing.T) {
			if got := tt.c.Apply(tt.in); got != tt.want {
				t.Errorf("Apply(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestLabelLayer(t *testing.T) {
	face, err := DefaultFace(20)
	if err != nil {
		t.Fatalf("DefaultFace() error = %v", err)
	}
	l := NewLayer("places", Style{})
	l.Add(
		Feature{Geometry: MultiPoint{{0.5, 0.5}}, Label: "MMM"},
		Feature{Geometry: MultiPoint{{0.1, 0.1}}},
	)
	ll := NewLabelLayer(l, face, color.Black)
	if len(ll.Labels) != 1 {
		t.Fatalf("labels = %d, want 1", len(ll.Labels))
	}

	img := render64(t, ll)
	inked := false
	for y := 16; y < 48 && !inked; y++ {
		for x := 8; x < 56; x++ {
			if img.RGBAAt(x, y).A > 0 {
				inked = true
				break
			}
		}
	}
	if !inked {
		t.Error("label drew no pixels near its anchor")
	}
}

func TestLabelOutsideTileSkipped(t *testing.T) {
	face, err := DefaultFace(20)
	if err != nil {
		t.Fatalf("DefaultFace() error = %v", err)
	}
	ll := &LabelLayer{Face: face, Labels: []Label{{Text: "MMM", At: Point{X: 5, Y: 5}}}}
	img := render64(t, ll)
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			if img.RGBAAt(x, y).A > 0 {
				t.Fatalf("pixel (%d,%d) inked by an off-tile label", x, y)
			}
		}
	}
}

// gpuSink has no canvas.
type gpuSink struct{}

func (gpuSink) Projection() render.Projection     { return render.Projection{} }
func (gpuSink) Viewport() render.Viewport         { return render.Viewport{} }
func (gpuSink) Canvas() *gg.Context               { return nil }
func (gpuSink) RenderPass() hal.RenderPassEncoder { return nil }

func TestUnsupportedSink(t *testing.T) {
	nodes := map[string]render.Node{
		"layer":  NewLayer("x", Style{}),
		"labels": &LabelLayer{},
	}
	for name, n := range nodes {
		if err := n.Draw(gpuSink{}); !errors.Is(err, render.ErrUnsupportedSink) {
			t.Errorf("%s Draw() error = %v, want ErrUnsupportedSink", name, err)
		}
	}
}

func TestGroupDrawsInOrder(t *testing.T) {
	under := NewLayer("under", Style{Fill: red})
	under.Add(Feature{Geometry: Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 1}}}})
	over := NewLayer("over", Style{Fill: blue})
	over.Add(Feature{Geometry: Polygon{{{0.5, 0}, {1, 0}, {1, 1}, {0.5, 1}}}})

	img := render64(t, Group{under, nil, over})
	if got := img.RGBAAt(16, 32); got != red {
		t.Errorf("west pixel = %v, want %v", got, red)
	}
	if got := img.RGBAAt(48, 32); got != blue {
		t.Errorf("east pixel = %v, want %v", got, blue)
	}
}

func TestGroupStopsOnError(t *testing.T) {
	var ran bool
	g := Group{
		NewLayer("gpu-only", Style{}),
		render.NodeFunc(func(render.DrawSink) error { ran = true; return nil }),
	}
	if err := g.Draw(gpuSink{}); !errors.Is(err, render.ErrUnsupportedSink) {
		t.Errorf("Draw() error = %v, want ErrUnsupportedSink", err)
	}
	if ran {
		t.Error("node after failing member ran")
	}
}
