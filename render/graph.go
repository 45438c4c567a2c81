// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"errors"

	"github.com/gogpu/gg"
	"github.com/gogpu/wgpu/hal"
)

// ErrUnsupportedSink is returned by a Node that cannot draw into the sink
// it was given, e.g. a CPU-only node on a GPU pass.
var ErrUnsupportedSink = errors.New("render: node cannot draw into this sink")

// Node is caller-owned renderable content.
//
// The rasterizer borrows a Node for exactly one frame of graph membership
// and never retains it afterwards.
type Node interface {
	// Draw emits the node's content into sink.
	Draw(sink DrawSink) error
}

// NodeFunc adapts a function to the Node interface.
type NodeFunc func(sink DrawSink) error

// Draw calls f(sink).
func (f NodeFunc) Draw(sink DrawSink) error { return f(sink) }

// DrawSink is what a backend hands to nodes during a pass.
//
// Backends expose exactly the drawing surfaces they have through explicit
// accessors; a surface the backend lacks is reported as nil.
type DrawSink interface {
	// Projection is the pass projection.
	Projection() Projection

	// Viewport is the pass viewport in pixels.
	Viewport() Viewport

	// Canvas returns the CPU drawing context, or nil on GPU-only devices.
	// Its transform is identity; use Projection().PixelTransform to place
	// world coordinates.
	Canvas() *gg.Context

	// RenderPass returns the active GPU render pass, or nil on CPU devices.
	RenderPass() hal.RenderPassEncoder
}

// Graph is the ordered set of nodes a pass draws.
//
// It is owned by the render goroutine and not safe for concurrent use.
type Graph struct {
	children  []Node
	needsDraw bool
}

// AddChild appends n and marks the graph as needing a draw.
func (g *Graph) AddChild(n Node) {
	g.children = append(g.children, n)
	g.needsDraw = true
}

// RemoveChildren removes count children starting at pos.
func (g *Graph) RemoveChildren(pos, count int) {
	if pos < 0 || pos >= len(g.children) || count <= 0 {
		return
	}
	end := min(pos+count, len(g.children))
	clear(g.children[pos:end])
	g.children = append(g.children[:pos], g.children[end:]...)
}

// RemoveAll removes every child and clears the draw flag.
func (g *Graph) RemoveAll() {
	clear(g.children)
	g.children = g.children[:0]
	g.needsDraw = false
}

// Children returns the current children. The slice is only valid until
// the next mutation.
func (g *Graph) Children() []Node {
	return g.children
}

// Len returns the number of children.
func (g *Graph) Len() int {
	return len(g.children)
}

// NeedsDraw reports whether a draw pass is due.
func (g *Graph) NeedsDraw() bool {
	return g.needsDraw && len(g.children) > 0
}
