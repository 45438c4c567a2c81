// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"github.com/gogpu/gg"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/tilerast/render"
)

// sink exposes both the open render pass and the CPU canvas.
type sink struct {
	pass   *render.Pass
	canvas *gg.Context
	rp     hal.RenderPassEncoder
}

func (s *sink) Projection() render.Projection { return s.pass.Projection }

func (s *sink) Viewport() render.Viewport { return s.pass.Viewport }

func (s *sink) Canvas() *gg.Context { return s.canvas }

func (s *sink) RenderPass() hal.RenderPassEncoder { return s.rp }

var _ render.DrawSink = (*sink)(nil)
