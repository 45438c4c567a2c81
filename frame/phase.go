// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package frame

import (
	"context"
	"fmt"

	"github.com/gogpu/tilerast/render"
)

// Phase is one step of a frame.
type Phase int

const (
	// PhaseUpdate runs once per frame for every stage, before any drawing.
	PhaseUpdate Phase = iota
	// PhasePreDraw runs immediately before a stage's draw pass.
	PhasePreDraw
	// PhaseDraw executes the stage's draw pass.
	PhaseDraw
	// PhasePostDraw runs immediately after the draw pass.
	PhasePostDraw

	numPhases
)

// String returns the string representation of Phase.
func (p Phase) String() string {
	switch p {
	case PhaseUpdate:
		return "Update"
	case PhasePreDraw:
		return "PreDraw"
	case PhaseDraw:
		return "Draw"
	case PhasePostDraw:
		return "PostDraw"
	default:
		return fmt.Sprintf("Unknown(%d)", int(p))
	}
}

// Phases returns every phase in execution order.
func Phases() []Phase {
	return []Phase{PhaseUpdate, PhasePreDraw, PhaseDraw, PhasePostDraw}
}

// Handler is invoked by a Loop for one phase of a frame.
type Handler func(ctx context.Context, dc *render.DrawContext) error

// Stage is a unit of per-frame work with explicit phase handlers.
// A nil handler is skipped.
type Stage struct {
	// Name identifies the stage in logs and errors.
	Name string

	// Handlers holds one handler per phase, indexed by Phase.
	Handlers [numPhases]Handler

	// NeedsDraw reports whether the pre-draw, draw and post-draw handlers
	// should run this frame. A nil NeedsDraw means always.
	NeedsDraw func() bool
}

// On sets the handler for phase p and returns the stage.
func (s Stage) On(p Phase, h Handler) Stage {
	if p >= 0 && p < numPhases {
		s.Handlers[p] = h
	}
	return s
}

// Handler returns the handler registered for p, or nil.
func (s *Stage) Handler(p Phase) Handler {
	if p < 0 || p >= numPhases {
		return nil
	}
	return s.Handlers[p]
}

func (s *Stage) needsDraw() bool {
	return s.NeedsDraw == nil || s.NeedsDraw()
}

func (s *Stage) run(ctx context.Context, p Phase, dc *render.DrawContext) error {
	h := s.Handler(p)
	if h == nil {
		return nil
	}
	if err := h(ctx, dc); err != nil {
		return fmt.Errorf("frame: stage %q %s: %w", s.Name, p, err)
	}
	return nil
}
