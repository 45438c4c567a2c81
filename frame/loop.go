// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package frame

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/gogpu/tilerast/render"
)

// ErrLoopRunning is returned by Run when the loop is already running.
var ErrLoopRunning = errors.New("frame: loop already running")

// DefaultInterval is the frame interval used when Run is given zero.
const DefaultInterval = time.Second / 60

// Loop drives registered stages one frame at a time from a single
// goroutine. It owns the render.DrawContext handed to every handler.
type Loop struct {
	mu      sync.Mutex
	stages  []Stage
	running bool

	device render.Device
	owner  render.OwnerID
	frame  uint64
	logger *slog.Logger
}

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithLogger sets the loop logger. By default the loop is silent.
func WithLogger(l *slog.Logger) LoopOption {
	return func(lp *Loop) {
		if l != nil {
			lp.logger = l
		}
	}
}

// NewLoop creates a loop drawing on device. device may be nil when the
// registered stages do not need it from the DrawContext.
func NewLoop(device render.Device, opts ...LoopOption) *Loop {
	l := &Loop{
		device: device,
		owner:  render.NewOwnerID(),
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Register appends s. Stages run in registration order.
func (l *Loop) Register(s Stage) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stages = append(l.stages, s)
}

// Owner returns the OwnerID stamped on every DrawContext of this loop.
func (l *Loop) Owner() render.OwnerID {
	return l.owner
}

// Frame returns the number of the last completed frame.
func (l *Loop) Frame() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.frame
}

// Step runs one frame: the update handler of every stage, then for each
// stage that needs a draw its pre-draw, draw and post-draw handlers.
// The first handler error aborts the frame.
func (l *Loop) Step(ctx context.Context) error {
	l.mu.Lock()
	l.frame++
	dc := &render.DrawContext{
		Frame:  l.frame,
		Owner:  l.owner,
		Device: l.device,
	}
	stages := make([]Stage, len(l.stages))
	copy(stages, l.stages)
	l.mu.Unlock()

	for i := range stages {
		if err := stages[i].run(ctx, PhaseUpdate, dc); err != nil {
			return err
		}
	}
	for i := range stages {
		s := &stages[i]
		if !s.needsDraw() {
			continue
		}
		for _, p := range [...]Phase{PhasePreDraw, PhaseDraw, PhasePostDraw} {
			if err := s.run(ctx, p, dc); err != nil {
				return err
			}
		}
	}
	return nil
}

// Run pins the calling goroutine to its OS thread and steps the loop
// every interval until ctx is done or a step fails. It returns nil when
// ctx ends.
func (l *Loop) Run(ctx context.Context, interval time.Duration) error {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return ErrLoopRunning
	}
	l.running = true
	l.mu.Unlock()
	defer func() {
		l.mu.Lock()
		l.running = false
		l.mu.Unlock()
	}()

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	l.logger.Info("frame: loop started", "interval", interval, "owner", uint64(l.owner))
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("frame: loop stopped", "frames", l.Frame())
			return nil
		case <-ticker.C:
			if err := l.Step(ctx); err != nil {
				l.logger.Warn("frame: step failed", "frame", l.Frame(), "err", err)
				return err
			}
		}
	}
}
