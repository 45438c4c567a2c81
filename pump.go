package tilerast

import (
	"context"
	"errors"
	"fmt"

	"github.com/gogpu/tilerast/render"
)

// Update advances the pipeline by one frame. In order it
//
//  1. detaches the previous target and empties the render graph,
//  2. resolves at most one finished readback job, in submission order,
//  3. admits at most one pending job: binds its target, sets the tile
//     projection and adds its node to the graph.
//
// Update must run on the render goroutine before PreDraw, Draw and
// PostDraw of the same frame.
func (r *Rasterizer) Update(_ context.Context, dc *render.DrawContext) error {
	end, err := r.guard.enter(dc)
	if err != nil {
		return err
	}
	defer end()

	r.stats.frames.Add(1)
	r.detach()
	r.resolve()
	r.admit(dc)

	if r.opts.metrics != nil {
		r.q.mu.Lock()
		pending, readback, finished := r.q.depths()
		r.q.mu.Unlock()
		r.opts.metrics.frame(pending, readback, finished)
	}
	return nil
}

// detach releases the previous frame's target. A readback job still
// waiting for its post-draw pass missed its frame and fails.
func (r *Rasterizer) detach() {
	if j := r.binder.detach(); j != nil {
		Logger().Debug("tilerast: detached", "job", j.id, "mode", j.mode().String())
	}
	r.graph.RemoveAll()
	r.attached.Store(false)

	r.q.mu.Lock()
	missed := r.q.readback.drain()
	for _, j := range missed {
		j.fail(fmt.Errorf("%w: job %d admitted in frame %d", ErrMissedDraw, j.id, j.admitFrame))
		j.state = StateReadbackComplete
		r.q.finished.push(j)
	}
	orphans := r.q.takeOrphans()
	r.q.mu.Unlock()

	for _, j := range missed {
		Logger().Warn("tilerast: readback job missed its draw", "job", j.id, "err", j.err)
	}
	for _, sb := range orphans {
		sb.Destroy()
	}
}

// resolve delivers the head of the finished queue. A head whose staged
// transfer is still in flight stays in place, so later jobs wait behind it.
func (r *Rasterizer) resolve() {
	r.q.mu.Lock()
	j := r.q.finished.peek()
	r.q.mu.Unlock()
	if j == nil {
		return
	}

	if j.err == nil && j.staging != nil && !j.staging.Poll() {
		return
	}

	r.q.mu.Lock()
	if r.q.finished.peek() != j {
		// Drained by Close, which resolved it.
		r.q.mu.Unlock()
		return
	}
	r.q.finished.pop()
	r.q.mu.Unlock()

	err := r.collect(j)
	j.releaseStaging()
	r.deliver(j, err)
}

// collect moves staged pixels into the job's buffer and returns the
// job's terminal error, if any.
func (r *Rasterizer) collect(j *job) error {
	if j.err != nil {
		return j.err
	}
	if j.staging == nil {
		return nil
	}
	if err := j.staging.Err(); err != nil {
		return fmt.Errorf("%w: job %d: %w", ErrReadbackFailed, j.id, err)
	}
	if err := j.staging.CopyTo(j.buffer); err != nil {
		return fmt.Errorf("%w: job %d: %w", ErrReadbackFailed, j.id, err)
	}
	return nil
}

// admit binds the oldest pending job.
func (r *Rasterizer) admit(dc *render.DrawContext) {
	r.q.mu.Lock()
	j := r.q.pending.pop()
	r.q.mu.Unlock()
	if j == nil {
		return
	}

	j.admitFrame = dc.Frame
	if err := r.binder.attach(j); err != nil {
		err = fmt.Errorf("%w: job %d: %w", ErrAttachFailed, j.id, err)
		Logger().Warn("tilerast: attach failed", "job", j.id, "mode", j.mode().String(), "err", err)
		if j.future == nil {
			r.stats.failed.Add(1)
		}
		r.deliver(j, err)
		return
	}

	r.graph.AddChild(j.node)
	j.state = StateAttached
	r.attached.Store(true)
	r.stats.admitted.Add(1)
	r.opts.metrics.jobAdmitted()
	Logger().Debug("tilerast: admitted", "job", j.id, "mode", j.mode().String(),
		"extent", j.extent.String(), "frame", dc.Frame)

	if j.mode() != ModeReadback {
		return
	}
	j.state = StateAwaitingReadback
	r.q.mu.Lock()
	if r.q.closed {
		r.q.mu.Unlock()
		r.deliver(j, ErrClosed)
		return
	}
	r.q.readback.push(j)
	r.q.mu.Unlock()
}

// Draw executes the bound target's draw pass, once per admission. A
// device error fails the drawn job; render.ErrDeviceLost and context
// errors are also returned to the caller.
func (r *Rasterizer) Draw(ctx context.Context, dc *render.DrawContext) error {
	end, err := r.guard.enter(dc)
	if err != nil {
		return err
	}
	defer end()

	j := r.binder.bound
	if j == nil || r.binder.drawn || !r.graph.NeedsDraw() {
		return nil
	}
	r.binder.drawn = true

	pass := r.binder.pass(dc.Frame, r.opts.clearColor, r.graph.Children())
	err = r.device.Draw(ctx, pass)
	if err == nil {
		return nil
	}

	Logger().Warn("tilerast: draw failed", "job", j.id, "mode", j.mode().String(), "err", err)
	if j.mode() == ModeReadback {
		r.q.mu.Lock()
		j.fail(fmt.Errorf("%w: job %d: %w", ErrDrawFailed, j.id, err))
		r.q.mu.Unlock()
	} else {
		r.stats.failed.Add(1)
	}
	if errors.Is(err, render.ErrDeviceLost) || ctx.Err() != nil {
		return err
	}
	return nil
}
