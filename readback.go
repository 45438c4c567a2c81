package tilerast

import (
	"context"
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/tilerast/render"
)

// PreDraw records dc on the readback job about to be drawn. The same
// context is used when its pixels are transferred.
func (r *Rasterizer) PreDraw(_ context.Context, dc *render.DrawContext) error {
	end, err := r.guard.enter(dc)
	if err != nil {
		return err
	}
	defer end()

	r.q.mu.Lock()
	if j := r.q.readback.peek(); j != nil {
		j.draw = dc
	}
	r.q.mu.Unlock()
	return nil
}

// PostDraw issues the pixel transfer of the job drawn this frame and
// moves it to the finished queue. A failed transfer is recorded on the
// job and delivered, in order, by a later Update; render.ErrDeviceLost
// is also returned.
func (r *Rasterizer) PostDraw(_ context.Context, dc *render.DrawContext) error {
	end, err := r.guard.enter(dc)
	if err != nil {
		return err
	}
	defer end()

	r.q.mu.Lock()
	j := r.q.readback.pop()
	r.q.mu.Unlock()
	if j == nil {
		return nil
	}

	var fatal error
	switch {
	case j.err != nil:
	case r.binder.bound != j || !r.binder.drawn:
		j.fail(fmt.Errorf("%w: job %d admitted in frame %d", ErrMissedDraw, j.id, j.admitFrame))
	default:
		if err := r.transfer(j, dc); err != nil {
			j.fail(err)
			Logger().Warn("tilerast: readback failed", "job", j.id, "err", err)
			if errors.Is(err, render.ErrDeviceLost) {
				fatal = err
			}
		}
	}
	j.state = StateReadbackComplete

	r.q.mu.Lock()
	if r.q.closed {
		r.q.mu.Unlock()
		j.releaseStaging()
		r.deliver(j, ErrClosed)
		return fatal
	}
	r.q.finished.push(j)
	r.q.mu.Unlock()
	return fatal
}

// transfer starts copying the bound target into j's buffer: through the
// device stager when staging is enabled and available, synchronously
// otherwise.
func (r *Rasterizer) transfer(j *job, dc *render.DrawContext) error {
	rec := j.draw
	if rec == nil {
		rec = dc
	}

	if r.opts.staging {
		if st := r.device.Staging(); st != nil {
			sb, err := st.BeginReadback(rec, j.buffer)
			if err != nil {
				return fmt.Errorf("%w: job %d: %w", ErrReadbackFailed, j.id, err)
			}
			id := j.id
			err = sb.MapAsync(gputypes.MapModeRead, func(status render.MapStatus) {
				if status != render.MapStatusSuccess {
					Logger().Debug("tilerast: staging map finished", "job", id, "status", status.String())
				}
			})
			if err != nil {
				sb.Destroy()
				return fmt.Errorf("%w: job %d: %w", ErrReadbackFailed, j.id, err)
			}
			j.staging = sb
			return nil
		}
	}

	if err := r.device.ReadPixels(rec, j.buffer); err != nil {
		return fmt.Errorf("%w: job %d: %w", ErrReadbackFailed, j.id, err)
	}
	return nil
}
