package tilerast

import (
	"context"
	"image"
	"sync"
)

// Future is the single-assignment result of a readback job.
//
// A Future resolves exactly once, either with the rendered image or with
// an error. Any goroutine may wait on it. Abandoning a Future does not
// cancel the job: it still moves through the pipeline and resolves.
type Future struct {
	id   uint64
	done chan struct{}
	once sync.Once

	img *image.RGBA
	err error
}

func newFuture(id uint64) *Future {
	return &Future{
		id:   id,
		done: make(chan struct{}),
	}
}

// resolve stores the result. Only the first call has an effect; it
// reports whether this call resolved the future.
func (f *Future) resolve(img *image.RGBA, err error) bool {
	resolved := false
	f.once.Do(func() {
		if err != nil {
			img = nil
		}
		f.img = img
		f.err = err
		resolved = true
		close(f.done)
	})
	return resolved
}

// ID returns the submission sequence number of the job.
func (f *Future) ID() uint64 {
	return f.id
}

// Done returns a channel that is closed when the future resolves.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Ready reports whether the future has resolved.
func (f *Future) Ready() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Result returns the result without blocking. Before resolution it
// returns ErrPending.
func (f *Future) Result() (*image.RGBA, error) {
	if !f.Ready() {
		return nil, ErrPending
	}
	return f.img, f.err
}

// Wait blocks until the future resolves or ctx is done. A done ctx only
// stops the wait; the job keeps its place in the pipeline.
func (f *Future) Wait(ctx context.Context) (*image.RGBA, error) {
	select {
	case <-f.done:
		return f.img, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
