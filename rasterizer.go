package tilerast

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gogpu/tilerast/render"
)

// Rasterizer renders caller nodes into tile-sized targets, one target per
// frame, without blocking the submitting goroutine.
//
// Submit and SubmitTexture may be called from any goroutine. The frame-phase
// methods (Update, PreDraw, Draw, PostDraw, or Frame which runs all four)
// must be called from a single render goroutine, the one that owns the
// device.
type Rasterizer struct {
	device render.Device
	caps   render.DeviceCapabilities
	opts   options

	q queueSet

	// Render goroutine state.
	graph  render.Graph
	binder *binder
	guard  frameGuard

	owner    render.OwnerID
	frameSeq atomic.Uint64
	attached atomic.Bool

	stats counters
}

// counters are the monotonic totals reported by Stats.
type counters struct {
	submitted atomic.Uint64
	rejected  atomic.Uint64
	shed      atomic.Uint64
	admitted  atomic.Uint64
	resolved  atomic.Uint64
	failed    atomic.Uint64
	frames    atomic.Uint64
}

// Stats is a snapshot of the pipeline.
type Stats struct {
	// Queue depths.
	Pending  int
	Readback int
	Finished int

	// Attached reports whether a target is bound.
	Attached bool

	// Totals since creation.
	Submitted uint64
	Rejected  uint64
	Shed      uint64
	Admitted  uint64
	Resolved  uint64
	Failed    uint64
	Frames    uint64

	Closed bool
}

// New creates a Rasterizer drawing on device.
func New(device render.Device, opts ...Option) (*Rasterizer, error) {
	if device == nil {
		return nil, ErrNilDevice
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	r := &Rasterizer{
		device: device,
		caps:   device.Capabilities(),
		opts:   o,
		binder: newBinder(device, o.near, o.far),
		owner:  render.NewOwnerID(),
	}
	r.q.limit = o.queueLimit
	r.q.policy = o.overflow

	Logger().Info("tilerast: rasterizer created",
		"device", r.caps.DeviceName,
		"staging", o.staging && r.caps.SupportsStaging,
		"queue_limit", o.queueLimit,
		"overflow", o.overflow.String())
	return r, nil
}

// MaxTargetSize is the largest target edge accepted regardless of the
// device limit. Readback buffers are allocated at submission.
const MaxTargetSize = 16384

// Submit queues a readback job rendering node over extent into a
// size x size RGBA buffer. The returned Future resolves with the image
// a few frames later.
func (r *Rasterizer) Submit(node render.Node, size int, extent render.Extent) (*Future, error) {
	if err := r.validate(node, size, size, extent); err != nil {
		r.reject("invalid")
		return nil, err
	}
	j := &job{
		node:      node,
		extent:    extent,
		buffer:    render.NewPixelBuffer(size, size),
		submitted: time.Now(),
	}
	if err := r.enqueue(j); err != nil {
		return nil, err
	}
	return j.future, nil
}

// SubmitTexture queues a fire-and-forget job rendering node over extent
// into tex. Nothing is read back.
func (r *Rasterizer) SubmitTexture(node render.Node, tex render.Texture, extent render.Extent) error {
	if tex == nil {
		r.reject("invalid")
		return ErrNilTexture
	}
	if err := r.validate(node, tex.Width(), tex.Height(), extent); err != nil {
		r.reject("invalid")
		return err
	}
	return r.enqueue(&job{
		node:      node,
		extent:    extent,
		texture:   tex,
		submitted: time.Now(),
	})
}

func (r *Rasterizer) validate(node render.Node, w, h int, extent render.Extent) error {
	if node == nil {
		return ErrNilNode
	}
	if w <= 0 || h <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidSize, w, h)
	}
	limit := MaxTargetSize
	if l := r.caps.MaxTextureSize; l > 0 && l < limit {
		limit = l
	}
	if w > limit || h > limit {
		return fmt.Errorf("%w: %dx%d > %d", ErrTooLarge, w, h, limit)
	}
	if !extent.Valid() {
		return fmt.Errorf("%w: %v", ErrDegenerateExtent, extent)
	}
	return nil
}

func (r *Rasterizer) enqueue(j *job) error {
	r.q.mu.Lock()
	j.id = r.q.nextID()
	if j.buffer != nil {
		j.future = newFuture(j.id)
	}
	shed, err := r.q.enqueue(j)
	r.q.mu.Unlock()

	if err != nil {
		switch {
		case errors.Is(err, ErrClosed):
			r.reject("closed")
		default:
			r.reject("queue_full")
		}
		return err
	}

	r.stats.submitted.Add(1)
	r.opts.metrics.jobSubmitted(j.mode())
	if shed != nil {
		r.stats.shed.Add(1)
		r.opts.metrics.jobRejected("shed")
		Logger().Warn("tilerast: pending queue full, shed oldest job",
			"shed", shed.id, "mode", shed.mode().String(), "queued", j.id)
		if shed.future != nil {
			r.deliver(shed, fmt.Errorf("%w: job %d", ErrShed, shed.id))
		}
	}
	return nil
}

func (r *Rasterizer) reject(reason string) {
	r.stats.rejected.Add(1)
	r.opts.metrics.jobRejected(reason)
}

// deliver resolves j's future with the job's pixels, or with err when
// err is non-nil.
func (r *Rasterizer) deliver(j *job, err error) {
	j.state = StateResolved
	if j.future == nil {
		return
	}
	var img = j.buffer.Image()
	if err != nil {
		img = nil
	}
	if !j.future.resolve(img, err) {
		return
	}
	r.stats.resolved.Add(1)
	if err != nil {
		r.stats.failed.Add(1)
	}
	r.opts.metrics.futureResolved(err, j.submitted)
	Logger().Debug("tilerast: future resolved", "job", j.id, "err", err)
}

// NeedsDraw reports whether a target is bound and its draw pass has not
// run yet this frame. It is meant for the render goroutine.
func (r *Rasterizer) NeedsDraw() bool {
	return r.binder.bound != nil && !r.binder.drawn && r.graph.NeedsDraw()
}

// Frame runs one complete frame: Update, then PreDraw, Draw and PostDraw
// when a draw is due. It is for hosts without a frame.Loop and must not
// be mixed with one on the same Rasterizer.
func (r *Rasterizer) Frame(ctx context.Context) error {
	dc := &render.DrawContext{
		Frame:  r.frameSeq.Add(1),
		Owner:  r.owner,
		Device: r.device,
	}
	if err := r.Update(ctx, dc); err != nil {
		return err
	}
	if !r.NeedsDraw() {
		return nil
	}
	if err := r.PreDraw(ctx, dc); err != nil {
		return err
	}
	if err := r.Draw(ctx, dc); err != nil {
		return err
	}
	return r.PostDraw(ctx, dc)
}

// Stats returns a snapshot of queue depths and totals. It is safe for
// concurrent use.
func (r *Rasterizer) Stats() Stats {
	r.q.mu.Lock()
	pending, readback, finished := r.q.depths()
	closed := r.q.closed
	r.q.mu.Unlock()

	return Stats{
		Pending:   pending,
		Readback:  readback,
		Finished:  finished,
		Attached:  r.attached.Load(),
		Submitted: r.stats.submitted.Load(),
		Rejected:  r.stats.rejected.Load(),
		Shed:      r.stats.shed.Load(),
		Admitted:  r.stats.admitted.Load(),
		Resolved:  r.stats.resolved.Load(),
		Failed:    r.stats.failed.Load(),
		Frames:    r.stats.frames.Load(),
		Closed:    closed,
	}
}

// Close rejects further submissions and resolves every outstanding
// future with ErrClosed. The bound target, if any, is released by the
// next Update. Close is idempotent and safe for concurrent use.
func (r *Rasterizer) Close() error {
	r.q.mu.Lock()
	if r.q.closed {
		r.q.mu.Unlock()
		return nil
	}
	jobs := r.q.close()
	r.q.mu.Unlock()

	for _, j := range jobs {
		if j.future != nil && j.future.resolve(nil, ErrClosed) {
			r.stats.resolved.Add(1)
			r.stats.failed.Add(1)
			r.opts.metrics.futureResolved(ErrClosed, j.submitted)
		}
	}
	Logger().Info("tilerast: rasterizer closed", "outstanding", len(jobs))
	return nil
}
