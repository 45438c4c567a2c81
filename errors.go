package tilerast

import "errors"

// Submission errors. They are returned synchronously by New, Submit and
// SubmitTexture; the job is not queued.
var (
	// ErrNilDevice is returned by New for a nil device.
	ErrNilDevice = errors.New("tilerast: nil device")

	// ErrNilNode is returned when the node to render is nil.
	ErrNilNode = errors.New("tilerast: nil node")

	// ErrNilTexture is returned by SubmitTexture for a nil target.
	ErrNilTexture = errors.New("tilerast: nil texture")

	// ErrInvalidSize is returned for a non-positive target size.
	ErrInvalidSize = errors.New("tilerast: invalid target size")

	// ErrTooLarge is returned when the target exceeds the device limit or
	// MaxTargetSize.
	ErrTooLarge = errors.New("tilerast: target exceeds device texture limit")

	// ErrDegenerateExtent is returned for an extent with non-finite bounds
	// or zero area.
	ErrDegenerateExtent = errors.New("tilerast: degenerate extent")

	// ErrQueueFull is returned when the pending queue is at its limit and
	// the overflow policy is OverflowReject.
	ErrQueueFull = errors.New("tilerast: pending queue full")

	// ErrClosed is returned by submissions after Close, and delivered to
	// every future still outstanding when Close runs.
	ErrClosed = errors.New("tilerast: rasterizer closed")
)

// Job failures. They are delivered through the job's Future.
var (
	// ErrShed is delivered to a pending job dropped by OverflowShedOldest.
	ErrShed = errors.New("tilerast: job shed from full queue")

	// ErrAttachFailed wraps a device error from binding the target.
	ErrAttachFailed = errors.New("tilerast: attach failed")

	// ErrDrawFailed wraps a device error from the job's draw pass.
	ErrDrawFailed = errors.New("tilerast: draw failed")

	// ErrReadbackFailed wraps a device error from the pixel transfer.
	ErrReadbackFailed = errors.New("tilerast: readback failed")

	// ErrMissedDraw is delivered when a job was admitted but its frame
	// ended without a post-draw pass.
	ErrMissedDraw = errors.New("tilerast: frame ended before the job was drawn")
)

// ErrPending is returned by Future.Result before the future resolves.
var ErrPending = errors.New("tilerast: result pending")

// Frame-phase errors.
var (
	// ErrConcurrentFrame is returned when a frame-phase method is entered
	// while another one is still running.
	ErrConcurrentFrame = errors.New("tilerast: concurrent frame-phase call")

	// ErrForeignOwner is returned when a frame-phase method receives a
	// DrawContext from a render loop other than the first one seen.
	ErrForeignOwner = errors.New("tilerast: draw context from a foreign render loop")
)
