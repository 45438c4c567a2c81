package tilerast

import (
	"image/color"

	"github.com/gogpu/tilerast/render"
)

// DefaultQueueLimit is the default bound on pending jobs.
const DefaultQueueLimit = 1024

// Option configures a Rasterizer during creation.
//
// Example:
//
//	r, err := tilerast.New(device,
//	    tilerast.WithQueueLimit(256),
//	    tilerast.WithOverflowPolicy(tilerast.OverflowShedOldest),
//	)
type Option func(*options)

// options holds optional configuration for Rasterizer creation.
type options struct {
	queueLimit int
	overflow   OverflowPolicy
	near, far  float64
	clearColor color.RGBA
	staging    bool
	metrics    *Metrics
}

// defaultOptions returns the default rasterizer options.
func defaultOptions() options {
	return options{
		queueLimit: DefaultQueueLimit,
		overflow:   OverflowReject,
		near:       render.DefaultNear,
		far:        render.DefaultFar,
		clearColor: color.RGBA{}, // transparent black
		staging:    true,
	}
}

// WithQueueLimit bounds the number of pending jobs. Zero means unbounded.
// Negative values are ignored.
func WithQueueLimit(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.queueLimit = n
		}
	}
}

// WithOverflowPolicy selects what a full pending queue does with a new job.
func WithOverflowPolicy(p OverflowPolicy) Option {
	return func(o *options) {
		o.overflow = p
	}
}

// WithDepthRange sets the near and far planes of every tile projection.
// A range with near >= far is ignored.
func WithDepthRange(near, far float64) Option {
	return func(o *options) {
		if near < far {
			o.near = near
			o.far = far
		}
	}
}

// WithClearColor sets the color every target is cleared to before drawing.
func WithClearColor(c color.RGBA) Option {
	return func(o *options) {
		o.clearColor = c
	}
}

// WithStaging enables or disables asynchronous staging readback on
// devices that support it. Enabled by default; when disabled, or when
// the device has no stager, pixels are read back synchronously.
func WithStaging(enabled bool) Option {
	return func(o *options) {
		o.staging = enabled
	}
}

// WithMetrics records pipeline metrics into m.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}
