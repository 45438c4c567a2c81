// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"log/slog"
	"time"
)

// DefaultMaxTextureSize is the attachment limit used when none is set.
// It matches the WebGPU default maxTextureDimension2D.
const DefaultMaxTextureSize = 8192

// DefaultReadTimeout bounds a synchronous ReadPixels.
const DefaultReadTimeout = 5 * time.Second

// Option configures a Device.
type Option func(*options)

type options struct {
	logger         *slog.Logger
	label          string
	maxTextureSize int
	staging        bool
	readTimeout    time.Duration
}

func defaultOptions() options {
	return options{
		logger:         slog.New(slog.DiscardHandler),
		label:          "wgpu",
		maxTextureSize: DefaultMaxTextureSize,
		staging:        true,
		readTimeout:    DefaultReadTimeout,
	}
}

// WithLogger sets the device logger. By default the device is silent.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithLabel sets the device name reported in capabilities and used as
// the prefix of GPU debug labels.
func WithLabel(label string) Option {
	return func(o *options) {
		if label != "" {
			o.label = label
		}
	}
}

// WithMaxTextureSize limits attachment dimensions.
func WithMaxTextureSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxTextureSize = n
		}
	}
}

// WithStaging enables or disables fence-polled staged readback.
func WithStaging(enabled bool) Option {
	return func(o *options) {
		o.staging = enabled
	}
}

// WithReadTimeout bounds how long ReadPixels waits for the GPU.
func WithReadTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.readTimeout = d
		}
	}
}
