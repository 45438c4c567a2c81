// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package software

import (
	"log/slog"

	"github.com/gogpu/gputypes"
)

// DefaultMaxTextureSize is the attachment limit of a device built without
// WithMaxTextureSize.
const DefaultMaxTextureSize = 8192

// Option configures a Device.
type Option func(*options)

type options struct {
	logger         *slog.Logger
	maxTextureSize int
	stagingLatency int
	stagingFormat  gputypes.TextureFormat
}

func defaultOptions() options {
	return options{
		logger:         slog.New(slog.DiscardHandler),
		maxTextureSize: DefaultMaxTextureSize,
		stagingFormat:  gputypes.TextureFormatBGRA8Unorm,
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

// WithMaxTextureSize limits attachment dimensions. Zero means unlimited.
// The default is DefaultMaxTextureSize.
func WithMaxTextureSize(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.maxTextureSize = n
		}
	}
}

// WithStagingLatency enables staged readback. A staged transfer becomes
// readable on its frames-th poll, so with one poll per frame it completes
// frames frames after it was issued. Zero disables staging.
func WithStagingLatency(frames int) Option {
	return func(o *options) {
		if frames >= 0 {
			o.stagingLatency = frames
		}
	}
}

// WithStagingFormat sets the byte order of staged data, RGBA8Unorm or
// BGRA8Unorm (the default, as GPU surfaces use).
func WithStagingFormat(f gputypes.TextureFormat) Option {
	return func(o *options) {
		switch f {
		case gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatBGRA8Unorm:
			o.stagingFormat = f
		}
	}
}
