// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package software

import (
	"github.com/gogpu/tilerast/backend"
	"github.com/gogpu/tilerast/render"
)

func init() {
	backend.Register(backend.NameSoftware, open)
}

// open builds a Device from backend.Config. Staging without a latency
// completes on the first poll.
func open(cfg backend.Config) (render.Device, error) {
	latency := 0
	if cfg.Staging {
		latency = max(cfg.StagingLatency, 1)
	}
	opts := []Option{WithLogger(cfg.Logger), WithStagingLatency(latency)}
	if cfg.MaxTextureSize > 0 {
		opts = append(opts, WithMaxTextureSize(cfg.MaxTextureSize))
	}
	return NewDevice(opts...), nil
}
