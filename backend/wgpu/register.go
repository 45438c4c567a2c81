// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"github.com/gogpu/tilerast/backend"
	"github.com/gogpu/tilerast/render"
)

func init() {
	backend.Register(backend.NameWGPU, open)
}

// open builds a Device on cfg.Provider. It fails with ErrNoHAL when the
// host has no GPU provider.
func open(cfg backend.Config) (render.Device, error) {
	opts := []Option{WithLogger(cfg.Logger), WithStaging(cfg.Staging)}
	if cfg.MaxTextureSize > 0 {
		opts = append(opts, WithMaxTextureSize(cfg.MaxTextureSize))
	}
	d, err := Open(cfg.Provider, opts...)
	if err != nil {
		return nil, err
	}
	return d, nil
}
