// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package frame is a minimal host render loop.
//
// Work is registered as a Stage with one handler per Phase. Each frame a
// Loop runs the update handler of every stage, then the pre-draw, draw and
// post-draw handlers of each stage that needs a draw, all on the same
// goroutine and with the same render.DrawContext:
//
//	loop := frame.NewLoop(device)
//	loop.Register(rasterizer.Stage())
//	err := loop.Run(ctx, time.Second/60)
//
// Run locks its goroutine to the OS thread, which GPU drivers with thread
// affinity require. Hosts with their own loop call Step once per frame.
package frame
