// Package tilerast rasterizes scene content into geographic tiles without
// blocking the goroutine that asks for them.
//
// # Overview
//
// A Rasterizer accepts jobs from any goroutine and renders them on the
// render goroutine that owns the graphics device, one job per frame:
//
//	r, err := tilerast.New(device)
//	if err != nil {
//	    return err
//	}
//	defer r.Close()
//
//	fut, err := r.Submit(node, 256, render.NewExtent(0, 0, 1, 1))
//	...
//	img, err := fut.Wait(ctx) // *image.RGBA, 256x256
//
// A job either renders into a caller texture (SubmitTexture, fire-and-forget)
// or into an internal pixel buffer whose contents are read back and delivered
// through a Future (Submit).
//
// # Frames
//
// Each frame the render goroutine calls, in order:
//
//	Update   detach last target, resolve one finished job, admit one pending job
//	PreDraw  record the draw context on the job being drawn
//	Draw     one device draw pass over the admitted node
//	PostDraw issue the pixel transfer, queue the job as finished
//
// Frame runs all four. Stage returns them as a frame.Stage for hosts that
// drive a frame.Loop.
//
// Futures resolve in submission order and at most one per frame. A job
// never resolves before its own draw pass has completed. With a device
// that supports staged readback the transfer completes on a later frame;
// otherwise it completes synchronously in PostDraw and resolves on the
// next Update.
//
// # Back-pressure
//
// The pending queue holds DefaultQueueLimit jobs unless WithQueueLimit says
// otherwise. When full, OverflowReject refuses new jobs with ErrQueueFull and
// OverflowShedOldest drops the oldest pending job, resolving it with ErrShed.
//
// # Logging
//
// tilerast is silent by default. Use SetLogger to route its log/slog output.
package tilerast
