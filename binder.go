package tilerast

import (
	"image/color"
	"slices"

	"github.com/gogpu/tilerast/render"
)

// binder owns the device's color attachment. At most one job is bound at
// any instant. It is used from the render goroutine only.
type binder struct {
	device    render.Device
	near, far float64

	bound      *job
	viewport   render.Viewport
	projection render.Projection
	drawn      bool
}

func newBinder(device render.Device, near, far float64) *binder {
	return &binder{device: device, near: near, far: far}
}

// attach binds j's target with a viewport covering it and a projection
// taken from its extent. A failed attach leaves nothing bound.
func (b *binder) attach(j *job) error {
	a := j.attachment()
	vp := render.FullViewport(a)
	if err := b.device.Attach(a, vp); err != nil {
		return err
	}
	b.bound = j
	b.viewport = vp
	b.projection = render.Ortho(j.extent, b.near, b.far)
	b.drawn = false
	return nil
}

// detach unbinds the current target and returns the job that was bound.
func (b *binder) detach() *job {
	if b.bound == nil {
		return nil
	}
	b.device.Detach()
	j := b.bound
	b.bound = nil
	b.viewport = render.Viewport{}
	b.projection = render.Projection{}
	b.drawn = false
	return j
}

// pass builds the draw pass for the bound target. The pass owns its
// node slice.
func (b *binder) pass(frame uint64, clearColor color.RGBA, nodes []render.Node) *render.Pass {
	return &render.Pass{
		Frame:      frame,
		Projection: b.projection,
		Viewport:   b.viewport,
		ClearColor: clearColor,
		Nodes:      slices.Clone(nodes),
	}
}
