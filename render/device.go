// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"context"
	"errors"
	"image/color"
	"sync/atomic"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
)

// Device errors.
var (
	// ErrDeviceLost is returned when the device context is gone. It is the
	// only condition the rasterizer does not absorb: it propagates to the
	// host render loop.
	ErrDeviceLost = errors.New("render: device lost")

	// ErrUnsupportedAttachment is returned by Attach when the attachment was
	// not created by, or cannot be bound on, this device.
	ErrUnsupportedAttachment = errors.New("render: unsupported attachment")

	// ErrNotAttached is returned by Draw and ReadPixels when nothing is bound.
	ErrNotAttached = errors.New("render: no attachment bound")
)

// DeviceHandle provides GPU device access from the host application.
//
// DeviceHandle is an alias for gpucontext.DeviceProvider. Hosts that already
// own a gogpu device pass it as-is through backend.Config.Provider.
type DeviceHandle = gpucontext.DeviceProvider

// Device is the graphics collaborator the rasterizer drives. All methods
// are called from the render goroutine only.
//
// A Device binds one color attachment at a time, executes one draw pass
// over a list of nodes into it, and copies the rendered region back into
// host memory.
type Device interface {
	// Capabilities reports device limits used to validate submissions.
	Capabilities() DeviceCapabilities

	// Attach binds a as the color attachment for subsequent draws.
	Attach(a Attachment, vp Viewport) error

	// Detach clears the current attachment. Detach with nothing bound is
	// a no-op.
	Detach()

	// Draw executes exactly one draw pass into the bound attachment.
	Draw(ctx context.Context, pass *Pass) error

	// ReadPixels synchronously copies the bound attachment into dst.
	// dc is the context recorded at pre-draw time.
	ReadPixels(dc *DrawContext, dst *PixelBuffer) error

	// Staging returns the device's GPU-side staging capability, or nil if
	// the device can only read back synchronously.
	Staging() Stager
}

// Stager issues asynchronous pixel transfers through a staging buffer.
type Stager interface {
	// BeginReadback starts copying the bound attachment into a staging
	// buffer sized for dst. The returned buffer completes on a later poll.
	BeginReadback(dc *DrawContext, dst *PixelBuffer) (*StagingBuffer, error)
}

// Pass describes one draw pass.
type Pass struct {
	// Frame is the frame number the pass belongs to.
	Frame uint64

	// Projection maps world coordinates to clip space.
	Projection Projection

	// Viewport is the pixel rectangle being drawn.
	Viewport Viewport

	// ClearColor is written to the attachment before any node draws.
	ClearColor color.RGBA

	// Nodes are the render graph children, in draw order.
	Nodes []Node
}

// DrawContext carries the per-frame state a host hands to frame-phase
// handlers. Readback records it at pre-draw and reuses it at post-draw.
type DrawContext struct {
	// Frame is a monotonically increasing frame number.
	Frame uint64

	// Owner identifies the render loop that produced this context.
	Owner OwnerID

	// Device is the device drawing this frame.
	Device Device
}

// OwnerID identifies a render loop. The zero value is never issued.
type OwnerID uint64

var ownerSeq atomic.Uint64

// NewOwnerID returns a process-unique OwnerID.
func NewOwnerID() OwnerID {
	return OwnerID(ownerSeq.Add(1))
}

// DeviceCapabilities describes the capabilities of a device.
type DeviceCapabilities struct {
	// MaxTextureSize is the maximum attachment dimension (0 = unlimited).
	MaxTextureSize int

	// Format is the pixel format the device renders in.
	Format gputypes.TextureFormat

	// SupportsStaging reports whether Staging returns a non-nil Stager.
	SupportsStaging bool

	// DeviceName is a human readable device name.
	DeviceName string
}
