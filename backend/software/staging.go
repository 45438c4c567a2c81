// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package software

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/tilerast/render"
)

// copyPitchAlignment matches the GPU row pitch so staged data carries the
// same padding a hardware readback would.
const copyPitchAlignment = 256

// stager snapshots the target into a padded buffer that becomes readable
// after the configured number of polls.
type stager struct {
	device *Device
}

// BeginReadback copies the bound target into a new staging buffer.
func (s *stager) BeginReadback(_ *render.DrawContext, dst *render.PixelBuffer) (*render.StagingBuffer, error) {
	d := s.device
	if d.canvas == nil {
		return nil, render.ErrNotAttached
	}
	if err := d.checkSize(dst); err != nil {
		return nil, err
	}

	w, h := d.pixmap.Width(), d.pixmap.Height()
	bytesPerRow := w * 4
	alignedBytesPerRow := render.AlignedBytesPerRow(w, copyPitchAlignment)
	data := make([]byte, alignedBytesPerRow*h)
	src := d.pixmap.Data()
	bgra := d.opts.stagingFormat == gputypes.TextureFormatBGRA8Unorm
	for y := 0; y < h; y++ {
		row := src[y*bytesPerRow : (y+1)*bytesPerRow]
		out := data[y*alignedBytesPerRow : y*alignedBytesPerRow+bytesPerRow]
		if bgra {
			// The R/B swap is its own inverse.
			render.ConvertBGRAToRGBA(row, out)
		} else {
			copy(out, row)
		}
	}

	d.opts.logger.Debug("software: readback staged", "width", w, "height", h, "latency", d.opts.stagingLatency)
	return render.NewStagingBuffer(render.StagingDescriptor{
		Label:       "software_staging",
		Width:       w,
		Height:      h,
		BytesPerRow: alignedBytesPerRow,
		Format:      d.opts.stagingFormat,
		Usage:       gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	}, &latentSource{data: data, latency: d.opts.stagingLatency})
}

// latentSource reports ready on the latency-th poll.
type latentSource struct {
	data     []byte
	latency  int
	polls    int
	released bool
}

func (s *latentSource) Poll() ([]byte, bool, error) {
	if s.released {
		return nil, false, render.ErrStagingDestroyed
	}
	s.polls++
	if s.polls < s.latency {
		return nil, false, nil
	}
	return s.data, true, nil
}

func (s *latentSource) Release() {
	s.released = true
	s.data = nil
}
