// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"errors"
	"image/color"
	"testing"

	"github.com/gogpu/gputypes"
)

// countdownSource becomes ready after a fixed number of polls.
type countdownSource struct {
	polls    int
	data     []byte
	err      error
	released int
}

func (s *countdownSource) Poll() ([]byte, bool, error) {
	if s.polls > 0 {
		s.polls--
		return nil, false, nil
	}
	if s.err != nil {
		return nil, false, s.err
	}
	return s.data, true, nil
}

func (s *countdownSource) Release() { s.released++ }

func readDesc(w, h, bpr int, format gputypes.TextureFormat) StagingDescriptor {
	return StagingDescriptor{
		Label:       "test",
		Width:       w,
		Height:      h,
		BytesPerRow: bpr,
		Format:      format,
		Usage:       gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	}
}

func TestNewStagingBufferValidation(t *testing.T) {
	src := &countdownSource{}
	tests := []struct {
		name string
		desc StagingDescriptor
		src  StagingSource
	}{
		{"nil source", readDesc(2, 2, 8, gputypes.TextureFormatRGBA8Unorm), nil},
		{"zero size", readDesc(0, 2, 8, gputypes.TextureFormatRGBA8Unorm), src},
		{"short rows", readDesc(4, 4, 8, gputypes.TextureFormatRGBA8Unorm), src},
		{"bad format", readDesc(2, 2, 8, gputypes.TextureFormatUndefined), src},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewStagingBuffer(tt.desc, tt.src)
			if !errors.Is(err, ErrInvalidStagingLayout) {
				t.Errorf("NewStagingBuffer() error = %v, want ErrInvalidStagingLayout", err)
			}
		})
	}
}

func TestStagingBufferLifecycle(t *testing.T) {
	// 2x2 BGRA image with 16-byte padded rows.
	data := make([]byte, 32)
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			off := y*16 + x*4
			data[off+0] = 30  // B
			data[off+1] = 20  // G
			data[off+2] = 10  // R
			data[off+3] = 255 // A
		}
	}
	src := &countdownSource{polls: 2, data: data}

	b, err := NewStagingBuffer(readDesc(2, 2, 16, gputypes.TextureFormatBGRA8Unorm), src)
	if err != nil {
		t.Fatalf("NewStagingBuffer() error = %v", err)
	}

	var status MapStatus = -1
	if err := b.MapAsync(gputypes.MapModeRead, func(s MapStatus) { status = s }); err != nil {
		t.Fatalf("MapAsync() error = %v", err)
	}
	if b.MapState() != MapStatePending {
		t.Errorf("MapState() = %v, want Pending", b.MapState())
	}

	dst := NewPixelBuffer(2, 2)
	if err := b.CopyTo(dst); !errors.Is(err, ErrStagingMapPending) {
		t.Errorf("CopyTo() while pending error = %v, want ErrStagingMapPending", err)
	}

	for i := 0; i < 2; i++ {
		if b.Poll() {
			t.Fatalf("Poll() #%d = true, want false", i+1)
		}
	}
	if !b.Poll() {
		t.Fatal("Poll() #3 = false, want true")
	}
	if status != MapStatusSuccess {
		t.Errorf("callback status = %v, want Success", status)
	}
	if b.MapState() != MapStateMapped {
		t.Errorf("MapState() = %v, want Mapped", b.MapState())
	}

	if err := b.CopyTo(dst); err != nil {
		t.Fatalf("CopyTo() error = %v", err)
	}
	want := color.RGBA{R: 10, G: 20, B: 30, A: 255}
	if got := dst.Image().RGBAAt(1, 1); got != want {
		t.Errorf("pixel (1, 1) = %v, want %v", got, want)
	}

	row, err := b.GetMappedRange(16, 8)
	if err != nil {
		t.Fatalf("GetMappedRange() error = %v", err)
	}
	if len(row) != 8 {
		t.Errorf("len(GetMappedRange()) = %d, want 8", len(row))
	}
	if _, err := b.GetMappedRange(30, 8); !errors.Is(err, ErrInvalidMapRange) {
		t.Errorf("GetMappedRange() out of range error = %v, want ErrInvalidMapRange", err)
	}

	b.Destroy()
	b.Destroy()
	if src.released != 1 {
		t.Errorf("source released %d times, want 1", src.released)
	}
	if err := b.CopyTo(dst); !errors.Is(err, ErrStagingDestroyed) {
		t.Errorf("CopyTo() after Destroy error = %v, want ErrStagingDestroyed", err)
	}
}

func TestStagingBufferTransferError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status MapStatus
	}{
		{"transfer", errors.New("copy failed"), MapStatusTransferError},
		{"device lost", ErrDeviceLost, MapStatusDeviceLost},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &countdownSource{err: tt.err}
			b, err := NewStagingBuffer(readDesc(1, 1, 4, gputypes.TextureFormatRGBA8Unorm), src)
			if err != nil {
				t.Fatalf("NewStagingBuffer() error = %v", err)
			}
			var status MapStatus = -1
			if err := b.MapAsync(gputypes.MapModeRead, func(s MapStatus) { status = s }); err != nil {
				t.Fatalf("MapAsync() error = %v", err)
			}
			if !b.Poll() {
				t.Fatal("Poll() = false, want true")
			}
			if status != tt.status {
				t.Errorf("status = %v, want %v", status, tt.status)
			}
			if !errors.Is(b.Err(), tt.err) {
				t.Errorf("Err() = %v, want %v", b.Err(), tt.err)
			}
			if err := b.CopyTo(NewPixelBuffer(1, 1)); !errors.Is(err, ErrStagingNotMapped) {
				t.Errorf("CopyTo() error = %v, want ErrStagingNotMapped", err)
			}
		})
	}
}

func TestStagingBufferMapErrors(t *testing.T) {
	src := &countdownSource{data: make([]byte, 4)}
	b, err := NewStagingBuffer(StagingDescriptor{
		Width: 1, Height: 1, BytesPerRow: 4,
		Format: gputypes.TextureFormatRGBA8Unorm,
		Usage:  gputypes.BufferUsageCopyDst,
	}, src)
	if err != nil {
		t.Fatalf("NewStagingBuffer() error = %v", err)
	}

	if err := b.MapAsync(gputypes.MapModeRead, nil); !errors.Is(err, ErrMapCallbackNil) {
		t.Errorf("MapAsync(nil) error = %v, want ErrMapCallbackNil", err)
	}

	var status MapStatus = -1
	err = b.MapAsync(gputypes.MapModeRead, func(s MapStatus) { status = s })
	if !errors.Is(err, ErrMapUsageMismatch) {
		t.Errorf("MapAsync() without MapRead usage error = %v, want ErrMapUsageMismatch", err)
	}
	if status != MapStatusValidationError {
		t.Errorf("status = %v, want ValidationError", status)
	}
}

func TestStagingBufferUnmapPending(t *testing.T) {
	src := &countdownSource{polls: 10}
	b, err := NewStagingBuffer(readDesc(1, 1, 4, gputypes.TextureFormatRGBA8Unorm), src)
	if err != nil {
		t.Fatalf("NewStagingBuffer() error = %v", err)
	}
	var status MapStatus = -1
	if err := b.MapAsync(gputypes.MapModeRead, func(s MapStatus) { status = s }); err != nil {
		t.Fatalf("MapAsync() error = %v", err)
	}
	if err := b.MapAsync(gputypes.MapModeRead, func(MapStatus) {}); !errors.Is(err, ErrStagingAlreadyMapped) {
		t.Errorf("second MapAsync() error = %v, want ErrStagingAlreadyMapped", err)
	}
	if err := b.Unmap(); err != nil {
		t.Fatalf("Unmap() error = %v", err)
	}
	if status != MapStatusUnmappedBeforeCallback {
		t.Errorf("status = %v, want UnmappedBeforeCallback", status)
	}
	if b.MapState() != MapStateUnmapped {
		t.Errorf("MapState() = %v, want Unmapped", b.MapState())
	}
}

func TestAlignedBytesPerRow(t *testing.T) {
	tests := []struct {
		width, align, want int
	}{
		{64, 256, 256},
		{65, 256, 512},
		{256, 256, 1024},
		{3, 4, 12},
	}
	for _, tt := range tests {
		if got := AlignedBytesPerRow(tt.width, tt.align); got != tt.want {
			t.Errorf("AlignedBytesPerRow(%d, %d) = %d, want %d", tt.width, tt.align, got, tt.want)
		}
	}
}
