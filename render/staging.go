// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"
)

// Staging buffer errors.
var (
	// ErrStagingDestroyed is returned when operating on a destroyed buffer.
	ErrStagingDestroyed = errors.New("render: staging buffer has been destroyed")

	// ErrStagingAlreadyMapped is returned when mapping a buffer that is
	// already mapped or has a mapping pending.
	ErrStagingAlreadyMapped = errors.New("render: staging buffer is already mapped or mapping is pending")

	// ErrStagingNotMapped is returned when reading an unmapped buffer.
	ErrStagingNotMapped = errors.New("render: staging buffer is not mapped")

	// ErrStagingMapPending is returned when reading a buffer whose mapping
	// has not completed.
	ErrStagingMapPending = errors.New("render: staging buffer mapping is pending")

	// ErrInvalidMapRange is returned when a range is outside the buffer.
	ErrInvalidMapRange = errors.New("render: map range out of bounds")

	// ErrMapUsageMismatch is returned when the map mode does not match
	// the buffer usage flags.
	ErrMapUsageMismatch = errors.New("render: map mode does not match buffer usage flags")

	// ErrInvalidStagingLayout is returned for a descriptor that cannot hold
	// its own image.
	ErrInvalidStagingLayout = errors.New("render: invalid staging layout")

	// ErrMapCallbackNil is returned when MapAsync is called with nil callback.
	ErrMapCallbackNil = errors.New("render: map callback is nil")
)

// MapState is the mapping state of a staging buffer.
type MapState int

const (
	// MapStateUnmapped means the buffer is not mapped.
	MapStateUnmapped MapState = iota
	// MapStatePending means a map operation is in flight.
	MapStatePending
	// MapStateMapped means the staged bytes are readable.
	MapStateMapped
)

// String returns the string representation of MapState.
func (s MapState) String() string {
	switch s {
	case MapStateUnmapped:
		return "Unmapped"
	case MapStatePending:
		return "Pending"
	case MapStateMapped:
		return "Mapped"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// MapStatus is the result of an async map operation.
type MapStatus int

const (
	// MapStatusSuccess indicates mapping completed successfully.
	MapStatusSuccess MapStatus = iota
	// MapStatusValidationError indicates a validation error.
	MapStatusValidationError
	// MapStatusTransferError indicates the device failed the copy.
	MapStatusTransferError
	// MapStatusDeviceLost indicates the device was lost.
	MapStatusDeviceLost
	// MapStatusDestroyedBeforeCallback indicates the buffer was destroyed.
	MapStatusDestroyedBeforeCallback
	// MapStatusUnmappedBeforeCallback indicates the buffer was unmapped.
	MapStatusUnmappedBeforeCallback
	// MapStatusMappingAlreadyPending indicates another map is pending.
	MapStatusMappingAlreadyPending
)

// String returns the string representation of MapStatus.
func (s MapStatus) String() string {
	switch s {
	case MapStatusSuccess:
		return "Success"
	case MapStatusValidationError:
		return "ValidationError"
	case MapStatusTransferError:
		return "TransferError"
	case MapStatusDeviceLost:
		return "DeviceLost"
	case MapStatusDestroyedBeforeCallback:
		return "DestroyedBeforeCallback"
	case MapStatusUnmappedBeforeCallback:
		return "UnmappedBeforeCallback"
	case MapStatusMappingAlreadyPending:
		return "MappingAlreadyPending"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// StagingSource is the backend half of a staging buffer: it knows whether
// the device has finished the copy and where the bytes are.
type StagingSource interface {
	// Poll reports whether the transfer has finished. Once ready, data
	// holds Size() bytes laid out as the descriptor says. Poll must not
	// block.
	Poll() (data []byte, ready bool, err error)

	// Release frees device resources. Called once, from Destroy.
	Release()
}

// StagingDescriptor describes the layout of a staged image.
type StagingDescriptor struct {
	// Label is an optional debug name.
	Label string

	// Width and Height are the image size in pixels.
	Width, Height int

	// BytesPerRow is the padded row pitch, at least Width*4.
	BytesPerRow int

	// Format is RGBA8Unorm or BGRA8Unorm.
	Format gputypes.TextureFormat

	// Usage must contain BufferUsageMapRead.
	Usage gputypes.BufferUsage
}

// Size returns the staged byte size.
func (d StagingDescriptor) Size() uint64 {
	return uint64(d.BytesPerRow) * uint64(d.Height)
}

// StagingBuffer is a GPU-side readback buffer whose contents become
// readable some frames after the copy was issued.
//
// Thread Safety: StagingBuffer is safe for concurrent access. The map
// callback is invoked from the goroutine calling Poll, outside the lock.
//
// Lifecycle:
//  1. A Stager creates it with NewStagingBuffer after encoding the copy
//  2. MapAsync starts the read mapping
//  3. Poll until it returns true
//  4. CopyTo or GetMappedRange reads the data
//  5. Destroy releases the backend resources
type StagingBuffer struct {
	mu sync.Mutex

	desc   StagingDescriptor
	source StagingSource

	mapState MapState
	mapMode  gputypes.MapMode
	mapped   []byte
	callback func(MapStatus)
	err      error

	destroyed bool
}

// NewStagingBuffer wraps a backend transfer.
func NewStagingBuffer(desc StagingDescriptor, source StagingSource) (*StagingBuffer, error) {
	if source == nil {
		return nil, fmt.Errorf("%w: nil source", ErrInvalidStagingLayout)
	}
	if desc.Width <= 0 || desc.Height <= 0 {
		return nil, fmt.Errorf("%w: size %dx%d", ErrInvalidStagingLayout, desc.Width, desc.Height)
	}
	if desc.BytesPerRow < desc.Width*4 {
		return nil, fmt.Errorf("%w: bytes per row %d < %d", ErrInvalidStagingLayout, desc.BytesPerRow, desc.Width*4)
	}
	switch desc.Format {
	case gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatBGRA8Unorm:
	default:
		return nil, fmt.Errorf("%w: format %v", ErrInvalidStagingLayout, desc.Format)
	}
	return &StagingBuffer{
		desc:   desc,
		source: source,
	}, nil
}

// Label returns the buffer's debug label.
func (b *StagingBuffer) Label() string {
	return b.desc.Label
}

// Descriptor returns a copy of the buffer descriptor.
func (b *StagingBuffer) Descriptor() StagingDescriptor {
	return b.desc
}

// MapState returns the current mapping state.
func (b *StagingBuffer) MapState() MapState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.mapState
}

// Err returns the terminal transfer error, if any.
func (b *StagingBuffer) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

// MapAsync starts mapping the buffer for reading. The callback runs
// when a later Poll observes completion or failure.
func (b *StagingBuffer) MapAsync(mode gputypes.MapMode, callback func(MapStatus)) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.destroyed {
		return ErrStagingDestroyed
	}
	if b.mapState != MapStateUnmapped {
		if callback != nil {
			callback(MapStatusMappingAlreadyPending)
		}
		return ErrStagingAlreadyMapped
	}
	if callback == nil {
		return ErrMapCallbackNil
	}
	if mode != gputypes.MapModeRead {
		callback(MapStatusValidationError)
		return fmt.Errorf("%w: staging buffers map for reading only", ErrMapUsageMismatch)
	}
	if !b.desc.Usage.Contains(gputypes.BufferUsageMapRead) {
		callback(MapStatusValidationError)
		return fmt.Errorf("%w: buffer does not have MapRead usage", ErrMapUsageMismatch)
	}

	b.mapState = MapStatePending
	b.mapMode = mode
	b.callback = callback
	return nil
}

// Poll advances a pending mapping. It returns true once the mapping is
// complete, successfully or not, and false while the device is still busy.
// Poll on a buffer with no pending mapping returns true.
func (b *StagingBuffer) Poll() bool {
	b.mu.Lock()
	if b.mapState != MapStatePending {
		b.mu.Unlock()
		return true
	}
	if b.destroyed {
		cb := b.takeCallback()
		b.mapState = MapStateUnmapped
		b.mu.Unlock()
		if cb != nil {
			cb(MapStatusDestroyedBeforeCallback)
		}
		return true
	}

	data, ready, err := b.source.Poll()
	if !ready && err == nil {
		b.mu.Unlock()
		return false
	}

	status := MapStatusSuccess
	switch {
	case errors.Is(err, ErrDeviceLost):
		status = MapStatusDeviceLost
	case err != nil:
		status = MapStatusTransferError
	case uint64(len(data)) < b.desc.Size():
		status = MapStatusTransferError
		err = fmt.Errorf("%w: staged %d bytes, want %d", ErrInvalidMapRange, len(data), b.desc.Size())
	}

	if status == MapStatusSuccess {
		b.mapped = data
		b.mapState = MapStateMapped
	} else {
		b.err = err
		b.mapState = MapStateUnmapped
	}
	cb := b.takeCallback()
	b.mu.Unlock()

	if cb != nil {
		cb(status)
	}
	return true
}

func (b *StagingBuffer) takeCallback() func(MapStatus) {
	cb := b.callback
	b.callback = nil
	return cb
}

// GetMappedRange returns size bytes of the mapped data starting at offset.
// The slice is only valid until Unmap or Destroy.
func (b *StagingBuffer) GetMappedRange(offset, size uint64) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.destroyed {
		return nil, ErrStagingDestroyed
	}
	if b.mapState == MapStatePending {
		return nil, ErrStagingMapPending
	}
	if b.mapState != MapStateMapped {
		return nil, ErrStagingNotMapped
	}
	if offset+size > uint64(len(b.mapped)) {
		return nil, fmt.Errorf("%w: offset %d + size %d exceeds mapped size %d",
			ErrInvalidMapRange, offset, size, len(b.mapped))
	}
	return b.mapped[offset : offset+size], nil
}

// CopyTo writes the mapped image into dst, stripping row padding and
// converting BGRA to RGBA when needed.
func (b *StagingBuffer) CopyTo(dst *PixelBuffer) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.destroyed {
		return ErrStagingDestroyed
	}
	if b.mapState == MapStatePending {
		return ErrStagingMapPending
	}
	if b.mapState != MapStateMapped {
		return ErrStagingNotMapped
	}
	if dst.Width() != b.desc.Width || dst.Height() != b.desc.Height {
		return fmt.Errorf("%w: destination %dx%d, staged %dx%d", ErrInvalidMapRange,
			dst.Width(), dst.Height(), b.desc.Width, b.desc.Height)
	}

	rowBytes := b.desc.Width * 4
	pix := dst.Pixels()
	stride := dst.Stride()
	for y := 0; y < b.desc.Height; y++ {
		src := b.mapped[y*b.desc.BytesPerRow : y*b.desc.BytesPerRow+rowBytes]
		row := pix[y*stride : y*stride+rowBytes]
		if b.desc.Format == gputypes.TextureFormatBGRA8Unorm {
			ConvertBGRAToRGBA(src, row)
		} else {
			copy(row, src)
		}
	}
	return nil
}

// Unmap returns the buffer to the unmapped state. A pending mapping is
// abandoned and its callback receives MapStatusUnmappedBeforeCallback.
func (b *StagingBuffer) Unmap() error {
	b.mu.Lock()
	if b.destroyed {
		b.mu.Unlock()
		return ErrStagingDestroyed
	}
	var cb func(MapStatus)
	if b.mapState == MapStatePending {
		cb = b.takeCallback()
	}
	b.mapState = MapStateUnmapped
	b.mapped = nil
	b.mu.Unlock()

	if cb != nil {
		cb(MapStatusUnmappedBeforeCallback)
	}
	return nil
}

// Destroy releases the buffer and its backend resources. Destroy is
// idempotent.
func (b *StagingBuffer) Destroy() {
	b.mu.Lock()
	if b.destroyed {
		b.mu.Unlock()
		return
	}
	b.destroyed = true
	source := b.source
	var cb func(MapStatus)
	if b.mapState == MapStatePending {
		cb = b.takeCallback()
	}
	b.source = nil
	b.mapped = nil
	b.mapState = MapStateUnmapped
	b.mu.Unlock()

	if cb != nil {
		cb(MapStatusDestroyedBeforeCallback)
	}
	if source != nil {
		source.Release()
	}
}

// ConvertBGRAToRGBA swaps the R and B channels of src into dst.
// dst must be at least len(src) bytes.
func ConvertBGRAToRGBA(src, dst []byte) {
	for i := 0; i+3 < len(src); i += 4 {
		dst[i+0] = src[i+2]
		dst[i+1] = src[i+1]
		dst[i+2] = src[i+0]
		dst[i+3] = src[i+3]
	}
}

// AlignedBytesPerRow rounds width*4 up to alignment, which must be a
// power of two.
func AlignedBytesPerRow(width, alignment int) int {
	bpr := width * 4
	return (bpr + alignment - 1) &^ (alignment - 1)
}
