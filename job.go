package tilerast

import (
	"fmt"
	"time"

	"github.com/gogpu/tilerast/render"
)

// Mode selects what happens to a job's pixels after its draw pass.
type Mode int

const (
	// ModeTexture renders into a caller texture. Nothing is read back and
	// no Future exists.
	ModeTexture Mode = iota
	// ModeReadback renders into an internal buffer whose pixels are
	// delivered through a Future.
	ModeReadback
)

// String returns the string representation of Mode.
func (m Mode) String() string {
	switch m {
	case ModeTexture:
		return "texture"
	case ModeReadback:
		return "readback"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// JobState is the lifecycle position of a job.
type JobState int

const (
	// StateSubmitted means the job waits in the pending queue.
	StateSubmitted JobState = iota
	// StateAttached means the job's target is bound and its node is in
	// the render graph.
	StateAttached
	// StateAwaitingReadback means the job is drawn this frame and waits
	// for its post-draw transfer.
	StateAwaitingReadback
	// StateReadbackComplete means the transfer was issued and the job
	// waits in the finished queue.
	StateReadbackComplete
	// StateResolved means the job's Future holds its result.
	StateResolved
)

// String returns the string representation of JobState.
func (s JobState) String() string {
	switch s {
	case StateSubmitted:
		return "Submitted"
	case StateAttached:
		return "Attached"
	case StateAwaitingReadback:
		return "AwaitingReadback"
	case StateReadbackComplete:
		return "ReadbackComplete"
	case StateResolved:
		return "Resolved"
	default:
		return fmt.Sprintf("JobState(%d)", int(s))
	}
}

// job is one unit of rasterization work. Exactly one of texture and
// buffer is set.
type job struct {
	id     uint64
	node   render.Node
	extent render.Extent

	texture render.Texture
	buffer  *render.PixelBuffer
	future  *Future

	state      JobState
	submitted  time.Time
	admitFrame uint64

	// draw is the context recorded at pre-draw time.
	draw    *render.DrawContext
	staging *render.StagingBuffer

	// err is the terminal failure, delivered instead of pixels.
	err error
}

func (j *job) mode() Mode {
	if j.texture != nil {
		return ModeTexture
	}
	return ModeReadback
}

func (j *job) attachment() render.Attachment {
	if j.texture != nil {
		return render.TextureAttachment(j.texture)
	}
	return render.BufferAttachment(j.buffer)
}

// fail records err as the job's terminal failure unless one is already
// recorded.
func (j *job) fail(err error) {
	if j.err == nil {
		j.err = err
	}
}

// releaseStaging destroys the job's staging buffer, if any.
func (j *job) releaseStaging() {
	if j.staging != nil {
		j.staging.Destroy()
		j.staging = nil
	}
}
