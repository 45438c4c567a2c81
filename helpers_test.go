package tilerast

import (
	"context"
	"image/color"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/tilerast/render"
)

// fakeDevice records calls and injects failures. Readback fills the
// destination with fill.
type fakeDevice struct {
	caps render.DeviceCapabilities

	attachErr   error
	drawErr     error
	readErr     error
	stager      render.Stager
	failAttachN int // fail the n-th Attach (1-based), 0 = use attachErr

	bound    render.Attachment
	attaches int
	detaches int
	draws    []*render.Pass
	reads    int
	fill     color.RGBA

	// attachedAtDraw records the attachment bound at each draw.
	attachedAtDraw []render.Attachment
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{
		caps: render.DeviceCapabilities{Format: gputypes.TextureFormatRGBA8Unorm, DeviceName: "fake"},
		fill: color.RGBA{G: 255, A: 255},
	}
}

func (d *fakeDevice) Capabilities() render.DeviceCapabilities { return d.caps }

func (d *fakeDevice) Attach(a render.Attachment, _ render.Viewport) error {
	d.attaches++
	if d.failAttachN > 0 && d.attaches == d.failAttachN {
		return render.ErrUnsupportedAttachment
	}
	if d.attachErr != nil {
		return d.attachErr
	}
	d.bound = a
	return nil
}

func (d *fakeDevice) Detach() {
	d.detaches++
	d.bound = render.Attachment{}
}

func (d *fakeDevice) Draw(_ context.Context, pass *render.Pass) error {
	d.draws = append(d.draws, pass)
	d.attachedAtDraw = append(d.attachedAtDraw, d.bound)
	return d.drawErr
}

func (d *fakeDevice) ReadPixels(_ *render.DrawContext, dst *render.PixelBuffer) error {
	d.reads++
	if d.readErr != nil {
		return d.readErr
	}
	dst.Clear(d.fill)
	return nil
}

func (d *fakeDevice) Staging() render.Stager { return d.stager }

// fakeStager stages readbacks through fakeSource. beginErr fails
// BeginReadback; pollErr fails every transfer on its first poll.
type fakeStager struct {
	beginErr error
	pollErr  error

	begins   int
	released int
}

func (s *fakeStager) BeginReadback(_ *render.DrawContext, dst *render.PixelBuffer) (*render.StagingBuffer, error) {
	s.begins++
	if s.beginErr != nil {
		return nil, s.beginErr
	}
	w, h := dst.Width(), dst.Height()
	return render.NewStagingBuffer(render.StagingDescriptor{
		Label:       "fake_staging",
		Width:       w,
		Height:      h,
		BytesPerRow: w * 4,
		Format:      gputypes.TextureFormatRGBA8Unorm,
		Usage:       gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	}, &fakeSource{stager: s, data: make([]byte, w*h*4)})
}

type fakeSource struct {
	stager *fakeStager
	data   []byte
}

func (s *fakeSource) Poll() ([]byte, bool, error) {
	if err := s.stager.pollErr; err != nil {
		return nil, false, err
	}
	return s.data, true, nil
}

func (s *fakeSource) Release() { s.stager.released++ }

// fakeTexture is a caller texture for the fake device.
type fakeTexture struct{ w, h int }

func (t fakeTexture) Width() int                     { return t.w }
func (t fakeTexture) Height() int                    { return t.h }
func (t fakeTexture) Format() gputypes.TextureFormat { return gputypes.TextureFormatRGBA8Unorm }

var noop = render.NodeFunc(func(render.DrawSink) error { return nil })

var unitExtent = render.NewExtent(0, 0, 1, 1)

func mustNew(t *testing.T, d render.Device, opts ...Option) *Rasterizer {
	t.Helper()
	r, err := New(d, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func mustSubmit(t *testing.T, r *Rasterizer, size int) *Future {
	t.Helper()
	f, err := r.Submit(noop, size, unitExtent)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	return f
}

func frames(t *testing.T, r *Rasterizer, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if err := r.Frame(context.Background()); err != nil {
			t.Fatalf("Frame() #%d error = %v", i+1, err)
		}
	}
}
