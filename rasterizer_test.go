package tilerast

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/gogpu/tilerast/backend/software"
	"github.com/gogpu/tilerast/render"
)

func TestNewNilDevice(t *testing.T) {
	if _, err := New(nil); !errors.Is(err, ErrNilDevice) {
		t.Errorf("New(nil) error = %v, want ErrNilDevice", err)
	}
}

func TestSubmitValidation(t *testing.T) {
	d := newFakeDevice()
	d.caps.MaxTextureSize = 128
	r := mustNew(t, d)

	tests := []struct {
		name   string
		node   render.Node
		size   int
		extent render.Extent
		want   error
	}{
		{"nil node", nil, 64, unitExtent, ErrNilNode},
		{"zero size", noop, 0, unitExtent, ErrInvalidSize},
		{"negative size", noop, -4, unitExtent, ErrInvalidSize},
		{"too large", noop, 256, unitExtent, ErrTooLarge},
		{"overflowing size", noop, math.MaxInt, unitExtent, ErrTooLarge},
		{"zero width", noop, 64, render.NewExtent(1, 0, 1, 1), ErrDegenerateExtent},
		{"inverted", noop, 64, render.NewExtent(1, 1, 0, 0), ErrDegenerateExtent},
		{"nan", noop, 64, render.NewExtent(0, math.NaN(), 1, 1), ErrDegenerateExtent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := r.Submit(tt.node, tt.size, tt.extent)
			if !errors.Is(err, tt.want) {
				t.Errorf("Submit() error = %v, want %v", err, tt.want)
			}
			if f != nil {
				t.Error("Submit() returned a future for a rejected job")
			}
		})
	}

	if got := r.Stats().Pending; got != 0 {
		t.Errorf("Pending = %d after rejected submissions, want 0", got)
	}
	if got := r.Stats().Rejected; got != uint64(len(tests)) {
		t.Errorf("Rejected = %d, want %d", got, len(tests))
	}
}

func TestSubmitSizeCeiling(t *testing.T) {
	tests := []struct {
		name   string
		device render.Device
		size   int
		want   error
	}{
		{"unlimited device above ceiling", newFakeDevice(), MaxTargetSize + 1, ErrTooLarge},
		{"unlimited device huge", newFakeDevice(), 1 << 30, ErrTooLarge},
		{"software default", software.NewDevice(), software.DefaultMaxTextureSize + 1, ErrTooLarge},
		{"software huge", software.NewDevice(), math.MaxInt, ErrTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := mustNew(t, tt.device)
			f, err := r.Submit(noop, tt.size, unitExtent)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Submit(%d) error = %v, want %v", tt.size, err, tt.want)
			}
			if f != nil {
				t.Errorf("Submit(%d) returned a future for a rejected job", tt.size)
			}
		})
	}
}

func TestSubmitTextureValidation(t *testing.T) {
	d := newFakeDevice()
	d.caps.MaxTextureSize = 128
	r := mustNew(t, d)

	tests := []struct {
		name string
		node render.Node
		tex  render.Texture
		want error
	}{
		{"nil texture", noop, nil, ErrNilTexture},
		{"nil node", nil, fakeTexture{8, 8}, ErrNilNode},
		{"empty texture", noop, fakeTexture{0, 8}, ErrInvalidSize},
		{"too large", noop, fakeTexture{64, 512}, ErrTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := r.SubmitTexture(tt.node, tt.tex, unitExtent); !errors.Is(err, tt.want) {
				t.Errorf("SubmitTexture() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestQueueLimitReject(t *testing.T) {
	r := mustNew(t, newFakeDevice(), WithQueueLimit(2))

	mustSubmit(t, r, 8)
	mustSubmit(t, r, 8)
	if _, err := r.Submit(noop, 8, unitExtent); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("third Submit() error = %v, want ErrQueueFull", err)
	}
	if err := r.SubmitTexture(noop, fakeTexture{8, 8}, unitExtent); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("SubmitTexture() error = %v, want ErrQueueFull", err)
	}

	frames(t, r, 1)
	if _, err := r.Submit(noop, 8, unitExtent); err != nil {
		t.Errorf("Submit() after admission error = %v", err)
	}
	s := r.Stats()
	if s.Rejected != 2 || s.Submitted != 3 {
		t.Errorf("Rejected/Submitted = %d/%d, want 2/3", s.Rejected, s.Submitted)
	}
}

func TestQueueLimitShedOldest(t *testing.T) {
	r := mustNew(t, newFakeDevice(), WithQueueLimit(2), WithOverflowPolicy(OverflowShedOldest))

	f1 := mustSubmit(t, r, 8)
	f2 := mustSubmit(t, r, 8)
	f3 := mustSubmit(t, r, 8)

	if _, err := f1.Result(); !errors.Is(err, ErrShed) {
		t.Errorf("oldest future error = %v, want ErrShed", err)
	}
	if f2.Ready() || f3.Ready() {
		t.Error("newer futures resolved by shedding")
	}
	if got := r.Stats().Shed; got != 1 {
		t.Errorf("Shed = %d, want 1", got)
	}

	frames(t, r, 3)
	for i, f := range []*Future{f2, f3} {
		if _, err := f.Result(); err != nil {
			t.Errorf("future %d error = %v", i+2, err)
		}
	}
}

func TestUnboundedQueue(t *testing.T) {
	r := mustNew(t, newFakeDevice(), WithQueueLimit(0))
	for i := 0; i < DefaultQueueLimit+10; i++ {
		if err := r.SubmitTexture(noop, fakeTexture{4, 4}, unitExtent); err != nil {
			t.Fatalf("SubmitTexture() #%d error = %v", i+1, err)
		}
	}
	if got := r.Stats().Pending; got != DefaultQueueLimit+10 {
		t.Errorf("Pending = %d, want %d", got, DefaultQueueLimit+10)
	}
}

func TestClose(t *testing.T) {
	dev := software.NewDevice(software.WithStagingLatency(5))
	r := mustNew(t, dev)

	futures := []*Future{mustSubmit(t, r, 16), mustSubmit(t, r, 16), mustSubmit(t, r, 16)}
	frames(t, r, 1) // first job staged, in flight

	if err := r.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	for i, f := range futures {
		if _, err := f.Result(); !errors.Is(err, ErrClosed) {
			t.Errorf("future %d error = %v, want ErrClosed", i+1, err)
		}
	}
	if _, err := r.Submit(noop, 16, unitExtent); !errors.Is(err, ErrClosed) {
		t.Errorf("Submit() after Close error = %v, want ErrClosed", err)
	}
	if err := r.SubmitTexture(noop, software.NewTexture(4, 4), unitExtent); !errors.Is(err, ErrClosed) {
		t.Errorf("SubmitTexture() after Close error = %v, want ErrClosed", err)
	}

	frames(t, r, 1)
	if got := dev.Attachment().Kind(); got != render.AttachmentNone {
		t.Errorf("attachment after Close and one frame = %v, want None", got)
	}
	s := r.Stats()
	if !s.Closed || s.Pending != 0 || s.Finished != 0 || s.Attached {
		t.Errorf("Stats() = %+v, want closed and empty", s)
	}
	if err := r.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestCloseConcurrentWithFrames(t *testing.T) {
	r := mustNew(t, software.NewDevice(software.WithStagingLatency(2)))
	var futures []*Future
	for i := 0; i < 20; i++ {
		futures = append(futures, mustSubmit(t, r, 8))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ctx.Err() == nil {
			if err := r.Frame(ctx); err != nil {
				t.Errorf("Frame() error = %v", err)
				return
			}
		}
	}()

	time.Sleep(5 * time.Millisecond)
	if err := r.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	wctx, wcancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer wcancel()
	for i, f := range futures {
		if _, err := f.Wait(wctx); err != nil && !errors.Is(err, ErrClosed) {
			t.Errorf("future %d error = %v, want nil or ErrClosed", i+1, err)
		}
	}
	cancel()
	<-done
}

func TestConcurrentSubmit(t *testing.T) {
	r := mustNew(t, newFakeDevice(), WithQueueLimit(0))

	const producers, perProducer = 8, 25
	var wg sync.WaitGroup
	futures := make(chan *Future, producers*perProducer)
	for range producers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perProducer {
				f, err := r.Submit(noop, 4, unitExtent)
				if err != nil {
					t.Errorf("Submit() error = %v", err)
					return
				}
				futures <- f
			}
		}()
	}
	wg.Wait()
	close(futures)

	frames(t, r, producers*perProducer+1)

	count := 0
	for f := range futures {
		if _, err := f.Result(); err != nil {
			t.Errorf("future %d error = %v", f.ID(), err)
		}
		count++
	}
	if count != producers*perProducer {
		t.Errorf("futures = %d, want %d", count, producers*perProducer)
	}
}

func TestFrameAffinity(t *testing.T) {
	d := newFakeDevice()
	r := mustNew(t, d)
	ctx := context.Background()

	owner := render.NewOwnerID()
	if err := r.Update(ctx, &render.DrawContext{Frame: 1, Owner: owner}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	foreign := &render.DrawContext{Frame: 2, Owner: render.NewOwnerID()}
	for name, fn := range map[string]func(context.Context, *render.DrawContext) error{
		"Update":   r.Update,
		"PreDraw":  r.PreDraw,
		"Draw":     r.Draw,
		"PostDraw": r.PostDraw,
	} {
		if err := fn(ctx, foreign); !errors.Is(err, ErrForeignOwner) {
			t.Errorf("%s() with a foreign owner error = %v, want ErrForeignOwner", name, err)
		}
	}
	if err := r.Update(ctx, nil); !errors.Is(err, ErrForeignOwner) {
		t.Errorf("Update(nil) error = %v, want ErrForeignOwner", err)
	}
	if err := r.Update(ctx, &render.DrawContext{Frame: 3}); err != nil {
		t.Errorf("Update() with zero owner error = %v", err)
	}
	if err := r.Update(ctx, &render.DrawContext{Frame: 4, Owner: owner}); err != nil {
		t.Errorf("Update() with the first owner error = %v", err)
	}
}

func TestConcurrentFrameCall(t *testing.T) {
	r := mustNew(t, software.NewDevice())

	var reentrant error
	node := render.NodeFunc(func(render.DrawSink) error {
		reentrant = r.Update(context.Background(), &render.DrawContext{Owner: r.owner})
		return nil
	})
	if _, err := r.Submit(node, 8, unitExtent); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	frames(t, r, 1)

	if !errors.Is(reentrant, ErrConcurrentFrame) {
		t.Errorf("re-entrant Update() error = %v, want ErrConcurrentFrame", reentrant)
	}
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	r := mustNew(t, newFakeDevice(), WithMetrics(m), WithQueueLimit(1))

	mustSubmit(t, r, 8)
	if _, err := r.Submit(noop, 8, unitExtent); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("Submit() error = %v, want ErrQueueFull", err)
	}
	if _, err := r.Submit(nil, 8, unitExtent); !errors.Is(err, ErrNilNode) {
		t.Fatalf("Submit() error = %v, want ErrNilNode", err)
	}
	frames(t, r, 2)

	tests := []struct {
		name string
		c    prometheus.Collector
		want float64
	}{
		{"submitted readback", m.submitted.WithLabelValues("readback"), 1},
		{"rejected queue_full", m.rejected.WithLabelValues("queue_full"), 1},
		{"rejected invalid", m.rejected.WithLabelValues("invalid"), 1},
		{"admitted", m.admitted, 1},
		{"resolved ok", m.resolved.WithLabelValues("ok"), 1},
		{"frames", m.frames, 2},
		{"pending depth", m.queueDepth.WithLabelValues("pending"), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := testutil.ToFloat64(tt.c); got != tt.want {
				t.Errorf("%s = %g, want %g", tt.name, got, tt.want)
			}
		})
	}

	if n := testutil.CollectAndCount(m.latency); n != 1 {
		t.Errorf("latency histogram collected %d metrics, want 1", n)
	}
	if _, err := reg.Gather(); err != nil {
		t.Errorf("Gather() error = %v", err)
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.jobSubmitted(ModeReadback)
	m.jobRejected("invalid")
	m.jobAdmitted()
	m.futureResolved(nil, time.Now())
	m.frame(1, 2, 3)
}

func TestStringers(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{ModeTexture.String(), "texture"},
		{ModeReadback.String(), "readback"},
		{StateSubmitted.String(), "Submitted"},
		{StateAwaitingReadback.String(), "AwaitingReadback"},
		{StateResolved.String(), "Resolved"},
		{OverflowReject.String(), "reject"},
		{OverflowShedOldest.String(), "shed-oldest"},
		{JobState(42).String(), "JobState(42)"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("String() = %q, want %q", tt.got, tt.want)
		}
	}
}
