package tilerast

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the rasterizer's Prometheus collectors. A nil *Metrics
// records nothing.
type Metrics struct {
	submitted  *prometheus.CounterVec
	rejected   *prometheus.CounterVec
	admitted   prometheus.Counter
	resolved   *prometheus.CounterVec
	frames     prometheus.Counter
	queueDepth *prometheus.GaugeVec
	latency    prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg creates unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		submitted: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tilerast_jobs_submitted_total",
				Help: "Total number of jobs accepted into the pending queue",
			},
			[]string{"mode"}, // texture, readback
		),
		rejected: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tilerast_jobs_rejected_total",
				Help: "Total number of jobs refused or dropped before admission",
			},
			[]string{"reason"}, // queue_full, shed, closed, invalid
		),
		admitted: f.NewCounter(
			prometheus.CounterOpts{
				Name: "tilerast_jobs_admitted_total",
				Help: "Total number of jobs bound to the render target",
			},
		),
		resolved: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tilerast_futures_resolved_total",
				Help: "Total number of readback futures resolved",
			},
			[]string{"result"}, // ok, error
		),
		frames: f.NewCounter(
			prometheus.CounterOpts{
				Name: "tilerast_frames_total",
				Help: "Total number of pipeline updates run",
			},
		),
		queueDepth: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tilerast_queue_depth",
				Help: "Current number of jobs in each queue",
			},
			[]string{"queue"}, // pending, readback, finished
		),
		// Buckets: 1ms to ~16s.
		latency: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tilerast_readback_latency_seconds",
				Help:    "Time from submission to future resolution",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
			},
		),
	}
}

func (m *Metrics) jobSubmitted(mode Mode) {
	if m == nil {
		return
	}
	m.submitted.WithLabelValues(mode.String()).Inc()
}

func (m *Metrics) jobRejected(reason string) {
	if m == nil {
		return
	}
	m.rejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) jobAdmitted() {
	if m == nil {
		return
	}
	m.admitted.Inc()
}

func (m *Metrics) futureResolved(err error, since time.Time) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.resolved.WithLabelValues(result).Inc()
	if !since.IsZero() {
		m.latency.Observe(time.Since(since).Seconds())
	}
}

func (m *Metrics) frame(pending, readback, finished int) {
	if m == nil {
		return
	}
	m.frames.Inc()
	m.queueDepth.WithLabelValues("pending").Set(float64(pending))
	m.queueDepth.WithLabelValues("readback").Set(float64(readback))
	m.queueDepth.WithLabelValues("finished").Set(float64(finished))
}
