package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder tracks the forecast cascade and the popular batch.
type Recorder struct {
	attempts  *prometheus.CounterVec
	servedBy  *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	exhausted prometheus.Counter
	degraded  *prometheus.CounterVec
	sinkErrs  *prometheus.CounterVec
}

var (
	defaultRecorder *Recorder
	defaultOnce     sync.Once
)

// Default returns the process-wide recorder registered on the default registry.
func Default() *Recorder {
	defaultOnce.Do(func() {
		defaultRecorder = New(prometheus.DefaultRegisterer)
	})
	return defaultRecorder
}

// New registers the recorder's collectors on reg. Tests pass a fresh prometheus.NewRegistry().
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		attempts: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cryptopredict_source_attempts_total",
				Help: "Forecast source attempts by source and result",
			},
			[]string{"source", "result"},
		),
		servedBy: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cryptopredict_forecasts_served_total",
				Help: "Forecasts served, by the source that answered",
			},
			[]string{"source"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cryptopredict_source_duration_seconds",
				Help:    "Duration of a single source attempt",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
			},
			[]string{"source"},
		),
		exhausted: f.NewCounter(
			prometheus.CounterOpts{
				Name: "cryptopredict_cascade_exhausted_total",
				Help: "Cascades in which every source failed",
			},
		),
		degraded: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cryptopredict_popular_degraded_total",
				Help: "Popular batch entries served from reference data",
			},
			[]string{"symbol"},
		),
		sinkErrs: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cryptopredict_sink_errors_total",
				Help: "Forecast event sink failures",
			},
			[]string{"sink"},
		),
	}
}

// RecordAttempt records one source attempt. result is "ok" or a failure kind.
func (r *Recorder) RecordAttempt(source, result string, d time.Duration) {
	r.attempts.WithLabelValues(source, result).Inc()
	r.latency.WithLabelValues(source).Observe(d.Seconds())
}

func (r *Recorder) RecordServed(source string) {
	r.servedBy.WithLabelValues(source).Inc()
}

func (r *Recorder) RecordExhausted() {
	r.exhausted.Inc()
}

func (r *Recorder) RecordDegraded(symbol string) {
	r.degraded.WithLabelValues(symbol).Inc()
}

func (r *Recorder) RecordSinkError(sink string) {
	r.sinkErrs.WithLabelValues(sink).Inc()
}
