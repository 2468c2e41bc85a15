package medialib

import (
	"errors"
	"time"

	"github.com/henrlaas/medialib/data"
	"github.com/prometheus/client_golang/prometheus"
)

// libraryMetrics holds Prometheus collectors for library operations.
// A nil *libraryMetrics records nothing.
type libraryMetrics struct {
	ops       *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	bytes     *prometheus.CounterVec
	conflicts prometheus.Counter
	sweeps    *prometheus.CounterVec
}

func newLibraryMetrics(reg prometheus.Registerer) *libraryMetrics {
	if reg == nil {
		return nil
	}

	ops := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "medialib",
		Name:      "ops_total",
		Help:      "Total number of library operations by result.",
	}, []string{"op", "result"}) // result = "ok" | "partial" | "error"
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "medialib",
		Name:      "op_duration_seconds",
		Help:      "Histogram of library operation durations in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"op"})
	bytes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "medialib",
		Name:      "uploaded_bytes_total",
		Help:      "Total bytes written by uploads.",
	}, []string{"bucket"})
	conflicts := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "medialib",
		Name:      "conflicts_total",
		Help:      "Number of mutations rejected by the prefix guard.",
	})
	sweeps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "medialib",
		Subsystem: "sweep",
		Name:      "findings_total",
		Help:      "Inconsistencies found by reconciliation sweeps.",
	}, []string{"bucket", "kind"})

	_ = reg.Register(ops)
	_ = reg.Register(latency)
	_ = reg.Register(bytes)
	_ = reg.Register(conflicts)
	_ = reg.Register(sweeps)

	return &libraryMetrics{
		ops:       ops,
		latency:   latency,
		bytes:     bytes,
		conflicts: conflicts,
		sweeps:    sweeps,
	}
}

// observe records one operation. start is the time the operation began.
func (m *libraryMetrics) observe(op string, err error, start time.Time) {
	if m == nil {
		return
	}

	result := "ok"
	switch {
	case errors.Is(err, data.ErrPartialFailure):
		result = "partial"
	case err != nil:
		result = "error"
	}

	if errors.Is(err, data.ErrConflictingOperation) {
		m.conflicts.Inc()
	}

	m.ops.WithLabelValues(op, result).Inc()
	m.latency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (m *libraryMetrics) uploaded(bucket data.BucketContext, size int64) {
	if m == nil || size <= 0 {
		return
	}
	m.bytes.WithLabelValues(bucket.String()).Add(float64(size))
}

func (m *libraryMetrics) swept(bucket data.BucketContext, kind data.InconsistencyKind, count int) {
	if m == nil || count == 0 {
		return
	}
	m.sweeps.WithLabelValues(bucket.String(), string(kind)).Add(float64(count))
}
