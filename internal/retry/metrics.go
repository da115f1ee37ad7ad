package retry

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics accumulates process-wide call accounting. Prometheus counters and
// a histogram back the exported `/metrics` surface; the atomic fields back a
// cheap in-process Snapshot for callers (e.g. an operator debug endpoint)
// that want the numbers without scraping Prometheus.
type Metrics struct {
	calls          *prometheus.CounterVec
	classifiedHits *prometheus.CounterVec
	duration       *prometheus.HistogramVec

	callCount   atomic.Int64
	totalNanos  atomic.Int64
	lastCallUTC atomic.Int64 // unix nanos
}

// DefaultMetrics is the process-wide Retry Executor metrics sink, registered
// once at package init time like the rest of this service's promauto
// counters.
var DefaultMetrics = NewMetrics()

// NewMetrics builds a fresh metrics sink with its own Prometheus
// registrations. Production code uses DefaultMetrics; tests construct their
// own to avoid duplicate-registration panics.
func NewMetrics() *Metrics {
	return &Metrics{
		calls: registerCounterVec(prometheus.CounterOpts{
			Name: "gcalsync_retry_calls_total",
			Help: "Total number of upstream calls attempted through the retry executor.",
		}, []string{"operation"}),
		classifiedHits: registerCounterVec(prometheus.CounterOpts{
			Name: "gcalsync_retry_classified_errors_total",
			Help: "Total number of upstream call failures by classification.",
		}, []string{"kind"}),
		duration: registerHistogramVec(prometheus.HistogramOpts{
			Name:    "gcalsync_retry_call_duration_seconds",
			Help:    "Duration of individual upstream call attempts.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}
}

// registerCounterVec registers a CounterVec with the default registerer,
// reusing the already-registered collector if one with the same descriptor
// exists. This lets NewMetrics be called more than once (e.g. by tests
// constructing their own Metrics instances) without panicking, while still
// exporting through the same process-wide registry used by DefaultMetrics.
func registerCounterVec(opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	cv := prometheus.NewCounterVec(opts, labels)
	if err := prometheus.DefaultRegisterer.Register(cv); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector.(*prometheus.CounterVec)
		}
		panic(err)
	}
	return cv
}

func registerHistogramVec(opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	hv := prometheus.NewHistogramVec(opts, labels)
	if err := prometheus.DefaultRegisterer.Register(hv); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector.(*prometheus.HistogramVec)
		}
		panic(err)
	}
	return hv
}

func (m *Metrics) observeCall(label string, elapsed time.Duration) {
	m.calls.WithLabelValues(label).Inc()
	m.duration.WithLabelValues(label).Observe(elapsed.Seconds())

	m.callCount.Add(1)
	m.totalNanos.Add(elapsed.Nanoseconds())
	m.lastCallUTC.Store(time.Now().UnixNano())
}

func (m *Metrics) observeError(kind Kind) {
	m.classifiedHits.WithLabelValues(kind.String()).Inc()
}

// Snapshot is a point-in-time read of the atomic counters. Reset clears it.
type Snapshot struct {
	CallCount          int64
	AverageResponse    time.Duration
	LastCall           time.Time
}

// Snapshot returns the current accumulated call count, an approximate
// rolling average response time, and the instant of the last recorded call.
func (m *Metrics) Snapshot() Snapshot {
	count := m.callCount.Load()
	var avg time.Duration
	if count > 0 {
		avg = time.Duration(m.totalNanos.Load() / count)
	}
	var last time.Time
	if nanos := m.lastCallUTC.Load(); nanos != 0 {
		last = time.Unix(0, nanos)
	}
	return Snapshot{CallCount: count, AverageResponse: avg, LastCall: last}
}

// Reset clears the in-process atomic counters. It does not reset the
// Prometheus series, matching the design note that metrics reset is an
// explicit operation distinct from process start — an operator calling this
// wants a fresh rolling average, not to falsify the exported totals.
func (m *Metrics) Reset() {
	m.callCount.Store(0)
	m.totalNanos.Store(0)
	m.lastCallUTC.Store(0)
}
