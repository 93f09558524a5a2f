package profiler

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/coral-mesh/coral-asprof/internal/constants"
)

const (
	dumpResultOK            = "ok"
	dumpResultError         = "error"
	dumpResultRestartFailed = "restart_failed"
)

// Metrics tracks session activity. A nil *Metrics records nothing.
type Metrics struct {
	starts        prometheus.Counter
	dumps         *prometheus.CounterVec
	dumpDuration  prometheus.Histogram
	snapshotBytes prometheus.Histogram
	stored        *prometheus.CounterVec
}

// NewMetrics creates session metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		starts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: constants.MetricsNamespace,
			Name:      "session_starts_total",
			Help:      "Number of times the sampling engine was started",
		}),
		dumps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: constants.MetricsNamespace,
			Name:      "session_dumps_total",
			Help:      "Number of snapshot dumps by result",
		}, []string{"result"}),
		dumpDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: constants.MetricsNamespace,
			Name:      "dump_duration_seconds",
			Help:      "Time spent dumping and restarting the engine",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 16), // 100μs to ~3s
		}),
		snapshotBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: constants.MetricsNamespace,
			Name:      "snapshot_bytes",
			Help:      "Size of collapsed stack output per snapshot",
			Buckets:   prometheus.ExponentialBuckets(256, 4, 10),
		}),
		stored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: constants.MetricsNamespace,
			Name:      "snapshots_stored_total",
			Help:      "Number of snapshots handed to the sink by result",
		}, []string{"result"}),
	}

	for _, c := range []prometheus.Collector{m.starts, m.dumps, m.dumpDuration, m.snapshotBytes, m.stored} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (m *Metrics) observeStart() {
	if m == nil {
		return
	}
	m.starts.Inc()
}

func (m *Metrics) observeDump(result string, d time.Duration, size int) {
	if m == nil {
		return
	}
	m.dumps.WithLabelValues(result).Inc()
	m.dumpDuration.Observe(d.Seconds())
	if result != dumpResultError {
		m.snapshotBytes.Observe(float64(size))
	}
}

func (m *Metrics) observeStore(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.stored.WithLabelValues("error").Inc()
		return
	}
	m.stored.WithLabelValues("ok").Inc()
}
