package transmission

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records per-method call counts, latencies and session renewals.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	renewals prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg when it is
// not nil.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "transmission",
			Subsystem: "rpc",
			Name:      "calls_total",
			Help:      "RPC calls by method and outcome code.",
		}, []string{"method", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "transmission",
			Subsystem: "rpc",
			Name:      "call_duration_seconds",
			Help:      "RPC call latency including session negotiation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		renewals: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "transmission",
			Subsystem: "rpc",
			Name:      "session_renewals_total",
			Help:      "Session ids received from 409 responses.",
		}),
	}

	if reg != nil {
		for _, collector := range []prometheus.Collector{m.calls, m.duration, m.renewals} {
			if err := reg.Register(collector); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func (m *Metrics) observe(method string, code ErrorCode, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := string(code)
	if code == ErrorCodeNone {
		outcome = "ok"
	}
	m.calls.WithLabelValues(method, outcome).Inc()
	m.duration.WithLabelValues(method).Observe(elapsed.Seconds())
}

func (m *Metrics) sessionRenewed() {
	if m == nil {
		return
	}
	m.renewals.Inc()
}
