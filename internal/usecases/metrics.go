package usecases

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	domainerrors "wallet-ledger.backend/internal/domain/errors"
)

// Metrics holds the ledger's prometheus collectors. A nil *Metrics records nothing.
type Metrics struct {
	outcomes       *prometheus.CounterVec
	failures       *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	driftDetected  *prometheus.CounterVec
	rebuildResults *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ledger",
			Name:      "operation_outcomes_total",
			Help:      "Executor outcomes by operation and kind.",
		}, []string{"operation", "outcome"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ledger",
			Name:      "operation_failures_total",
			Help:      "Executor failures by operation and error category.",
		}, []string{"operation", "category"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ledger",
			Name:      "operation_duration_seconds",
			Help:      "Executor latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		driftDetected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ledger",
			Name:      "balance_drift_detected_total",
			Help:      "Wallet projections found to differ from their ledger.",
		}, []string{"source"}),
		rebuildResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ledger",
			Name:      "rebuild_wallets_total",
			Help:      "Wallets visited by batch rebuilds by result.",
		}, []string{"result"}),
	}
	if reg != nil {
		reg.MustRegister(m.outcomes, m.failures, m.duration, m.driftDetected, m.rebuildResults)
	}
	return m
}

func (m *Metrics) observe(operation, outcome string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(operation).Observe(elapsed.Seconds())
	if err != nil {
		m.failures.WithLabelValues(operation, string(domainerrors.CategoryOf(err))).Inc()
		return
	}
	m.outcomes.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) drift(source string) {
	if m == nil {
		return
	}
	m.driftDetected.WithLabelValues(source).Inc()
}

func (m *Metrics) rebuildResult(result string) {
	if m == nil {
		return
	}
	m.rebuildResults.WithLabelValues(result).Inc()
}
