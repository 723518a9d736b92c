// Package metrics tracks search throughput with a process-local
// Prometheus registry. Nothing is served over the network; the final
// values are dumped through the logger when a session ends.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"go.uber.org/zap"

	"github.com/solvanity/pkg/search"
)

// Metrics wraps the collectors for a single search session.
type Metrics struct {
	registry *prometheus.Registry

	keysGenerated prometheus.Counter
	matchesFound  prometheus.Counter
	devicesActive prometheus.Gauge
	keyRate       prometheus.Gauge

	lastGenerated uint64
	lastMatches   uint64
}

// New creates a Metrics with its own registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		keysGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "solvanity",
			Name:      "keys_generated_total",
			Help:      "Total candidate keypairs derived and checked.",
		}),
		matchesFound: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "solvanity",
			Name:      "matches_found_total",
			Help:      "Matching keypairs delivered to the caller.",
		}),
		devicesActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "solvanity",
			Name:      "devices_active",
			Help:      "Compute devices still participating in the search.",
		}),
		keyRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "solvanity",
			Name:      "keys_per_second",
			Help:      "Observed generation rate over the session.",
		}),
	}
	m.registry.MustRegister(m.keysGenerated, m.matchesFound, m.devicesActive, m.keyRate)
	return m
}

// Observe folds a snapshot into the collectors. Counters advance by the
// delta since the previous snapshot.
func (m *Metrics) Observe(snap search.Snapshot) {
	if snap.TotalGenerated > m.lastGenerated {
		m.keysGenerated.Add(float64(snap.TotalGenerated - m.lastGenerated))
		m.lastGenerated = snap.TotalGenerated
	}
	if snap.MatchesFound > m.lastMatches {
		m.matchesFound.Add(float64(snap.MatchesFound - m.lastMatches))
		m.lastMatches = snap.MatchesFound
	}
	m.devicesActive.Set(float64(snap.DevicesActive))
	m.keyRate.Set(snap.Rate())
}

// Log gathers the registry and writes every sample through log.
func (m *Metrics) Log(log *zap.Logger) {
	families, err := m.registry.Gather()
	if err != nil {
		log.Warn("gathering metrics", zap.Error(err))
		return
	}
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			log.Info("metric",
				zap.String("name", mf.GetName()),
				zap.Float64("value", sampleValue(mf.GetType(), metric)),
			)
		}
	}
}

func sampleValue(t dto.MetricType, m *dto.Metric) float64 {
	switch t {
	case dto.MetricType_COUNTER:
		return m.GetCounter().GetValue()
	case dto.MetricType_GAUGE:
		return m.GetGauge().GetValue()
	default:
		return 0
	}
}
