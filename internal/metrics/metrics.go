// Package metrics holds the Prometheus instruments for the registry and its sync path.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "outpost"

// Metrics groups every instrument. A nil *Metrics is valid and records nothing.
type Metrics struct {
	mergeTotal     *prometheus.CounterVec
	entriesAdded   prometheus.Counter
	discoveryRuns  *prometheus.CounterVec
	storeCorrupt   *prometheus.CounterVec
	storeWriteErrs *prometheus.CounterVec
	registrySize   prometheus.Gauge
	payloadRejects prometheus.Counter
}

// New registers the instruments on reg. Pass a fresh prometheus.NewRegistry() in
// tests to avoid duplicate registration panics.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		mergeTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "merge_total",
			Help:      "Number of merge operations applied to the registry",
		}, []string{"mode"}),

		entriesAdded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entries_added_total",
			Help:      "Number of entries appended to the registry by merges and manual adds",
		}),

		discoveryRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discovery_runs_total",
			Help:      "Discovery adapter runs by outcome",
		}, []string{"adapter", "outcome"}),

		storeCorrupt: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_corrupt_total",
			Help:      "Loads that found unreadable persisted state and returned an empty registry",
		}, []string{"backend"}),

		storeWriteErrs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_write_errors_total",
			Help:      "Saves the store backend refused",
		}, []string{"backend"}),

		registrySize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "registry_entries",
			Help:      "Number of entries in the registry after the last write",
		}),

		payloadRejects: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payload_rejected_total",
			Help:      "Sync payloads rejected as malformed",
		}),
	}
}

func (m *Metrics) Merge(mode string, added int) {
	if m == nil {
		return
	}
	m.mergeTotal.WithLabelValues(mode).Inc()
	m.entriesAdded.Add(float64(added))
}

func (m *Metrics) Added(n int) {
	if m == nil {
		return
	}
	m.entriesAdded.Add(float64(n))
}

func (m *Metrics) Discovery(adapter, outcome string) {
	if m == nil {
		return
	}
	m.discoveryRuns.WithLabelValues(adapter, outcome).Inc()
}

func (m *Metrics) StoreCorrupt(backend string) {
	if m == nil {
		return
	}
	m.storeCorrupt.WithLabelValues(backend).Inc()
}

func (m *Metrics) StoreWriteFailed(backend string) {
	if m == nil {
		return
	}
	m.storeWriteErrs.WithLabelValues(backend).Inc()
}

func (m *Metrics) RegistrySize(n int) {
	if m == nil {
		return
	}
	m.registrySize.Set(float64(n))
}

func (m *Metrics) PayloadRejected() {
	if m == nil {
		return
	}
	m.payloadRejects.Inc()
}
