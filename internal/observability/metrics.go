package observability

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the Prometheus collectors the runtime registers.
type Metrics struct {
	ActiveTransfers   prometheus.Gauge
	ChunksProcessed   prometheus.Counter
	BytesTransferred  prometheus.Counter
	ChunkAuthFailures prometheus.Counter
}

// NewMetrics constructs and registers the collectors against reg. Pass
// prometheus.NewRegistry() in tests to avoid colliding with the default
// global registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ActiveTransfers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "archdrop",
			Name:      "active_transfers",
			Help:      "Number of files currently being transferred.",
		}),
		ChunksProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "archdrop",
			Name:      "chunks_processed_total",
			Help:      "Total chunks encrypted or decrypted.",
		}),
		BytesTransferred: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "archdrop",
			Name:      "bytes_transferred_total",
			Help:      "Total plaintext bytes moved across all chunks.",
		}),
		ChunkAuthFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "archdrop",
			Name:      "chunk_auth_failures_total",
			Help:      "Total chunks rejected for failing AEAD authentication.",
		}),
	}
	reg.MustRegister(m.ActiveTransfers, m.ChunksProcessed, m.BytesTransferred, m.ChunkAuthFailures)
	return m
}
