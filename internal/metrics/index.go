package metrics

import "github.com/prometheus/client_golang/prometheus"

// Similarity index and ingestion Prometheus metrics.
var (
	IndexEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "docdex",
			Name:      "index_entries",
			Help:      "Number of entries currently in the similarity index",
		},
	)

	IndexSearchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "docdex",
			Name:      "index_search_duration_seconds",
			Help:      "Brute-force index scan duration in seconds",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
	)

	IngestFilesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docdex",
			Name:      "ingest_files_total",
			Help:      "Total files submitted for ingestion",
		},
		[]string{"status"}, // "ok" / "error"
	)

	IngestChunksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "docdex",
			Name:      "ingest_chunks_total",
			Help:      "Total chunks embedded and inserted into the index",
		},
	)
)

var indexMetricsRegistered bool

// RegisterIndexMetrics registers Prometheus index metrics. Must be called once from main.
func RegisterIndexMetrics() {
	if indexMetricsRegistered {
		return
	}
	prometheus.MustRegister(IndexEntries)
	prometheus.MustRegister(IndexSearchDuration)
	prometheus.MustRegister(IngestFilesTotal)
	prometheus.MustRegister(IngestChunksTotal)
	indexMetricsRegistered = true
}
