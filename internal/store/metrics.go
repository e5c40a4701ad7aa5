package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the catalog's Prometheus collectors.
type Metrics struct {
	// FilesStored counts committed Store calls.
	FilesStored prometheus.Counter
	// FilesRemoved counts files deleted by RemoveFile.
	FilesRemoved prometheus.Counter
	// IDCache counts group id lookups by outcome: hit, select or insert.
	IDCache *prometheus.CounterVec
	// Queries counts executed queries by kind.
	Queries *prometheus.CounterVec
	// StoreDuration is the latency of Store transactions.
	StoreDuration prometheus.Histogram
}

func newMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		FilesStored: f.NewCounter(prometheus.CounterOpts{
			Name: "bdb_files_stored_total",
			Help: "Total number of files stored",
		}),
		FilesRemoved: f.NewCounter(prometheus.CounterOpts{
			Name: "bdb_files_removed_total",
			Help: "Total number of files removed",
		}),
		IDCache: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bdb_node_id_lookups_total",
				Help: "Group node id lookups by outcome (hit, select, insert)",
			},
			[]string{"outcome"},
		),
		Queries: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bdb_queries_total",
				Help: "Total number of catalog queries",
			},
			[]string{"kind"},
		),
		StoreDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "bdb_store_duration_seconds",
			Help:    "Store transaction latency in seconds",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
