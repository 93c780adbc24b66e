package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Ingest metrics
	RecordsLoaded  prometheus.Counter
	RowsDropped    prometheus.Counter
	DatasetsStored prometheus.Counter
	LoadErrors     *prometheus.CounterVec

	// Pipeline metrics
	PipelineRuns     *prometheus.CounterVec
	PipelineDuration prometheus.Histogram
	GraphNodes       prometheus.Histogram
	GraphEdges       prometheus.Histogram

	// Cache metrics
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter
	CacheErrors *prometheus.CounterVec

	// Graph database metrics
	GraphWrites       *prometheus.CounterVec
	GraphSyncDuration prometheus.Histogram
}

// New creates and registers all Prometheus metrics with the default registerer.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer creates all metrics and registers them with reg.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		// Ingest metrics
		RecordsLoaded: factory.NewCounter(prometheus.CounterOpts{
			Name: "rewardgraph_records_loaded_total",
			Help: "Total number of transaction records parsed from uploads",
		}),
		RowsDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "rewardgraph_rows_dropped_total",
			Help: "Total number of rows dropped because of malformed values",
		}),
		DatasetsStored: factory.NewCounter(prometheus.CounterOpts{
			Name: "rewardgraph_datasets_stored_total",
			Help: "Total number of datasets uploaded",
		}),
		LoadErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rewardgraph_load_errors_total",
				Help: "Total number of rejected uploads by reason",
			},
			[]string{"reason"},
		),

		// Pipeline metrics
		PipelineRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rewardgraph_pipeline_runs_total",
				Help: "Total number of graph pipeline runs by status",
			},
			[]string{"status"},
		),
		PipelineDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "rewardgraph_pipeline_duration_seconds",
			Help:    "Duration of filter, aggregate and assemble runs",
			Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		}),
		GraphNodes: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "rewardgraph_graph_nodes",
			Help:    "Number of nodes per assembled graph",
			Buckets: []float64{1, 5, 10, 50, 100, 500, 1000, 5000},
		}),
		GraphEdges: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "rewardgraph_graph_edges",
			Help:    "Number of edges per assembled graph",
			Buckets: []float64{1, 5, 10, 50, 100, 500, 1000, 5000},
		}),

		// Cache metrics
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "rewardgraph_record_cache_hits_total",
			Help: "Total record cache hits",
		}),
		CacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "rewardgraph_record_cache_misses_total",
			Help: "Total record cache misses",
		}),
		CacheErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rewardgraph_record_cache_errors_total",
				Help: "Total record cache errors",
			},
			[]string{"operation"},
		),

		// Graph database metrics
		GraphWrites: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rewardgraph_graph_writes_total",
				Help: "Total graph database upserts by outcome",
			},
			[]string{"outcome"},
		),
		GraphSyncDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "rewardgraph_graph_sync_duration_seconds",
			Help:    "Duration of dataset syncs to the graph database",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
