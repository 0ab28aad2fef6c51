package observability

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ebirdstat"

// Metrics holds the Prometheus counters and histograms for loads and exports.
type Metrics struct {
	RowsRead     prometheus.Counter
	RowsRejected *prometheus.CounterVec // labels: field
	RowsInserted prometheus.Counter

	// Batch processing metrics.
	BatchSize             prometheus.Histogram
	BatchInsertDuration   prometheus.Histogram
	LoadDuration          prometheus.Histogram
	ExportRowsWritten     prometheus.Counter
	ExportPartsWritten    prometheus.Counter
	AnalysisQueryDuration *prometheus.HistogramVec // labels: view

	registry *prometheus.Registry
}

// NewMetrics creates all metrics and registers them with reg.
// A nil reg gets a fresh private registry.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		RowsRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_read_total",
			Help:      "Data rows read from input files.",
		}),
		RowsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_rejected_total",
			Help:      "Rows dropped by the parser, by offending field.",
		}, []string{"field"}),
		RowsInserted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_inserted_total",
			Help:      "Rows committed to the observation store.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Rows per committed batch.",
			Buckets:   []float64{10, 100, 1000, 2500, 5000, 10000, 25000, 50000},
		}),
		BatchInsertDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_insert_duration_seconds",
			Help:      "Duration of one batch transaction.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		LoadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "load_duration_seconds",
			Help:      "Duration of a complete file load.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
		ExportRowsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "export_rows_written_total",
			Help:      "Rows written to export part files.",
		}),
		ExportPartsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "export_parts_written_total",
			Help:      "Export part files completed.",
		}),
		AnalysisQueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_query_duration_seconds",
			Help:      "Duration of one aggregate query by report view.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"view"}),
		registry: reg,
	}

	reg.MustRegister(
		m.RowsRead,
		m.RowsRejected,
		m.RowsInserted,
		m.BatchSize,
		m.BatchInsertDuration,
		m.LoadDuration,
		m.ExportRowsWritten,
		m.ExportPartsWritten,
		m.AnalysisQueryDuration,
	)

	return m
}

// NewMetricsForTesting creates Metrics on a fresh registry.
func NewMetricsForTesting() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}

// Registry returns the registry the metrics are registered with.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes the current metric values in the node_exporter
// textfile collector format.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
