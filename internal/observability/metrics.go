package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains the Prometheus metrics for conversion runs, graph
// queries, and the HTTP API. All collectors are registered via promauto
// with the default registry. A nil *Metrics records nothing.
type Metrics struct {
	// ConversionsTotal counts conversion runs, labeled by status (ok, failed).
	ConversionsTotal *prometheus.CounterVec

	// ConversionDuration observes conversion run duration in seconds.
	ConversionDuration prometheus.Histogram

	// RowsRead counts spreadsheet rows read.
	RowsRead prometheus.Counter

	// RowsExcluded counts rows rejected for lacking a title.
	RowsExcluded prometheus.Counter

	// PapersConverted counts papers mapped into the graph.
	PapersConverted prometheus.Counter

	// TriplesEmitted counts triples produced by the mapper, duplicates included.
	TriplesEmitted prometheus.Counter

	// GraphTriples reports the size of the graph currently served.
	GraphTriples prometheus.Gauge

	// GraphLoads counts graph loads, labeled by source (file, postgres).
	GraphLoads *prometheus.CounterVec

	// QueriesTotal counts query-layer operations, labeled by operation and status.
	QueriesTotal *prometheus.CounterVec

	// QueryDuration observes query-layer latency in seconds, labeled by operation.
	QueryDuration *prometheus.HistogramVec

	// QueryRows observes result sizes, labeled by operation.
	QueryRows *prometheus.HistogramVec

	// HTTPRequestsTotal counts HTTP requests, labeled by method, route, and status code.
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPRequestDuration observes HTTP latency in seconds, labeled by method and route.
	HTTPRequestDuration *prometheus.HistogramVec

	// RateLimited counts requests rejected by the rate limiter, labeled by route.
	RateLimited *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		// Conversion
		ConversionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversions_total",
			Help:      "Total number of spreadsheet conversion runs by status",
		}, []string{"status"}),
		ConversionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "conversion_duration_seconds",
			Help:      "Duration of conversion runs in seconds",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}),
		RowsRead: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_read_total",
			Help:      "Total number of spreadsheet rows read",
		}),
		RowsExcluded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_excluded_total",
			Help:      "Total number of rows excluded for lacking a title",
		}),
		PapersConverted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "papers_converted_total",
			Help:      "Total number of papers mapped into the graph",
		}),
		TriplesEmitted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "triples_emitted_total",
			Help:      "Total number of triples emitted by the mapper",
		}),

		// Graph
		GraphTriples: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "graph_triples",
			Help:      "Number of distinct triples in the served graph",
		}),
		GraphLoads: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "graph_loads_total",
			Help:      "Total number of graph loads by source",
		}, []string{"source"}),

		// Queries
		QueriesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Total number of graph queries by operation and status",
		}, []string{"operation", "status"}),
		QueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      "Duration of graph queries in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"operation"}),
		QueryRows: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_rows",
			Help:      "Number of rows returned per graph query",
			Buckets:   []float64{0, 1, 5, 10, 20, 50, 100, 500, 1000},
		}, []string{"operation"}),

		// HTTP
		HTTPRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "code"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		RateLimited: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Total number of requests rejected by the rate limiter",
		}, []string{"route"}),
	}
}

// RecordConversion records a finished conversion run.
func (m *Metrics) RecordConversion(status string, rows, excluded, papers, triples int, durationSeconds float64) {
	if m == nil {
		return
	}
	m.ConversionsTotal.WithLabelValues(status).Inc()
	m.ConversionDuration.Observe(durationSeconds)
	m.RowsRead.Add(float64(rows))
	m.RowsExcluded.Add(float64(excluded))
	m.PapersConverted.Add(float64(papers))
	m.TriplesEmitted.Add(float64(triples))
}

// RecordGraphLoad records that a graph of the given size was loaded from source.
func (m *Metrics) RecordGraphLoad(source string, triples int) {
	if m == nil {
		return
	}
	m.GraphLoads.WithLabelValues(source).Inc()
	m.GraphTriples.Set(float64(triples))
}

// RecordQuery records a query-layer operation.
func (m *Metrics) RecordQuery(operation, status string, rows int, durationSeconds float64) {
	if m == nil {
		return
	}
	m.QueriesTotal.WithLabelValues(operation, status).Inc()
	m.QueryDuration.WithLabelValues(operation).Observe(durationSeconds)
	if status == "ok" {
		m.QueryRows.WithLabelValues(operation).Observe(float64(rows))
	}
}

// RecordHTTPRequest records a served HTTP request.
func (m *Metrics) RecordHTTPRequest(method, route string, code int, durationSeconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(durationSeconds)
}

// RecordRateLimited records a request rejected by the rate limiter.
func (m *Metrics) RecordRateLimited(route string) {
	if m == nil {
		return
	}
	m.RateLimited.WithLabelValues(route).Inc()
}
