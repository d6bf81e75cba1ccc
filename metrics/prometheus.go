// Package metrics exports store metrics to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusCollector implements vecscan.MetricsCollector on top of
// Prometheus counters and histograms.
type PrometheusCollector struct {
	operations    *prometheus.CounterVec
	latency       *prometheus.HistogramVec
	batchItems    *prometheus.CounterVec
	scanned       *prometheus.CounterVec
	accelFallback prometheus.Counter
}

// NewPrometheusCollector registers the collector's metrics with reg under
// the given namespace. A nil reg uses prometheus.DefaultRegisterer.
func NewPrometheusCollector(reg prometheus.Registerer, namespace string) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "vecscan"
	}
	f := promauto.With(reg)

	return &PrometheusCollector{
		operations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Total store operations by operation and status",
		}, []string{"op", "status"}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_latency_seconds",
			Help:      "Latency of store operations",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		batchItems: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_items_total",
			Help:      "Records submitted in batch operations",
		}, []string{"op"}),
		scanned: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_scanned_records_total",
			Help:      "Records decoded by queries",
		}, []string{"metric"}),
		accelFallback: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "accel_fallbacks_total",
			Help:      "Queries that switched from the accelerated to the scalar Hamming path",
		}),
	}
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func (p *PrometheusCollector) observe(op string, d time.Duration, err error) {
	p.operations.WithLabelValues(op, status(err)).Inc()
	p.latency.WithLabelValues(op).Observe(d.Seconds())
}

// RecordInsert implements vecscan.MetricsCollector.
func (p *PrometheusCollector) RecordInsert(d time.Duration, err error) {
	p.observe("insert", d, err)
}

// RecordBatch implements vecscan.MetricsCollector.
func (p *PrometheusCollector) RecordBatch(op string, count int, d time.Duration, err error) {
	p.observe(op, d, err)
	p.batchItems.WithLabelValues(op).Add(float64(count))
}

// RecordQuery implements vecscan.MetricsCollector.
func (p *PrometheusCollector) RecordQuery(metric string, scanned int, d time.Duration, err error) {
	p.observe("query", d, err)
	p.scanned.WithLabelValues(metric).Add(float64(scanned))
}

// RecordDelete implements vecscan.MetricsCollector.
func (p *PrometheusCollector) RecordDelete(d time.Duration, err error) {
	p.observe("delete", d, err)
}

// RecordUpdate implements vecscan.MetricsCollector.
func (p *PrometheusCollector) RecordUpdate(d time.Duration, err error) {
	p.observe("update", d, err)
}

// RecordAccelFallback implements vecscan.MetricsCollector.
func (p *PrometheusCollector) RecordAccelFallback() {
	p.accelFallback.Inc()
}

// Operations exposes the operations counter, labelled by op and status.
func (p *PrometheusCollector) Operations() *prometheus.CounterVec {
	return p.operations
}
