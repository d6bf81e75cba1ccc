package vecscan

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// The metrics package provides a Prometheus implementation.
type MetricsCollector interface {
	// RecordInsert is called after each single-record insert.
	RecordInsert(duration time.Duration, err error)

	// RecordBatch is called after each multi-record write. op names the
	// operation (e.g. "insertBatch"), count is the number of records.
	RecordBatch(op string, count int, duration time.Duration, err error)

	// RecordQuery is called after each query. scanned is the number of
	// records enumerated.
	RecordQuery(metric string, scanned int, duration time.Duration, err error)

	// RecordDelete is called after each delete operation.
	RecordDelete(duration time.Duration, err error)

	// RecordUpdate is called after each update operation.
	RecordUpdate(duration time.Duration, err error)

	// RecordAccelFallback is called when a query falls back from the
	// accelerated to the scalar Hamming path.
	RecordAccelFallback()
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordInsert(time.Duration, error)             {}
func (NoopMetricsCollector) RecordBatch(string, int, time.Duration, error) {}
func (NoopMetricsCollector) RecordQuery(string, int, time.Duration, error) {}
func (NoopMetricsCollector) RecordDelete(time.Duration, error)             {}
func (NoopMetricsCollector) RecordUpdate(time.Duration, error)             {}
func (NoopMetricsCollector) RecordAccelFallback()                          {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	InsertCount     atomic.Int64
	InsertErrors    atomic.Int64
	BatchCount      atomic.Int64
	BatchItems      atomic.Int64
	BatchErrors     atomic.Int64
	QueryCount      atomic.Int64
	QueryErrors     atomic.Int64
	QueryScanned    atomic.Int64
	QueryTotalNanos atomic.Int64
	DeleteCount     atomic.Int64
	DeleteErrors    atomic.Int64
	UpdateCount     atomic.Int64
	UpdateErrors    atomic.Int64
	AccelFallbacks  atomic.Int64
}

// RecordInsert implements MetricsCollector.
func (b *BasicMetricsCollector) RecordInsert(duration time.Duration, err error) {
	b.InsertCount.Add(1)
	if err != nil {
		b.InsertErrors.Add(1)
	}
}

// RecordBatch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordBatch(op string, count int, duration time.Duration, err error) {
	b.BatchCount.Add(1)
	b.BatchItems.Add(int64(count))
	if err != nil {
		b.BatchErrors.Add(1)
	}
}

// RecordQuery implements MetricsCollector.
func (b *BasicMetricsCollector) RecordQuery(metric string, scanned int, duration time.Duration, err error) {
	b.QueryCount.Add(1)
	b.QueryScanned.Add(int64(scanned))
	b.QueryTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.QueryErrors.Add(1)
	}
}

// RecordDelete implements MetricsCollector.
func (b *BasicMetricsCollector) RecordDelete(duration time.Duration, err error) {
	b.DeleteCount.Add(1)
	if err != nil {
		b.DeleteErrors.Add(1)
	}
}

// RecordUpdate implements MetricsCollector.
func (b *BasicMetricsCollector) RecordUpdate(duration time.Duration, err error) {
	b.UpdateCount.Add(1)
	if err != nil {
		b.UpdateErrors.Add(1)
	}
}

// RecordAccelFallback implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAccelFallback() {
	b.AccelFallbacks.Add(1)
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		InsertCount:    b.InsertCount.Load(),
		InsertErrors:   b.InsertErrors.Load(),
		BatchCount:     b.BatchCount.Load(),
		BatchItems:     b.BatchItems.Load(),
		BatchErrors:    b.BatchErrors.Load(),
		QueryCount:     b.QueryCount.Load(),
		QueryErrors:    b.QueryErrors.Load(),
		QueryScanned:   b.QueryScanned.Load(),
		QueryAvgNanos:  b.getAvgQueryNanos(),
		DeleteCount:    b.DeleteCount.Load(),
		DeleteErrors:   b.DeleteErrors.Load(),
		UpdateCount:    b.UpdateCount.Load(),
		UpdateErrors:   b.UpdateErrors.Load(),
		AccelFallbacks: b.AccelFallbacks.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgQueryNanos() int64 {
	count := b.QueryCount.Load()
	if count == 0 {
		return 0
	}
	return b.QueryTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	InsertCount    int64
	InsertErrors   int64
	BatchCount     int64
	BatchItems     int64
	BatchErrors    int64
	QueryCount     int64
	QueryErrors    int64
	QueryScanned   int64
	QueryAvgNanos  int64
	DeleteCount    int64
	DeleteErrors   int64
	UpdateCount    int64
	UpdateErrors   int64
	AccelFallbacks int64
}
