package metrics_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vecscan"
	"github.com/hupe1980/vecscan/backend/memory"
	"github.com/hupe1980/vecscan/metrics"
)

var _ vecscan.MetricsCollector = (*metrics.PrometheusCollector)(nil)

func TestPrometheusCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := metrics.NewPrometheusCollector(reg, "test")

	c.RecordInsert(time.Millisecond, nil)
	c.RecordInsert(time.Millisecond, errors.New("boom"))
	c.RecordBatch("insertBatch", 3, time.Millisecond, nil)
	c.RecordQuery("Cosine", 10, time.Millisecond, nil)
	c.RecordAccelFallback()

	assert.Equal(t, 1.0, testutil.ToFloat64(c.Operations().WithLabelValues("insert", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Operations().WithLabelValues("insert", "error")))

	n, err := testutil.GatherAndCount(reg, "test_batch_items_total", "test_query_scanned_records_total", "test_accel_fallbacks_total")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestPrometheusCollector_Store(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	c := metrics.NewPrometheusCollector(reg, "")

	s, err := vecscan.New(memory.New(), vecscan.Config{}, vecscan.WithMetricsCollector(c))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.InsertManualBatch(ctx, []vecscan.Record{
		{ID: "a", Vector: []float32{1, 0}},
		{ID: "b", Vector: []float32{0, 1}},
	}))
	_, err = s.QueryManual(ctx, []float32{1, 0}, 1)
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.Operations().WithLabelValues("insertManualBatch", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Operations().WithLabelValues("query", "success")))

	n, err := testutil.GatherAndCount(reg, "vecscan_query_scanned_records_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
