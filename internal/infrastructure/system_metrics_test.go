package infrastructure

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestSystemMetricsCollect(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { provider.Shutdown(context.Background()) })

	sm, err := NewSystemMetrics(provider.Meter(MeterName))
	require.NoError(t, err)

	start := time.Now().Add(-2 * time.Second)
	stats := sm.Collect(context.Background(), start)
	assert.Positive(t, stats.MemorySystem)
	assert.GreaterOrEqual(t, stats.ProcessUptime, 2*time.Second)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	names := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			names[m.Name] = true
		}
	}
	assert.True(t, names["salesclean_memory_in_use_bytes"])
	assert.True(t, names["salesclean_process_uptime_seconds"])
}

func TestSystemStatsLogValue(t *testing.T) {
	stats := &SystemStats{MemoryInUse: 3 << 20, GCCount: 4, ProcessUptime: time.Second}
	v := stats.LogValue()
	require.Equal(t, slog.KindGroup, v.Kind())

	attrs := map[string]slog.Value{}
	for _, a := range v.Group() {
		attrs[a.Key] = a.Value
	}
	assert.Equal(t, int64(3), attrs["memory_in_use_mb"].Int64())
	assert.Equal(t, 1.0, attrs["uptime_seconds"].Float64())
}
