package infrastructure

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// SystemMetrics records a snapshot of process resources at the end of a run
type SystemMetrics struct {
	memoryInUse     metric.Int64Gauge
	memoryAllocated metric.Int64Gauge
	memorySystem    metric.Int64Gauge
	gcCount         metric.Int64Gauge
	processUptime   metric.Float64Gauge
}

// NewSystemMetrics creates the process resource gauges
func NewSystemMetrics(meter metric.Meter) (*SystemMetrics, error) {
	memoryInUse, err := meter.Int64Gauge(
		"salesclean_memory_in_use_bytes",
		metric.WithDescription("Heap bytes in use"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	memoryAllocated, err := meter.Int64Gauge(
		"salesclean_memory_allocated_bytes",
		metric.WithDescription("Cumulative heap bytes allocated"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	memorySystem, err := meter.Int64Gauge(
		"salesclean_memory_system_bytes",
		metric.WithDescription("Bytes obtained from the operating system"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	gcCount, err := meter.Int64Gauge(
		"salesclean_gc_cycles",
		metric.WithDescription("Completed garbage collection cycles"),
	)
	if err != nil {
		return nil, err
	}

	processUptime, err := meter.Float64Gauge(
		"salesclean_process_uptime_seconds",
		metric.WithDescription("Process uptime in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &SystemMetrics{
		memoryInUse:     memoryInUse,
		memoryAllocated: memoryAllocated,
		memorySystem:    memorySystem,
		gcCount:         gcCount,
		processUptime:   processUptime,
	}, nil
}

// SystemStats holds current system statistics
type SystemStats struct {
	MemoryInUse     int64
	MemoryAllocated int64
	MemorySystem    int64
	GCCount         uint32
	ProcessUptime   time.Duration
}

// Collect reads the runtime statistics and records them
func (sm *SystemMetrics) Collect(ctx context.Context, startTime time.Time) *SystemStats {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	stats := &SystemStats{
		MemoryInUse:     int64(memStats.Alloc),
		MemoryAllocated: int64(memStats.TotalAlloc),
		MemorySystem:    int64(memStats.Sys),
		GCCount:         memStats.NumGC,
		ProcessUptime:   time.Since(startTime),
	}

	sm.memoryInUse.Record(ctx, stats.MemoryInUse)
	sm.memoryAllocated.Record(ctx, stats.MemoryAllocated)
	sm.memorySystem.Record(ctx, stats.MemorySystem)
	sm.gcCount.Record(ctx, int64(stats.GCCount))
	sm.processUptime.Record(ctx, stats.ProcessUptime.Seconds())

	return stats
}

// LogValue renders the stats as a log group
func (stats *SystemStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("memory_in_use_mb", stats.MemoryInUse/1024/1024),
		slog.Int64("memory_alloc_mb", stats.MemoryAllocated/1024/1024),
		slog.Int64("memory_system_mb", stats.MemorySystem/1024/1024),
		slog.Any("gc_count", stats.GCCount),
		slog.Float64("uptime_seconds", stats.ProcessUptime.Seconds()),
	)
}
