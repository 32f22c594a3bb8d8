package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"salesclean/pkg/contracts"
)

const (
	ServiceName    = "salesclean"
	ServiceVersion = contracts.Version
	MeterName      = "salesclean"
)

// OTelConfig holds OpenTelemetry configuration
type OTelConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	EnableTracing  bool
	EnableMetrics  bool
	SampleRatio    float64
	// TraceWriter receives one JSON span per line; nil writes to TraceFile.
	TraceWriter io.Writer
	TraceFile   string
}

// OTelProviders holds the OpenTelemetry providers
type OTelProviders struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	Registry       *promclient.Registry
	Logger         *slog.Logger

	traceFile *os.File
}

// DefaultOTelConfig returns a default OpenTelemetry configuration
func DefaultOTelConfig() *OTelConfig {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	return &OTelConfig{
		ServiceName:    ServiceName,
		ServiceVersion: ServiceVersion,
		Environment:    env,
		EnableTracing:  true,
		EnableMetrics:  true,
		SampleRatio:    1.0,
		TraceWriter:    io.Discard,
	}
}

// InitializeOTel initializes tracing and metrics. Disabled signals get no-op
// tracers and meters so callers never check for nil.
func InitializeOTel(cfg *OTelConfig, logger *slog.Logger) (*OTelProviders, error) {
	if cfg == nil {
		cfg = DefaultOTelConfig()
	}
	if logger == nil {
		logger = GetLogger()
	}

	ctx := context.Background()

	logger.InfoContext(ctx, "Initializing OpenTelemetry",
		slog.String("service", cfg.ServiceName),
		slog.String("version", cfg.ServiceVersion),
		slog.String("environment", cfg.Environment),
		slog.Bool("tracing_enabled", cfg.EnableTracing),
		slog.Bool("metrics_enabled", cfg.EnableMetrics))

	res := createResource(cfg)

	providers := &OTelProviders{
		Tracer: tracenoop.NewTracerProvider().Tracer(MeterName),
		Meter:  metricnoop.NewMeterProvider().Meter(MeterName),
		Logger: logger,
	}

	if cfg.EnableTracing {
		if err := initializeTracing(ctx, cfg, res, providers); err != nil {
			return nil, fmt.Errorf("failed to initialize tracing: %w", err)
		}
	}

	if cfg.EnableMetrics {
		if err := initializeMetrics(ctx, cfg, res, providers); err != nil {
			providers.Shutdown(ctx)
			return nil, fmt.Errorf("failed to initialize metrics: %w", err)
		}
	}

	return providers, nil
}

// createResource creates the OpenTelemetry resource
func createResource(cfg *OTelConfig) *resource.Resource {
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		semconv.DeploymentEnvironmentName(cfg.Environment),
		attribute.String("service.instance.id", generateInstanceID()),
	)
}

// initializeTracing sets up OpenTelemetry tracing
func initializeTracing(ctx context.Context, cfg *OTelConfig, res *resource.Resource, providers *OTelProviders) error {
	w := cfg.TraceWriter
	if w == nil {
		if cfg.TraceFile == "" {
			return fmt.Errorf("trace output is not configured")
		}
		if err := os.MkdirAll(filepath.Dir(cfg.TraceFile), 0755); err != nil {
			return fmt.Errorf("failed to create trace directory: %w", err)
		}
		file, err := os.OpenFile(cfg.TraceFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("failed to open trace file: %w", err)
		}
		providers.traceFile = file
		w = file
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SampleRatio)),
	)

	providers.TracerProvider = tp
	providers.Tracer = tp.Tracer(MeterName, trace.WithInstrumentationVersion(cfg.ServiceVersion))

	otel.SetTracerProvider(tp)

	providers.Logger.DebugContext(ctx, "Tracing initialized",
		slog.String("trace_file", cfg.TraceFile),
		slog.Float64("sample_ratio", cfg.SampleRatio))

	return nil
}

// initializeMetrics sets up OpenTelemetry metrics backed by a private
// Prometheus registry, written out with WriteMetrics.
func initializeMetrics(ctx context.Context, cfg *OTelConfig, res *resource.Resource, providers *OTelProviders) error {
	registry := promclient.NewRegistry()
	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)

	providers.Registry = registry
	providers.MeterProvider = mp
	providers.Meter = mp.Meter(MeterName, metric.WithInstrumentationVersion(cfg.ServiceVersion))

	otel.SetMeterProvider(mp)

	providers.Logger.DebugContext(ctx, "Metrics initialized", slog.String("exporter", "prometheus"))
	return nil
}

// WriteMetrics writes every collected metric to path in the Prometheus text
// format, for a node exporter textfile collector to pick up.
func (p *OTelProviders) WriteMetrics(path string) error {
	if p.Registry == nil {
		return fmt.Errorf("metrics are not enabled")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := promclient.WriteToTextfile(path, p.Registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}

// Shutdown flushes and shuts down the OpenTelemetry providers
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	var errs []error

	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}

	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}

	if p.traceFile != nil {
		if err := p.traceFile.Close(); err != nil {
			errs = append(errs, fmt.Errorf("trace file close: %w", err))
		}
		p.traceFile = nil
	}

	if len(errs) > 0 {
		return fmt.Errorf("opentelemetry shutdown errors: %w", errors.Join(errs...))
	}

	p.Logger.DebugContext(ctx, "OpenTelemetry shutdown complete")
	return nil
}

// PipelineMetrics holds the metrics of cleaning runs
type PipelineMetrics struct {
	RunsTotal         metric.Int64Counter
	RunDuration       metric.Float64Histogram
	StageDuration     metric.Float64Histogram
	RowsTotal         metric.Int64Counter
	WarningsTotal     metric.Int64Counter
	NonConformingRows metric.Int64Counter
	OutputBytes       metric.Int64Counter
}

// CreatePipelineMetrics creates the run, stage and output instruments
func CreatePipelineMetrics(meter metric.Meter) (*PipelineMetrics, error) {
	runsTotal, err := meter.Int64Counter(
		"salesclean_runs_total",
		metric.WithDescription("Total number of cleaning runs"),
	)
	if err != nil {
		return nil, err
	}

	runDuration, err := meter.Float64Histogram(
		"salesclean_run_duration_seconds",
		metric.WithDescription("Cleaning run duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	stageDuration, err := meter.Float64Histogram(
		"salesclean_stage_duration_seconds",
		metric.WithDescription("Pipeline stage duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	rowsTotal, err := meter.Int64Counter(
		"salesclean_rows_total",
		metric.WithDescription("Rows read and written"),
	)
	if err != nil {
		return nil, err
	}

	warningsTotal, err := meter.Int64Counter(
		"salesclean_warnings_total",
		metric.WithDescription("Validation warnings by rule"),
	)
	if err != nil {
		return nil, err
	}

	nonConforming, err := meter.Int64Counter(
		"salesclean_non_conforming_rows_total",
		metric.WithDescription("Rows failing the financial identity"),
	)
	if err != nil {
		return nil, err
	}

	outputBytes, err := meter.Int64Counter(
		"salesclean_output_bytes_total",
		metric.WithDescription("Bytes written per output format"),
	)
	if err != nil {
		return nil, err
	}

	return &PipelineMetrics{
		RunsTotal:         runsTotal,
		RunDuration:       runDuration,
		StageDuration:     stageDuration,
		RowsTotal:         rowsTotal,
		WarningsTotal:     warningsTotal,
		NonConformingRows: nonConforming,
		OutputBytes:       outputBytes,
	}, nil
}

// RecordRunMetrics records the outcome of one run
func RecordRunMetrics(ctx context.Context, metrics *PipelineMetrics, inputRows, outputRows, nonConforming int, duration time.Duration, err error) {
	if metrics == nil {
		return
	}

	status := attribute.String("status", "success")
	if err != nil {
		status = attribute.String("status", "failure")
	}
	metrics.RunsTotal.Add(ctx, 1, metric.WithAttributes(status))
	metrics.RunDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(status))
	metrics.RowsTotal.Add(ctx, int64(inputRows), metric.WithAttributes(attribute.String("direction", "in")))
	metrics.RowsTotal.Add(ctx, int64(outputRows), metric.WithAttributes(attribute.String("direction", "out")))
	metrics.NonConformingRows.Add(ctx, int64(nonConforming))

	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.AddEvent("run.metrics_recorded",
			trace.WithAttributes(
				attribute.Bool("success", err == nil),
				attribute.Float64("duration_seconds", duration.Seconds()),
			),
		)
	}
}

// RecordStageMetrics records the duration of one pipeline stage
func RecordStageMetrics(ctx context.Context, metrics *PipelineMetrics, stage string, duration time.Duration, failed bool) {
	if metrics == nil {
		return
	}

	status := attribute.String("status", "success")
	if failed {
		status = attribute.String("status", "failure")
	}
	metrics.StageDuration.Record(ctx, duration.Seconds(),
		metric.WithAttributes(attribute.String("stage", stage), status))
}

// RecordWarningMetrics records the number of warnings raised by a rule
func RecordWarningMetrics(ctx context.Context, metrics *PipelineMetrics, rule string, count int) {
	if metrics == nil || count == 0 {
		return
	}
	metrics.WarningsTotal.Add(ctx, int64(count), metric.WithAttributes(attribute.String("rule", rule)))
}

// RecordOutputMetrics records the size of one written output
func RecordOutputMetrics(ctx context.Context, metrics *PipelineMetrics, format string, size int64) {
	if metrics == nil {
		return
	}
	metrics.OutputBytes.Add(ctx, size, metric.WithAttributes(attribute.String("format", format)))
}

// generateInstanceID generates a unique instance identifier
func generateInstanceID() string {
	hostname, _ := os.Hostname()
	return fmt.Sprintf("%s-%d", hostname, time.Now().Unix())
}

// TraceIDFromContext extracts trace ID from context for logging correlation
func TraceIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	spanCtx := trace.SpanContextFromContext(ctx)
	if spanCtx.IsValid() {
		return spanCtx.TraceID().String()
	}
	return ""
}

// RecordError records an error on the current span
func RecordError(ctx context.Context, err error, options ...trace.EventOption) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	span.RecordError(err, options...)
	span.SetStatus(codes.Error, err.Error())
}
