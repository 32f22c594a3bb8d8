package exporter

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"salesclean/internal/dataprocessing"
	"salesclean/internal/infrastructure"
)

// TracerName is the instrumentation name of export spans.
const TracerName = "salesclean.exporter"

// Options configures an Exporter.
type Options struct {
	Dir     string
	Base    string
	Formats []Format
	// ContractVersion is recorded in file metadata and the manifest.
	ContractVersion string
	WriteManifest   bool
	WriteWarnings   bool
	Logger          *slog.Logger
	Tracer          trace.Tracer
}

// Exporter writes a cleaned table in every configured format.
type Exporter struct {
	opts   Options
	csv    *CSVWriter
	logger *slog.Logger
	tracer trace.Tracer
}

// New creates a new exporter
func New(opts Options) (*Exporter, error) {
	if opts.Base == "" {
		return nil, fmt.Errorf("output base name is required")
	}
	if len(opts.Formats) == 0 {
		opts.Formats = append([]Format(nil), DefaultFormats...)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Tracer == nil {
		opts.Tracer = noop.NewTracerProvider().Tracer(TracerName)
	}
	logger := infrastructure.WithComponent(opts.Logger, "exporter")
	return &Exporter{
		opts:   opts,
		csv:    NewCSVWriter(logger),
		logger: logger,
		tracer: opts.Tracer,
	}, nil
}

// Path returns the output path of the given format.
func (e *Exporter) Path(f Format) string {
	return filepath.Join(e.opts.Dir, e.opts.Base+"."+f.Extension())
}

// ManifestPath returns the path of the run manifest.
func (e *Exporter) ManifestPath() string {
	return filepath.Join(e.opts.Dir, e.opts.Base+".manifest.json")
}

// WarningsPath returns the path of the warnings listing.
func (e *Exporter) WarningsPath() string {
	return filepath.Join(e.opts.Dir, e.opts.Base+".warnings.csv")
}

// Export writes table in every configured format, then the warnings listing
// and the manifest when enabled. The export stage is appended to report.
func (e *Exporter) Export(ctx context.Context, table *dataprocessing.Table, report *dataprocessing.Report) (*Manifest, error) {
	ctx, span := e.tracer.Start(ctx, "pipeline.stage."+dataprocessing.StageExport,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("run.id", report.RunID),
			attribute.Int("export.rows", table.Len()),
			attribute.Int("export.formats", len(e.opts.Formats)),
		),
	)
	defer span.End()

	start := time.Now()
	outputs, err := e.export(ctx, table, report)
	report.AddStage(dataprocessing.StageResult{
		Name:     dataprocessing.StageExport,
		Duration: time.Since(start),
		Rows:     table.Len(),
		Failed:   err != nil,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "export failed")
		infrastructure.WithError(e.logger, err).ErrorContext(ctx, "export failed")
		return nil, err
	}

	manifest := NewManifest(report, e.opts.ContractVersion, outputs)
	if e.opts.WriteManifest {
		if err := WriteManifest(e.ManifestPath(), manifest); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "manifest failed")
			return nil, err
		}
		e.logger.InfoContext(ctx, "manifest written", slog.String("path", e.ManifestPath()))
	}
	return manifest, nil
}

func (e *Exporter) export(ctx context.Context, table *dataprocessing.Table, report *dataprocessing.Report) ([]Artifact, error) {
	if e.opts.Dir != "" {
		if err := os.MkdirAll(e.opts.Dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	metadata := map[string]string{
		"run_id":           report.RunID,
		"contract_version": e.opts.ContractVersion,
	}

	var outputs []Artifact
	for _, f := range e.opts.Formats {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		path := e.Path(f)
		var err error
		switch f {
		case FormatParquet:
			err = WriteParquet(path, table.Records, metadata)
		case FormatXLSX:
			err = WriteXLSX(path, table.Records, report.Summary)
		case FormatArrow:
			err = WriteArrow(path, table.Records, metadata)
		case FormatCSV:
			err = e.csv.WriteTable(path, table.Records)
		default:
			err = fmt.Errorf("unknown output format %q", f)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to write %s output: %w", f, err)
		}

		artifact, err := Describe(f, path)
		if err != nil {
			return nil, err
		}
		outputs = append(outputs, artifact)
		e.logger.InfoContext(ctx, "output written",
			slog.String("format", string(f)),
			slog.String("path", path),
			slog.Int64("size", artifact.Size),
			slog.Int("rows", table.Len()))
	}

	if e.opts.WriteWarnings && report.WarningCount() > 0 {
		if err := e.csv.WriteWarnings(e.WarningsPath(), report.Warnings); err != nil {
			return nil, fmt.Errorf("failed to write warnings: %w", err)
		}
		e.logger.InfoContext(ctx, "warnings written",
			slog.String("path", e.WarningsPath()),
			slog.Int("count", report.WarningCount()))
	}
	return outputs, nil
}
