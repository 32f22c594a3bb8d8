package dataprocessing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"salesclean/internal/contract"
	apperrors "salesclean/internal/errors"
	"salesclean/pkg/contracts/domain"
)

// TracerName is the instrumentation name of pipeline spans.
const TracerName = "salesclean.dataprocessing"

// Run cleans raw and returns the typed table with its validation report.
// raw is not modified. On a fatal error the table is nil and the report holds
// the stages and warnings gathered up to the failing stage.
func Run(ctx context.Context, raw *RawTable, opts Options) (*Table, *Report, error) {
	p, err := newPipeline(opts)
	if err != nil {
		return nil, nil, err
	}
	p.report.Source = raw.Source
	p.report.InputRows = raw.Len()

	ctx, span := p.tracer.Start(ctx, "pipeline.run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("run.id", p.report.RunID),
			attribute.String("run.source", raw.Source),
			attribute.Int("run.input_rows", raw.Len()),
		),
	)
	defer span.End()

	p.logger.InfoContext(ctx, "pipeline started",
		slog.String("source", raw.Source),
		slog.Int("rows", raw.Len()))

	table, err := p.run(ctx, raw)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "pipeline failed")
		p.logger.ErrorContext(ctx, "pipeline failed",
			slog.Int("problems", len(apperrors.Collect(err))),
			slog.String("error", err.Error()))
		return nil, p.report, err
	}

	p.report.OutputRows = table.Len()
	span.SetAttributes(
		attribute.Int("run.output_rows", table.Len()),
		attribute.Int("run.warnings", p.report.WarningCount()),
	)
	p.logger.InfoContext(ctx, "pipeline completed",
		slog.Int("input_rows", p.report.InputRows),
		slog.Int("output_rows", p.report.OutputRows),
		slog.Int("warnings", p.report.WarningCount()),
		slog.Int("non_conforming", len(p.report.NonConforming)),
		slog.Duration("duration", p.report.Duration()))
	return table, p.report, nil
}

type pipeline struct {
	contract  *contract.Contract
	tolerance Tolerance
	logger    *slog.Logger
	tracer    trace.Tracer
	report    *Report
}

func newPipeline(opts Options) (*pipeline, error) {
	p := &pipeline{
		contract:  opts.Contract,
		tolerance: DefaultTolerance(),
		logger:    opts.Logger,
		tracer:    opts.Tracer,
	}
	if p.contract == nil {
		c, err := contract.Default()
		if err != nil {
			return nil, fmt.Errorf("failed to load default contract: %w", err)
		}
		p.contract = c
	}
	if opts.Tolerance != nil {
		p.tolerance = *opts.Tolerance
	}
	if p.tracer == nil {
		p.tracer = noop.NewTracerProvider().Tracer(TracerName)
	}

	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	p.logger = p.logger.With(slog.String("run_id", runID))

	p.report = &Report{
		RunID:     runID,
		StartedAt: time.Now().UTC(),
		Tolerance: p.tolerance,
	}
	return p, nil
}

func (p *pipeline) run(ctx context.Context, raw *RawTable) (*Table, error) {
	err := p.stage(ctx, StageLoad, func() (int, []*apperrors.PipelineError, error) {
		return raw.Len(), nil, CheckStructure(raw, p.contract)
	})
	if err != nil {
		return nil, err
	}

	var normalized *RawTable
	err = p.stage(ctx, StageNormalize, func() (int, []*apperrors.PipelineError, error) {
		var warnings []*apperrors.PipelineError
		normalized, warnings = NewNormalizer(p.contract).Normalize(raw)
		return normalized.Len(), warnings, nil
	})
	if err != nil {
		return nil, err
	}

	var records []domain.Transaction
	err = p.stage(ctx, StageCoerce, func() (int, []*apperrors.PipelineError, error) {
		var err error
		records, err = Coerce(normalized, p.contract)
		return len(records), nil, err
	})
	if err != nil {
		return nil, err
	}

	err = p.stage(ctx, StageTemporal, func() (int, []*apperrors.PipelineError, error) {
		stamps, err := ConsolidateTimestamps(normalized, p.contract)
		if err != nil {
			return 0, nil, err
		}
		for i := range records {
			records[i].Timestamp = stamps[i]
		}
		return len(stamps), nil, nil
	})
	if err != nil {
		return nil, err
	}

	err = p.stage(ctx, StageFinancial, func() (int, []*apperrors.PipelineError, error) {
		res := ValidateFinancials(records, p.tolerance)
		p.report.NonConforming = res.NonConforming
		return res.Checked, res.Warnings, nil
	})
	if err != nil {
		return nil, err
	}

	err = p.stage(ctx, StageRanges, func() (int, []*apperrors.PipelineError, error) {
		warnings := NewRangeChecker().Check(records)
		warnings = append(warnings, CheckGrossMargin(records, p.tolerance)...)
		return len(records), warnings, nil
	})
	if err != nil {
		return nil, err
	}

	err = p.stage(ctx, StageSummary, func() (int, []*apperrors.PipelineError, error) {
		p.report.Summary = Summarize(records)
		return len(records), nil, nil
	})
	if err != nil {
		return nil, err
	}

	return &Table{Records: records}, nil
}

// stage runs fn inside its own span, records its result in the report and
// logs its outcome.
func (p *pipeline) stage(ctx context.Context, name string, fn func() (int, []*apperrors.PipelineError, error)) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("stage %s: %w", name, err)
	}

	ctx, span := p.tracer.Start(ctx, "pipeline.stage."+name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("stage.name", name)),
	)
	defer span.End()

	start := time.Now()
	rows, warnings, err := fn()
	res := StageResult{
		Name:     name,
		Duration: time.Since(start),
		Rows:     rows,
		Warnings: len(warnings),
		Failed:   err != nil,
	}
	p.report.AddStage(res)
	p.report.Warnings = append(p.report.Warnings, warnings...)

	span.SetAttributes(
		attribute.Int("stage.rows", rows),
		attribute.Int("stage.warnings", len(warnings)),
	)

	for _, w := range warnings {
		p.logger.DebugContext(ctx, "validation warning",
			slog.String("stage", name),
			slog.String("rule", w.Rule),
			slog.Int("row", w.Row),
			slog.String("record_id", w.RecordID),
			slog.String("column", w.Column),
			slog.String("expected", w.Expected),
			slog.String("actual", w.Actual))
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, name+" failed")
		for _, pe := range apperrors.Collect(err) {
			p.logger.ErrorContext(ctx, "stage error",
				slog.String("stage", name),
				slog.String("type", string(pe.Type)),
				slog.String("rule", pe.Rule),
				slog.Int("row", pe.Row),
				slog.String("record_id", pe.RecordID),
				slog.String("column", pe.Column),
				slog.String("expected", pe.Expected),
				slog.String("actual", pe.Actual))
		}
		return err
	}

	level := slog.LevelInfo
	if len(warnings) > 0 {
		level = slog.LevelWarn
	}
	p.logger.Log(ctx, level, "stage completed",
		slog.String("stage", name),
		slog.Int("rows", rows),
		slog.Int("warnings", len(warnings)),
		slog.Duration("duration", res.Duration))
	return nil
}
