package dataprocessing

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"salesclean/internal/contract"
	apperrors "salesclean/internal/errors"
	"salesclean/pkg/contracts/domain"
)

// Stage names as they appear in reports, logs and spans.
const (
	StageLoad      = "load"
	StageNormalize = "normalize"
	StageCoerce    = "coerce"
	StageTemporal  = "temporal"
	StageFinancial = "financial"
	StageRanges    = "ranges"
	StageSummary   = "summary"
	StageExport    = "export"
)

// Options configures a pipeline run. The zero value is usable.
type Options struct {
	// Contract defaults to the embedded column contract.
	Contract *contract.Contract
	// Tolerance of the financial check; nil selects DefaultTolerance.
	Tolerance *Tolerance
	// RunID identifies the run in logs and reports; empty generates one.
	RunID  string
	Logger *slog.Logger
	// Tracer receives one span per stage; nil disables tracing.
	Tracer trace.Tracer
}

// Table is the cleaned output: one typed record per input row, in input order.
type Table struct {
	Records []domain.Transaction
}

// Len returns the number of records.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Records)
}

// StageResult records the execution of one stage.
type StageResult struct {
	Name     string        `json:"name"`
	Duration time.Duration `json:"duration_ns"`
	Rows     int           `json:"rows"`
	Warnings int           `json:"warnings"`
	Failed   bool          `json:"failed,omitempty"`
}

// Report is the validation report of one run.
type Report struct {
	RunID         string                     `json:"run_id"`
	Source        string                     `json:"source,omitempty"`
	StartedAt     time.Time                  `json:"started_at"`
	InputRows     int                        `json:"input_rows"`
	OutputRows    int                        `json:"output_rows"`
	Tolerance     Tolerance                  `json:"tolerance"`
	Stages        []StageResult              `json:"stages"`
	Warnings      []*apperrors.PipelineError `json:"warnings"`
	NonConforming []string                   `json:"non_conforming"`
	Summary       []ColumnSummary            `json:"quality_summary,omitempty"`
}

// AddStage appends a stage result.
func (r *Report) AddStage(res StageResult) {
	r.Stages = append(r.Stages, res)
}

// Stage returns the result of the named stage.
func (r *Report) Stage(name string) (StageResult, bool) {
	for _, s := range r.Stages {
		if s.Name == name {
			return s, true
		}
	}
	return StageResult{}, false
}

// WarningCount returns the number of validation warnings.
func (r *Report) WarningCount() int {
	return len(r.Warnings)
}

// WarningsByRule counts warnings per rule.
func (r *Report) WarningsByRule() map[string]int {
	counts := make(map[string]int)
	for _, w := range r.Warnings {
		counts[w.Rule]++
	}
	return counts
}

// Duration returns the summed duration of all stages.
func (r *Report) Duration() time.Duration {
	var d time.Duration
	for _, s := range r.Stages {
		d += s.Duration
	}
	return d
}
