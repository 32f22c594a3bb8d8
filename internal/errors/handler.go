package errors

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// Problem kinds reported for a failed run
const (
	TypeCancelled = "cancelled"
	TypeData      = "data"
	TypeConfig    = "config"
	TypeContract  = "contract"
	TypeStorage   = "storage"
	TypeNotFound  = "not-found"
	TypeInternal  = "internal"
)

// maxListedProblems bounds how many row problems are logged and printed for
// one failure. The full list stays available in Problem.Problems.
const maxListedProblems = 20

// Problem is the user-facing description of a failed run.
type Problem struct {
	Type     string                 `json:"type"`
	Title    string                 `json:"title"`
	Detail   string                 `json:"detail"`
	Problems []*PipelineError       `json:"problems,omitempty"`
	Context  map[string]interface{} `json:"context,omitempty"`
}

// ErrorHandler provides centralized reporting of fatal errors
type ErrorHandler struct {
	logger *slog.Logger
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *slog.Logger) *ErrorHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ErrorHandler{
		logger: logger.With(slog.String("component", "error_handler")),
	}
}

// HandleError logs err with every row problem it carries and returns its
// Problem form. A nil error returns nil.
func (h *ErrorHandler) HandleError(ctx context.Context, err error) *Problem {
	if err == nil {
		return nil
	}

	problem := ErrorToProblem(err)
	h.logger.ErrorContext(ctx, "run failed",
		slog.String("type", problem.Type),
		slog.String("title", problem.Title),
		slog.Int("problems", len(problem.Problems)),
		slog.String("error", err.Error()),
	)
	for i, pe := range problem.Problems {
		if i == maxListedProblems {
			h.logger.ErrorContext(ctx, "further problems omitted",
				slog.Int("omitted", len(problem.Problems)-maxListedProblems))
			break
		}
		h.logger.ErrorContext(ctx, "data problem",
			slog.String("type", string(pe.Type)),
			slog.String("stage", pe.Stage),
			slog.String("rule", pe.Rule),
			slog.Int("row", pe.Row),
			slog.String("record_id", pe.RecordID),
			slog.String("column", pe.Column),
			slog.String("expected", pe.Expected),
			slog.String("actual", pe.Actual),
		)
	}
	return problem
}

// ErrorToProblem classifies err
func ErrorToProblem(err error) *Problem {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &Problem{
			Type:   TypeCancelled,
			Title:  "Run Cancelled",
			Detail: "the run was interrupted before it completed",
		}
	}

	if problems := Collect(err); len(problems) > 0 {
		return &Problem{
			Type:     TypeData,
			Title:    "Input Data Rejected",
			Detail:   fmt.Sprintf("%d problem(s) must be corrected in the input file", len(problems)),
			Problems: problems,
		}
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErrorToProblem(appErr)
	}

	return &Problem{
		Type:   TypeInternal,
		Title:  "Run Failed",
		Detail: err.Error(),
	}
}

func appErrorToProblem(appErr *AppError) *Problem {
	p := &Problem{
		Detail:  appErr.Error(),
		Context: appErr.Context,
	}
	switch appErr.Type {
	case ErrTypeConfig:
		p.Type, p.Title = TypeConfig, "Invalid Configuration"
	case ErrTypeContract:
		p.Type, p.Title = TypeContract, "Invalid Column Contract"
	case ErrTypeStorage:
		p.Type, p.Title = TypeStorage, "Storage Failure"
	case ErrTypeNotFound:
		p.Type, p.Title = TypeNotFound, "Resource Not Found"
	default:
		p.Type, p.Title = TypeInternal, "Run Failed"
	}
	return p
}

// Print writes the problem for a terminal reader.
func (p *Problem) Print(w io.Writer) {
	fmt.Fprintf(w, "%s: %s\n", p.Title, p.Detail)
	for i, pe := range p.Problems {
		if i == maxListedProblems {
			fmt.Fprintf(w, "  ... and %d more\n", len(p.Problems)-maxListedProblems)
			return
		}
		fmt.Fprintf(w, "  %s\n", pe.Error())
	}
}
