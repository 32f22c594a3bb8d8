package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Pipeline error types. Parse errors and type mismatches are fatal;
// validation warnings are collected and reported but never stop a run.
const (
	ErrTypeParse             ErrorType = "PARSE_ERROR"
	ErrTypeTypeMismatch      ErrorType = "TYPE_MISMATCH"
	ErrTypeValidationWarning ErrorType = "VALIDATION_WARNING"
)

// Rules that produce pipeline errors.
const (
	RuleHeader            = "header"
	RuleRowWidth          = "row_width"
	RuleColumnType        = "column_type"
	RuleTimestamp         = "timestamp"
	RuleFinancialIdentity = "financial_identity"
	RuleRange             = "range"
	RuleGrossMargin       = "gross_margin"
	RuleUnmappedValue     = "unmapped_value"
)

// PipelineError describes a single data problem with enough context to
// locate and correct it in the source file.
type PipelineError struct {
	Type     ErrorType `json:"type"`
	Stage    string    `json:"stage"`
	Rule     string    `json:"rule"`
	Row      int       `json:"row,omitempty"` // 1-based data row; 0 when not row specific
	RecordID string    `json:"record_id,omitempty"`
	Column   string    `json:"column,omitempty"`
	Expected string    `json:"expected,omitempty"`
	Actual   string    `json:"actual,omitempty"`
	Cause    error     `json:"-"`
}

// Error implements the error interface
func (e *PipelineError) Error() string {
	if e == nil {
		return "unknown pipeline error"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", e.Type, e.Stage)
	if e.Row > 0 {
		fmt.Fprintf(&b, ": row %d", e.Row)
		if e.RecordID != "" {
			fmt.Fprintf(&b, " (%s)", e.RecordID)
		}
	}
	if e.Column != "" {
		fmt.Fprintf(&b, ": column %q", e.Column)
	}
	fmt.Fprintf(&b, ": expected %s, got %q", e.Expected, e.Actual)
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

// Unwrap returns the underlying error
func (e *PipelineError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Fatal reports whether the error must abort the run.
func (e *PipelineError) Fatal() bool {
	return e.Type != ErrTypeValidationWarning
}

// WithRecord attaches the record identifier of the offending row.
func (e *PipelineError) WithRecord(id string) *PipelineError {
	e.RecordID = id
	return e
}

// NewParseError creates a fatal error for input that does not match its
// required textual layout.
func NewParseError(stage, rule string, row int, column, expected, actual string, cause error) *PipelineError {
	return &PipelineError{
		Type:     ErrTypeParse,
		Stage:    stage,
		Rule:     rule,
		Row:      row,
		Column:   column,
		Expected: expected,
		Actual:   actual,
		Cause:    cause,
	}
}

// NewTypeMismatch creates a fatal error for a value outside its column's
// semantic type.
func NewTypeMismatch(stage string, row int, column, expected, actual string, cause error) *PipelineError {
	return &PipelineError{
		Type:     ErrTypeTypeMismatch,
		Stage:    stage,
		Rule:     RuleColumnType,
		Row:      row,
		Column:   column,
		Expected: expected,
		Actual:   actual,
		Cause:    cause,
	}
}

// NewValidationWarning creates a non-fatal data quality finding.
func NewValidationWarning(stage, rule string, row int, recordID, column, expected, actual string) *PipelineError {
	return &PipelineError{
		Type:     ErrTypeValidationWarning,
		Stage:    stage,
		Rule:     rule,
		Row:      row,
		RecordID: recordID,
		Column:   column,
		Expected: expected,
		Actual:   actual,
	}
}

// Join combines pipeline errors into a single error. It returns nil for an
// empty slice.
func Join(errs []*PipelineError) error {
	if len(errs) == 0 {
		return nil
	}
	list := make([]error, len(errs))
	for i, e := range errs {
		list[i] = e
	}
	return errors.Join(list...)
}

// Collect flattens err, including joined and wrapped errors, into the
// pipeline errors it contains.
func Collect(err error) []*PipelineError {
	var out []*PipelineError
	var walk func(error)
	walk = func(e error) {
		if e == nil {
			return
		}
		if pe, ok := e.(*PipelineError); ok {
			out = append(out, pe)
			return
		}
		switch u := e.(type) {
		case interface{ Unwrap() []error }:
			for _, inner := range u.Unwrap() {
				walk(inner)
			}
		case interface{ Unwrap() error }:
			walk(u.Unwrap())
		}
	}
	walk(err)
	return out
}

// IsParseError reports whether err contains a parse error.
func IsParseError(err error) bool {
	return hasType(err, ErrTypeParse)
}

// IsTypeMismatch reports whether err contains a type mismatch.
func IsTypeMismatch(err error) bool {
	return hasType(err, ErrTypeTypeMismatch)
}

func hasType(err error, t ErrorType) bool {
	for _, pe := range Collect(err) {
		if pe.Type == t {
			return true
		}
	}
	return false
}
