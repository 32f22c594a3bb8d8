package dataprocessing

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "salesclean/internal/errors"
	"salesclean/pkg/contracts/domain"
)

// RangeChecker applies the bounds declared in the validate tags of
// domain.Transaction to each record.
type RangeChecker struct {
	validate *validator.Validate
}

// NewRangeChecker creates a range checker that reports fields by their
// output column name.
func NewRangeChecker() *RangeChecker {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &RangeChecker{validate: v}
}

// Check returns one warning per violated bound, in row order.
func (r *RangeChecker) Check(records []domain.Transaction) []*apperrors.PipelineError {
	var warnings []*apperrors.PipelineError
	for i := range records {
		rec := &records[i]
		err := r.validate.Struct(rec)
		if err == nil {
			continue
		}

		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			warnings = append(warnings, apperrors.NewValidationWarning(StageRanges, apperrors.RuleRange,
				i+1, rec.InvoiceID, "", "valid record", err.Error()))
			continue
		}
		for _, fe := range verrs {
			warnings = append(warnings, apperrors.NewValidationWarning(StageRanges, apperrors.RuleRange,
				i+1, rec.InvoiceID, fe.Field(), describeBound(fe), fmt.Sprint(fe.Value())))
		}
	}
	return warnings
}

// CheckGrossMargin warns for every record whose gross margin percentage is
// not within tol of domain.ExpectedGrossMarginPct.
func CheckGrossMargin(records []domain.Transaction, tol Tolerance) []*apperrors.PipelineError {
	var warnings []*apperrors.PipelineError
	for i := range records {
		rec := &records[i]
		if IsClose(rec.GrossMarginPct, domain.ExpectedGrossMarginPct, tol) {
			continue
		}
		warnings = append(warnings, apperrors.NewValidationWarning(StageRanges, apperrors.RuleGrossMargin,
			i+1, rec.InvoiceID, domain.ColGrossMarginPct,
			strconv.FormatFloat(domain.ExpectedGrossMarginPct, 'f', -1, 64),
			strconv.FormatFloat(rec.GrossMarginPct, 'f', -1, 64)))
	}
	return warnings
}

func describeBound(fe validator.FieldError) string {
	ops := map[string]string{"gt": ">", "gte": ">=", "lt": "<", "lte": "<="}
	if op, ok := ops[fe.Tag()]; ok {
		return op + " " + fe.Param()
	}
	if fe.Param() != "" {
		return fe.Tag() + "=" + fe.Param()
	}
	return fe.Tag()
}
