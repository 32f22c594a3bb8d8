package dataprocessing

import (
	"math"
	"strconv"

	apperrors "salesclean/internal/errors"
	"salesclean/pkg/contracts/domain"
)

// Tolerance bounds the difference accepted between a value and its expected
// value: |actual - expected| <= Absolute + Relative*|expected|.
type Tolerance struct {
	Relative float64 `json:"relative"`
	Absolute float64 `json:"absolute"`
}

// DefaultTolerance returns the tolerance used when none is configured.
func DefaultTolerance() Tolerance {
	return Tolerance{Relative: 1e-5, Absolute: 1e-8}
}

// IsClose reports whether actual is within tol of expected. The test is
// asymmetric: the relative term scales with the expected value only.
func IsClose(actual, expected float64, tol Tolerance) bool {
	if actual == expected {
		return true
	}
	if math.IsNaN(actual) || math.IsNaN(expected) || math.IsInf(actual, 0) || math.IsInf(expected, 0) {
		return false
	}
	return math.Abs(actual-expected) <= tol.Absolute+tol.Relative*math.Abs(expected)
}

// FinancialResult is the outcome of checking sales = cogs + tax over a table.
type FinancialResult struct {
	Checked       int
	NonConforming []string // invoice IDs, in row order
	Warnings      []*apperrors.PipelineError
}

// Conforming reports whether every row satisfied the identity.
func (r FinancialResult) Conforming() bool {
	return len(r.NonConforming) == 0
}

// ValidateFinancials checks every record and reports all that fail. It never
// stops at the first failure.
func ValidateFinancials(records []domain.Transaction, tol Tolerance) FinancialResult {
	res := FinancialResult{Checked: len(records)}
	for i := range records {
		rec := &records[i]
		expected := rec.ExpectedSales()
		if IsClose(rec.Sales, expected, tol) {
			continue
		}
		res.NonConforming = append(res.NonConforming, rec.InvoiceID)
		res.Warnings = append(res.Warnings, apperrors.NewValidationWarning(
			StageFinancial, apperrors.RuleFinancialIdentity, i+1, rec.InvoiceID, domain.ColSales,
			strconv.FormatFloat(expected, 'f', -1, 64),
			strconv.FormatFloat(rec.Sales, 'f', -1, 64)))
	}
	return res
}
