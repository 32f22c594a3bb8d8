package dataprocessing

import (
	"fmt"
	"strings"

	"salesclean/internal/contract"
	apperrors "salesclean/internal/errors"
	"salesclean/pkg/contracts/domain"
)

// CheckStructure verifies that raw carries every header required by c and
// that each data row is as wide as the header row. All problems are returned
// together: missing headers as type mismatches, ragged rows as parse errors.
func CheckStructure(raw *RawTable, c *contract.Contract) error {
	var errs []*apperrors.PipelineError

	idx := raw.Index()
	for _, h := range c.RequiredHeaders() {
		if _, ok := idx[h]; ok {
			continue
		}
		e := apperrors.NewTypeMismatch(StageLoad, 0, h, "column present in header", "missing", nil)
		e.Rule = apperrors.RuleHeader
		errs = append(errs, e)
	}

	width := len(raw.Header)
	for i, row := range raw.Rows {
		if len(row) == width {
			continue
		}
		errs = append(errs, apperrors.NewParseError(StageLoad, apperrors.RuleRowWidth, i+1, "",
			fmt.Sprintf("%d fields", width), fmt.Sprintf("%d fields", len(row)), nil))
	}
	return apperrors.Join(errs)
}

// Coerce converts every row of a normalized table into a typed transaction.
// The timestamp is left unset; ConsolidateTimestamps supplies it. Every cell
// that cannot take its column type is reported, and any such cell fails the
// whole table.
func Coerce(raw *RawTable, c *contract.Contract) ([]domain.Transaction, error) {
	type binding struct {
		field  domain.Field
		column int
	}

	idx := raw.Index()
	var bindings []binding
	for _, f := range domain.InputFields() {
		col, ok := c.Column(f.Name)
		if !ok {
			return nil, apperrors.NewContractError(fmt.Sprintf("contract has no column %q", f.Name), nil)
		}
		pos, ok := idx[col.Header]
		if !ok {
			return nil, apperrors.NewContractError(fmt.Sprintf("input has no column %q", col.Header), nil)
		}
		bindings = append(bindings, binding{field: f, column: pos})
	}

	records := make([]domain.Transaction, len(raw.Rows))
	var errs []*apperrors.PipelineError
	for i, row := range raw.Rows {
		rec := &records[i]
		first := len(errs)
		for _, b := range bindings {
			cell := row[b.column]
			if err := b.field.Parse(rec, cell); err != nil {
				errs = append(errs, apperrors.NewTypeMismatch(StageCoerce, i+1, b.field.Name,
					expectedType(b.field), cell, err))
			}
		}
		for _, e := range errs[first:] {
			e.WithRecord(rec.InvoiceID)
		}
	}
	if err := apperrors.Join(errs); err != nil {
		return nil, err
	}
	return records, nil
}

func expectedType(f domain.Field) string {
	switch f.Kind {
	case domain.KindEnum:
		return "one of {" + strings.Join(f.Levels, ", ") + "}"
	case domain.KindInt:
		return "integer"
	case domain.KindFloat:
		return "finite number"
	case domain.KindString:
		return "non-empty text"
	default:
		return string(f.Kind)
	}
}
