package dataprocessing

import (
	"fmt"
	"time"

	"salesclean/internal/contract"
	apperrors "salesclean/internal/errors"
	"salesclean/pkg/contracts/domain"
)

// ParseTimestamp joins a date and a time of day with a single space and
// parses the result with layout. No other layout is tried. The result is a
// UTC wall-clock time.
func ParseTimestamp(layout, date, clock string) (time.Time, error) {
	return time.ParseInLocation(layout, date+" "+clock, time.UTC)
}

// ConsolidateTimestamps derives the transaction timestamp of every row from
// the two source columns named by the contract. The result is aligned with
// raw.Rows. Rows that do not match the layout exactly are all reported and
// fail the table.
func ConsolidateTimestamps(raw *RawTable, c *contract.Contract) ([]time.Time, error) {
	ts := c.Timestamp()
	if len(ts.DerivedFrom) != 2 {
		return nil, apperrors.NewContractError("timestamp column must be derived from two columns", nil)
	}

	idx := raw.Index()
	dateCol, ok := idx[ts.DerivedFrom[0]]
	if !ok {
		return nil, apperrors.NewContractError(fmt.Sprintf("input has no column %q", ts.DerivedFrom[0]), nil)
	}
	timeCol, ok := idx[ts.DerivedFrom[1]]
	if !ok {
		return nil, apperrors.NewContractError(fmt.Sprintf("input has no column %q", ts.DerivedFrom[1]), nil)
	}
	idCol, hasID := -1, false
	if col, ok := c.Column(domain.ColInvoiceID); ok {
		idCol, hasID = idx[col.Header]
	}

	out := make([]time.Time, len(raw.Rows))
	var errs []*apperrors.PipelineError
	for i, row := range raw.Rows {
		t, err := ParseTimestamp(ts.Layout, row[dateCol], row[timeCol])
		if err != nil {
			e := apperrors.NewParseError(StageTemporal, apperrors.RuleTimestamp, i+1, ts.Name,
				ts.Layout, row[dateCol]+" "+row[timeCol], err)
			if hasID {
				e.WithRecord(row[idCol])
			}
			errs = append(errs, e)
			continue
		}
		out[i] = t
	}
	if err := apperrors.Join(errs); err != nil {
		return nil, err
	}
	return out, nil
}
