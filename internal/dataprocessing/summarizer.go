package dataprocessing

import (
	"math"
	"time"

	"salesclean/pkg/contracts/domain"
)

// ColumnSummary describes the final state of one output column.
type ColumnSummary struct {
	Column     string   `json:"column"`
	Dtype      string   `json:"dtype"`
	TotalRows  int      `json:"total_rows"`
	NonNull    int      `json:"non_null"`
	MissingPct float64  `json:"missing_pct"`
	Unique     int      `json:"unique"`
	Zeros      int      `json:"zeros"`
	Negatives  int      `json:"negatives"`
	Min        *float64 `json:"min,omitempty"`
	Mean       *float64 `json:"mean,omitempty"`
	Max        *float64 `json:"max,omitempty"`
}

// Numeric reports whether min, mean and max are available.
func (s ColumnSummary) Numeric() bool {
	return s.Min != nil
}

// Summarize builds the quality summary of a cleaned table, one entry per
// output column in column order. Percentages and statistics are rounded to
// two decimals.
func Summarize(records []domain.Transaction) []ColumnSummary {
	fields := domain.Fields()
	out := make([]ColumnSummary, 0, len(fields))
	for _, f := range fields {
		out = append(out, summarizeField(f, records))
	}
	return out
}

func summarizeField(f domain.Field, records []domain.Transaction) ColumnSummary {
	s := ColumnSummary{
		Column:    f.Name,
		Dtype:     dtype(f.Kind),
		TotalRows: len(records),
	}

	numeric := f.Kind == domain.KindInt || f.Kind == domain.KindFloat
	seen := make(map[string]struct{}, len(records))
	var sum, lo, hi float64
	var count int

	for i := range records {
		v := f.Value(&records[i])
		if isNull(v) {
			continue
		}
		s.NonNull++
		seen[f.Text(&records[i])] = struct{}{}

		if !numeric {
			continue
		}
		x := toFloat(v)
		if x == 0 {
			s.Zeros++
		}
		if x < 0 {
			s.Negatives++
		}
		if count == 0 || x < lo {
			lo = x
		}
		if count == 0 || x > hi {
			hi = x
		}
		sum += x
		count++
	}

	s.Unique = len(seen)
	if s.TotalRows > 0 {
		s.MissingPct = round2(100 * float64(s.TotalRows-s.NonNull) / float64(s.TotalRows))
	}
	if numeric && count > 0 {
		mean := round2(sum / float64(count))
		lo, hi = round2(lo), round2(hi)
		s.Min, s.Mean, s.Max = &lo, &mean, &hi
	}
	return s
}

func dtype(k domain.Kind) string {
	switch k {
	case domain.KindEnum:
		return "category"
	case domain.KindString:
		return "string"
	case domain.KindTimestamp:
		return "timestamp[ms]"
	default:
		return string(k)
	}
}

func isNull(v any) bool {
	switch x := v.(type) {
	case string:
		return x == ""
	case time.Time:
		return x.IsZero()
	case float64:
		return math.IsNaN(x)
	default:
		return false
	}
}

func toFloat(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case int64:
		return float64(x)
	default:
		return math.NaN()
	}
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
