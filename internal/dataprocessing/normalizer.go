package dataprocessing

import (
	"slices"
	"strings"

	"golang.org/x/text/unicode/norm"

	"salesclean/internal/contract"
	apperrors "salesclean/internal/errors"
	"salesclean/pkg/contracts/domain"
)

// Normalizer cleans raw cells and rewrites long category labels to the short
// codes declared in the column contract.
type Normalizer struct {
	mappings map[string]map[string]string // by raw header
	values   map[string][]string          // permitted values of mapped columns, by raw header
	columns  map[string]string            // output column name, by raw header
	idHeader string
}

// NewNormalizer creates a normalizer for the mappings of c.
func NewNormalizer(c *contract.Contract) *Normalizer {
	n := &Normalizer{
		mappings: make(map[string]map[string]string),
		values:   make(map[string][]string),
		columns:  make(map[string]string),
	}
	for _, col := range c.Columns {
		if col.Name == domain.ColInvoiceID {
			n.idHeader = col.Header
		}
		if len(col.Mappings) == 0 {
			continue
		}
		n.mappings[col.Header] = col.Mappings
		n.values[col.Header] = col.Values
		n.columns[col.Header] = col.Name
	}
	return n
}

// CleanString applies NFKC folding, trims the value and collapses every run
// of internal whitespace (tabs, no-break spaces, repeated spaces) to a single
// space.
func CleanString(s string) string {
	return strings.Join(strings.Fields(norm.NFKC.String(s)), " ")
}

// Value normalizes one cell of the column with the given raw header. The
// second result is false when the column has mappings and the cleaned value
// is neither a mapped label nor an already permitted code; such values are
// returned unchanged. Applying Value to its own output never changes it.
func (n *Normalizer) Value(header, s string) (string, bool) {
	s = CleanString(s)
	mapping, ok := n.mappings[header]
	if !ok {
		return s, true
	}
	if short, ok := mapping[s]; ok {
		return short, true
	}
	return s, slices.Contains(n.values[header], s)
}

// Normalize returns a cleaned copy of raw. Every cell is cleaned; mapped
// columns are rewritten to short codes. Unmapped values pass through and are
// reported as warnings.
func (n *Normalizer) Normalize(raw *RawTable) (*RawTable, []*apperrors.PipelineError) {
	out := raw.Clone()
	idx := out.Index()
	idCol, hasID := idx[n.idHeader]

	var warnings []*apperrors.PipelineError
	for i, row := range out.Rows {
		for j := range row {
			row[j] = CleanString(row[j])
		}
		for header := range n.mappings {
			col, ok := idx[header]
			if !ok || col >= len(row) {
				continue
			}
			v, mapped := n.Value(header, row[col])
			row[col] = v
			if mapped {
				continue
			}

			w := apperrors.NewValidationWarning(StageNormalize, apperrors.RuleUnmappedValue, i+1, "",
				n.columns[header], "one of "+describeMapping(n.mappings[header], n.values[header]), v)
			if hasID && idCol < len(row) {
				w.WithRecord(row[idCol])
			}
			warnings = append(warnings, w)
		}
	}
	// Mapped columns are visited in map order; keep warnings in row order.
	slices.SortStableFunc(warnings, func(a, b *apperrors.PipelineError) int {
		if a.Row != b.Row {
			return a.Row - b.Row
		}
		return strings.Compare(a.Column, b.Column)
	})
	return out, warnings
}

func describeMapping(mapping map[string]string, values []string) string {
	labels := make([]string, 0, len(mapping)+len(values))
	for long := range mapping {
		labels = append(labels, long)
	}
	slices.Sort(labels)
	labels = append(labels, values...)
	return "{" + strings.Join(labels, ", ") + "}"
}
