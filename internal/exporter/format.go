package exporter

import (
	"fmt"
	"strconv"
	"strings"

	"salesclean/pkg/contracts/domain"
)

// Format names an output file format.
type Format string

const (
	FormatParquet Format = "parquet"
	FormatXLSX    Format = "xlsx"
	FormatArrow   Format = "arrow"
	FormatCSV     Format = "csv"
)

// DefaultFormats are written when none are configured.
var DefaultFormats = []Format{FormatParquet, FormatXLSX}

// Extension returns the file extension of the format, without the dot.
func (f Format) Extension() string {
	return string(f)
}

// ParseFormats converts format names to formats. Names are case-insensitive,
// duplicates are dropped and an empty list selects DefaultFormats.
func ParseFormats(names []string) ([]Format, error) {
	if len(names) == 0 {
		return append([]Format(nil), DefaultFormats...), nil
	}

	seen := make(map[Format]bool)
	var formats []Format
	for _, name := range names {
		f := Format(strings.ToLower(strings.TrimSpace(name)))
		switch f {
		case FormatParquet, FormatXLSX, FormatArrow, FormatCSV:
		case "feather", "ipc":
			f = FormatArrow
		default:
			return nil, fmt.Errorf("unknown output format %q", name)
		}
		if !seen[f] {
			seen[f] = true
			formats = append(formats, f)
		}
	}
	return formats, nil
}

// textRow renders a record as canonical text, one cell per output column.
func textRow(fields []domain.Field, rec *domain.Transaction) []string {
	row := make([]string, len(fields))
	for i, f := range fields {
		row[i] = f.Text(rec)
	}
	return row
}

// textFields resolves a header row of output column names to fields.
func textFields(header []string) ([]domain.Field, error) {
	fields := make([]domain.Field, len(header))
	for i, name := range header {
		f, ok := domain.LookupField(name)
		if !ok {
			return nil, fmt.Errorf("unknown column %q", name)
		}
		fields[i] = f
	}
	return fields, nil
}

// parseTextRow is the inverse of textRow.
func parseTextRow(fields []domain.Field, row []string) (domain.Transaction, error) {
	var rec domain.Transaction
	if len(row) != len(fields) {
		return rec, fmt.Errorf("expected %d cells, got %d", len(fields), len(row))
	}
	for i, f := range fields {
		if err := f.Parse(&rec, row[i]); err != nil {
			return rec, fmt.Errorf("column %s: %w", f.Name, err)
		}
	}
	return rec, nil
}

// formatFloat renders the shortest text that parses back to exactly f.
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
