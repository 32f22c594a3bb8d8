package dataprocessing

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/xuri/excelize/v2"

	apperrors "salesclean/internal/errors"
)

const utf8BOM = "\ufeff"

// RawTable is the input as read from disk: a header row and string cells.
// Rows are data rows only; entirely blank lines are dropped while reading.
type RawTable struct {
	Source string
	Header []string
	Rows   [][]string
}

// Len returns the number of data rows.
func (t *RawTable) Len() int {
	return len(t.Rows)
}

// Clone returns a deep copy of the table.
func (t *RawTable) Clone() *RawTable {
	out := &RawTable{
		Source: t.Source,
		Header: slices.Clone(t.Header),
		Rows:   make([][]string, len(t.Rows)),
	}
	for i, row := range t.Rows {
		out.Rows[i] = slices.Clone(row)
	}
	return out
}

// Index maps each header to its column position. When a header repeats, the
// first occurrence wins.
func (t *RawTable) Index() map[string]int {
	idx := make(map[string]int, len(t.Header))
	for i, h := range t.Header {
		if _, ok := idx[h]; !ok {
			idx[h] = i
		}
	}
	return idx
}

// LoadOptions controls how input files are read.
type LoadOptions struct {
	// Delimiter separates CSV fields. Zero means a comma.
	Delimiter rune
	// RequiredHeaders selects the worksheet of an Excel input: the first
	// sheet whose header row carries all of them is read.
	RequiredHeaders []string
	Logger          *slog.Logger
}

// LoadFile reads a .csv or .xlsx input file into a RawTable.
func LoadFile(ctx context.Context, path string, opts LoadOptions) (*RawTable, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var (
		table *RawTable
		err   error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv", ".txt":
		var f *os.File
		f, err = os.Open(path)
		if err != nil {
			return nil, apperrors.NewStorageError("failed to open input file", err).WithContext("path", path)
		}
		defer f.Close()
		table, err = ReadCSV(f, opts.Delimiter)
	case ".xlsx", ".xlsm":
		table, err = ReadXLSX(path, opts.RequiredHeaders)
	default:
		return nil, fmt.Errorf("unsupported input format %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	table.Source = path

	logger.InfoContext(ctx, "input loaded",
		slog.String("path", path),
		slog.Int("rows", table.Len()),
		slog.Int("columns", len(table.Header)))
	return table, nil
}

// ReadCSV reads delimited text. The first record is the header. Rows keep
// their own width so that the load stage can report ragged rows by number.
func ReadCSV(r io.Reader, delimiter rune) (*RawTable, error) {
	reader := csv.NewReader(r)
	if delimiter != 0 {
		reader.Comma = delimiter
	}
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("input has no header row")
	}

	header := records[0]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}

	table := &RawTable{Header: header}
	for _, rec := range records[1:] {
		if isBlank(rec) {
			continue
		}
		table.Rows = append(table.Rows, rec)
	}
	return table, nil
}

// ReadXLSX reads the first worksheet whose header row contains every required
// header. Cells are read as stored, without number formatting, and rows are
// padded to the header width because trailing empty cells are not returned.
func ReadXLSX(path string, required []string) (*RawTable, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
		}
		if len(rows) == 0 || !containsAll(rows[0], required) {
			continue
		}

		table := &RawTable{Header: rows[0]}
		for _, row := range rows[1:] {
			if isBlank(row) {
				continue
			}
			if len(row) < len(table.Header) {
				row = append(row, make([]string, len(table.Header)-len(row))...)
			}
			table.Rows = append(table.Rows, row)
		}
		return table, nil
	}
	return nil, fmt.Errorf("no worksheet carries the required headers")
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func containsAll(header, required []string) bool {
	for _, h := range required {
		if !slices.Contains(header, h) {
			return false
		}
	}
	return true
}
