package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	apperrors "salesclean/internal/errors"
	"salesclean/pkg/contracts/domain"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVWriter provides CSV export functionality
type CSVWriter struct {
	logger *slog.Logger
}

// NewCSVWriter creates a new CSV writer instance
func NewCSVWriter(logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{logger: logger}
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
}

// WriteCSV writes data to a CSV file with the given options, replacing any
// existing file.
func (w *CSVWriter) WriteCSV(filePath string, options WriteOptions) error {
	w.logger.Debug("Writing CSV file",
		slog.String("file_path", filePath),
		slog.Int("record_count", len(options.Records)))

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	return writeAtomic(filePath, func(tmp string) error {
		file, err := os.Create(tmp)
		if err != nil {
			return fmt.Errorf("failed to open file: %w", err)
		}
		defer file.Close()

		if err := writeCSV(file, options); err != nil {
			return err
		}
		return file.Close()
	})
}

func writeCSV(out io.Writer, options WriteOptions) error {
	if options.BOMPrefix {
		if _, err := out.Write(utf8BOM); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(out)
	if len(options.Headers) > 0 {
		if err := writer.Write(options.Headers); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}
	for i, record := range options.Records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteTable writes the cleaned records as CSV: output column names as the
// header, canonical text cells and a BOM so spreadsheet tools detect UTF-8.
func (w *CSVWriter) WriteTable(filePath string, records []domain.Transaction) error {
	fields := domain.Fields()
	rows := make([][]string, len(records))
	for i := range records {
		rows[i] = textRow(fields, &records[i])
	}
	return w.WriteCSV(filePath, WriteOptions{
		Headers:   domain.ColumnNames(),
		Records:   rows,
		BOMPrefix: true,
	})
}

// WriteWarnings writes one line per pipeline problem, for manual correction
// of the source file.
func (w *CSVWriter) WriteWarnings(filePath string, problems []*apperrors.PipelineError) error {
	rows := make([][]string, len(problems))
	for i, p := range problems {
		row := ""
		if p.Row > 0 {
			row = strconv.Itoa(p.Row)
		}
		rows[i] = []string{string(p.Type), p.Stage, p.Rule, row, p.RecordID, p.Column, p.Expected, p.Actual}
	}
	return w.WriteCSV(filePath, WriteOptions{
		Headers:   []string{"type", "stage", "rule", "row", "invoice_id", "column", "expected", "actual"},
		Records:   rows,
		BOMPrefix: true,
	})
}

// ReadCSVTable reads a file written by WriteTable back into records.
func ReadCSVTable(filePath string) ([]domain.Transaction, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to open CSV output", err).WithContext("path", filePath)
	}
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("CSV output has no header row")
	}
	rows[0][0] = strings.TrimPrefix(rows[0][0], string(utf8BOM))

	fields, err := textFields(rows[0])
	if err != nil {
		return nil, err
	}
	records := make([]domain.Transaction, 0, len(rows)-1)
	for i, row := range rows[1:] {
		rec, err := parseTextRow(fields, row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// writeAtomic lets fn write to a temporary file next to path and renames it
// into place once fn succeeds.
func writeAtomic(path string, fn func(tmp string) error) error {
	tmp := tempPath(path)
	if err := fn(tmp); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return apperrors.NewStorageError("failed to move output into place", err).WithContext("path", path)
	}
	return nil
}

// tempPath keeps the extension of path, since some writers (excelize) pick
// the file format from it.
func tempPath(path string) string {
	return filepath.Join(filepath.Dir(path), ".tmp-"+filepath.Base(path))
}
