package exporter

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"salesclean/internal/dataprocessing"
	"salesclean/pkg/contracts/domain"
)

// Sheet names of the spreadsheet output.
const (
	DataSheet    = "Cleaned Data"
	QualitySheet = "Quality Report"
)

var qualityHeaders = []string{
	"column", "dtype", "total_rows", "non_null", "missing_pct",
	"unique", "zeros", "negatives", "min", "mean", "max",
}

// WriteXLSX writes the cleaned records to the "Cleaned Data" sheet and the
// quality summary to the "Quality Report" sheet. Numbers are stored as
// numbers at full precision, timestamps as text in domain.TimestampLayout,
// and categorical columns get a drop-down list of their permitted values.
func WriteXLSX(path string, records []domain.Transaction, summary []dataprocessing.ColumnSummary) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), DataSheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	if err := writeDataSheet(f, records); err != nil {
		return err
	}
	if _, err := f.NewSheet(QualitySheet); err != nil {
		return fmt.Errorf("failed to create quality sheet: %w", err)
	}
	if err := writeQualitySheet(f, summary); err != nil {
		return err
	}
	f.SetActiveSheet(0)

	return writeAtomic(path, func(tmp string) error {
		if err := f.SaveAs(tmp); err != nil {
			return fmt.Errorf("failed to save workbook: %w", err)
		}
		return nil
	})
}

func writeDataSheet(f *excelize.File, records []domain.Transaction) error {
	fields := domain.Fields()
	if err := writeHeader(f, DataSheet, domain.ColumnNames()); err != nil {
		return err
	}

	for i := range records {
		row := make([]interface{}, len(fields))
		for j, fld := range fields {
			switch v := fld.Value(&records[i]).(type) {
			case float64, int64, string:
				row[j] = v
			case time.Time:
				row[j] = v.UTC().Format(domain.TimestampLayout)
			default:
				row[j] = fld.Text(&records[i])
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(DataSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	lastRow := len(records) + 1
	for j, fld := range fields {
		if fld.Kind != domain.KindEnum || len(records) == 0 {
			continue
		}
		col, err := excelize.ColumnNumberToName(j + 1)
		if err != nil {
			return err
		}
		dv := excelize.NewDataValidation(true)
		dv.Sqref = fmt.Sprintf("%s2:%s%d", col, col, lastRow)
		if err := dv.SetDropList(fld.Levels); err != nil {
			return fmt.Errorf("failed to build drop list for %s: %w", fld.Name, err)
		}
		if err := f.AddDataValidation(DataSheet, dv); err != nil {
			return fmt.Errorf("failed to add validation for %s: %w", fld.Name, err)
		}
	}

	lastCol, err := excelize.ColumnNumberToName(len(fields))
	if err != nil {
		return err
	}
	if err := f.SetColWidth(DataSheet, "A", lastCol, 18); err != nil {
		return err
	}
	if len(records) > 0 {
		if err := f.AutoFilter(DataSheet, fmt.Sprintf("A1:%s%d", lastCol, lastRow), nil); err != nil {
			return fmt.Errorf("failed to add filter: %w", err)
		}
	}
	return f.SetPanes(DataSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func writeQualitySheet(f *excelize.File, summary []dataprocessing.ColumnSummary) error {
	if err := writeHeader(f, QualitySheet, qualityHeaders); err != nil {
		return err
	}
	for i, s := range summary {
		row := []interface{}{
			s.Column, s.Dtype, s.TotalRows, s.NonNull, s.MissingPct,
			s.Unique, s.Zeros, s.Negatives, nil, nil, nil,
		}
		if s.Numeric() {
			row[8], row[9], row[10] = *s.Min, *s.Mean, *s.Max
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(QualitySheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write summary row %d: %w", i+1, err)
		}
	}
	return f.SetColWidth(QualitySheet, "A", "K", 16)
}

func writeHeader(f *excelize.File, sheet string, headers []string) error {
	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DDEBF7"}},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	row := make([]interface{}, len(headers))
	for i, h := range headers {
		row[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &row); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "A1", last, style)
}

// ReadXLSX reads the "Cleaned Data" sheet of a file written by WriteXLSX.
func ReadXLSX(path string) ([]domain.Transaction, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(DataSheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", DataSheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", DataSheet)
	}

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
