package exporter

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"salesclean/pkg/contracts/domain"
)

func TestWriteXLSXRoundTrip(t *testing.T) {
	table, report := cleanedTable(t, 100)
	path := filepath.Join(t.TempDir(), "sales.xlsx")

	require.NoError(t, WriteXLSX(path, table.Records, report.Summary))

	got, err := ReadXLSX(path)
	require.NoError(t, err)
	assertSameRecords(t, table.Records, got)
}

func TestWriteXLSXReplacesExisting(t *testing.T) {
	table, report := cleanedTable(t, 5)
	dir := t.TempDir()
	path := filepath.Join(dir, "sales.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0o644))

	require.NoError(t, WriteXLSX(path, table.Records, report.Summary))

	got, err := ReadXLSX(path)
	require.NoError(t, err)
	assert.Len(t, got, 5)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary workbook must be renamed")
	assert.Equal(t, "sales.xlsx", entries[0].Name())
}

func TestWriteAtomicTempPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sales.xlsx")

	var seen string
	err := writeAtomic(path, func(tmp string) error {
		seen = tmp
		return errors.New("write failed")
	})
	require.Error(t, err)
	assert.Equal(t, dir, filepath.Dir(seen))
	assert.Equal(t, ".xlsx", filepath.Ext(seen))
	assert.NotEqual(t, path, seen)
	assert.NoFileExists(t, path)
}

func TestWriteXLSXWorkbook(t *testing.T) {
	table, report := cleanedTable(t, 10)
	path := filepath.Join(t.TempDir(), "sales.xlsx")
	require.NoError(t, WriteXLSX(path, table.Records, report.Summary))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{DataSheet, QualitySheet}, f.GetSheetList())

	t.Run("data sheet", func(t *testing.T) {
		rows, err := f.GetRows(DataSheet)
		require.NoError(t, err)
		require.Len(t, rows, 11)
		assert.Equal(t, domain.ColumnNames(), rows[0])

		validations, err := f.GetDataValidations(DataSheet)
		require.NoError(t, err)
		enums := 0
		for _, fld := range domain.Fields() {
			if fld.Kind == domain.KindEnum {
				enums++
			}
		}
		assert.Len(t, validations, enums)
	})

	t.Run("quality sheet", func(t *testing.T) {
		rows, err := f.GetRows(QualitySheet, excelize.Options{RawCellValue: true})
		require.NoError(t, err)
		require.Len(t, rows, len(report.Summary)+1)
		assert.Equal(t, qualityHeaders, rows[0])

		for i, s := range report.Summary {
			row := rows[i+1]
			assert.Equal(t, s.Column, row[0])
			assert.Equal(t, s.Dtype, row[1])
			assert.Equal(t, strconv.Itoa(s.TotalRows), row[2])
			if s.Numeric() {
				require.Len(t, row, len(qualityHeaders))
				mean, err := strconv.ParseFloat(row[9], 64)
				require.NoError(t, err)
				assert.InDelta(t, *s.Mean, mean, 1e-9)
			}
		}
	})
}

func TestWriteXLSXEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.xlsx")
	require.NoError(t, WriteXLSX(path, nil, nil))

	got, err := ReadXLSX(path)
	require.NoError(t, err)
	assert.Empty(t, got)
}
