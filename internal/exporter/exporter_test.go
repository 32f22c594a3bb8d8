package exporter

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"salesclean/internal/dataprocessing"
	"salesclean/internal/shared/testutil"
)

func TestNew(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)

	exp, err := New(Options{Dir: "out", Base: "SupermarketSales_Cleaned"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("out", "SupermarketSales_Cleaned.parquet"), exp.Path(FormatParquet))
	assert.Equal(t, filepath.Join("out", "SupermarketSales_Cleaned.xlsx"), exp.Path(FormatXLSX))
	assert.Equal(t, filepath.Join("out", "SupermarketSales_Cleaned.manifest.json"), exp.ManifestPath())
	assert.Equal(t, filepath.Join("out", "SupermarketSales_Cleaned.warnings.csv"), exp.WarningsPath())
	assert.Equal(t, DefaultFormats, exp.opts.Formats)
}

func TestExportAllFormats(t *testing.T) {
	table, report := cleanedTable(t, 60)
	dir := filepath.Join(t.TempDir(), "nested", "out")

	logger, handler := testutil.NewTestLogger(t)
	exp, err := New(Options{
		Dir:             dir,
		Base:            "SupermarketSales_Cleaned",
		Formats:         []Format{FormatParquet, FormatXLSX, FormatArrow, FormatCSV},
		ContractVersion: "1",
		WriteManifest:   true,
		WriteWarnings:   true,
		Logger:          logger,
	})
	require.NoError(t, err)

	manifest, err := exp.Export(context.Background(), table, report)
	require.NoError(t, err)
	require.Len(t, manifest.Outputs, 4)

	for _, out := range manifest.Outputs {
		assert.Equal(t, exp.Path(out.Format), out.Path)
		assert.FileExists(t, out.Path)
	}

	parquetRecords, err := ReadParquet(exp.Path(FormatParquet))
	require.NoError(t, err)
	assertSameRecords(t, table.Records, parquetRecords)

	xlsxRecords, err := ReadXLSX(exp.Path(FormatXLSX))
	require.NoError(t, err)
	assertSameRecords(t, table.Records, xlsxRecords)

	arrowRecords, err := ReadArrow(exp.Path(FormatArrow))
	require.NoError(t, err)
	assertSameRecords(t, table.Records, arrowRecords)

	csvRecords, err := ReadCSVTable(exp.Path(FormatCSV))
	require.NoError(t, err)
	assertSameRecords(t, table.Records, csvRecords)

	// A clean run has nothing to list.
	assert.NoFileExists(t, exp.WarningsPath())

	stored, err := ReadManifest(exp.ManifestPath())
	require.NoError(t, err)
	assert.Equal(t, report.RunID, stored.RunID)
	assert.NoError(t, stored.Verify())

	stage, ok := report.Stage(dataprocessing.StageExport)
	require.True(t, ok)
	assert.Equal(t, 60, stage.Rows)
	assert.False(t, stage.Failed)

	assert.Len(t, handler.RecordsWithMessage("output written"), 4)
	testutil.AssertNoErrors(t, handler)
}

func TestExportWritesWarnings(t *testing.T) {
	raw := &dataprocessing.RawTable{
		Source: "fixture.csv",
		Header: append([]string(nil), testutil.SalesHeader...),
		Rows:   testutil.SalesRows(8),
	}
	raw.Rows[3][testutil.SalesColumn("Sales")] = "1"
	table, report, err := dataprocessing.Run(context.Background(), raw, dataprocessing.Options{})
	require.NoError(t, err)
	require.Equal(t, 1, report.WarningCount())

	exp, err := New(Options{
		Dir:           t.TempDir(),
		Base:          "sales",
		Formats:       []Format{FormatCSV},
		WriteWarnings: true,
	})
	require.NoError(t, err)

	manifest, err := exp.Export(context.Background(), table, report)
	require.NoError(t, err)
	assert.Equal(t, 1, manifest.Warnings)
	assert.Equal(t, []string{report.NonConforming[0]}, manifest.NonConforming)
	assert.NoFileExists(t, exp.ManifestPath())

	content, err := os.ReadFile(exp.WarningsPath())
	require.NoError(t, err)
	assert.Contains(t, string(content), "financial_identity")
	assert.Contains(t, string(content), report.NonConforming[0])
}

func TestExportSpan(t *testing.T) {
	table, report := cleanedTable(t, 5)
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	exp, err := New(Options{
		Dir:     t.TempDir(),
		Base:    "sales",
		Formats: []Format{FormatCSV},
		Tracer:  provider.Tracer(TracerName),
	})
	require.NoError(t, err)

	_, err = exp.Export(context.Background(), table, report)
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "pipeline.stage.export", spans[0].Name())
}

func TestExportCancelled(t *testing.T) {
	table, report := cleanedTable(t, 5)
	exp, err := New(Options{Dir: t.TempDir(), Base: "sales"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = exp.Export(ctx, table, report)
	require.ErrorIs(t, err, context.Canceled)
	assert.NoFileExists(t, exp.Path(FormatParquet))

	stage, ok := report.Stage(dataprocessing.StageExport)
	require.True(t, ok)
	assert.True(t, stage.Failed)
}

func TestExportFailureLog(t *testing.T) {
	table, report := cleanedTable(t, 5)
	logger, handler := testutil.NewTestLogger(t)
	exp, err := New(Options{Dir: t.TempDir(), Base: "sales", Logger: logger})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = exp.Export(ctx, table, report)
	require.Error(t, err)

	failed := handler.RecordsWithMessage("export failed")
	require.Len(t, failed, 1)
	assert.Equal(t, "exporter", failed[0].Attrs["component"])
	assert.Equal(t, err.Error(), failed[0].Attrs["error"])
}
