package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesclean/internal/exporter"
	"salesclean/internal/infrastructure"
	"salesclean/internal/shared/testutil"
	"salesclean/pkg/contracts"
)

// isolate sends logs to a file under dir and restores the global logger
// when the test ends.
func isolate(t *testing.T, dir string) string {
	t.Helper()
	logFile := filepath.Join(dir, "logs", "cleaner.log")
	t.Setenv("SALESCLEAN_LOGGING_OUTPUT", "file")
	t.Setenv("SALESCLEAN_LOGGING_FILE_PATH", logFile)

	previous := slog.Default()
	infrastructure.ResetLoggerForTesting()
	t.Cleanup(func() {
		infrastructure.ResetLoggerForTesting()
		slog.SetDefault(previous)
	})
	return logFile
}

func TestParseFlags(t *testing.T) {
	var out bytes.Buffer
	f, err := parseFlags([]string{"-in", "a.csv", "-out", "dist", "-base", "clean", "-config", "c.yaml"}, &out)
	require.NoError(t, err)
	assert.Equal(t, &cliFlags{input: "a.csv", output: "dist", base: "clean", configPath: "c.yaml"}, f)

	f, err = parseFlags(nil, &out)
	require.NoError(t, err)
	assert.Equal(t, &cliFlags{}, f)

	_, err = parseFlags([]string{"-bogus"}, &out)
	assert.Error(t, err)

	_, err = parseFlags([]string{"extra"}, &out)
	assert.ErrorContains(t, err, "unexpected arguments")
}

func TestRunVersionAndHelp(t *testing.T) {
	var out bytes.Buffer
	assert.Equal(t, exitOK, run(context.Background(), []string{"-version"}, &out))
	assert.Contains(t, out.String(), contracts.GetVersionString())

	out.Reset()
	assert.Equal(t, exitOK, run(context.Background(), []string{"-h"}, &out))
	assert.Contains(t, out.String(), "-base")

	assert.Equal(t, exitFailure, run(context.Background(), []string{"-bogus"}, &out))
}

func TestRunCleansFile(t *testing.T) {
	dir := t.TempDir()
	logFile := isolate(t, dir)
	input := testutil.WriteValidSalesCSV(t, dir, 50)
	outDir := filepath.Join(dir, "out")

	var out bytes.Buffer
	code := run(context.Background(), []string{"-in", input, "-out", outDir, "-base", "sales"}, &out)
	require.Equal(t, exitOK, code, out.String())
	assert.Contains(t, out.String(), "Cleaned 50 of 50 rows with 0 warnings")

	parquetPath := filepath.Join(outDir, "sales.parquet")
	assert.FileExists(t, filepath.Join(outDir, "sales.xlsx"))
	assert.NoFileExists(t, filepath.Join(outDir, "sales.warnings.csv"))

	records, err := exporter.ReadParquet(parquetPath)
	require.NoError(t, err)
	assert.Len(t, records, 50)

	manifest, err := exporter.ReadManifest(filepath.Join(outDir, "sales.manifest.json"))
	require.NoError(t, err)
	assert.Equal(t, 50, manifest.OutputRows)
	assert.Len(t, manifest.Outputs, 2)
	assert.NoError(t, manifest.Verify())

	logs, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(logs), "pipeline completed")
	assert.Contains(t, string(logs), manifest.RunID)
}

func TestRunWarnings(t *testing.T) {
	tests := []struct {
		name          string
		failOnWarning string
		wantCode      int
	}{
		{name: "warnings allowed", failOnWarning: "false", wantCode: exitOK},
		{name: "fail on warning", failOnWarning: "true", wantCode: exitWarnings},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			isolate(t, dir)
			t.Setenv("SALESCLEAN_VALIDATION_FAIL_ON_WARNING", tt.failOnWarning)

			rows := testutil.SalesRows(10)
			rows[4][testutil.SalesColumn("Sales")] = "1"
			input := testutil.WriteSalesCSV(t, dir, "sales.csv", testutil.SalesHeader, rows)
			outDir := filepath.Join(dir, "out")

			var out bytes.Buffer
			code := run(context.Background(), []string{"-in", input, "-out", outDir, "-base", "sales"}, &out)
			assert.Equal(t, tt.wantCode, code, out.String())
			assert.Contains(t, out.String(), "with 1 warnings (1 non-conforming)")

			// Warnings never block the export.
			assert.FileExists(t, filepath.Join(outDir, "sales.parquet"))
			content, err := os.ReadFile(filepath.Join(outDir, "sales.warnings.csv"))
			require.NoError(t, err)
			assert.Contains(t, string(content), rows[4][0])
		})
	}
}

func TestRunFailures(t *testing.T) {
	tests := []struct {
		name      string
		wantTitle string
		setup     func(t *testing.T, dir string) string
	}{
		{
			name:      "missing input",
			wantTitle: "Run Failed",
			setup: func(t *testing.T, dir string) string {
				return filepath.Join(dir, "missing.csv")
			},
		},
		{
			name:      "malformed date",
			wantTitle: "Input Data Rejected",
			setup: func(t *testing.T, dir string) string {
				rows := testutil.SalesRows(5)
				rows[2][testutil.SalesColumn("Date")] = "31/31/2019"
				return testutil.WriteSalesCSV(t, dir, "sales.csv", testutil.SalesHeader, rows)
			},
		},
		{
			name:      "missing column",
			wantTitle: "Input Data Rejected",
			setup: func(t *testing.T, dir string) string {
				header := append([]string(nil), testutil.SalesHeader[:len(testutil.SalesHeader)-1]...)
				rows := testutil.SalesRows(3)
				for i := range rows {
					rows[i] = rows[i][:len(header)]
				}
				return testutil.WriteSalesCSV(t, dir, "sales.csv", header, rows)
			},
		},
		{
			name:      "invalid contract",
			wantTitle: "Invalid Column Contract",
			setup: func(t *testing.T, dir string) string {
				contractPath := filepath.Join(dir, "contract.yaml")
				require.NoError(t, os.WriteFile(contractPath, []byte("version: x\ncolumns: []\n"), 0o644))
				t.Setenv("SALESCLEAN_CONTRACT_PATH", contractPath)
				return testutil.WriteValidSalesCSV(t, dir, 5)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			isolate(t, dir)
			input := tt.setup(t, dir)
			outDir := filepath.Join(dir, "out")

			var out bytes.Buffer
			code := run(context.Background(), []string{"-in", input, "-out", outDir, "-base", "sales"}, &out)
			assert.Equal(t, exitFailure, code)
			assert.Contains(t, out.String(), tt.wantTitle)
			assert.NoFileExists(t, filepath.Join(outDir, "sales.parquet"))
			assert.NoFileExists(t, filepath.Join(outDir, "sales.manifest.json"))
		})
	}
}

func TestRunInvalidOverride(t *testing.T) {
	dir := t.TempDir()
	isolate(t, dir)
	input := testutil.WriteValidSalesCSV(t, dir, 5)

	var out bytes.Buffer
	code := run(context.Background(), []string{"-in", input, "-out", dir, "-base", "nested/name"}, &out)
	assert.Equal(t, exitFailure, code)
}

func TestRunCancelled(t *testing.T) {
	dir := t.TempDir()
	isolate(t, dir)
	input := testutil.WriteValidSalesCSV(t, dir, 5)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	code := run(ctx, []string{"-in", input, "-out", filepath.Join(dir, "out"), "-base", "sales"}, &out)
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, out.String(), "Run Cancelled")
}

func TestRunWritesTelemetry(t *testing.T) {
	dir := t.TempDir()
	isolate(t, dir)
	traceFile := filepath.Join(dir, "telemetry", "traces.jsonl")
	metricsFile := filepath.Join(dir, "telemetry", "metrics.prom")
	t.Setenv("SALESCLEAN_TELEMETRY_ENABLED", "true")
	t.Setenv("SALESCLEAN_TELEMETRY_TRACE_FILE", traceFile)
	t.Setenv("SALESCLEAN_TELEMETRY_METRICS_FILE", metricsFile)
	t.Setenv("SALESCLEAN_OUTPUT_FORMATS", "csv,arrow")

	input := testutil.WriteValidSalesCSV(t, dir, 20)
	outDir := filepath.Join(dir, "out")

	var out bytes.Buffer
	code := run(context.Background(), []string{"-in", input, "-out", outDir, "-base", "sales"}, &out)
	require.Equal(t, exitOK, code, out.String())
	assert.FileExists(t, filepath.Join(outDir, "sales.csv"))
	assert.FileExists(t, filepath.Join(outDir, "sales.arrow"))

	traces, err := os.ReadFile(traceFile)
	require.NoError(t, err)
	assert.Contains(t, string(traces), `"Name":"pipeline.run"`)
	assert.Contains(t, string(traces), `"Name":"pipeline.stage.export"`)

	metrics, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), "salesclean_runs_total")
	assert.Contains(t, string(metrics), "salesclean_output_bytes")
}
