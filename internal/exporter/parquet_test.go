package exporter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesclean/pkg/contracts/domain"
)

func openParquet(t *testing.T, path string) *parquet.File {
	t.Helper()
	file, err := os.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { file.Close() })

	info, err := file.Stat()
	require.NoError(t, err)

	pf, err := parquet.OpenFile(file, info.Size())
	require.NoError(t, err)
	return pf
}

func TestWriteParquetRoundTrip(t *testing.T) {
	table, _ := cleanedTable(t, 200)
	path := filepath.Join(t.TempDir(), "sales.parquet")

	require.NoError(t, WriteParquet(path, table.Records, map[string]string{"run_id": "run-1"}))

	got, err := ReadParquet(path)
	require.NoError(t, err)
	assertSameRecords(t, table.Records, got)
}

func TestWriteParquetSchema(t *testing.T) {
	table, _ := cleanedTable(t, 30)
	path := filepath.Join(t.TempDir(), "sales.parquet")
	require.NoError(t, WriteParquet(path, table.Records, map[string]string{
		"run_id":           "run-42",
		"contract_version": "1",
	}))

	pf := openParquet(t, path)
	assert.Equal(t, int64(30), pf.NumRows())

	runID, ok := pf.Lookup("run_id")
	require.True(t, ok)
	assert.Equal(t, "run-42", runID)
	version, ok := pf.Lookup("contract_version")
	require.True(t, ok)
	assert.Equal(t, "1", version)

	schema := pf.Schema()
	for _, f := range domain.Fields() {
		leaf, ok := schema.Lookup(f.Name)
		require.True(t, ok, "column %s", f.Name)

		logical := leaf.Node.Type().LogicalType()
		switch f.Kind {
		case domain.KindEnum:
			require.NotNil(t, logical, "column %s", f.Name)
			assert.NotNil(t, logical.Enum, "column %s should be an enum", f.Name)
		case domain.KindTimestamp:
			require.NotNil(t, logical)
			require.NotNil(t, logical.Timestamp)
			assert.NotNil(t, logical.Timestamp.Unit.Millis)
		}
	}
}

func TestWriteParquetEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.parquet")
	require.NoError(t, WriteParquet(path, nil, nil))

	got, err := ReadParquet(path)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestReadParquetMissing(t *testing.T) {
	_, err := ReadParquet(filepath.Join(t.TempDir(), "missing.parquet"))
	assert.Error(t, err)
}
