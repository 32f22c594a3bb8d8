package exporter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "salesclean/internal/errors"
)

func TestChecksum(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.bin")
	b := filepath.Join(dir, "b.bin")
	require.NoError(t, os.WriteFile(a, []byte("same content"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("same content"), 0o644))

	sumA, err := Checksum(a)
	require.NoError(t, err)
	sumB, err := Checksum(b)
	require.NoError(t, err)

	assert.Len(t, sumA, 64)
	assert.Equal(t, sumA, sumB)

	require.NoError(t, os.WriteFile(b, []byte("other content"), 0o644))
	sumB, err = Checksum(b)
	require.NoError(t, err)
	assert.NotEqual(t, sumA, sumB)

	_, err = Checksum(filepath.Join(dir, "missing"))
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrTypeStorage, appErr.Type)
}

func TestManifestRoundTrip(t *testing.T) {
	table, report := cleanedTable(t, 25)
	dir := t.TempDir()

	path := filepath.Join(dir, "sales.parquet")
	require.NoError(t, WriteParquet(path, table.Records, nil))
	artifact, err := Describe(FormatParquet, path)
	require.NoError(t, err)
	assert.Positive(t, artifact.Size)

	m := NewManifest(report, "1", []Artifact{artifact})
	assert.Equal(t, report.RunID, m.RunID)
	assert.Equal(t, 25, m.InputRows)
	assert.Equal(t, 25, m.OutputRows)
	assert.NotNil(t, m.NonConforming)
	assert.Zero(t, m.Warnings)

	manifestPath := filepath.Join(dir, "sales.manifest.json")
	require.NoError(t, WriteManifest(manifestPath, m))

	got, err := ReadManifest(manifestPath)
	require.NoError(t, err)
	assert.Equal(t, m.RunID, got.RunID)
	assert.Equal(t, "1", got.ContractVersion)
	assert.Equal(t, m.Outputs, got.Outputs)
	assert.Equal(t, m.Tolerance, got.Tolerance)
	assert.Len(t, got.Stages, len(report.Stages))
	assert.NoError(t, got.Verify())
}

func TestManifestVerifyDetectsChanges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b\n1,2\n"), 0o644))

	artifact, err := Describe(FormatCSV, path)
	require.NoError(t, err)
	m := &Manifest{Outputs: []Artifact{artifact}}
	require.NoError(t, m.Verify())

	require.NoError(t, os.WriteFile(path, []byte("a,b\n1,3\n"), 0o644))
	assert.ErrorContains(t, m.Verify(), "checksum mismatch")

	require.NoError(t, os.Remove(path))
	assert.Error(t, m.Verify())
}

func TestReadManifestMissing(t *testing.T) {
	_, err := ReadManifest(filepath.Join(t.TempDir(), "none.json"))
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrTypeNotFound, appErr.Type)
}
