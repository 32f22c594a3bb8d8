package exporter

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/crypto/blake2b"

	"salesclean/internal/dataprocessing"
	apperrors "salesclean/internal/errors"
)

// Artifact describes one written output file.
type Artifact struct {
	Format   Format `json:"format"`
	Path     string `json:"path"`
	Size     int64  `json:"size"`
	Checksum string `json:"blake2b_256"`
}

// Manifest is the JSON sidecar written after a successful export.
type Manifest struct {
	RunID           string                       `json:"run_id"`
	GeneratedAt     time.Time                    `json:"generated_at"`
	Source          string                       `json:"source,omitempty"`
	ContractVersion string                       `json:"contract_version,omitempty"`
	InputRows       int                          `json:"input_rows"`
	OutputRows      int                          `json:"output_rows"`
	Tolerance       dataprocessing.Tolerance     `json:"tolerance"`
	Stages          []dataprocessing.StageResult `json:"stages"`
	Warnings        int                          `json:"warnings"`
	WarningsByRule  map[string]int               `json:"warnings_by_rule,omitempty"`
	NonConforming   []string                     `json:"non_conforming"`
	Outputs         []Artifact                   `json:"outputs"`
}

// NewManifest summarizes report and the written outputs.
func NewManifest(report *dataprocessing.Report, contractVersion string, outputs []Artifact) *Manifest {
	nonConforming := report.NonConforming
	if nonConforming == nil {
		nonConforming = []string{}
	}
	return &Manifest{
		RunID:           report.RunID,
		GeneratedAt:     time.Now().UTC(),
		Source:          report.Source,
		ContractVersion: contractVersion,
		InputRows:       report.InputRows,
		OutputRows:      report.OutputRows,
		Tolerance:       report.Tolerance,
		Stages:          report.Stages,
		Warnings:        report.WarningCount(),
		WarningsByRule:  report.WarningsByRule(),
		NonConforming:   nonConforming,
		Outputs:         outputs,
	}
}

// Checksum returns the hex BLAKE2b-256 digest of the file at path.
func Checksum(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", apperrors.NewStorageError("failed to open file for checksum", err).WithContext("path", path)
	}
	defer file.Close()

	h, err := blake2b.New256(nil)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(h, file); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Describe stats and hashes a written file.
func Describe(format Format, path string) (Artifact, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Artifact{}, apperrors.NewStorageError("failed to stat output", err).WithContext("path", path)
	}
	sum, err := Checksum(path)
	if err != nil {
		return Artifact{}, err
	}
	return Artifact{Format: format, Path: path, Size: info.Size(), Checksum: sum}, nil
}

// WriteManifest writes m as indented JSON.
func WriteManifest(path string, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return writeAtomic(path, func(tmp string) error {
		return os.WriteFile(tmp, append(data, '\n'), 0644)
	})
}

// ReadManifest reads a manifest written by WriteManifest.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewNotFoundError("manifest " + path)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode manifest: %w", err)
	}
	return &m, nil
}

// Verify recomputes the checksum of every output listed in m and reports the
// first mismatch.
func (m *Manifest) Verify() error {
	for _, out := range m.Outputs {
		sum, err := Checksum(out.Path)
		if err != nil {
			return err
		}
		if sum != out.Checksum {
			return fmt.Errorf("%s: checksum mismatch: manifest has %s, file has %s", out.Path, out.Checksum, sum)
		}
	}
	return nil
}
