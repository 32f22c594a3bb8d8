package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths contains every file system location a run touches, resolved to
// absolute paths.
type Paths struct {
	BaseDir      string
	InputFile    string
	ContractFile string // empty when the built-in contract is used
	OutputDir    string
	LogFile      string // empty when logging to the console only
	TraceFile    string // empty when telemetry is disabled
	MetricsFile  string // empty when telemetry is disabled
}

// Paths resolves the configured locations against baseDir. Absolute paths
// are kept as they are.
func (c *Config) Paths(baseDir string) (*Paths, error) {
	base, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base directory: %w", err)
	}

	p := &Paths{
		BaseDir:   base,
		InputFile: resolve(base, c.Input.Path),
		OutputDir: resolve(base, c.Output.Dir),
	}
	if c.Contract.Path != "" {
		p.ContractFile = resolve(base, c.Contract.Path)
	}
	if c.Logging.Output != "console" {
		p.LogFile = resolve(base, c.Logging.FilePath)
	}
	if c.Telemetry.Enabled {
		if c.Telemetry.TraceFile != "" {
			p.TraceFile = resolve(base, c.Telemetry.TraceFile)
		}
		if c.Telemetry.MetricsFile != "" {
			p.MetricsFile = resolve(base, c.Telemetry.MetricsFile)
		}
	}
	return p, nil
}

func resolve(base, path string) string {
	if path == "" {
		return base
	}
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(base, path)
}

// EnsureDirectories creates the output directory and the parent directory of
// every file the run writes.
func (p *Paths) EnsureDirectories(logger *slog.Logger) error {
	directories := []string{p.OutputDir}
	for _, file := range []string{p.LogFile, p.TraceFile, p.MetricsFile} {
		if file != "" {
			directories = append(directories, filepath.Dir(file))
		}
	}

	for _, dir := range directories {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		if logger != nil {
			logger.Debug("Ensured directory exists", slog.String("directory", dir))
		}
	}
	return nil
}

// LogPathResolution logs the resolved paths at debug level.
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	if logger == nil {
		return
	}
	logger.Debug("Path resolution summary",
		slog.String("base", p.BaseDir),
		slog.String("input", p.InputFile),
		slog.String("contract", p.ContractFile),
		slog.String("output_dir", p.OutputDir),
		slog.Group("telemetry",
			slog.String("log_file", p.LogFile),
			slog.String("trace_file", p.TraceFile),
			slog.String("metrics_file", p.MetricsFile),
		))
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
