package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "salesclean/internal/errors"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "salesclean.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "SuperMarketAnalysis.csv", cfg.Input.Path)
	assert.Equal(t, ',', cfg.DelimiterRune())
	assert.Equal(t, "SupermarketSales_Cleaned", cfg.Output.Base)
	assert.Equal(t, []string{"parquet", "xlsx"}, cfg.Output.Formats)
	assert.Equal(t, 1e-5, cfg.Validation.RelativeTolerance)
	assert.Equal(t, 1e-8, cfg.Validation.AbsoluteTolerance)
	assert.False(t, cfg.Validation.FailOnWarning)
	assert.False(t, cfg.Telemetry.Enabled)
	assert.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		file        string
		env         map[string]string
		wantErr     bool
		validateCfg func(*testing.T, *Config)
	}{
		{
			name: "defaults without file or env",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, Default(), cfg)
			},
		},
		{
			name: "file overrides defaults",
			file: `
input:
  path: data/sales.txt
  delimiter: "|"
output:
  dir: out
  formats: [parquet, arrow]
  manifest: false
validation:
  rtol: 0.001
`,
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "data/sales.txt", cfg.Input.Path)
				assert.Equal(t, '|', cfg.DelimiterRune())
				assert.Equal(t, "out", cfg.Output.Dir)
				assert.Equal(t, []string{"parquet", "arrow"}, cfg.Output.Formats)
				assert.False(t, cfg.Output.Manifest)
				assert.Equal(t, 0.001, cfg.Validation.RelativeTolerance)
				// Untouched keys keep their defaults.
				assert.Equal(t, 1e-8, cfg.Validation.AbsoluteTolerance)
				assert.Equal(t, "SupermarketSales_Cleaned", cfg.Output.Base)
				assert.True(t, cfg.Output.Warnings)
			},
		},
		{
			name: "env overrides file",
			file: `
output:
  dir: from-file
logging:
  level: warn
`,
			env: map[string]string{
				"SALESCLEAN_OUTPUT_DIR":                    "from-env",
				"SALESCLEAN_OUTPUT_FORMATS":                "csv,xlsx",
				"SALESCLEAN_VALIDATION_ABSOLUTE_TOLERANCE": "0.01",
				"SALESCLEAN_VALIDATION_FAIL_ON_WARNING":    "true",
				"SALESCLEAN_TELEMETRY_ENABLED":             "true",
				"SALESCLEAN_CONTRACT_PATH":                 "contract.yaml",
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "from-env", cfg.Output.Dir)
				assert.Equal(t, []string{"csv", "xlsx"}, cfg.Output.Formats)
				assert.Equal(t, 0.01, cfg.Validation.AbsoluteTolerance)
				assert.True(t, cfg.Validation.FailOnWarning)
				assert.True(t, cfg.Telemetry.Enabled)
				assert.Equal(t, "contract.yaml", cfg.Contract.Path)
				assert.Equal(t, "warn", cfg.Logging.Level)
			},
		},
		{
			name:    "unknown file key",
			file:    "outputs:\n  dir: x\n",
			wantErr: true,
		},
		{
			name:    "malformed env value",
			env:     map[string]string{"SALESCLEAN_VALIDATION_RELATIVE_TOLERANCE": "tiny"},
			wantErr: true,
		},
		{
			name:    "unknown format",
			env:     map[string]string{"SALESCLEAN_OUTPUT_FORMATS": "parquet,json"},
			wantErr: true,
		},
		{
			name:    "negative tolerance",
			file:    "validation:\n  atol: -1\n",
			wantErr: true,
		},
		{
			name:    "file logging without a path",
			file:    "logging:\n  output: file\n  file_path: \"\"\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.file != "" {
				path = writeConfigFile(t, tt.file)
			}

			cfg, err := Load(path)
			if tt.wantErr {
				require.Error(t, err)
				var appErr *apperrors.AppError
				require.ErrorAs(t, err, &appErr)
				assert.Equal(t, apperrors.ErrTypeConfig, appErr.Type)
				return
			}
			require.NoError(t, err)
			tt.validateCfg(t, cfg)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestValidateMessages(t *testing.T) {
	cfg := Default()
	cfg.Output.Base = "out/sales"
	cfg.Input.Delimiter = ";;"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Output.Base")
	assert.Contains(t, err.Error(), "Input.Delimiter")
}
