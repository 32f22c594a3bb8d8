// Package config provides configuration management for the sales cleaning
// job. It loads configuration from several sources, validates it and resolves
// the file system paths a run needs.
//
// # Configuration Sources
//
// Configuration is layered, later sources overriding earlier ones:
//
//	1. Default values (Default)
//	2. A YAML file: the -config flag, else salesclean.yaml or
//	   configs/salesclean.yaml in the working directory
//	3. Environment variables (highest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern SALESCLEAN_<SECTION>_<FIELD>:
//
//	SALESCLEAN_INPUT_PATH=data/SuperMarketAnalysis.csv
//	SALESCLEAN_OUTPUT_DIR=out
//	SALESCLEAN_OUTPUT_FORMATS=parquet,xlsx,arrow
//	SALESCLEAN_VALIDATION_RELATIVE_TOLERANCE=1e-5
//	SALESCLEAN_VALIDATION_FAIL_ON_WARNING=true
//	SALESCLEAN_LOGGING_LEVEL=debug
//	SALESCLEAN_TELEMETRY_ENABLED=true
//
// # Validation
//
// Load validates the merged configuration with struct tags: formats must be
// known, tolerances non-negative, the output base name must not contain a
// path separator and a log file is required unless logging to the console.
//
// # Usage
//
//	cfg, err := config.Load(configPath)
//	if err != nil {
//	    return err
//	}
//	paths, err := cfg.Paths(".")
package config
