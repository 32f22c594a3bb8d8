package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"salesclean/internal/config"
	"salesclean/internal/contract"
	"salesclean/internal/dataprocessing"
	apperrors "salesclean/internal/errors"
	"salesclean/internal/exporter"
	"salesclean/internal/infrastructure"
	"salesclean/internal/validation"
	"salesclean/pkg/contracts"
)

// Process exit codes.
const (
	exitOK       = 0
	exitFailure  = 1
	exitWarnings = 2
)

// cliFlags holds the command line overrides. Empty values keep the
// configured setting.
type cliFlags struct {
	input      string
	output     string
	base       string
	configPath string
	version    bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout)
	stop()
	os.Exit(code)
}

func parseFlags(args []string, out io.Writer) (*cliFlags, error) {
	fs := flag.NewFlagSet("cleaner", flag.ContinueOnError)
	fs.SetOutput(out)

	f := &cliFlags{}
	fs.StringVar(&f.input, "in", "", "input .csv or .xlsx file (defaults to SuperMarketAnalysis.csv)")
	fs.StringVar(&f.output, "out", "", "output directory (defaults to the working directory)")
	fs.StringVar(&f.base, "base", "", "output file base name (defaults to SupermarketSales_Cleaned)")
	fs.StringVar(&f.configPath, "config", "", "YAML config file (defaults to salesclean.yaml if present)")
	fs.BoolVar(&f.version, "version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return f, nil
}

// loadConfig layers the command line overrides onto the loaded config.
func loadConfig(f *cliFlags) (*config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, err
	}
	if f.input != "" {
		cfg.Input.Path = f.input
	}
	if f.output != "" {
		cfg.Output.Dir = f.output
	}
	if f.base != "" {
		cfg.Output.Base = f.base
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(ctx context.Context, args []string, stdout io.Writer) int {
	flags, err := parseFlags(args, stdout)
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		return exitFailure
	}
	if flags.version {
		fmt.Fprintln(stdout, contracts.GetFullVersionString())
		return exitOK
	}

	cfg, err := loadConfig(flags)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		return exitFailure
	}

	paths, err := cfg.Paths(".")
	if err != nil {
		slog.Error("Failed to resolve paths", "error", err)
		return exitFailure
	}
	if err := paths.EnsureDirectories(slog.Default()); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		return exitFailure
	}

	logCfg := cfg.Logging
	if paths.LogFile != "" {
		logCfg.FilePath = paths.LogFile
	}
	logger, err := infrastructure.InitializeLogger(logCfg)
	if err != nil {
		slog.Warn("Failed to initialize logger, using default", "error", err)
		logger = slog.Default()
	}
	defer infrastructure.CloseLogFile()

	ctx = infrastructure.EnsureRunID(ctx)
	paths.LogPathResolution(logger)

	otelCfg := infrastructure.DefaultOTelConfig()
	otelCfg.ServiceName = cfg.Telemetry.ServiceName
	otelCfg.ServiceVersion = contracts.Version
	otelCfg.SampleRatio = cfg.Telemetry.SampleRatio
	otelCfg.EnableTracing = paths.TraceFile != ""
	otelCfg.EnableMetrics = paths.MetricsFile != ""
	otelCfg.TraceWriter = nil
	otelCfg.TraceFile = paths.TraceFile

	providers, err := infrastructure.InitializeOTel(otelCfg, logger)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to initialize telemetry", slog.String("error", err.Error()))
		return exitFailure
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			infrastructure.WithError(logger, err).Warn("Telemetry shutdown failed")
		}
	}()

	c := &cleaner{
		cfg:       cfg,
		paths:     paths,
		logger:    logger,
		providers: providers,
		stdout:    stdout,
	}
	return c.run(ctx)
}

// cleaner runs one load, clean and export cycle with a resolved config.
type cleaner struct {
	cfg       *config.Config
	paths     *config.Paths
	logger    *slog.Logger
	providers *infrastructure.OTelProviders
	stdout    io.Writer

	metrics *infrastructure.PipelineMetrics
	system  *infrastructure.SystemMetrics
}

func (c *cleaner) run(ctx context.Context) int {
	start := time.Now()

	var err error
	if c.metrics, err = infrastructure.CreatePipelineMetrics(c.providers.Meter); err != nil {
		c.logger.ErrorContext(ctx, "Failed to create metrics", slog.String("error", err.Error()))
		return exitFailure
	}
	if c.system, err = infrastructure.NewSystemMetrics(c.providers.Meter); err != nil {
		c.logger.ErrorContext(ctx, "Failed to create system metrics", slog.String("error", err.Error()))
		return exitFailure
	}

	c.logger.InfoContext(ctx, "Starting sales cleaning",
		slog.String("version", contracts.Version),
		slog.String("input", c.paths.InputFile),
		slog.String("output_dir", c.paths.OutputDir),
		slog.String("base", c.cfg.Output.Base),
		slog.Any("formats", c.cfg.Output.Formats))

	report, manifest, err := c.clean(ctx)
	c.record(ctx, report, start, err)

	if err != nil {
		apperrors.NewErrorHandler(c.logger).HandleError(ctx, err).Print(c.stdout)
		return exitFailure
	}

	fmt.Fprintf(c.stdout, "Cleaned %d of %d rows with %d warnings (%d non-conforming)\n",
		report.OutputRows, report.InputRows, report.WarningCount(), len(report.NonConforming))
	for _, out := range manifest.Outputs {
		fmt.Fprintf(c.stdout, "  %-8s %s\n", out.Format, out.Path)
	}

	if report.WarningCount() > 0 && c.cfg.Validation.FailOnWarning {
		c.logger.WarnContext(ctx, "Warnings present and fail_on_warning is set",
			slog.Int("warnings", report.WarningCount()))
		return exitWarnings
	}
	return exitOK
}

// clean loads the input, runs the pipeline and exports the result. The
// report is returned even when a later step fails.
func (c *cleaner) clean(ctx context.Context) (*dataprocessing.Report, *exporter.Manifest, error) {
	validator := validation.NewFileValidator(c.logger)
	if err := validator.ValidateInputFile(c.paths.InputFile); err != nil {
		return nil, nil, err
	}
	if err := validator.ValidateOutputDirectory(c.paths.OutputDir); err != nil {
		return nil, nil, err
	}

	columns, err := contract.Load(c.paths.ContractFile)
	if err != nil {
		return nil, nil, err
	}

	raw, err := dataprocessing.LoadFile(ctx, c.paths.InputFile, dataprocessing.LoadOptions{
		Delimiter:       c.cfg.DelimiterRune(),
		RequiredHeaders: columns.RequiredHeaders(),
		Logger:          c.logger,
	})
	if err != nil {
		return nil, nil, err
	}

	tolerance := dataprocessing.Tolerance{
		Relative: c.cfg.Validation.RelativeTolerance,
		Absolute: c.cfg.Validation.AbsoluteTolerance,
	}
	table, report, err := dataprocessing.Run(ctx, raw, dataprocessing.Options{
		Contract:  columns,
		Tolerance: &tolerance,
		RunID:     infrastructure.GetRunID(ctx),
		Logger:    c.logger,
		Tracer:    c.providers.Tracer,
	})
	if err != nil {
		return report, nil, err
	}

	formats, err := exporter.ParseFormats(c.cfg.Output.Formats)
	if err != nil {
		return report, nil, err
	}
	exp, err := exporter.New(exporter.Options{
		Dir:             c.paths.OutputDir,
		Base:            c.cfg.Output.Base,
		Formats:         formats,
		ContractVersion: columns.Version,
		WriteManifest:   c.cfg.Output.Manifest,
		WriteWarnings:   c.cfg.Output.Warnings,
		Logger:          c.logger,
		Tracer:          c.providers.Tracer,
	})
	if err != nil {
		return report, nil, err
	}
	manifest, err := exp.Export(ctx, table, report)
	if err != nil {
		return report, nil, err
	}
	for _, out := range manifest.Outputs {
		infrastructure.RecordOutputMetrics(ctx, c.metrics, string(out.Format), out.Size)
	}
	return report, manifest, nil
}

// record feeds the run into the metrics and writes the metrics textfile.
func (c *cleaner) record(ctx context.Context, report *dataprocessing.Report, start time.Time, runErr error) {
	var inputRows, outputRows, nonConforming int
	if report != nil {
		inputRows, outputRows, nonConforming = report.InputRows, report.OutputRows, len(report.NonConforming)
		for _, stage := range report.Stages {
			infrastructure.RecordStageMetrics(ctx, c.metrics, stage.Name, stage.Duration, stage.Failed)
		}
		for rule, count := range report.WarningsByRule() {
			infrastructure.RecordWarningMetrics(ctx, c.metrics, rule, count)
		}
	}
	infrastructure.RecordRunMetrics(ctx, c.metrics, inputRows, outputRows, nonConforming, time.Since(start), runErr)

	stats := c.system.Collect(ctx, start)
	c.logger.InfoContext(ctx, "Run resources", slog.Any("system", stats))

	if c.paths.MetricsFile == "" {
		return
	}
	if err := c.providers.WriteMetrics(c.paths.MetricsFile); err != nil {
		infrastructure.WithError(c.logger, err).WarnContext(ctx, "Failed to write metrics")
		return
	}
	c.logger.DebugContext(ctx, "Metrics written", slog.String("path", c.paths.MetricsFile))
}
