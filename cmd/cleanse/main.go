// Command cleanse reads a sales transaction file, runs the cleaning
// pipeline over it and writes the cleaned dataset, the audit trail, the
// rejected rows and the optional quality report into the output directory.
//
// Dirty data is not an error: rejected rows are part of the output and the
// command still exits zero. A non-zero exit means the input could not be
// read or the artifacts could not be written.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"salescleanse/internal/config"
	"salescleanse/internal/exporter"
	"salescleanse/internal/infrastructure"
	"salescleanse/internal/ingest"
	"salescleanse/internal/pipeline"
	"salescleanse/pkg/contracts/domain"
)

// options carries the parsed command line. The set map records which flags
// were given explicitly so unset flags never override the config file.
type options struct {
	in         string
	outDir     string
	configFile string
	format     string
	report     bool
	summary    bool
	verbose    bool
	set        map[string]bool
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("cleanse", flag.ContinueOnError)
	fs.SetOutput(stderr)

	opts := &options{set: make(map[string]bool)}
	fs.StringVar(&opts.in, "in", "", "input file, .csv or .xlsx (required)")
	fs.StringVar(&opts.outDir, "out-dir", "", "output directory for run artifacts")
	fs.StringVar(&opts.configFile, "config", "", "config file path (default: auto-discover)")
	fs.StringVar(&opts.format, "format", "", "cleaned output format: csv, xlsx or both")
	fs.BoolVar(&opts.report, "report", false, "write the quality report")
	fs.BoolVar(&opts.summary, "summary", false, "write the summary profile")
	fs.BoolVar(&opts.verbose, "verbose", false, "enable debug logging")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) { opts.set[f.Name] = true })

	if opts.in == "" {
		fmt.Fprintln(stderr, "usage: cleanse -in <file> [-out-dir DIR] [-format csv|xlsx|both] [-report] [-summary]")
		fs.PrintDefaults()
		return nil, fmt.Errorf("missing required flag -in")
	}
	return opts, nil
}

// applyOverrides overlays explicitly-set flags onto the loaded configuration.
func applyOverrides(cfg *config.Config, opts *options) {
	if opts.set["out-dir"] {
		cfg.Export.OutputDir = opts.outDir
	}
	if opts.set["format"] {
		cfg.Export.Format = opts.format
	}
	if opts.set["report"] {
		cfg.Export.IncludeReport = opts.report
	}
	if opts.set["summary"] {
		cfg.Export.IncludeSummary = opts.summary
	}
	if opts.verbose {
		cfg.Logging.Level = "debug"
	}
}

// loadConfig loads the layered configuration. An explicit -config path must
// exist; auto-discovery is allowed to come up empty.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}

// cleanseFile reads one input file, runs the cleaning pipeline over it and
// writes the configured artifacts.
func cleanseFile(ctx context.Context, cfg *config.Config, path string, logger *slog.Logger) (*domain.Result, []string, error) {
	set, err := ingest.ReadFile(path, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", path, err)
	}

	pipeCfg, err := cfg.Pipeline.ToPipeline()
	if err != nil {
		return nil, nil, err
	}
	runner, err := pipeline.NewStandardRunner(pipeCfg, logger)
	if err != nil {
		return nil, nil, err
	}

	result, err := runner.Run(ctx, set)
	if err != nil {
		return nil, nil, err
	}

	files, err := exporter.NewRunExporter(cfg.Export, logger).Export(ctx, result)
	if err != nil {
		return nil, nil, err
	}
	return result, files, nil
}

// printSummary writes the human-readable outcome of a run.
func printSummary(w io.Writer, result *domain.Result, files []string) {
	fmt.Fprintf(w, "run %s: %d clean, %d rejected, %d audit entries (%s)\n",
		result.RunID,
		result.Clean.Len(),
		len(result.RejectedRows()),
		len(result.AuditEntries()),
		result.Duration().Round(time.Millisecond))
	for _, count := range result.Counts {
		fmt.Fprintf(w, "  %-18s %4d -> %d", count.Stage, count.In, count.Out)
		if count.Audited > 0 || count.Rejected > 0 {
			fmt.Fprintf(w, " (audited %d, rejected %d)", count.Audited, count.Rejected)
		}
		fmt.Fprintln(w)
	}
	for _, f := range files {
		fmt.Fprintf(w, "wrote %s\n", f)
	}
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		os.Exit(2)
	}

	cfg, err := loadConfig(opts.configFile)
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	applyOverrides(cfg, opts)

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("failed to initialize logger, using default", slog.String("error", err.Error()))
		logger = slog.Default()
	}

	paths, err := cfg.Paths()
	if err != nil {
		logger.Error("failed to resolve output paths", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := paths.EnsureDirectories(); err != nil {
		logger.Error("failed to create output directories", slog.String("error", err.Error()))
		os.Exit(1)
	}

	result, files, err := cleanseFile(context.Background(), cfg, opts.in, logger)
	if err != nil {
		logger.Error("cleansing failed",
			slog.String("input", opts.in),
			slog.String("error", err.Error()))
		os.Exit(1)
	}

	printSummary(os.Stdout, result, files)
}
