package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salescleanse/internal/config"
	apierrors "salescleanse/internal/errors"
	"salescleanse/internal/exporter"
	"salescleanse/pkg/contracts/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestParseFlags(t *testing.T) {
	t.Run("requires in flag", func(t *testing.T) {
		var stderr bytes.Buffer
		_, err := parseFlags([]string{"-out-dir", "out"}, &stderr)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "-in")
		assert.Contains(t, stderr.String(), "usage:")
	})

	t.Run("records explicitly set flags", func(t *testing.T) {
		opts, err := parseFlags([]string{
			"-in", "sales.csv",
			"-out-dir", "artifacts",
			"-format", "both",
			"-report",
			"-summary=false",
			"-verbose",
		}, io.Discard)
		require.NoError(t, err)

		assert.Equal(t, "sales.csv", opts.in)
		assert.Equal(t, "artifacts", opts.outDir)
		assert.Equal(t, "both", opts.format)
		assert.True(t, opts.report)
		assert.False(t, opts.summary)
		assert.True(t, opts.verbose)

		for _, name := range []string{"in", "out-dir", "format", "report", "summary", "verbose"} {
			assert.True(t, opts.set[name], "flag %q should be recorded as set", name)
		}
		assert.False(t, opts.set["config"])
	})

	t.Run("unset flags are not recorded", func(t *testing.T) {
		opts, err := parseFlags([]string{"-in", "sales.csv"}, io.Discard)
		require.NoError(t, err)
		assert.True(t, opts.set["in"])
		assert.False(t, opts.set["out-dir"])
		assert.False(t, opts.set["report"])
	})
}

func TestApplyOverrides(t *testing.T) {
	t.Run("unset flags keep config values", func(t *testing.T) {
		cfg := config.Default()
		cfg.Export.OutputDir = "configured"
		cfg.Export.Format = "both"
		cfg.Export.IncludeReport = true

		applyOverrides(cfg, &options{set: map[string]bool{}})

		assert.Equal(t, "configured", cfg.Export.OutputDir)
		assert.Equal(t, "both", cfg.Export.Format)
		assert.True(t, cfg.Export.IncludeReport)
	})

	t.Run("explicit flags win over config", func(t *testing.T) {
		cfg := config.Default()
		cfg.Export.IncludeReport = true
		cfg.Export.IncludeSummary = true

		applyOverrides(cfg, &options{
			outDir:  "cli-out",
			format:  "xlsx",
			report:  false,
			summary: false,
			set: map[string]bool{
				"out-dir": true,
				"format":  true,
				"report":  true,
				"summary": true,
			},
		})

		assert.Equal(t, "cli-out", cfg.Export.OutputDir)
		assert.Equal(t, "xlsx", cfg.Export.Format)
		assert.False(t, cfg.Export.IncludeReport)
		assert.False(t, cfg.Export.IncludeSummary)
	})

	t.Run("verbose raises log level", func(t *testing.T) {
		cfg := config.Default()
		applyOverrides(cfg, &options{verbose: true, set: map[string]bool{"verbose": true}})
		assert.Equal(t, "debug", cfg.Logging.Level)
	})
}

func TestLoadConfig(t *testing.T) {
	t.Run("explicit path must exist", func(t *testing.T) {
		_, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
		require.Error(t, err)
	})

	t.Run("explicit file overlays defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		content := "export:\n  output_dir: from-file\n  format: both\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))

		cfg, err := loadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "from-file", cfg.Export.OutputDir)
		assert.Equal(t, "both", cfg.Export.Format)
		assert.Equal(t, config.Default().Server.Port, cfg.Server.Port)
	})
}

func TestCleanseFile(t *testing.T) {
	dir := t.TempDir()

	input := filepath.Join(dir, "sales.csv")
	csv := "transaction_id,date,customer_id,product_name,quantity,price,total\n" +
		"T-100,2024-01-05,C-1,widget,2,10.00,20.00\n" +
		"T-100,2024-01-05,C-1,widget,2,10.00,20.00\n" +
		",2024-01-06,C-2,gadget,1,5.00,5.00\n" +
		"T-200,2024-01-07,c-2,  deluxe gadget ,3,5.00,15.00\n"
	require.NoError(t, os.WriteFile(input, []byte(csv), 0644))

	outDir := filepath.Join(dir, "out")
	cfg := config.Default()
	cfg.Export.OutputDir = outDir

	result, files, err := cleanseFile(context.Background(), cfg, input, testLogger())
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.NotEmpty(t, result.RunID)

	assert.Equal(t, 2, result.Clean.Len())
	require.Len(t, result.RejectedRows(), 1)
	assert.Equal(t, domain.ReasonMissingID, result.RejectedRows()[0].Reason)
	assert.NotEmpty(t, result.AuditEntries())
	assert.Len(t, result.Counts, 7)

	t.Run("artifacts land in the output directory", func(t *testing.T) {
		require.NotEmpty(t, files)
		for _, name := range []string{
			exporter.CleanedCSVFile,
			exporter.AuditFile,
			exporter.RejectedFile,
			exporter.ReportFile,
			exporter.SummaryFile,
		} {
			path := filepath.Join(outDir, name)
			assert.Contains(t, files, path)
			_, statErr := os.Stat(path)
			assert.NoError(t, statErr, "expected artifact %s", name)
		}
	})

	t.Run("cleaned output carries normalized values", func(t *testing.T) {
		data, readErr := os.ReadFile(filepath.Join(outDir, exporter.CleanedCSVFile))
		require.NoError(t, readErr)
		assert.Contains(t, string(data), "T-100")
		assert.Contains(t, string(data), "Deluxe Gadget")
		assert.Contains(t, string(data), "C-2")
	})

	t.Run("unsupported extension fails", func(t *testing.T) {
		bad := filepath.Join(dir, "sales.txt")
		require.NoError(t, os.WriteFile(bad, []byte("x"), 0644))

		_, _, err := cleanseFile(context.Background(), cfg, bad, testLogger())
		require.Error(t, err)
		assert.ErrorIs(t, err, apierrors.ErrUnsupportedFormat)
	})
}

func TestPrintSummary(t *testing.T) {
	result := &domain.Result{
		RunID: "run-1",
		Clean: domain.NewRecordSet(),
		Counts: []domain.StageCount{
			{Stage: "deduplicate", In: 4, Out: 3, Audited: 1, Rejected: 1},
			{Stage: "validate", In: 3, Out: 3},
		},
	}

	var buf bytes.Buffer
	printSummary(&buf, result, []string{"out/cleaned.csv", "out/audit.csv"})

	out := buf.String()
	assert.Contains(t, out, "run run-1")
	assert.Contains(t, out, "deduplicate")
	assert.Contains(t, out, "(audited 1, rejected 1)")
	assert.Contains(t, out, "wrote out/cleaned.csv")
	assert.Contains(t, out, "wrote out/audit.csv")
}
