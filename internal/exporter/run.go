package exporter

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"salescleanse/internal/config"
	apierrors "salescleanse/internal/errors"
	"salescleanse/internal/stats"
	"salescleanse/pkg/contracts/domain"
)

// Artifact filenames written under the output directory.
const (
	CleanedCSVFile = "cleaned.csv"
	WorkbookFile   = "cleaned.xlsx"
	AuditFile      = "audit.csv"
	RejectedFile   = "rejected.csv"
	ReportFile     = "quality_report.txt"
	SummaryFile    = "summary.json"
)

// RunExporter writes the artifacts of one pipeline run: the cleaned
// dataset, the audit log, rejected rows, and the optional quality report
// and summary profile. Callers wanting per-run directories point
// ExportConfig.OutputDir at the run's directory before constructing it.
type RunExporter struct {
	cfg    config.ExportConfig
	csv    *CSVWriter
	logger *slog.Logger
}

// NewRunExporter creates an exporter for the given output configuration.
func NewRunExporter(cfg config.ExportConfig, logger *slog.Logger) *RunExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &RunExporter{
		cfg:    cfg,
		csv:    NewCSVWriter(cfg.OutputDir, logger),
		logger: logger,
	}
}

// Export writes every configured artifact for result and returns the
// paths written, in write order.
func (e *RunExporter) Export(ctx context.Context, result *domain.Result) ([]string, error) {
	if result == nil || result.Clean == nil {
		return nil, apierrors.NewExportError("nothing to export: empty result", nil)
	}

	var paths []string

	format := strings.ToLower(e.cfg.Format)
	switch format {
	case "", "csv", "both":
		path, err := e.writeCleanedCSV(result.Clean)
		if err != nil {
			return nil, err
		}
		paths = append(paths, path)
	case "xlsx":
	default:
		return nil, apierrors.NewExportError(fmt.Sprintf("unsupported export format %q", e.cfg.Format), nil)
	}
	if format == "xlsx" || format == "both" {
		path, err := e.writeWorkbook(result)
		if err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}

	path, err := e.writeAudit(result)
	if err != nil {
		return nil, err
	}
	paths = append(paths, path)

	path, err = e.writeRejected(result)
	if err != nil {
		return nil, err
	}
	paths = append(paths, path)

	if e.cfg.IncludeReport || e.cfg.IncludeSummary {
		summary := stats.Describe(result.Clean)
		if e.cfg.IncludeReport {
			path, err = e.writeReport(result, summary)
			if err != nil {
				return nil, err
			}
			paths = append(paths, path)
		}
		if e.cfg.IncludeSummary {
			path, err = e.writeSummary(summary)
			if err != nil {
				return nil, err
			}
			paths = append(paths, path)
		}
	}

	e.logger.InfoContext(ctx, "run_exported",
		slog.String("run_id", result.RunID),
		slog.String("output_dir", e.cfg.OutputDir),
		slog.Int("files", len(paths)))
	return paths, nil
}

// writeCleanedCSV streams the cleaned records to cleaned.csv with a BOM
// so the file opens correctly in Excel.
func (e *RunExporter) writeCleanedCSV(set *domain.RecordSet) (string, error) {
	columns := cleanedColumns(set.Records)

	stream, err := e.csv.CreateStreamWriter(CleanedCSVFile, columns, true)
	if err != nil {
		return "", apierrors.NewExportError("create cleaned csv", err)
	}
	for i := range set.Records {
		if err := stream.WriteRecord(recordRow(&set.Records[i], columns)); err != nil {
			stream.Close()
			return "", apierrors.NewExportError("write cleaned csv", err)
		}
	}
	if err := stream.Close(); err != nil {
		return "", apierrors.NewExportError("flush cleaned csv", err)
	}
	return e.csv.resolvePath(CleanedCSVFile), nil
}

// writeAudit writes the run's audit trail. No BOM: the audit log is an
// analysis artifact, not a spreadsheet deliverable.
func (e *RunExporter) writeAudit(result *domain.Result) (string, error) {
	entries := result.AuditEntries()
	rows := make([][]string, 0, len(entries))
	for i := range entries {
		rows = append(rows, auditRow(&entries[i]))
	}
	if err := e.csv.WriteCSV(AuditFile, WriteOptions{Headers: auditColumns(), Records: rows}); err != nil {
		return "", apierrors.NewExportError("write audit csv", err)
	}
	return e.csv.resolvePath(AuditFile), nil
}

// writeRejected writes the fatally rejected rows with their last known
// field values.
func (e *RunExporter) writeRejected(result *domain.Result) (string, error) {
	rejected := result.RejectedRows()
	columns := rejectedColumns(rejected)
	rows := make([][]string, 0, len(rejected))
	for i := range rejected {
		rows = append(rows, rejectedRow(&rejected[i], columns))
	}
	if err := e.csv.WriteCSV(RejectedFile, WriteOptions{Headers: columns, Records: rows}); err != nil {
		return "", apierrors.NewExportError("write rejected csv", err)
	}
	return e.csv.resolvePath(RejectedFile), nil
}

// writeReport writes the human-readable quality report.
func (e *RunExporter) writeReport(result *domain.Result, summary *stats.Summary) (string, error) {
	path := e.csv.resolvePath(ReportFile)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", apierrors.NewStorageError("create report directory", err)
	}
	if err := os.WriteFile(path, []byte(BuildReport(result, summary)), 0644); err != nil {
		return "", apierrors.NewStorageError("write quality report", err)
	}
	return path, nil
}
