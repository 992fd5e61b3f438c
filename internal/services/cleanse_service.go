package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"salescleanse/internal/config"
	apierrors "salescleanse/internal/errors"
	"salescleanse/internal/exporter"
	"salescleanse/internal/infrastructure"
	"salescleanse/internal/ingest"
	"salescleanse/internal/pipeline"
	"salescleanse/pkg/contracts/domain"
)

// SheetSource reads records from a configured spreadsheet range. The
// ingest package's SheetsReader satisfies it; tests substitute fakes.
type SheetSource interface {
	Read(ctx context.Context) (*domain.RecordSet, error)
}

// StageInfo describes one registered pipeline stage for API consumers.
type StageInfo struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Description  string   `json:"description,omitempty"`
	Dependencies []string `json:"dependencies"`
	Order        int      `json:"order"`
}

// RunSummary is the lightweight listing view of a stored run.
type RunSummary struct {
	RunID      string    `json:"run_id"`
	Source     string    `json:"source,omitempty"`
	Records    int       `json:"records"`
	Rejected   int       `json:"rejected"`
	Audited    int       `json:"audited"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// CleanseService orchestrates a cleansing run end to end: ingest, the
// staged pipeline, artifact export into a per-run directory, and the
// bounded run history behind GET /runs.
type CleanseService struct {
	runner    *pipeline.Runner
	store     *RunStore
	exportCfg config.ExportConfig
	sheets    SheetSource
	metrics   *infrastructure.PipelineMetrics
	logger    *slog.Logger
}

// NewCleanseService creates the cleansing service. Artifacts for each run
// land in a directory named after the run ID under exportCfg.OutputDir.
func NewCleanseService(runner *pipeline.Runner, store *RunStore, exportCfg config.ExportConfig, logger *slog.Logger) *CleanseService {
	if logger == nil {
		logger = slog.Default()
	}
	if store == nil {
		store = NewRunStore(0)
	}
	return &CleanseService{
		runner:    runner,
		store:     store,
		exportCfg: exportCfg,
		logger:    logger,
	}
}

// SetMetrics attaches throughput instruments; nil detaches them.
func (s *CleanseService) SetMetrics(m *infrastructure.PipelineMetrics) {
	s.metrics = m
}

// SetSheetSource attaches the spreadsheet ingest source; nil detaches it.
func (s *CleanseService) SetSheetSource(src SheetSource) {
	s.sheets = src
}

// Cleanse runs the pipeline over an already-parsed record set, writes the
// run's artifacts and stores the outcome. source labels where the records
// came from for the run history.
func (s *CleanseService) Cleanse(ctx context.Context, raw *domain.RecordSet, source string) (*RunOutcome, error) {
	s.recordIngest(ctx, raw)

	if s.metrics != nil {
		s.metrics.ActiveRuns.Add(ctx, 1)
		defer s.metrics.ActiveRuns.Add(ctx, -1)
	}

	result, err := s.runner.Run(ctx, raw)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		s.logger.ErrorContext(ctx, "cleansing run failed",
			slog.String("source", source),
			slog.Any("error", err))
		return nil, apierrors.RunExecutionError(err)
	}

	infrastructure.SetSpanAttributes(ctx, map[string]interface{}{
		"cleanse.run_id":   result.RunID,
		"cleanse.clean":    result.Clean.Len(),
		"cleanse.rejected": len(result.RejectedRows()),
		"cleanse.audited":  len(result.AuditEntries()),
	})

	outcome := &RunOutcome{Result: result, Source: source}

	files, err := s.exportRun(ctx, result)
	if err != nil {
		// Keep the result queryable even when its artifacts could not be
		// written.
		infrastructure.RecordError(ctx, err)
		s.store.Put(outcome)
		s.logger.ErrorContext(ctx, "run export failed",
			slog.String("run_id", result.RunID),
			slog.Any("error", err))
		return nil, apierrors.ExportError(err)
	}
	outcome.Files = files
	if s.metrics != nil {
		s.metrics.ExportFilesTotal.Add(ctx, int64(len(files)))
	}
	infrastructure.AddSpanEvent(ctx, "run.exported", map[string]interface{}{
		"files": len(files),
	})

	s.store.Put(outcome)

	s.logger.InfoContext(ctx, "cleansing run completed",
		slog.String("run_id", result.RunID),
		slog.String("source", source),
		slog.Int("clean", result.Clean.Len()),
		slog.Int("rejected", len(result.RejectedRows())),
		slog.Int("audited", len(result.AuditEntries())),
		slog.Int("files", len(files)))

	return outcome, nil
}

// CleanseUpload parses an uploaded file by extension and cleanses it.
// Unsupported extensions and malformed headers surface as ingest sentinel
// errors for the transport layer to map.
func (s *CleanseService) CleanseUpload(ctx context.Context, filename string, r io.Reader) (*RunOutcome, error) {
	format, err := ingest.DetectFormat(filename)
	if err != nil {
		return nil, err
	}

	set, err := ingest.Read(r, format, s.logger)
	if err != nil {
		return nil, err
	}

	name := filepath.Base(filename)
	s.logger.InfoContext(ctx, "upload parsed",
		slog.String("filename", name),
		slog.String("format", string(format)),
		slog.Int("rows", set.Len()+len(set.Rejected)))

	return s.Cleanse(ctx, set, "upload:"+name)
}

// CleanseSheet pulls the configured spreadsheet range and cleanses it.
func (s *CleanseService) CleanseSheet(ctx context.Context) (*RunOutcome, error) {
	if s.sheets == nil {
		return nil, fmt.Errorf("%w: no spreadsheet source configured", apierrors.ErrSheetsUnavailable)
	}

	set, err := s.sheets.Read(ctx)
	if err != nil {
		return nil, err
	}

	return s.Cleanse(ctx, set, "sheets")
}

// GetRun returns a stored run outcome by ID.
func (s *CleanseService) GetRun(ctx context.Context, runID string) (*RunOutcome, error) {
	outcome, ok := s.store.Get(runID)
	if !ok {
		return nil, apierrors.RunNotFoundError(runID)
	}
	return outcome, nil
}

// ListRuns returns summaries of the stored runs, newest first.
func (s *CleanseService) ListRuns(ctx context.Context) []RunSummary {
	outcomes := s.store.List()
	summaries := make([]RunSummary, 0, len(outcomes))
	for _, outcome := range outcomes {
		summaries = append(summaries, summarizeRun(outcome))
	}
	return summaries
}

// Stages returns metadata for the registered stages in execution order.
func (s *CleanseService) Stages(ctx context.Context) []StageInfo {
	stages := s.runner.Registry().List()
	infos := make([]StageInfo, 0, len(stages))
	for i, stage := range stages {
		infos = append(infos, StageInfo{
			ID:           stage.ID(),
			Name:         stage.Name(),
			Description:  stageDescription(stage.ID()),
			Dependencies: stage.Dependencies(),
			Order:        i + 1,
		})
	}
	return infos
}

// exportRun writes the run's artifacts into a directory named after the
// run ID under the configured output directory.
func (s *CleanseService) exportRun(ctx context.Context, result *domain.Result) ([]string, error) {
	cfg := s.exportCfg
	cfg.OutputDir = filepath.Join(cfg.OutputDir, result.RunID)
	return exporter.NewRunExporter(cfg, s.logger).Export(ctx, result)
}

// recordIngest counts every raw row handed to a run, parsed or not.
func (s *CleanseService) recordIngest(ctx context.Context, set *domain.RecordSet) {
	if s.metrics == nil || set == nil {
		return
	}
	s.metrics.IngestRowsTotal.Add(ctx, int64(set.Len()+len(set.Rejected)))
}

func summarizeRun(outcome *RunOutcome) RunSummary {
	result := outcome.Result
	return RunSummary{
		RunID:      result.RunID,
		Source:     outcome.Source,
		Records:    result.Clean.Len(),
		Rejected:   len(result.RejectedRows()),
		Audited:    len(result.AuditEntries()),
		StartedAt:  result.StartedAt,
		FinishedAt: result.FinishedAt,
	}
}

// stageDescription returns a user-facing description for each standard
// stage.
func stageDescription(stageID string) string {
	descriptions := map[string]string{
		pipeline.StageIDDeduplicate: "Remove duplicate transactions, keeping the most complete copy",
		pipeline.StageIDImpute:      "Fill missing quantities with the dataset median",
		pipeline.StageIDNormalize:   "Normalize dates, product names and customer IDs",
		pipeline.StageIDValidate:    "Flag quantities, prices and dates that break business rules",
		pipeline.StageIDRecalculate: "Recompute each total as quantity times price",
		pipeline.StageIDFeatures:    "Derive order month, order year and revenue category",
		pipeline.StageIDOutliers:    "Flag statistically extreme totals for review",
	}
	return descriptions[stageID]
}
