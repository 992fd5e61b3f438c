package http

import (
	"context"
	"io"

	"salescleanse/internal/services"
	"salescleanse/pkg/contracts/domain"
)

// CleanseServiceInterface defines what the cleanse handler needs from the
// service layer. Tests substitute mocks.
type CleanseServiceInterface interface {
	// Cleanse runs the pipeline over an already-parsed record set and
	// returns the stored outcome.
	Cleanse(ctx context.Context, raw *domain.RecordSet, source string) (*services.RunOutcome, error)

	// CleanseUpload ingests an uploaded file by extension and runs the
	// pipeline over it.
	CleanseUpload(ctx context.Context, filename string, r io.Reader) (*services.RunOutcome, error)

	// CleanseSheet pulls rows from the configured spreadsheet range and
	// runs the pipeline over them.
	CleanseSheet(ctx context.Context) (*services.RunOutcome, error)

	// GetRun returns a stored run by ID.
	GetRun(ctx context.Context, runID string) (*services.RunOutcome, error)

	// ListRuns returns summaries of stored runs, newest first.
	ListRuns(ctx context.Context) []services.RunSummary

	// Stages describes the registered pipeline stages in execution order.
	Stages(ctx context.Context) []services.StageInfo
}
