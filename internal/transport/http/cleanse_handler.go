package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	apierrors "salescleanse/internal/errors"
	"salescleanse/internal/exporter"
	"salescleanse/internal/infrastructure"
	"salescleanse/internal/ingest"
	"salescleanse/internal/middleware"
	"salescleanse/internal/services"
	"salescleanse/internal/stats"
	api "salescleanse/pkg/contracts/api/v1"
	"salescleanse/pkg/contracts/domain"
)

// Optional response extras selectable per request.
const (
	includeSummary = "summary"
	includeReport  = "report"
)

// maxUploadBytes caps multipart uploads; larger files belong with the CLI.
const maxUploadBytes = 64 << 20

// CleanseHandler handles cleansing runs and their stored results.
type CleanseHandler struct {
	service      CleanseServiceInterface
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewCleanseHandler creates a new cleanse handler
func NewCleanseHandler(service CleanseServiceInterface, logger *slog.Logger) *CleanseHandler {
	if service == nil {
		panic("service cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CleanseHandler{
		service:      service,
		logger:       logger.With(slog.String("handler", "cleanse")),
		errorHandler: apierrors.NewErrorHandler(logger, false),
	}
}

// Routes sets up the cleanse, stage and run routes. The router is mounted
// under the versioned API base path.
func (h *CleanseHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/cleanse", func(r chi.Router) {
		r.Post("/", h.Cleanse)
		r.Post("/upload", h.CleanseUpload)
		r.Post("/sheet", h.CleanseSheet)
	})

	r.Get("/stages", h.ListStages)

	r.Route("/runs", func(r chi.Router) {
		r.Get("/", h.ListRuns)
		r.Route("/{id}", func(r chi.Router) {
			r.Use(h.RunCtx)
			r.Get("/", h.GetRun)
			r.Get("/audit", h.GetRunAudit)
			r.Get("/rejected", h.GetRunRejected)
		})
	})

	return r
}

// cleanseRequest wraps the v1 contract with render.Binder validation.
type cleanseRequest struct {
	api.CleanseRequest
}

// Bind implements the render.Binder interface for request validation
func (cr *cleanseRequest) Bind(r *http.Request) error {
	if len(cr.Rows) == 0 {
		return errors.New("rows is required and must contain at least one row")
	}
	for _, inc := range cr.Include {
		if inc != includeSummary && inc != includeReport {
			return fmt.Errorf("invalid include value: %s", inc)
		}
	}
	return nil
}

// cleanseSheetRequest wraps the v1 sheet contract; an empty body is valid.
type cleanseSheetRequest struct {
	api.CleanseSheetRequest
}

func (cr *cleanseSheetRequest) Bind(r *http.Request) error {
	for _, inc := range cr.Include {
		if inc != includeSummary && inc != includeReport {
			return fmt.Errorf("invalid include value: %s", inc)
		}
	}
	return nil
}

// cleanseResponse is a run result plus the optional extras the caller asked
// for and the artifact paths written for the run.
type cleanseResponse struct {
	*domain.Result
	Source  string         `json:"source,omitempty"`
	Files   []string       `json:"files,omitempty"`
	Summary *stats.Summary `json:"summary,omitempty"`
	Report  string         `json:"report,omitempty"`
}

// Cleanse handles POST /api/v1/cleanse. The body carries raw rows; the
// response carries the cleaned records, per-stage counts, the audit trail
// and the rejected rows.
func (h *CleanseHandler) Cleanse(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)
	tracer := otel.Tracer("cleanse-handler")

	ctx, span := tracer.Start(ctx, "cleanse_handler.cleanse",
		trace.WithAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.route", "/api/v1/cleanse"),
			attribute.String("request_id", reqID),
		),
	)
	defer span.End()

	data := &cleanseRequest{}
	if err := render.Bind(r, data); err != nil {
		span.RecordError(err)
		h.logger.WarnContext(ctx, "failed to bind cleanse request",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID))
		h.renderBindError(w, r, err, reqID)
		return
	}

	span.SetAttributes(attribute.Int("cleanse.rows", len(data.Rows)))
	h.logger.InfoContext(ctx, "cleanse request received",
		slog.String("request_id", reqID),
		slog.Int("rows", len(data.Rows)))

	set, err := ingest.FromMaps(data.Rows)
	if err != nil {
		span.RecordError(err)
		h.logger.WarnContext(ctx, "cleanse ingest failed",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID))
		render.Render(w, r, apierrors.MapCleanseError(err, infrastructure.TraceIDFromContext(ctx)))
		return
	}

	h.runAndRender(w, r, set, "api", data.Include)
}

// CleanseUpload handles POST /api/v1/cleanse/upload. The multipart "file"
// part is ingested by extension (CSV or XLSX) and run through the pipeline.
func (h *CleanseHandler) CleanseUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)
	tracer := otel.Tracer("cleanse-handler")

	ctx, span := tracer.Start(ctx, "cleanse_handler.cleanse_upload",
		trace.WithAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.route", "/api/v1/cleanse/upload"),
			attribute.String("request_id", reqID),
		),
	)
	defer span.End()

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		span.RecordError(err)
		h.logger.WarnContext(ctx, "failed to parse upload",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID))
		render.Render(w, r, apierrors.MapCleanseError(apierrors.ErrInputTooLarge,
			infrastructure.TraceIDFromContext(ctx)))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		span.RecordError(err)
		h.renderBindError(w, r, errors.New(`multipart field "file" is required`), reqID)
		return
	}
	defer file.Close()

	span.SetAttributes(
		attribute.String("upload.filename", header.Filename),
		attribute.Int64("upload.size", header.Size),
	)
	h.logger.InfoContext(ctx, "cleanse upload received",
		slog.String("request_id", reqID),
		slog.String("filename", header.Filename),
		slog.Int64("size", header.Size))

	outcome, err := h.service.CleanseUpload(ctx, header.Filename, file)
	if err != nil {
		span.RecordError(err)
		h.logger.ErrorContext(ctx, "cleanse upload failed",
			slog.String("filename", header.Filename),
			slog.String("error", err.Error()),
			slog.String("request_id", reqID))
		render.Render(w, r, apierrors.MapCleanseError(err, infrastructure.TraceIDFromContext(ctx)))
		return
	}

	h.renderOutcome(w, r, outcome, queryIncludes(r))
}

// CleanseSheet handles POST /api/v1/cleanse/sheet. Rows come from the
// spreadsheet range configured at startup; the optional body selects
// response extras.
func (h *CleanseHandler) CleanseSheet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)
	tracer := otel.Tracer("cleanse-handler")

	ctx, span := tracer.Start(ctx, "cleanse_handler.cleanse_sheet",
		trace.WithAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.route", "/api/v1/cleanse/sheet"),
			attribute.String("request_id", reqID),
		),
	)
	defer span.End()

	data := &cleanseSheetRequest{}
	if r.ContentLength > 0 {
		if err := render.Bind(r, data); err != nil {
			span.RecordError(err)
			h.renderBindError(w, r, err, reqID)
			return
		}
	}

	h.logger.InfoContext(ctx, "cleanse sheet request received",
		slog.String("request_id", reqID))

	outcome, err := h.service.CleanseSheet(ctx)
	if err != nil {
		span.RecordError(err)
		h.logger.ErrorContext(ctx, "cleanse sheet failed",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID))
		render.Render(w, r, apierrors.MapCleanseError(err, infrastructure.TraceIDFromContext(ctx)))
		return
	}

	h.renderOutcome(w, r, outcome, mergeIncludes(r, data.Include))
}

// runAndRender executes the pipeline over an already-parsed record set and
// writes the response, honoring both body and query include selections.
func (h *CleanseHandler) runAndRender(w http.ResponseWriter, r *http.Request, set *domain.RecordSet, source string, bodyIncludes []string) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	outcome, err := h.service.Cleanse(ctx, set, source)
	if err != nil {
		h.logger.ErrorContext(ctx, "cleanse run failed",
			slog.String("source", source),
			slog.String("error", err.Error()),
			slog.String("request_id", reqID))
		render.Render(w, r, apierrors.MapCleanseError(err, infrastructure.TraceIDFromContext(ctx)))
		return
	}

	h.renderOutcome(w, r, outcome, mergeIncludes(r, bodyIncludes))
}

// renderOutcome shapes a stored run outcome into the response body.
func (h *CleanseHandler) renderOutcome(w http.ResponseWriter, r *http.Request, outcome *services.RunOutcome, includes map[string]bool) {
	resp := &cleanseResponse{
		Result: outcome.Result,
		Source: outcome.Source,
		Files:  outcome.Files,
	}
	if includes[includeSummary] || includes[includeReport] {
		summary := stats.Describe(outcome.Result.Clean)
		if includes[includeSummary] {
			resp.Summary = summary
		}
		if includes[includeReport] {
			resp.Report = exporter.BuildReport(outcome.Result, summary)
		}
	}

	h.logger.InfoContext(r.Context(), "cleanse run completed",
		slog.String("run_id", outcome.Result.RunID),
		slog.Int("records", len(outcome.Result.Clean.Records)),
		slog.Int("rejected", len(outcome.Result.Clean.Rejected)),
		slog.Int("audited", len(outcome.Result.Clean.Audit)))

	render.JSON(w, r, resp)
}

// ListStages handles GET /api/v1/stages
func (h *CleanseHandler) ListStages(w http.ResponseWriter, r *http.Request) {
	stages := h.service.Stages(r.Context())
	render.JSON(w, r, map[string]interface{}{
		"stages": stages,
		"count":  len(stages),
	})
}

// ListRuns handles GET /api/v1/runs
func (h *CleanseHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs := h.service.ListRuns(r.Context())
	render.JSON(w, r, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}

// RunCtx validates the run ID path parameter before the per-run endpoints
// touch the store.
func (h *CleanseHandler) RunCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if _, err := uuid.Parse(id); err != nil {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("id", "run ID must be a UUID"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetRun handles GET /api/v1/runs/{id}
func (h *CleanseHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	outcome, err := h.service.GetRun(ctx, id)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.renderOutcome(w, r, outcome, mergeIncludes(r, nil))
}

// GetRunAudit handles GET /api/v1/runs/{id}/audit
func (h *CleanseHandler) GetRunAudit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	outcome, err := h.service.GetRun(ctx, id)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	entries := outcome.Result.AuditEntries()
	render.JSON(w, r, map[string]interface{}{
		"run_id": id,
		"audit":  entries,
		"count":  len(entries),
	})
}

// GetRunRejected handles GET /api/v1/runs/{id}/rejected
func (h *CleanseHandler) GetRunRejected(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	outcome, err := h.service.GetRun(ctx, id)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	rows := outcome.Result.RejectedRows()
	render.JSON(w, r, map[string]interface{}{
		"run_id":   id,
		"rejected": rows,
		"count":    len(rows),
	})
}

// renderBindError writes a validation problem for a malformed request body.
func (h *CleanseHandler) renderBindError(w http.ResponseWriter, r *http.Request, err error, reqID string) {
	problem := apierrors.NewProblemDetails(
		http.StatusBadRequest,
		apierrors.TypeValidation,
		"Validation Failed",
		err.Error(),
		r.URL.Path+"#"+reqID,
	).WithExtension("trace_id", infrastructure.TraceIDFromContext(r.Context()))
	render.Render(w, r, problem)
}

// queryIncludes parses the ?include= parameter; comma-separated and
// repeated forms are both accepted.
func queryIncludes(r *http.Request) map[string]bool {
	includes := make(map[string]bool)
	for _, raw := range r.URL.Query()["include"] {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				includes[part] = true
			}
		}
	}
	return includes
}

// mergeIncludes unions query includes with body includes.
func mergeIncludes(r *http.Request, body []string) map[string]bool {
	includes := queryIncludes(r)
	for _, inc := range body {
		includes[inc] = true
	}
	return includes
}
