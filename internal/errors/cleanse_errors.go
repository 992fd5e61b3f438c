package errors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/render"
)

// Ingest and run errors (sentinel errors for service-layer flows)
var (
	ErrUnsupportedFormat = errors.New("unsupported input format")
	ErrMissingHeader     = errors.New("input has no header row")
	ErrMissingColumns    = errors.New("required columns missing")
	ErrInputTooLarge     = errors.New("input exceeds size limit")
	ErrSheetsUnavailable = errors.New("spreadsheet source unavailable")
)

// IngestFailureDetails provides additional context for ingest errors
type IngestFailureDetails struct {
	Source           string   `json:"source,omitempty"`
	Format           string   `json:"format,omitempty"`
	SupportedFormats []string `json:"supported_formats,omitempty"`
	MissingColumns   []string `json:"missing_columns,omitempty"`
	SizeLimit        int64    `json:"size_limit,omitempty"`
	RowsSeen         int      `json:"rows_seen,omitempty"`
}

// NewUnsupportedFormatError creates an error for inputs the ingest layer cannot read
func NewUnsupportedFormatError(details *IngestFailureDetails, traceID string) *ProblemDetails {
	problem := NewProblemDetails(
		http.StatusUnsupportedMediaType,
		TypeIngestFormat,
		"Unsupported Input Format",
		"The uploaded file is not in a supported format. Upload a CSV or XLSX file.",
		fmt.Sprintf("/api/v1/cleanse#%s", traceID),
	)

	problem.WithExtension("error_code", "UNSUPPORTED_FORMAT").
		WithExtension("trace_id", traceID).
		WithExtension("supported_formats", []string{"csv", "xlsx"})

	if details != nil {
		if details.Source != "" {
			problem.WithExtension("source", details.Source)
		}
		if details.Format != "" {
			problem.WithExtension("format", details.Format)
		}
		if len(details.SupportedFormats) > 0 {
			problem.WithExtension("supported_formats", details.SupportedFormats)
		}
	}

	return problem
}

// NewMissingColumnsError creates an error for inputs missing required columns
func NewMissingColumnsError(details *IngestFailureDetails, traceID string) *ProblemDetails {
	problem := NewProblemDetails(
		http.StatusUnprocessableEntity,
		TypeIngestParse,
		"Required Columns Missing",
		"The input header row does not contain all required columns.",
		fmt.Sprintf("/api/v1/cleanse#%s", traceID),
	)

	problem.WithExtension("error_code", "MISSING_COLUMNS").
		WithExtension("trace_id", traceID)

	if details != nil {
		if details.Source != "" {
			problem.WithExtension("source", details.Source)
		}
		if len(details.MissingColumns) > 0 {
			problem.WithExtension("missing_columns", details.MissingColumns)
		}
		if details.RowsSeen > 0 {
			problem.WithExtension("rows_seen", details.RowsSeen)
		}
	}

	return problem
}

// NewSourceUnavailableError creates an error for unreachable remote sources
func NewSourceUnavailableError(details *IngestFailureDetails, traceID string) *ProblemDetails {
	problem := NewProblemDetails(
		http.StatusServiceUnavailable,
		TypeSourceDown,
		"Source Unavailable",
		"Unable to read records from the remote spreadsheet. Please try again later.",
		fmt.Sprintf("/api/v1/cleanse#%s", traceID),
	)

	problem.WithExtension("error_code", "SOURCE_UNAVAILABLE").
		WithExtension("trace_id", traceID)

	if details != nil && details.Source != "" {
		problem.WithExtension("source", details.Source)
	}

	return problem
}

// MapCleanseError maps cleansing flow errors to HTTP problem details
func MapCleanseError(err error, traceID string) render.Renderer {
	instance := fmt.Sprintf("/api/v1/cleanse#trace-%s", traceID)

	// APIErrors carry their own status and code
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode {
		case "RUN_NOT_FOUND":
			return NewProblemDetails(
				http.StatusNotFound,
				TypeRunNotFound,
				"Run Not Found",
				"No cleansing run exists with the requested ID.",
				instance,
			).WithExtension("trace_id", traceID).
				WithExtension("error_code", "RUN_NOT_FOUND")
		case "RUN_FAILED", "RUN_EXECUTION_FAILED":
			return NewProblemDetails(
				http.StatusInternalServerError,
				TypeRunFailed,
				"Cleansing Run Failed",
				"The cleansing run could not be executed. Please try again.",
				instance,
			).WithExtension("trace_id", traceID).
				WithExtension("error_code", apiErr.ErrorCode)
		case "EXPORT_FAILED":
			return NewProblemDetails(
				http.StatusInternalServerError,
				TypeExportFailed,
				"Export Failed",
				"The run completed but its results could not be written.",
				instance,
			).WithExtension("trace_id", traceID).
				WithExtension("error_code", "EXPORT_FAILED")
		}
	}

	switch {
	case errors.Is(err, ErrUnsupportedFormat):
		return NewUnsupportedFormatError(nil, traceID)

	case errors.Is(err, ErrMissingHeader):
		return NewProblemDetails(
			http.StatusUnprocessableEntity,
			TypeIngestParse,
			"Input Has No Header Row",
			"The input does not start with a recognizable header row.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "MISSING_HEADER")

	case errors.Is(err, ErrMissingColumns):
		return NewProblemDetails(
			http.StatusUnprocessableEntity,
			TypeIngestParse,
			"Required Columns Missing",
			err.Error(),
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "MISSING_COLUMNS")

	case errors.Is(err, ErrInputTooLarge):
		return NewProblemDetails(
			http.StatusRequestEntityTooLarge,
			TypePayloadTooLarge,
			"Input Too Large",
			"The uploaded file exceeds the maximum allowed size.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "INPUT_TOO_LARGE")

	case errors.Is(err, ErrSheetsUnavailable):
		return NewSourceUnavailableError(nil, traceID)

	default:
		return NewProblemDetails(
			http.StatusInternalServerError,
			TypeInternal,
			"Internal Server Error",
			"An unexpected error occurred while processing your request.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "INTERNAL_ERROR")
	}
}
