package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salescleanse/internal/shared/testutil"
)

func TestNewErrorHandler(t *testing.T) {
	tests := []struct {
		name         string
		includeStack bool
	}{
		{
			name:         "create handler with stack traces",
			includeStack: true,
		},
		{
			name:         "create handler without stack traces",
			includeStack: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, _ := testutil.NewTestLogger(t)

			handler := NewErrorHandler(logger, tt.includeStack)

			assert.NotNil(t, handler)
			assert.Equal(t, tt.includeStack, handler.includeStack)
			assert.NotNil(t, handler.logger)
		})
	}
}

func TestErrorHandler_HandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
		wantTitle  string
	}{
		{
			name: "handle nil error",
			err:  nil,
		},
		{
			name:       "handle context deadline exceeded",
			err:        context.DeadlineExceeded,
			wantStatus: http.StatusGatewayTimeout,
			wantType:   TypeTimeout,
			wantTitle:  "Request Timeout",
		},
		{
			name:       "handle context canceled",
			err:        context.Canceled,
			wantStatus: http.StatusGatewayTimeout,
			wantType:   TypeTimeout,
			wantTitle:  "Request Timeout",
		},
		{
			name:       "handle APIError",
			err:        ErrInvalidRequest,
			wantStatus: http.StatusBadRequest,
			wantType:   TypeValidation,
			wantTitle:  "Bad Request",
		},
		{
			name:       "handle run not found APIError",
			err:        RunNotFoundError("0c1b8f4e"),
			wantStatus: http.StatusNotFound,
			wantType:   TypeRunNotFound,
			wantTitle:  "Not Found",
		},
		{
			name:       "handle unsupported format sentinel",
			err:        fmt.Errorf("reading upload: %w", ErrUnsupportedFormat),
			wantStatus: http.StatusUnsupportedMediaType,
			wantType:   TypeIngestFormat,
			wantTitle:  "Unsupported Input Format",
		},
		{
			name:       "handle not found message",
			err:        fmt.Errorf("quality report not found"),
			wantStatus: http.StatusNotFound,
			wantType:   TypeNotFound,
			wantTitle:  "Resource Not Found",
		},
		{
			name:       "handle generic error",
			err:        fmt.Errorf("something went wrong"),
			wantStatus: http.StatusInternalServerError,
			wantType:   TypeInternal,
			wantTitle:  "Internal Server Error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, logHandler := testutil.NewTestLogger(t)
			handler := NewErrorHandler(logger, false)

			w := httptest.NewRecorder()
			r := httptest.NewRequest("GET", "/test", nil)

			handler.HandleError(w, r, tt.err)

			if tt.err == nil {
				// Should not write any response for nil error
				assert.Zero(t, w.Body.Len())
				return
			}

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, w.Header().Get("Content-Type"), "application/json")

			// Parse response body
			var problem ProblemDetails
			err := json.NewDecoder(w.Body).Decode(&problem)
			require.NoError(t, err)

			assert.Equal(t, tt.wantType, problem.Type)
			assert.Equal(t, tt.wantTitle, problem.Title)
			assert.Equal(t, tt.wantStatus, problem.Status)

			// Check that error was logged
			assert.True(t, logHandler.ContainsMessage("request failed"))
		})
	}
}

func TestErrorHandler_HandleError_IncludesStack(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	handler := NewErrorHandler(logger, true)

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/test", nil)

	handler.HandleError(w, r, fmt.Errorf("boom"))

	var decoded map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&decoded))

	assert.Contains(t, decoded, "stack")
	assert.Contains(t, decoded, "trace_id")
}

func TestErrorHandler_ErrorToProblem(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{
			name:       "missing columns sentinel",
			err:        fmt.Errorf("%w: price", ErrMissingColumns),
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   TypeIngestParse,
		},
		{
			name:       "input too large sentinel",
			err:        ErrInputTooLarge,
			wantStatus: http.StatusRequestEntityTooLarge,
			wantType:   TypePayloadTooLarge,
		},
		{
			name:       "sheets unavailable sentinel",
			err:        ErrSheetsUnavailable,
			wantStatus: http.StatusServiceUnavailable,
			wantType:   TypeSourceDown,
		},
		{
			name:       "rate limit message fallback",
			err:        fmt.Errorf("rate limit exceeded for 10.0.0.1"),
			wantStatus: http.StatusTooManyRequests,
			wantType:   TypeRateLimit,
		},
		{
			name:       "conflict message fallback",
			err:        fmt.Errorf("conflict: run already exists"),
			wantStatus: http.StatusConflict,
			wantType:   TypeConflict,
		},
		{
			name:       "payload too large message fallback",
			err:        fmt.Errorf("payload too large"),
			wantStatus: http.StatusRequestEntityTooLarge,
			wantType:   TypePayloadTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, _ := testutil.NewTestLogger(t)
			handler := NewErrorHandler(logger, false)
			r := httptest.NewRequest("POST", "/api/v1/cleanse", nil)

			problem := handler.ErrorToProblem(tt.err, r)

			require.NotNil(t, problem)
			assert.Equal(t, tt.wantStatus, problem.Status)
			assert.Equal(t, tt.wantType, problem.Type)
			assert.Equal(t, "/api/v1/cleanse", problem.Instance)
		})
	}
}

func TestErrorHandler_APIErrorDetails(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	handler := NewErrorHandler(logger, false)
	r := httptest.NewRequest("POST", "/api/v1/cleanse", nil)

	t.Run("validation errors become errors extension", func(t *testing.T) {
		apiErr := NewValidationErrors([]ValidationError{
			{Field: "quantity", Message: "must be a whole number"},
		})

		problem := handler.ErrorToProblem(apiErr, r)

		assert.Equal(t, TypeValidation, problem.Type)
		assert.Contains(t, problem.Extensions, "errors")
		assert.NotContains(t, problem.Extensions, "details")
	})

	t.Run("other details kept under details extension", func(t *testing.T) {
		apiErr := ExportError(fmt.Errorf("disk full"))

		problem := handler.ErrorToProblem(apiErr, r)

		assert.Equal(t, TypeExportFailed, problem.Type)
		assert.Equal(t, "disk full", problem.Extensions["details"])
		assert.Equal(t, "EXPORT_FAILED", problem.Extensions["error_code"])
	})

	t.Run("details omitted when absent", func(t *testing.T) {
		problem := handler.ErrorToProblem(ErrRunNotFound, r)

		assert.Equal(t, TypeRunNotFound, problem.Type)
		assert.NotContains(t, problem.Extensions, "details")
	})
}

func TestErrorHandler_HandlePanic(t *testing.T) {
	logger, logHandler := testutil.NewTestLogger(t)
	handler := NewErrorHandler(logger, true)

	w := httptest.NewRecorder()
	r := httptest.NewRequest("POST", "/api/v1/cleanse", nil)

	handler.HandlePanic(w, r, "nil pointer dereference")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.True(t, logHandler.ContainsMessage("panic recovered"))

	var decoded map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&decoded))
	assert.Equal(t, TypeInternal, decoded["type"])
	assert.Equal(t, "nil pointer dereference", decoded["panic"])
	assert.Contains(t, decoded, "stack")
}

func TestErrorHandler_NotFound(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	handler := NewErrorHandler(logger, false)

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/api/v1/nope", nil)

	handler.NotFound(w, r)

	assert.Equal(t, http.StatusNotFound, w.Code)

	var problem ProblemDetails
	require.NoError(t, json.NewDecoder(w.Body).Decode(&problem))
	assert.Equal(t, TypeNotFound, problem.Type)
	assert.Equal(t, "/api/v1/nope", problem.Instance)
}

func TestErrorHandler_MethodNotAllowed(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	handler := NewErrorHandler(logger, false)

	w := httptest.NewRecorder()
	r := httptest.NewRequest("DELETE", "/api/v1/cleanse", nil)

	handler.MethodNotAllowed(w, r)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)

	var problem ProblemDetails
	require.NoError(t, json.NewDecoder(w.Body).Decode(&problem))
	assert.Contains(t, problem.Detail, "DELETE")
}

func TestErrorHandler_Middleware(t *testing.T) {
	t.Run("recovers from panics", func(t *testing.T) {
		logger, logHandler := testutil.NewTestLogger(t)
		handler := NewErrorHandler(logger, false)

		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("stage exploded")
		})

		w := httptest.NewRecorder()
		r := httptest.NewRequest("GET", "/api/v1/stages", nil)

		handler.Middleware(next).ServeHTTP(w, r)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.True(t, logHandler.ContainsMessage("panic recovered"))
	})

	t.Run("passes successful responses through", func(t *testing.T) {
		logger, logHandler := testutil.NewTestLogger(t)
		handler := NewErrorHandler(logger, false)

		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"healthy"}`))
		})

		w := httptest.NewRecorder()
		r := httptest.NewRequest("GET", "/healthz", nil)

		handler.Middleware(next).ServeHTTP(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, `{"status":"healthy"}`, w.Body.String())
		assert.False(t, logHandler.ContainsMessage("error response"))
	})

	t.Run("logs error status codes", func(t *testing.T) {
		logger, logHandler := testutil.NewTestLogger(t)
		handler := NewErrorHandler(logger, false)

		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})

		w := httptest.NewRecorder()
		r := httptest.NewRequest("GET", "/api/v1/runs/unknown", nil)

		handler.Middleware(next).ServeHTTP(w, r)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.True(t, logHandler.ContainsMessage("error response"))
	})
}

func TestErrorHandler_JSON(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	handler := NewErrorHandler(logger, false)

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/api/v1/runs", nil)

	handler.JSON(w, r, http.StatusAccepted, map[string]string{"run_id": "abc"})

	assert.Equal(t, http.StatusAccepted, w.Code)

	var decoded map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&decoded))
	assert.Equal(t, "abc", decoded["run_id"])
}
