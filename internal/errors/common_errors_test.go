package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorType_Constants(t *testing.T) {
	tests := []struct {
		name     string
		errType  ErrorType
		expected string
	}{
		{
			name:     "ingest error type",
			errType:  ErrTypeIngest,
			expected: "INGEST",
		},
		{
			name:     "pipeline error type",
			errType:  ErrTypePipeline,
			expected: "PIPELINE",
		},
		{
			name:     "export error type",
			errType:  ErrTypeExport,
			expected: "EXPORT",
		},
		{
			name:     "network error type",
			errType:  ErrTypeNetwork,
			expected: "NETWORK",
		},
		{
			name:     "parsing error type",
			errType:  ErrTypeParsing,
			expected: "PARSING",
		},
		{
			name:     "storage error type",
			errType:  ErrTypeStorage,
			expected: "STORAGE",
		},
		{
			name:     "validation error type",
			errType:  ErrTypeValidation,
			expected: "VALIDATION",
		},
		{
			name:     "not found error type",
			errType:  ErrTypeNotFound,
			expected: "NOT_FOUND",
		},
		{
			name:     "config error type",
			errType:  ErrTypeConfig,
			expected: "CONFIG",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, string(tt.errType))
		})
	}
}

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name        string
		appError    *AppError
		wantMessage string
	}{
		{
			name: "error without cause",
			appError: &AppError{
				Type:    ErrTypeIngest,
				Message: "Failed to read upload",
				Cause:   nil,
			},
			wantMessage: "[INGEST] Failed to read upload",
		},
		{
			name: "error with cause",
			appError: &AppError{
				Type:    ErrTypeNetwork,
				Message: "Failed to fetch spreadsheet",
				Cause:   fmt.Errorf("connection refused"),
			},
			wantMessage: "[NETWORK] Failed to fetch spreadsheet: connection refused",
		},
		{
			name: "error with wrapped cause",
			appError: &AppError{
				Type:    ErrTypeStorage,
				Message: "Failed to write workbook",
				Cause:   errors.New("disk full"),
			},
			wantMessage: "[STORAGE] Failed to write workbook: disk full",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMessage, tt.appError.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	t.Run("unwraps to cause", func(t *testing.T) {
		cause := errors.New("file does not exist")
		appErr := NewStorageError("failed to open output", cause)

		assert.True(t, errors.Is(appErr, cause))
		assert.Equal(t, cause, errors.Unwrap(appErr))
	})

	t.Run("nil cause unwraps to nil", func(t *testing.T) {
		appErr := NewAppValidationError("quantity must be positive")
		assert.Nil(t, errors.Unwrap(appErr))
	})

	t.Run("errors.As finds AppError through wrapping", func(t *testing.T) {
		appErr := NewIngestError("failed to parse row", nil)
		wrapped := fmt.Errorf("cleanse run: %w", appErr)

		var target *AppError
		require.True(t, errors.As(wrapped, &target))
		assert.Equal(t, ErrTypeIngest, target.Type)
	})
}

func TestAppError_WithContext(t *testing.T) {
	t.Run("adds context values", func(t *testing.T) {
		appErr := NewParsingError("bad quantity cell", nil).
			WithContext("row", 14).
			WithContext("column", "quantity")

		assert.Equal(t, 14, appErr.Context["row"])
		assert.Equal(t, "quantity", appErr.Context["column"])
	})

	t.Run("initializes nil context map", func(t *testing.T) {
		appErr := &AppError{Type: ErrTypeExport, Message: "write failed"}
		require.Nil(t, appErr.Context)

		appErr.WithContext("path", "out/cleaned.csv")
		assert.Equal(t, "out/cleaned.csv", appErr.Context["path"])
	})
}

func TestAppError_Constructors(t *testing.T) {
	cause := errors.New("underlying failure")

	tests := []struct {
		name        string
		build       func() *AppError
		wantType    ErrorType
		wantMessage string
		wantCause   error
	}{
		{
			name:        "ingest error",
			build:       func() *AppError { return NewIngestError("failed to read file", cause) },
			wantType:    ErrTypeIngest,
			wantMessage: "failed to read file",
			wantCause:   cause,
		},
		{
			name:        "pipeline error",
			build:       func() *AppError { return NewPipelineError("run aborted", cause) },
			wantType:    ErrTypePipeline,
			wantMessage: "run aborted",
			wantCause:   cause,
		},
		{
			name:        "export error",
			build:       func() *AppError { return NewExportError("workbook write failed", cause) },
			wantType:    ErrTypeExport,
			wantMessage: "workbook write failed",
			wantCause:   cause,
		},
		{
			name:        "network error",
			build:       func() *AppError { return NewNetworkError("sheets fetch failed", cause) },
			wantType:    ErrTypeNetwork,
			wantMessage: "sheets fetch failed",
			wantCause:   cause,
		},
		{
			name:        "parsing error",
			build:       func() *AppError { return NewParsingError("unreadable header", cause) },
			wantType:    ErrTypeParsing,
			wantMessage: "unreadable header",
			wantCause:   cause,
		},
		{
			name:        "storage error",
			build:       func() *AppError { return NewStorageError("mkdir failed", cause) },
			wantType:    ErrTypeStorage,
			wantMessage: "mkdir failed",
			wantCause:   cause,
		},
		{
			name:        "validation error has no cause",
			build:       func() *AppError { return NewAppValidationError("price must be set") },
			wantType:    ErrTypeValidation,
			wantMessage: "price must be set",
			wantCause:   nil,
		},
		{
			name:        "not found error formats resource",
			build:       func() *AppError { return NewNotFoundError("quality report") },
			wantType:    ErrTypeNotFound,
			wantMessage: "quality report not found",
			wantCause:   nil,
		},
		{
			name:        "config error",
			build:       func() *AppError { return NewConfigError("invalid rounding mode", cause) },
			wantType:    ErrTypeConfig,
			wantMessage: "invalid rounding mode",
			wantCause:   cause,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr := tt.build()

			require.NotNil(t, appErr)
			assert.Equal(t, tt.wantType, appErr.Type)
			assert.Equal(t, tt.wantMessage, appErr.Message)
			assert.Equal(t, tt.wantCause, appErr.Cause)
			assert.NotNil(t, appErr.Context)
		})
	}
}
