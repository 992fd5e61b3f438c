package pipeline

import (
	"errors"
	"fmt"
)

// ErrNilRecordSet is returned when a run is started without input
var ErrNilRecordSet = errors.New("record set is nil")

// ErrorType represents the type of pipeline error
type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "validation"
	ErrorTypeDependency   ErrorType = "dependency"
	ErrorTypeExecution    ErrorType = "execution"
	ErrorTypeTimeout      ErrorType = "timeout"
	ErrorTypeCancellation ErrorType = "cancellation"
	ErrorTypeDatasetFatal ErrorType = "dataset_fatal"
)

// StageError represents a stage-scoped pipeline error. DatasetFatal errors
// reject the whole record set but never fail the process; the runner
// converts them into rejected rows and completes the run.
type StageError struct {
	Type    ErrorType `json:"type"`
	Stage   string    `json:"stage,omitempty"`
	Reason  string    `json:"reason,omitempty"`
	Message string    `json:"message"`
	Cause   error     `json:"-"`
}

// Error implements the error interface
func (e *StageError) Error() string {
	if e == nil {
		return "unknown pipeline error"
	}
	if e.Stage != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Type, e.Stage, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *StageError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// NewDatasetFatalError creates an error that rejects the whole record set.
// Reason becomes the rejection reason on every in-flight record.
func NewDatasetFatalError(stage, reason, message string) *StageError {
	return &StageError{
		Type:    ErrorTypeDatasetFatal,
		Stage:   stage,
		Reason:  reason,
		Message: message,
	}
}

// NewExecutionError creates a new stage execution error
func NewExecutionError(stage string, cause error) *StageError {
	return &StageError{
		Type:    ErrorTypeExecution,
		Stage:   stage,
		Message: "stage execution failed",
		Cause:   cause,
	}
}

// NewCancellationError creates a new cancellation error
func NewCancellationError(stage string) *StageError {
	return &StageError{
		Type:    ErrorTypeCancellation,
		Stage:   stage,
		Message: "run was cancelled",
	}
}

// IsDatasetFatal checks whether the error rejects the whole record set
func IsDatasetFatal(err error) bool {
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr.Type == ErrorTypeDatasetFatal
	}
	return false
}

// AsStageError extracts a StageError from an error chain
func AsStageError(err error) (*StageError, bool) {
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr, true
	}
	return nil, false
}
