package pipeline

import (
	"context"
	"sync"
	"time"

	"salescleanse/pkg/contracts/domain"
)

// Stage identifiers, in canonical execution order
const (
	StageIDDeduplicate = "deduplicate"
	StageIDImpute      = "impute_quantity"
	StageIDNormalize   = "normalize"
	StageIDValidate    = "validate"
	StageIDRecalculate = "recalculate_total"
	StageIDFeatures    = "engineer_features"
	StageIDOutliers    = "scan_outliers"
)

// Stage names
const (
	StageNameDeduplicate = "Duplicate Removal"
	StageNameImpute      = "Quantity Imputation"
	StageNameNormalize   = "Field Normalization"
	StageNameValidate    = "Business Validation"
	StageNameRecalculate = "Total Recalculation"
	StageNameFeatures    = "Feature Engineering"
	StageNameOutliers    = "Outlier Scan"
)

// Stage represents a single cleaning step in the pipeline
type Stage interface {
	// ID returns the unique identifier for this stage
	ID() string

	// Name returns the human-readable name for this stage
	Name() string

	// Dependencies returns the IDs of stages that must complete before this stage
	Dependencies() []string

	// Run transforms the record set. Implementations never mutate their
	// input; they return a transformed copy plus the audit entries for
	// every mutation in deterministic order. Fatal per-record conditions
	// move rows into the returned set's rejected list; only dataset-level
	// or infrastructure failures surface as errors.
	Run(ctx context.Context, set *domain.RecordSet) (*domain.RecordSet, []domain.AuditEntry, error)
}

// StageStatus represents the current status of a stage within a run
type StageStatus string

const (
	StageStatusPending   StageStatus = "pending"
	StageStatusActive    StageStatus = "active"
	StageStatusCompleted StageStatus = "completed"
	StageStatusFailed    StageStatus = "failed"
	StageStatusSkipped   StageStatus = "skipped"
)

// StageState represents the runtime state of a stage within a run
type StageState struct {
	mu         sync.RWMutex
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Status     StageStatus `json:"status"`
	StartTime  *time.Time  `json:"start_time,omitempty"`
	EndTime    *time.Time  `json:"end_time,omitempty"`
	RecordsIn  int         `json:"records_in"`
	RecordsOut int         `json:"records_out"`
	Audited    int         `json:"audited"`
	Rejected   int         `json:"rejected"`
	Message    string      `json:"message,omitempty"`
	Err        error       `json:"-"`
}

// NewStageState creates a new stage state with default values
func NewStageState(id, name string) *StageState {
	return &StageState{
		ID:     id,
		Name:   name,
		Status: StageStatusPending,
	}
}

// Start marks the stage as active and sets the start time
func (s *StageState) Start(recordsIn int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.StartTime = &now
	s.Status = StageStatusActive
	s.RecordsIn = recordsIn
}

// Complete marks the stage as completed and records its throughput
func (s *StageState) Complete(recordsOut, audited, rejected int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.EndTime = &now
	s.Status = StageStatusCompleted
	s.RecordsOut = recordsOut
	s.Audited = audited
	s.Rejected = rejected
}

// SetCounts records throughput without changing status, used when a
// stage ends abnormally after having moved records.
func (s *StageState) SetCounts(recordsOut, audited, rejected int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.RecordsOut = recordsOut
	s.Audited = audited
	s.Rejected = rejected
}

// Fail marks the stage as failed with the given error
func (s *StageState) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.EndTime = &now
	s.Status = StageStatusFailed
	s.Err = err
}

// Skip marks the stage as skipped with the given reason
func (s *StageState) Skip(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.EndTime = &now
	s.Status = StageStatusSkipped
	s.Message = reason
}

// Duration returns the duration of the stage execution
func (s *StageState) Duration() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.StartTime == nil {
		return 0
	}
	if s.EndTime != nil {
		return s.EndTime.Sub(*s.StartTime)
	}
	return time.Since(*s.StartTime)
}

// Count returns the stage throughput as a domain count
func (s *StageState) Count() domain.StageCount {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return domain.StageCount{
		Stage:    s.ID,
		In:       s.RecordsIn,
		Out:      s.RecordsOut,
		Audited:  s.Audited,
		Rejected: s.Rejected,
	}
}

// BaseStage provides common functionality for Stage implementations
type BaseStage struct {
	id           string
	name         string
	dependencies []string
}

// NewBaseStage creates a new base stage
func NewBaseStage(id, name string, dependencies []string) BaseStage {
	if dependencies == nil {
		dependencies = []string{}
	}
	return BaseStage{
		id:           id,
		name:         name,
		dependencies: dependencies,
	}
}

// ID returns the stage ID
func (b *BaseStage) ID() string {
	if b == nil {
		return ""
	}
	return b.id
}

// Name returns the stage name
func (b *BaseStage) Name() string {
	if b == nil {
		return ""
	}
	return b.name
}

// Dependencies returns the stage dependencies
func (b *BaseStage) Dependencies() []string {
	if b == nil {
		return nil
	}
	return b.dependencies
}
