package domain

import "time"

// StageCount captures one stage's throughput within a run.
type StageCount struct {
	Stage    string `json:"stage"`
	In       int    `json:"in"`
	Out      int    `json:"out"`
	Audited  int    `json:"audited"`
	Rejected int    `json:"rejected"`
}

// Result is the outcome of one full pipeline run. Clean carries the audit
// trail and rejected rows for the run; Counts summarizes per-stage
// throughput in execution order.
type Result struct {
	RunID      string       `json:"run_id"`
	Clean      *RecordSet   `json:"clean"`
	Counts     []StageCount `json:"counts"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
}

// AuditEntries returns the run's ordered audit log.
func (r *Result) AuditEntries() []AuditEntry {
	if r == nil || r.Clean == nil {
		return nil
	}
	return r.Clean.Audit
}

// RejectedRows returns the run's fatally rejected rows.
func (r *Result) RejectedRows() []RejectedRow {
	if r == nil || r.Clean == nil {
		return nil
	}
	return r.Clean.Rejected
}

// Duration returns the wall-clock duration of the run.
func (r *Result) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
