package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"salescleanse/pkg/contracts/domain"
	"salescleanse/pkg/contracts/events"
)

// ProgressBroadcaster receives run snapshots as stages progress
type ProgressBroadcaster interface {
	BroadcastRunSnapshot(snapshot events.RunSnapshot)
}

// MetricsRecorder receives pipeline throughput measurements
type MetricsRecorder interface {
	RecordStage(ctx context.Context, stage string, duration time.Duration, count domain.StageCount)
	RecordRun(ctx context.Context, duration time.Duration, clean, rejected, audited int)
}

// Runner executes the registered stages in dependency order, threading the
// record set from stage to stage and accumulating the audit trail. A
// dataset-fatal stage error rejects every in-flight record and skips the
// remaining stages; the run itself still completes and reports. Only
// infrastructure failures and cancellation surface as errors.
type Runner struct {
	registry *Registry
	config   *Config
	logger   *slog.Logger
	tracer   trace.Tracer

	broadcaster ProgressBroadcaster
	metrics     MetricsRecorder
}

// NewRunner creates a runner over the given registry
func NewRunner(registry *Registry, config *Config, logger *slog.Logger) *Runner {
	if registry == nil {
		registry = NewRegistry()
	}
	if config == nil {
		config = NewConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		registry: registry,
		config:   config,
		logger:   logger,
		tracer:   otel.Tracer("salescleanse/pipeline"),
	}
}

// SetBroadcaster attaches a progress broadcaster; nil detaches it
func (r *Runner) SetBroadcaster(b ProgressBroadcaster) {
	r.broadcaster = b
}

// SetMetrics attaches a metrics recorder; nil detaches it
func (r *Runner) SetMetrics(m MetricsRecorder) {
	r.metrics = m
}

// Registry returns the stage registry
func (r *Runner) Registry() *Registry {
	return r.registry
}

// Run cleans the raw record set and returns the full run result
func (r *Runner) Run(ctx context.Context, raw *domain.RecordSet) (*domain.Result, error) {
	if raw == nil {
		return nil, ErrNilRecordSet
	}

	ordered, err := r.registry.GetDependencyOrder()
	if err != nil {
		return nil, fmt.Errorf("resolving stage order: %w", err)
	}

	runID := uuid.NewString()
	startedAt := time.Now().UTC()

	states := make([]*StageState, len(ordered))
	for i, stage := range ordered {
		states[i] = NewStageState(stage.ID(), stage.Name())
	}

	set := raw.Clone()
	logger := r.logger.With(slog.String("run_id", runID))

	ctx, runSpan := r.tracer.Start(ctx, "pipeline.run",
		trace.WithAttributes(
			attribute.String("run_id", runID),
			attribute.Int("records_in", set.Len()),
		))
	defer runSpan.End()

	logger.InfoContext(ctx, "run_started",
		slog.Int("records", set.Len()),
		slog.Int("stages", len(ordered)))
	r.broadcast(runID, states, "running", "", startedAt, nil, "")

	var fatal *StageError

	for i, stage := range ordered {
		if err := ctx.Err(); err != nil {
			states[i].Fail(err)
			logger.WarnContext(ctx, "run_cancelled", slog.String("stage", stage.ID()))
			return nil, NewCancellationError(stage.ID())
		}
		if fatal != nil {
			states[i].Skip("dataset rejected by " + fatal.Stage)
			continue
		}

		state := states[i]
		state.Start(set.Len())
		r.broadcast(runID, states, "running", stage.ID(), startedAt, nil, "")

		stageCtx := ctx
		var cancel context.CancelFunc
		if r.config.StageTimeout > 0 {
			stageCtx, cancel = context.WithTimeout(ctx, r.config.StageTimeout)
		}

		rejectedBefore := len(set.Rejected)
		stageStart := time.Now()
		stageCtx, span := r.tracer.Start(stageCtx, "pipeline.stage."+stage.ID(),
			trace.WithAttributes(attribute.Int("records_in", set.Len())))
		out, entries, runErr := stage.Run(stageCtx, set)
		span.End()
		if cancel != nil {
			cancel()
		}
		duration := time.Since(stageStart)

		if runErr != nil {
			if IsDatasetFatal(runErr) {
				fatal, _ = AsStageError(runErr)
				rejected := set.Len()
				for _, rec := range set.Records {
					set.Reject(rec, fatal.Reason)
				}
				set.Records = nil

				state.SetCounts(0, 0, rejected)
				state.Fail(runErr)
				if r.metrics != nil {
					r.metrics.RecordStage(ctx, stage.ID(), duration, state.Count())
				}
				logger.ErrorContext(ctx, "stage_dataset_fatal",
					slog.String("stage", stage.ID()),
					slog.String("reason", fatal.Reason),
					slog.Int("rejected", rejected))
				r.broadcast(runID, states, "running", stage.ID(), startedAt, nil, fatal.Error())
				continue
			}

			state.Fail(runErr)
			logger.ErrorContext(ctx, "stage_failed",
				slog.String("stage", stage.ID()),
				slog.String("error", runErr.Error()),
				slog.Duration("duration", duration))
			r.broadcast(runID, states, "failed", stage.ID(), startedAt, nil, runErr.Error())
			if _, ok := AsStageError(runErr); ok {
				return nil, runErr
			}
			return nil, NewExecutionError(stage.ID(), runErr)
		}

		set = out
		set.AppendAudit(entries...)
		state.Complete(set.Len(), len(entries), len(set.Rejected)-rejectedBefore)

		if r.metrics != nil {
			r.metrics.RecordStage(ctx, stage.ID(), duration, state.Count())
		}
		logger.InfoContext(ctx, "stage_completed",
			slog.String("stage", stage.ID()),
			slog.Duration("duration", duration),
			slog.Int("in", state.RecordsIn),
			slog.Int("out", state.RecordsOut),
			slog.Int("audited", state.Audited),
			slog.Int("rejected", state.Rejected))
		r.broadcast(runID, states, "running", stage.ID(), startedAt, nil, "")
	}

	finishedAt := time.Now().UTC()
	result := &domain.Result{
		RunID:      runID,
		Clean:      set,
		Counts:     stageCounts(states),
		StartedAt:  startedAt,
		FinishedAt: finishedAt,
	}

	if r.metrics != nil {
		r.metrics.RecordRun(ctx, finishedAt.Sub(startedAt), set.Len(), len(set.Rejected), len(set.Audit))
	}

	status := "completed"
	errMsg := ""
	if fatal != nil {
		status = "failed"
		errMsg = fatal.Error()
	}
	logger.InfoContext(ctx, "run_completed",
		slog.String("status", status),
		slog.Int("clean", set.Len()),
		slog.Int("rejected", len(set.Rejected)),
		slog.Int("audit_entries", len(set.Audit)),
		slog.Duration("duration", finishedAt.Sub(startedAt)))
	r.broadcast(runID, states, status, "", startedAt, &finishedAt, errMsg)

	return result, nil
}

func (r *Runner) broadcast(runID string, states []*StageState, status, currentStage string, startedAt time.Time, completedAt *time.Time, errMsg string) {
	if r.broadcaster == nil {
		return
	}

	snapshots := make([]events.StageSnapshot, len(states))
	done := 0
	for i, state := range states {
		snapshots[i] = stageSnapshot(state)
		switch snapshots[i].Status {
		case string(StageStatusCompleted), string(StageStatusFailed), string(StageStatusSkipped):
			done++
		}
	}

	progress := 0
	if len(states) > 0 {
		progress = done * 100 / len(states)
	}

	r.broadcaster.BroadcastRunSnapshot(events.RunSnapshot{
		RunID:        runID,
		Status:       status,
		Progress:     progress,
		CurrentStage: currentStage,
		Stages:       snapshots,
		StartedAt:    startedAt,
		UpdatedAt:    time.Now().UTC(),
		CompletedAt:  completedAt,
		Error:        errMsg,
	})
}

func stageSnapshot(s *StageState) events.StageSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := events.StageSnapshot{
		ID:         s.ID,
		Name:       s.Name,
		Status:     string(s.Status),
		RecordsIn:  s.RecordsIn,
		RecordsOut: s.RecordsOut,
		Audited:    s.Audited,
		Rejected:   s.Rejected,
		Message:    s.Message,
	}
	if s.Err != nil {
		snap.Error = s.Err.Error()
	}
	return snap
}

func stageCounts(states []*StageState) []domain.StageCount {
	counts := make([]domain.StageCount, len(states))
	for i, state := range states {
		counts[i] = state.Count()
	}
	return counts
}
