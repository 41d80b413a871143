package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/meridian-fin/meridian-fin/internal/jobs"
)

// SnapshotProcessor describes the behaviour required to build a queued
// statement snapshot into its READY payload.
type SnapshotProcessor interface {
	Process(ctx context.Context, snapshotID int64) error
}

// SnapshotBuildJob processes statement snapshot tasks.
type SnapshotBuildJob struct {
	Processor SnapshotProcessor
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// NewSnapshotBuildJob constructs the job handler.
func NewSnapshotBuildJob(processor SnapshotProcessor, logger *slog.Logger, metrics *jobmetrics.Metrics) *SnapshotBuildJob {
	return &SnapshotBuildJob{Processor: processor, Logger: logger, Metrics: metrics}
}

// Handle fulfils the asynq.HandlerFunc contract.
func (j *SnapshotBuildJob) Handle(ctx context.Context, task *asynq.Task) error {
	if j == nil || j.Processor == nil {
		return errors.New("statement snapshot: processor not configured")
	}
	var payload StatementSnapshotPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.SnapshotID == 0 {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskStatementSnapshot)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	if err := j.Processor.Process(ctx, payload.SnapshotID); err != nil {
		resultErr = err
		j.log().Error("statement snapshot", slog.Int64("snapshot_id", payload.SnapshotID), slog.Any("error", err))
		return resultErr
	}
	return resultErr
}

func (j *SnapshotBuildJob) metrics() *jobmetrics.Metrics {
	if j != nil && j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *SnapshotBuildJob) log() *slog.Logger {
	if j != nil && j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskStatementSnapshot))
	}
	return slog.Default().With(slog.String("job", TaskStatementSnapshot))
}
