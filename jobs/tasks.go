package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskStatementSnapshot builds the payload of a queued statement snapshot.
	TaskStatementSnapshot = "statements:snapshot"
	// TaskStatementsWarmup pre-populates the statement response cache.
	TaskStatementsWarmup = "statements:warmup"
	// TaskLedgerIntegrity runs the nightly trial balance sweep.
	TaskLedgerIntegrity = "ledger:integrity"
)

// StatementSnapshotPayload identifies the snapshot row to build.
type StatementSnapshotPayload struct {
	SnapshotID int64 `json:"snapshot_id"`
}

// NewStatementSnapshotTask constructs an Asynq task for one snapshot build.
func NewStatementSnapshotTask(snapshotID int64) (*asynq.Task, error) {
	body, err := json.Marshal(StatementSnapshotPayload{SnapshotID: snapshotID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskStatementSnapshot, body, asynq.Queue(QueueDefault)), nil
}

// StatementsWarmupPayload configures the scope of a cache warmup run.
type StatementsWarmupPayload struct {
	PeriodScope string `json:"period_scope"`
}

// NewStatementsWarmupTask constructs an Asynq task for the warmup routine.
func NewStatementsWarmupTask(scope string) (*asynq.Task, error) {
	if scope == "" {
		scope = "active"
	}
	body, err := json.Marshal(StatementsWarmupPayload{PeriodScope: scope})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskStatementsWarmup, body, asynq.Queue(QueueDefault)), nil
}

// LedgerIntegrityPayload selects the month the sweep verifies. An empty
// period means the current month.
type LedgerIntegrityPayload struct {
	Period string `json:"period"`
}

// NewLedgerIntegrityTask constructs an Asynq task for the integrity sweep.
func NewLedgerIntegrityTask(period string) (*asynq.Task, error) {
	body, err := json.Marshal(LedgerIntegrityPayload{Period: period})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerIntegrity, body, asynq.Queue(QueueDefault)), nil
}
