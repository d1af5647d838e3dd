// Package jobs hosts the background worker built on Asynq.
package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLedgerReconcile verifies stored ledger totals against a replay.
	TaskLedgerReconcile = "ledger:reconcile"
)

// ReconcilePayload tunes a ledger reconciliation run.
type ReconcilePayload struct {
	// Tolerance is the largest acceptable absolute difference in AED.
	Tolerance float64 `json:"tolerance"`
	// CustomerID limits the scan to one customer when non-zero.
	CustomerID int64 `json:"customer_id,omitempty"`
}

// NewLedgerReconcileTask constructs an Asynq task.
func NewLedgerReconcileTask(payload ReconcilePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerReconcile, data), nil
}
