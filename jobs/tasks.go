package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLedgerReconcile rewrites drifted account balances from the ledger.
	TaskLedgerReconcile = "ledger:reconcile"
)

// ReconcilePayload scopes a reconciliation run. A zero CompanyID reconciles
// every company.
type ReconcilePayload struct {
	CompanyID int64 `json:"company_id"`
}

// NewReconcileTask builds the reconcile task for one company, or all when
// companyID is zero.
func NewReconcileTask(companyID int64) (*asynq.Task, error) {
	body, err := json.Marshal(ReconcilePayload{CompanyID: companyID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerReconcile, body,
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(3),
		asynq.Timeout(10*time.Minute),
	), nil
}
