package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting"
	jobmetrics "github.com/odyssey-erp/odyssey-ledger/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

const reconcileJobName = "ledger_reconcile"

// Reconciler is the slice of the ledger service the reconcile job drives.
type Reconciler interface {
	ReconcileAllAccountBalances(ctx context.Context, companyID int64) (accounting.ReconcileSummary, error)
	ListCompanyIDs(ctx context.Context) ([]int64, error)
}

// ReconcileJob compares cached balances with the ledger for one or all companies.
type ReconcileJob struct {
	Service Reconciler
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewReconcileJob constructs the job handler.
func NewReconcileJob(service Reconciler, logger *slog.Logger, metrics *jobmetrics.Metrics) *ReconcileJob {
	return &ReconcileJob{
		Service: service,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the reconcile task.
func (j *ReconcileJob) Handle(ctx context.Context, task *asynq.Task) error {
	if j == nil || j.Service == nil {
		return errors.New("ledger reconcile: dependencies not configured")
	}
	var payload ReconcilePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("ledger reconcile: decode payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.CompanyID < 0 {
		return fmt.Errorf("ledger reconcile: company id must not be negative: %w", asynq.SkipRetry)
	}
	_, err := j.Run(ctx, payload.CompanyID)
	return err
}

// Run reconciles the requested company, or every company when companyID is
// zero. A failing company does not stop the others; the returned error joins
// every failure so the task is retried.
func (j *ReconcileJob) Run(ctx context.Context, companyID int64) (summaries []accounting.ReconcileSummary, err error) {
	tracker := j.metrics().Track(reconcileJobName)
	defer func() {
		err = tracker.End(err)
	}()

	companies := []int64{companyID}
	if companyID == 0 {
		ids, listErr := j.Service.ListCompanyIDs(ctx)
		if listErr != nil {
			j.log().Error("list companies", slog.Any("error", listErr))
			return nil, listErr
		}
		companies = ids
	}
	if len(companies) == 0 {
		j.log().Info("no companies to reconcile")
		return nil, nil
	}

	start := j.now()
	summaries = make([]accounting.ReconcileSummary, 0, len(companies))
	var errs []error
	drift := decimal.Zero
	for _, id := range companies {
		summary, runErr := j.Service.ReconcileAllAccountBalances(ctx, id)
		if runErr != nil {
			errs = append(errs, fmt.Errorf("company %d: %w", id, runErr))
			j.log().Error("reconcile company", slog.Int64("company_id", id), slog.Any("error", runErr))
			continue
		}
		summaries = append(summaries, summary)
		j.metrics().AddAccounts(reconcileJobName, "checked", summary.Checked)
		j.metrics().AddAccounts(reconcileJobName, "reconciled", summary.Reconciled)
		j.metrics().AddAccounts(reconcileJobName, "failed", summary.Failed)
		drift = drift.Add(summary.TotalDrift)
		if summary.Failed > 0 {
			errs = append(errs, fmt.Errorf("company %d: %d accounts failed to reconcile", id, summary.Failed))
		}
	}

	j.log().Info("ledger reconciliation finished",
		slog.Int("companies", len(companies)),
		slog.String("total_drift", drift.StringFixed(2)),
		slog.Int("errors", len(errs)),
		slog.Duration("duration", time.Since(start)))
	return summaries, errors.Join(errs...)
}

func (j *ReconcileJob) metrics() *jobmetrics.Metrics {
	if j != nil && j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *ReconcileJob) log() *slog.Logger {
	if j != nil && j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskLedgerReconcile))
	}
	return slog.Default().With(slog.String("job", TaskLedgerReconcile))
}

func (j *ReconcileJob) now() time.Time {
	if j != nil && j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}

// WithClock overrides the internal clock for deterministic tests.
func (j *ReconcileJob) WithClock(clock func() time.Time) {
	if j != nil && clock != nil {
		j.clock = clock
	}
}
