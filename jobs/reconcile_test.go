package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/memory"
	jobmetrics "github.com/odyssey-erp/odyssey-ledger/internal/jobs"
	_ "github.com/odyssey-erp/odyssey-ledger/testing"
)

type stubReconciler struct {
	mu        sync.Mutex
	companies []int64
	calls     []int64
	failures  map[int64]error
	failed    map[int64]int
}

func (s *stubReconciler) ListCompanyIDs(ctx context.Context) ([]int64, error) {
	return s.companies, nil
}

func (s *stubReconciler) ReconcileAllAccountBalances(ctx context.Context, companyID int64) (accounting.ReconcileSummary, error) {
	s.mu.Lock()
	s.calls = append(s.calls, companyID)
	s.mu.Unlock()
	if err := s.failures[companyID]; err != nil {
		return accounting.ReconcileSummary{}, err
	}
	return accounting.ReconcileSummary{
		CompanyID:  companyID,
		Checked:    3,
		Failed:     s.failed[companyID],
		TotalDrift: decimal.Zero,
	}, nil
}

func newTestJob(service Reconciler) *ReconcileJob {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewReconcileJob(service, logger, jobmetrics.NewMetrics(prometheus.NewRegistry()))
}

func taskFor(t *testing.T, companyID int64) *asynq.Task {
	t.Helper()
	task, err := NewReconcileTask(companyID)
	require.NoError(t, err)
	require.Equal(t, TaskLedgerReconcile, task.Type())
	return task
}

func TestReconcileTaskPayload(t *testing.T) {
	task := taskFor(t, 12)
	var payload ReconcilePayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	require.Equal(t, int64(12), payload.CompanyID)
}

func TestReconcileJobSingleCompany(t *testing.T) {
	stub := &stubReconciler{companies: []int64{1, 2}}
	job := newTestJob(stub)

	require.NoError(t, job.Handle(context.Background(), taskFor(t, 2)))
	require.Equal(t, []int64{2}, stub.calls)
}

func TestReconcileJobAllCompaniesContinuesAfterFailure(t *testing.T) {
	stub := &stubReconciler{
		companies: []int64{1, 2, 3},
		failures:  map[int64]error{2: errors.New("db timeout")},
		failed:    map[int64]int{3: 1},
	}
	job := newTestJob(stub)

	summaries, err := job.Run(context.Background(), 0)
	require.Error(t, err)
	require.ErrorContains(t, err, "company 2: db timeout")
	require.ErrorContains(t, err, "company 3: 1 accounts failed")
	require.Equal(t, []int64{1, 2, 3}, stub.calls)
	require.Len(t, summaries, 2)
}

func TestReconcileJobRejectsBadPayload(t *testing.T) {
	job := newTestJob(&stubReconciler{})

	err := job.Handle(context.Background(), asynq.NewTask(TaskLedgerReconcile, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)

	err = job.Handle(context.Background(), asynq.NewTask(TaskLedgerReconcile, []byte(`{"company_id":-4}`)))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestReconcileJobAgainstLedgerService(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	service := accounting.NewService(store, accounting.ServiceConfig{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})

	cash, err := service.CreateAccount(ctx, accounting.CreateAccountInput{CompanyID: 5, Code: "1100", Name: "Cash", Type: accounting.AccountTypeAsset})
	require.NoError(t, err)
	_, err = service.CreateAccount(ctx, accounting.CreateAccountInput{CompanyID: 6, Code: "1100", Name: "Cash", Type: accounting.AccountTypeAsset})
	require.NoError(t, err)
	require.NoError(t, store.SetAccountBalance(5, cash.ID, decimal.NewFromInt(40)))

	job := newTestJob(service)
	summaries, err := job.Run(ctx, 0)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	require.Equal(t, int64(5), summaries[0].CompanyID)
	require.Equal(t, 1, summaries[0].Reconciled)
	require.True(t, summaries[0].TotalDrift.Equal(decimal.NewFromInt(40)))

	fixed, err := service.GetAccount(ctx, 5, cash.ID)
	require.NoError(t, err)
	require.True(t, fixed.Balance.IsZero())
}

func jobRuns(t *testing.T, reg *prometheus.Registry, status string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != "odyssey_jobs_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			labels := map[string]string{}
			for _, pair := range metric.GetLabel() {
				labels[pair.GetName()] = pair.GetValue()
			}
			if labels["job"] == reconcileJobName && labels["status"] == status {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func TestReconcileJobRecordsRunOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	stub := &stubReconciler{failures: map[int64]error{1: errors.New("db timeout")}}
	job := NewReconcileJob(stub, slog.New(slog.NewTextHandler(io.Discard, nil)), jobmetrics.NewMetrics(reg))

	_, err := job.Run(context.Background(), 1)
	require.ErrorContains(t, err, "company 1: db timeout")
	require.Equal(t, float64(1), jobRuns(t, reg, "failure"))
	require.Equal(t, float64(0), jobRuns(t, reg, "success"))

	_, err = job.Run(context.Background(), 2)
	require.NoError(t, err)
	require.Equal(t, float64(1), jobRuns(t, reg, "success"))
}
