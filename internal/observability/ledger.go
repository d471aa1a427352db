package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

// LedgerMetrics counts ledger writes and balance drift corrections.
type LedgerMetrics struct {
	rowsAppended *prometheus.CounterVec
	corrections  *prometheus.CounterVec
	drift        *prometheus.CounterVec
}

// NewLedgerMetrics registers the ledger collectors against registerer.
func NewLedgerMetrics(registerer prometheus.Registerer) *LedgerMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	rows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_ledger_rows_appended_total",
		Help: "Ledger rows appended, by operation (post, void, close, reopen).",
	}, []string{"operation"})
	corrections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_ledger_drift_corrections_total",
		Help: "Cached account balances rewritten by reconciliation.",
	}, []string{"company"})
	drift := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_ledger_drift_amount_total",
		Help: "Absolute balance drift corrected by reconciliation.",
	}, []string{"company"})
	registerer.MustRegister(rows, corrections, drift)
	return &LedgerMetrics{rowsAppended: rows, corrections: corrections, drift: drift}
}

// LedgerRowsAppended adds rows to the per-operation counter.
func (m *LedgerMetrics) LedgerRowsAppended(operation string, rows int) {
	if m == nil || rows <= 0 {
		return
	}
	m.rowsAppended.WithLabelValues(operation).Add(float64(rows))
}

// DriftCorrected records one corrected account and the absolute amount.
func (m *LedgerMetrics) DriftCorrected(companyID int64, amount decimal.Decimal) {
	if m == nil {
		return
	}
	company := strconv.FormatInt(companyID, 10)
	m.corrections.WithLabelValues(company).Inc()
	m.drift.WithLabelValues(company).Add(amount.Abs().InexactFloat64())
}
