package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, metrics *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	return rr.Body.String()
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/test")

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusTeapot, rr.Code)

	body := scrape(t, metrics)
	require.Contains(t, body, `odyssey_http_requests_total{code="418",route="/test"} 1`)
	require.Contains(t, body, `odyssey_http_request_duration_seconds_bucket{route="/test"`)
}

func TestLedgerMetricsExposed(t *testing.T) {
	metrics := NewMetrics()
	ledger := NewLedgerMetrics(metrics.Registerer())

	ledger.LedgerRowsAppended("post", 2)
	ledger.LedgerRowsAppended("void", 0)
	ledger.DriftCorrected(4, decimal.RequireFromString("-12.5"))

	body := scrape(t, metrics)
	require.Contains(t, body, `odyssey_ledger_rows_appended_total{operation="post"} 2`)
	require.NotContains(t, body, `operation="void"`)
	require.Contains(t, body, `odyssey_ledger_drift_corrections_total{company="4"} 1`)
	require.Contains(t, body, `odyssey_ledger_drift_amount_total{company="4"} 12.5`)
}

func TestNilMetricsAreSafe(t *testing.T) {
	var metrics *Metrics
	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)

	var ledger *LedgerMetrics
	ledger.LedgerRowsAppended("post", 1)
	ledger.DriftCorrected(1, decimal.NewFromInt(1))
}
