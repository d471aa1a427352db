package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	ledgerhttp "github.com/odyssey-erp/odyssey-ledger/internal/accounting/http"
	"github.com/odyssey-erp/odyssey-ledger/internal/observability"
	_ "github.com/odyssey-erp/odyssey-ledger/testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("REDIS_ADDR", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.AppAddr)
	require.Equal(t, StoreDriverMemory, cfg.StoreDriver)
	require.Equal(t, 30*time.Second, cfg.PeriodLockTTL)
	require.Equal(t, "0 2 * * *", cfg.ReconcileCron)
	require.False(t, cfg.RedisEnabled())
	require.False(t, cfg.IsProduction())
}

func TestLoadConfigRejectsUnknownDriver(t *testing.T) {
	t.Setenv("STORE_DRIVER", "sqlite")
	_, err := LoadConfig()
	require.ErrorContains(t, err, "STORE_DRIVER")
}

func TestInTestModeFromBootstrapPackage(t *testing.T) {
	RefreshTestMode()
	require.True(t, InTestMode())
}

func TestBootstrapMemoryWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &Config{
		StoreDriver:          StoreDriverMemory,
		RedisAddr:            mr.Addr(),
		ReportCacheTTL:       time.Minute,
		PeriodLockTTL:        time.Second,
		ReconcileConcurrency: 2,
		RateLimitPerMinute:   100,
	}
	metrics := observability.NewMetrics()
	rt, err := Bootstrap(context.Background(), cfg, discardLogger(), metrics)
	require.NoError(t, err)
	defer rt.Close()

	require.NotNil(t, rt.Service)
	require.NotNil(t, rt.Redis)
	require.Contains(t, rt.Checks, "redis")

	router := NewRouter(RouterParams{
		Logger:        discardLogger(),
		Config:        cfg,
		LedgerHandler: ledgerhttp.NewHandler(discardLogger(), rt.Service, nil),
		Metrics:       metrics,
		Checks:        rt.Checks,
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports/trial-balance", nil)
	req.Header.Set("X-Company-ID", "3")
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.NotEmpty(t, mr.Keys())

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `odyssey_http_requests_total{code="200",route="/api/v1/reports/trial-balance"}`)
}

func TestHealthzReportsFailingCheck(t *testing.T) {
	router := NewRouter(RouterParams{
		Logger: discardLogger(),
		Config: &Config{RateLimitPerMinute: 10},
		Checks: map[string]HealthChecker{
			"postgres": func(context.Context) error { return errors.New("connection refused") },
		},
	})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)

	var body healthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "degraded", body.Status)
	require.Equal(t, "connection refused", body.Checks["postgres"])
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	require.Equal(t, slog.LevelWarn, parseLevel("warning"))
	require.Equal(t, slog.LevelInfo, parseLevel(""))
}
