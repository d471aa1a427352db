package jobs

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
)

type stubInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (s stubInspector) GetQueueInfo(queue string) (*asynq.QueueInfo, error) {
	return s.info, s.err
}

func healthRouter(inspector QueueInspector) http.Handler {
	r := chi.NewRouter()
	NewHandler(inspector, slog.New(slog.NewTextHandler(io.Discard, nil))).MountRoutes(r)
	return r
}

func TestJobsHealthReportsQueueDepth(t *testing.T) {
	router := healthRouter(stubInspector{info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 4, Active: 1}})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var body queueHealth
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, queueHealth{Queue: QueueDefault, Pending: 4, Active: 1}, body)
}

func TestJobsHealthUnavailable(t *testing.T) {
	router := healthRouter(stubInspector{err: errors.New("redis down")})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestJobsHealthWithoutInspector(t *testing.T) {
	rr := httptest.NewRecorder()
	healthRouter(nil).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"queue":"default","pending":0,"active":0,"retry":0}`, rr.Body.String())
}
