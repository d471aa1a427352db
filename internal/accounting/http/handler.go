package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

const (
	headerCompanyID = "X-Company-ID"
	headerUserID    = "X-User-ID"
	dateLayout      = "2006-01-02"
)

// ReconcileEnqueuer queues background reconciliation runs.
type ReconcileEnqueuer interface {
	EnqueueReconcile(ctx context.Context, companyID int64) (string, error)
}

// Handler exposes the ledger JSON API.
type Handler struct {
	logger    *slog.Logger
	service   *accounting.Service
	enqueuer  ReconcileEnqueuer
	validator *validator.Validate
}

// NewHandler constructs the ledger handler. enqueuer may be nil, in which case
// async reconciliation requests are rejected.
func NewHandler(logger *slog.Logger, service *accounting.Service, enqueuer ReconcileEnqueuer) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		service:   service,
		enqueuer:  enqueuer,
		validator: validator.New(),
	}
}

// MountRoutes registers ledger routes. Every route requires a tenant.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(RequireTenant)

		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", h.handleListAccounts)
			r.Post("/", h.handleCreateAccount)
			r.Get("/{id}", h.handleGetAccount)
			r.Delete("/{id}", h.handleDeleteAccount)
			r.Post("/{id}/archive", h.handleArchiveAccount)
			r.Get("/{id}/balance", h.handleAccountBalance)
			r.Get("/{id}/ledger", h.handleAccountLedger)
			r.Post("/{id}/reconcile", h.handleReconcileAccount)
		})
		r.Post("/reconcile", h.handleReconcileAll)

		r.Route("/journals", func(r chi.Router) {
			r.Get("/", h.handleListJournals)
			r.Post("/", h.handleCreateJournal)
			r.Get("/{id}", h.handleGetJournal)
			r.Patch("/{id}", h.handleUpdateJournal)
			r.Delete("/{id}", h.handleDeleteJournal)
			r.Post("/{id}/post", h.handlePostJournal)
			r.Post("/{id}/void", h.handleVoidJournal)
			r.Get("/{id}/ledger", h.handleJournalLedger)
		})

		r.Route("/periods", func(r chi.Router) {
			r.Get("/", h.handleListPeriods)
			r.Post("/", h.handleCreatePeriod)
			r.Get("/lookup", h.handleLookupPeriod)
			r.Get("/{id}", h.handleGetPeriod)
			r.Patch("/{id}", h.handleUpdatePeriod)
			r.Delete("/{id}", h.handleDeletePeriod)
			r.Post("/{id}/close", h.handleClosePeriod)
			r.Post("/{id}/reopen", h.handleReopenPeriod)
			r.Post("/{id}/lock", h.handleLockPeriod)
		})

		r.Route("/reports", func(r chi.Router) {
			r.Get("/trial-balance", h.handleTrialBalance)
			r.Get("/profit-and-loss", h.handleProfitAndLoss)
			r.Get("/balance-sheet", h.handleBalanceSheet)
		})
	})
}

// RequireTenant resolves the company and actor from request headers.
func RequireTenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		companyID, err := strconv.ParseInt(strings.TrimSpace(r.Header.Get(headerCompanyID)), 10, 64)
		if err != nil || companyID <= 0 {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", headerCompanyID+" header must be a positive integer")
			return
		}
		var actorID int64
		if raw := strings.TrimSpace(r.Header.Get(headerUserID)); raw != "" {
			actorID, err = strconv.ParseInt(raw, 10, 64)
			if err != nil || actorID < 0 {
				httpx.Problem(w, http.StatusBadRequest, "Validation Failed", headerUserID+" header must be an integer")
				return
			}
		}
		ctx := shared.ContextWithTenant(r.Context(), shared.Tenant{CompanyID: companyID, ActorID: actorID})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func tenant(r *http.Request) shared.Tenant {
	t, _ := shared.TenantFromContext(r.Context())
	return t
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, accounting.ErrValidation):
		err = httpx.WithKind(httpx.ErrValidation, err)
	case errors.Is(err, accounting.ErrNotFound):
		err = httpx.WithKind(httpx.ErrNotFound, err)
	case errors.Is(err, accounting.ErrConflict):
		err = httpx.WithKind(httpx.ErrConflict, err)
	case errors.Is(err, accounting.ErrInvalidState):
		err = httpx.WithKind(httpx.ErrInvalidState, err)
	case errors.Is(err, httpx.ErrValidation):
	default:
		h.logger.Error("ledger request", slog.String("method", r.Method), slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

// decode reads the JSON body into dst and runs struct validation.
func (h *Handler) decode(r *http.Request, dst any) error {
	if err := httpx.DecodeJSON(r, dst); err != nil {
		return httpx.WithKind(httpx.ErrValidation, fmt.Errorf("invalid request body: %w", err))
	}
	if err := h.validator.Struct(dst); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return httpx.WithKind(httpx.ErrValidation, err)
		}
		msgs := make([]string, 0, len(fieldErrs))
		for _, fieldErr := range fieldErrs {
			msgs = append(msgs, fmt.Sprintf("%s failed %s", fieldErr.Namespace(), fieldErr.Tag()))
		}
		return httpx.WithKind(httpx.ErrValidation, errors.New(strings.Join(msgs, "; ")))
	}
	return nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, httpx.WithKind(httpx.ErrValidation, errors.New("id must be a positive integer"))
	}
	return id, nil
}

func parseDate(field, raw string) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, raw, time.UTC)
	if err != nil {
		return time.Time{}, httpx.WithKind(httpx.ErrValidation, fmt.Errorf("%s must be a date in YYYY-MM-DD form", field))
	}
	return t, nil
}

// queryDate parses an optional date query parameter.
func queryDate(r *http.Request, field string) (*time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(field))
	if raw == "" {
		return nil, nil
	}
	t, err := parseDate(field, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func queryBool(r *http.Request, field string) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get(field))
	return v
}

func queryInt(r *http.Request, field string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(field))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, httpx.WithKind(httpx.ErrValidation, fmt.Errorf("%s must be a non-negative integer", field))
	}
	return v, nil
}
