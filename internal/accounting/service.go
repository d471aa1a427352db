package accounting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

// AuditPort records ledger events for compliance.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Locker guards period lifecycle transitions across processes.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

// ReportCache stores derived reports under a per-company version.
type ReportCache interface {
	BuildKey(ctx context.Context, companyID int64, parts ...string) (string, error)
	FetchJSON(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) error
	Bump(ctx context.Context, companyID int64) error
}

// MetricsRecorder receives ledger counters.
type MetricsRecorder interface {
	LedgerRowsAppended(operation string, rows int)
	DriftCorrected(companyID int64, amount decimal.Decimal)
}

// ServiceConfig wires the optional collaborators of the ledger service.
type ServiceConfig struct {
	Audit                AuditPort
	Locker               Locker
	Cache                ReportCache
	Metrics              MetricsRecorder
	Logger               *slog.Logger
	PeriodLockTTL        time.Duration
	ReconcileConcurrency int
}

// Service coordinates the account registry, journal lifecycle, ledger
// mechanics, period close and reconciliation.
type Service struct {
	repo    RepositoryPort
	audit   AuditPort
	locker  Locker
	cache   ReportCache
	metrics MetricsRecorder
	logger  *slog.Logger
	now     func() time.Time

	lockTTL     time.Duration
	concurrency int
	reports     singleflight.Group
}

// NewService constructs the ledger service.
func NewService(repo RepositoryPort, cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	lockTTL := cfg.PeriodLockTTL
	if lockTTL <= 0 {
		lockTTL = 30 * time.Second
	}
	concurrency := cfg.ReconcileConcurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Service{
		repo:        repo,
		audit:       cfg.Audit,
		locker:      cfg.Locker,
		cache:       cfg.Cache,
		metrics:     cfg.Metrics,
		logger:      logger,
		now:         time.Now,
		lockTTL:     lockTTL,
		concurrency: concurrency,
	}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func (s *Service) recordAudit(ctx context.Context, companyID, actorID int64, action, entity string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		CompanyID: companyID,
		ActorID:   actorID,
		Action:    action,
		Entity:    entity,
		EntityID:  strconv.FormatInt(entityID, 10),
		Meta:      meta,
		At:        s.now(),
	})
}

func (s *Service) invalidateReports(ctx context.Context, companyID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Bump(ctx, companyID); err != nil {
		s.logger.Warn("bump report cache", slog.Int64("company_id", companyID), slog.Any("error", err))
	}
}

func (s *Service) rowsAppended(operation string, rows int) {
	if s.metrics != nil && rows > 0 {
		s.metrics.LedgerRowsAppended(operation, rows)
	}
}

func (s *Service) acquirePeriodLock(ctx context.Context, companyID, periodID int64) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}
	release, err := s.locker.Acquire(ctx, shared.PeriodLockKey(companyID, periodID), s.lockTTL)
	if errors.Is(err, shared.ErrLockHeld) {
		return nil, &ConflictError{Entity: "period", Message: fmt.Sprintf("period %d is being modified by another request", periodID)}
	}
	if err != nil {
		return nil, fmt.Errorf("acquire period lock: %w", err)
	}
	return release, nil
}
