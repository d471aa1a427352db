package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/memory"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/postgres"
	"github.com/odyssey-erp/odyssey-ledger/internal/observability"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/db"
	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

// Runtime holds the wired ledger service and the connections behind it.
type Runtime struct {
	Service *accounting.Service
	Pool    *pgxpool.Pool
	Redis   *redis.Client
	Checks  map[string]HealthChecker
	closers []func()
}

// Bootstrap connects the configured store and redis and builds the ledger
// service. The caller must Close the runtime.
func Bootstrap(ctx context.Context, cfg *Config, logger *slog.Logger, metrics *observability.Metrics) (*Runtime, error) {
	if logger == nil {
		logger = slog.Default()
	}
	rt := &Runtime{Checks: make(map[string]HealthChecker)}
	serviceCfg := accounting.ServiceConfig{
		Logger:               logger,
		PeriodLockTTL:        cfg.PeriodLockTTL,
		ReconcileConcurrency: cfg.ReconcileConcurrency,
	}
	if metrics != nil {
		serviceCfg.Metrics = observability.NewLedgerMetrics(metrics.Registerer())
	}

	var repo accounting.RepositoryPort
	switch cfg.StoreDriver {
	case StoreDriverMemory:
		logger.Warn("using in-memory ledger store, data is lost on restart")
		repo = memory.New()
		serviceCfg.Audit = shared.NewSlogAuditor(logger)
	case StoreDriverPostgres:
		pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		rt.Pool = pool
		rt.closers = append(rt.closers, pool.Close)
		rt.Checks["postgres"] = pool.Ping
		if cfg.PGMigrate {
			if err := postgres.Migrate(ctx, pool); err != nil {
				rt.Close()
				return nil, fmt.Errorf("apply schema: %w", err)
			}
			logger.Info("ledger schema applied")
		}
		repo = postgres.NewRepository(pool)
		serviceCfg.Audit = shared.NewAuditLogger(pool)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}

	if cfg.RedisEnabled() {
		client, err := cache.New(ctx, cfg.RedisAddr)
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		rt.Redis = client
		rt.closers = append(rt.closers, func() {
			if err := client.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		})
		rt.Checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		serviceCfg.Cache = cache.NewVersioned(client, "ledger:reports", cfg.ReportCacheTTL)
		serviceCfg.Locker = shared.NewRedisLocker(client)
	} else {
		logger.Warn("redis disabled, report cache and period locks are off")
	}

	rt.Service = accounting.NewService(repo, serviceCfg)
	return rt, nil
}

// Close releases connections in reverse order of acquisition.
func (r *Runtime) Close() {
	if r == nil {
		return
	}
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
	r.closers = nil
}
