package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/odyssey-erp/odyssey-ledger/cmd/ledgerctl/cli"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/postgres"
	"github.com/odyssey-erp/odyssey-ledger/internal/app"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/db"
)

const usage = `usage: ledgerctl <command> [flags]

commands:
  reconcile -company N   queue a balance reconciliation (0 = every company)
  queue                  print default queue statistics
  scheduled              list scheduled tasks
  schema                 print the ledger schema
  migrate                apply the ledger schema to PG_DSN
  seed -company N [-year Y]
                         create the default chart of accounts and monthly periods
`

func main() {
	if app.InTestMode() {
		return
	}
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)
	if err := run(ctx, cfg, logger, os.Args[1], os.Args[2:]); err != nil {
		logger.Error("ledgerctl", slog.String("command", os.Args[1]), slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *app.Config, logger *slog.Logger, command string, args []string) error {
	switch command {
	case "schema":
		_, err := fmt.Fprint(os.Stdout, postgres.Schema())
		return err
	case "migrate":
		pool, err := db.New(ctx, cfg.PGDSN, 2)
		if err != nil {
			return err
		}
		defer pool.Close()
		return postgres.Migrate(ctx, pool)
	case "seed":
		return runSeed(ctx, cfg, logger, args)
	case "reconcile", "queue", "scheduled":
		return runJobs(ctx, cfg, command, args)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

func runSeed(ctx context.Context, cfg *app.Config, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	company := fs.Int64("company", 0, "company id")
	year := fs.Int("year", time.Now().Year(), "fiscal year for monthly periods")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *company <= 0 {
		return fmt.Errorf("seed requires -company")
	}
	rt, err := app.Bootstrap(ctx, cfg, logger, nil)
	if err != nil {
		return err
	}
	defer rt.Close()

	result, err := cli.Seed(ctx, rt.Service, *company, *year)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "accounts created=%d skipped=%d periods created=%d skipped=%d\n",
		result.AccountsCreated, result.AccountsSkipped, result.PeriodsCreated, result.PeriodsSkipped)
	return nil
}

func runJobs(ctx context.Context, cfg *app.Config, command string, args []string) error {
	if !cfg.RedisEnabled() {
		return fmt.Errorf("REDIS_ADDR is required for %s", command)
	}
	jobsCLI := cli.NewJobsCLI(cfg.RedisAddr)
	defer func() { _ = jobsCLI.Close() }()

	switch command {
	case "reconcile":
		fs := flag.NewFlagSet("reconcile", flag.ContinueOnError)
		company := fs.Int64("company", 0, "company id, 0 for every company")
		if err := fs.Parse(args); err != nil {
			return err
		}
		info, err := jobsCLI.TriggerReconcile(ctx, *company)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "queued %s id=%s\n", info.Type, info.ID)
		return nil
	case "queue":
		stats, err := jobsCLI.InspectQueue(ctx)
		if err != nil {
			return err
		}
		return cli.WriteStats(os.Stdout, stats)
	default:
		tasks, err := jobsCLI.ListScheduled(ctx, 20)
		if err != nil {
			return err
		}
		for _, task := range tasks {
			fmt.Fprintf(os.Stdout, "%s %s next=%s\n", task.ID, task.Type, task.NextProcessAt.Format("2006-01-02T15:04:05Z07:00"))
		}
		return nil
	}
}
