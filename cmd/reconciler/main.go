package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"wallet-ledger.backend/internal/app"
	"wallet-ledger.backend/internal/config"
	"wallet-ledger.backend/internal/domain/entities"
	"wallet-ledger.backend/internal/infrastructure/datasources/postgres"
	"wallet-ledger.backend/internal/infrastructure/jobs"
	"wallet-ledger.backend/internal/usecases"
	"wallet-ledger.backend/pkg/logger"
	"wallet-ledger.backend/pkg/redis"
)

var (
	loadDotenv = godotenv.Load
	loadCfg    = config.Load
	initLog    = logger.Init
	initRedis  = redis.Init
	openDB     = postgres.NewConnection
	closeDB    = func(db *gorm.DB) {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	notifyContext = signal.NotifyContext
	newMetrics    = func() *usecases.Metrics { return usecases.NewMetrics(prometheus.DefaultRegisterer) }
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		log.Fatal(err)
	}
}

type runOptions struct {
	once     bool
	dryRun   bool
	walletID uuid.UUID
}

func parseFlags(args []string, cfg *config.Config) (runOptions, error) {
	fs := flag.NewFlagSet("reconciler", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	once := fs.Bool("once", false, "run a single pass and exit")
	dryRun := fs.Bool("dry-run", !cfg.Ledger.RepairDrift, "only report drift, never overwrite projections")
	wallet := fs.String("wallet", "", "check or rebuild a single wallet")
	if err := fs.Parse(args); err != nil {
		return runOptions{}, err
	}

	opts := runOptions{once: *once, dryRun: *dryRun}
	if *wallet != "" {
		id, err := uuid.Parse(*wallet)
		if err != nil {
			return runOptions{}, fmt.Errorf("invalid wallet id %q: %w", *wallet, err)
		}
		opts.walletID = id
	}
	return opts, nil
}

func run(args []string, out io.Writer) error {
	if err := loadDotenv(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := loadCfg()
	initLog(cfg.App.Env)

	opts, err := parseFlags(args, cfg)
	if err != nil {
		return err
	}

	if cfg.Redis.Enabled {
		if err := initRedis(cfg.Redis.URL, cfg.Redis.Password); err != nil {
			return fmt.Errorf("failed to initialize redis: %w", err)
		}
		defer func() { _ = redis.Close() }()
		logger.Info(context.Background(), "Redis initialized")
	}

	db, err := openDB(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer closeDB(db)

	rebuild := app.NewLedger(db, cfg, newMetrics()).Rebuild

	ctx, stop := notifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.walletID != uuid.Nil {
		return runWallet(ctx, rebuild, opts, out)
	}

	job := jobs.NewBalanceReconcileJob(rebuild, entities.RebuildFilter{
		Currency:   cfg.Ledger.Currency,
		ActiveOnly: cfg.Ledger.ActiveOnly,
		DryRun:     opts.dryRun,
	}, cfg.Ledger.ReconcileInterval)

	if !opts.once {
		job.Start(ctx)
		return nil
	}

	report, err := job.RunOnce(ctx)
	if err != nil {
		return fmt.Errorf("reconcile failed: %w", err)
	}
	if err := writeJSON(out, report); err != nil {
		return err
	}
	if report.Failed > 0 {
		return fmt.Errorf("%d of %d wallets failed to reconcile", report.Failed, report.Total)
	}
	return nil
}

func runWallet(ctx context.Context, rebuild *usecases.BalanceRebuildUsecase, opts runOptions, out io.Writer) error {
	if opts.dryRun {
		outcome, err := rebuild.DetectDrift(ctx, opts.walletID)
		if err != nil {
			return fmt.Errorf("drift detection failed: %w", err)
		}
		return writeOutcome(ctx, out, opts.walletID, outcome)
	}

	outcome, err := rebuild.RebuildWallet(ctx, opts.walletID)
	if err != nil {
		return fmt.Errorf("rebuild failed: %w", err)
	}
	return writeOutcome(ctx, out, opts.walletID, outcome)
}

func writeOutcome[T any](ctx context.Context, out io.Writer, walletID uuid.UUID, outcome entities.Outcome[T]) error {
	result, ok := entities.ResultOf(outcome)
	if !ok {
		logger.Warn(ctx, "Wallet is locked by a concurrent operation, retry later",
			zap.String("wallet_id", walletID.String()))
		return fmt.Errorf("wallet %s is busy", walletID)
	}
	return writeJSON(out, result)
}

func writeJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
