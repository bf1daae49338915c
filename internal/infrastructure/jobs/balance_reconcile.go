package jobs

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"wallet-ledger.backend/internal/domain/entities"
	"wallet-ledger.backend/pkg/logger"
)

// DefaultReconcileInterval is used when a non-positive interval is configured
const DefaultReconcileInterval = 10 * time.Minute

type balanceRebuilder interface {
	RebuildBatch(ctx context.Context, filter entities.RebuildFilter) (*entities.BatchReport, error)
}

// BalanceReconcileJob periodically recomputes wallet projections from the ledger
type BalanceReconcileJob struct {
	rebuilder balanceRebuilder
	filter    entities.RebuildFilter
	interval  time.Duration
	stop      chan struct{}
	stopOnce  sync.Once
}

func NewBalanceReconcileJob(rebuilder balanceRebuilder, filter entities.RebuildFilter, interval time.Duration) *BalanceReconcileJob {
	if interval <= 0 {
		interval = DefaultReconcileInterval
	}
	return &BalanceReconcileJob{
		rebuilder: rebuilder,
		filter:    filter,
		interval:  interval,
		stop:      make(chan struct{}),
	}
}

// Start runs a pass immediately and then on every tick until ctx ends or Stop is called
func (j *BalanceReconcileJob) Start(ctx context.Context) {
	logger.Info(ctx, "Starting balance reconcile job",
		zap.Duration("interval", j.interval),
		zap.Bool("dry_run", j.filter.DryRun),
	)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.reconcile(ctx)
	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "Balance reconcile job stopped (context cancelled)")
			return
		case <-j.stop:
			logger.Info(ctx, "Balance reconcile job stopped")
			return
		case <-ticker.C:
			j.reconcile(ctx)
		}
	}
}

// Stop ends Start; calling it more than once is a no-op
func (j *BalanceReconcileJob) Stop() {
	j.stopOnce.Do(func() { close(j.stop) })
}

// RunOnce performs a single reconcile pass
func (j *BalanceReconcileJob) RunOnce(ctx context.Context) (*entities.BatchReport, error) {
	return j.rebuilder.RebuildBatch(ctx, j.filter)
}

func (j *BalanceReconcileJob) reconcile(ctx context.Context) {
	report, err := j.RunOnce(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		logger.Error(ctx, "Balance reconcile pass failed", zap.Error(err))
		return
	}

	if report.Drifted > 0 || report.Failed > 0 {
		logger.Warn(ctx, "Balance reconcile pass found problems",
			zap.Int("total", report.Total),
			zap.Int("drifted", report.Drifted),
			zap.Int("failed", report.Failed),
		)
		return
	}
	logger.Debug(ctx, "Balance reconcile pass clean", zap.Int("total", report.Total))
}
