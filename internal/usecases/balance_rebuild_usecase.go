package usecases

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"wallet-ledger.backend/internal/domain/entities"
	"wallet-ledger.backend/internal/domain/repositories"
	"wallet-ledger.backend/pkg/logger"
	"wallet-ledger.backend/pkg/utils"
)

// BalanceRebuildUsecase recomputes projections from the ledger
type BalanceRebuildUsecase struct {
	walletRepo  repositories.WalletRepository
	ledgerRepo  repositories.LedgerRepository
	balanceRepo repositories.BalanceRepository
	uow         repositories.UnitOfWork
	locks       *LockCoordinator
	metrics     *Metrics
	pageSize    int
	concurrency int
}

// NewBalanceRebuildUsecase creates a new balance rebuild usecase
func NewBalanceRebuildUsecase(
	walletRepo repositories.WalletRepository,
	ledgerRepo repositories.LedgerRepository,
	balanceRepo repositories.BalanceRepository,
	uow repositories.UnitOfWork,
	opts ...Option,
) *BalanceRebuildUsecase {
	o := buildOptions(opts)
	return &BalanceRebuildUsecase{
		walletRepo:  walletRepo,
		ledgerRepo:  ledgerRepo,
		balanceRepo: balanceRepo,
		uow:         uow,
		locks:       NewLockCoordinator(uow),
		metrics:     o.metrics,
		pageSize:    o.rebuildPageSize,
		concurrency: o.rebuildConcurrency,
	}
}

// DetectDrift compares the stored projection with the ledger without writing.
// Both sides are read under the wallet lock so a concurrent posting cannot
// land between them; a concurrent lock holder yields InProgress.
func (u *BalanceRebuildUsecase) DetectDrift(ctx context.Context, walletID uuid.UUID) (outcome entities.Outcome[entities.DriftReport], err error) {
	started := time.Now()
	ctx, span := startSpan(ctx, OperationDetectDrift, attribute.String("ledger.wallet_id", walletID.String()))
	defer func() {
		kind := ""
		if outcome != nil {
			kind = string(outcome.Kind())
		}
		u.metrics.observe(OperationDetectDrift, kind, err, time.Since(started))
		endSpan(span, kind, err)
	}()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var report *entities.DriftReport
	err = u.uow.Do(ctx, func(txCtx context.Context) error {
		if _, err := u.walletRepo.GetByID(txCtx, walletID); err != nil {
			return err
		}
		acquired, err := u.locks.AcquireWallets(txCtx, walletID)
		if err != nil {
			return err
		}
		if !acquired {
			return errLockNotAcquired
		}
		report, _, err = u.compute(txCtx, walletID)
		return err
	})
	if err != nil {
		if errors.Is(err, errLockNotAcquired) {
			return entities.InProgress[entities.DriftReport]{}, nil
		}
		return nil, err
	}

	if report.HasDrift() {
		u.metrics.drift(OperationDetectDrift)
	}
	return entities.Completed[entities.DriftReport]{Result: report}, nil
}

// RebuildWallet overwrites the projection with the ledger-derived balance
// while holding the wallet lock. A concurrent lock holder yields InProgress.
func (u *BalanceRebuildUsecase) RebuildWallet(ctx context.Context, walletID uuid.UUID) (outcome entities.Outcome[entities.RebuildResult], err error) {
	started := time.Now()
	ctx, span := startSpan(ctx, OperationRebuild, attribute.String("ledger.wallet_id", walletID.String()))
	defer func() {
		kind := ""
		if outcome != nil {
			kind = string(outcome.Kind())
		}
		u.metrics.observe(OperationRebuild, kind, err, time.Since(started))
		endSpan(span, kind, err)
	}()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var result *entities.RebuildResult
	err = u.uow.Do(ctx, func(txCtx context.Context) error {
		wallet, err := u.walletRepo.GetByID(txCtx, walletID)
		if err != nil {
			return err
		}
		acquired, err := u.locks.AcquireWallets(txCtx, walletID)
		if err != nil {
			return err
		}
		if !acquired {
			return errLockNotAcquired
		}

		report, totals, err := u.compute(txCtx, walletID)
		if err != nil {
			return err
		}
		balance, err := u.balanceRepo.Overwrite(txCtx, &entities.WalletBalance{
			WalletID:          walletID,
			AvailableMinor:    report.ComputedAvailable,
			PendingMinor:      report.ComputedPending,
			Currency:          wallet.Currency,
			LastLedgerEntryID: totals.LastEntryID,
		})
		if err != nil {
			return err
		}
		result = &entities.RebuildResult{Drift: *report, Balance: *balance}
		return nil
	})
	if err != nil {
		if errors.Is(err, errLockNotAcquired) {
			return entities.InProgress[entities.RebuildResult]{}, nil
		}
		return nil, err
	}

	if result.Drift.HasDrift() {
		u.metrics.drift(OperationRebuild)
		logger.Warn(ctx, "Balance projection drift repaired",
			zap.String("wallet_id", walletID.String()),
			zap.Int64("available_drift", result.Drift.AvailableDrift),
			zap.Int64("pending_drift", result.Drift.PendingDrift),
		)
	}
	return entities.Completed[entities.RebuildResult]{Result: result}, nil
}

// RebuildBatch runs RebuildWallet, or DetectDrift when DryRun is set, over a
// wallet population. Individual wallet failures are counted, not returned.
func (u *BalanceRebuildUsecase) RebuildBatch(ctx context.Context, filter entities.RebuildFilter) (*entities.BatchReport, error) {
	report := &entities.BatchReport{}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.concurrency)

	walletFilter := entities.WalletFilter{
		Currency:   normalizeCurrency(filter.Currency),
		ActiveOnly: filter.ActiveOnly,
	}
	page := utils.NewPageParams(1, u.pageSize)
	visited := 0

scan:
	for {
		if err := ctx.Err(); err != nil {
			_ = g.Wait()
			return report, err
		}
		ids, err := u.walletRepo.ListIDs(ctx, walletFilter, page.Limit, page.Offset())
		if err != nil {
			_ = g.Wait()
			return report, err
		}
		for _, id := range ids {
			if filter.Limit > 0 && visited >= filter.Limit {
				break scan
			}
			visited++
			walletID := id
			g.Go(func() error {
				result := u.rebuildOne(gctx, walletID, filter.DryRun)
				mu.Lock()
				report.Record(walletID, result)
				mu.Unlock()
				u.metrics.rebuildResult(string(result))
				return nil
			})
		}
		if page.IsLast(len(ids)) {
			break
		}
		page = page.Next()
	}

	_ = g.Wait()
	logger.Info(ctx, "Balance rebuild batch finished",
		zap.Bool("dry_run", filter.DryRun),
		zap.Int("total", report.Total),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("drifted", report.Drifted),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
	)
	return report, nil
}

func (u *BalanceRebuildUsecase) rebuildOne(ctx context.Context, walletID uuid.UUID, dryRun bool) entities.WalletRebuildResult {
	if dryRun {
		outcome, err := u.DetectDrift(ctx, walletID)
		if err != nil {
			logger.Warn(ctx, "Drift detection failed", zap.String("wallet_id", walletID.String()), zap.Error(err))
			return entities.WalletRebuildFailed
		}
		report, ok := entities.ResultOf(outcome)
		if !ok {
			return entities.WalletRebuildSkipped
		}
		if report.HasDrift() {
			return entities.WalletRebuildDrifted
		}
		return entities.WalletRebuildClean
	}

	outcome, err := u.RebuildWallet(ctx, walletID)
	if err != nil {
		logger.Warn(ctx, "Wallet rebuild failed", zap.String("wallet_id", walletID.String()), zap.Error(err))
		return entities.WalletRebuildFailed
	}
	result, ok := entities.ResultOf(outcome)
	if !ok {
		return entities.WalletRebuildSkipped
	}
	if result.Drift.HasDrift() {
		return entities.WalletRebuildDrifted
	}
	return entities.WalletRebuildClean
}

func (u *BalanceRebuildUsecase) compute(ctx context.Context, walletID uuid.UUID) (*entities.DriftReport, *entities.LedgerTotals, error) {
	totals, err := u.ledgerRepo.TotalsByWallet(ctx, walletID)
	if err != nil {
		return nil, nil, err
	}
	stored, err := u.balanceRepo.Read(ctx, walletID)
	if err != nil {
		return nil, nil, err
	}

	computed := totals.Project()
	return &entities.DriftReport{
		WalletID:          walletID,
		StoredAvailable:   stored.AvailableMinor,
		StoredPending:     stored.PendingMinor,
		ComputedAvailable: computed.Available,
		ComputedPending:   computed.Pending,
		AvailableDrift:    stored.AvailableMinor - computed.Available,
		PendingDrift:      stored.PendingMinor - computed.Pending,
		StoredVersion:     stored.Version,
		LedgerEntryCount:  totals.EntryCount,
		ProjectionMissing: stored.Version == 0,
	}, totals, nil
}
