// Package app wires repositories and usecases from configuration.
package app

import (
	"gorm.io/gorm"

	"wallet-ledger.backend/internal/config"
	"wallet-ledger.backend/internal/domain/repositories"
	"wallet-ledger.backend/internal/infrastructure/cache"
	infraRepos "wallet-ledger.backend/internal/infrastructure/repositories"
	"wallet-ledger.backend/internal/usecases"
	"wallet-ledger.backend/pkg/redis"
)

// Ledger holds every usecase of the ledger core over one database
type Ledger struct {
	UnitOfWork repositories.UnitOfWork

	TopUp   *usecases.TopUpUsecase
	Intents *usecases.PaymentIntentUsecase
	Refunds *usecases.RefundUsecase
	Query   *usecases.LedgerQueryUsecase
	Rebuild *usecases.BalanceRebuildUsecase
}

// NewLedger builds the usecases. The replay cache is attached only when redis
// is enabled in cfg and the shared client has been initialized.
func NewLedger(db *gorm.DB, cfg *config.Config, metrics *usecases.Metrics) *Ledger {
	walletRepo := infraRepos.NewWalletRepository(db)
	ledgerRepo := infraRepos.NewLedgerRepository(db)
	balanceRepo := infraRepos.NewBalanceRepository(db)
	idempotencyRepo := infraRepos.NewIdempotencyRepository(db)
	intentRepo := infraRepos.NewPaymentIntentRepository(db)
	paymentRepo := infraRepos.NewPaymentRepository(db)
	refundRepo := infraRepos.NewRefundRepository(db)
	uow := infraRepos.NewUnitOfWork(db)

	opts := []usecases.Option{
		usecases.WithMetrics(metrics),
		usecases.WithRebuildBatch(cfg.Ledger.RebuildPageSize, cfg.Ledger.RebuildConcurrency),
	}
	if cfg.Redis.Enabled && redis.Enabled() {
		opts = append(opts, usecases.WithReplayCache(cache.NewReplayCache(cfg.Redis.ReplayTTL)))
	}

	return &Ledger{
		UnitOfWork: uow,
		TopUp:      usecases.NewTopUpUsecase(walletRepo, ledgerRepo, balanceRepo, idempotencyRepo, uow, opts...),
		Intents:    usecases.NewPaymentIntentUsecase(walletRepo, ledgerRepo, balanceRepo, intentRepo, paymentRepo, idempotencyRepo, uow, opts...),
		Refunds:    usecases.NewRefundUsecase(ledgerRepo, balanceRepo, paymentRepo, refundRepo, idempotencyRepo, uow, opts...),
		Query:      usecases.NewLedgerQueryUsecase(walletRepo, ledgerRepo, balanceRepo),
		Rebuild:    usecases.NewBalanceRebuildUsecase(walletRepo, ledgerRepo, balanceRepo, uow, opts...),
	}
}
