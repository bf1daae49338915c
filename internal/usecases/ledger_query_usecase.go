package usecases

import (
	"context"

	"github.com/google/uuid"
	"wallet-ledger.backend/internal/domain/entities"
	"wallet-ledger.backend/internal/domain/repositories"
	"wallet-ledger.backend/pkg/utils"
)

// LedgerQueryUsecase serves read-only views of wallets and their ledgers
type LedgerQueryUsecase struct {
	walletRepo  repositories.WalletRepository
	ledgerRepo  repositories.LedgerRepository
	balanceRepo repositories.BalanceRepository
}

// NewLedgerQueryUsecase creates a new ledger query usecase
func NewLedgerQueryUsecase(
	walletRepo repositories.WalletRepository,
	ledgerRepo repositories.LedgerRepository,
	balanceRepo repositories.BalanceRepository,
) *LedgerQueryUsecase {
	return &LedgerQueryUsecase{
		walletRepo:  walletRepo,
		ledgerRepo:  ledgerRepo,
		balanceRepo: balanceRepo,
	}
}

// GetBalance returns the projection of an existing wallet; a wallet that
// never moved money reads as zero
func (u *LedgerQueryUsecase) GetBalance(ctx context.Context, walletID uuid.UUID) (*entities.WalletBalance, error) {
	wallet, err := u.walletRepo.GetByID(ctx, walletID)
	if err != nil {
		return nil, err
	}
	balance, err := u.balanceRepo.Read(ctx, walletID)
	if err != nil {
		return nil, err
	}
	if balance.Currency == "" {
		balance.Currency = wallet.Currency
	}
	return balance, nil
}

// ListWalletEntries pages a wallet's ledger oldest first
func (u *LedgerQueryUsecase) ListWalletEntries(ctx context.Context, walletID uuid.UUID, page utils.PageParams) ([]*entities.LedgerEntry, error) {
	if _, err := u.walletRepo.GetByID(ctx, walletID); err != nil {
		return nil, err
	}
	page = utils.NewPageParams(page.Page, page.Limit)
	return u.ledgerRepo.ListByWallet(ctx, walletID, page.Limit, page.Offset())
}

// ListOperationEntries returns every entry written by one operation
func (u *LedgerQueryUsecase) ListOperationEntries(ctx context.Context, operationID uuid.UUID) ([]*entities.LedgerEntry, error) {
	return u.ledgerRepo.ListByOperation(ctx, operationID)
}
