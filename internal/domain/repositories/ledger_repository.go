package repositories

import (
	"context"

	"github.com/google/uuid"
	"wallet-ledger.backend/internal/domain/entities"
)

// LedgerRepository is the append-only store of ledger entries. It has no
// update or delete operations by construction.
type LedgerRepository interface {
	Append(ctx context.Context, entry *entities.LedgerEntry) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.LedgerEntry, error)
	ListByWallet(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]*entities.LedgerEntry, error)
	ListByOperation(ctx context.Context, operationID uuid.UUID) ([]*entities.LedgerEntry, error)
	TotalsByWallet(ctx context.Context, walletID uuid.UUID) (*entities.LedgerTotals, error)
}

// BalanceRepository stores the balance projection
type BalanceRepository interface {
	// Read returns the snapshot, or a zero snapshot when none exists yet
	Read(ctx context.Context, walletID uuid.UUID) (*entities.WalletBalance, error)
	// ApplyDelta increments the projection in place, creating it if absent, and bumps the version
	ApplyDelta(ctx context.Context, walletID uuid.UUID, currency string, delta entities.BalanceDelta, lastEntryID uuid.UUID) (*entities.WalletBalance, error)
	// Overwrite replaces the projection with rebuilt values and bumps the version
	Overwrite(ctx context.Context, balance *entities.WalletBalance) (*entities.WalletBalance, error)
}
