package usecases

import (
	"context"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"wallet-ledger.backend/internal/domain/repositories"
	"wallet-ledger.backend/pkg/utils"
)

// LockCoordinator takes per-wallet try-locks in ascending wallet order
type LockCoordinator struct {
	uow repositories.UnitOfWork
}

// NewLockCoordinator creates a new lock coordinator
func NewLockCoordinator(uow repositories.UnitOfWork) *LockCoordinator {
	return &LockCoordinator{uow: uow}
}

// WalletLockKey derives the advisory lock key of a wallet
func WalletLockKey(walletID uuid.UUID) int64 {
	return int64(xxhash.Sum64String(walletID.String()))
}

// AcquireWallets locks every wallet or reports false at the first refusal.
// Locks taken before a refusal are released when the caller aborts its unit
// of work; ctx must come from UnitOfWork.Do.
func (c *LockCoordinator) AcquireWallets(ctx context.Context, walletIDs ...uuid.UUID) (bool, error) {
	for _, id := range utils.SortedUniqueUUIDs(walletIDs) {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		ok, err := c.uow.TryLock(ctx, WalletLockKey(id))
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}
