package repositories

import (
	"context"

	"github.com/google/uuid"
	"wallet-ledger.backend/internal/domain/entities"
)

// WalletRepository defines wallet data operations
type WalletRepository interface {
	Create(ctx context.Context, wallet *entities.Wallet) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Wallet, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*entities.Wallet, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status entities.WalletStatus) error
	ListIDs(ctx context.Context, filter entities.WalletFilter, limit, offset int) ([]uuid.UUID, error)
}
