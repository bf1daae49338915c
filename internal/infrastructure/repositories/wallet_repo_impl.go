package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"wallet-ledger.backend/internal/domain/entities"
	domainerrors "wallet-ledger.backend/internal/domain/errors"
	"wallet-ledger.backend/internal/infrastructure/models"
)

// WalletRepository implements wallet repository
type WalletRepository struct {
	db *gorm.DB
}

// NewWalletRepository creates a new wallet repository
func NewWalletRepository(db *gorm.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

// Create creates a new wallet
func (r *WalletRepository) Create(ctx context.Context, wallet *entities.Wallet) error {
	if wallet.ID == uuid.Nil {
		wallet.ID = uuid.New()
	}
	now := time.Now().UTC()
	if wallet.CreatedAt.IsZero() {
		wallet.CreatedAt = now
	}
	wallet.UpdatedAt = now
	if wallet.Status == "" {
		wallet.Status = entities.WalletStatusActive
	}

	m := &models.Wallet{
		ID:        wallet.ID,
		OwnerID:   wallet.OwnerID,
		Currency:  wallet.Currency,
		Status:    string(wallet.Status),
		CreatedAt: wallet.CreatedAt,
		UpdatedAt: wallet.UpdatedAt,
	}
	if err := GetDB(ctx, r.db).WithContext(ctx).Create(m).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.Wrap(domainerrors.ErrConstraintViolation, "wallet %s already exists", wallet.ID)
		}
		return err
	}
	return nil
}

// GetByID gets a wallet by ID
func (r *WalletRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Wallet, error) {
	var m models.Wallet
	if err := GetDB(ctx, r.db).WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		if isNotFound(err) {
			return nil, domainerrors.ErrWalletNotFound
		}
		return nil, err
	}
	return r.toEntity(&m), nil
}

// GetByIDs loads several wallets at once; missing IDs are simply absent from the map
func (r *WalletRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*entities.Wallet, error) {
	out := make(map[uuid.UUID]*entities.Wallet, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var ms []models.Wallet
	if err := GetDB(ctx, r.db).WithContext(ctx).Where("id IN ?", ids).Find(&ms).Error; err != nil {
		return nil, err
	}
	for i := range ms {
		out[ms[i].ID] = r.toEntity(&ms[i])
	}
	return out, nil
}

// UpdateStatus changes the lifecycle status of a wallet
func (r *WalletRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status entities.WalletStatus) error {
	result := GetDB(ctx, r.db).WithContext(ctx).Model(&models.Wallet{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     string(status),
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrWalletNotFound
	}
	return nil
}

// ListIDs pages wallet IDs in a stable order
func (r *WalletRepository) ListIDs(ctx context.Context, filter entities.WalletFilter, limit, offset int) ([]uuid.UUID, error) {
	query := GetDB(ctx, r.db).WithContext(ctx).Model(&models.Wallet{})
	if filter.Currency != "" {
		query = query.Where("currency = ?", filter.Currency)
	}
	if filter.ActiveOnly {
		query = query.Where("status = ?", string(entities.WalletStatusActive))
	}
	query = query.Order("id ASC")
	if limit > 0 {
		query = query.Limit(limit).Offset(offset)
	}

	var ids []uuid.UUID
	if err := query.Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *WalletRepository) toEntity(m *models.Wallet) *entities.Wallet {
	return &entities.Wallet{
		ID:        m.ID,
		OwnerID:   m.OwnerID,
		Currency:  m.Currency,
		Status:    entities.WalletStatus(m.Status),
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
