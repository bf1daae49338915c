package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"wallet-ledger.backend/internal/domain/entities"
	"wallet-ledger.backend/internal/infrastructure/models"
)

// BalanceRepository implements the balance projection store
type BalanceRepository struct {
	db *gorm.DB
}

// NewBalanceRepository creates a new balance repository
func NewBalanceRepository(db *gorm.DB) *BalanceRepository {
	return &BalanceRepository{db: db}
}

// Read returns the stored snapshot or a zero snapshot at version 0
func (r *BalanceRepository) Read(ctx context.Context, walletID uuid.UUID) (*entities.WalletBalance, error) {
	var m models.WalletBalance
	if err := GetDB(ctx, r.db).WithContext(ctx).Where("wallet_id = ?", walletID).First(&m).Error; err != nil {
		if isNotFound(err) {
			return &entities.WalletBalance{WalletID: walletID}, nil
		}
		return nil, err
	}
	return toBalanceEntity(&m), nil
}

// ApplyDelta increments the row in place. The arithmetic happens in the UPDATE
// so a stale read can never be written back.
func (r *BalanceRepository) ApplyDelta(ctx context.Context, walletID uuid.UUID, currency string, delta entities.BalanceDelta, lastEntryID uuid.UUID) (*entities.WalletBalance, error) {
	db := GetDB(ctx, r.db).WithContext(ctx)
	now := time.Now().UTC()

	if err := r.ensureRow(db, walletID, currency, now); err != nil {
		return nil, err
	}

	if err := db.Model(&models.WalletBalance{}).
		Where("wallet_id = ?", walletID).
		Updates(map[string]interface{}{
			"available_minor":      gorm.Expr("available_minor + ?", delta.Available),
			"pending_minor":        gorm.Expr("pending_minor + ?", delta.Pending),
			"version":              gorm.Expr("version + 1"),
			"last_ledger_entry_id": lastEntryID,
			"updated_at":           now,
		}).Error; err != nil {
		return nil, err
	}

	return r.reload(db, walletID)
}

// Overwrite replaces the stored values with rebuilt ones
func (r *BalanceRepository) Overwrite(ctx context.Context, balance *entities.WalletBalance) (*entities.WalletBalance, error) {
	db := GetDB(ctx, r.db).WithContext(ctx)
	now := time.Now().UTC()

	if err := r.ensureRow(db, balance.WalletID, balance.Currency, now); err != nil {
		return nil, err
	}

	if err := db.Model(&models.WalletBalance{}).
		Where("wallet_id = ?", balance.WalletID).
		Updates(map[string]interface{}{
			"available_minor":      balance.AvailableMinor,
			"pending_minor":        balance.PendingMinor,
			"currency":             balance.Currency,
			"version":              gorm.Expr("version + 1"),
			"last_ledger_entry_id": balance.LastLedgerEntryID,
			"updated_at":           now,
		}).Error; err != nil {
		return nil, err
	}

	return r.reload(db, balance.WalletID)
}

func (r *BalanceRepository) ensureRow(db *gorm.DB, walletID uuid.UUID, currency string, now time.Time) error {
	seed := &models.WalletBalance{
		WalletID:  walletID,
		Currency:  currency,
		UpdatedAt: now,
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "wallet_id"}},
		DoNothing: true,
	}).Create(seed).Error
}

func (r *BalanceRepository) reload(db *gorm.DB, walletID uuid.UUID) (*entities.WalletBalance, error) {
	var m models.WalletBalance
	if err := db.Where("wallet_id = ?", walletID).First(&m).Error; err != nil {
		return nil, err
	}
	return toBalanceEntity(&m), nil
}

func toBalanceEntity(m *models.WalletBalance) *entities.WalletBalance {
	return &entities.WalletBalance{
		WalletID:          m.WalletID,
		AvailableMinor:    m.AvailableMinor,
		PendingMinor:      m.PendingMinor,
		Currency:          m.Currency,
		LastLedgerEntryID: m.LastLedgerEntryID,
		Version:           m.Version,
		UpdatedAt:         m.UpdatedAt,
	}
}
