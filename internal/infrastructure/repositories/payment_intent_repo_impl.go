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

// PaymentIntentRepository implements payment intent persistence
type PaymentIntentRepository struct {
	db *gorm.DB
}

// NewPaymentIntentRepository creates a new payment intent repository
func NewPaymentIntentRepository(db *gorm.DB) *PaymentIntentRepository {
	return &PaymentIntentRepository{db: db}
}

// Create stores the intent together with its allocations
func (r *PaymentIntentRepository) Create(ctx context.Context, intent *entities.PaymentIntent) error {
	if intent.ID == uuid.Nil {
		intent.ID = uuid.New()
	}
	now := time.Now().UTC()
	if intent.CreatedAt.IsZero() {
		intent.CreatedAt = now
	}
	intent.UpdatedAt = intent.CreatedAt

	m := &models.PaymentIntent{
		ID:             intent.ID,
		OrderID:        intent.OrderID,
		IdempotencyKey: intent.IdempotencyKey,
		Status:         string(intent.Status),
		AmountMinor:    intent.AmountMinor,
		Currency:       intent.Currency,
		CreatedAt:      intent.CreatedAt,
		UpdatedAt:      intent.UpdatedAt,
		CapturedAt:     intent.CapturedAt,
		ReleasedAt:     intent.ReleasedAt,
	}
	for i := range intent.Allocations {
		a := &intent.Allocations[i]
		if a.ID == uuid.Nil {
			a.ID = uuid.New()
		}
		a.IntentID = intent.ID
		m.Allocations = append(m.Allocations, models.PaymentIntentAllocation{
			ID:          a.ID,
			IntentID:    a.IntentID,
			WalletID:    a.WalletID,
			AmountMinor: a.AmountMinor,
			HoldEntryID: a.HoldEntryID,
		})
	}

	if err := GetDB(ctx, r.db).WithContext(ctx).Create(m).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.Wrap(domainerrors.ErrConstraintViolation, "intent for order %s and key %q already exists", intent.OrderID, intent.IdempotencyKey)
		}
		return err
	}
	return nil
}

// GetByID gets an intent with its allocations
func (r *PaymentIntentRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.PaymentIntent, error) {
	var m models.PaymentIntent
	if err := GetDB(ctx, r.db).WithContext(ctx).
		Preload("Allocations", orderByWallet).
		Where("id = ?", id).
		First(&m).Error; err != nil {
		if isNotFound(err) {
			return nil, domainerrors.ErrIntentNotFound
		}
		return nil, err
	}
	return r.toEntity(&m), nil
}

// TransitionStatus moves a RESERVED intent to a terminal status
func (r *PaymentIntentRepository) TransitionStatus(ctx context.Context, id uuid.UUID, to entities.IntentStatus, at time.Time) error {
	updates := map[string]interface{}{
		"status":     string(to),
		"updated_at": at,
	}
	switch to {
	case entities.IntentStatusCaptured:
		updates["captured_at"] = at
	case entities.IntentStatusReleased:
		updates["released_at"] = at
	default:
		return domainerrors.Wrap(domainerrors.ErrInvalidTransition, "cannot move intent to %s", to)
	}

	db := GetDB(ctx, r.db).WithContext(ctx)
	result := db.Model(&models.PaymentIntent{}).
		Where("id = ? AND status = ?", id, string(entities.IntentStatusReserved)).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 1 {
		return nil
	}

	var count int64
	if err := db.Model(&models.PaymentIntent{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return domainerrors.ErrIntentNotFound
	}
	return domainerrors.Wrap(domainerrors.ErrInvalidTransition, "intent %s is not reserved", id)
}

func (r *PaymentIntentRepository) toEntity(m *models.PaymentIntent) *entities.PaymentIntent {
	e := &entities.PaymentIntent{
		ID:             m.ID,
		OrderID:        m.OrderID,
		IdempotencyKey: m.IdempotencyKey,
		Status:         entities.IntentStatus(m.Status),
		AmountMinor:    m.AmountMinor,
		Currency:       m.Currency,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
		CapturedAt:     m.CapturedAt,
		ReleasedAt:     m.ReleasedAt,
		Allocations:    make([]entities.IntentAllocation, 0, len(m.Allocations)),
	}
	for _, a := range m.Allocations {
		e.Allocations = append(e.Allocations, entities.IntentAllocation{
			ID:          a.ID,
			IntentID:    a.IntentID,
			WalletID:    a.WalletID,
			AmountMinor: a.AmountMinor,
			HoldEntryID: a.HoldEntryID,
		})
	}
	return e
}

func orderByWallet(db *gorm.DB) *gorm.DB {
	return db.Order("wallet_id ASC")
}
