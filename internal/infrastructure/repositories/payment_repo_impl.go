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

// PaymentRepository implements payment repository
type PaymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository creates a new payment repository
func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Create creates a new payment with its allocations
func (r *PaymentRepository) Create(ctx context.Context, payment *entities.Payment) error {
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	if payment.CompletedAt.IsZero() {
		payment.CompletedAt = time.Now().UTC()
	}
	payment.UpdatedAt = payment.CompletedAt

	m := &models.Payment{
		ID:          payment.ID,
		IntentID:    payment.IntentID,
		OrderID:     payment.OrderID,
		Status:      string(payment.Status),
		AmountMinor: payment.AmountMinor,
		Currency:    payment.Currency,
		CompletedAt: payment.CompletedAt,
		UpdatedAt:   payment.UpdatedAt,
	}
	for i := range payment.Allocations {
		a := &payment.Allocations[i]
		if a.ID == uuid.Nil {
			a.ID = uuid.New()
		}
		a.PaymentID = payment.ID
		m.Allocations = append(m.Allocations, models.PaymentAllocation{
			ID:            a.ID,
			PaymentID:     a.PaymentID,
			WalletID:      a.WalletID,
			AmountMinor:   a.AmountMinor,
			LedgerEntryID: a.LedgerEntryID,
		})
	}

	if err := GetDB(ctx, r.db).WithContext(ctx).Create(m).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.Wrap(domainerrors.ErrConstraintViolation, "payment for intent %s already exists", payment.IntentID)
		}
		return err
	}
	return nil
}

// GetByID gets a payment by ID
func (r *PaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Payment, error) {
	return r.first(ctx, "id = ?", id)
}

// GetByIntentID gets the payment produced by capturing an intent
func (r *PaymentRepository) GetByIntentID(ctx context.Context, intentID uuid.UUID) (*entities.Payment, error) {
	return r.first(ctx, "intent_id = ?", intentID)
}

// MarkRefunded flips a completed payment to REFUNDED
func (r *PaymentRepository) MarkRefunded(ctx context.Context, id uuid.UUID) error {
	db := GetDB(ctx, r.db).WithContext(ctx)
	result := db.Model(&models.Payment{}).
		Where("id = ? AND status = ?", id, string(entities.PaymentStatusCompleted)).
		Updates(map[string]interface{}{
			"status":     string(entities.PaymentStatusRefunded),
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 1 {
		return nil
	}

	var count int64
	if err := db.Model(&models.Payment{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return domainerrors.ErrPaymentNotFound
	}
	return domainerrors.ErrRefundAlreadyExists
}

func (r *PaymentRepository) first(ctx context.Context, query string, arg interface{}) (*entities.Payment, error) {
	var m models.Payment
	if err := GetDB(ctx, r.db).WithContext(ctx).
		Preload("Allocations", orderByWallet).
		Where(query, arg).
		First(&m).Error; err != nil {
		if isNotFound(err) {
			return nil, domainerrors.ErrPaymentNotFound
		}
		return nil, err
	}

	e := &entities.Payment{
		ID:          m.ID,
		IntentID:    m.IntentID,
		OrderID:     m.OrderID,
		Status:      entities.PaymentStatus(m.Status),
		AmountMinor: m.AmountMinor,
		Currency:    m.Currency,
		CompletedAt: m.CompletedAt,
		UpdatedAt:   m.UpdatedAt,
		Allocations: make([]entities.PaymentAllocation, 0, len(m.Allocations)),
	}
	for _, a := range m.Allocations {
		e.Allocations = append(e.Allocations, entities.PaymentAllocation{
			ID:            a.ID,
			PaymentID:     a.PaymentID,
			WalletID:      a.WalletID,
			AmountMinor:   a.AmountMinor,
			LedgerEntryID: a.LedgerEntryID,
		})
	}
	return e, nil
}
