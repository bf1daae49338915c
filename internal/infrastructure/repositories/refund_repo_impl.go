package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
	"gorm.io/gorm"
	"wallet-ledger.backend/internal/domain/entities"
	domainerrors "wallet-ledger.backend/internal/domain/errors"
	"wallet-ledger.backend/internal/infrastructure/models"
)

// RefundRepository implements refund repository
type RefundRepository struct {
	db *gorm.DB
}

// NewRefundRepository creates a new refund repository
func NewRefundRepository(db *gorm.DB) *RefundRepository {
	return &RefundRepository{db: db}
}

// Create stores a refund. The unique payment_id column is the last line of
// defence against a second refund of the same payment.
func (r *RefundRepository) Create(ctx context.Context, refund *entities.Refund) error {
	if refund.ID == uuid.Nil {
		refund.ID = uuid.New()
	}
	if refund.CompletedAt.IsZero() {
		refund.CompletedAt = time.Now().UTC()
	}
	if refund.Status == "" {
		refund.Status = entities.RefundStatusCompleted
	}

	m := &models.Refund{
		ID:          refund.ID,
		PaymentID:   refund.PaymentID,
		OrderID:     refund.OrderID,
		Status:      string(refund.Status),
		AmountMinor: refund.AmountMinor,
		Currency:    refund.Currency,
		Reason:      refund.Reason.Ptr(),
		CompletedAt: refund.CompletedAt,
	}
	for i := range refund.Allocations {
		a := &refund.Allocations[i]
		if a.ID == uuid.Nil {
			a.ID = uuid.New()
		}
		a.RefundID = refund.ID
		m.Allocations = append(m.Allocations, models.RefundAllocation{
			ID:            a.ID,
			RefundID:      a.RefundID,
			WalletID:      a.WalletID,
			AmountMinor:   a.AmountMinor,
			LedgerEntryID: a.LedgerEntryID,
		})
	}

	if err := GetDB(ctx, r.db).WithContext(ctx).Create(m).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.Wrap(domainerrors.ErrRefundAlreadyExists, "payment %s", refund.PaymentID)
		}
		return err
	}
	return nil
}

// GetByID gets a refund by ID
func (r *RefundRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Refund, error) {
	return r.first(ctx, "id = ?", id)
}

// GetByPaymentID gets the refund of a payment
func (r *RefundRepository) GetByPaymentID(ctx context.Context, paymentID uuid.UUID) (*entities.Refund, error) {
	return r.first(ctx, "payment_id = ?", paymentID)
}

func (r *RefundRepository) first(ctx context.Context, query string, arg interface{}) (*entities.Refund, error) {
	var m models.Refund
	if err := GetDB(ctx, r.db).WithContext(ctx).
		Preload("Allocations", orderByWallet).
		Where(query, arg).
		First(&m).Error; err != nil {
		if isNotFound(err) {
			return nil, domainerrors.ErrRefundNotFound
		}
		return nil, err
	}

	e := &entities.Refund{
		ID:          m.ID,
		PaymentID:   m.PaymentID,
		OrderID:     m.OrderID,
		Status:      entities.RefundStatus(m.Status),
		AmountMinor: m.AmountMinor,
		Currency:    m.Currency,
		Reason:      null.StringFromPtr(m.Reason),
		CompletedAt: m.CompletedAt,
		Allocations: make([]entities.RefundAllocation, 0, len(m.Allocations)),
	}
	for _, a := range m.Allocations {
		e.Allocations = append(e.Allocations, entities.RefundAllocation{
			ID:            a.ID,
			RefundID:      a.RefundID,
			WalletID:      a.WalletID,
			AmountMinor:   a.AmountMinor,
			LedgerEntryID: a.LedgerEntryID,
		})
	}
	return e, nil
}
