package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"wallet-ledger.backend/internal/domain/entities"
)

// PaymentIntentRepository defines payment intent data operations
type PaymentIntentRepository interface {
	Create(ctx context.Context, intent *entities.PaymentIntent) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.PaymentIntent, error)
	// TransitionStatus moves the intent from RESERVED; ErrInvalidTransition when it is no longer reserved
	TransitionStatus(ctx context.Context, id uuid.UUID, to entities.IntentStatus, at time.Time) error
}

// PaymentRepository defines payment data operations
type PaymentRepository interface {
	Create(ctx context.Context, payment *entities.Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Payment, error)
	GetByIntentID(ctx context.Context, intentID uuid.UUID) (*entities.Payment, error)
	MarkRefunded(ctx context.Context, id uuid.UUID) error
}

// RefundRepository defines refund data operations
type RefundRepository interface {
	Create(ctx context.Context, refund *entities.Refund) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Refund, error)
	GetByPaymentID(ctx context.Context, paymentID uuid.UUID) (*entities.Refund, error)
}
