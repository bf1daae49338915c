package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
)

// RefundStatus represents refund status
type RefundStatus string

const (
	RefundStatusCompleted RefundStatus = "COMPLETED"
)

// Refund is the full reversal of one payment
type Refund struct {
	ID          uuid.UUID          `json:"id"`
	PaymentID   uuid.UUID          `json:"paymentId"`
	OrderID     uuid.UUID          `json:"orderId"`
	Status      RefundStatus       `json:"status"`
	AmountMinor int64              `json:"amountMinor"`
	Currency    string             `json:"currency"`
	Allocations []RefundAllocation `json:"allocations"`
	Reason      null.String        `json:"reason,omitempty"`
	CompletedAt time.Time          `json:"completedAt"`
}

// RefundAllocation is the amount credited back to one wallet
type RefundAllocation struct {
	ID            uuid.UUID `json:"id"`
	RefundID      uuid.UUID `json:"refundId"`
	WalletID      uuid.UUID `json:"walletId"`
	AmountMinor   int64     `json:"amountMinor"`
	LedgerEntryID uuid.UUID `json:"ledgerEntryId"`
}

// RefundPaymentInput represents input for a full refund
type RefundPaymentInput struct {
	PaymentID      uuid.UUID `json:"paymentId"`
	IdempotencyKey string    `json:"idempotencyKey"`
	Reason         string    `json:"reason,omitempty"`
}
