package entities

import (
	"time"

	"github.com/google/uuid"
)

// IntentStatus represents payment intent status. CAPTURED and RELEASED are terminal.
type IntentStatus string

const (
	IntentStatusReserved IntentStatus = "RESERVED"
	IntentStatusCaptured IntentStatus = "CAPTURED"
	IntentStatusReleased IntentStatus = "RELEASED"
)

// PaymentIntent is a multi-wallet reservation for one order
type PaymentIntent struct {
	ID             uuid.UUID          `json:"id"`
	OrderID        uuid.UUID          `json:"orderId"`
	IdempotencyKey string             `json:"idempotencyKey"`
	Status         IntentStatus       `json:"status"`
	AmountMinor    int64              `json:"amountMinor"`
	Currency       string             `json:"currency"`
	Allocations    []IntentAllocation `json:"allocations"`
	CreatedAt      time.Time          `json:"createdAt"`
	UpdatedAt      time.Time          `json:"updatedAt"`
	CapturedAt     *time.Time         `json:"capturedAt,omitempty"`
	ReleasedAt     *time.Time         `json:"releasedAt,omitempty"`
}

// IntentAllocation is the share of an intent held on one wallet
type IntentAllocation struct {
	ID          uuid.UUID `json:"id"`
	IntentID    uuid.UUID `json:"intentId"`
	WalletID    uuid.UUID `json:"walletId"`
	AmountMinor int64     `json:"amountMinor"`
	HoldEntryID uuid.UUID `json:"holdEntryId"`
}

// WalletIDs returns the wallets touched by the intent
func (p *PaymentIntent) WalletIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(p.Allocations))
	for _, a := range p.Allocations {
		ids = append(ids, a.WalletID)
	}
	return ids
}

// AllocationInput is one requested wallet share
type AllocationInput struct {
	WalletID    uuid.UUID `json:"walletId"`
	AmountMinor int64     `json:"amountMinor"`
}

// CreateIntentInput represents input for reserving funds for an order
type CreateIntentInput struct {
	OrderID        uuid.UUID         `json:"orderId"`
	IdempotencyKey string            `json:"idempotencyKey"`
	AmountMinor    int64             `json:"amountMinor"`
	Currency       string            `json:"currency"`
	Allocations    []AllocationInput `json:"allocations"`
}

// CaptureIntentInput represents input for finalizing a reservation
type CaptureIntentInput struct {
	IntentID       uuid.UUID `json:"intentId"`
	IdempotencyKey string    `json:"idempotencyKey"`
}

// ReleaseIntentInput represents input for cancelling a reservation
type ReleaseIntentInput struct {
	IntentID       uuid.UUID `json:"intentId"`
	IdempotencyKey string    `json:"idempotencyKey"`
}
