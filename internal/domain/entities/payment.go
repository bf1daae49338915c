package entities

import (
	"time"

	"github.com/google/uuid"
)

// PaymentStatus represents payment status
type PaymentStatus string

const (
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusRefunded  PaymentStatus = "REFUNDED"
)

// Payment is the result of a captured intent
type Payment struct {
	ID          uuid.UUID           `json:"id"`
	IntentID    uuid.UUID           `json:"intentId"`
	OrderID     uuid.UUID           `json:"orderId"`
	Status      PaymentStatus       `json:"status"`
	AmountMinor int64               `json:"amountMinor"`
	Currency    string              `json:"currency"`
	Allocations []PaymentAllocation `json:"allocations"`
	CompletedAt time.Time           `json:"completedAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
}

// PaymentAllocation is the spent share of one wallet with the entry that realized it
type PaymentAllocation struct {
	ID            uuid.UUID `json:"id"`
	PaymentID     uuid.UUID `json:"paymentId"`
	WalletID      uuid.UUID `json:"walletId"`
	AmountMinor   int64     `json:"amountMinor"`
	LedgerEntryID uuid.UUID `json:"ledgerEntryId"`
}

// WalletIDs returns the wallets touched by the payment
func (p *Payment) WalletIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(p.Allocations))
	for _, a := range p.Allocations {
		ids = append(ids, a.WalletID)
	}
	return ids
}
