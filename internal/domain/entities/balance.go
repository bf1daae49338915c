package entities

import (
	"time"

	"github.com/google/uuid"
)

// WalletBalance is the derived, overwritable projection of a wallet's ledger
type WalletBalance struct {
	WalletID          uuid.UUID  `json:"walletId"`
	AvailableMinor    int64      `json:"availableMinor"`
	PendingMinor      int64      `json:"pendingMinor"`
	Currency          string     `json:"currency"`
	LastLedgerEntryID *uuid.UUID `json:"lastLedgerEntryId,omitempty"`
	Version           int64      `json:"version"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// BalanceDelta is the change an operation applies to a projection
type BalanceDelta struct {
	Available int64
	Pending   int64
}

// Add accumulates another delta
func (d BalanceDelta) Add(o BalanceDelta) BalanceDelta {
	return BalanceDelta{Available: d.Available + o.Available, Pending: d.Pending + o.Pending}
}

// EffectOf is the single rule table shared by incremental posting and full
// rebuild. Changing it changes both.
func EffectOf(op OperationType, amount int64) BalanceDelta {
	switch op {
	case OperationTypeTopUp, OperationTypeRefund:
		return BalanceDelta{Available: amount}
	case OperationTypeReserve:
		return BalanceDelta{Available: -amount, Pending: amount}
	case OperationTypePayment:
		return BalanceDelta{Pending: -amount}
	case OperationTypeRelease:
		return BalanceDelta{Available: amount, Pending: -amount}
	default:
		return BalanceDelta{}
	}
}
