package entities

import (
	"time"

	"github.com/google/uuid"
)

// WalletStatus represents wallet lifecycle status
type WalletStatus string

const (
	WalletStatusActive    WalletStatus = "ACTIVE"
	WalletStatusSuspended WalletStatus = "SUSPENDED"
	WalletStatusClosed    WalletStatus = "CLOSED"
)

// Wallet represents a user's single-currency wallet
type Wallet struct {
	ID        uuid.UUID    `json:"id"`
	OwnerID   uuid.UUID    `json:"ownerId"`
	Currency  string       `json:"currency"`
	Status    WalletStatus `json:"status"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// IsActive reports whether the wallet may take part in money movements
func (w *Wallet) IsActive() bool {
	return w.Status == WalletStatusActive
}

// WalletFilter narrows a wallet population scan
type WalletFilter struct {
	Currency   string
	ActiveOnly bool
}
