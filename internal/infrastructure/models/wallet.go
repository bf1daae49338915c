package models

import (
	"time"

	"github.com/google/uuid"
)

type Wallet struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	OwnerID   uuid.UUID `gorm:"type:uuid;not null;index"`
	Currency  string    `gorm:"type:varchar(3);not null;index"`
	Status    string    `gorm:"type:varchar(20);not null;index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// WalletBalance is the projection row; wallet_id doubles as primary key
type WalletBalance struct {
	WalletID          uuid.UUID  `gorm:"type:uuid;primaryKey"`
	AvailableMinor    int64      `gorm:"not null"`
	PendingMinor      int64      `gorm:"not null"`
	Currency          string     `gorm:"type:varchar(3);not null"`
	LastLedgerEntryID *uuid.UUID `gorm:"type:uuid"`
	Version           int64      `gorm:"not null"`
	UpdatedAt         time.Time
}
