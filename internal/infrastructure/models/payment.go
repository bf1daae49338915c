package models

import (
	"time"

	"github.com/google/uuid"
)

type PaymentIntent struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	OrderID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_intent_order_key"`
	IdempotencyKey string    `gorm:"type:varchar(255);not null;uniqueIndex:uq_intent_order_key"`
	Status         string    `gorm:"type:varchar(20);not null;index"`
	AmountMinor    int64     `gorm:"not null"`
	Currency       string    `gorm:"type:varchar(3);not null"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
	CapturedAt     *time.Time
	ReleasedAt     *time.Time

	Allocations []PaymentIntentAllocation `gorm:"foreignKey:IntentID"`
}

type PaymentIntentAllocation struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	IntentID    uuid.UUID `gorm:"type:uuid;not null;index"`
	WalletID    uuid.UUID `gorm:"type:uuid;not null"`
	AmountMinor int64     `gorm:"not null"`
	HoldEntryID uuid.UUID `gorm:"type:uuid;not null"`
}

type Payment struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	IntentID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	OrderID     uuid.UUID `gorm:"type:uuid;not null;index"`
	Status      string    `gorm:"type:varchar(20);not null"`
	AmountMinor int64     `gorm:"not null"`
	Currency    string    `gorm:"type:varchar(3);not null"`
	CompletedAt time.Time
	UpdatedAt   time.Time

	Allocations []PaymentAllocation `gorm:"foreignKey:PaymentID"`
}

type PaymentAllocation struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	PaymentID     uuid.UUID `gorm:"type:uuid;not null;index"`
	WalletID      uuid.UUID `gorm:"type:uuid;not null"`
	AmountMinor   int64     `gorm:"not null"`
	LedgerEntryID uuid.UUID `gorm:"type:uuid;not null"`
}

type Refund struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	PaymentID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	OrderID     uuid.UUID `gorm:"type:uuid;not null;index"`
	Status      string    `gorm:"type:varchar(20);not null"`
	AmountMinor int64     `gorm:"not null"`
	Currency    string    `gorm:"type:varchar(3);not null"`
	Reason      *string   `gorm:"type:text"`
	CompletedAt time.Time

	Allocations []RefundAllocation `gorm:"foreignKey:RefundID"`
}

type RefundAllocation struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	RefundID      uuid.UUID `gorm:"type:uuid;not null;index"`
	WalletID      uuid.UUID `gorm:"type:uuid;not null"`
	AmountMinor   int64     `gorm:"not null"`
	LedgerEntryID uuid.UUID `gorm:"type:uuid;not null"`
}
