package models

import (
	"time"

	"github.com/google/uuid"
)

// LedgerEntry rows are inserted once and never updated or deleted, so the
// model carries no UpdatedAt/DeletedAt.
type LedgerEntry struct {
	ID                uuid.UUID  `gorm:"type:uuid;primaryKey"`
	WalletID          uuid.UUID  `gorm:"type:uuid;not null;index:idx_ledger_wallet_created"`
	OperationID       uuid.UUID  `gorm:"type:uuid;not null;index"`
	OperationType     string     `gorm:"type:varchar(20);not null"`
	EntryType         string     `gorm:"type:varchar(20);not null"`
	AmountMinor       int64      `gorm:"not null;check:amount_minor > 0"`
	Currency          string     `gorm:"type:varchar(3);not null"`
	EffectiveAt       time.Time  `gorm:"not null"`
	CreatedAt         time.Time  `gorm:"not null;index:idx_ledger_wallet_created"`
	RelatedEntryID    *uuid.UUID `gorm:"type:uuid"`
	RelationType      *string    `gorm:"type:varchar(20)"`
	ExternalReference *string    `gorm:"type:varchar(255)"`
	Metadata          *string    `gorm:"type:jsonb"`
}
