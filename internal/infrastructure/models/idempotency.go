package models

import (
	"time"

	"github.com/google/uuid"
)

type IdempotencyRecord struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Scope          string     `gorm:"type:varchar(32);not null;uniqueIndex:uq_idempotency_natural_key"`
	ScopeRef       uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:uq_idempotency_natural_key"`
	IdempotencyKey string     `gorm:"type:varchar(255);not null;uniqueIndex:uq_idempotency_natural_key"`
	RequestHash    string     `gorm:"type:varchar(64);not null"`
	Status         string     `gorm:"type:varchar(20);not null"`
	OperationID    uuid.UUID  `gorm:"type:uuid;not null"`
	ResourceID     *uuid.UUID `gorm:"type:uuid"`
	Result         *string    `gorm:"type:jsonb"`
	CreatedAt      time.Time
	CompletedAt    *time.Time
}
