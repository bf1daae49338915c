package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
)

// IdempotencyScope is the operation family an idempotency key is scoped to
type IdempotencyScope string

const (
	ScopeTopUp         IdempotencyScope = "TOPUP"
	ScopeCreateIntent  IdempotencyScope = "CREATE_INTENT"
	ScopeCaptureIntent IdempotencyScope = "CAPTURE_INTENT"
	ScopeReleaseIntent IdempotencyScope = "RELEASE_INTENT"
	ScopeRefundPayment IdempotencyScope = "REFUND_PAYMENT"
)

// IdempotencyStatus moves PENDING -> COMPLETED exactly once
type IdempotencyStatus string

const (
	IdempotencyStatusPending   IdempotencyStatus = "PENDING"
	IdempotencyStatusCompleted IdempotencyStatus = "COMPLETED"
)

// IdempotencyKey is the natural key of an idempotency record. ScopeRef is the
// wallet, order, intent or payment the key is scoped to.
type IdempotencyKey struct {
	Scope    IdempotencyScope `json:"scope"`
	ScopeRef uuid.UUID        `json:"scopeRef"`
	Key      string           `json:"key"`
}

// IdempotencyRecord tracks one logical request
type IdempotencyRecord struct {
	ID          uuid.UUID         `json:"id"`
	Scope       IdempotencyScope  `json:"scope"`
	ScopeRef    uuid.UUID         `json:"scopeRef"`
	Key         string            `json:"key"`
	RequestHash string            `json:"requestHash"`
	Status      IdempotencyStatus `json:"status"`
	OperationID uuid.UUID         `json:"operationId"`
	ResourceID  *uuid.UUID        `json:"resourceId,omitempty"`
	Result      null.JSON         `json:"result,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
	CompletedAt *time.Time        `json:"completedAt,omitempty"`
}

// NaturalKey returns the record's natural key
func (r *IdempotencyRecord) NaturalKey() IdempotencyKey {
	return IdempotencyKey{Scope: r.Scope, ScopeRef: r.ScopeRef, Key: r.Key}
}

// IsCompleted reports whether the record reached its terminal state
func (r *IdempotencyRecord) IsCompleted() bool {
	return r.Status == IdempotencyStatusCompleted
}
