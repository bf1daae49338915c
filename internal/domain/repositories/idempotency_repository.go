package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
	"wallet-ledger.backend/internal/domain/entities"
)

// IdempotencyRepository persists idempotency records
type IdempotencyRepository interface {
	// InsertIfAbsent creates the record unless its natural key exists; it reports whether it inserted
	InsertIfAbsent(ctx context.Context, record *entities.IdempotencyRecord) (bool, error)
	GetByKey(ctx context.Context, key entities.IdempotencyKey) (*entities.IdempotencyRecord, error)
	// MarkCompleted moves a PENDING record to COMPLETED; ErrCorruptIdempotencyRecord if it was not pending
	MarkCompleted(ctx context.Context, id uuid.UUID, resourceID *uuid.UUID, result null.JSON) error
}

// ReplayCache is an optional read-through cache of COMPLETED idempotency records
type ReplayCache interface {
	Get(ctx context.Context, key entities.IdempotencyKey) (*entities.IdempotencyRecord, error)
	Put(ctx context.Context, record *entities.IdempotencyRecord) error
}
