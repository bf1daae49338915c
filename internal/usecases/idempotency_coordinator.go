package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
	"go.uber.org/zap"
	"wallet-ledger.backend/internal/domain/entities"
	domainerrors "wallet-ledger.backend/internal/domain/errors"
	"wallet-ledger.backend/internal/domain/repositories"
	"wallet-ledger.backend/pkg/logger"
	"wallet-ledger.backend/pkg/utils"
)

// IdempotencyCoordinator drives the absent -> PENDING -> COMPLETED lifecycle
// of an idempotency record
type IdempotencyCoordinator struct {
	repo  repositories.IdempotencyRepository
	cache repositories.ReplayCache
}

// NewIdempotencyCoordinator creates a coordinator; cache may be nil
func NewIdempotencyCoordinator(repo repositories.IdempotencyRepository, cache repositories.ReplayCache) *IdempotencyCoordinator {
	return &IdempotencyCoordinator{repo: repo, cache: cache}
}

// Begin inserts a PENDING record if none exists, then always re-reads the
// authoritative record and checks it belongs to the same request
func (c *IdempotencyCoordinator) Begin(ctx context.Context, key entities.IdempotencyKey, hash string) (*entities.IdempotencyRecord, error) {
	candidate := &entities.IdempotencyRecord{
		ID:          uuid.New(),
		Scope:       key.Scope,
		ScopeRef:    key.ScopeRef,
		Key:         key.Key,
		RequestHash: hash,
		Status:      entities.IdempotencyStatusPending,
		OperationID: utils.GenerateUUIDv7(),
		CreatedAt:   time.Now().UTC(),
	}
	if _, err := c.repo.InsertIfAbsent(ctx, candidate); err != nil {
		return nil, fmt.Errorf("insert idempotency record: %w", err)
	}

	return c.load(ctx, key, hash)
}

// Recheck re-reads the record after the lock was won
func (c *IdempotencyCoordinator) Recheck(ctx context.Context, record *entities.IdempotencyRecord) (*entities.IdempotencyRecord, error) {
	return c.load(ctx, record.NaturalKey(), record.RequestHash)
}

// Complete attaches the result and moves the record to COMPLETED
func (c *IdempotencyCoordinator) Complete(ctx context.Context, record *entities.IdempotencyRecord, resourceID uuid.UUID, result interface{}) (*entities.IdempotencyRecord, error) {
	payload, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("encode idempotent result: %w", err)
	}

	rid := resourceID
	if err := c.repo.MarkCompleted(ctx, record.ID, &rid, null.JSONFrom(payload)); err != nil {
		return nil, err
	}

	completedAt := time.Now().UTC()
	done := *record
	done.Status = entities.IdempotencyStatusCompleted
	done.ResourceID = &rid
	done.Result = null.JSONFrom(payload)
	done.CompletedAt = &completedAt
	return &done, nil
}

// Lookup consults the replay cache. A hit for a different request is still a
// key conflict; cache failures are logged and treated as a miss.
func (c *IdempotencyCoordinator) Lookup(ctx context.Context, key entities.IdempotencyKey, hash string) (*entities.IdempotencyRecord, error) {
	if c.cache == nil {
		return nil, nil
	}
	record, err := c.cache.Get(ctx, key)
	if err != nil {
		logger.Warn(ctx, "Replay cache lookup failed",
			zap.String("scope", string(key.Scope)),
			zap.String("scope_ref", key.ScopeRef.String()),
			zap.Error(err),
		)
		return nil, nil
	}
	if record == nil || !record.IsCompleted() {
		return nil, nil
	}
	if record.RequestHash != hash {
		return nil, domainerrors.Wrap(domainerrors.ErrIdempotencyKeyConflict, "key %q in scope %s", key.Key, key.Scope)
	}
	return record, nil
}

// Remember stores a completed record in the replay cache, best effort
func (c *IdempotencyCoordinator) Remember(ctx context.Context, record *entities.IdempotencyRecord) {
	if c.cache == nil || record == nil || !record.IsCompleted() {
		return
	}
	if err := c.cache.Put(ctx, record); err != nil {
		logger.Warn(ctx, "Replay cache store failed",
			zap.String("scope", string(record.Scope)),
			zap.String("operation_id", record.OperationID.String()),
			zap.Error(err),
		)
	}
}

func (c *IdempotencyCoordinator) load(ctx context.Context, key entities.IdempotencyKey, hash string) (*entities.IdempotencyRecord, error) {
	record, err := c.repo.GetByKey(ctx, key)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			// the row we just inserted or saw conflicting must be readable
			return nil, domainerrors.Wrap(domainerrors.ErrCorruptIdempotencyRecord, "record for key %q in scope %s vanished", key.Key, key.Scope)
		}
		return nil, fmt.Errorf("load idempotency record: %w", err)
	}
	if err := validateRecord(record); err != nil {
		return nil, err
	}
	if record.RequestHash != hash {
		return nil, domainerrors.Wrap(domainerrors.ErrIdempotencyKeyConflict, "key %q in scope %s", key.Key, key.Scope)
	}
	return record, nil
}

func validateRecord(record *entities.IdempotencyRecord) error {
	switch record.Status {
	case entities.IdempotencyStatusPending:
	case entities.IdempotencyStatusCompleted:
		if !record.Result.Valid {
			return domainerrors.Wrap(domainerrors.ErrCorruptIdempotencyRecord, "completed record %s has no result", record.ID)
		}
	default:
		return domainerrors.Wrap(domainerrors.ErrCorruptIdempotencyRecord, "record %s has status %q", record.ID, record.Status)
	}
	if record.OperationID == uuid.Nil {
		return domainerrors.Wrap(domainerrors.ErrCorruptIdempotencyRecord, "record %s has no operation id", record.ID)
	}
	return nil
}

func decodeResult[T any](record *entities.IdempotencyRecord) (*T, error) {
	var out T
	if err := json.Unmarshal(record.Result.JSON, &out); err != nil {
		return nil, domainerrors.Wrap(domainerrors.ErrCorruptIdempotencyRecord, "record %s result: %v", record.ID, err)
	}
	return &out, nil
}
