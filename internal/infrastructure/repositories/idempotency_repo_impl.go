package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"wallet-ledger.backend/internal/domain/entities"
	domainerrors "wallet-ledger.backend/internal/domain/errors"
	"wallet-ledger.backend/internal/infrastructure/models"
)

// IdempotencyRepository implements idempotency record persistence
type IdempotencyRepository struct {
	db *gorm.DB
}

// NewIdempotencyRepository creates a new idempotency repository
func NewIdempotencyRepository(db *gorm.DB) *IdempotencyRepository {
	return &IdempotencyRepository{db: db}
}

// InsertIfAbsent inserts the record unless its natural key already exists.
// Conflicts are absorbed by ON CONFLICT DO NOTHING so the surrounding
// transaction stays usable on Postgres.
func (r *IdempotencyRepository) InsertIfAbsent(ctx context.Context, record *entities.IdempotencyRecord) (bool, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	if record.Status == "" {
		record.Status = entities.IdempotencyStatusPending
	}

	result := GetDB(ctx, r.db).WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "scope"},
				{Name: "scope_ref"},
				{Name: "idempotency_key"},
			},
			DoNothing: true,
		}).
		Create(r.toModel(record))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// GetByKey loads a record by its natural key
func (r *IdempotencyRepository) GetByKey(ctx context.Context, key entities.IdempotencyKey) (*entities.IdempotencyRecord, error) {
	var m models.IdempotencyRecord
	if err := GetDB(ctx, r.db).WithContext(ctx).
		Where("scope = ? AND scope_ref = ? AND idempotency_key = ?", string(key.Scope), key.ScopeRef, key.Key).
		First(&m).Error; err != nil {
		if isNotFound(err) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return r.toEntity(&m), nil
}

// MarkCompleted moves a PENDING record to COMPLETED exactly once
func (r *IdempotencyRepository) MarkCompleted(ctx context.Context, id uuid.UUID, resourceID *uuid.UUID, result null.JSON) error {
	updates := map[string]interface{}{
		"status":       string(entities.IdempotencyStatusCompleted),
		"resource_id":  resourceID,
		"completed_at": time.Now().UTC(),
	}
	if result.Valid {
		updates["result"] = string(result.JSON)
	}

	res := GetDB(ctx, r.db).WithContext(ctx).Model(&models.IdempotencyRecord{}).
		Where("id = ? AND status = ?", id, string(entities.IdempotencyStatusPending)).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domainerrors.Wrap(domainerrors.ErrCorruptIdempotencyRecord, "record %s is not pending", id)
	}
	return nil
}

func (r *IdempotencyRepository) toModel(e *entities.IdempotencyRecord) *models.IdempotencyRecord {
	m := &models.IdempotencyRecord{
		ID:             e.ID,
		Scope:          string(e.Scope),
		ScopeRef:       e.ScopeRef,
		IdempotencyKey: e.Key,
		RequestHash:    e.RequestHash,
		Status:         string(e.Status),
		OperationID:    e.OperationID,
		ResourceID:     e.ResourceID,
		CreatedAt:      e.CreatedAt,
		CompletedAt:    e.CompletedAt,
	}
	if e.Result.Valid {
		s := string(e.Result.JSON)
		m.Result = &s
	}
	return m
}

func (r *IdempotencyRepository) toEntity(m *models.IdempotencyRecord) *entities.IdempotencyRecord {
	e := &entities.IdempotencyRecord{
		ID:          m.ID,
		Scope:       entities.IdempotencyScope(m.Scope),
		ScopeRef:    m.ScopeRef,
		Key:         m.IdempotencyKey,
		RequestHash: m.RequestHash,
		Status:      entities.IdempotencyStatus(m.Status),
		OperationID: m.OperationID,
		ResourceID:  m.ResourceID,
		CreatedAt:   m.CreatedAt,
		CompletedAt: m.CompletedAt,
	}
	if m.Result != nil {
		e.Result = null.JSONFrom([]byte(*m.Result))
	}
	return e
}
