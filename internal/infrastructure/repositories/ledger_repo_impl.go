package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
	"gorm.io/gorm"
	"wallet-ledger.backend/internal/domain/entities"
	domainerrors "wallet-ledger.backend/internal/domain/errors"
	"wallet-ledger.backend/internal/infrastructure/models"
	"wallet-ledger.backend/pkg/utils"
)

// LedgerRepository implements the append-only ledger store
type LedgerRepository struct {
	db *gorm.DB
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(db *gorm.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// Append inserts one immutable entry
func (r *LedgerRepository) Append(ctx context.Context, entry *entities.LedgerEntry) error {
	if entry.AmountMinor <= 0 {
		return domainerrors.Wrap(domainerrors.ErrInvalidAmount, "ledger amount %d", entry.AmountMinor)
	}
	if entry.ID == uuid.Nil {
		entry.ID = utils.GenerateUUIDv7()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if entry.EffectiveAt.IsZero() {
		entry.EffectiveAt = entry.CreatedAt
	}
	if entry.EntryType == "" {
		entry.EntryType = entities.EntryTypeFor(entry.OperationType)
	}

	m := r.toModel(entry)
	if err := GetDB(ctx, r.db).WithContext(ctx).Create(m).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.Wrap(domainerrors.ErrConstraintViolation, "ledger entry %s already exists", entry.ID)
		}
		return err
	}
	return nil
}

// GetByID gets a ledger entry by ID
func (r *LedgerRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.LedgerEntry, error) {
	var m models.LedgerEntry
	if err := GetDB(ctx, r.db).WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		if isNotFound(err) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return r.toEntity(&m), nil
}

// ListByWallet returns a wallet's entries oldest first
func (r *LedgerRepository) ListByWallet(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]*entities.LedgerEntry, error) {
	query := GetDB(ctx, r.db).WithContext(ctx).
		Where("wallet_id = ?", walletID).
		Order("created_at ASC, id ASC")
	if limit > 0 {
		query = query.Limit(limit).Offset(offset)
	}

	var ms []models.LedgerEntry
	if err := query.Find(&ms).Error; err != nil {
		return nil, err
	}
	return r.toEntities(ms), nil
}

// ListByOperation returns every entry written by one business operation
func (r *LedgerRepository) ListByOperation(ctx context.Context, operationID uuid.UUID) ([]*entities.LedgerEntry, error) {
	var ms []models.LedgerEntry
	if err := GetDB(ctx, r.db).WithContext(ctx).
		Where("operation_id = ?", operationID).
		Order("wallet_id ASC, id ASC").
		Find(&ms).Error; err != nil {
		return nil, err
	}
	return r.toEntities(ms), nil
}

type operationTotal struct {
	OperationType string
	Total         int64
	EntryCount    int64
}

// TotalsByWallet sums a wallet's entries per operation type
func (r *LedgerRepository) TotalsByWallet(ctx context.Context, walletID uuid.UUID) (*entities.LedgerTotals, error) {
	db := GetDB(ctx, r.db).WithContext(ctx)

	var rows []operationTotal
	if err := db.Model(&models.LedgerEntry{}).
		Select("operation_type, COALESCE(SUM(amount_minor), 0) AS total, COUNT(*) AS entry_count").
		Where("wallet_id = ?", walletID).
		Group("operation_type").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	totals := &entities.LedgerTotals{ByOperation: make(map[entities.OperationType]int64, len(rows))}
	for _, row := range rows {
		totals.ByOperation[entities.OperationType(row.OperationType)] = row.Total
		totals.EntryCount += row.EntryCount
	}
	if totals.EntryCount == 0 {
		return totals, nil
	}

	var last []models.LedgerEntry
	if err := db.Select("id").
		Where("wallet_id = ?", walletID).
		Order("created_at DESC, id DESC").
		Limit(1).
		Find(&last).Error; err != nil {
		return nil, err
	}
	if len(last) == 1 {
		id := last[0].ID
		totals.LastEntryID = &id
	}
	return totals, nil
}

func (r *LedgerRepository) toModel(e *entities.LedgerEntry) *models.LedgerEntry {
	m := &models.LedgerEntry{
		ID:             e.ID,
		WalletID:       e.WalletID,
		OperationID:    e.OperationID,
		OperationType:  string(e.OperationType),
		EntryType:      string(e.EntryType),
		AmountMinor:    e.AmountMinor,
		Currency:       e.Currency,
		EffectiveAt:    e.EffectiveAt,
		CreatedAt:      e.CreatedAt,
		RelatedEntryID: e.RelatedEntryID,
	}
	if e.RelationType.Valid {
		m.RelationType = &e.RelationType.String
	}
	if e.ExternalReference.Valid {
		m.ExternalReference = &e.ExternalReference.String
	}
	if e.Metadata.Valid {
		s := string(e.Metadata.JSON)
		m.Metadata = &s
	}
	return m
}

func (r *LedgerRepository) toEntity(m *models.LedgerEntry) *entities.LedgerEntry {
	e := &entities.LedgerEntry{
		ID:                m.ID,
		WalletID:          m.WalletID,
		OperationID:       m.OperationID,
		OperationType:     entities.OperationType(m.OperationType),
		EntryType:         entities.EntryType(m.EntryType),
		AmountMinor:       m.AmountMinor,
		Currency:          m.Currency,
		EffectiveAt:       m.EffectiveAt,
		CreatedAt:         m.CreatedAt,
		RelatedEntryID:    m.RelatedEntryID,
		RelationType:      null.StringFromPtr(m.RelationType),
		ExternalReference: null.StringFromPtr(m.ExternalReference),
	}
	if m.Metadata != nil {
		e.Metadata = null.JSONFrom([]byte(*m.Metadata))
	}
	return e
}

func (r *LedgerRepository) toEntities(ms []models.LedgerEntry) []*entities.LedgerEntry {
	out := make([]*entities.LedgerEntry, 0, len(ms))
	for i := range ms {
		out = append(out, r.toEntity(&ms[i]))
	}
	return out
}
