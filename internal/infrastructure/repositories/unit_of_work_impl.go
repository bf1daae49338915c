package repositories

import (
	"context"
	"fmt"
	"sync"

	"gorm.io/gorm"
	domainerrors "wallet-ledger.backend/internal/domain/errors"
	domainRepos "wallet-ledger.backend/internal/domain/repositories"
)

type contextKey string

const (
	txKey        contextKey = "tx_db"
	lockOwnerKey contextKey = "tx_lock_owner"
)

var commitTx = func(tx *gorm.DB) error {
	return tx.Commit().Error
}

// UnitOfWorkImpl implements UnitOfWork using GORM. On Postgres TryLock is
// pg_try_advisory_xact_lock; other dialects fall back to a lock table owned by
// this UnitOfWork whose entries live exactly as long as the transaction that
// took them.
type UnitOfWorkImpl struct {
	db    *gorm.DB
	locks *localLockTable
}

// NewUnitOfWork creates a new UnitOfWork
func NewUnitOfWork(db *gorm.DB) domainRepos.UnitOfWork {
	return &UnitOfWorkImpl{db: db, locks: newLocalLockTable()}
}

// Do executes the given function within a transaction scope. A Do nested in
// another Do joins the outer transaction.
func (u *UnitOfWorkImpl) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey).(*gorm.DB); ok {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	tx := u.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}

	owner := &lockOwner{}
	defer u.locks.releaseAll(owner)

	txCtx := context.WithValue(ctx, txKey, tx)
	txCtx = context.WithValue(txCtx, lockOwnerKey, owner)

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(txCtx); err != nil {
		tx.Rollback()
		return err
	}

	if err := commitTx(tx); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// TryLock takes a non-blocking lock scoped to the transaction carried by ctx
func (u *UnitOfWorkImpl) TryLock(ctx context.Context, key int64) (bool, error) {
	tx, ok := ctx.Value(txKey).(*gorm.DB)
	if !ok {
		return false, domainerrors.ErrNoTransaction
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	if tx.Dialector.Name() == "postgres" {
		var acquired bool
		if err := tx.WithContext(ctx).Raw("SELECT pg_try_advisory_xact_lock(?)", key).Row().Scan(&acquired); err != nil {
			return false, fmt.Errorf("advisory lock %d: %w", key, err)
		}
		return acquired, nil
	}

	owner, ok := ctx.Value(lockOwnerKey).(*lockOwner)
	if !ok {
		return false, domainerrors.ErrNoTransaction
	}
	return u.locks.tryAcquire(key, owner), nil
}

// GetDB extracts the Transaction DB from context if present, otherwise returns standard DB
func (u *UnitOfWorkImpl) GetDB(ctx context.Context) *gorm.DB {
	return GetDB(ctx, u.db)
}

// GetDB is the helper every repository uses so it joins the caller's transaction
func GetDB(ctx context.Context, fallback *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey).(*gorm.DB); ok {
		return tx
	}
	return fallback
}

type lockOwner struct {
	keys []int64
}

// localLockTable never blocks: the mutex only guards the map.
type localLockTable struct {
	mu     sync.Mutex
	owners map[int64]*lockOwner
}

func newLocalLockTable() *localLockTable {
	return &localLockTable{owners: make(map[int64]*lockOwner)}
}

func (t *localLockTable) tryAcquire(key int64, owner *lockOwner) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if current, held := t.owners[key]; held {
		return current == owner
	}
	t.owners[key] = owner
	owner.keys = append(owner.keys, key)
	return true
}

func (t *localLockTable) releaseAll(owner *lockOwner) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, key := range owner.keys {
		if t.owners[key] == owner {
			delete(t.owners, key)
		}
	}
	owner.keys = nil
}
