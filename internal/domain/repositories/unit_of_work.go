package repositories

import (
	"context"
)

// UnitOfWork defines the interface for atomic operations
type UnitOfWork interface {
	// Do executes the given function within a transaction scope. Any error
	// returned by fn rolls back every write made through the context.
	Do(ctx context.Context, fn func(ctx context.Context) error) error

	// TryLock takes a transaction-scoped, non-blocking exclusive lock on key.
	// It never waits and the lock is released when the enclosing Do ends;
	// there is no explicit unlock. ctx must come from Do.
	TryLock(ctx context.Context, key int64) (bool, error)
}
