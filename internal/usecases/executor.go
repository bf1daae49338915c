package usecases

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"wallet-ledger.backend/internal/domain/entities"
	"wallet-ledger.backend/internal/domain/repositories"
	"wallet-ledger.backend/pkg/logger"
)

// executor runs the shared skeleton of every money-moving operation
type executor struct {
	uow     repositories.UnitOfWork
	idem    *IdempotencyCoordinator
	locks   *LockCoordinator
	metrics *Metrics
}

func newExecutor(uow repositories.UnitOfWork, idempotencyRepo repositories.IdempotencyRepository, o options) *executor {
	return &executor{
		uow:     uow,
		idem:    NewIdempotencyCoordinator(idempotencyRepo, o.cache),
		locks:   NewLockCoordinator(uow),
		metrics: o.metrics,
	}
}

// applied is what an operation's business step hands back
type applied[T any] struct {
	result     *T
	resourceID uuid.UUID
	// noop marks a request that found its effect already in place, e.g. a
	// capture of an intent that is already captured
	noop bool
}

type operation[T any] struct {
	name    string
	key     entities.IdempotencyKey
	request interface{}
	// wallets returns the wallets to lock; it may read state to find them
	wallets func(ctx context.Context) ([]uuid.UUID, error)
	// apply performs the writes once the locks are held
	apply func(ctx context.Context, record *entities.IdempotencyRecord) (*applied[T], error)
}

func execute[T any](ctx context.Context, ex *executor, op operation[T]) (outcome entities.Outcome[T], err error) {
	started := time.Now()
	ctx, span := startSpan(ctx, op.name,
		attribute.String("ledger.scope", string(op.key.Scope)),
		attribute.String("ledger.scope_ref", op.key.ScopeRef.String()),
	)
	defer func() {
		kind := ""
		if outcome != nil {
			kind = string(outcome.Kind())
		}
		ex.metrics.observe(op.name, kind, err, time.Since(started))
		endSpan(span, kind, err)
	}()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	hash, err := requestHash(op.request)
	if err != nil {
		return nil, err
	}

	cached, err := ex.idem.Lookup(ctx, op.key, hash)
	if err != nil {
		return nil, err
	}
	if cached != nil {
		result, err := decodeResult[T](cached)
		if err != nil {
			return nil, err
		}
		return entities.CompletedCached[T]{Result: result}, nil
	}

	var completed *entities.IdempotencyRecord
	err = ex.uow.Do(ctx, func(txCtx context.Context) error {
		record, err := ex.idem.Begin(txCtx, op.key, hash)
		if err != nil {
			return err
		}
		if record.IsCompleted() {
			result, err := decodeResult[T](record)
			if err != nil {
				return err
			}
			completed = record
			outcome = entities.CompletedCached[T]{Result: result}
			return nil
		}

		walletIDs, err := op.wallets(txCtx)
		if err != nil {
			return err
		}
		acquired, err := ex.locks.AcquireWallets(txCtx, walletIDs...)
		if err != nil {
			return err
		}
		if !acquired {
			return errLockNotAcquired
		}

		record, err = ex.idem.Recheck(txCtx, record)
		if err != nil {
			return err
		}
		if record.IsCompleted() {
			result, err := decodeResult[T](record)
			if err != nil {
				return err
			}
			completed = record
			outcome = entities.CompletedCached[T]{Result: result}
			return nil
		}

		opCtx := logger.WithOperationID(txCtx, record.OperationID.String())
		res, err := op.apply(opCtx, record)
		if err != nil {
			return err
		}

		completed, err = ex.idem.Complete(txCtx, record, res.resourceID, res.result)
		if err != nil {
			return err
		}
		if res.noop {
			outcome = entities.CompletedCached[T]{Result: res.result}
		} else {
			outcome = entities.Completed[T]{Result: res.result}
		}
		logger.Debug(opCtx, "Ledger operation applied",
			zap.String("operation", op.name),
			zap.String("resource_id", res.resourceID.String()),
		)
		return nil
	})
	if err != nil {
		if errors.Is(err, errLockNotAcquired) {
			return entities.InProgress[T]{}, nil
		}
		return nil, err
	}

	ex.idem.Remember(ctx, completed)
	return outcome, nil
}
