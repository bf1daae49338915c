package usecases_test

import (
	"context"

	"github.com/stretchr/testify/mock"
	"wallet-ledger.backend/internal/domain/entities"
	"wallet-ledger.backend/internal/domain/repositories"
)

// MockUnitOfWork runs work on a real unit of work but lets tests decide lock negotiation
type MockUnitOfWork struct {
	mock.Mock
	inner repositories.UnitOfWork
}

func (m *MockUnitOfWork) Do(ctx context.Context, fn func(context.Context) error) error {
	m.Called(ctx)
	return m.inner.Do(ctx, fn)
}

func (m *MockUnitOfWork) TryLock(ctx context.Context, key int64) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

// MockReplayCache
type MockReplayCache struct {
	mock.Mock
}

func (m *MockReplayCache) Get(ctx context.Context, key entities.IdempotencyKey) (*entities.IdempotencyRecord, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.IdempotencyRecord), args.Error(1)
}

func (m *MockReplayCache) Put(ctx context.Context, record *entities.IdempotencyRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}
