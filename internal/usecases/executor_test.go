package usecases_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"wallet-ledger.backend/internal/domain/entities"
	domainerrors "wallet-ledger.backend/internal/domain/errors"
	"wallet-ledger.backend/internal/infrastructure/cache"
	infraRepos "wallet-ledger.backend/internal/infrastructure/repositories"
	"wallet-ledger.backend/internal/infrastructure/repositories/repotest"
	"wallet-ledger.backend/internal/usecases"
	"wallet-ledger.backend/pkg/redis"
	"wallet-ledger.backend/pkg/utils"
)

func TestExecutor_LockRefusalIsInProgress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	walletID := f.createWallet(t, "USD")
	f.fund(t, walletID, 1000)

	uow := &MockUnitOfWork{inner: f.uow}
	uow.On("Do", mock.Anything).Return()
	uow.On("TryLock", mock.Anything, usecases.WalletLockKey(walletID)).Return(false, nil)
	contended := newFixtureWithUoW(t, f.db, uow)

	input := &entities.TopUpInput{WalletID: walletID, AmountMinor: 300, Currency: "USD", IdempotencyKey: "busy"}
	out, err := contended.topUp.TopUp(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, entities.OutcomeInProgress, out.Kind())
	_, ok := entities.ResultOf(out)
	assert.False(t, ok)
	uow.AssertExpectations(t)

	available, _ := f.balance(t, walletID)
	assert.Equal(t, int64(1000), available)
	assert.Equal(t, 1, f.entryCount(t, walletID))

	// the follower left nothing behind; a retry once the lock is free completes
	retry, err := f.topUp.TopUp(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, entities.OutcomeCompleted, retry.Kind())
}

func TestExecutor_LockRefusalOnSecondWalletRollsBackEverything(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.createWallet(t, "USD")
	b := f.createWallet(t, "USD")
	f.fund(t, a, 1000)
	f.fund(t, b, 1000)

	uow := &MockUnitOfWork{inner: f.uow}
	uow.On("Do", mock.Anything).Return()
	uow.On("TryLock", mock.Anything, mock.Anything).Return(true, nil).Once()
	uow.On("TryLock", mock.Anything, mock.Anything).Return(false, nil)
	contended := newFixtureWithUoW(t, f.db, uow)

	out, err := contended.intent.CreateIntent(ctx, &entities.CreateIntentInput{
		OrderID:        uuid.New(),
		IdempotencyKey: "busy",
		AmountMinor:    200,
		Currency:       "USD",
		Allocations: []entities.AllocationInput{
			{WalletID: a, AmountMinor: 100},
			{WalletID: b, AmountMinor: 100},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, entities.OutcomeInProgress, out.Kind())
	uow.AssertNumberOfCalls(t, "TryLock", 2)

	_, pending := f.balance(t, a)
	assert.Zero(t, pending)
	_, pending = f.balance(t, b)
	assert.Zero(t, pending)
}

func TestExecutor_OverlappingWalletSetsBackOffWithoutResidue(t *testing.T) {
	db := repotest.NewConcurrentTestDB(t)
	f := newFixtureWithUoW(t, db, infraRepos.NewUnitOfWork(db))
	ctx := context.Background()
	a := f.createWallet(t, "USD")
	b := f.createWallet(t, "USD")
	f.fund(t, a, 1000)
	f.fund(t, b, 1000)

	release := holdWalletLocks(t, f.uow, a, b)

	// same wallets, opposite order, while the first transaction is still open
	input := &entities.CreateIntentInput{
		OrderID:        uuid.New(),
		IdempotencyKey: "overlap",
		AmountMinor:    500,
		Currency:       "USD",
		Allocations: []entities.AllocationInput{
			{WalletID: b, AmountMinor: 300},
			{WalletID: a, AmountMinor: 200},
		},
	}
	done := make(chan entities.Outcome[entities.PaymentIntent], 1)
	go func() {
		out, err := f.intent.CreateIntent(ctx, input)
		assert.NoError(t, err)
		done <- out
	}()

	select {
	case out := <-done:
		require.NotNil(t, out)
		assert.Equal(t, entities.OutcomeInProgress, out.Kind())
	case <-time.After(5 * time.Second):
		t.Fatal("overlapping lock request blocked instead of backing off")
	}
	release()

	for _, id := range []uuid.UUID{a, b} {
		available, pending := f.balance(t, id)
		assert.Equal(t, int64(1000), available)
		assert.Zero(t, pending)
		assert.Equal(t, 1, f.entryCount(t, id))
	}

	retry, err := f.intent.CreateIntent(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, entities.OutcomeCompleted, retry.Kind())
	_, pending := f.balance(t, b)
	assert.Equal(t, int64(300), pending)
}

func TestExecutor_PartialLocksReleasedOnRefusal(t *testing.T) {
	db := repotest.NewConcurrentTestDB(t)
	uow := infraRepos.NewUnitOfWork(db)
	ctx := context.Background()
	low, high := uuid.New(), uuid.New()
	if utils.CompareUUID(low, high) > 0 {
		low, high = high, low
	}
	locks := usecases.NewLockCoordinator(uow)

	release := holdWalletLocks(t, uow, high)

	// takes low, then is refused on high
	err := uow.Do(ctx, func(txCtx context.Context) error {
		ok, err := locks.AcquireWallets(txCtx, high, low)
		require.NoError(t, err)
		assert.False(t, ok)
		return nil
	})
	require.NoError(t, err)

	// low is free again although high is still held
	err = uow.Do(ctx, func(txCtx context.Context) error {
		ok, err := locks.AcquireWallets(txCtx, low)
		require.NoError(t, err)
		assert.True(t, ok)
		ok, err = locks.AcquireWallets(txCtx, high)
		require.NoError(t, err)
		assert.False(t, ok)
		return nil
	})
	require.NoError(t, err)

	release()
	err = uow.Do(ctx, func(txCtx context.Context) error {
		ok, err := locks.AcquireWallets(txCtx, low, high)
		require.NoError(t, err)
		assert.True(t, ok)
		return nil
	})
	require.NoError(t, err)
}

func TestExecutor_ConcurrentSameKeyAppliesOnce(t *testing.T) {
	f := newFixture(t)
	walletID := f.createWallet(t, "USD")

	const workers = 8
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		kinds = map[entities.OutcomeKind]int{}
		ids   = map[uuid.UUID]struct{}{}
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := f.topUp.TopUp(context.Background(), &entities.TopUpInput{
				WalletID:       walletID,
				AmountMinor:    250,
				Currency:       "USD",
				IdempotencyKey: "same",
			})
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			kinds[out.Kind()]++
			if res, ok := entities.ResultOf(out); ok {
				ids[res.LedgerEntryID] = struct{}{}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, kinds[entities.OutcomeCompleted])
	assert.Equal(t, workers-1, kinds[entities.OutcomeCompletedCached]+kinds[entities.OutcomeInProgress])
	assert.Len(t, ids, 1)
	assert.Equal(t, 1, f.entryCount(t, walletID))
	available, _ := f.balance(t, walletID)
	assert.Equal(t, int64(250), available)
}

func TestExecutor_ConcurrentCaptureAndReleaseOneWins(t *testing.T) {
	f := newFixture(t)
	a, _, intent := f.reserve(t)

	var (
		wg         sync.WaitGroup
		captureErr error
		releaseErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, captureErr = f.intent.CaptureIntent(context.Background(), &entities.CaptureIntentInput{IntentID: intent.ID, IdempotencyKey: "cap"})
	}()
	go func() {
		defer wg.Done()
		_, releaseErr = f.intent.ReleaseIntent(context.Background(), &entities.ReleaseIntentInput{IntentID: intent.ID, IdempotencyKey: "rel"})
	}()
	wg.Wait()

	failures := 0
	for _, err := range []error{captureErr, releaseErr} {
		if err != nil {
			require.ErrorIs(t, err, domainerrors.ErrInvalidTransition)
			failures++
		}
	}
	assert.Equal(t, 1, failures)

	_, pending := f.balance(t, a)
	assert.Zero(t, pending)
	assert.Equal(t, 3, f.entryCount(t, a))
}

func TestExecutor_ReplayCacheHitSkipsDatabase(t *testing.T) {
	replay := &MockReplayCache{}
	f := newFixture(t, usecases.WithReplayCache(replay))
	ctx := context.Background()
	walletID := f.createWallet(t, "USD")

	var stored *entities.IdempotencyRecord
	replay.On("Get", mock.Anything, mock.Anything).Return(nil, nil).Once()
	replay.On("Put", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		stored = args.Get(1).(*entities.IdempotencyRecord)
	}).Return(nil).Once()

	input := &entities.TopUpInput{WalletID: walletID, AmountMinor: 700, Currency: "USD", IdempotencyKey: "cached"}
	first, err := f.topUp.TopUp(ctx, input)
	require.NoError(t, err)
	require.Equal(t, entities.OutcomeCompleted, first.Kind())
	require.NotNil(t, stored)
	assert.Equal(t, entities.IdempotencyStatusCompleted, stored.Status)

	replay.On("Get", mock.Anything, stored.NaturalKey()).Return(stored, nil).Twice()

	second, err := f.topUp.TopUp(ctx, input)
	require.NoError(t, err)
	cached, ok := second.(entities.CompletedCached[entities.TopUpResult])
	require.True(t, ok, "expected CompletedCached, got %T", second)
	r1, _ := entities.ResultOf(first)
	assert.Equal(t, r1.LedgerEntryID, cached.Result.LedgerEntryID)

	changed := *input
	changed.AmountMinor = 1
	_, err = f.topUp.TopUp(ctx, &changed)
	require.ErrorIs(t, err, domainerrors.ErrIdempotencyKeyConflict)

	replay.AssertNumberOfCalls(t, "Put", 1)
	replay.AssertExpectations(t)
}

func TestExecutor_ReplayCacheFailuresFallBackToDatabase(t *testing.T) {
	replay := &MockReplayCache{}
	f := newFixture(t, usecases.WithReplayCache(replay))
	ctx := context.Background()
	walletID := f.createWallet(t, "USD")

	replay.On("Get", mock.Anything, mock.Anything).Return(nil, assert.AnError)
	replay.On("Put", mock.Anything, mock.Anything).Return(assert.AnError)

	input := &entities.TopUpInput{WalletID: walletID, AmountMinor: 700, Currency: "USD", IdempotencyKey: "flaky"}
	first, err := f.topUp.TopUp(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, entities.OutcomeCompleted, first.Kind())

	second, err := f.topUp.TopUp(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, entities.OutcomeCompletedCached, second.Kind())
	assert.Equal(t, 1, f.entryCount(t, walletID))
}

func TestExecutor_RedisReplayCache(t *testing.T) {
	srv, err := miniredis.Run()
	if err != nil {
		t.Skipf("skip: miniredis unavailable in this environment: %v", err)
	}
	redis.SetClient(goredis.NewClient(&goredis.Options{Addr: srv.Addr()}))
	t.Cleanup(func() {
		_ = redis.Close()
		srv.Close()
	})

	f := newFixture(t, usecases.WithReplayCache(cache.NewReplayCache(time.Hour)))
	ctx := context.Background()
	walletID := f.createWallet(t, "USD")

	input := &entities.TopUpInput{WalletID: walletID, AmountMinor: 900, Currency: "USD", IdempotencyKey: "redis"}
	first, err := f.topUp.TopUp(ctx, input)
	require.NoError(t, err)
	require.Equal(t, entities.OutcomeCompleted, first.Kind())

	var cachedKeys int
	for _, k := range srv.Keys() {
		if strings.HasPrefix(k, "ledger:idem:") {
			cachedKeys++
		}
	}
	assert.Equal(t, 1, cachedKeys)

	second, err := f.topUp.TopUp(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, entities.OutcomeCompletedCached, second.Kind())
	available, _ := f.balance(t, walletID)
	assert.Equal(t, int64(900), available)
}

func TestExecutor_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	f := newFixture(t, usecases.WithMetrics(usecases.NewMetrics(reg)))
	ctx := context.Background()
	walletID := f.createWallet(t, "USD")

	input := &entities.TopUpInput{WalletID: walletID, AmountMinor: 10, Currency: "USD", IdempotencyKey: "m"}
	_, err := f.topUp.TopUp(ctx, input)
	require.NoError(t, err)
	_, err = f.topUp.TopUp(ctx, input)
	require.NoError(t, err)
	changed := *input
	changed.AmountMinor = 11
	_, err = f.topUp.TopUp(ctx, &changed)
	require.Error(t, err)

	expected := `
# HELP ledger_operation_outcomes_total Executor outcomes by operation and kind.
# TYPE ledger_operation_outcomes_total counter
ledger_operation_outcomes_total{operation="topup",outcome="COMPLETED"} 1
ledger_operation_outcomes_total{operation="topup",outcome="COMPLETED_CACHED"} 1
# HELP ledger_operation_failures_total Executor failures by operation and error category.
# TYPE ledger_operation_failures_total counter
ledger_operation_failures_total{category="CONFLICT",operation="topup"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"ledger_operation_outcomes_total", "ledger_operation_failures_total"))

	count, err := testutil.GatherAndCount(reg, "ledger_operation_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
