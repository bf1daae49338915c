package usecases_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"wallet-ledger.backend/internal/domain/entities"
	"wallet-ledger.backend/internal/domain/repositories"
	infraRepos "wallet-ledger.backend/internal/infrastructure/repositories"
	"wallet-ledger.backend/internal/infrastructure/repositories/repotest"
	"wallet-ledger.backend/internal/usecases"
)

type ledgerFixture struct {
	db       *gorm.DB
	uow      repositories.UnitOfWork
	wallets  *infraRepos.WalletRepository
	ledger   *infraRepos.LedgerRepository
	balances *infraRepos.BalanceRepository
	idem     *infraRepos.IdempotencyRepository
	intents  *infraRepos.PaymentIntentRepository
	payments *infraRepos.PaymentRepository
	refunds  *infraRepos.RefundRepository

	topUp   *usecases.TopUpUsecase
	intent  *usecases.PaymentIntentUsecase
	refund  *usecases.RefundUsecase
	query   *usecases.LedgerQueryUsecase
	rebuild *usecases.BalanceRebuildUsecase
}

func newFixture(t *testing.T, opts ...usecases.Option) *ledgerFixture {
	t.Helper()
	db := repotest.NewTestDB(t)
	return newFixtureWithUoW(t, db, infraRepos.NewUnitOfWork(db), opts...)
}

func newFixtureWithUoW(t *testing.T, db *gorm.DB, uow repositories.UnitOfWork, opts ...usecases.Option) *ledgerFixture {
	t.Helper()
	f := &ledgerFixture{
		db:       db,
		uow:      uow,
		wallets:  infraRepos.NewWalletRepository(db),
		ledger:   infraRepos.NewLedgerRepository(db),
		balances: infraRepos.NewBalanceRepository(db),
		idem:     infraRepos.NewIdempotencyRepository(db),
		intents:  infraRepos.NewPaymentIntentRepository(db),
		payments: infraRepos.NewPaymentRepository(db),
		refunds:  infraRepos.NewRefundRepository(db),
	}
	f.topUp = usecases.NewTopUpUsecase(f.wallets, f.ledger, f.balances, f.idem, uow, opts...)
	f.intent = usecases.NewPaymentIntentUsecase(f.wallets, f.ledger, f.balances, f.intents, f.payments, f.idem, uow, opts...)
	f.refund = usecases.NewRefundUsecase(f.ledger, f.balances, f.payments, f.refunds, f.idem, uow, opts...)
	f.query = usecases.NewLedgerQueryUsecase(f.wallets, f.ledger, f.balances)
	f.rebuild = usecases.NewBalanceRebuildUsecase(f.wallets, f.ledger, f.balances, uow, opts...)
	return f
}

func (f *ledgerFixture) createWallet(t *testing.T, currency string) uuid.UUID {
	t.Helper()
	w := &entities.Wallet{OwnerID: uuid.New(), Currency: currency}
	require.NoError(t, f.wallets.Create(context.Background(), w))
	return w.ID
}

func (f *ledgerFixture) fund(t *testing.T, walletID uuid.UUID, amount int64) {
	t.Helper()
	out, err := f.topUp.TopUp(context.Background(), &entities.TopUpInput{
		WalletID:       walletID,
		AmountMinor:    amount,
		Currency:       "USD",
		IdempotencyKey: "fund-" + uuid.NewString(),
	})
	require.NoError(t, err)
	require.IsType(t, entities.Completed[entities.TopUpResult]{}, out)
}

func (f *ledgerFixture) balance(t *testing.T, walletID uuid.UUID) (available, pending int64) {
	t.Helper()
	b, err := f.balances.Read(context.Background(), walletID)
	require.NoError(t, err)
	return b.AvailableMinor, b.PendingMinor
}

func (f *ledgerFixture) detectDrift(t *testing.T, walletID uuid.UUID) *entities.DriftReport {
	t.Helper()
	out, err := f.rebuild.DetectDrift(context.Background(), walletID)
	require.NoError(t, err)
	report, ok := entities.ResultOf(out)
	require.True(t, ok, "drift detection reported %s", out.Kind())
	return report
}

func (f *ledgerFixture) entryCount(t *testing.T, walletID uuid.UUID) int {
	t.Helper()
	entries, err := f.ledger.ListByWallet(context.Background(), walletID, 0, 0)
	require.NoError(t, err)
	return len(entries)
}

// reserve funds two wallets and reserves 6000/4000 on them
func (f *ledgerFixture) reserve(t *testing.T) (a, b uuid.UUID, intent *entities.PaymentIntent) {
	t.Helper()
	a = f.createWallet(t, "USD")
	b = f.createWallet(t, "USD")
	f.fund(t, a, 10000)
	f.fund(t, b, 5000)

	out, err := f.intent.CreateIntent(context.Background(), &entities.CreateIntentInput{
		OrderID:        uuid.New(),
		IdempotencyKey: "reserve-1",
		AmountMinor:    10000,
		Currency:       "USD",
		Allocations: []entities.AllocationInput{
			{WalletID: a, AmountMinor: 6000},
			{WalletID: b, AmountMinor: 4000},
		},
	})
	require.NoError(t, err)
	res, ok := entities.ResultOf(out)
	require.True(t, ok)
	return a, b, res
}

// holdWalletLocks keeps a transaction open holding the wallet locks until the
// returned release func runs
func holdWalletLocks(t *testing.T, uow repositories.UnitOfWork, walletIDs ...uuid.UUID) (release func()) {
	t.Helper()
	locks := usecases.NewLockCoordinator(uow)
	held := make(chan error, 1)
	done := make(chan error, 1)
	stop := make(chan struct{})

	go func() {
		done <- uow.Do(context.Background(), func(txCtx context.Context) error {
			ok, err := locks.AcquireWallets(txCtx, walletIDs...)
			if err == nil && !ok {
				err = errors.New("wallet locks already held")
			}
			held <- err
			if err != nil {
				return err
			}
			<-stop
			return nil
		})
	}()

	select {
	case err := <-held:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("lock holder never started")
	}

	var once sync.Once
	release = func() {
		once.Do(func() {
			close(stop)
			require.NoError(t, <-done)
		})
	}
	t.Cleanup(release)
	return release
}
