package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"
	"wallet-ledger.backend/internal/domain/entities"
	domainerrors "wallet-ledger.backend/internal/domain/errors"
	"wallet-ledger.backend/internal/infrastructure/repositories/repotest"
)

func newIntent(orderID uuid.UUID, key string, wallets ...uuid.UUID) *entities.PaymentIntent {
	intent := &entities.PaymentIntent{
		OrderID:        orderID,
		IdempotencyKey: key,
		Status:         entities.IntentStatusReserved,
		Currency:       "USD",
	}
	for _, w := range wallets {
		intent.Allocations = append(intent.Allocations, entities.IntentAllocation{
			WalletID:    w,
			AmountMinor: 100,
			HoldEntryID: uuid.New(),
		})
		intent.AmountMinor += 100
	}
	return intent
}

func TestPaymentIntentRepository_CreateAndGet(t *testing.T) {
	db := repotest.NewTestDB(t)
	repo := NewPaymentIntentRepository(db)
	ctx := context.Background()

	orderID := uuid.New()
	intent := newIntent(orderID, "key-1", uuid.New(), uuid.New())
	require.NoError(t, repo.Create(ctx, intent))

	got, err := repo.GetByID(ctx, intent.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.IntentStatusReserved, got.Status)
	assert.Equal(t, int64(200), got.AmountMinor)
	require.Len(t, got.Allocations, 2)
	assert.ElementsMatch(t, intent.WalletIDs(), got.WalletIDs())
	for _, a := range got.Allocations {
		assert.Equal(t, intent.ID, a.IntentID)
		assert.NotEqual(t, uuid.Nil, a.HoldEntryID)
	}

	_, err = repo.GetByID(ctx, uuid.New())
	require.ErrorIs(t, err, domainerrors.ErrIntentNotFound)

	dup := newIntent(orderID, "key-1", uuid.New())
	require.ErrorIs(t, repo.Create(ctx, dup), domainerrors.ErrConstraintViolation)

	require.NoError(t, repo.Create(ctx, newIntent(orderID, "key-2", uuid.New())))
}

func TestPaymentIntentRepository_TransitionStatus(t *testing.T) {
	db := repotest.NewTestDB(t)
	repo := NewPaymentIntentRepository(db)
	ctx := context.Background()

	intent := newIntent(uuid.New(), "k", uuid.New())
	require.NoError(t, repo.Create(ctx, intent))

	at := time.Now().UTC()
	require.NoError(t, repo.TransitionStatus(ctx, intent.ID, entities.IntentStatusCaptured, at))

	got, err := repo.GetByID(ctx, intent.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.IntentStatusCaptured, got.Status)
	require.NotNil(t, got.CapturedAt)
	assert.WithinDuration(t, at, *got.CapturedAt, time.Second)
	assert.Nil(t, got.ReleasedAt)

	err = repo.TransitionStatus(ctx, intent.ID, entities.IntentStatusReleased, at)
	require.ErrorIs(t, err, domainerrors.ErrInvalidTransition)

	err = repo.TransitionStatus(ctx, intent.ID, entities.IntentStatusReserved, at)
	require.ErrorIs(t, err, domainerrors.ErrInvalidTransition)

	err = repo.TransitionStatus(ctx, uuid.New(), entities.IntentStatusReleased, at)
	require.ErrorIs(t, err, domainerrors.ErrIntentNotFound)
}

func TestPaymentRepository_CreateGetAndMarkRefunded(t *testing.T) {
	db := repotest.NewTestDB(t)
	repo := NewPaymentRepository(db)
	ctx := context.Background()

	intentID := uuid.New()
	payment := &entities.Payment{
		IntentID:    intentID,
		OrderID:     uuid.New(),
		Status:      entities.PaymentStatusCompleted,
		AmountMinor: 300,
		Currency:    "USD",
		Allocations: []entities.PaymentAllocation{
			{WalletID: uuid.New(), AmountMinor: 100, LedgerEntryID: uuid.New()},
			{WalletID: uuid.New(), AmountMinor: 200, LedgerEntryID: uuid.New()},
		},
	}
	require.NoError(t, repo.Create(ctx, payment))

	byIntent, err := repo.GetByIntentID(ctx, intentID)
	require.NoError(t, err)
	assert.Equal(t, payment.ID, byIntent.ID)
	require.Len(t, byIntent.Allocations, 2)

	_, err = repo.GetByID(ctx, uuid.New())
	require.ErrorIs(t, err, domainerrors.ErrPaymentNotFound)

	second := &entities.Payment{IntentID: intentID, OrderID: uuid.New(), Status: entities.PaymentStatusCompleted, AmountMinor: 1, Currency: "USD"}
	require.ErrorIs(t, repo.Create(ctx, second), domainerrors.ErrConstraintViolation)

	require.NoError(t, repo.MarkRefunded(ctx, payment.ID))
	got, err := repo.GetByID(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.PaymentStatusRefunded, got.Status)

	require.ErrorIs(t, repo.MarkRefunded(ctx, payment.ID), domainerrors.ErrRefundAlreadyExists)
	require.ErrorIs(t, repo.MarkRefunded(ctx, uuid.New()), domainerrors.ErrPaymentNotFound)
}

func TestRefundRepository_CreateAndGet(t *testing.T) {
	db := repotest.NewTestDB(t)
	repo := NewRefundRepository(db)
	ctx := context.Background()

	paymentID := uuid.New()
	refund := &entities.Refund{
		PaymentID:   paymentID,
		OrderID:     uuid.New(),
		AmountMinor: 300,
		Currency:    "USD",
		Reason:      null.StringFrom("customer request"),
		Allocations: []entities.RefundAllocation{
			{WalletID: uuid.New(), AmountMinor: 300, LedgerEntryID: uuid.New()},
		},
	}
	require.NoError(t, repo.Create(ctx, refund))
	assert.Equal(t, entities.RefundStatusCompleted, refund.Status)

	got, err := repo.GetByPaymentID(ctx, paymentID)
	require.NoError(t, err)
	assert.Equal(t, refund.ID, got.ID)
	assert.Equal(t, "customer request", got.Reason.String)
	require.Len(t, got.Allocations, 1)
	assert.Equal(t, refund.ID, got.Allocations[0].RefundID)

	_, err = repo.GetByID(ctx, uuid.New())
	require.ErrorIs(t, err, domainerrors.ErrRefundNotFound)

	again := &entities.Refund{PaymentID: paymentID, OrderID: uuid.New(), AmountMinor: 300, Currency: "USD"}
	require.ErrorIs(t, repo.Create(ctx, again), domainerrors.ErrRefundAlreadyExists)
}
