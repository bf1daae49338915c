package usecases_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"wallet-ledger.backend/internal/domain/entities"
	domainerrors "wallet-ledger.backend/internal/domain/errors"
)

func TestTopUpUsecase_TopUp_CompletesThenReplays(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	walletID := f.createWallet(t, "USD")

	input := &entities.TopUpInput{
		WalletID:          walletID,
		AmountMinor:       10000,
		Currency:          "usd",
		IdempotencyKey:    "k1",
		ExternalReference: "psp-123",
		Metadata:          json.RawMessage(`{"channel":"card"}`),
	}
	first, err := f.topUp.TopUp(ctx, input)
	require.NoError(t, err)
	completed, ok := first.(entities.Completed[entities.TopUpResult])
	require.True(t, ok, "expected Completed, got %T", first)
	assert.Equal(t, int64(10000), completed.Result.Balance.AvailableMinor)
	assert.Equal(t, "USD", completed.Result.Currency)

	second, err := f.topUp.TopUp(ctx, input)
	require.NoError(t, err)
	cached, ok := second.(entities.CompletedCached[entities.TopUpResult])
	require.True(t, ok, "expected CompletedCached, got %T", second)
	assert.Equal(t, completed.Result.LedgerEntryID, cached.Result.LedgerEntryID)
	assert.Equal(t, completed.Result.OperationID, cached.Result.OperationID)

	available, pending := f.balance(t, walletID)
	assert.Equal(t, int64(10000), available)
	assert.Zero(t, pending)
	assert.Equal(t, 1, f.entryCount(t, walletID))

	entry, err := f.ledger.GetByID(ctx, completed.Result.LedgerEntryID)
	require.NoError(t, err)
	assert.Equal(t, entities.OperationTypeTopUp, entry.OperationType)
	assert.Equal(t, entities.EntryTypeCredit, entry.EntryType)
	assert.Equal(t, "psp-123", entry.ExternalReference.String)
	assert.JSONEq(t, `{"channel":"card"}`, string(entry.Metadata.JSON))
}

func TestTopUpUsecase_TopUp_KeyReuseWithDifferentPayload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	walletID := f.createWallet(t, "USD")

	_, err := f.topUp.TopUp(ctx, &entities.TopUpInput{WalletID: walletID, AmountMinor: 10000, Currency: "USD", IdempotencyKey: "k1"})
	require.NoError(t, err)

	_, err = f.topUp.TopUp(ctx, &entities.TopUpInput{WalletID: walletID, AmountMinor: 500, Currency: "USD", IdempotencyKey: "k1"})
	require.ErrorIs(t, err, domainerrors.ErrIdempotencyKeyConflict)

	available, _ := f.balance(t, walletID)
	assert.Equal(t, int64(10000), available)
	assert.Equal(t, 1, f.entryCount(t, walletID))
}

func TestTopUpUsecase_TopUp_SameKeyOnOtherWalletIsIndependent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.createWallet(t, "USD")
	b := f.createWallet(t, "USD")

	for _, id := range []uuid.UUID{a, b} {
		out, err := f.topUp.TopUp(ctx, &entities.TopUpInput{WalletID: id, AmountMinor: 100, Currency: "USD", IdempotencyKey: "shared"})
		require.NoError(t, err)
		assert.Equal(t, entities.OutcomeCompleted, out.Kind())
	}
}

func TestTopUpUsecase_TopUp_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	walletID := f.createWallet(t, "USD")
	eurWallet := f.createWallet(t, "EUR")
	suspended := f.createWallet(t, "USD")
	require.NoError(t, f.wallets.UpdateStatus(ctx, suspended, entities.WalletStatusSuspended))

	cases := []struct {
		name  string
		input *entities.TopUpInput
		want  error
	}{
		{"nil input", nil, domainerrors.ErrBadRequest},
		{"zero amount", &entities.TopUpInput{WalletID: walletID, Currency: "USD", IdempotencyKey: "k"}, domainerrors.ErrInvalidAmount},
		{"negative amount", &entities.TopUpInput{WalletID: walletID, AmountMinor: -5, Currency: "USD", IdempotencyKey: "k"}, domainerrors.ErrInvalidAmount},
		{"missing key", &entities.TopUpInput{WalletID: walletID, AmountMinor: 5, Currency: "USD"}, domainerrors.ErrBadRequest},
		{"missing currency", &entities.TopUpInput{WalletID: walletID, AmountMinor: 5, IdempotencyKey: "k"}, domainerrors.ErrBadRequest},
		{"bad metadata", &entities.TopUpInput{WalletID: walletID, AmountMinor: 5, Currency: "USD", IdempotencyKey: "k", Metadata: json.RawMessage(`{`)}, domainerrors.ErrBadRequest},
		{"unknown wallet", &entities.TopUpInput{WalletID: uuid.New(), AmountMinor: 5, Currency: "USD", IdempotencyKey: "k"}, domainerrors.ErrWalletNotFound},
		{"currency mismatch", &entities.TopUpInput{WalletID: eurWallet, AmountMinor: 5, Currency: "USD", IdempotencyKey: "k"}, domainerrors.ErrCurrencyMismatch},
		{"inactive wallet", &entities.TopUpInput{WalletID: suspended, AmountMinor: 5, Currency: "USD", IdempotencyKey: "k"}, domainerrors.ErrWalletInactive},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := f.topUp.TopUp(ctx, tc.input)
			require.ErrorIs(t, err, tc.want)
			assert.Nil(t, out)
		})
	}

	// failed attempts leave no idempotency record behind, so the key stays usable
	out, err := f.topUp.TopUp(ctx, &entities.TopUpInput{WalletID: eurWallet, AmountMinor: 5, Currency: "EUR", IdempotencyKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, entities.OutcomeCompleted, out.Kind())
}

func TestTopUpUsecase_TopUp_CancelledContext(t *testing.T) {
	f := newFixture(t)
	walletID := f.createWallet(t, "USD")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.topUp.TopUp(ctx, &entities.TopUpInput{WalletID: walletID, AmountMinor: 5, Currency: "USD", IdempotencyKey: "k"})
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, f.entryCount(t, walletID))
}
