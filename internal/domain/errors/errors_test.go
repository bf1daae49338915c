package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_ErrorAndUnwrap(t *testing.T) {
	err := NewAppError(CategoryConflict, "X", "custom message", ErrConflict)
	assert.Equal(t, "custom message", err.Error())
	assert.ErrorIs(t, err, ErrConflict)

	noMsg := NewAppError(CategoryInternal, "", "", stderrors.New("db down"))
	assert.Equal(t, "db down", noMsg.Error())

	bare := &AppError{Category: CategoryIntegrity}
	assert.Equal(t, "INTEGRITY", bare.Error())
}

func TestTypedFailuresUnwrapToBase(t *testing.T) {
	cases := []struct {
		err      *AppError
		base     error
		category Category
	}{
		{ErrWalletNotFound, ErrNotFound, CategoryNotFound},
		{ErrIntentNotFound, ErrNotFound, CategoryNotFound},
		{ErrPaymentNotFound, ErrNotFound, CategoryNotFound},
		{ErrCurrencyMismatch, ErrConflict, CategoryConflict},
		{ErrWalletInactive, ErrConflict, CategoryConflict},
		{ErrInsufficientFunds, ErrConflict, CategoryConflict},
		{ErrInvalidTransition, ErrConflict, CategoryConflict},
		{ErrIdempotencyKeyConflict, ErrConflict, CategoryConflict},
		{ErrRefundAlreadyExists, ErrConflict, CategoryConflict},
		{ErrInvalidAmount, ErrInvalidInput, CategoryInvalid},
		{ErrConstraintViolation, ErrIntegrity, CategoryIntegrity},
		{ErrCorruptIdempotencyRecord, ErrIntegrity, CategoryIntegrity},
	}
	for _, tc := range cases {
		t.Run(tc.err.Code, func(t *testing.T) {
			assert.ErrorIs(t, tc.err, tc.base)
			assert.Equal(t, tc.category, CategoryOf(tc.err))
		})
	}
}

func TestWrapKeepsIdentity(t *testing.T) {
	err := Wrap(ErrInsufficientFunds, "wallet %s needs %d", "w1", 10)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.ErrorIs(t, err, ErrConflict)
	assert.NotErrorIs(t, err, ErrWalletInactive)
	assert.Equal(t, "insufficient funds: wallet w1 needs 10", err.Error())
	assert.Equal(t, CodeInsufficientFunds, CodeOf(err))

	outer := fmt.Errorf("capture: %w", err)
	assert.Equal(t, CategoryConflict, CategoryOf(outer))
}

func TestCategoryOf_Untyped(t *testing.T) {
	assert.Equal(t, Category(""), CategoryOf(nil))
	assert.Equal(t, CategoryInternal, CategoryOf(stderrors.New("boom")))
	assert.Equal(t, "", CodeOf(stderrors.New("boom")))
}
