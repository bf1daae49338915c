package errors

import (
	"errors"
	"fmt"
)

// Base domain errors. Every typed failure below unwraps to one of these.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidInput = errors.New("invalid input")
	ErrIntegrity    = errors.New("integrity violation")
)

// Category groups failures by how the orchestration layer must react to them
type Category string

const (
	CategoryNotFound  Category = "NOT_FOUND"
	CategoryConflict  Category = "CONFLICT"
	CategoryInvalid   Category = "INVALID_INPUT"
	CategoryIntegrity Category = "INTEGRITY"
	CategoryInternal  Category = "INTERNAL"
)

// Error codes
const (
	CodeWalletNotFound         = "WALLET_NOT_FOUND"
	CodeIntentNotFound         = "PAYMENT_INTENT_NOT_FOUND"
	CodePaymentNotFound        = "PAYMENT_NOT_FOUND"
	CodeRefundNotFound         = "REFUND_NOT_FOUND"
	CodeCurrencyMismatch       = "CURRENCY_MISMATCH"
	CodeWalletInactive         = "WALLET_INACTIVE"
	CodeInsufficientFunds      = "INSUFFICIENT_FUNDS"
	CodeInvalidTransition      = "INVALID_TRANSITION"
	CodeIdempotencyKeyConflict = "IDEMPOTENCY_KEY_CONFLICT"
	CodeRefundAlreadyExists    = "REFUND_ALREADY_EXISTS"
	CodeInvalidAmount          = "INVALID_AMOUNT"
	CodeInvalidAllocation      = "INVALID_ALLOCATION"
	CodeInvalidInput           = "INVALID_INPUT"
	CodeConstraintViolation    = "CONSTRAINT_VIOLATION"
	CodeCorruptIdempotency     = "CORRUPT_IDEMPOTENCY_RECORD"
	CodeNoTransaction          = "NO_TRANSACTION"
)

// AppError is a typed domain failure
type AppError struct {
	Category Category
	Code     string
	Message  string
	Err      error
}

func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Category)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new app error
func NewAppError(category Category, code, message string, err error) *AppError {
	return &AppError{
		Category: category,
		Code:     code,
		Message:  message,
		Err:      err,
	}
}

// Typed failures
var (
	ErrWalletNotFound  = NewAppError(CategoryNotFound, CodeWalletNotFound, "wallet not found", ErrNotFound)
	ErrIntentNotFound  = NewAppError(CategoryNotFound, CodeIntentNotFound, "payment intent not found", ErrNotFound)
	ErrPaymentNotFound = NewAppError(CategoryNotFound, CodePaymentNotFound, "payment not found", ErrNotFound)
	ErrRefundNotFound  = NewAppError(CategoryNotFound, CodeRefundNotFound, "refund not found", ErrNotFound)

	ErrCurrencyMismatch       = NewAppError(CategoryConflict, CodeCurrencyMismatch, "currency mismatch", ErrConflict)
	ErrWalletInactive         = NewAppError(CategoryConflict, CodeWalletInactive, "wallet is not active", ErrConflict)
	ErrInsufficientFunds      = NewAppError(CategoryConflict, CodeInsufficientFunds, "insufficient funds", ErrConflict)
	ErrInvalidTransition      = NewAppError(CategoryConflict, CodeInvalidTransition, "invalid state transition", ErrConflict)
	ErrIdempotencyKeyConflict = NewAppError(CategoryConflict, CodeIdempotencyKeyConflict, "idempotency key reused with a different request", ErrConflict)
	ErrRefundAlreadyExists    = NewAppError(CategoryConflict, CodeRefundAlreadyExists, "payment already refunded", ErrConflict)

	ErrInvalidAmount     = NewAppError(CategoryInvalid, CodeInvalidAmount, "amount must be positive", ErrInvalidInput)
	ErrInvalidAllocation = NewAppError(CategoryInvalid, CodeInvalidAllocation, "invalid allocations", ErrInvalidInput)
	ErrBadRequest        = NewAppError(CategoryInvalid, CodeInvalidInput, "invalid input", ErrInvalidInput)

	ErrConstraintViolation      = NewAppError(CategoryIntegrity, CodeConstraintViolation, "constraint violation", ErrIntegrity)
	ErrCorruptIdempotencyRecord = NewAppError(CategoryIntegrity, CodeCorruptIdempotency, "corrupted idempotency record", ErrIntegrity)
	ErrNoTransaction            = NewAppError(CategoryIntegrity, CodeNoTransaction, "operation requires an active transaction", ErrIntegrity)
)

// Wrap attaches detail to a typed failure while keeping errors.Is working
func Wrap(base *AppError, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", base, fmt.Sprintf(format, args...))
}

// CategoryOf reports the category of err; untyped errors are internal
func CategoryOf(err error) Category {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Category
	}
	return CategoryInternal
}

// CodeOf reports the code of the first AppError in err's chain
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}
