package usecases

import "errors"

// Operation names used for metrics labels, span names and logs
const (
	OperationTopUp         = "topup"
	OperationCreateIntent  = "create_intent"
	OperationCaptureIntent = "capture_intent"
	OperationReleaseIntent = "release_intent"
	OperationRefundPayment = "refund_payment"
	OperationRebuild       = "rebuild_wallet"
	OperationDetectDrift   = "detect_drift"
)

// Batch rebuild defaults
const (
	DefaultRebuildPageSize    = 200
	DefaultRebuildConcurrency = 4
)

// errLockNotAcquired aborts a unit of work whose caller lost lock negotiation.
// It never leaves the package: executors turn it into an InProgress outcome.
var errLockNotAcquired = errors.New("wallet lock held by a concurrent operation")
