package entities

import (
	"github.com/google/uuid"
)

// LedgerTotals are a wallet's ledger amounts summed per operation type
type LedgerTotals struct {
	ByOperation map[OperationType]int64
	LastEntryID *uuid.UUID
	EntryCount  int64
}

// Project applies the fixed projection rules to the totals
func (t LedgerTotals) Project() BalanceDelta {
	var d BalanceDelta
	for _, op := range OperationTypes {
		if sum, ok := t.ByOperation[op]; ok {
			d = d.Add(EffectOf(op, sum))
		}
	}
	return d
}

// DriftReport compares the stored projection with the ledger-derived truth
type DriftReport struct {
	WalletID          uuid.UUID `json:"walletId"`
	StoredAvailable   int64     `json:"storedAvailable"`
	StoredPending     int64     `json:"storedPending"`
	ComputedAvailable int64     `json:"computedAvailable"`
	ComputedPending   int64     `json:"computedPending"`
	AvailableDrift    int64     `json:"availableDrift"`
	PendingDrift      int64     `json:"pendingDrift"`
	StoredVersion     int64     `json:"storedVersion"`
	LedgerEntryCount  int64     `json:"ledgerEntryCount"`
	ProjectionMissing bool      `json:"projectionMissing"`
}

// HasDrift reports whether stored and computed balances differ
func (r *DriftReport) HasDrift() bool {
	return r.AvailableDrift != 0 || r.PendingDrift != 0
}

// RebuildResult is the outcome of overwriting one projection
type RebuildResult struct {
	Drift   DriftReport   `json:"drift"`
	Balance WalletBalance `json:"balance"`
}

// RebuildFilter selects the wallets a batch rebuild visits
type RebuildFilter struct {
	Currency   string
	ActiveOnly bool
	// Limit caps the number of wallets visited; 0 means all
	Limit int
	// DryRun only detects drift and never overwrites
	DryRun bool
}

// BatchReport summarizes a batch rebuild
type BatchReport struct {
	Total     int         `json:"total"`
	Succeeded int         `json:"succeeded"`
	Drifted   int         `json:"drifted"`
	Skipped   int         `json:"skipped"`
	Failed    int         `json:"failed"`
	Failures  []uuid.UUID `json:"failures,omitempty"`
}

// WalletRebuildResult classifies one wallet visited by a batch
type WalletRebuildResult string

const (
	WalletRebuildClean   WalletRebuildResult = "clean"
	WalletRebuildDrifted WalletRebuildResult = "drifted"
	WalletRebuildSkipped WalletRebuildResult = "skipped"
	WalletRebuildFailed  WalletRebuildResult = "failed"
)

// Record counts one visited wallet. A drifted wallet also counts as succeeded.
func (r *BatchReport) Record(walletID uuid.UUID, result WalletRebuildResult) {
	r.Total++
	switch result {
	case WalletRebuildClean:
		r.Succeeded++
	case WalletRebuildDrifted:
		r.Succeeded++
		r.Drifted++
	case WalletRebuildSkipped:
		r.Skipped++
	default:
		r.Failed++
		r.Failures = append(r.Failures, walletID)
	}
}
