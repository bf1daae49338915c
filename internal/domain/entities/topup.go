package entities

import (
	"encoding/json"

	"github.com/google/uuid"
)

// TopUpInput represents input for crediting a wallet
type TopUpInput struct {
	WalletID          uuid.UUID       `json:"walletId"`
	AmountMinor       int64           `json:"amountMinor"`
	Currency          string          `json:"currency"`
	IdempotencyKey    string          `json:"idempotencyKey"`
	ExternalReference string          `json:"externalReference,omitempty"`
	Metadata          json.RawMessage `json:"metadata,omitempty"`
}

// TopUpResult is the cached result of a completed top-up
type TopUpResult struct {
	OperationID   uuid.UUID     `json:"operationId"`
	WalletID      uuid.UUID     `json:"walletId"`
	LedgerEntryID uuid.UUID     `json:"ledgerEntryId"`
	AmountMinor   int64         `json:"amountMinor"`
	Currency      string        `json:"currency"`
	Balance       WalletBalance `json:"balance"`
}
