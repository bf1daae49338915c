package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
)

// OperationType is the business operation a ledger entry belongs to. It, not
// the direction of the entry, decides the effect on the balance projection.
type OperationType string

const (
	OperationTypeTopUp   OperationType = "TOPUP"
	OperationTypeReserve OperationType = "RESERVE"
	OperationTypePayment OperationType = "PAYMENT"
	OperationTypeRelease OperationType = "RELEASE"
	OperationTypeRefund  OperationType = "REFUND"
)

// OperationTypes lists every operation type in a stable order
var OperationTypes = []OperationType{
	OperationTypeTopUp,
	OperationTypeReserve,
	OperationTypePayment,
	OperationTypeRelease,
	OperationTypeRefund,
}

// EntryType is the direction tag of a ledger entry
type EntryType string

const (
	EntryTypeCredit  EntryType = "CREDIT"
	EntryTypeHold    EntryType = "HOLD"
	EntryTypeDebit   EntryType = "DEBIT"
	EntryTypeRelease EntryType = "RELEASE"
)

// RelationType links a follow-up entry to the entry it consumes or reverses
type RelationType string

const (
	RelationCaptures RelationType = "CAPTURES"
	RelationReleases RelationType = "RELEASES"
	RelationRefunds  RelationType = "REFUNDS"
)

// EntryTypeFor returns the direction tag posted for an operation type
func EntryTypeFor(op OperationType) EntryType {
	switch op {
	case OperationTypeReserve:
		return EntryTypeHold
	case OperationTypePayment:
		return EntryTypeDebit
	case OperationTypeRelease:
		return EntryTypeRelease
	default:
		return EntryTypeCredit
	}
}

// LedgerEntry is an immutable fact describing one money movement for one wallet
type LedgerEntry struct {
	ID                uuid.UUID     `json:"id"`
	WalletID          uuid.UUID     `json:"walletId"`
	OperationID       uuid.UUID     `json:"operationId"`
	OperationType     OperationType `json:"operationType"`
	EntryType         EntryType     `json:"entryType"`
	AmountMinor       int64         `json:"amountMinor"`
	Currency          string        `json:"currency"`
	EffectiveAt       time.Time     `json:"effectiveAt"`
	CreatedAt         time.Time     `json:"createdAt"`
	RelatedEntryID    *uuid.UUID    `json:"relatedEntryId,omitempty"`
	RelationType      null.String   `json:"relationType,omitempty"`
	ExternalReference null.String   `json:"externalReference,omitempty"`
	Metadata          null.JSON     `json:"metadata,omitempty"`
}

// Relate marks the entry as consuming or reversing another entry
func (e *LedgerEntry) Relate(entryID uuid.UUID, relation RelationType) {
	id := entryID
	e.RelatedEntryID = &id
	e.RelationType = null.StringFrom(string(relation))
}
