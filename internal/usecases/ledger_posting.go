package usecases

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"wallet-ledger.backend/internal/domain/entities"
	domainerrors "wallet-ledger.backend/internal/domain/errors"
	"wallet-ledger.backend/internal/domain/repositories"
	"wallet-ledger.backend/pkg/utils"
)

// ledgerPoster appends an entry and applies its effect to the projection in
// the same unit of work
type ledgerPoster struct {
	ledgerRepo  repositories.LedgerRepository
	balanceRepo repositories.BalanceRepository
}

func (p ledgerPoster) post(ctx context.Context, entry *entities.LedgerEntry) (*entities.WalletBalance, error) {
	if entry.ID == uuid.Nil {
		entry.ID = utils.GenerateUUIDv7()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	entry.EntryType = entities.EntryTypeFor(entry.OperationType)

	if err := p.ledgerRepo.Append(ctx, entry); err != nil {
		return nil, err
	}
	return p.balanceRepo.ApplyDelta(ctx, entry.WalletID, entry.Currency,
		entities.EffectOf(entry.OperationType, entry.AmountMinor), entry.ID)
}

func normalizeCurrency(currency string) string {
	return strings.ToUpper(strings.TrimSpace(currency))
}

func requireKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return domainerrors.Wrap(domainerrors.ErrBadRequest, "idempotency key is required")
	}
	return nil
}

// checkWallet enforces that a wallet may move money in the given currency
func checkWallet(wallet *entities.Wallet, currency string) error {
	if wallet.Currency != currency {
		return domainerrors.Wrap(domainerrors.ErrCurrencyMismatch, "wallet %s holds %s, request is %s", wallet.ID, wallet.Currency, currency)
	}
	if !wallet.IsActive() {
		return domainerrors.Wrap(domainerrors.ErrWalletInactive, "wallet %s is %s", wallet.ID, wallet.Status)
	}
	return nil
}
