package usecases

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
	"wallet-ledger.backend/internal/domain/entities"
	domainerrors "wallet-ledger.backend/internal/domain/errors"
	"wallet-ledger.backend/internal/domain/repositories"
	"wallet-ledger.backend/pkg/utils"
)

// TopUpUsecase credits external funds to a wallet
type TopUpUsecase struct {
	walletRepo repositories.WalletRepository
	poster     ledgerPoster
	exec       *executor
}

// NewTopUpUsecase creates a new top-up usecase
func NewTopUpUsecase(
	walletRepo repositories.WalletRepository,
	ledgerRepo repositories.LedgerRepository,
	balanceRepo repositories.BalanceRepository,
	idempotencyRepo repositories.IdempotencyRepository,
	uow repositories.UnitOfWork,
	opts ...Option,
) *TopUpUsecase {
	return &TopUpUsecase{
		walletRepo: walletRepo,
		poster:     ledgerPoster{ledgerRepo: ledgerRepo, balanceRepo: balanceRepo},
		exec:       newExecutor(uow, idempotencyRepo, buildOptions(opts)),
	}
}

type topUpRequest struct {
	WalletID          uuid.UUID       `json:"walletId"`
	AmountMinor       int64           `json:"amountMinor"`
	Currency          string          `json:"currency"`
	ExternalReference string          `json:"externalReference,omitempty"`
	Metadata          json.RawMessage `json:"metadata,omitempty"`
}

// TopUp appends a TOPUP credit and raises the available balance
func (u *TopUpUsecase) TopUp(ctx context.Context, input *entities.TopUpInput) (entities.Outcome[entities.TopUpResult], error) {
	if input == nil || input.WalletID == uuid.Nil {
		return nil, domainerrors.Wrap(domainerrors.ErrBadRequest, "wallet id is required")
	}
	if input.AmountMinor <= 0 {
		return nil, domainerrors.Wrap(domainerrors.ErrInvalidAmount, "top-up amount %d", input.AmountMinor)
	}
	if err := requireKey(input.IdempotencyKey); err != nil {
		return nil, err
	}
	currency := normalizeCurrency(input.Currency)
	if currency == "" {
		return nil, domainerrors.Wrap(domainerrors.ErrBadRequest, "currency is required")
	}
	if len(input.Metadata) > 0 && !json.Valid(input.Metadata) {
		return nil, domainerrors.Wrap(domainerrors.ErrBadRequest, "metadata must be valid JSON")
	}

	return execute(ctx, u.exec, operation[entities.TopUpResult]{
		name: OperationTopUp,
		key: entities.IdempotencyKey{
			Scope:    entities.ScopeTopUp,
			ScopeRef: input.WalletID,
			Key:      input.IdempotencyKey,
		},
		request: topUpRequest{
			WalletID:          input.WalletID,
			AmountMinor:       input.AmountMinor,
			Currency:          currency,
			ExternalReference: input.ExternalReference,
			Metadata:          input.Metadata,
		},
		wallets: func(context.Context) ([]uuid.UUID, error) {
			return []uuid.UUID{input.WalletID}, nil
		},
		apply: func(ctx context.Context, record *entities.IdempotencyRecord) (*applied[entities.TopUpResult], error) {
			wallet, err := u.walletRepo.GetByID(ctx, input.WalletID)
			if err != nil {
				return nil, err
			}
			if err := checkWallet(wallet, currency); err != nil {
				return nil, err
			}

			entry := &entities.LedgerEntry{
				ID:            utils.GenerateUUIDv7(),
				WalletID:      wallet.ID,
				OperationID:   record.OperationID,
				OperationType: entities.OperationTypeTopUp,
				AmountMinor:   input.AmountMinor,
				Currency:      currency,
			}
			if input.ExternalReference != "" {
				entry.ExternalReference = null.StringFrom(input.ExternalReference)
			}
			if len(input.Metadata) > 0 {
				entry.Metadata = null.JSONFrom(input.Metadata)
			}

			balance, err := u.poster.post(ctx, entry)
			if err != nil {
				return nil, err
			}

			return &applied[entities.TopUpResult]{
				result: &entities.TopUpResult{
					OperationID:   record.OperationID,
					WalletID:      wallet.ID,
					LedgerEntryID: entry.ID,
					AmountMinor:   entry.AmountMinor,
					Currency:      currency,
					Balance:       *balance,
				},
				resourceID: entry.ID,
			}, nil
		},
	})
}
