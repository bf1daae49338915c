package usecases

import (
	"context"
	"math"
	"slices"
	"time"

	"github.com/google/uuid"
	"wallet-ledger.backend/internal/domain/entities"
	domainerrors "wallet-ledger.backend/internal/domain/errors"
	"wallet-ledger.backend/internal/domain/repositories"
	"wallet-ledger.backend/pkg/utils"
)

// PaymentIntentUsecase reserves funds across wallets and settles or cancels the reservation
type PaymentIntentUsecase struct {
	walletRepo  repositories.WalletRepository
	balanceRepo repositories.BalanceRepository
	intentRepo  repositories.PaymentIntentRepository
	paymentRepo repositories.PaymentRepository
	poster      ledgerPoster
	exec        *executor
}

// NewPaymentIntentUsecase creates a new payment intent usecase
func NewPaymentIntentUsecase(
	walletRepo repositories.WalletRepository,
	ledgerRepo repositories.LedgerRepository,
	balanceRepo repositories.BalanceRepository,
	intentRepo repositories.PaymentIntentRepository,
	paymentRepo repositories.PaymentRepository,
	idempotencyRepo repositories.IdempotencyRepository,
	uow repositories.UnitOfWork,
	opts ...Option,
) *PaymentIntentUsecase {
	return &PaymentIntentUsecase{
		walletRepo:  walletRepo,
		balanceRepo: balanceRepo,
		intentRepo:  intentRepo,
		paymentRepo: paymentRepo,
		poster:      ledgerPoster{ledgerRepo: ledgerRepo, balanceRepo: balanceRepo},
		exec:        newExecutor(uow, idempotencyRepo, buildOptions(opts)),
	}
}

type createIntentRequest struct {
	OrderID     uuid.UUID                  `json:"orderId"`
	AmountMinor int64                      `json:"amountMinor"`
	Currency    string                     `json:"currency"`
	Allocations []entities.AllocationInput `json:"allocations"`
}

type intentActionRequest struct {
	IntentID uuid.UUID `json:"intentId"`
	Action   string    `json:"action"`
}

// CreateIntent reserves every allocation or none of them
func (u *PaymentIntentUsecase) CreateIntent(ctx context.Context, input *entities.CreateIntentInput) (entities.Outcome[entities.PaymentIntent], error) {
	if input == nil || input.OrderID == uuid.Nil {
		return nil, domainerrors.Wrap(domainerrors.ErrBadRequest, "order id is required")
	}
	if err := requireKey(input.IdempotencyKey); err != nil {
		return nil, err
	}
	currency := normalizeCurrency(input.Currency)
	if currency == "" {
		return nil, domainerrors.Wrap(domainerrors.ErrBadRequest, "currency is required")
	}
	allocations, err := validateAllocations(input.AmountMinor, input.Allocations)
	if err != nil {
		return nil, err
	}

	walletIDs := make([]uuid.UUID, 0, len(allocations))
	for _, a := range allocations {
		walletIDs = append(walletIDs, a.WalletID)
	}

	return execute(ctx, u.exec, operation[entities.PaymentIntent]{
		name: OperationCreateIntent,
		key: entities.IdempotencyKey{
			Scope:    entities.ScopeCreateIntent,
			ScopeRef: input.OrderID,
			Key:      input.IdempotencyKey,
		},
		request: createIntentRequest{
			OrderID:     input.OrderID,
			AmountMinor: input.AmountMinor,
			Currency:    currency,
			Allocations: allocations,
		},
		wallets: func(context.Context) ([]uuid.UUID, error) {
			return walletIDs, nil
		},
		apply: func(ctx context.Context, record *entities.IdempotencyRecord) (*applied[entities.PaymentIntent], error) {
			if err := u.checkReservable(ctx, currency, allocations); err != nil {
				return nil, err
			}

			now := time.Now().UTC()
			intent := &entities.PaymentIntent{
				ID:             utils.GenerateUUIDv7(),
				OrderID:        input.OrderID,
				IdempotencyKey: input.IdempotencyKey,
				Status:         entities.IntentStatusReserved,
				AmountMinor:    input.AmountMinor,
				Currency:       currency,
				CreatedAt:      now,
				UpdatedAt:      now,
			}
			for _, a := range allocations {
				hold := &entities.LedgerEntry{
					WalletID:      a.WalletID,
					OperationID:   record.OperationID,
					OperationType: entities.OperationTypeReserve,
					AmountMinor:   a.AmountMinor,
					Currency:      currency,
					CreatedAt:     now,
				}
				if _, err := u.poster.post(ctx, hold); err != nil {
					return nil, err
				}
				intent.Allocations = append(intent.Allocations, entities.IntentAllocation{
					ID:          uuid.New(),
					IntentID:    intent.ID,
					WalletID:    a.WalletID,
					AmountMinor: a.AmountMinor,
					HoldEntryID: hold.ID,
				})
			}

			if err := u.intentRepo.Create(ctx, intent); err != nil {
				return nil, err
			}
			return &applied[entities.PaymentIntent]{result: intent, resourceID: intent.ID}, nil
		},
	})
}

// checkReservable validates every wallet before the first hold is written
func (u *PaymentIntentUsecase) checkReservable(ctx context.Context, currency string, allocations []entities.AllocationInput) error {
	ids := make([]uuid.UUID, 0, len(allocations))
	for _, a := range allocations {
		ids = append(ids, a.WalletID)
	}
	wallets, err := u.walletRepo.GetByIDs(ctx, ids)
	if err != nil {
		return err
	}

	for _, a := range allocations {
		wallet, ok := wallets[a.WalletID]
		if !ok {
			return domainerrors.Wrap(domainerrors.ErrWalletNotFound, "wallet %s", a.WalletID)
		}
		if err := checkWallet(wallet, currency); err != nil {
			return err
		}
		balance, err := u.balanceRepo.Read(ctx, a.WalletID)
		if err != nil {
			return err
		}
		if balance.AvailableMinor < a.AmountMinor {
			return domainerrors.Wrap(domainerrors.ErrInsufficientFunds, "wallet %s has %d available, needs %d", a.WalletID, balance.AvailableMinor, a.AmountMinor)
		}
	}
	return nil
}

// CaptureIntent converts the holds of a reserved intent into spent funds
func (u *PaymentIntentUsecase) CaptureIntent(ctx context.Context, input *entities.CaptureIntentInput) (entities.Outcome[entities.Payment], error) {
	if input == nil || input.IntentID == uuid.Nil {
		return nil, domainerrors.Wrap(domainerrors.ErrBadRequest, "intent id is required")
	}
	if err := requireKey(input.IdempotencyKey); err != nil {
		return nil, err
	}

	return execute(ctx, u.exec, operation[entities.Payment]{
		name: OperationCaptureIntent,
		key: entities.IdempotencyKey{
			Scope:    entities.ScopeCaptureIntent,
			ScopeRef: input.IntentID,
			Key:      input.IdempotencyKey,
		},
		request: intentActionRequest{IntentID: input.IntentID, Action: "capture"},
		wallets: u.intentWallets(input.IntentID),
		apply: func(ctx context.Context, record *entities.IdempotencyRecord) (*applied[entities.Payment], error) {
			intent, err := u.intentRepo.GetByID(ctx, input.IntentID)
			if err != nil {
				return nil, err
			}

			switch intent.Status {
			case entities.IntentStatusCaptured:
				payment, err := u.paymentRepo.GetByIntentID(ctx, intent.ID)
				if err != nil {
					return nil, err
				}
				return &applied[entities.Payment]{result: payment, resourceID: payment.ID, noop: true}, nil
			case entities.IntentStatusReleased:
				return nil, domainerrors.Wrap(domainerrors.ErrInvalidTransition, "intent %s is released and cannot be captured", intent.ID)
			}

			now := time.Now().UTC()
			payment := &entities.Payment{
				ID:          utils.GenerateUUIDv7(),
				IntentID:    intent.ID,
				OrderID:     intent.OrderID,
				Status:      entities.PaymentStatusCompleted,
				AmountMinor: intent.AmountMinor,
				Currency:    intent.Currency,
				CompletedAt: now,
				UpdatedAt:   now,
			}
			for _, a := range intent.Allocations {
				debit := &entities.LedgerEntry{
					WalletID:      a.WalletID,
					OperationID:   record.OperationID,
					OperationType: entities.OperationTypePayment,
					AmountMinor:   a.AmountMinor,
					Currency:      intent.Currency,
					CreatedAt:     now,
				}
				debit.Relate(a.HoldEntryID, entities.RelationCaptures)
				if _, err := u.poster.post(ctx, debit); err != nil {
					return nil, err
				}
				payment.Allocations = append(payment.Allocations, entities.PaymentAllocation{
					ID:            uuid.New(),
					PaymentID:     payment.ID,
					WalletID:      a.WalletID,
					AmountMinor:   a.AmountMinor,
					LedgerEntryID: debit.ID,
				})
			}

			if err := u.intentRepo.TransitionStatus(ctx, intent.ID, entities.IntentStatusCaptured, now); err != nil {
				return nil, err
			}
			if err := u.paymentRepo.Create(ctx, payment); err != nil {
				return nil, err
			}
			return &applied[entities.Payment]{result: payment, resourceID: payment.ID}, nil
		},
	})
}

// ReleaseIntent returns the held funds of a reserved intent to available
func (u *PaymentIntentUsecase) ReleaseIntent(ctx context.Context, input *entities.ReleaseIntentInput) (entities.Outcome[entities.PaymentIntent], error) {
	if input == nil || input.IntentID == uuid.Nil {
		return nil, domainerrors.Wrap(domainerrors.ErrBadRequest, "intent id is required")
	}
	if err := requireKey(input.IdempotencyKey); err != nil {
		return nil, err
	}

	return execute(ctx, u.exec, operation[entities.PaymentIntent]{
		name: OperationReleaseIntent,
		key: entities.IdempotencyKey{
			Scope:    entities.ScopeReleaseIntent,
			ScopeRef: input.IntentID,
			Key:      input.IdempotencyKey,
		},
		request: intentActionRequest{IntentID: input.IntentID, Action: "release"},
		wallets: u.intentWallets(input.IntentID),
		apply: func(ctx context.Context, record *entities.IdempotencyRecord) (*applied[entities.PaymentIntent], error) {
			intent, err := u.intentRepo.GetByID(ctx, input.IntentID)
			if err != nil {
				return nil, err
			}

			switch intent.Status {
			case entities.IntentStatusReleased:
				return &applied[entities.PaymentIntent]{result: intent, resourceID: intent.ID, noop: true}, nil
			case entities.IntentStatusCaptured:
				return nil, domainerrors.Wrap(domainerrors.ErrInvalidTransition, "intent %s is captured and cannot be released", intent.ID)
			}

			now := time.Now().UTC()
			for _, a := range intent.Allocations {
				release := &entities.LedgerEntry{
					WalletID:      a.WalletID,
					OperationID:   record.OperationID,
					OperationType: entities.OperationTypeRelease,
					AmountMinor:   a.AmountMinor,
					Currency:      intent.Currency,
					CreatedAt:     now,
				}
				release.Relate(a.HoldEntryID, entities.RelationReleases)
				if _, err := u.poster.post(ctx, release); err != nil {
					return nil, err
				}
			}

			if err := u.intentRepo.TransitionStatus(ctx, intent.ID, entities.IntentStatusReleased, now); err != nil {
				return nil, err
			}
			released, err := u.intentRepo.GetByID(ctx, intent.ID)
			if err != nil {
				return nil, err
			}
			return &applied[entities.PaymentIntent]{result: released, resourceID: released.ID}, nil
		},
	})
}

// GetIntent returns an intent with its allocations
func (u *PaymentIntentUsecase) GetIntent(ctx context.Context, id uuid.UUID) (*entities.PaymentIntent, error) {
	return u.intentRepo.GetByID(ctx, id)
}

// GetPayment returns a payment with its allocations
func (u *PaymentIntentUsecase) GetPayment(ctx context.Context, id uuid.UUID) (*entities.Payment, error) {
	return u.paymentRepo.GetByID(ctx, id)
}

func (u *PaymentIntentUsecase) intentWallets(intentID uuid.UUID) func(context.Context) ([]uuid.UUID, error) {
	return func(ctx context.Context) ([]uuid.UUID, error) {
		intent, err := u.intentRepo.GetByID(ctx, intentID)
		if err != nil {
			return nil, err
		}
		return intent.WalletIDs(), nil
	}
}

// validateAllocations returns the allocations sorted by wallet so that both
// the request hash and the write order are canonical
func validateAllocations(total int64, allocations []entities.AllocationInput) ([]entities.AllocationInput, error) {
	if total <= 0 {
		return nil, domainerrors.Wrap(domainerrors.ErrInvalidAmount, "intent amount %d", total)
	}
	if len(allocations) == 0 {
		return nil, domainerrors.Wrap(domainerrors.ErrInvalidAllocation, "at least one allocation is required")
	}

	sorted := slices.Clone(allocations)
	slices.SortFunc(sorted, func(a, b entities.AllocationInput) int {
		return utils.CompareUUID(a.WalletID, b.WalletID)
	})

	var sum int64
	for i, a := range sorted {
		if a.WalletID == uuid.Nil {
			return nil, domainerrors.Wrap(domainerrors.ErrInvalidAllocation, "allocation without wallet")
		}
		if a.AmountMinor <= 0 {
			return nil, domainerrors.Wrap(domainerrors.ErrInvalidAmount, "allocation for wallet %s is %d", a.WalletID, a.AmountMinor)
		}
		if i > 0 && sorted[i-1].WalletID == a.WalletID {
			return nil, domainerrors.Wrap(domainerrors.ErrInvalidAllocation, "wallet %s allocated twice", a.WalletID)
		}
		if sum > math.MaxInt64-a.AmountMinor {
			return nil, domainerrors.Wrap(domainerrors.ErrInvalidAllocation, "allocations overflow")
		}
		sum += a.AmountMinor
	}
	if sum != total {
		return nil, domainerrors.Wrap(domainerrors.ErrInvalidAllocation, "allocations sum to %d, intent amount is %d", sum, total)
	}
	return sorted, nil
}
