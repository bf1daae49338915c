package usecases

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
	"wallet-ledger.backend/internal/domain/entities"
	domainerrors "wallet-ledger.backend/internal/domain/errors"
	"wallet-ledger.backend/internal/domain/repositories"
	"wallet-ledger.backend/pkg/utils"
)

// RefundUsecase reverses a completed payment in full
type RefundUsecase struct {
	paymentRepo repositories.PaymentRepository
	refundRepo  repositories.RefundRepository
	poster      ledgerPoster
	exec        *executor
}

// NewRefundUsecase creates a new refund usecase
func NewRefundUsecase(
	ledgerRepo repositories.LedgerRepository,
	balanceRepo repositories.BalanceRepository,
	paymentRepo repositories.PaymentRepository,
	refundRepo repositories.RefundRepository,
	idempotencyRepo repositories.IdempotencyRepository,
	uow repositories.UnitOfWork,
	opts ...Option,
) *RefundUsecase {
	return &RefundUsecase{
		paymentRepo: paymentRepo,
		refundRepo:  refundRepo,
		poster:      ledgerPoster{ledgerRepo: ledgerRepo, balanceRepo: balanceRepo},
		exec:        newExecutor(uow, idempotencyRepo, buildOptions(opts)),
	}
}

type refundRequest struct {
	PaymentID uuid.UUID `json:"paymentId"`
	Reason    string    `json:"reason,omitempty"`
}

// RefundPayment credits every allocation of a payment back to its wallet.
// A payment is refunded at most once, whatever key is used.
func (u *RefundUsecase) RefundPayment(ctx context.Context, input *entities.RefundPaymentInput) (entities.Outcome[entities.Refund], error) {
	if input == nil || input.PaymentID == uuid.Nil {
		return nil, domainerrors.Wrap(domainerrors.ErrBadRequest, "payment id is required")
	}
	if err := requireKey(input.IdempotencyKey); err != nil {
		return nil, err
	}
	reason := strings.TrimSpace(input.Reason)

	return execute(ctx, u.exec, operation[entities.Refund]{
		name: OperationRefundPayment,
		key: entities.IdempotencyKey{
			Scope:    entities.ScopeRefundPayment,
			ScopeRef: input.PaymentID,
			Key:      input.IdempotencyKey,
		},
		request: refundRequest{PaymentID: input.PaymentID, Reason: reason},
		wallets: func(ctx context.Context) ([]uuid.UUID, error) {
			payment, err := u.paymentRepo.GetByID(ctx, input.PaymentID)
			if err != nil {
				return nil, err
			}
			return payment.WalletIDs(), nil
		},
		apply: func(ctx context.Context, record *entities.IdempotencyRecord) (*applied[entities.Refund], error) {
			payment, err := u.paymentRepo.GetByID(ctx, input.PaymentID)
			if err != nil {
				return nil, err
			}
			if err := u.ensureNotRefunded(ctx, payment); err != nil {
				return nil, err
			}

			now := time.Now().UTC()
			refund := &entities.Refund{
				ID:          utils.GenerateUUIDv7(),
				PaymentID:   payment.ID,
				OrderID:     payment.OrderID,
				Status:      entities.RefundStatusCompleted,
				AmountMinor: payment.AmountMinor,
				Currency:    payment.Currency,
				CompletedAt: now,
			}
			if reason != "" {
				refund.Reason = null.StringFrom(reason)
			}

			for _, a := range payment.Allocations {
				credit := &entities.LedgerEntry{
					WalletID:      a.WalletID,
					OperationID:   record.OperationID,
					OperationType: entities.OperationTypeRefund,
					AmountMinor:   a.AmountMinor,
					Currency:      payment.Currency,
					CreatedAt:     now,
				}
				credit.Relate(a.LedgerEntryID, entities.RelationRefunds)
				if _, err := u.poster.post(ctx, credit); err != nil {
					return nil, err
				}
				refund.Allocations = append(refund.Allocations, entities.RefundAllocation{
					ID:            uuid.New(),
					RefundID:      refund.ID,
					WalletID:      a.WalletID,
					AmountMinor:   a.AmountMinor,
					LedgerEntryID: credit.ID,
				})
			}

			if err := u.refundRepo.Create(ctx, refund); err != nil {
				return nil, err
			}
			if err := u.paymentRepo.MarkRefunded(ctx, payment.ID); err != nil {
				return nil, err
			}
			return &applied[entities.Refund]{result: refund, resourceID: refund.ID}, nil
		},
	})
}

func (u *RefundUsecase) ensureNotRefunded(ctx context.Context, payment *entities.Payment) error {
	if payment.Status == entities.PaymentStatusRefunded {
		return domainerrors.Wrap(domainerrors.ErrRefundAlreadyExists, "payment %s", payment.ID)
	}
	existing, err := u.refundRepo.GetByPaymentID(ctx, payment.ID)
	if err == nil {
		return domainerrors.Wrap(domainerrors.ErrRefundAlreadyExists, "payment %s already has refund %s", payment.ID, existing.ID)
	}
	if errors.Is(err, domainerrors.ErrRefundNotFound) {
		return nil
	}
	return err
}

// GetRefund returns a refund with its allocations
func (u *RefundUsecase) GetRefund(ctx context.Context, id uuid.UUID) (*entities.Refund, error) {
	return u.refundRepo.GetByID(ctx, id)
}
