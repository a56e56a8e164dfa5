package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/sorbeteslab/sorbetes-backend/internal/orders"
	"github.com/sorbeteslab/sorbetes-backend/internal/settlement"
	"github.com/sorbeteslab/sorbetes-backend/pkg/db/models"
	"github.com/sorbeteslab/sorbetes-backend/pkg/enums"
	pkgerrors "github.com/sorbeteslab/sorbetes-backend/pkg/errors"
	"github.com/sorbeteslab/sorbetes-backend/pkg/gcash"
	"github.com/sorbeteslab/sorbetes-backend/pkg/logger"
	"github.com/sorbeteslab/sorbetes-backend/pkg/outbox"
	"github.com/sorbeteslab/sorbetes-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service is the uniform submission surface over the three settlement
// channels, plus the manual-proof review flow.
type Service interface {
	Submit(ctx context.Context, input SubmitPaymentInput) (*models.PaymentAttempt, *models.Order, error)
	Review(ctx context.Context, input ReviewInput) (*models.PaymentAttempt, *models.Order, error)
	Channels(ctx context.Context, orderID uuid.UUID) ([]ChannelOption, error)
}

type service struct {
	attempts   AttemptRepository
	accounts   VendorAccountRepository
	ordersRepo orders.Repository
	settlement settlement.Service
	gateway    Charger
	guard      *IdempotencyGuard
	tx         txRunner
	outbox     outboxPublisher
	logg       *logger.Logger
}

// NewService builds the payment channel adapter. The idempotency guard is
// optional; without it concurrent duplicate charges rely on the gateway ref
// unique index alone.
func NewService(
	attempts AttemptRepository,
	accounts VendorAccountRepository,
	ordersRepo orders.Repository,
	settlementSvc settlement.Service,
	gateway Charger,
	guard *IdempotencyGuard,
	tx txRunner,
	outboxSvc outboxPublisher,
	logg *logger.Logger,
) (Service, error) {
	if attempts == nil {
		return nil, fmt.Errorf("attempt repository required")
	}
	if accounts == nil {
		return nil, fmt.Errorf("vendor account repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if settlementSvc == nil {
		return nil, fmt.Errorf("settlement service required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("gateway charger required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		attempts:   attempts,
		accounts:   accounts,
		ordersRepo: ordersRepo,
		settlement: settlementSvc,
		gateway:    gateway,
		guard:      guard,
		tx:         tx,
		outbox:     outboxSvc,
		logg:       logg,
	}, nil
}

func (s *service) Submit(ctx context.Context, input SubmitPaymentInput) (*models.PaymentAttempt, *models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.CustomerID == uuid.Nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	if !input.Channel.IsValid() {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown payment channel %q", input.Channel))
	}
	if !input.Slot.IsValid() {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown payment slot %q", input.Slot))
	}
	if input.Channel == enums.PaymentMethodCOD {
		if !input.Amount.IsZero() {
			return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "cod submissions collect nothing now; amount must be 0")
		}
	} else if input.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	var (
		attempt *models.PaymentAttempt
		order   *models.Order
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ordersRepo := s.ordersRepo.WithTx(tx)
		loaded, err := ordersRepo.FindByID(ctx, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if loaded.CustomerID != input.CustomerID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if loaded.Status == enums.OrderStatusCanceled {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is canceled")
		}
		order = loaded

		if input.Slot == enums.SlotRemainingBalance {
			if err := s.settlement.CheckRemainingBalance(order); err != nil {
				return err
			}
		}

		attempts := s.attempts.WithTx(tx)
		existing, err := attempts.FindLiveBySlot(ctx, order.ID, input.Slot)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check slot occupancy")
		}
		if existing != nil {
			msg := "a payment for this slot is already awaiting verification"
			if existing.Status == enums.AttemptStatusConfirmed {
				msg = "a payment for this slot is already confirmed"
			}
			return pkgerrors.New(pkgerrors.CodeConflict, msg).
				WithReason(pkgerrors.ReasonDuplicateSubmission).
				WithDetails(DuplicateDetails{
					AttemptID: existing.ID,
					Status:    existing.Status,
					Amount:    existing.Amount,
				})
		}

		if err := s.checkPlanAmount(order, input); err != nil {
			return err
		}

		switch input.Channel {
		case enums.PaymentMethodGCashInstant:
			attempt, err = s.submitInstant(ctx, tx, order, input)
		case enums.PaymentMethodGCashManualQR:
			attempt, err = s.submitManualQR(ctx, tx, order, input)
		case enums.PaymentMethodCOD:
			attempt, err = s.submitCOD(ctx, tx, order, input)
		}
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return attempt, order, nil
}

// checkPlanAmount ties the submitted amount to the chosen plan so a client
// cannot settle an arbitrary figure.
func (s *service) checkPlanAmount(order *models.Order, input SubmitPaymentInput) error {
	if input.Channel == enums.PaymentMethodCOD {
		return nil
	}
	switch input.Slot {
	case enums.SlotFirstPayment:
		partial := orders.QuotePartialAmount(order.TotalAmount)
		if !input.Amount.Equal(order.TotalAmount) && !input.Amount.Equal(partial) {
			return pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("first payment must be the full %s or the 50%% plan %s", order.TotalAmount, partial))
		}
	case enums.SlotRemainingBalance:
		if !input.Amount.Equal(order.RemainingBalance) {
			return pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("remaining balance payment must be %s", order.RemainingBalance))
		}
	}
	return nil
}

func (s *service) submitInstant(ctx context.Context, tx *gorm.DB, order *models.Order, input SubmitPaymentInput) (*models.PaymentAttempt, error) {
	account, err := s.accounts.WithTx(tx).FindActiveByVendor(ctx, order.VendorID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor gcash account")
	}
	if account == nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "vendor does not accept instant GCash payments").
			WithReason(pkgerrors.ReasonChannelUnavailable)
	}

	attemptID := uuid.New()
	guardID := fmt.Sprintf("%s:%s", order.ID, input.Slot)
	if s.guard != nil {
		marked, err := s.guard.CheckAndMark(ctx, guardID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "charge idempotency check")
		}
		if marked {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "a charge for this slot is already in flight").
				WithReason(pkgerrors.ReasonDuplicateSubmission)
		}
	}

	result, err := s.gateway.Charge(ctx, gcash.ChargeRequest{
		ReferenceID:     attemptID.String(),
		Amount:          input.Amount,
		RecipientMSISDN: account.MobileNumber,
		Description:     fmt.Sprintf("drum order %s %s", order.ID, input.Slot),
	})
	if err != nil {
		if s.guard != nil {
			if relErr := s.guard.Release(ctx, guardID); relErr != nil && s.logg != nil {
				s.logg.Error(ctx, "release charge idempotency key", relErr)
			}
		}
		return nil, err
	}

	attempt := &models.PaymentAttempt{
		ID:         attemptID,
		OrderID:    order.ID,
		Slot:       input.Slot,
		Channel:    enums.PaymentMethodGCashInstant,
		Amount:     input.Amount,
		Status:     enums.AttemptStatusConfirmed,
		GatewayRef: &result.TransactionRef,
	}
	if _, err := s.attempts.WithTx(tx).Create(ctx, attempt); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment attempt")
	}
	if _, err := s.settlement.Apply(ctx, tx, order, attempt); err != nil {
		return nil, err
	}
	if err := s.emitConfirmed(ctx, tx, order, attempt); err != nil {
		return nil, err
	}
	return attempt, nil
}

func (s *service) submitManualQR(ctx context.Context, tx *gorm.DB, order *models.Order, input SubmitPaymentInput) (*models.PaymentAttempt, error) {
	if input.ProofRef == nil || *input.ProofRef == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "manual QR submissions require a transfer proof")
	}

	attempt := &models.PaymentAttempt{
		OrderID:  order.ID,
		Slot:     input.Slot,
		Channel:  enums.PaymentMethodGCashManualQR,
		Amount:   input.Amount,
		Status:   enums.AttemptStatusPendingVerification,
		ProofRef: input.ProofRef,
	}
	if _, err := s.attempts.WithTx(tx).Create(ctx, attempt); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment attempt")
	}

	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventPaymentSubmitted,
		AggregateType: enums.AggregatePaymentAttempt,
		AggregateID:   attempt.ID,
		Version:       1,
		Data: payloads.PaymentSubmittedEvent{
			OrderID:   order.ID,
			AttemptID: attempt.ID,
			Slot:      attempt.Slot,
			Channel:   attempt.Channel,
			Amount:    attempt.Amount,
		},
	})
	if err != nil {
		return nil, err
	}
	return attempt, nil
}

// submitCOD collects nothing now; it records the choice of settling at
// delivery, which is why the order may keep a positive remaining balance.
func (s *service) submitCOD(ctx context.Context, tx *gorm.DB, order *models.Order, input SubmitPaymentInput) (*models.PaymentAttempt, error) {
	attempt := &models.PaymentAttempt{
		OrderID: order.ID,
		Slot:    input.Slot,
		Channel: enums.PaymentMethodCOD,
		Amount:  decimal.Zero,
		Status:  enums.AttemptStatusConfirmed,
	}
	if _, err := s.attempts.WithTx(tx).Create(ctx, attempt); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment attempt")
	}
	if _, err := s.settlement.Apply(ctx, tx, order, attempt); err != nil {
		return nil, err
	}
	if err := s.emitConfirmed(ctx, tx, order, attempt); err != nil {
		return nil, err
	}
	return attempt, nil
}

func (s *service) Review(ctx context.Context, input ReviewInput) (*models.PaymentAttempt, *models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.AttemptID == uuid.Nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "attempt id required")
	}
	if input.VendorID == uuid.Nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}
	if input.Decision != ReviewDecisionConfirm && input.Decision != ReviewDecisionReject {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown review decision %q", input.Decision))
	}

	var (
		attempt *models.PaymentAttempt
		order   *models.Order
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ordersRepo := s.ordersRepo.WithTx(tx)
		loaded, err := ordersRepo.FindByID(ctx, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if loaded.VendorID != input.VendorID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		order = loaded

		attempts := s.attempts.WithTx(tx)
		found, err := attempts.FindByID(ctx, input.AttemptID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "payment attempt not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment attempt")
		}
		if found.OrderID != order.ID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "payment attempt not found")
		}
		attempt = found

		// Re-reviewing with the same verdict is a no-op.
		if attempt.Status == enums.AttemptStatusConfirmed && input.Decision == ReviewDecisionConfirm {
			return nil
		}
		if attempt.Status == enums.AttemptStatusRejected && input.Decision == ReviewDecisionReject {
			return nil
		}
		if attempt.Status != enums.AttemptStatusPendingVerification {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "payment attempt already reviewed")
		}
		if attempt.Channel != enums.PaymentMethodGCashManualQR {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only manual QR attempts are reviewed")
		}

		now := time.Now()
		switch input.Decision {
		case ReviewDecisionConfirm:
			if err := attempts.UpdateStatus(ctx, attempt.ID, enums.AttemptStatusConfirmed, now); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "confirm payment attempt")
			}
			attempt.Status = enums.AttemptStatusConfirmed
			attempt.ReviewedAt = &now
			if _, err := s.settlement.Apply(ctx, tx, order, attempt); err != nil {
				return err
			}
			return s.emitConfirmed(ctx, tx, order, attempt)

		default:
			if err := attempts.UpdateStatus(ctx, attempt.ID, enums.AttemptStatusRejected, now); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reject payment attempt")
			}
			attempt.Status = enums.AttemptStatusRejected
			attempt.ReviewedAt = &now
			return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventPaymentRejected,
				AggregateType: enums.AggregatePaymentAttempt,
				AggregateID:   attempt.ID,
				Version:       1,
				Data: payloads.PaymentRejectedEvent{
					OrderID:   order.ID,
					AttemptID: attempt.ID,
					Slot:      attempt.Slot,
				},
			})
		}
	})
	if err != nil {
		return nil, nil, err
	}
	return attempt, order, nil
}

// Channels computes channel eligibility once, server side, so callers never
// re-derive the fallback rules.
func (s *service) Channels(ctx context.Context, orderID uuid.UUID) ([]ChannelOption, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.ordersRepo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	account, err := s.accounts.FindActiveByVendor(ctx, order.VendorID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor gcash account")
	}

	instant := ChannelOption{Channel: enums.PaymentMethodGCashInstant, Available: account != nil}
	if account == nil {
		instant.Reason = "vendor has no active GCash account"
	}
	return []ChannelOption{
		instant,
		{Channel: enums.PaymentMethodGCashManualQR, Available: true},
		{Channel: enums.PaymentMethodCOD, Available: true},
	}, nil
}

func (s *service) emitConfirmed(ctx context.Context, tx *gorm.DB, order *models.Order, attempt *models.PaymentAttempt) error {
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventPaymentConfirmed,
		AggregateType: enums.AggregatePaymentAttempt,
		AggregateID:   attempt.ID,
		Version:       1,
		Data: payloads.PaymentConfirmedEvent{
			OrderID:       order.ID,
			AttemptID:     attempt.ID,
			Channel:       attempt.Channel,
			Amount:        attempt.Amount,
			PaymentStatus: order.PaymentStatus,
		},
	})
}
