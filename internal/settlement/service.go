package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/sorbeteslab/sorbetes-backend/internal/orders"
	"github.com/sorbeteslab/sorbetes-backend/pkg/db/models"
	"github.com/sorbeteslab/sorbetes-backend/pkg/enums"
	pkgerrors "github.com/sorbeteslab/sorbetes-backend/pkg/errors"
	"github.com/sorbeteslab/sorbetes-backend/pkg/logger"
	"github.com/sorbeteslab/sorbetes-backend/pkg/metrics"
	"github.com/sorbeteslab/sorbetes-backend/pkg/outbox"
	"github.com/sorbeteslab/sorbetes-backend/pkg/outbox/payloads"
)

// AttemptMarker flips the applied guard on a payment attempt at most once.
type AttemptMarker interface {
	MarkApplied(ctx context.Context, tx *gorm.DB, attemptID uuid.UUID, at time.Time) (bool, error)
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service applies confirmed payment attempts to the order ledger. It is the
// only writer of the payment fields and it never touches acceptance status.
type Service interface {
	Apply(ctx context.Context, tx *gorm.DB, order *models.Order, attempt *models.PaymentAttempt) (*models.Order, error)
	CheckRemainingBalance(order *models.Order) error
}

type service struct {
	ordersRepo orders.Repository
	attempts   AttemptMarker
	outbox     outboxPublisher
	metrics    *metrics.OrderMetrics
	logg       *logger.Logger
}

// NewService builds the settlement state machine.
func NewService(ordersRepo orders.Repository, attempts AttemptMarker, outboxSvc outboxPublisher, m *metrics.OrderMetrics, logg *logger.Logger) (Service, error) {
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if attempts == nil {
		return nil, fmt.Errorf("attempt marker required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		ordersRepo: ordersRepo,
		attempts:   attempts,
		outbox:     outboxSvc,
		metrics:    m,
		logg:       logg,
	}, nil
}

// Apply credits a confirmed attempt. Re-applying the same attempt is a no-op
// that returns the order unchanged, so duplicate webhooks and client retries
// never double-count.
func (s *service) Apply(ctx context.Context, tx *gorm.DB, order *models.Order, attempt *models.PaymentAttempt) (*models.Order, error) {
	started := time.Now()
	if order == nil || attempt == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order and attempt required")
	}
	if attempt.Status != enums.AttemptStatusConfirmed {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only confirmed attempts settle")
	}

	flipped, err := s.attempts.MarkApplied(ctx, tx, attempt.ID, started)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark attempt applied")
	}
	if !flipped {
		return order, nil
	}

	amountPaid := order.AmountPaid.Add(attempt.Amount)
	if amountPaid.GreaterThan(order.TotalAmount) {
		amountPaid = order.TotalAmount
	}
	remaining := order.TotalAmount.Sub(amountPaid)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}

	status := enums.PaymentStatusPartial
	switch {
	case remaining.IsZero():
		status = enums.PaymentStatusPaid
	case amountPaid.IsZero():
		status = enums.PaymentStatusUnpaid
	}

	update := orders.PaymentFieldsUpdate{
		AmountPaid:       amountPaid,
		RemainingBalance: remaining,
		PaymentStatus:    status,
	}
	if order.PaymentMethod == nil {
		channel := attempt.Channel
		update.PaymentMethod = &channel
	}
	var paidAt *time.Time
	if status == enums.PaymentStatusPaid && order.PaidAt == nil {
		now := time.Now()
		paidAt = &now
		update.PaidAt = paidAt
	}

	repo := s.ordersRepo.WithTx(tx)
	if err := repo.UpdatePaymentFields(ctx, order.ID, update); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment fields")
	}

	order.AmountPaid = amountPaid
	order.RemainingBalance = remaining
	order.PaymentStatus = status
	if update.PaymentMethod != nil {
		order.PaymentMethod = update.PaymentMethod
	}
	if paidAt != nil {
		order.PaidAt = paidAt
	}
	attempt.AppliedAt = &started

	if status == enums.PaymentStatusPaid {
		err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPaid,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Data: payloads.OrderPaidEvent{
				OrderID:    order.ID,
				CustomerID: order.CustomerID,
				VendorID:   order.VendorID,
				AmountPaid: order.AmountPaid,
			},
		})
		if err != nil {
			return nil, err
		}
	}

	s.metrics.IncPaymentConfirmed(attempt.Channel.String())
	s.metrics.ObserveSettlement(time.Since(started))
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"order_id":       order.ID.String(),
			"attempt_id":     attempt.ID.String(),
			"payment_status": status.String(),
			"amount":         attempt.Amount.String(),
		})
		s.logg.Info(logCtx, "payment attempt settled")
	}
	return order, nil
}

// CheckRemainingBalance guards the pay-remaining-balance flow against stale
// client screens.
func (s *service) CheckRemainingBalance(order *models.Order) error {
	if order == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "order required")
	}
	switch order.PaymentStatus {
	case enums.PaymentStatusPaid:
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order is already fully paid").
			WithReason(pkgerrors.ReasonNoRemainingBalance)
	case enums.PaymentStatusUnpaid:
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order has no partial payment yet").
			WithReason(pkgerrors.ReasonNotYetPartiallyPaid)
	default:
		return nil
	}
}
