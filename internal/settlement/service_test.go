package settlement

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/sorbeteslab/sorbetes-backend/internal/orders"
	"github.com/sorbeteslab/sorbetes-backend/pkg/db/models"
	"github.com/sorbeteslab/sorbetes-backend/pkg/enums"
	pkgerrors "github.com/sorbeteslab/sorbetes-backend/pkg/errors"
	"github.com/sorbeteslab/sorbetes-backend/pkg/outbox"
	"github.com/sorbeteslab/sorbetes-backend/pkg/pagination"
)

type stubOrdersRepo struct {
	updates []orders.PaymentFieldsUpdate
}

func (s *stubOrdersRepo) WithTx(tx *gorm.DB) orders.Repository { return s }

func (s *stubOrdersRepo) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	panic("not implemented")
}

func (s *stubOrdersRepo) CreateItems(ctx context.Context, items []models.OrderItem) error {
	panic("not implemented")
}

func (s *stubOrdersRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	panic("not implemented")
}

func (s *stubOrdersRepo) ListCustomerOrders(ctx context.Context, customerID uuid.UUID, params pagination.Params, filters orders.OrderFilters) (*orders.OrderList, error) {
	panic("not implemented")
}

func (s *stubOrdersRepo) UpdatePaymentFields(ctx context.Context, id uuid.UUID, update orders.PaymentFieldsUpdate) error {
	s.updates = append(s.updates, update)
	return nil
}

func (s *stubOrdersRepo) MarkCanceled(ctx context.Context, id uuid.UUID, at time.Time) error {
	panic("not implemented")
}

func (s *stubOrdersRepo) MarkInventoryReleased(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	panic("not implemented")
}

func (s *stubOrdersRepo) UpdateAcceptanceStatus(ctx context.Context, id uuid.UUID, status enums.AcceptanceStatus) error {
	panic("not implemented")
}

type stubMarker struct {
	applied map[uuid.UUID]bool
}

func (s *stubMarker) MarkApplied(ctx context.Context, tx *gorm.DB, attemptID uuid.UUID, at time.Time) (bool, error) {
	if s.applied == nil {
		s.applied = map[uuid.UUID]bool{}
	}
	if s.applied[attemptID] {
		return false, nil
	}
	s.applied[attemptID] = true
	return true, nil
}

type stubOutbox struct {
	events []outbox.DomainEvent
}

func (s *stubOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

func newTestSettlement(t *testing.T) (Service, *stubOrdersRepo, *stubOutbox) {
	t.Helper()

	repo := &stubOrdersRepo{}
	ob := &stubOutbox{}
	svc, err := NewService(repo, &stubMarker{}, ob, nil, nil)
	require.NoError(t, err)
	return svc, repo, ob
}

func unpaidOrder(total string) *models.Order {
	amount := decimal.RequireFromString(total)
	return &models.Order{
		ID:               uuid.New(),
		CustomerID:       uuid.New(),
		VendorID:         uuid.New(),
		TotalAmount:      amount,
		AmountPaid:       decimal.Zero,
		RemainingBalance: amount,
		PaymentStatus:    enums.PaymentStatusUnpaid,
		Status:           enums.OrderStatusActive,
	}
}

func confirmedAttempt(orderID uuid.UUID, channel enums.PaymentMethod, slot enums.PaymentSlot, amount string) *models.PaymentAttempt {
	return &models.PaymentAttempt{
		ID:      uuid.New(),
		OrderID: orderID,
		Slot:    slot,
		Channel: channel,
		Amount:  decimal.RequireFromString(amount),
		Status:  enums.AttemptStatusConfirmed,
	}
}

func TestApplyFullPaymentPaysInOneTransition(t *testing.T) {
	svc, repo, ob := newTestSettlement(t)
	order := unpaidOrder("1000.00")
	attempt := confirmedAttempt(order.ID, enums.PaymentMethodGCashInstant, enums.SlotFirstPayment, "1000.00")

	updated, err := svc.Apply(context.Background(), nil, order, attempt)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPaid, updated.PaymentStatus)
	assert.True(t, updated.RemainingBalance.IsZero())
	assert.True(t, updated.AmountPaid.Equal(decimal.RequireFromString("1000.00")))
	require.NotNil(t, updated.PaymentMethod)
	assert.Equal(t, enums.PaymentMethodGCashInstant, *updated.PaymentMethod)
	assert.NotNil(t, updated.PaidAt)
	require.Len(t, repo.updates, 1)

	require.Len(t, ob.events, 1)
	assert.Equal(t, enums.EventOrderPaid, ob.events[0].EventType)
}

func TestApplySplitPaymentLedgerInvariant(t *testing.T) {
	svc, _, _ := newTestSettlement(t)
	order := unpaidOrder("999.00")
	partial := orders.QuotePartialAmount(order.TotalAmount)
	assert.True(t, partial.Equal(decimal.RequireFromString("499.50")))

	first := confirmedAttempt(order.ID, enums.PaymentMethodGCashInstant, enums.SlotFirstPayment, partial.String())
	updated, err := svc.Apply(context.Background(), nil, order, first)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPartial, updated.PaymentStatus)
	assert.True(t, updated.RemainingBalance.Equal(decimal.RequireFromString("499.50")))
	assert.True(t, updated.AmountPaid.Add(updated.RemainingBalance).Equal(updated.TotalAmount))

	second := confirmedAttempt(order.ID, enums.PaymentMethodGCashManualQR, enums.SlotRemainingBalance, "499.50")
	second.Status = enums.AttemptStatusConfirmed
	updated, err = svc.Apply(context.Background(), nil, updated, second)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPaid, updated.PaymentStatus)
	assert.True(t, updated.RemainingBalance.IsZero())
	assert.True(t, updated.AmountPaid.Add(updated.RemainingBalance).Equal(updated.TotalAmount))
}

func TestApplySameAttemptTwiceIsNoop(t *testing.T) {
	svc, repo, _ := newTestSettlement(t)
	order := unpaidOrder("500.00")
	attempt := confirmedAttempt(order.ID, enums.PaymentMethodGCashInstant, enums.SlotFirstPayment, "250.00")

	updated, err := svc.Apply(context.Background(), nil, order, attempt)
	require.NoError(t, err)
	assert.True(t, updated.AmountPaid.Equal(decimal.RequireFromString("250.00")))

	again, err := svc.Apply(context.Background(), nil, updated, attempt)
	require.NoError(t, err)
	assert.True(t, again.AmountPaid.Equal(decimal.RequireFromString("250.00")))
	assert.Equal(t, enums.PaymentStatusPartial, again.PaymentStatus)
	assert.Len(t, repo.updates, 1, "second application must not write")
}

func TestApplyCodZeroAmountKeepsUnpaid(t *testing.T) {
	svc, _, ob := newTestSettlement(t)
	order := unpaidOrder("750.00")
	attempt := confirmedAttempt(order.ID, enums.PaymentMethodCOD, enums.SlotFirstPayment, "0.00")
	attempt.Amount = decimal.Zero

	updated, err := svc.Apply(context.Background(), nil, order, attempt)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusUnpaid, updated.PaymentStatus)
	assert.True(t, updated.RemainingBalance.Equal(decimal.RequireFromString("750.00")))
	require.NotNil(t, updated.PaymentMethod)
	assert.Equal(t, enums.PaymentMethodCOD, *updated.PaymentMethod)
	assert.Empty(t, ob.events)
}

func TestApplyClampsOverpayment(t *testing.T) {
	svc, _, _ := newTestSettlement(t)
	order := unpaidOrder("100.00")
	attempt := confirmedAttempt(order.ID, enums.PaymentMethodGCashInstant, enums.SlotFirstPayment, "120.00")

	updated, err := svc.Apply(context.Background(), nil, order, attempt)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPaid, updated.PaymentStatus)
	assert.True(t, updated.AmountPaid.Equal(decimal.RequireFromString("100.00")))
	assert.True(t, updated.RemainingBalance.IsZero())
}

func TestApplyRejectsUnconfirmedAttempt(t *testing.T) {
	svc, _, _ := newTestSettlement(t)
	order := unpaidOrder("100.00")
	attempt := confirmedAttempt(order.ID, enums.PaymentMethodGCashManualQR, enums.SlotFirstPayment, "100.00")
	attempt.Status = enums.AttemptStatusPendingVerification

	_, err := svc.Apply(context.Background(), nil, order, attempt)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestCheckRemainingBalanceGuards(t *testing.T) {
	svc, _, _ := newTestSettlement(t)

	paid := unpaidOrder("100.00")
	paid.PaymentStatus = enums.PaymentStatusPaid
	err := svc.CheckRemainingBalance(paid)
	assert.True(t, pkgerrors.HasReason(err, pkgerrors.ReasonNoRemainingBalance))

	unpaid := unpaidOrder("100.00")
	err = svc.CheckRemainingBalance(unpaid)
	assert.True(t, pkgerrors.HasReason(err, pkgerrors.ReasonNotYetPartiallyPaid))

	partial := unpaidOrder("100.00")
	partial.PaymentStatus = enums.PaymentStatusPartial
	assert.NoError(t, svc.CheckRemainingBalance(partial))
}
