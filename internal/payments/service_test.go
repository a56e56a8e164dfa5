package payments

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/sorbeteslab/sorbetes-backend/internal/orders"
	"github.com/sorbeteslab/sorbetes-backend/internal/settlement"
	"github.com/sorbeteslab/sorbetes-backend/pkg/db/models"
	"github.com/sorbeteslab/sorbetes-backend/pkg/enums"
	pkgerrors "github.com/sorbeteslab/sorbetes-backend/pkg/errors"
	"github.com/sorbeteslab/sorbetes-backend/pkg/gcash"
	"github.com/sorbeteslab/sorbetes-backend/pkg/outbox"
	"github.com/sorbeteslab/sorbetes-backend/pkg/pagination"
)

type stubAttemptRepo struct {
	attempts map[uuid.UUID]*models.PaymentAttempt
}

func newStubAttemptRepo() *stubAttemptRepo {
	return &stubAttemptRepo{attempts: map[uuid.UUID]*models.PaymentAttempt{}}
}

func (s *stubAttemptRepo) WithTx(tx *gorm.DB) AttemptRepository { return s }

func (s *stubAttemptRepo) Create(ctx context.Context, attempt *models.PaymentAttempt) (*models.PaymentAttempt, error) {
	if attempt.ID == uuid.Nil {
		attempt.ID = uuid.New()
	}
	attempt.CreatedAt = time.Now()
	copied := *attempt
	s.attempts[attempt.ID] = &copied
	return attempt, nil
}

func (s *stubAttemptRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.PaymentAttempt, error) {
	attempt, ok := s.attempts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *attempt
	return &copied, nil
}

func (s *stubAttemptRepo) FindLiveBySlot(ctx context.Context, orderID uuid.UUID, slot enums.PaymentSlot) (*models.PaymentAttempt, error) {
	for _, attempt := range s.attempts {
		if attempt.OrderID != orderID || attempt.Slot != slot {
			continue
		}
		if attempt.Status == enums.AttemptStatusPendingVerification || attempt.Status == enums.AttemptStatusConfirmed {
			copied := *attempt
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *stubAttemptRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.PaymentAttemptStatus, reviewedAt time.Time) error {
	attempt, ok := s.attempts[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	attempt.Status = status
	attempt.ReviewedAt = &reviewedAt
	return nil
}

func (s *stubAttemptRepo) MarkApplied(ctx context.Context, tx *gorm.DB, attemptID uuid.UUID, at time.Time) (bool, error) {
	attempt, ok := s.attempts[attemptID]
	if !ok {
		return false, nil
	}
	if attempt.AppliedAt != nil {
		return false, nil
	}
	attempt.AppliedAt = &at
	return true, nil
}

type stubAccountsRepo struct {
	account *models.VendorGCashAccount
}

func (s *stubAccountsRepo) WithTx(tx *gorm.DB) VendorAccountRepository { return s }

func (s *stubAccountsRepo) FindActiveByVendor(ctx context.Context, vendorID uuid.UUID) (*models.VendorGCashAccount, error) {
	if s.account == nil || s.account.VendorID != vendorID {
		return nil, nil
	}
	return s.account, nil
}

type stubOrdersRepo struct {
	order   *models.Order
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
	if s.order == nil || s.order.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return s.order, nil
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

type stubCharger struct {
	requests []gcash.ChargeRequest
	err      error
}

func (s *stubCharger) Charge(ctx context.Context, req gcash.ChargeRequest) (*gcash.ChargeResult, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	now := time.Now()
	return &gcash.ChargeResult{
		TransactionRef: "gc_" + req.ReferenceID,
		Amount:         req.Amount,
		ConfirmedAt:    now,
	}, nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubOutbox struct {
	events []outbox.DomainEvent
}

func (s *stubOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

type memoryStore struct {
	keys map[string]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{keys: map[string]string{}}
}

func (m *memoryStore) Get(ctx context.Context, key string) (string, error) {
	return m.keys[key], nil
}

func (m *memoryStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := m.keys[key]; ok {
		return false, nil
	}
	m.keys[key] = fmt.Sprint(value)
	return true, nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string {
	return "idem:" + scope + ":" + id
}

func (m *memoryStore) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.keys, key)
	}
	return nil
}

type paymentsHarness struct {
	svc      Service
	attempts *stubAttemptRepo
	accounts *stubAccountsRepo
	orders   *stubOrdersRepo
	charger  *stubCharger
	outbox   *stubOutbox
	order    *models.Order
}

func newPaymentsHarness(t *testing.T, total string, withAccount bool) *paymentsHarness {
	t.Helper()

	amount := decimal.RequireFromString(total)
	order := &models.Order{
		ID:               uuid.New(),
		CustomerID:       uuid.New(),
		VendorID:         uuid.New(),
		TotalAmount:      amount,
		AmountPaid:       decimal.Zero,
		RemainingBalance: amount,
		PaymentStatus:    enums.PaymentStatusUnpaid,
		Status:           enums.OrderStatusActive,
	}

	attempts := newStubAttemptRepo()
	accounts := &stubAccountsRepo{}
	if withAccount {
		accounts.account = &models.VendorGCashAccount{
			ID:           uuid.New(),
			VendorID:     order.VendorID,
			MobileNumber: "+639171234567",
			Active:       true,
		}
	}
	ordersRepo := &stubOrdersRepo{order: order}
	ob := &stubOutbox{}
	charger := &stubCharger{}

	settlementSvc, err := settlement.NewService(ordersRepo, attempts, ob, nil, nil)
	require.NoError(t, err)

	guard, err := NewIdempotencyGuard(newMemoryStore(), time.Minute, "gcash-charge")
	require.NoError(t, err)

	svc, err := NewService(attempts, accounts, ordersRepo, settlementSvc, charger, guard, stubTxRunner{}, ob, nil)
	require.NoError(t, err)

	return &paymentsHarness{
		svc:      svc,
		attempts: attempts,
		accounts: accounts,
		orders:   ordersRepo,
		charger:  charger,
		outbox:   ob,
		order:    order,
	}
}

func (h *paymentsHarness) submit(slot enums.PaymentSlot, channel enums.PaymentMethod, amount string, proof *string) (*models.PaymentAttempt, *models.Order, error) {
	return h.svc.Submit(context.Background(), SubmitPaymentInput{
		OrderID:    h.order.ID,
		CustomerID: h.order.CustomerID,
		Slot:       slot,
		Channel:    channel,
		Amount:     decimal.RequireFromString(amount),
		ProofRef:   proof,
	})
}

func eventTypes(events []outbox.DomainEvent) []enums.OutboxEventType {
	types := make([]enums.OutboxEventType, 0, len(events))
	for _, event := range events {
		types = append(types, event.EventType)
	}
	return types
}

func TestSubmitInstantFullPaymentSettlesOrder(t *testing.T) {
	h := newPaymentsHarness(t, "999.00", true)

	attempt, order, err := h.submit(enums.SlotFirstPayment, enums.PaymentMethodGCashInstant, "999.00", nil)
	require.NoError(t, err)

	assert.Equal(t, enums.AttemptStatusConfirmed, attempt.Status)
	require.NotNil(t, attempt.GatewayRef)
	assert.Equal(t, "gc_"+attempt.ID.String(), *attempt.GatewayRef)

	assert.Equal(t, enums.PaymentStatusPaid, order.PaymentStatus)
	assert.True(t, order.RemainingBalance.IsZero())
	require.NotNil(t, order.PaymentMethod)
	assert.Equal(t, enums.PaymentMethodGCashInstant, *order.PaymentMethod)

	require.Len(t, h.charger.requests, 1)
	assert.Equal(t, attempt.ID.String(), h.charger.requests[0].ReferenceID)
	assert.Equal(t, "+639171234567", h.charger.requests[0].RecipientMSISDN)

	assert.Contains(t, eventTypes(h.outbox.events), enums.EventOrderPaid)
	assert.Contains(t, eventTypes(h.outbox.events), enums.EventPaymentConfirmed)
}

func TestSubmitInstantWithoutVendorAccount(t *testing.T) {
	h := newPaymentsHarness(t, "500.00", false)

	_, _, err := h.submit(enums.SlotFirstPayment, enums.PaymentMethodGCashInstant, "500.00", nil)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasReason(err, pkgerrors.ReasonChannelUnavailable))
	assert.Empty(t, h.charger.requests, "gateway must not be hit")

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
	assert.Equal(t, http.StatusUnprocessableEntity, pkgerrors.MetadataFor(typed.Code()).HTTPStatus)
}

func TestSubmitInstantChargeFailureAllowsRetry(t *testing.T) {
	h := newPaymentsHarness(t, "500.00", true)
	h.charger.err = errors.New("gateway down")

	_, _, err := h.submit(enums.SlotFirstPayment, enums.PaymentMethodGCashInstant, "500.00", nil)
	require.Error(t, err)
	assert.Empty(t, h.orders.updates)

	// The failed charge released its idempotency key, so the retry reaches
	// the gateway instead of being fenced out.
	h.charger.err = nil
	attempt, order, err := h.submit(enums.SlotFirstPayment, enums.PaymentMethodGCashInstant, "500.00", nil)
	require.NoError(t, err)
	assert.Equal(t, enums.AttemptStatusConfirmed, attempt.Status)
	assert.Equal(t, enums.PaymentStatusPaid, order.PaymentStatus)
	assert.Len(t, h.charger.requests, 2)
}

func TestSubmitRejectsAmountOffPlan(t *testing.T) {
	h := newPaymentsHarness(t, "999.00", true)

	_, _, err := h.submit(enums.SlotFirstPayment, enums.PaymentMethodGCashInstant, "300.00", nil)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	assert.Empty(t, h.charger.requests)
}

func TestSubmitAcceptsPartialPlanAmount(t *testing.T) {
	h := newPaymentsHarness(t, "999.00", true)

	_, order, err := h.submit(enums.SlotFirstPayment, enums.PaymentMethodGCashInstant, "499.50", nil)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPartial, order.PaymentStatus)
	assert.True(t, order.RemainingBalance.Equal(decimal.RequireFromString("499.50")))
}

func TestSubmitManualQRRequiresProof(t *testing.T) {
	h := newPaymentsHarness(t, "500.00", true)

	_, _, err := h.submit(enums.SlotFirstPayment, enums.PaymentMethodGCashManualQR, "500.00", nil)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestSubmitManualQRWaitsForReview(t *testing.T) {
	h := newPaymentsHarness(t, "500.00", true)
	proof := "uploads/proof-123.jpg"

	attempt, order, err := h.submit(enums.SlotFirstPayment, enums.PaymentMethodGCashManualQR, "500.00", &proof)
	require.NoError(t, err)

	assert.Equal(t, enums.AttemptStatusPendingVerification, attempt.Status)
	require.NotNil(t, attempt.ProofRef)
	assert.Equal(t, proof, *attempt.ProofRef)

	// Nothing settles until the vendor confirms the proof.
	assert.Equal(t, enums.PaymentStatusUnpaid, order.PaymentStatus)
	assert.Empty(t, h.orders.updates)
	assert.Equal(t, []enums.OutboxEventType{enums.EventPaymentSubmitted}, eventTypes(h.outbox.events))
}

func TestSubmitDuplicateSlotReturnsExistingAttempt(t *testing.T) {
	h := newPaymentsHarness(t, "500.00", true)
	proof := "uploads/proof-123.jpg"

	first, _, err := h.submit(enums.SlotFirstPayment, enums.PaymentMethodGCashManualQR, "500.00", &proof)
	require.NoError(t, err)

	_, _, err = h.submit(enums.SlotFirstPayment, enums.PaymentMethodGCashManualQR, "500.00", &proof)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasReason(err, pkgerrors.ReasonDuplicateSubmission))

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	details, ok := typed.Details().(DuplicateDetails)
	require.True(t, ok)
	assert.Equal(t, first.ID, details.AttemptID)
	assert.Equal(t, enums.AttemptStatusPendingVerification, details.Status)

	assert.True(t, h.order.AmountPaid.IsZero(), "duplicate must not touch the ledger")
	assert.Empty(t, h.orders.updates)
}

func TestSubmitCodRecordsChoiceWithoutCollecting(t *testing.T) {
	h := newPaymentsHarness(t, "750.00", false)

	attempt, order, err := h.submit(enums.SlotFirstPayment, enums.PaymentMethodCOD, "0", nil)
	require.NoError(t, err)

	assert.Equal(t, enums.AttemptStatusConfirmed, attempt.Status)
	assert.True(t, attempt.Amount.IsZero())
	assert.Equal(t, enums.PaymentStatusUnpaid, order.PaymentStatus)
	assert.True(t, order.RemainingBalance.Equal(decimal.RequireFromString("750.00")))
	require.NotNil(t, order.PaymentMethod)
	assert.Equal(t, enums.PaymentMethodCOD, *order.PaymentMethod)
}

func TestSubmitCodRejectsNonZeroAmount(t *testing.T) {
	h := newPaymentsHarness(t, "750.00", false)

	_, _, err := h.submit(enums.SlotFirstPayment, enums.PaymentMethodCOD, "750.00", nil)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestSubmitRemainingBalanceGuards(t *testing.T) {
	h := newPaymentsHarness(t, "999.00", true)

	_, _, err := h.submit(enums.SlotRemainingBalance, enums.PaymentMethodGCashInstant, "499.50", nil)
	assert.True(t, pkgerrors.HasReason(err, pkgerrors.ReasonNotYetPartiallyPaid))

	_, _, err = h.submit(enums.SlotFirstPayment, enums.PaymentMethodGCashInstant, "499.50", nil)
	require.NoError(t, err)

	_, _, err = h.submit(enums.SlotRemainingBalance, enums.PaymentMethodGCashInstant, "100.00", nil)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())

	_, order, err := h.submit(enums.SlotRemainingBalance, enums.PaymentMethodGCashInstant, "499.50", nil)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPaid, order.PaymentStatus)

	_, _, err = h.submit(enums.SlotRemainingBalance, enums.PaymentMethodGCashInstant, "499.50", nil)
	assert.True(t, pkgerrors.HasReason(err, pkgerrors.ReasonNoRemainingBalance))
}

func TestSubmitRejectsCanceledOrder(t *testing.T) {
	h := newPaymentsHarness(t, "500.00", true)
	h.order.Status = enums.OrderStatusCanceled

	_, _, err := h.submit(enums.SlotFirstPayment, enums.PaymentMethodGCashInstant, "500.00", nil)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestSubmitForeignCustomerGetsNotFound(t *testing.T) {
	h := newPaymentsHarness(t, "500.00", true)

	_, _, err := h.svc.Submit(context.Background(), SubmitPaymentInput{
		OrderID:    h.order.ID,
		CustomerID: uuid.New(),
		Slot:       enums.SlotFirstPayment,
		Channel:    enums.PaymentMethodGCashInstant,
		Amount:     decimal.RequireFromString("500.00"),
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestReviewConfirmSettlesManualAttempt(t *testing.T) {
	h := newPaymentsHarness(t, "999.00", true)
	proof := "uploads/proof-123.jpg"

	submitted, _, err := h.submit(enums.SlotFirstPayment, enums.PaymentMethodGCashManualQR, "499.50", &proof)
	require.NoError(t, err)

	attempt, order, err := h.svc.Review(context.Background(), ReviewInput{
		OrderID:   h.order.ID,
		AttemptID: submitted.ID,
		VendorID:  h.order.VendorID,
		Decision:  ReviewDecisionConfirm,
	})
	require.NoError(t, err)

	assert.Equal(t, enums.AttemptStatusConfirmed, attempt.Status)
	assert.NotNil(t, attempt.ReviewedAt)
	assert.Equal(t, enums.PaymentStatusPartial, order.PaymentStatus)
	assert.True(t, order.AmountPaid.Equal(decimal.RequireFromString("499.50")))
	assert.Contains(t, eventTypes(h.outbox.events), enums.EventPaymentConfirmed)
}

func TestReviewRejectFreesSlot(t *testing.T) {
	h := newPaymentsHarness(t, "500.00", true)
	proof := "uploads/proof-123.jpg"

	submitted, _, err := h.submit(enums.SlotFirstPayment, enums.PaymentMethodGCashManualQR, "500.00", &proof)
	require.NoError(t, err)

	attempt, order, err := h.svc.Review(context.Background(), ReviewInput{
		OrderID:   h.order.ID,
		AttemptID: submitted.ID,
		VendorID:  h.order.VendorID,
		Decision:  ReviewDecisionReject,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.AttemptStatusRejected, attempt.Status)
	assert.Equal(t, enums.PaymentStatusUnpaid, order.PaymentStatus)
	assert.Contains(t, eventTypes(h.outbox.events), enums.EventPaymentRejected)

	// The slot is free again, so the customer can submit a better proof.
	retry, _, err := h.submit(enums.SlotFirstPayment, enums.PaymentMethodGCashManualQR, "500.00", &proof)
	require.NoError(t, err)
	assert.NotEqual(t, submitted.ID, retry.ID)
}

func TestReviewSameVerdictTwiceIsNoop(t *testing.T) {
	h := newPaymentsHarness(t, "500.00", true)
	proof := "uploads/proof-123.jpg"

	submitted, _, err := h.submit(enums.SlotFirstPayment, enums.PaymentMethodGCashManualQR, "500.00", &proof)
	require.NoError(t, err)

	input := ReviewInput{
		OrderID:   h.order.ID,
		AttemptID: submitted.ID,
		VendorID:  h.order.VendorID,
		Decision:  ReviewDecisionConfirm,
	}
	_, _, err = h.svc.Review(context.Background(), input)
	require.NoError(t, err)
	require.Len(t, h.orders.updates, 1)

	_, order, err := h.svc.Review(context.Background(), input)
	require.NoError(t, err)
	assert.Len(t, h.orders.updates, 1, "re-confirming must not settle twice")
	assert.True(t, order.AmountPaid.Equal(decimal.RequireFromString("500.00")))
}

func TestReviewByForeignVendorGetsNotFound(t *testing.T) {
	h := newPaymentsHarness(t, "500.00", true)
	proof := "uploads/proof-123.jpg"

	submitted, _, err := h.submit(enums.SlotFirstPayment, enums.PaymentMethodGCashManualQR, "500.00", &proof)
	require.NoError(t, err)

	_, _, err = h.svc.Review(context.Background(), ReviewInput{
		OrderID:   h.order.ID,
		AttemptID: submitted.ID,
		VendorID:  uuid.New(),
		Decision:  ReviewDecisionConfirm,
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestChannelsReflectVendorGCashAccount(t *testing.T) {
	withAccount := newPaymentsHarness(t, "500.00", true)
	options, err := withAccount.svc.Channels(context.Background(), withAccount.order.ID)
	require.NoError(t, err)
	require.Len(t, options, 3)
	byChannel := map[enums.PaymentMethod]ChannelOption{}
	for _, option := range options {
		byChannel[option.Channel] = option
	}
	assert.True(t, byChannel[enums.PaymentMethodGCashInstant].Available)
	assert.True(t, byChannel[enums.PaymentMethodGCashManualQR].Available)
	assert.True(t, byChannel[enums.PaymentMethodCOD].Available)

	without := newPaymentsHarness(t, "500.00", false)
	options, err = without.svc.Channels(context.Background(), without.order.ID)
	require.NoError(t, err)
	for _, option := range options {
		if option.Channel == enums.PaymentMethodGCashInstant {
			assert.False(t, option.Available)
			assert.NotEmpty(t, option.Reason)
		} else {
			assert.True(t, option.Available)
		}
	}
}
