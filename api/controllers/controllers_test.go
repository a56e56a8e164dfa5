package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/sorbeteslab/sorbetes-backend/internal/availability"
	"github.com/sorbeteslab/sorbetes-backend/internal/orders"
	"github.com/sorbeteslab/sorbetes-backend/internal/payments"
	"github.com/sorbeteslab/sorbetes-backend/pkg/db/models"
	"github.com/sorbeteslab/sorbetes-backend/pkg/enums"
	pkgerrors "github.com/sorbeteslab/sorbetes-backend/pkg/errors"
	"github.com/sorbeteslab/sorbetes-backend/pkg/pagination"
	"github.com/sorbeteslab/sorbetes-backend/pkg/types"
)

type stubAvailabilitySvc struct {
	sizes []availability.SizeAvailability
}

func (s *stubAvailabilitySvc) DayAvailability(ctx context.Context, vendorID uuid.UUID, date string) ([]availability.SizeAvailability, error) {
	return s.sizes, nil
}

func (s *stubAvailabilitySvc) ResolveCount(ctx context.Context, tx *gorm.DB, vendorID uuid.UUID, date string, size enums.DrumSize) (int, error) {
	panic("not implemented")
}

func (s *stubAvailabilitySvc) Reserve(ctx context.Context, tx *gorm.DB, vendorID uuid.UUID, date string, size enums.DrumSize, qty int) error {
	panic("not implemented")
}

func (s *stubAvailabilitySvc) Release(ctx context.Context, tx *gorm.DB, vendorID uuid.UUID, date string, size enums.DrumSize, qty int) error {
	panic("not implemented")
}

type stubOrdersSvc struct {
	cancelErr error
}

func (s *stubOrdersSvc) Create(ctx context.Context, input orders.CreateOrderInput) (*models.Order, error) {
	panic("not implemented")
}

func (s *stubOrdersSvc) Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	panic("not implemented")
}

func (s *stubOrdersSvc) List(ctx context.Context, customerID uuid.UUID, params pagination.Params, filters orders.OrderFilters) (*orders.OrderList, error) {
	panic("not implemented")
}

func (s *stubOrdersSvc) Cancel(ctx context.Context, orderID uuid.UUID, customerID uuid.UUID) (*models.Order, error) {
	if s.cancelErr != nil {
		return nil, s.cancelErr
	}
	return &models.Order{ID: orderID, Status: enums.OrderStatusCanceled}, nil
}

func (s *stubOrdersSvc) VendorDecision(ctx context.Context, input orders.VendorDecisionInput) error {
	panic("not implemented")
}

type stubPaymentsSvc struct {
	submitErr error
}

func (s *stubPaymentsSvc) Submit(ctx context.Context, input payments.SubmitPaymentInput) (*models.PaymentAttempt, *models.Order, error) {
	if s.submitErr != nil {
		return nil, nil, s.submitErr
	}
	return &models.PaymentAttempt{ID: uuid.New(), OrderID: input.OrderID}, &models.Order{ID: input.OrderID}, nil
}

func (s *stubPaymentsSvc) Review(ctx context.Context, input payments.ReviewInput) (*models.PaymentAttempt, *models.Order, error) {
	panic("not implemented")
}

func (s *stubPaymentsSvc) Channels(ctx context.Context, orderID uuid.UUID) ([]payments.ChannelOption, error) {
	panic("not implemented")
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) types.ErrorEnvelope {
	t.Helper()
	var body types.ErrorEnvelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestDayAvailabilityReturnsSizes(t *testing.T) {
	svc := &stubAvailabilitySvc{sizes: []availability.SizeAvailability{
		{Size: enums.DrumSizeSmall, AvailableCount: 4},
		{Size: enums.DrumSizeMedium, AvailableCount: 0},
	}}
	router := chi.NewRouter()
	router.Get("/availability/{vendorId}/{date}", DayAvailability(svc, nil))

	req := httptest.NewRequest(http.MethodGet, "/availability/"+uuid.NewString()+"/2026-09-15", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body types.SuccessEnvelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	data := body.Data.(map[string]any)
	assert.Equal(t, "2026-09-15", data["date"])
	assert.Len(t, data["sizes"], 2)
}

func TestDayAvailabilityRejectsBadDate(t *testing.T) {
	router := chi.NewRouter()
	router.Get("/availability/{vendorId}/{date}", DayAvailability(&stubAvailabilitySvc{}, nil))

	req := httptest.NewRequest(http.MethodGet, "/availability/"+uuid.NewString()+"/15-09-2026", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, string(pkgerrors.CodeValidation), body.Error.Code)
}

func TestCancelOrderMapsStateConflict(t *testing.T) {
	svc := &stubOrdersSvc{
		cancelErr: pkgerrors.New(pkgerrors.CodeStateConflict, "order already has payments").
			WithReason(pkgerrors.ReasonCancelNotAllowed),
	}
	router := chi.NewRouter()
	router.Post("/orders/{orderId}/cancel", CancelOrder(svc, nil))

	payload := `{"customer_id":"` + uuid.NewString() + `"}`
	req := httptest.NewRequest(http.MethodPost, "/orders/"+uuid.NewString()+"/cancel", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, string(pkgerrors.ReasonCancelNotAllowed), body.Error.Reason)
}

func TestCancelOrderRequiresCustomerID(t *testing.T) {
	router := chi.NewRouter()
	router.Post("/orders/{orderId}/cancel", CancelOrder(&stubOrdersSvc{}, nil))

	req := httptest.NewRequest(http.MethodPost, "/orders/"+uuid.NewString()+"/cancel", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitPaymentMapsDuplicateSlot(t *testing.T) {
	svc := &stubPaymentsSvc{
		submitErr: pkgerrors.New(pkgerrors.CodeConflict, "a payment for this slot is already confirmed").
			WithReason(pkgerrors.ReasonDuplicateSubmission).
			WithDetails(payments.DuplicateDetails{AttemptID: uuid.New(), Status: enums.AttemptStatusConfirmed}),
	}
	router := chi.NewRouter()
	router.Post("/orders/{orderId}/payments", SubmitPayment(svc, nil))

	payload := `{"customer_id":"` + uuid.NewString() + `","slot":"first_payment","channel":"gcash_instant","amount":"499.50"}`
	req := httptest.NewRequest(http.MethodPost, "/orders/"+uuid.NewString()+"/payments", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, string(pkgerrors.ReasonDuplicateSubmission), body.Error.Reason)
	assert.NotNil(t, body.Error.Details)
}

func TestSubmitPaymentMapsChannelUnavailable(t *testing.T) {
	svc := &stubPaymentsSvc{
		submitErr: pkgerrors.New(pkgerrors.CodeStateConflict, "vendor does not accept instant GCash payments").
			WithReason(pkgerrors.ReasonChannelUnavailable),
	}
	router := chi.NewRouter()
	router.Post("/orders/{orderId}/payments", SubmitPayment(svc, nil))

	payload := `{"customer_id":"` + uuid.NewString() + `","slot":"first_payment","channel":"gcash_instant","amount":"999.00"}`
	req := httptest.NewRequest(http.MethodPost, "/orders/"+uuid.NewString()+"/payments", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, string(pkgerrors.ReasonChannelUnavailable), body.Error.Reason)
}

func TestSubmitPaymentUnknownChannelIs422(t *testing.T) {
	router := chi.NewRouter()
	router.Post("/orders/{orderId}/payments", SubmitPayment(&stubPaymentsSvc{}, nil))

	payload := `{"customer_id":"` + uuid.NewString() + `","slot":"first_payment","channel":"bank_transfer","amount":"999.00"}`
	req := httptest.NewRequest(http.MethodPost, "/orders/"+uuid.NewString()+"/payments", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, string(pkgerrors.ReasonChannelUnavailable), body.Error.Reason)
}

func TestSubmitRemainingBalanceForcesSlot(t *testing.T) {
	captured := &capturingPaymentsSvc{}
	router := chi.NewRouter()
	router.Post("/orders/{orderId}/remaining-balance", SubmitRemainingBalance(captured, nil))

	payload := `{"customer_id":"` + uuid.NewString() + `","channel":"gcash_manual_qr","amount":"499.50","proof_ref":"uploads/p.jpg"}`
	req := httptest.NewRequest(http.MethodPost, "/orders/"+uuid.NewString()+"/remaining-balance", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, enums.SlotRemainingBalance, captured.lastInput.Slot)
}

type capturingPaymentsSvc struct {
	stubPaymentsSvc
	lastInput payments.SubmitPaymentInput
}

func (s *capturingPaymentsSvc) Submit(ctx context.Context, input payments.SubmitPaymentInput) (*models.PaymentAttempt, *models.Order, error) {
	s.lastInput = input
	return s.stubPaymentsSvc.Submit(ctx, input)
}
