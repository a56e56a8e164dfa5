package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sorbeteslab/sorbetes-backend/api/responses"
	"github.com/sorbeteslab/sorbetes-backend/api/validators"
	"github.com/sorbeteslab/sorbetes-backend/internal/orders"
	"github.com/sorbeteslab/sorbetes-backend/internal/reservation"
	"github.com/sorbeteslab/sorbetes-backend/pkg/enums"
	pkgerrors "github.com/sorbeteslab/sorbetes-backend/pkg/errors"
	"github.com/sorbeteslab/sorbetes-backend/pkg/logger"
	"github.com/sorbeteslab/sorbetes-backend/pkg/pagination"
)

type createOrderRequest struct {
	CustomerID  uuid.UUID                  `json:"customer_id" validate:"required"`
	VendorID    uuid.UUID                  `json:"vendor_id" validate:"required"`
	DeliveryAt  time.Time                  `json:"delivery_at" validate:"required"`
	DeliveryFee *string                    `json:"delivery_fee,omitempty"`
	Items       []reservation.ReservedItem `json:"items" validate:"required,min=1"`
}

// CreateOrder turns reserved snapshot lines into an order aggregate. The
// default delivery fee applies when the client does not send one.
func CreateOrder(svc orders.Service, defaultDeliveryFee decimal.Decimal, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		var req createOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		fee := defaultDeliveryFee
		if req.DeliveryFee != nil {
			parsed, err := decimal.NewFromString(strings.TrimSpace(*req.DeliveryFee))
			if err != nil || parsed.IsNegative() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "delivery fee must be a non-negative amount"))
				return
			}
			fee = parsed
		}

		order, err := svc.Create(r.Context(), orders.CreateOrderInput{
			CustomerID:  req.CustomerID,
			VendorID:    req.VendorID,
			Items:       req.Items,
			DeliveryAt:  req.DeliveryAt,
			DeliveryFee: fee,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// ListOrders pages through one customer's orders, newest first.
func ListOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		customerID, err := validators.ParseQueryUUID(r, "customer_id", true)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filters, err := buildOrderFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.List(r.Context(), customerID, pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func buildOrderFilters(r *http.Request) (orders.OrderFilters, error) {
	filters := orders.OrderFilters{}
	if raw := strings.TrimSpace(r.URL.Query().Get("payment_status")); raw != "" {
		status, err := enums.ParsePaymentStatus(raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment status filter")
		}
		filters.PaymentStatus = &status
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status, err := enums.ParseOrderStatus(raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order status filter")
		}
		filters.Status = &status
	}
	return filters, nil
}

// OrderDetail returns the full aggregate: items, ledger, and attempts.
func OrderDetail(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

type cancelOrderRequest struct {
	CustomerID uuid.UUID `json:"customer_id" validate:"required"`
}

// CancelOrder cancels an unpaid order and returns its drums to availability.
func CancelOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req cancelOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Cancel(r.Context(), orderID, req.CustomerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

type vendorDecisionRequest struct {
	VendorID uuid.UUID `json:"vendor_id" validate:"required"`
	Decision string    `json:"decision" validate:"required,oneof=accept reject"`
}

// VendorOrderDecision records the vendor's accept/reject verdict. Rejection
// releases the reserved drums.
func VendorOrderDecision(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req vendorDecisionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		err = svc.VendorDecision(r.Context(), orders.VendorDecisionInput{
			OrderID:  orderID,
			VendorID: req.VendorID,
			Decision: orders.VendorDecision(req.Decision),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"decision": req.Decision})
	}
}
