package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sorbeteslab/sorbetes-backend/api/responses"
	"github.com/sorbeteslab/sorbetes-backend/api/validators"
	"github.com/sorbeteslab/sorbetes-backend/internal/payments"
	"github.com/sorbeteslab/sorbetes-backend/pkg/db/models"
	"github.com/sorbeteslab/sorbetes-backend/pkg/enums"
	pkgerrors "github.com/sorbeteslab/sorbetes-backend/pkg/errors"
	"github.com/sorbeteslab/sorbetes-backend/pkg/logger"
)

type submitPaymentRequest struct {
	CustomerID uuid.UUID `json:"customer_id" validate:"required"`
	Slot       string    `json:"slot" validate:"required"`
	Channel    string    `json:"channel" validate:"required"`
	Amount     string    `json:"amount" validate:"required"`
	ProofRef   *string   `json:"proof_ref,omitempty"`
}

type paymentResult struct {
	Attempt *models.PaymentAttempt `json:"attempt"`
	Order   *models.Order          `json:"order"`
}

// SubmitPayment routes one settlement submission to the chosen channel.
func SubmitPayment(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		submitPayment(svc, logg, "", w, r)
	}
}

// SubmitRemainingBalance is the dedicated pay-the-rest flow; the slot is
// forced so a stale client cannot resubmit the first payment here.
func SubmitRemainingBalance(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		submitPayment(svc, logg, enums.SlotRemainingBalance, w, r)
	}
}

func submitPayment(svc payments.Service, logg *logger.Logger, forcedSlot enums.PaymentSlot, w http.ResponseWriter, r *http.Request) {
	if svc == nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
		return
	}

	orderID, err := validators.ParseUUIDParam(r, "orderId")
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}

	var req submitPaymentRequest
	if forcedSlot != "" {
		req.Slot = string(forcedSlot)
	}
	if err := validators.DecodeJSONBody(r, &req); err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	if forcedSlot != "" {
		req.Slot = string(forcedSlot)
	}

	slot, err := enums.ParsePaymentSlot(req.Slot)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment slot"))
		return
	}
	channel, err := enums.ParsePaymentMethod(req.Channel)
	if err != nil {
		responses.WriteError(r.Context(), logg, w,
			pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, "invalid payment channel").
				WithReason(pkgerrors.ReasonChannelUnavailable))
		return
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "amount must be a decimal string"))
		return
	}

	attempt, order, err := svc.Submit(r.Context(), payments.SubmitPaymentInput{
		OrderID:    orderID,
		CustomerID: req.CustomerID,
		Slot:       slot,
		Channel:    channel,
		Amount:     amount,
		ProofRef:   req.ProofRef,
	})
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	responses.WriteSuccess(w, paymentResult{Attempt: attempt, Order: order})
}

type reviewPaymentRequest struct {
	VendorID uuid.UUID `json:"vendor_id" validate:"required"`
	Decision string    `json:"decision" validate:"required,oneof=confirm reject"`
}

// ReviewPayment records the vendor's verdict on a manual QR proof. Confirming
// feeds the attempt into settlement; rejecting frees the slot.
func ReviewPayment(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		attemptID, err := validators.ParseUUIDParam(r, "attemptId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req reviewPaymentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		attempt, order, err := svc.Review(r.Context(), payments.ReviewInput{
			OrderID:   orderID,
			AttemptID: attemptID,
			VendorID:  req.VendorID,
			Decision:  payments.ReviewDecision(req.Decision),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, paymentResult{Attempt: attempt, Order: order})
	}
}

// PaymentChannels reports which channels the order can settle through.
func PaymentChannels(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		options, err := svc.Channels(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"channels": options})
	}
}
