package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/sorbeteslab/sorbetes-backend/api/responses"
	"github.com/sorbeteslab/sorbetes-backend/api/validators"
	"github.com/sorbeteslab/sorbetes-backend/internal/reservation"
	"github.com/sorbeteslab/sorbetes-backend/pkg/enums"
	pkgerrors "github.com/sorbeteslab/sorbetes-backend/pkg/errors"
	"github.com/sorbeteslab/sorbetes-backend/pkg/logger"
)

type validateReservationRequest struct {
	VendorID   uuid.UUID `json:"vendor_id" validate:"required"`
	FlavorID   uuid.UUID `json:"flavor_id" validate:"required"`
	Size       string    `json:"size" validate:"required"`
	Qty        int       `json:"qty" validate:"required,min=1"`
	DeliveryAt time.Time `json:"delivery_at" validate:"required"`
}

// ValidateReservation checks a drum line and, when valid, holds the drums and
// returns the priced snapshot the order will be built from.
func ValidateReservation(svc reservation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reservation service unavailable"))
			return
		}

		var req validateReservationRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		size, err := enums.ParseDrumSize(req.Size)
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid drum size").
					WithReason(pkgerrors.ReasonInvalidSize))
			return
		}

		item, err := svc.ValidateAndReserve(r.Context(), reservation.ValidateRequest{
			VendorID:   req.VendorID,
			FlavorID:   req.FlavorID,
			Size:       size,
			Quantity:   req.Qty,
			DeliveryAt: req.DeliveryAt,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}
