package controllers

import (
	"net/http"

	"github.com/sorbeteslab/sorbetes-backend/api/responses"
	"github.com/sorbeteslab/sorbetes-backend/api/validators"
	"github.com/sorbeteslab/sorbetes-backend/internal/availability"
	pkgerrors "github.com/sorbeteslab/sorbetes-backend/pkg/errors"
	"github.com/sorbeteslab/sorbetes-backend/pkg/logger"
)

// DayAvailability returns the per-size drum counts a vendor can still deliver
// on one calendar date.
func DayAvailability(svc availability.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "availability service unavailable"))
			return
		}

		vendorID, err := validators.ParseUUIDParam(r, "vendorId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		date, err := validators.ParseDateParam(r, "date")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sizes, err := svc.DayAvailability(r.Context(), vendorID, date)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"vendor_id": vendorID,
			"date":      date,
			"sizes":     sizes,
		})
	}
}
