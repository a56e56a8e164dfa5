package reservation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sorbeteslab/sorbetes-backend/internal/availability"
	"github.com/sorbeteslab/sorbetes-backend/pkg/db/models"
	pkgerrors "github.com/sorbeteslab/sorbetes-backend/pkg/errors"
	"github.com/sorbeteslab/sorbetes-backend/pkg/logger"
	"github.com/sorbeteslab/sorbetes-backend/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service validates a requested drum line and, when every precondition holds,
// commits the availability decrement. The checks fail fast with no partial
// side effects.
type Service interface {
	ValidateAndReserve(ctx context.Context, req ValidateRequest) (*ReservedItem, error)
}

type service struct {
	flavors      FlavorRepository
	availability availability.Service
	tx           txRunner
	metrics      *metrics.OrderMetrics
	logg         *logger.Logger
	minLeadTime  time.Duration
	now          func() time.Time
}

// NewService builds the reservation validator.
func NewService(flavors FlavorRepository, avail availability.Service, tx txRunner, m *metrics.OrderMetrics, logg *logger.Logger, minLeadTime time.Duration) (Service, error) {
	if flavors == nil {
		return nil, fmt.Errorf("flavor repository required")
	}
	if avail == nil {
		return nil, fmt.Errorf("availability service required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if minLeadTime <= 0 {
		minLeadTime = 24 * time.Hour
	}
	return &service{
		flavors:      flavors,
		availability: avail,
		tx:           tx,
		metrics:      m,
		logg:         logg,
		minLeadTime:  minLeadTime,
		now:          time.Now,
	}, nil
}

func (s *service) ValidateAndReserve(ctx context.Context, req ValidateRequest) (*ReservedItem, error) {
	if req.VendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}
	if req.FlavorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "flavor id required")
	}
	if req.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	if req.DeliveryAt.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery datetime required")
	}

	var item *ReservedItem
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		flavors := s.flavors.WithTx(tx)
		flavor, err := flavors.FindFlavor(ctx, req.FlavorID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "flavor not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load flavor")
		}
		if flavor.VendorID != req.VendorID {
			return pkgerrors.New(pkgerrors.CodeValidation, "flavor does not belong to vendor")
		}

		offering, ok := flavor.SizeOffering(req.Size)
		if !ok {
			return pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("flavor %q is not offered in size %q", flavor.Name, req.Size)).
				WithReason(pkgerrors.ReasonInvalidSize)
		}

		// Size first, then lead time, then availability.
		if err := s.checkLeadTime(req.DeliveryAt); err != nil {
			return err
		}

		date := models.DateKey(req.DeliveryAt)
		resolved, err := s.availability.ResolveCount(ctx, tx, req.VendorID, date, req.Size)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve availability")
		}
		if resolved < req.Quantity {
			return pkgerrors.New(pkgerrors.CodeConflict,
				fmt.Sprintf("only %d %s drums available on %s", resolved, req.Size, date)).
				WithReason(pkgerrors.ReasonInsufficientAvailability).
				WithDetails(availability.InsufficientDetails{Available: resolved, Requested: req.Quantity})
		}

		// The pre-check above can still lose to a concurrent reservation;
		// the conditional decrement is the authoritative gate.
		if err := s.availability.Reserve(ctx, tx, req.VendorID, date, req.Size, req.Quantity); err != nil {
			if pkgerrors.HasReason(err, pkgerrors.ReasonInsufficientAvailability) {
				s.metrics.IncReservationConflict()
			}
			return err
		}

		item = &ReservedItem{
			FlavorID:   flavor.ID,
			FlavorName: flavor.Name,
			VendorID:   flavor.VendorID,
			Size:       req.Size,
			Qty:        req.Quantity,
			UnitPrice:  offering.UnitPrice,
			DeliveryAt: req.DeliveryAt,
		}
		return nil
	})
	if err != nil {
		if pkgerrors.HasReason(err, pkgerrors.ReasonLeadTimeViolation) {
			s.metrics.IncReservation("lead_time_rejected")
		} else {
			s.metrics.IncReservation("rejected")
		}
		return nil, err
	}

	s.metrics.IncReservation("reserved")
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"vendor_id": req.VendorID.String(),
			"flavor_id": req.FlavorID.String(),
			"size":      req.Size.String(),
			"qty":       req.Quantity,
		})
		s.logg.Info(logCtx, "drums reserved")
	}
	return item, nil
}

// checkLeadTime enforces the minimum gap between now and the delivery
// instant. The boundary is inclusive: exactly the minimum is accepted.
func (s *service) checkLeadTime(deliveryAt time.Time) error {
	gap := deliveryAt.Sub(s.now())
	if gap < s.minLeadTime {
		return pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("delivery at %s is %.1f hours away; at least %.0f hours of lead time required",
				deliveryAt.Format(time.RFC3339), gap.Hours(), s.minLeadTime.Hours())).
			WithReason(pkgerrors.ReasonLeadTimeViolation).
			WithDetails(LeadTimeDetails{
				DeliveryAt:   deliveryAt.Format(time.RFC3339),
				HoursUntil:   gap.Hours(),
				MinimumHours: s.minLeadTime.Hours(),
			})
	}
	return nil
}
