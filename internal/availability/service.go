package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sorbeteslab/sorbetes-backend/pkg/db/models"
	"github.com/sorbeteslab/sorbetes-backend/pkg/enums"
	pkgerrors "github.com/sorbeteslab/sorbetes-backend/pkg/errors"
	"github.com/sorbeteslab/sorbetes-backend/pkg/logger"
)

// Service exposes drum availability reads plus the reserve/release mutations
// used by the reservation flow.
type Service interface {
	DayAvailability(ctx context.Context, vendorID uuid.UUID, date string) ([]SizeAvailability, error)
	ResolveCount(ctx context.Context, tx *gorm.DB, vendorID uuid.UUID, date string, size enums.DrumSize) (int, error)
	Reserve(ctx context.Context, tx *gorm.DB, vendorID uuid.UUID, date string, size enums.DrumSize, qty int) error
	Release(ctx context.Context, tx *gorm.DB, vendorID uuid.UUID, date string, size enums.DrumSize, qty int) error
}

type service struct {
	repo Repository
	logg *logger.Logger
}

// NewService builds the availability service.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("availability repository required")
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) DayAvailability(ctx context.Context, vendorID uuid.UUID, date string) ([]SizeAvailability, error) {
	if vendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}
	if _, err := time.Parse(models.DateLayout, date); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "date must be formatted YYYY-MM-DD")
	}

	records, err := s.repo.ListRecords(ctx, vendorID, date)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list availability records")
	}
	bySize := make(map[enums.DrumSize]int, len(records))
	for _, rec := range records {
		bySize[rec.Size] = rec.AvailableCount
	}

	out := make([]SizeAvailability, 0, len(enums.DrumSizes()))
	for _, size := range enums.DrumSizes() {
		count, ok := bySize[size]
		if !ok {
			count, err = s.repo.DefaultCount(ctx, vendorID, size)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve default count")
			}
		}
		out = append(out, SizeAvailability{Size: size, AvailableCount: count})
	}
	return out, nil
}

// ResolveCount returns the date-specific count when a record exists, the
// flavor-default projection otherwise, and 0 when neither is configured.
func (s *service) ResolveCount(ctx context.Context, tx *gorm.DB, vendorID uuid.UUID, date string, size enums.DrumSize) (int, error) {
	repo := s.repo.WithTx(tx)
	record, err := repo.FindRecord(ctx, vendorID, date, size)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return repo.DefaultCount(ctx, vendorID, size)
		}
		return 0, err
	}
	return record.AvailableCount, nil
}

// Reserve decrements the counter for the key, materializing the date record
// from the flavor defaults on first touch. Callers run it inside the same
// transaction that persists the order so a later failure rolls the drums back.
func (s *service) Reserve(ctx context.Context, tx *gorm.DB, vendorID uuid.UUID, date string, size enums.DrumSize, qty int) error {
	if qty < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	repo := s.repo.WithTx(tx)

	defaultCount, err := repo.DefaultCount(ctx, vendorID, size)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve default count")
	}
	seed := &models.AvailabilityRecord{
		VendorID:       vendorID,
		Date:           date,
		Size:           size,
		AvailableCount: defaultCount,
	}
	if err := repo.SeedRecord(ctx, seed); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "seed availability record")
	}

	ok, err := repo.DecrementIfAvailable(ctx, vendorID, date, size, qty)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement availability")
	}
	if !ok {
		available := 0
		if record, ferr := repo.FindRecord(ctx, vendorID, date, size); ferr == nil {
			available = record.AvailableCount
		}
		return pkgerrors.New(pkgerrors.CodeConflict,
			fmt.Sprintf("only %d %s drums available on %s", available, size, date)).
			WithReason(pkgerrors.ReasonInsufficientAvailability).
			WithDetails(InsufficientDetails{Available: available, Requested: qty})
	}
	return nil
}

// Release returns drums to the counter. Double-release protection lives on
// the order (inventory_released_at); this method itself always adds.
func (s *service) Release(ctx context.Context, tx *gorm.DB, vendorID uuid.UUID, date string, size enums.DrumSize, qty int) error {
	if qty < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	repo := s.repo.WithTx(tx)

	ok, err := repo.Increment(ctx, vendorID, date, size, qty)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increment availability")
	}
	if !ok {
		// No record means the key was never reserved through this engine.
		// Materialize one so the drums are not lost.
		if s.logg != nil {
			s.logg.Warn(s.logg.WithVendorID(ctx, vendorID.String()), "release without availability record")
		}
		seed := &models.AvailabilityRecord{
			VendorID:       vendorID,
			Date:           date,
			Size:           size,
			AvailableCount: qty,
		}
		if err := repo.SeedRecord(ctx, seed); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "seed availability record")
		}
	}
	return nil
}
