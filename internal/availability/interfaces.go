package availability

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sorbeteslab/sorbetes-backend/pkg/db/models"
	"github.com/sorbeteslab/sorbetes-backend/pkg/enums"
)

// Repository exposes the availability counter queries and mutations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindRecord(ctx context.Context, vendorID uuid.UUID, date string, size enums.DrumSize) (*models.AvailabilityRecord, error)
	ListRecords(ctx context.Context, vendorID uuid.UUID, date string) ([]models.AvailabilityRecord, error)
	DefaultCount(ctx context.Context, vendorID uuid.UUID, size enums.DrumSize) (int, error)
	SeedRecord(ctx context.Context, record *models.AvailabilityRecord) error
	DecrementIfAvailable(ctx context.Context, vendorID uuid.UUID, date string, size enums.DrumSize, qty int) (bool, error)
	Increment(ctx context.Context, vendorID uuid.UUID, date string, size enums.DrumSize, qty int) (bool, error)
}

// SizeAvailability is one row of the per-day availability projection.
type SizeAvailability struct {
	Size           enums.DrumSize `json:"size"`
	AvailableCount int            `json:"available_count"`
}

// InsufficientDetails is attached to insufficient-availability errors so the
// client can clamp the requested quantity.
type InsufficientDetails struct {
	Available int `json:"available"`
	Requested int `json:"requested"`
}
