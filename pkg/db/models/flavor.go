package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sorbeteslab/sorbetes-backend/pkg/enums"
)

// Flavor is a vendor-owned catalog entry. The reservation engine reads it but
// never writes it; prices are snapshotted into order items at reservation time.
type Flavor struct {
	ID        uuid.UUID    `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VendorID  uuid.UUID    `gorm:"column:vendor_id;type:uuid;not null;index"`
	Name      string       `gorm:"column:name;not null"`
	Active    bool         `gorm:"column:active;not null;default:true"`
	Sizes     []FlavorSize `gorm:"foreignKey:FlavorID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time    `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time    `gorm:"column:updated_at;autoUpdateTime"`
}

// FlavorSize is one drum size a flavor is offered in, with its unit price and
// the general per-day drum count used when no date-specific record exists.
type FlavorSize struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	FlavorID     uuid.UUID       `gorm:"column:flavor_id;type:uuid;not null;uniqueIndex:ux_flavor_sizes_flavor_size"`
	Size         enums.DrumSize  `gorm:"column:size;type:drum_size;not null;uniqueIndex:ux_flavor_sizes_flavor_size"`
	UnitPrice    decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	DefaultCount int             `gorm:"column:default_count;not null;default:0"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// SizeOffering returns the size row when the flavor offers it.
func (f *Flavor) SizeOffering(size enums.DrumSize) (*FlavorSize, bool) {
	for i := range f.Sizes {
		if f.Sizes[i].Size == size {
			return &f.Sizes[i], true
		}
	}
	return nil, false
}
