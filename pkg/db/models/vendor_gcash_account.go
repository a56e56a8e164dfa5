package models

import (
	"time"

	"github.com/google/uuid"
)

// VendorGCashAccount is the vendor's configured GCash destination. Owned by
// the vendor-onboarding workflow; this engine only reads it to decide whether
// the instant channel is offered.
type VendorGCashAccount struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VendorID     uuid.UUID `gorm:"column:vendor_id;type:uuid;not null;uniqueIndex"`
	MobileNumber string    `gorm:"column:mobile_number;not null"`
	ShopName     string    `gorm:"column:shop_name;not null"`
	Active       bool      `gorm:"column:active;not null;default:true"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
