package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/sorbeteslab/sorbetes-backend/pkg/enums"
)

// DateLayout is the calendar-date key format used for availability rows.
const DateLayout = "2006-01-02"

// AvailabilityRecord holds the drum count a vendor can still deliver for one
// (vendor, calendar date, size) key. It is the contended resource: reserve
// decrements it with a single conditional UPDATE so concurrent callers
// serialize at the database.
type AvailabilityRecord struct {
	ID             uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VendorID       uuid.UUID      `gorm:"column:vendor_id;type:uuid;not null;uniqueIndex:ux_availability_vendor_date_size"`
	Date           string         `gorm:"column:date;type:date;not null;uniqueIndex:ux_availability_vendor_date_size"`
	Size           enums.DrumSize `gorm:"column:size;type:drum_size;not null;uniqueIndex:ux_availability_vendor_date_size"`
	AvailableCount int            `gorm:"column:available_count;not null;default:0"`
	CreatedAt      time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

// DateKey normalizes a delivery instant to the calendar-date key.
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}
