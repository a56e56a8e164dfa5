package reservation

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sorbeteslab/sorbetes-backend/pkg/enums"
)

// ValidateRequest carries one drum line the customer wants to reserve.
type ValidateRequest struct {
	VendorID   uuid.UUID
	FlavorID   uuid.UUID
	Size       enums.DrumSize
	Quantity   int
	DeliveryAt time.Time
}

// ReservedItem is the immutable snapshot handed to order creation. The unit
// price is fixed here so a vendor price edit mid-checkout cannot drift the
// total.
type ReservedItem struct {
	FlavorID   uuid.UUID       `json:"flavor_id"`
	FlavorName string          `json:"flavor_name"`
	VendorID   uuid.UUID       `json:"vendor_id"`
	Size       enums.DrumSize  `json:"size"`
	Qty        int             `json:"qty"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	DeliveryAt time.Time       `json:"delivery_at"`
}

// LeadTimeDetails explains a lead-time rejection so the client can show the
// shortfall.
type LeadTimeDetails struct {
	DeliveryAt   string  `json:"delivery_at"`
	HoursUntil   float64 `json:"hours_until"`
	MinimumHours float64 `json:"minimum_hours"`
}
