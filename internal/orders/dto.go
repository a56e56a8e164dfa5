package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sorbeteslab/sorbetes-backend/internal/reservation"
	"github.com/sorbeteslab/sorbetes-backend/pkg/enums"
)

// CreateOrderInput carries the reserved snapshot lines plus delivery details.
// Every line must already hold drums; order creation never touches the
// availability counters.
type CreateOrderInput struct {
	CustomerID  uuid.UUID
	VendorID    uuid.UUID
	Items       []reservation.ReservedItem
	DeliveryAt  time.Time
	DeliveryFee decimal.Decimal
}

// OrderFilters describe the inputs supported by the customer orders list.
type OrderFilters struct {
	PaymentStatus *enums.PaymentStatus
	Status        *enums.OrderStatus
	DateFrom      *time.Time
	DateTo        *time.Time
}

// OrderSummary exposes the aggregated fields returned in the list.
type OrderSummary struct {
	ID               uuid.UUID              `json:"id"`
	VendorID         uuid.UUID              `json:"vendor_id"`
	DeliveryAt       time.Time              `json:"delivery_at"`
	TotalAmount      decimal.Decimal        `json:"total_amount"`
	AmountPaid       decimal.Decimal        `json:"amount_paid"`
	RemainingBalance decimal.Decimal        `json:"remaining_balance"`
	PaymentStatus    enums.PaymentStatus    `json:"payment_status"`
	Status           enums.OrderStatus      `json:"status"`
	AcceptanceStatus enums.AcceptanceStatus `json:"acceptance_status"`
	TotalItems       int                    `json:"total_items"`
	CreatedAt        time.Time              `json:"created_at"`
}

// OrderList wraps the paginated orders plus the next page cursor.
type OrderList struct {
	Orders     []OrderSummary `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// VendorDecision represents the acceptance decision a vendor can take.
type VendorDecision string

const (
	VendorDecisionAccept VendorDecision = "accept"
	VendorDecisionReject VendorDecision = "reject"
)

// VendorDecisionInput captures the data required to record an acceptance
// decision.
type VendorDecisionInput struct {
	OrderID  uuid.UUID
	VendorID uuid.UUID
	Decision VendorDecision
}
