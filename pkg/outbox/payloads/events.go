package payloads

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sorbeteslab/sorbetes-backend/pkg/enums"
)

// OrderCreatedEvent is emitted when a reservation becomes an order.
type OrderCreatedEvent struct {
	OrderID     uuid.UUID       `json:"order_id"`
	CustomerID  uuid.UUID       `json:"customer_id"`
	VendorID    uuid.UUID       `json:"vendor_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	DeliveryAt  string          `json:"delivery_at"`
}

// OrderCanceledEvent is emitted when an unpaid order is canceled and its
// drums return to the availability counters.
type OrderCanceledEvent struct {
	OrderID    uuid.UUID `json:"order_id"`
	CustomerID uuid.UUID `json:"customer_id"`
	VendorID   uuid.UUID `json:"vendor_id"`
}

// PaymentSubmittedEvent is emitted when a manual-QR attempt enters review.
type PaymentSubmittedEvent struct {
	OrderID   uuid.UUID           `json:"order_id"`
	AttemptID uuid.UUID           `json:"attempt_id"`
	Slot      enums.PaymentSlot   `json:"slot"`
	Channel   enums.PaymentMethod `json:"channel"`
	Amount    decimal.Decimal     `json:"amount"`
}

// PaymentConfirmedEvent is emitted when a confirmed attempt is credited.
type PaymentConfirmedEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	AttemptID     uuid.UUID           `json:"attempt_id"`
	Channel       enums.PaymentMethod `json:"channel"`
	Amount        decimal.Decimal     `json:"amount"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
}

// PaymentRejectedEvent is emitted when vendor review rejects a manual proof.
type PaymentRejectedEvent struct {
	OrderID   uuid.UUID         `json:"order_id"`
	AttemptID uuid.UUID         `json:"attempt_id"`
	Slot      enums.PaymentSlot `json:"slot"`
}

// OrderPaidEvent is emitted when the remaining balance reaches zero.
type OrderPaidEvent struct {
	OrderID    uuid.UUID       `json:"order_id"`
	CustomerID uuid.UUID       `json:"customer_id"`
	VendorID   uuid.UUID       `json:"vendor_id"`
	AmountPaid decimal.Decimal `json:"amount_paid"`
}
