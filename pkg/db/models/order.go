package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sorbeteslab/sorbetes-backend/pkg/enums"
)

// Order is the drum reservation aggregate plus its payment ledger fields.
// Payment fields are mutated only by the settlement state machine; the
// invariant amount_paid + remaining_balance == total_amount holds at all times.
type Order struct {
	ID               uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID       uuid.UUID              `gorm:"column:customer_id;type:uuid;not null;index"`
	VendorID         uuid.UUID              `gorm:"column:vendor_id;type:uuid;not null;index"`
	DeliveryAt       time.Time              `gorm:"column:delivery_at;not null"`
	Subtotal         decimal.Decimal        `gorm:"column:subtotal;type:numeric(12,2);not null"`
	DeliveryFee      decimal.Decimal        `gorm:"column:delivery_fee;type:numeric(12,2);not null"`
	TotalAmount      decimal.Decimal        `gorm:"column:total_amount;type:numeric(12,2);not null"`
	PaymentMethod    *enums.PaymentMethod   `gorm:"column:payment_method;type:payment_method"`
	PaymentStatus    enums.PaymentStatus    `gorm:"column:payment_status;type:payment_status;not null;default:'unpaid'"`
	AmountPaid       decimal.Decimal        `gorm:"column:amount_paid;type:numeric(12,2);not null;default:0"`
	RemainingBalance decimal.Decimal        `gorm:"column:remaining_balance;type:numeric(12,2);not null"`
	Status           enums.OrderStatus      `gorm:"column:status;type:order_status;not null;default:'active'"`
	AcceptanceStatus enums.AcceptanceStatus `gorm:"column:acceptance_status;type:acceptance_status;not null;default:'pending'"`

	// InventoryReleasedAt guards release idempotency: drums for this order go
	// back to the availability counters at most once.
	InventoryReleasedAt *time.Time `gorm:"column:inventory_released_at"`

	Items      []OrderItem      `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Attempts   []PaymentAttempt `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	PaidAt     *time.Time       `gorm:"column:paid_at"`
	CanceledAt *time.Time       `gorm:"column:canceled_at"`
	CreatedAt  time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderItem is the immutable snapshot of one reserved drum line.
type OrderItem struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID   uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	FlavorID  uuid.UUID       `gorm:"column:flavor_id;type:uuid;not null"`
	VendorID  uuid.UUID       `gorm:"column:vendor_id;type:uuid;not null"`
	Size      enums.DrumSize  `gorm:"column:size;type:drum_size;not null"`
	Qty       int             `gorm:"column:qty;not null"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}

// LineTotal is qty times the snapshotted unit price.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Qty)))
}
