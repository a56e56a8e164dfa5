package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/sorbeteslab/sorbetes-backend/pkg/db/models"
	"github.com/sorbeteslab/sorbetes-backend/pkg/enums"
	"github.com/sorbeteslab/sorbetes-backend/pkg/pagination"
)

// PaymentFieldsUpdate is the settlement write against an order. It only
// touches the payment ledger columns, never acceptance or lifecycle status.
type PaymentFieldsUpdate struct {
	AmountPaid       decimal.Decimal
	RemainingBalance decimal.Decimal
	PaymentStatus    enums.PaymentStatus
	PaymentMethod    *enums.PaymentMethod
	PaidAt           *time.Time
}

// Repository persists and reads order aggregates.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	CreateItems(ctx context.Context, items []models.OrderItem) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListCustomerOrders(ctx context.Context, customerID uuid.UUID, params pagination.Params, filters OrderFilters) (*OrderList, error)
	UpdatePaymentFields(ctx context.Context, id uuid.UUID, update PaymentFieldsUpdate) error
	MarkCanceled(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkInventoryReleased(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	UpdateAcceptanceStatus(ctx context.Context, id uuid.UUID, status enums.AcceptanceStatus) error
}
