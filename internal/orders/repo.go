package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sorbeteslab/sorbetes-backend/pkg/db/models"
	"github.com/sorbeteslab/sorbetes-backend/pkg/enums"
	"github.com/sorbeteslab/sorbetes-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Omit("Items", "Attempts").Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) CreateItems(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		if items[i].ID == uuid.Nil {
			items[i].ID = uuid.New()
		}
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Attempts", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListCustomerOrders(ctx context.Context, customerID uuid.UUID, params pagination.Params, filters OrderFilters) (*OrderList, error) {
	limit := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Preload("Items").
		Where("customer_id = ?", customerID).
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit))

	if filters.PaymentStatus != nil {
		query = query.Where("payment_status = ?", *filters.PaymentStatus)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.DateFrom != nil {
		query = query.Where("created_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("created_at <= ?", *filters.DateTo)
	}

	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, err
		}
		if cursor != nil {
			query = query.Where(
				"(created_at < ?) OR (created_at = ? AND id < ?)",
				cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
			)
		}
	}

	var rows []models.Order
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	list := &OrderList{}
	if len(rows) > limit {
		last := rows[limit-1]
		list.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
		rows = rows[:limit]
	}

	list.Orders = make([]OrderSummary, 0, len(rows))
	for _, row := range rows {
		totalItems := 0
		for _, item := range row.Items {
			totalItems += item.Qty
		}
		list.Orders = append(list.Orders, OrderSummary{
			ID:               row.ID,
			VendorID:         row.VendorID,
			DeliveryAt:       row.DeliveryAt,
			TotalAmount:      row.TotalAmount,
			AmountPaid:       row.AmountPaid,
			RemainingBalance: row.RemainingBalance,
			PaymentStatus:    row.PaymentStatus,
			Status:           row.Status,
			AcceptanceStatus: row.AcceptanceStatus,
			TotalItems:       totalItems,
			CreatedAt:        row.CreatedAt,
		})
	}
	return list, nil
}

func (r *repository) UpdatePaymentFields(ctx context.Context, id uuid.UUID, update PaymentFieldsUpdate) error {
	values := map[string]any{
		"amount_paid":       update.AmountPaid,
		"remaining_balance": update.RemainingBalance,
		"payment_status":    update.PaymentStatus,
	}
	if update.PaymentMethod != nil {
		values["payment_method"] = *update.PaymentMethod
	}
	if update.PaidAt != nil {
		values["paid_at"] = *update.PaidAt
	}
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Updates(values).Error
}

func (r *repository) MarkCanceled(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":      enums.OrderStatusCanceled,
			"canceled_at": at,
		}).Error
}

// MarkInventoryReleased flips the release guard at most once; the boolean
// reports whether this call won the flip.
func (r *repository) MarkInventoryReleased(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND inventory_released_at IS NULL", id).
		Update("inventory_released_at", at)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) UpdateAcceptanceStatus(ctx context.Context, id uuid.UUID, status enums.AcceptanceStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Update("acceptance_status", status).Error
}
