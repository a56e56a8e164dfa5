package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/sorbeteslab/sorbetes-backend/pkg/db/models"
	"github.com/sorbeteslab/sorbetes-backend/pkg/enums"
	pkgerrors "github.com/sorbeteslab/sorbetes-backend/pkg/errors"
	"github.com/sorbeteslab/sorbetes-backend/pkg/logger"
	"github.com/sorbeteslab/sorbetes-backend/pkg/outbox"
	"github.com/sorbeteslab/sorbetes-backend/pkg/outbox/payloads"
	"github.com/sorbeteslab/sorbetes-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// InventoryReleaser returns reserved drums when an order is canceled or
// rejected.
type InventoryReleaser interface {
	Release(ctx context.Context, tx *gorm.DB, vendorID uuid.UUID, date string, size enums.DrumSize, qty int) error
}

// Service defines the order aggregate operations.
type Service interface {
	Create(ctx context.Context, input CreateOrderInput) (*models.Order, error)
	Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	List(ctx context.Context, customerID uuid.UUID, params pagination.Params, filters OrderFilters) (*OrderList, error)
	Cancel(ctx context.Context, orderID uuid.UUID, customerID uuid.UUID) (*models.Order, error)
	VendorDecision(ctx context.Context, input VendorDecisionInput) error
}

type service struct {
	repo      Repository
	tx        txRunner
	outbox    outboxPublisher
	inventory InventoryReleaser
	logg      *logger.Logger
}

// NewService builds the order service with the required dependencies.
func NewService(repo Repository, tx txRunner, outboxSvc outboxPublisher, inventory InventoryReleaser, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if inventory == nil {
		return nil, fmt.Errorf("inventory releaser required")
	}
	return &service{
		repo:      repo,
		tx:        tx,
		outbox:    outboxSvc,
		inventory: inventory,
		logg:      logg,
	}, nil
}

// QuotePartialAmount is the 50%-now plan amount: half the total, rounded half
// away from zero to centavos. The remaining balance is total minus this quote,
// never a second independently rounded half.
func QuotePartialAmount(total decimal.Decimal) decimal.Decimal {
	return total.Div(decimal.NewFromInt(2)).Round(2)
}

func (s *service) Create(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	if input.VendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one reserved item required")
	}
	if input.DeliveryAt.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery datetime required")
	}
	if input.DeliveryFee.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery fee cannot be negative")
	}

	subtotal := decimal.Zero
	items := make([]models.OrderItem, 0, len(input.Items))
	for _, line := range input.Items {
		if line.VendorID != input.VendorID {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "all items must belong to the order vendor")
		}
		if line.Qty < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item quantity must be at least 1")
		}
		subtotal = subtotal.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Qty))))
		items = append(items, models.OrderItem{
			FlavorID:  line.FlavorID,
			VendorID:  line.VendorID,
			Size:      line.Size,
			Qty:       line.Qty,
			UnitPrice: line.UnitPrice,
		})
	}
	total := subtotal.Add(input.DeliveryFee)

	order := &models.Order{
		CustomerID:       input.CustomerID,
		VendorID:         input.VendorID,
		DeliveryAt:       input.DeliveryAt,
		Subtotal:         subtotal,
		DeliveryFee:      input.DeliveryFee,
		TotalAmount:      total,
		PaymentStatus:    enums.PaymentStatusUnpaid,
		AmountPaid:       decimal.Zero,
		RemainingBalance: total,
		Status:           enums.OrderStatusActive,
		AcceptanceStatus: enums.AcceptancePending,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		for i := range items {
			items[i].OrderID = order.ID
		}
		if err := repo.CreateItems(ctx, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order items")
		}
		order.Items = items

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Data: payloads.OrderCreatedEvent{
				OrderID:     order.ID,
				CustomerID:  order.CustomerID,
				VendorID:    order.VendorID,
				TotalAmount: order.TotalAmount,
				DeliveryAt:  order.DeliveryAt.Format(time.RFC3339),
			},
		})
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithOrderID(ctx, order.ID.String())
		s.logg.Info(logCtx, "order created")
	}
	return order, nil
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) List(ctx context.Context, customerID uuid.UUID, params pagination.Params, filters OrderFilters) (*OrderList, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	list, err := s.repo.ListCustomerOrders(ctx, customerID, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return list, nil
}

// Cancel is permitted only while nothing has been paid. Money attached to the
// order means a refund workflow, which this engine does not provide.
func (s *service) Cancel(ctx context.Context, orderID uuid.UUID, customerID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}

	var canceled *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.CustomerID != customerID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if order.Status == enums.OrderStatusCanceled {
			canceled = order
			return nil
		}
		if order.PaymentStatus != enums.PaymentStatusUnpaid {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				"order already has payments; cancellation requires a refund workflow").
				WithReason(pkgerrors.ReasonCancelNotAllowed)
		}

		if err := s.releaseInventory(ctx, tx, repo, order); err != nil {
			return err
		}

		now := time.Now()
		if err := repo.MarkCanceled(ctx, order.ID, now); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order canceled")
		}
		order.Status = enums.OrderStatusCanceled
		order.CanceledAt = &now
		canceled = order

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCanceled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Data: payloads.OrderCanceledEvent{
				OrderID:    order.ID,
				CustomerID: order.CustomerID,
				VendorID:   order.VendorID,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithOrderID(ctx, orderID.String())
		s.logg.Info(logCtx, "order canceled")
	}
	return canceled, nil
}

// VendorDecision records the acceptance outcome owned by the vendor workflow.
// Rejection returns the reserved drums; settlement never touches this field.
func (s *service) VendorDecision(ctx context.Context, input VendorDecisionInput) error {
	if input.OrderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.VendorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}

	var target enums.AcceptanceStatus
	switch input.Decision {
	case VendorDecisionAccept:
		target = enums.AcceptanceAccepted
	case VendorDecisionReject:
		target = enums.AcceptanceRejected
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown decision %q", input.Decision))
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.VendorID != input.VendorID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if order.AcceptanceStatus == target {
			return nil
		}
		if order.AcceptanceStatus != enums.AcceptancePending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "acceptance already decided")
		}

		if target == enums.AcceptanceRejected {
			if err := s.releaseInventory(ctx, tx, repo, order); err != nil {
				return err
			}
		}
		if err := repo.UpdateAcceptanceStatus(ctx, order.ID, target); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update acceptance status")
		}
		return nil
	})
}

// releaseInventory returns every item's drums at most once per order; the
// inventory_released_at guard makes a second call a no-op.
func (s *service) releaseInventory(ctx context.Context, tx *gorm.DB, repo Repository, order *models.Order) error {
	flipped, err := repo.MarkInventoryReleased(ctx, order.ID, time.Now())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark inventory released")
	}
	if !flipped {
		return nil
	}
	date := models.DateKey(order.DeliveryAt)
	for _, item := range order.Items {
		if err := s.inventory.Release(ctx, tx, item.VendorID, date, item.Size, item.Qty); err != nil {
			return err
		}
	}
	return nil
}
