package payments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sorbeteslab/sorbetes-backend/pkg/db/models"
	"github.com/sorbeteslab/sorbetes-backend/pkg/enums"
	"github.com/sorbeteslab/sorbetes-backend/pkg/gcash"
)

// AttemptRepository persists payment attempts and their slot occupancy.
type AttemptRepository interface {
	WithTx(tx *gorm.DB) AttemptRepository
	Create(ctx context.Context, attempt *models.PaymentAttempt) (*models.PaymentAttempt, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.PaymentAttempt, error)
	FindLiveBySlot(ctx context.Context, orderID uuid.UUID, slot enums.PaymentSlot) (*models.PaymentAttempt, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.PaymentAttemptStatus, reviewedAt time.Time) error
	MarkApplied(ctx context.Context, tx *gorm.DB, attemptID uuid.UUID, at time.Time) (bool, error)
}

// VendorAccountRepository reads the vendor GCash destinations. Presence of an
// active account is what offers the instant channel.
type VendorAccountRepository interface {
	WithTx(tx *gorm.DB) VendorAccountRepository
	FindActiveByVendor(ctx context.Context, vendorID uuid.UUID) (*models.VendorGCashAccount, error)
}

// Charger is the instant gateway boundary.
type Charger interface {
	Charge(ctx context.Context, req gcash.ChargeRequest) (*gcash.ChargeResult, error)
}
