package payments

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sorbeteslab/sorbetes-backend/pkg/db/models"
	"github.com/sorbeteslab/sorbetes-backend/pkg/enums"
)

type attemptRepository struct {
	db *gorm.DB
}

// NewAttemptRepository builds a payment attempt repository bound to the
// provided DB.
func NewAttemptRepository(db *gorm.DB) AttemptRepository {
	return &attemptRepository{db: db}
}

func (r *attemptRepository) WithTx(tx *gorm.DB) AttemptRepository {
	if tx == nil {
		return r
	}
	return &attemptRepository{db: tx}
}

func (r *attemptRepository) Create(ctx context.Context, attempt *models.PaymentAttempt) (*models.PaymentAttempt, error) {
	if attempt.ID == uuid.Nil {
		attempt.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(attempt).Error; err != nil {
		return nil, err
	}
	return attempt, nil
}

func (r *attemptRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.PaymentAttempt, error) {
	var attempt models.PaymentAttempt
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&attempt).Error
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

// FindLiveBySlot returns the attempt occupying the slot, nil when the slot is
// free. Rejected attempts do not occupy their slot.
func (r *attemptRepository) FindLiveBySlot(ctx context.Context, orderID uuid.UUID, slot enums.PaymentSlot) (*models.PaymentAttempt, error) {
	var attempt models.PaymentAttempt
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND slot = ? AND status IN ?", orderID, slot,
			[]enums.PaymentAttemptStatus{enums.AttemptStatusPendingVerification, enums.AttemptStatusConfirmed}).
		Order("created_at DESC").
		First(&attempt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &attempt, nil
}

func (r *attemptRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.PaymentAttemptStatus, reviewedAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.PaymentAttempt{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":      status,
			"reviewed_at": reviewedAt,
		}).Error
}

// MarkApplied flips the settlement guard at most once per attempt.
func (r *attemptRepository) MarkApplied(ctx context.Context, tx *gorm.DB, attemptID uuid.UUID, at time.Time) (bool, error) {
	db := r.db
	if tx != nil {
		db = tx
	}
	res := db.WithContext(ctx).
		Model(&models.PaymentAttempt{}).
		Where("id = ? AND applied_at IS NULL", attemptID).
		Update("applied_at", at)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

type vendorAccountRepository struct {
	db *gorm.DB
}

// NewVendorAccountRepository builds the GCash account reader.
func NewVendorAccountRepository(db *gorm.DB) VendorAccountRepository {
	return &vendorAccountRepository{db: db}
}

func (r *vendorAccountRepository) WithTx(tx *gorm.DB) VendorAccountRepository {
	if tx == nil {
		return r
	}
	return &vendorAccountRepository{db: tx}
}

// FindActiveByVendor returns nil without error when the vendor has no active
// account; absence merely removes the instant channel.
func (r *vendorAccountRepository) FindActiveByVendor(ctx context.Context, vendorID uuid.UUID) (*models.VendorGCashAccount, error) {
	var account models.VendorGCashAccount
	err := r.db.WithContext(ctx).
		Where("vendor_id = ? AND active = ?", vendorID, true).
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}
