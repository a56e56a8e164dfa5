package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sorbeteslab/sorbetes-backend/pkg/enums"
)

// PaymentAttempt is one settlement event submitted against an order slot.
// At most one attempt per slot may be pending_verification or confirmed.
type PaymentAttempt struct {
	ID       uuid.UUID                  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID  uuid.UUID                  `gorm:"column:order_id;type:uuid;not null;index"`
	Slot     enums.PaymentSlot          `gorm:"column:slot;type:payment_slot;not null"`
	Channel  enums.PaymentMethod        `gorm:"column:channel;type:payment_method;not null"`
	Amount   decimal.Decimal            `gorm:"column:amount;type:numeric(12,2);not null"`
	Status   enums.PaymentAttemptStatus `gorm:"column:status;type:payment_attempt_status;not null;default:'pending_verification'"`

	// ProofRef points at the uploaded transfer screenshot; required for
	// gcash_manual_qr, absent otherwise. The image itself lives in external
	// storage.
	ProofRef *string `gorm:"column:proof_ref"`

	// GatewayRef is the instant-gateway transaction reference used for
	// confirmation dedupe.
	GatewayRef *string `gorm:"column:gateway_ref;uniqueIndex"`

	// AppliedAt marks that the settlement state machine already credited this
	// attempt; re-application is a no-op.
	AppliedAt *time.Time `gorm:"column:applied_at"`

	ReviewedAt *time.Time `gorm:"column:reviewed_at"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// Live reports whether the attempt occupies its slot (blocks a new submission).
func (a PaymentAttempt) Live() bool {
	return a.Status == enums.AttemptStatusPendingVerification ||
		a.Status == enums.AttemptStatusConfirmed
}
