package payments

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sorbeteslab/sorbetes-backend/pkg/enums"
)

// SubmitPaymentInput carries one settlement submission against an order slot.
type SubmitPaymentInput struct {
	OrderID    uuid.UUID
	CustomerID uuid.UUID
	Slot       enums.PaymentSlot
	Channel    enums.PaymentMethod
	Amount     decimal.Decimal
	ProofRef   *string
}

// ReviewDecision is the vendor's verdict on a manual QR proof.
type ReviewDecision string

const (
	ReviewDecisionConfirm ReviewDecision = "confirm"
	ReviewDecisionReject  ReviewDecision = "reject"
)

// ReviewInput captures a manual-QR attempt review.
type ReviewInput struct {
	OrderID   uuid.UUID
	AttemptID uuid.UUID
	VendorID  uuid.UUID
	Decision  ReviewDecision
}

// ChannelOption reports whether one payment channel is offered for an order.
type ChannelOption struct {
	Channel   enums.PaymentMethod `json:"channel"`
	Available bool                `json:"available"`
	Reason    string              `json:"reason,omitempty"`
}

// DuplicateDetails points the client at the attempt already occupying the
// slot.
type DuplicateDetails struct {
	AttemptID uuid.UUID                  `json:"attempt_id"`
	Status    enums.PaymentAttemptStatus `json:"status"`
	Amount    decimal.Decimal            `json:"amount"`
}
