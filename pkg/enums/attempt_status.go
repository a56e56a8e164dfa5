package enums

import "fmt"

// PaymentAttemptStatus is the review state of a single payment attempt.
type PaymentAttemptStatus string

const (
	AttemptStatusPendingVerification PaymentAttemptStatus = "pending_verification"
	AttemptStatusConfirmed           PaymentAttemptStatus = "confirmed"
	AttemptStatusRejected            PaymentAttemptStatus = "rejected"
)

var validPaymentAttemptStatuses = []PaymentAttemptStatus{
	AttemptStatusPendingVerification,
	AttemptStatusConfirmed,
	AttemptStatusRejected,
}

// String implements fmt.Stringer.
func (p PaymentAttemptStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentAttemptStatus.
func (p PaymentAttemptStatus) IsValid() bool {
	for _, candidate := range validPaymentAttemptStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentAttemptStatus converts raw input into a PaymentAttemptStatus.
func ParsePaymentAttemptStatus(value string) (PaymentAttemptStatus, error) {
	for _, candidate := range validPaymentAttemptStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment attempt status %q", value)
}
