package enums

import "fmt"

// PaymentSlot names the settlement event an attempt belongs to. An order has
// at most two: the first (or only) payment and the remaining-balance payment.
type PaymentSlot string

const (
	SlotFirstPayment     PaymentSlot = "first_payment"
	SlotRemainingBalance PaymentSlot = "remaining_balance"
)

var validPaymentSlots = []PaymentSlot{
	SlotFirstPayment,
	SlotRemainingBalance,
}

// String implements fmt.Stringer.
func (p PaymentSlot) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentSlot.
func (p PaymentSlot) IsValid() bool {
	for _, candidate := range validPaymentSlots {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentSlot converts raw input into a PaymentSlot.
func ParsePaymentSlot(value string) (PaymentSlot, error) {
	for _, candidate := range validPaymentSlots {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment slot %q", value)
}
