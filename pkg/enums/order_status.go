package enums

import "fmt"

// OrderStatus is the coarse lifecycle of a drum reservation order.
type OrderStatus string

const (
	OrderStatusActive   OrderStatus = "active"
	OrderStatusCanceled OrderStatus = "canceled"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusActive,
	OrderStatusCanceled,
}

// String implements fmt.Stringer.
func (o OrderStatus) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderStatus.
func (o OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}

// AcceptanceStatus is written by the vendor order-review workflow. The
// settlement engine reads it but never overwrites it.
type AcceptanceStatus string

const (
	AcceptancePending  AcceptanceStatus = "pending"
	AcceptanceAccepted AcceptanceStatus = "accepted"
	AcceptanceRejected AcceptanceStatus = "rejected"
)

var validAcceptanceStatuses = []AcceptanceStatus{
	AcceptancePending,
	AcceptanceAccepted,
	AcceptanceRejected,
}

// String implements fmt.Stringer.
func (a AcceptanceStatus) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AcceptanceStatus.
func (a AcceptanceStatus) IsValid() bool {
	for _, candidate := range validAcceptanceStatuses {
		if candidate == a {
			return true
		}
	}
	return false
}
