package enums

import "fmt"

// DrumSize is the unit of ice-cream inventory sold.
type DrumSize string

const (
	DrumSizeSmall  DrumSize = "small"
	DrumSizeMedium DrumSize = "medium"
	DrumSizeLarge  DrumSize = "large"
)

var validDrumSizes = []DrumSize{
	DrumSizeSmall,
	DrumSizeMedium,
	DrumSizeLarge,
}

// DrumSizes returns the known sizes in display order.
func DrumSizes() []DrumSize {
	return append([]DrumSize(nil), validDrumSizes...)
}

// String implements fmt.Stringer.
func (d DrumSize) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DrumSize.
func (d DrumSize) IsValid() bool {
	for _, candidate := range validDrumSizes {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDrumSize converts raw input into a DrumSize.
func ParseDrumSize(value string) (DrumSize, error) {
	for _, candidate := range validDrumSizes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid drum size %q", value)
}
