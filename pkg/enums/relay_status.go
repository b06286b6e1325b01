package enums

import "fmt"

// RelayStatus tracks delivery of a booking to the form relay.
type RelayStatus string

const (
	RelayStatusPending   RelayStatus = "pending"
	RelayStatusDelivered RelayStatus = "delivered"
	RelayStatusFailed    RelayStatus = "failed"
)

var validRelayStatuses = []RelayStatus{
	RelayStatusPending,
	RelayStatusDelivered,
	RelayStatusFailed,
}

// String implements fmt.Stringer.
func (v RelayStatus) String() string {
	return string(v)
}

// IsValid reports whether the value is a known RelayStatus.
func (v RelayStatus) IsValid() bool {
	for _, candidate := range validRelayStatuses {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseRelayStatus converts raw input into a RelayStatus.
func ParseRelayStatus(value string) (RelayStatus, error) {
	for _, candidate := range validRelayStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid relay status %q", value)
}
