package enums

import "fmt"

// BookingSource selects where booking lines come from.
type BookingSource string

const (
	BookingSourceCart      BookingSource = "cart"
	BookingSourceSelection BookingSource = "selection"
)

var validBookingSources = []BookingSource{
	BookingSourceCart,
	BookingSourceSelection,
}

// String implements fmt.Stringer.
func (v BookingSource) String() string {
	return string(v)
}

// IsValid reports whether the value is a known BookingSource.
func (v BookingSource) IsValid() bool {
	for _, candidate := range validBookingSources {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseBookingSource converts raw input into a BookingSource.
func ParseBookingSource(value string) (BookingSource, error) {
	for _, candidate := range validBookingSources {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid booking source %q", value)
}
