package types

import (
	"regexp"
	"strings"
)

var postcodePattern = regexp.MustCompile(`^[1-9][0-9]{5}$`)

// PickupAddress is where the tailor collects garments. It is stored as a JSON
// document on bookings and orders.
type PickupAddress struct {
	Line1    string   `json:"line1"`
	Line2    string   `json:"line2,omitempty"`
	Landmark string   `json:"landmark,omitempty"`
	Locality string   `json:"locality,omitempty"`
	City     string   `json:"city"`
	State    string   `json:"state"`
	Postcode string   `json:"postcode"`
	Lat      *float64 `json:"lat,omitempty"`
	Lng      *float64 `json:"lng,omitempty"`
}

// Normalize trims every text field.
func (a PickupAddress) Normalize() PickupAddress {
	a.Line1 = strings.TrimSpace(a.Line1)
	a.Line2 = strings.TrimSpace(a.Line2)
	a.Landmark = strings.TrimSpace(a.Landmark)
	a.Locality = strings.TrimSpace(a.Locality)
	a.City = strings.TrimSpace(a.City)
	a.State = strings.TrimSpace(a.State)
	a.Postcode = strings.TrimSpace(a.Postcode)
	return a
}

// FieldErrors returns a field -> message map of missing or malformed parts.
func (a PickupAddress) FieldErrors() map[string]string {
	errs := map[string]string{}
	if a.Line1 == "" {
		errs["address.line1"] = "address is required"
	}
	if a.City == "" {
		errs["address.city"] = "city is required"
	}
	if a.State == "" {
		errs["address.state"] = "state is required"
	}
	if !postcodePattern.MatchString(a.Postcode) {
		errs["address.postcode"] = "postcode must be 6 digits"
	}
	return errs
}

// Street joins the street-level parts of the address. City, state and
// postcode travel as separate fields.
func (a PickupAddress) Street() string {
	parts := make([]string, 0, 3)
	for _, part := range []string{a.Line1, a.Line2, a.Locality} {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, ", ")
}
