package types

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestRupeesString(t *testing.T) {
	cases := map[Rupees]string{
		0:       "₹0",
		91:      "₹91",
		182:     "₹182",
		1299:    "₹1,299",
		123456:  "₹1,23,456",
		1234567: "₹12,34,567",
		-450:    "-₹450",
	}
	for amount, want := range cases {
		if got := amount.String(); got != want {
			t.Fatalf("%d: expected %q got %q", int64(amount), want, got)
		}
	}
}

func TestRupeesDecimalRoundTrip(t *testing.T) {
	amount := Rupees(381)
	if amount.Decimal().StringFixed(2) != "381.00" {
		t.Fatalf("unexpected decimal %s", amount.Decimal().StringFixed(2))
	}
	if got := RupeesFromDecimal(decimal.RequireFromString("381.40")); got != 381 {
		t.Fatalf("unexpected rounding %d", got)
	}
}

func TestPickupAddressFieldErrors(t *testing.T) {
	addr := PickupAddress{Line1: " 12 MG Road ", City: "Pune", State: "Maharashtra", Postcode: "411001"}.Normalize()
	if errs := addr.FieldErrors(); len(errs) != 0 {
		t.Fatalf("expected valid address, got %v", errs)
	}
	if addr.Street() != "12 MG Road" {
		t.Fatalf("unexpected street %q", addr.Street())
	}
	full := PickupAddress{Line1: "Flat 4B", Line2: "Sunrise Apts", Landmark: "near park", Locality: "Baner"}
	if full.Street() != "Flat 4B, Sunrise Apts, Baner" {
		t.Fatalf("unexpected street %q", full.Street())
	}

	bad := PickupAddress{Postcode: "01234"}
	errs := bad.FieldErrors()
	for _, key := range []string{"address.line1", "address.city", "address.state", "address.postcode"} {
		if _, ok := errs[key]; !ok {
			t.Fatalf("expected error for %s in %v", key, errs)
		}
	}
}

func TestNormalizeIndianMobile(t *testing.T) {
	valid := map[string]string{
		"9876543210":       "9876543210",
		"+91 98765 43210":  "9876543210",
		"91-9876543210":    "9876543210",
		"09876543210":      "9876543210",
		" (987) 654-3210 ": "9876543210",
	}
	for raw, want := range valid {
		got, ok := NormalizeIndianMobile(raw)
		if !ok || got != want {
			t.Fatalf("%q: expected %q, got %q ok=%v", raw, want, got, ok)
		}
	}
	for _, raw := range []string{"", "12345", "5876543210", "98765432101", "98765x3210", "+1 9876543210"} {
		if got, ok := NormalizeIndianMobile(raw); ok {
			t.Fatalf("%q: expected rejection, got %q", raw, got)
		}
	}
}
