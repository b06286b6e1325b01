package validators

import (
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "github.com/darzi-doorstep/darzi-backend/pkg/errors"
)

type sample struct {
	Phone string `json:"phone" validate:"required"`
	OTP   string `json:"otp" validate:"required,numeric"`
}

func TestDecodeJSONBodyValidates(t *testing.T) {
	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"phone":"9876543210","otp":"12ab"}`))
	var dest sample
	err := DecodeJSONBody(r, &dest)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, ok := typed.Details().(map[string]string)
	if !ok || details["otp"] != "must contain digits only" {
		t.Fatalf("unexpected details %v", typed.Details())
	}
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"phone":"9876543210","otp":"1234","extra":1}`))
	var dest sample
	if err := DecodeJSONBody(r, &dest); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDecodeLenientJSONBodyAcceptsUnknownFields(t *testing.T) {
	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"phone":"9876543210","otp":"1234","extra":1}`))
	var dest sample
	if err := DecodeLenientJSONBody(r, &dest); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if dest.Phone != "9876543210" {
		t.Fatalf("unexpected phone %q", dest.Phone)
	}
}

func TestParseQueryInt(t *testing.T) {
	r := httptest.NewRequest("GET", "/?limit=500&bad=x", nil)
	if _, err := ParseQueryInt(r, "limit", 20, 1, 100); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected out of range error, got %v", err)
	}
	if _, err := ParseQueryInt(r, "bad", 20, 1, 100); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected numeric error, got %v", err)
	}
	if v, err := ParseQueryInt(r, "missing", 20, 1, 100); err != nil || v != 20 {
		t.Fatalf("expected default, got %d %v", v, err)
	}
}

func TestParseUUIDParam(t *testing.T) {
	if _, err := ParseUUIDParam("nope", "orderID"); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := ParseUUIDParam("6f1c2a43-94f5-4c38-9a4c-2f0c1f7d1c11", "orderID"); err != nil {
		t.Fatalf("parse: %v", err)
	}
}

func TestSanitizeString(t *testing.T) {
	if got := SanitizeString("  shirts  ", 3); got != "shi" {
		t.Fatalf("unexpected %q", got)
	}
	if got := SanitizeString("kurta\x00\tpyjama", 0); got != "kurtapyjama" {
		t.Fatalf("control characters should be dropped, got %q", got)
	}
	// "दर्जी" is 15 bytes; a 4 byte cap must not split the second rune.
	if got := SanitizeString("दर्जी", 4); got != "द" {
		t.Fatalf("unexpected rune-safe cut %q", got)
	}
}
