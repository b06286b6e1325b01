package enums

import "fmt"

// OTPAction is the operation requested from the OTP endpoint.
type OTPAction string

const (
	OTPActionSend   OTPAction = "send"
	OTPActionVerify OTPAction = "verify"
)

var validOTPActions = []OTPAction{
	OTPActionSend,
	OTPActionVerify,
}

// String implements fmt.Stringer.
func (v OTPAction) String() string {
	return string(v)
}

// IsValid reports whether the value is a known OTPAction.
func (v OTPAction) IsValid() bool {
	for _, candidate := range validOTPActions {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseOTPAction converts raw input into a OTPAction.
func ParseOTPAction(value string) (OTPAction, error) {
	for _, candidate := range validOTPActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid otp action %q", value)
}
