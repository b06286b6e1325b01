package enums

import "fmt"

// IdentityProvider names the issuer of an identity assertion.
type IdentityProvider string

const (
	IdentityProviderPhone    IdentityProvider = "phone"
	IdentityProviderExternal IdentityProvider = "external"
)

var validIdentityProviders = []IdentityProvider{
	IdentityProviderPhone,
	IdentityProviderExternal,
}

// String implements fmt.Stringer.
func (v IdentityProvider) String() string {
	return string(v)
}

// IsValid reports whether the value is a known IdentityProvider.
func (v IdentityProvider) IsValid() bool {
	for _, candidate := range validIdentityProviders {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseIdentityProvider converts raw input into a IdentityProvider.
func ParseIdentityProvider(value string) (IdentityProvider, error) {
	for _, candidate := range validIdentityProviders {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid identity provider %q", value)
}
