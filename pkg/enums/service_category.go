package enums

import "fmt"

// ServiceCategory groups catalog services by garment wearer.
type ServiceCategory string

const (
	ServiceCategoryMale   ServiceCategory = "male"
	ServiceCategoryFemale ServiceCategory = "female"
	ServiceCategoryOther  ServiceCategory = "other"
)

var validServiceCategories = []ServiceCategory{
	ServiceCategoryMale,
	ServiceCategoryFemale,
	ServiceCategoryOther,
}

// String implements fmt.Stringer.
func (v ServiceCategory) String() string {
	return string(v)
}

// IsValid reports whether the value is a known ServiceCategory.
func (v ServiceCategory) IsValid() bool {
	for _, candidate := range validServiceCategories {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseServiceCategory converts raw input into a ServiceCategory.
func ParseServiceCategory(value string) (ServiceCategory, error) {
	for _, candidate := range validServiceCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid service category %q", value)
}
