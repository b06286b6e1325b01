package types

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Rupees is a whole-rupee amount. Catalog prices carry no paise.
type Rupees int64

// Decimal converts the amount for numeric(12,2) columns.
func (r Rupees) Decimal() decimal.Decimal {
	return decimal.NewFromInt(int64(r))
}

// RupeesFromDecimal rounds a stored numeric amount back to whole rupees.
func RupeesFromDecimal(d decimal.Decimal) Rupees {
	return Rupees(d.Round(0).IntPart())
}

// String renders the amount with the rupee sign and Indian digit grouping,
// e.g. ₹1,23,456.
func (r Rupees) String() string {
	value := int64(r)
	sign := ""
	if value < 0 {
		sign = "-"
		value = -value
	}
	return sign + "₹" + groupIndian(strconv.FormatInt(value, 10))
}

func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]
	var groups []string
	for len(head) > 2 {
		groups = append([]string{head[len(head)-2:]}, groups...)
		head = head[:len(head)-2]
	}
	if head != "" {
		groups = append([]string{head}, groups...)
	}
	return strings.Join(groups, ",") + "," + tail
}
