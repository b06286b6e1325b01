package booking

import (
	"fmt"
	"strings"

	"github.com/darzi-doorstep/darzi-backend/internal/cart"
)

const summarySeparator = "; "

// Summarize flattens lines into the relay's services field, e.g.
// "Jeans x2 (₹182); Saree Fall & Pico x1 (₹99)".
func Summarize(items []cart.Item) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		parts = append(parts, fmt.Sprintf("%s x%d (%s)", item.Name, item.Quantity, item.Subtotal()))
	}
	return strings.Join(parts, summarySeparator)
}
