package cart

import (
	"fmt"
	"strings"

	"github.com/darzi-doorstep/darzi-backend/internal/catalog"
	"github.com/darzi-doorstep/darzi-backend/pkg/enums"
	pkgerrors "github.com/darzi-doorstep/darzi-backend/pkg/errors"
	"github.com/darzi-doorstep/darzi-backend/pkg/types"
)

// MaxQuantity caps a single line. Totals stay far from overflow and quantities
// fit the integer column of cart_items.
const MaxQuantity = 99

// Item is one cart line. A service appears at most once regardless of variant.
type Item struct {
	ServiceID string                `json:"id"`
	Name      string                `json:"name"`
	UnitPrice types.Rupees          `json:"price"`
	Quantity  int                   `json:"quantity"`
	Image     string                `json:"image"`
	Category  enums.ServiceCategory `json:"category"`
}

// Subtotal is price × quantity for the line.
func (i Item) Subtotal() types.Rupees {
	return i.UnitPrice * types.Rupees(i.Quantity)
}

// Cart is the ordered set of lines plus the last known server version.
type Cart struct {
	Items   []Item `json:"items"`
	Version int64  `json:"version"`
}

// TotalItems sums line quantities.
func (c *Cart) TotalItems() int {
	total := 0
	for _, item := range c.Items {
		total += item.Quantity
	}
	return total
}

// TotalAmount sums line subtotals.
func (c *Cart) TotalAmount() types.Rupees {
	var total types.Rupees
	for _, item := range c.Items {
		total += item.Subtotal()
	}
	return total
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.Items) == 0
}

func (c *Cart) indexOf(serviceID string) int {
	for i, item := range c.Items {
		if item.ServiceID == serviceID {
			return i
		}
	}
	return -1
}

// add increments an existing line, keeping its frozen price, or appends a new
// line priced at the service's starting price. It reports false, leaving the
// cart untouched, when the line would exceed MaxQuantity.
func (c *Cart) add(svc catalog.Service, quantity int) bool {
	if quantity < 1 {
		return false
	}
	if idx := c.indexOf(svc.ID); idx >= 0 {
		if c.Items[idx].Quantity+quantity > MaxQuantity {
			return false
		}
		c.Items[idx].Quantity += quantity
		return true
	}
	if quantity > MaxQuantity {
		return false
	}
	c.Items = append(c.Items, Item{
		ServiceID: svc.ID,
		Name:      svc.Name,
		UnitPrice: catalog.StartingPrice(svc),
		Quantity:  quantity,
		Image:     svc.Image,
		Category:  svc.Category,
	})
	return true
}

func (c *Cart) remove(serviceID string) (Item, bool) {
	idx := c.indexOf(serviceID)
	if idx < 0 {
		return Item{}, false
	}
	removed := c.Items[idx]
	c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
	return removed, true
}

func (c *Cart) setQuantity(serviceID string, quantity int) bool {
	if quantity < 1 || quantity > MaxQuantity {
		return false
	}
	idx := c.indexOf(serviceID)
	if idx < 0 {
		return false
	}
	c.Items[idx].Quantity = quantity
	return true
}

// Selection is an explicit {service, quantity} row chosen outside the cart.
type Selection struct {
	ServiceID string `json:"service_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gte=1,lte=99"`
}

// FromSelection builds a cart from explicit rows using the same line rules as
// Add: frozen starting price, duplicates collapse into one line.
func FromSelection(cat *catalog.Catalog, rows []Selection) (*Cart, error) {
	if len(rows) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "select at least one service")
	}
	out := &Cart{}
	for i, row := range rows {
		id := strings.TrimSpace(row.ServiceID)
		svc, ok := cat.Lookup(id)
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown service %q", id)).
				WithDetails(map[string]string{fmt.Sprintf("services[%d].service_id", i): "unknown service"})
		}
		if row.Quantity < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1").
				WithDetails(map[string]string{fmt.Sprintf("services[%d].quantity", i): "must be at least 1"})
		}
		if !out.add(svc, row.Quantity) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("quantity must be at most %d", MaxQuantity)).
				WithDetails(map[string]string{fmt.Sprintf("services[%d].quantity", i): fmt.Sprintf("must be at most %d", MaxQuantity)})
		}
	}
	return out, nil
}

// sanitizeItems drops lines a device document should never hold and caps the
// rest, so an old or hand-edited document cannot poison later server writes.
func sanitizeItems(items []Item) []Item {
	out := items[:0]
	for _, item := range items {
		if item.ServiceID == "" || item.Quantity < 1 {
			continue
		}
		if item.Quantity > MaxQuantity {
			item.Quantity = MaxQuantity
		}
		out = append(out, item)
	}
	return out
}
