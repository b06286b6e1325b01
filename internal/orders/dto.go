package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/darzi-doorstep/darzi-backend/pkg/db/models"
	"github.com/darzi-doorstep/darzi-backend/pkg/enums"
	"github.com/darzi-doorstep/darzi-backend/pkg/types"
)

const pickupDateLayout = "2006-01-02"

// OrderSummary is one row of the customer's order list.
type OrderSummary struct {
	ID          uuid.UUID         `json:"id"`
	OrderNumber string            `json:"order_number"`
	Status      enums.OrderStatus `json:"status"`
	StatusLabel string            `json:"status_label"`
	TotalAmount types.Rupees      `json:"total_amount"`
	TotalItems  int               `json:"total_items"`
	PickupDate  string            `json:"pickup_date"`
	PickupSlot  string            `json:"pickup_slot"`
	CreatedAt   time.Time         `json:"created_at"`
}

// OrderList wraps a page of summaries plus the next page cursor.
type OrderList struct {
	Orders     []OrderSummary `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// OrderItem is the price snapshot of one booked service.
type OrderItem struct {
	ServiceID   string       `json:"service_id"`
	ServiceName string       `json:"service_name"`
	Quantity    int          `json:"quantity"`
	UnitPrice   types.Rupees `json:"unit_price"`
	LineTotal   types.Rupees `json:"line_total"`
}

// OrderDetail is the full order view with its status timeline.
type OrderDetail struct {
	OrderSummary
	Items              []OrderItem         `json:"items"`
	Timeline           []TimelineStep      `json:"timeline"`
	PaymentMethod      enums.PaymentMethod `json:"payment_method"`
	PickupAddress      types.PickupAddress `json:"pickup_address"`
	ContactName        string              `json:"contact_name"`
	ContactPhone       string              `json:"contact_phone"`
	Notes              *string             `json:"notes,omitempty"`
	ExpectedDeliveryAt *time.Time          `json:"expected_delivery_at,omitempty"`
	DeliveredAt        *time.Time          `json:"delivered_at,omitempty"`
	CancelledAt        *time.Time          `json:"cancelled_at,omitempty"`
}

// Line is a priced booking line handed to Place.
type Line struct {
	ServiceID string
	Name      string
	UnitPrice types.Rupees
	Quantity  int
}

// PlaceInput carries a confirmed booking into an order.
type PlaceInput struct {
	UserID             uuid.UUID
	BookingID          uuid.UUID
	Lines              []Line
	PaymentMethod      enums.PaymentMethod
	PickupAddress      types.PickupAddress
	PickupDate         time.Time
	PickupSlot         string
	ContactName        string
	ContactPhone       string
	Notes              *string
	ExpectedDeliveryAt *time.Time
}

// StatusUpdateInput moves an order along the status vocabulary.
type StatusUpdateInput struct {
	OrderID     uuid.UUID
	Status      enums.OrderStatus
	ActorUserID uuid.UUID
	ActorRole   enums.UserRole
}

func summaryFromModel(o models.Order) OrderSummary {
	totalItems := 0
	for _, item := range o.Items {
		totalItems += item.Quantity
	}
	return OrderSummary{
		ID:          o.ID,
		OrderNumber: o.OrderNumber,
		Status:      o.Status,
		StatusLabel: o.Status.Label(),
		TotalAmount: types.RupeesFromDecimal(o.TotalAmount),
		TotalItems:  totalItems,
		PickupDate:  o.PickupDate.Format(pickupDateLayout),
		PickupSlot:  o.PickupSlot,
		CreatedAt:   o.CreatedAt,
	}
}

func detailFromModel(o models.Order) *OrderDetail {
	items := make([]OrderItem, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, OrderItem{
			ServiceID:   item.ServiceID,
			ServiceName: item.ServiceName,
			Quantity:    item.Quantity,
			UnitPrice:   types.RupeesFromDecimal(item.UnitPrice),
			LineTotal:   types.RupeesFromDecimal(item.LineTotal),
		})
	}
	return &OrderDetail{
		OrderSummary:       summaryFromModel(o),
		Items:              items,
		Timeline:           BuildTimeline(o.Status),
		PaymentMethod:      o.PaymentMethod,
		PickupAddress:      o.PickupAddress,
		ContactName:        o.ContactName,
		ContactPhone:       o.ContactPhone,
		Notes:              o.Notes,
		ExpectedDeliveryAt: o.ExpectedDeliveryAt,
		DeliveredAt:        o.DeliveredAt,
		CancelledAt:        o.CancelledAt,
	}
}
