package enums

import "fmt"

// OrderStatus maps to the order_status enum in Postgres.
type OrderStatus string

const (
	OrderStatusPending         OrderStatus = "pending"
	OrderStatusConfirmed       OrderStatus = "confirmed"
	OrderStatusPickupScheduled OrderStatus = "pickup_scheduled"
	OrderStatusPickedUp        OrderStatus = "picked_up"
	OrderStatusInProgress      OrderStatus = "in_progress"
	OrderStatusCompleted       OrderStatus = "completed"
	OrderStatusShipped         OrderStatus = "shipped"
	OrderStatusDelivered       OrderStatus = "delivered"
	OrderStatusCancelled       OrderStatus = "cancelled"
)

// OrderStatusProgression is the forward sequence an order walks through. Cancelled
// sits outside the sequence.
var OrderStatusProgression = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusPickupScheduled,
	OrderStatusPickedUp,
	OrderStatusInProgress,
	OrderStatusCompleted,
	OrderStatusShipped,
	OrderStatusDelivered,
}

var orderStatusLabels = map[OrderStatus]string{
	OrderStatusPending:         "Order Placed",
	OrderStatusConfirmed:       "Confirmed",
	OrderStatusPickupScheduled: "Pickup Scheduled",
	OrderStatusPickedUp:        "Picked Up",
	OrderStatusInProgress:      "In Progress",
	OrderStatusCompleted:       "Completed",
	OrderStatusShipped:         "Out for Delivery",
	OrderStatusDelivered:       "Delivered",
	OrderStatusCancelled:       "Cancelled",
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// Label is the customer-facing name of the status.
func (s OrderStatus) Label() string {
	if label, ok := orderStatusLabels[s]; ok {
		return label
	}
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	if s == OrderStatusCancelled {
		return true
	}
	return s.Position() >= 0
}

// Position returns the index of the status in the forward progression, or -1.
func (s OrderStatus) Position() int {
	for i, candidate := range OrderStatusProgression {
		if candidate == s {
			return i
		}
	}
	return -1
}

// IsTerminal reports whether no further transitions are allowed.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// CanTransitionTo allows forward moves along the progression and cancellation of
// any non-terminal order.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if !s.IsValid() || !next.IsValid() || s.IsTerminal() {
		return false
	}
	if next == OrderStatusCancelled {
		return true
	}
	return next.Position() > s.Position()
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	candidate := OrderStatus(value)
	if candidate.IsValid() {
		return candidate, nil
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
