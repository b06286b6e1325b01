package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/darzi-doorstep/darzi-backend/pkg/enums"
)

// BookingSubmittedEvent carries the flattened booking exactly as the form relay receives it.
type BookingSubmittedEvent struct {
	BookingID     uuid.UUID  `json:"booking_id"`
	OrderID       *uuid.UUID `json:"order_id,omitempty"`
	OrderNumber   string     `json:"order_number,omitempty"`
	Name          string     `json:"name"`
	Phone         string     `json:"phone"`
	Email         string     `json:"email,omitempty"`
	Address       string     `json:"address"`
	Landmark      string     `json:"landmark,omitempty"`
	City          string     `json:"city"`
	State         string     `json:"state"`
	Postcode      string     `json:"postcode"`
	Services      string     `json:"services"`
	TotalAmount   string     `json:"total_amount"`
	PickupDate    string     `json:"pickup_date"`
	PickupTime    string     `json:"pickup_time"`
	PaymentMethod string     `json:"payment_method"`
	Notes         string     `json:"notes,omitempty"`
}

// FormFields renders the submission keys posted to the form relay.
func (e BookingSubmittedEvent) FormFields() map[string]string {
	fields := map[string]string{
		"booking_id":     e.BookingID.String(),
		"order_number":   e.OrderNumber,
		"name":           e.Name,
		"phone":          e.Phone,
		"email":          e.Email,
		"address":        e.Address,
		"landmark":       e.Landmark,
		"city":           e.City,
		"state":          e.State,
		"postcode":       e.Postcode,
		"services":       e.Services,
		"total_amount":   e.TotalAmount,
		"pickup_date":    e.PickupDate,
		"pickup_time":    e.PickupTime,
		"payment_method": e.PaymentMethod,
		"notes":          e.Notes,
	}
	if e.Email != "" {
		fields["_replyto"] = e.Email
	}
	return fields
}

// OrderStatusChangedEvent is emitted when staff move an order along the status vocabulary.
type OrderStatusChangedEvent struct {
	OrderID      uuid.UUID         `json:"order_id"`
	OrderNumber  string            `json:"order_number"`
	From         enums.OrderStatus `json:"from"`
	To           enums.OrderStatus `json:"to"`
	ContactPhone string            `json:"contact_phone"`
	ChangedAt    time.Time         `json:"changed_at"`
}
