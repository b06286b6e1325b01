package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/darzi-doorstep/darzi-backend/pkg/enums"
	"github.com/darzi-doorstep/darzi-backend/pkg/types"
)

// BookingLine is the priced selection captured on a booking.
type BookingLine struct {
	ServiceID string       `json:"service_id"`
	Name      string       `json:"name"`
	UnitPrice types.Rupees `json:"unit_price"`
	Quantity  int          `json:"quantity"`
}

// Booking is a submitted pickup request, relayed to the hosted form endpoint.
type Booking struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	UserID          *uuid.UUID          `gorm:"column:user_id;type:uuid;index"`
	DeviceID        string              `gorm:"column:device_id;not null;default:''"`
	Source          enums.BookingSource `gorm:"column:source;type:text;not null"`
	ContactName     string              `gorm:"column:contact_name;not null"`
	ContactPhone    string              `gorm:"column:contact_phone;not null"`
	ContactEmail    *string             `gorm:"column:contact_email"`
	Address         types.PickupAddress `gorm:"column:address;type:jsonb;serializer:json;not null"`
	PickupDate      time.Time           `gorm:"column:pickup_date;type:date;not null"`
	PickupSlot      string              `gorm:"column:pickup_slot;not null"`
	PaymentMethod   enums.PaymentMethod `gorm:"column:payment_method;type:text;not null"`
	Notes           *string             `gorm:"column:notes"`
	ServicesSummary string              `gorm:"column:services_summary;not null"`
	TotalAmount     decimal.Decimal     `gorm:"column:total_amount;type:numeric(12,2);not null"`
	Lines           []BookingLine       `gorm:"column:lines;type:jsonb;serializer:json;not null"`
	OrderID         *uuid.UUID          `gorm:"column:order_id;type:uuid"`
	RelayStatus     enums.RelayStatus   `gorm:"column:relay_status;type:text;not null;default:'pending'"`
	RelayedAt       *time.Time          `gorm:"column:relayed_at"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
}

func (b *Booking) BeforeCreate(*gorm.DB) error {
	ensureID(&b.ID)
	return nil
}
