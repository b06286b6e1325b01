package booking

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/darzi-doorstep/darzi-backend/internal/cart"
	"github.com/darzi-doorstep/darzi-backend/internal/catalog"
	"github.com/darzi-doorstep/darzi-backend/internal/orders"
	"github.com/darzi-doorstep/darzi-backend/pkg/db/models"
	"github.com/darzi-doorstep/darzi-backend/pkg/enums"
	pkgerrors "github.com/darzi-doorstep/darzi-backend/pkg/errors"
	"github.com/darzi-doorstep/darzi-backend/pkg/logger"
	"github.com/darzi-doorstep/darzi-backend/pkg/outbox"
	"github.com/darzi-doorstep/darzi-backend/pkg/outbox/payloads"
	"github.com/darzi-doorstep/darzi-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type cartReader interface {
	Get(ctx context.Context, owner cart.Owner) (*cart.Cart, error)
	Clear(ctx context.Context, owner cart.Owner) (*cart.Cart, error)
}

type orderPlacer interface {
	Place(ctx context.Context, tx *gorm.DB, input orders.PlaceInput) (*models.Order, error)
}

// Confirmation is returned to the customer once a booking is stored.
type Confirmation struct {
	BookingID     uuid.UUID           `json:"booking_id"`
	OrderID       *uuid.UUID          `json:"order_id,omitempty"`
	OrderNumber   string              `json:"order_number,omitempty"`
	Items         []cart.Item         `json:"items"`
	Services      string              `json:"services"`
	TotalAmount   types.Rupees        `json:"total_amount"`
	TotalLabel    string              `json:"total_label"`
	PickupDate    string              `json:"pickup_date"`
	PickupTime    string              `json:"pickup_time"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	Message       string              `json:"message"`
}

// Service validates, prices and records bookings.
type Service interface {
	Schedule() Schedule
	Submit(ctx context.Context, owner cart.Owner, req Request) (*Confirmation, error)
}

// ServiceParams groups booking dependencies.
type ServiceParams struct {
	Repo     Repository
	Tx       txRunner
	Outbox   outboxPublisher
	Carts    cartReader
	Orders   orderPlacer
	Catalog  *catalog.Catalog
	Calendar *Calendar
	Logger   *logger.Logger
}

type service struct {
	repo     Repository
	tx       txRunner
	outbox   outboxPublisher
	carts    cartReader
	orders   orderPlacer
	catalog  *catalog.Catalog
	calendar *Calendar
	logg     *logger.Logger
}

// NewService builds the booking service.
func NewService(p ServiceParams) (Service, error) {
	switch {
	case p.Repo == nil:
		return nil, fmt.Errorf("booking repository required")
	case p.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case p.Outbox == nil:
		return nil, fmt.Errorf("outbox publisher required")
	case p.Carts == nil:
		return nil, fmt.Errorf("cart service required")
	case p.Orders == nil:
		return nil, fmt.Errorf("order placer required")
	case p.Catalog == nil:
		return nil, fmt.Errorf("catalog required")
	case p.Calendar == nil:
		return nil, fmt.Errorf("booking calendar required")
	}
	logg := p.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		repo:     p.Repo,
		tx:       p.Tx,
		outbox:   p.Outbox,
		carts:    p.Carts,
		orders:   p.Orders,
		catalog:  p.Catalog,
		calendar: p.Calendar,
		logg:     logg,
	}, nil
}

func (s *service) Schedule() Schedule {
	return s.calendar.Schedule()
}

// Submit stores the booking and its booking_submitted event atomically, placing an
// order for signed-in customers. A cart-sourced booking clears the cart afterwards.
func (s *service) Submit(ctx context.Context, owner cart.Owner, req Request) (*Confirmation, error) {
	in, fieldErrs := req.check(s.calendar)
	if fieldErrs != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "booking is incomplete").WithDetails(fieldErrs)
	}

	lines, err := s.lines(ctx, owner, in)
	if err != nil {
		return nil, err
	}

	summary := Summarize(lines.Items)
	total := lines.TotalAmount()
	booking := &models.Booking{
		ID:              uuid.New(),
		UserID:          owner.UserID,
		DeviceID:        owner.DeviceID,
		Source:          in.Source,
		ContactName:     in.Name,
		ContactPhone:    in.phone,
		ContactEmail:    optional(in.Email),
		Address:         in.Address,
		PickupDate:      in.pickupDate,
		PickupSlot:      in.PickupTime,
		PaymentMethod:   in.PaymentMethod,
		Notes:           optional(in.Notes),
		ServicesSummary: summary,
		TotalAmount:     total.Decimal(),
		Lines:           bookingLines(lines.Items),
		RelayStatus:     enums.RelayStatusPending,
	}

	var order *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if owner.UserID != nil {
			placed, err := s.orders.Place(ctx, tx, orders.PlaceInput{
				UserID:        *owner.UserID,
				BookingID:     booking.ID,
				Lines:         orderLines(lines.Items),
				PaymentMethod: in.PaymentMethod,
				PickupAddress: in.Address,
				PickupDate:    in.pickupDate,
				PickupSlot:    in.PickupTime,
				ContactName:   in.Name,
				ContactPhone:  in.phone,
				Notes:         booking.Notes,
			})
			if err != nil {
				return err
			}
			order = placed
			booking.OrderID = &placed.ID
		}

		if err := s.repo.WithTx(tx).Create(ctx, booking); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store booking")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventBookingSubmitted,
			AggregateType: enums.AggregateBooking,
			AggregateID:   booking.ID,
			Actor:         &outbox.ActorRef{UserID: owner.UserID, DeviceID: owner.DeviceID},
			Data:          s.relayPayload(booking, order, total),
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue booking relay")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if in.Source == enums.BookingSourceCart {
		if _, err := s.carts.Clear(ctx, owner); err != nil {
			s.logg.Error(ctx, "clear cart after booking failed", err)
		}
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"booking_id": booking.ID.String(),
		"source":     in.Source,
		"phone":      logger.MaskPhone(in.phone),
	})
	s.logg.Info(logCtx, "booking submitted")

	conf := &Confirmation{
		BookingID:     booking.ID,
		OrderID:       booking.OrderID,
		Items:         lines.Items,
		Services:      summary,
		TotalAmount:   total,
		TotalLabel:    total.String(),
		PickupDate:    in.pickupDate.Format(dateLayout),
		PickupTime:    in.PickupTime,
		PaymentMethod: in.PaymentMethod,
		Message:       "Booking received. We will call you to confirm the pickup.",
	}
	if order != nil {
		conf.OrderNumber = order.OrderNumber
	}
	return conf, nil
}

func (s *service) lines(ctx context.Context, owner cart.Owner, in *checked) (*cart.Cart, error) {
	if in.Source == enums.BookingSourceSelection {
		return cart.FromSelection(s.catalog, in.Services)
	}
	current, err := s.carts.Get(ctx, owner)
	if err != nil {
		return nil, err
	}
	if current.IsEmpty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty").
			WithDetails(map[string]string{"services": "add at least one service"})
	}
	return current, nil
}

func (s *service) relayPayload(b *models.Booking, order *models.Order, total types.Rupees) payloads.BookingSubmittedEvent {
	event := payloads.BookingSubmittedEvent{
		BookingID:     b.ID,
		OrderID:       b.OrderID,
		Name:          b.ContactName,
		Phone:         b.ContactPhone,
		Address:       b.Address.Street(),
		Landmark:      b.Address.Landmark,
		City:          b.Address.City,
		State:         b.Address.State,
		Postcode:      b.Address.Postcode,
		Services:      b.ServicesSummary,
		TotalAmount:   total.String(),
		PickupDate:    b.PickupDate.Format(dateLayout),
		PickupTime:    b.PickupSlot,
		PaymentMethod: string(b.PaymentMethod),
	}
	if b.ContactEmail != nil {
		event.Email = *b.ContactEmail
	}
	if b.Notes != nil {
		event.Notes = *b.Notes
	}
	if order != nil {
		event.OrderNumber = order.OrderNumber
	}
	return event
}

func bookingLines(items []cart.Item) []models.BookingLine {
	out := make([]models.BookingLine, 0, len(items))
	for _, item := range items {
		out = append(out, models.BookingLine{
			ServiceID: item.ServiceID,
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
		})
	}
	return out
}

func orderLines(items []cart.Item) []orders.Line {
	out := make([]orders.Line, 0, len(items))
	for _, item := range items {
		out = append(out, orders.Line{
			ServiceID: item.ServiceID,
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
		})
	}
	return out
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
