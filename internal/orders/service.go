package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/darzi-doorstep/darzi-backend/pkg/db/models"
	"github.com/darzi-doorstep/darzi-backend/pkg/enums"
	pkgerrors "github.com/darzi-doorstep/darzi-backend/pkg/errors"
	"github.com/darzi-doorstep/darzi-backend/pkg/outbox"
	"github.com/darzi-doorstep/darzi-backend/pkg/outbox/payloads"
	"github.com/darzi-doorstep/darzi-backend/pkg/pagination"
	"github.com/darzi-doorstep/darzi-backend/pkg/types"
)

const orderNumberPrefix = "DZ"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service exposes order views, order placement and staff status updates.
type Service interface {
	List(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error)
	Detail(ctx context.Context, userID, orderID uuid.UUID) (*OrderDetail, error)
	Place(ctx context.Context, tx *gorm.DB, input PlaceInput) (*models.Order, error)
	UpdateStatus(ctx context.Context, input StatusUpdateInput) (*OrderDetail, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
	now    func() time.Time
}

// NewService builds the orders service.
func NewService(repo Repository, tx txRunner, outbox outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:   repo,
		tx:     tx,
		outbox: outbox,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, next, err := s.repo.ListByUser(ctx, userID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	list := &OrderList{Orders: make([]OrderSummary, 0, len(rows)), NextCursor: next}
	for _, row := range rows {
		list.Orders = append(list.Orders, summaryFromModel(row))
	}
	return list, nil
}

// Detail returns an order owned by userID. Orders of other users read as not found.
func (s *service) Detail(ctx context.Context, userID, orderID uuid.UUID) (*OrderDetail, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	order, err := s.load(ctx, s.repo, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return detailFromModel(*order), nil
}

// Place inserts an order and its items inside the caller's transaction.
func (s *service) Place(ctx context.Context, tx *gorm.DB, input PlaceInput) (*models.Order, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if len(input.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order must contain at least one service")
	}
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}

	var total types.Rupees
	items := make([]models.OrderItem, 0, len(input.Lines))
	for _, line := range input.Lines {
		if line.Quantity < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
		}
		lineTotal := line.UnitPrice * types.Rupees(line.Quantity)
		total += lineTotal
		items = append(items, models.OrderItem{
			ServiceID:   line.ServiceID,
			ServiceName: line.Name,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice.Decimal(),
			LineTotal:   lineTotal.Decimal(),
		})
	}

	now := s.now()
	order := &models.Order{
		ID:                 uuid.New(),
		OrderNumber:        NewOrderNumber(now),
		UserID:             input.UserID,
		Status:             enums.OrderStatusPending,
		TotalAmount:        total.Decimal(),
		PaymentMethod:      input.PaymentMethod,
		PickupAddress:      input.PickupAddress,
		PickupDate:         input.PickupDate,
		PickupSlot:         input.PickupSlot,
		ContactName:        input.ContactName,
		ContactPhone:       input.ContactPhone,
		Notes:              input.Notes,
		ExpectedDeliveryAt: input.ExpectedDeliveryAt,
		Items:              items,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if input.BookingID != uuid.Nil {
		bookingID := input.BookingID
		order.BookingID = &bookingID
	}
	if err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert order")
	}
	return order, nil
}

// UpdateStatus moves an order forward or cancels it, emitting order_status_changed.
// Setting the current status again is a no-op.
func (s *service) UpdateStatus(ctx context.Context, input StatusUpdateInput) (*OrderDetail, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.ActorRole != enums.UserRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "staff role required")
	}
	if !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status").
			WithDetails(map[string]string{"status": "unknown status"})
	}

	var result *OrderDetail
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.load(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if order.Status == input.Status {
			result = detailFromModel(*order)
			return nil
		}
		if !order.Status.CanTransitionTo(input.Status) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("cannot move order from %s to %s", order.Status, input.Status))
		}

		now := s.now()
		updates := map[string]any{"status": input.Status, "updated_at": now}
		switch input.Status {
		case enums.OrderStatusDelivered:
			updates["delivered_at"] = now
			order.DeliveredAt = &now
		case enums.OrderStatusCancelled:
			updates["cancelled_at"] = now
			order.CancelledAt = &now
		}
		applied, err := repo.UpdateStatus(ctx, order.ID, order.Status, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if !applied {
			return pkgerrors.New(pkgerrors.CodeConflict, "order changed concurrently")
		}

		previous := order.Status
		order.Status = input.Status
		order.UpdatedAt = now
		actorID := input.ActorUserID
		event := outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: &actorID, Role: string(input.ActorRole)},
			Data: payloads.OrderStatusChangedEvent{
				OrderID:      order.ID,
				OrderNumber:  order.OrderNumber,
				From:         previous,
				To:           input.Status,
				ContactPhone: order.ContactPhone,
				ChangedAt:    now,
			},
			OccurredAt: now,
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order status event")
		}
		result = detailFromModel(*order)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) load(ctx context.Context, repo Repository, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

// NewOrderNumber renders a human-friendly number such as DZ-20261018-4F1C9A.
func NewOrderNumber(at time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("%s-%s-%s", orderNumberPrefix, at.Format("20060102"), suffix)
}
