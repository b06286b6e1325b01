package orders

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/darzi-doorstep/darzi-backend/pkg/db"
	"github.com/darzi-doorstep/darzi-backend/pkg/db/dbtest"
	"github.com/darzi-doorstep/darzi-backend/pkg/db/models"
	"github.com/darzi-doorstep/darzi-backend/pkg/enums"
	pkgerrors "github.com/darzi-doorstep/darzi-backend/pkg/errors"
	"github.com/darzi-doorstep/darzi-backend/pkg/logger"
	"github.com/darzi-doorstep/darzi-backend/pkg/outbox"
	"github.com/darzi-doorstep/darzi-backend/pkg/outbox/payloads"
	"github.com/darzi-doorstep/darzi-backend/pkg/pagination"
	"github.com/darzi-doorstep/darzi-backend/pkg/types"
)

type fixture struct {
	conn   *gorm.DB
	svc    *service
	outbox *outbox.Repository
	clock  time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := dbtest.Open(t)
	outboxRepo := outbox.NewRepository(conn)
	svc, err := NewService(NewRepository(conn), db.NewFromConn(conn), outbox.NewService(outboxRepo, logger.Nop()))
	require.NoError(t, err)
	f := &fixture{conn: conn, svc: svc.(*service), outbox: outboxRepo, clock: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	f.svc.now = func() time.Time {
		f.clock = f.clock.Add(time.Minute)
		return f.clock
	}
	return f
}

func (f *fixture) place(t *testing.T, userID uuid.UUID) *models.Order {
	t.Helper()
	var order *models.Order
	err := f.conn.Transaction(func(tx *gorm.DB) error {
		var err error
		order, err = f.svc.Place(context.Background(), tx, PlaceInput{
			UserID:        userID,
			BookingID:     uuid.New(),
			PaymentMethod: enums.PaymentMethodUPI,
			PickupAddress: types.PickupAddress{Line1: "12 MG Road", City: "Pune", State: "Maharashtra", Postcode: "411001"},
			PickupDate:    time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC),
			PickupSlot:    "10:30",
			ContactName:   "Asha",
			ContactPhone:  "9876543210",
			Lines: []Line{
				{ServiceID: "male-shirt", Name: "Shirt", UnitPrice: 99, Quantity: 2},
				{ServiceID: "female-blouse", Name: "Blouse Stitching", UnitPrice: 183, Quantity: 1},
			},
		})
		return err
	})
	require.NoError(t, err)
	return order
}

func TestPlaceStoresOrderWithItems(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	order := f.place(t, userID)

	assert.Regexp(t, `^DZ-20260301-[0-9A-F]{6}$`, order.OrderNumber)

	detail, err := f.svc.Detail(context.Background(), userID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPending, detail.Status)
	assert.Equal(t, types.Rupees(381), detail.TotalAmount)
	assert.Equal(t, 3, detail.TotalItems)
	require.Len(t, detail.Items, 2)
	for _, item := range detail.Items {
		if item.ServiceID == "male-shirt" {
			assert.Equal(t, types.Rupees(198), item.LineTotal)
		}
	}
	assert.Equal(t, "2026-03-05", detail.PickupDate)
	assert.Equal(t, StepCurrent, detail.Timeline[0].State)
}

func TestPlaceValidatesInput(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Place(context.Background(), f.conn, PlaceInput{UserID: uuid.New(), PaymentMethod: enums.PaymentMethodCard})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	_, err = f.svc.Place(context.Background(), f.conn, PlaceInput{
		UserID:        uuid.New(),
		PaymentMethod: "cheque",
		Lines:         []Line{{ServiceID: "x", UnitPrice: 1, Quantity: 1}},
	})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

func TestDetailHidesOtherUsersOrders(t *testing.T) {
	f := newFixture(t)
	order := f.place(t, uuid.New())

	_, err := f.svc.Detail(context.Background(), uuid.New(), order.ID)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))

	_, err = f.svc.Detail(context.Background(), uuid.New(), uuid.New())
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
}

func TestListPaginatesNewestFirst(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	first := f.place(t, userID)
	second := f.place(t, userID)
	third := f.place(t, userID)
	f.place(t, uuid.New())

	page, err := f.svc.List(context.Background(), userID, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Orders, 2)
	assert.Equal(t, third.ID, page.Orders[0].ID)
	assert.Equal(t, second.ID, page.Orders[1].ID)
	require.NotEmpty(t, page.NextCursor)

	next, err := f.svc.List(context.Background(), userID, pagination.Params{Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, next.Orders, 1)
	assert.Equal(t, first.ID, next.Orders[0].ID)
	assert.Empty(t, next.NextCursor)

	_, err = f.svc.List(context.Background(), userID, pagination.Params{Cursor: "%%%"})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

func TestUpdateStatusEmitsEvent(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	order := f.place(t, userID)
	admin := uuid.New()

	detail, err := f.svc.UpdateStatus(context.Background(), StatusUpdateInput{
		OrderID: order.ID, Status: enums.OrderStatusPickupScheduled, ActorUserID: admin, ActorRole: enums.UserRoleAdmin,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPickupScheduled, detail.Status)
	assert.Equal(t, StepCompleted, detail.Timeline[1].State)
	assert.Equal(t, StepCurrent, detail.Timeline[2].State)

	events, err := f.outbox.FindByAggregate(context.Background(), order.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, enums.EventOrderStatusChanged, events[0].EventType)

	var envelope outbox.PayloadEnvelope
	require.NoError(t, json.Unmarshal(events[0].Payload, &envelope))
	var payload payloads.OrderStatusChangedEvent
	require.NoError(t, json.Unmarshal(envelope.Data, &payload))
	assert.Equal(t, enums.OrderStatusPending, payload.From)
	assert.Equal(t, enums.OrderStatusPickupScheduled, payload.To)
	assert.Equal(t, "9876543210", payload.ContactPhone)

	// repeating the same status is a no-op
	_, err = f.svc.UpdateStatus(context.Background(), StatusUpdateInput{
		OrderID: order.ID, Status: enums.OrderStatusPickupScheduled, ActorUserID: admin, ActorRole: enums.UserRoleAdmin,
	})
	require.NoError(t, err)
	events, err = f.outbox.FindByAggregate(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestUpdateStatusRejectsBackwardsAndTerminal(t *testing.T) {
	f := newFixture(t)
	order := f.place(t, uuid.New())
	admin := uuid.New()
	update := func(status enums.OrderStatus, role enums.UserRole) error {
		_, err := f.svc.UpdateStatus(context.Background(), StatusUpdateInput{
			OrderID: order.ID, Status: status, ActorUserID: admin, ActorRole: role,
		})
		return err
	}

	assert.True(t, pkgerrors.Is(update(enums.OrderStatusConfirmed, enums.UserRoleCustomer), pkgerrors.CodeForbidden))
	assert.True(t, pkgerrors.Is(update("lost", enums.UserRoleAdmin), pkgerrors.CodeValidation))

	require.NoError(t, update(enums.OrderStatusInProgress, enums.UserRoleAdmin))
	assert.True(t, pkgerrors.Is(update(enums.OrderStatusConfirmed, enums.UserRoleAdmin), pkgerrors.CodeStateConflict))

	require.NoError(t, update(enums.OrderStatusCancelled, enums.UserRoleAdmin))
	assert.True(t, pkgerrors.Is(update(enums.OrderStatusDelivered, enums.UserRoleAdmin), pkgerrors.CodeStateConflict))

	stored, err := NewRepository(f.conn).FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, stored.Status)
	assert.NotNil(t, stored.CancelledAt)
}

func TestBuildTimeline(t *testing.T) {
	steps := BuildTimeline(enums.OrderStatusPickedUp)
	require.Len(t, steps, len(enums.OrderStatusProgression))
	assert.Equal(t, StepCompleted, steps[2].State)
	assert.Equal(t, StepCurrent, steps[3].State)
	assert.Equal(t, StepUpcoming, steps[4].State)
	assert.Equal(t, "Picked Up", steps[3].Label)

	delivered := BuildTimeline(enums.OrderStatusDelivered)
	for _, step := range delivered {
		assert.Equal(t, StepCompleted, step.State)
	}

	cancelled := BuildTimeline(enums.OrderStatusCancelled)
	require.Len(t, cancelled, 2)
	assert.Equal(t, enums.OrderStatusCancelled, cancelled[1].Status)
	assert.Equal(t, StepCurrent, cancelled[1].State)
}
