package booking

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/darzi-doorstep/darzi-backend/internal/cart"
	"github.com/darzi-doorstep/darzi-backend/internal/catalog"
	"github.com/darzi-doorstep/darzi-backend/internal/orders"
	"github.com/darzi-doorstep/darzi-backend/pkg/config"
	"github.com/darzi-doorstep/darzi-backend/pkg/db"
	"github.com/darzi-doorstep/darzi-backend/pkg/db/dbtest"
	"github.com/darzi-doorstep/darzi-backend/pkg/db/models"
	"github.com/darzi-doorstep/darzi-backend/pkg/enums"
	pkgerrors "github.com/darzi-doorstep/darzi-backend/pkg/errors"
	"github.com/darzi-doorstep/darzi-backend/pkg/logger"
	"github.com/darzi-doorstep/darzi-backend/pkg/outbox"
	"github.com/darzi-doorstep/darzi-backend/pkg/outbox/payloads"
	redisclient "github.com/darzi-doorstep/darzi-backend/pkg/redis"
	"github.com/darzi-doorstep/darzi-backend/pkg/types"
)

type memKV struct{ data map[string]string }

func (m *memKV) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.data[key] = fmt.Sprint(value)
	return nil
}

func (m *memKV) Get(_ context.Context, key string) (string, error) {
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return "", redisclient.Nil
}

func (m *memKV) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *memKV) DeviceCartKey(deviceID string) string { return "dz:device_cart:" + deviceID }

type fixture struct {
	conn   *gorm.DB
	carts  cart.Service
	svc    Service
	outbox *outbox.Repository
	kv     *memKV
}

// fixed at 2026-03-10 08:00 IST
var testNow = time.Date(2026, 3, 10, 2, 30, 0, 0, time.UTC)

func newTestCalendar(t *testing.T) *Calendar {
	t.Helper()
	cal, err := NewCalendar(config.BookingConfig{SlotStart: "09:00", SlotEnd: "20:00", HorizonDays: 30, Timezone: "Asia/Kolkata"})
	require.NoError(t, err)
	cal.now = func() time.Time { return testNow }
	return cal
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := dbtest.Open(t)
	cat := catalog.Default()
	kv := &memKV{data: map[string]string{}}
	device, err := cart.NewDeviceStore(kv, time.Hour)
	require.NoError(t, err)
	carts, err := cart.NewService(cart.ServiceParams{Catalog: cat, Device: device, Server: cart.NewRepository(conn)})
	require.NoError(t, err)

	outboxRepo := outbox.NewRepository(conn)
	emitter := outbox.NewService(outboxRepo, logger.Nop())
	tx := db.NewFromConn(conn)
	orderSvc, err := orders.NewService(orders.NewRepository(conn), tx, emitter)
	require.NoError(t, err)

	svc, err := NewService(ServiceParams{
		Repo:     NewRepository(conn),
		Tx:       tx,
		Outbox:   emitter,
		Carts:    carts,
		Orders:   orderSvc,
		Catalog:  cat,
		Calendar: newTestCalendar(t),
	})
	require.NoError(t, err)
	return &fixture{conn: conn, carts: carts, svc: svc, outbox: outboxRepo, kv: kv}
}

func validRequest() Request {
	return Request{
		Source:        enums.BookingSourceSelection,
		Services:      []cart.Selection{{ServiceID: "male-shirt", Quantity: 2}, {ServiceID: "male-jeans", Quantity: 1}},
		Name:          " Asha Patil ",
		Phone:         "+91 98765 43210",
		Email:         "asha@example.com",
		Address:       types.PickupAddress{Line1: "Flat 4, Shanti Apartments", Landmark: "Near Metro", City: "Pune", State: "Maharashtra", Postcode: "411001"},
		PickupDate:    "2026-03-12",
		PickupTime:    "10:30",
		PaymentMethod: enums.PaymentMethodCashOnDelivery,
	}
}

func relayEvent(t *testing.T, f *fixture, bookingID uuid.UUID) payloads.BookingSubmittedEvent {
	t.Helper()
	rows, err := f.outbox.FindByAggregate(context.Background(), bookingID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, enums.EventBookingSubmitted, rows[0].EventType)
	var envelope outbox.PayloadEnvelope
	require.NoError(t, json.Unmarshal(rows[0].Payload, &envelope))
	var event payloads.BookingSubmittedEvent
	require.NoError(t, json.Unmarshal(envelope.Data, &event))
	return event
}

func TestSubmitSelectionAsGuest(t *testing.T) {
	f := newFixture(t)
	conf, err := f.svc.Submit(context.Background(), cart.Owner{DeviceID: "device-1"}, validRequest())
	require.NoError(t, err)

	assert.Equal(t, "Shirt — Formal/Casual x2 (₹198); Jeans x1 (₹91)", conf.Services)
	assert.Equal(t, types.Rupees(289), conf.TotalAmount)
	assert.Equal(t, "₹289", conf.TotalLabel)
	assert.Nil(t, conf.OrderID, "guests get no order")

	var stored models.Booking
	require.NoError(t, f.conn.First(&stored, "id = ?", conf.BookingID).Error)
	assert.Equal(t, "9876543210", stored.ContactPhone)
	assert.Equal(t, "Asha Patil", stored.ContactName)
	assert.Equal(t, enums.RelayStatusPending, stored.RelayStatus)
	assert.Len(t, stored.Lines, 2)

	event := relayEvent(t, f, conf.BookingID)
	assert.Equal(t, conf.Services, event.Services)
	assert.Equal(t, "₹289", event.TotalAmount)
	assert.Equal(t, "2026-03-12", event.PickupDate)
	assert.Equal(t, "10:30", event.PickupTime)
	fields := event.FormFields()
	assert.Equal(t, "asha@example.com", fields["_replyto"])
	assert.Equal(t, "Near Metro", fields["landmark"])
}

func TestSubmitFromCartPlacesOrderAndClearsCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	owner := cart.Owner{DeviceID: "device-1", UserID: &userID}

	_, err := f.carts.Add(ctx, owner, "male-jeans", "")
	require.NoError(t, err)
	_, err = f.carts.Add(ctx, owner, "male-jeans", "Waist")
	require.NoError(t, err)

	req := validRequest()
	req.Source = enums.BookingSourceCart
	req.Services = nil
	conf, err := f.svc.Submit(ctx, owner, req)
	require.NoError(t, err)

	assert.Equal(t, "Jeans x2 (₹182)", conf.Services)
	require.NotNil(t, conf.OrderID)
	assert.NotEmpty(t, conf.OrderNumber)

	var order models.Order
	require.NoError(t, f.conn.Preload("Items").First(&order, "id = ?", *conf.OrderID).Error)
	assert.Equal(t, enums.OrderStatusPending, order.Status)
	assert.Equal(t, conf.BookingID, *order.BookingID)
	require.Len(t, order.Items, 1)
	assert.Equal(t, 2, order.Items[0].Quantity)
	assert.Equal(t, "182", order.TotalAmount.String())

	event := relayEvent(t, f, conf.BookingID)
	assert.Equal(t, conf.OrderNumber, event.OrderNumber)
	assert.Equal(t, "₹182", event.TotalAmount)

	after, err := f.carts.Get(ctx, owner)
	require.NoError(t, err)
	assert.True(t, after.IsEmpty())
	assert.Empty(t, f.kv.data)
}

func TestSubmitEmptyCartIsRejected(t *testing.T) {
	f := newFixture(t)
	req := validRequest()
	req.Source = enums.BookingSourceCart
	_, err := f.svc.Submit(context.Background(), cart.Owner{DeviceID: "device-1"}, req)
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

func TestSubmitReportsEveryInvalidField(t *testing.T) {
	f := newFixture(t)
	req := Request{
		Source:        enums.BookingSourceSelection,
		Phone:         "12345",
		Email:         "not-an-email",
		Address:       types.PickupAddress{Line1: "x", City: "Pune", State: "MH", Postcode: "4110"},
		PickupDate:    "2026-03-09",
		PickupTime:    "10:15",
		PaymentMethod: "cheque",
	}
	_, err := f.svc.Submit(context.Background(), cart.Owner{DeviceID: "device-1"}, req)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())

	details, ok := typed.Details().(map[string]string)
	require.True(t, ok)
	for _, field := range []string{"name", "phone", "email", "address.postcode", "pickup_date", "pickup_time", "payment_method", "services"} {
		assert.Contains(t, details, field)
	}

	var count int64
	require.NoError(t, f.conn.Model(&models.Booking{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestSubmitRejectsUnknownSelection(t *testing.T) {
	f := newFixture(t)
	req := validRequest()
	req.Services = []cart.Selection{{ServiceID: "male-cape", Quantity: 1}}
	_, err := f.svc.Submit(context.Background(), cart.Owner{DeviceID: "device-1"}, req)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

func TestSubmitRejectsOversizedQuantity(t *testing.T) {
	f := newFixture(t)
	req := validRequest()
	req.Services = []cart.Selection{{ServiceID: "male-jeans", Quantity: 101454258718105626}}
	_, err := f.svc.Submit(context.Background(), cart.Owner{DeviceID: "device-1"}, req)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
	details, ok := typed.Details().(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "must be at most 99", details["services[0].quantity"])

	var count int64
	require.NoError(t, f.conn.Model(&models.Booking{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCalendarWindow(t *testing.T) {
	cal := newTestCalendar(t)
	schedule := cal.Schedule()
	require.Len(t, schedule.Slots, 22)
	assert.Equal(t, Slot{Value: "09:00", Label: "9:00 AM"}, schedule.Slots[0])
	assert.Equal(t, "19:30", schedule.Slots[len(schedule.Slots)-1].Value)
	assert.Equal(t, "2026-03-10", schedule.EarliestDate)
	assert.Equal(t, "2026-04-09", schedule.LatestDate)

	_, msg := cal.ParseDate("2026-03-10")
	assert.Empty(t, msg)
	_, msg = cal.ParseDate("2026-04-10")
	assert.NotEmpty(t, msg)
	_, msg = cal.ParseDate("10/03/2026")
	assert.NotEmpty(t, msg)
	assert.False(t, cal.HasSlot("20:00"))
	assert.True(t, cal.HasSlot(" 14:30 "))
}

func TestSummarize(t *testing.T) {
	got := Summarize([]cart.Item{
		{Name: "Shirt — Formal/Casual", UnitPrice: 99, Quantity: 2},
		{Name: "Blouse Stitching", UnitPrice: 183, Quantity: 1},
	})
	assert.Equal(t, "Shirt — Formal/Casual x2 (₹198); Blouse Stitching x1 (₹183)", got)
	assert.Empty(t, Summarize(nil))
}
