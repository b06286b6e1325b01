package registry

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/darzi-doorstep/darzi-backend/pkg/db/models"
	"github.com/darzi-doorstep/darzi-backend/pkg/enums"
	"github.com/darzi-doorstep/darzi-backend/pkg/outbox"
	"github.com/darzi-doorstep/darzi-backend/pkg/outbox/payloads"
)

func TestEventRegistryResolveBooking(t *testing.T) {
	reg := NewEventRegistry()
	bookingID := uuid.New()

	event := models.OutboxEvent{
		EventType:     enums.EventBookingSubmitted,
		AggregateType: enums.AggregateBooking,
		AggregateID:   bookingID,
		Payload: mustEnvelope(t, mustMarshal(t, payloads.BookingSubmittedEvent{
			BookingID:   bookingID,
			Services:    "Jeans x2 (₹182)",
			TotalAmount: "₹182",
		})),
	}

	resolved, err := reg.Resolve(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.Descriptor.Channel != ChannelFormRelay {
		t.Fatalf("unexpected channel %q", resolved.Descriptor.Channel)
	}
	payload, ok := resolved.Payload.(*payloads.BookingSubmittedEvent)
	if !ok {
		t.Fatalf("unexpected payload type %T", resolved.Payload)
	}
	if payload.BookingID != bookingID || payload.TotalAmount != "₹182" {
		t.Fatalf("payload mismatch %+v", payload)
	}
	if resolved.Envelope.EventID == "" || resolved.Envelope.OccurredAt.IsZero() {
		t.Fatalf("envelope incomplete %+v", resolved.Envelope)
	}
}

func TestEventRegistryResolveRejectsBadRows(t *testing.T) {
	reg := NewEventRegistry()
	valid := mustEnvelope(t, mustMarshal(t, payloads.OrderStatusChangedEvent{OrderID: uuid.New()}))

	cases := map[string]models.OutboxEvent{
		"unknown type": {EventType: "mystery", AggregateType: enums.AggregateOrder, AggregateID: uuid.New(), Payload: valid},
		"aggregate mismatch": {
			EventType: enums.EventOrderStatusChanged, AggregateType: enums.AggregateBooking, AggregateID: uuid.New(), Payload: valid,
		},
		"missing aggregate id": {EventType: enums.EventOrderStatusChanged, AggregateType: enums.AggregateOrder, Payload: valid},
		"null payload": {
			EventType: enums.EventOrderStatusChanged, AggregateType: enums.AggregateOrder, AggregateID: uuid.New(), Payload: mustEnvelope(t, json.RawMessage("null")),
		},
		"future envelope version": {
			EventType: enums.EventOrderStatusChanged, AggregateType: enums.AggregateOrder, AggregateID: uuid.New(),
			Payload: mustMarshal(t, outbox.PayloadEnvelope{Version: outbox.CurrentVersion + 1, EventID: uuid.NewString(), Data: json.RawMessage(`{}`)}),
		},
		"broken envelope": {
			EventType: enums.EventOrderStatusChanged, AggregateType: enums.AggregateOrder, AggregateID: uuid.New(), Payload: json.RawMessage("{"),
		},
	}
	for name, event := range cases {
		_, err := reg.Resolve(event)
		var nonRetry NonRetryableError
		if !errors.As(err, &nonRetry) {
			t.Fatalf("%s: expected non-retryable error, got %v", name, err)
		}
	}
}

func mustMarshal(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

func mustEnvelope(t *testing.T, data json.RawMessage) json.RawMessage {
	t.Helper()
	return mustMarshal(t, outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now(),
		Data:       data,
	})
}
