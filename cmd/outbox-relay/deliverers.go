package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/darzi-doorstep/darzi-backend/pkg/formrelay"
	"github.com/darzi-doorstep/darzi-backend/pkg/outbox/payloads"
	"github.com/darzi-doorstep/darzi-backend/pkg/outbox/registry"
	"github.com/darzi-doorstep/darzi-backend/pkg/sms"
)

type formSubmitter interface {
	Submit(ctx context.Context, fields map[string]string) error
}

// formRelayDeliverer posts booking_submitted payloads to the hosted form endpoint.
type formRelayDeliverer struct {
	client formSubmitter
}

func (d formRelayDeliverer) Deliver(ctx context.Context, resolved *registry.ResolvedEvent) error {
	event, ok := resolved.Payload.(*payloads.BookingSubmittedEvent)
	if !ok || event == nil {
		return registry.NewNonRetryableError(fmt.Errorf("unexpected payload %T for form relay", resolved.Payload))
	}
	if err := d.client.Submit(ctx, event.FormFields()); err != nil {
		if errors.Is(err, formrelay.ErrRejected) {
			return registry.NewNonRetryableError(err)
		}
		return err
	}
	return nil
}

// smsDeliverer texts the customer when staff move an order forward.
type smsDeliverer struct {
	sender sms.Sender
}

func (d smsDeliverer) Deliver(ctx context.Context, resolved *registry.ResolvedEvent) error {
	event, ok := resolved.Payload.(*payloads.OrderStatusChangedEvent)
	if !ok || event == nil {
		return registry.NewNonRetryableError(fmt.Errorf("unexpected payload %T for sms", resolved.Payload))
	}
	if strings.TrimSpace(event.ContactPhone) == "" {
		return registry.NewNonRetryableError(errors.New("order has no contact phone"))
	}
	return d.sender.Send(ctx, event.ContactPhone, orderStatusMessage(event))
}

func orderStatusMessage(event *payloads.OrderStatusChangedEvent) string {
	return fmt.Sprintf("Darzi Doorstep: your order %s is now %s.", event.OrderNumber, event.To.Label())
}
