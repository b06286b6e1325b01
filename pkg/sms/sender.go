package sms

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/darzi-doorstep/darzi-backend/pkg/config"
	pkgerrors "github.com/darzi-doorstep/darzi-backend/pkg/errors"
	"github.com/darzi-doorstep/darzi-backend/pkg/logger"
)

const defaultTimeout = 10 * time.Second

// Sender delivers a text message to a phone number.
type Sender interface {
	Send(ctx context.Context, to, body string) error
}

type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// TwilioSender sends messages through the Twilio Messages API.
type TwilioSender struct {
	api         messageCreator
	from        string
	countryCode string
	timeout     time.Duration
	logg        *logger.Logger
}

// NewSender returns a Twilio sender when credentials are configured and a logging sender otherwise.
func NewSender(cfg config.SMSConfig, logg *logger.Logger) (Sender, error) {
	if !cfg.Enabled() {
		return NewLogSender(logg), nil
	}
	if strings.TrimSpace(cfg.FromNumber) == "" {
		return nil, errors.New("twilio phone number is required when sms is enabled")
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return newTwilioSender(client.Api, cfg, logg), nil
}

func newTwilioSender(api messageCreator, cfg config.SMSConfig, logg *logger.Logger) *TwilioSender {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &TwilioSender{
		api:         api,
		from:        strings.TrimSpace(cfg.FromNumber),
		countryCode: strings.TrimSpace(cfg.CountryCode),
		timeout:     timeout,
		logg:        logg,
	}
}

// Send dispatches the message and waits at most the configured timeout.
// The Twilio client has no context plumbing, so a late response is dropped.
func (s *TwilioSender) Send(ctx context.Context, to, body string) error {
	if strings.TrimSpace(body) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "message body is required")
	}
	dest := E164(s.countryCode, to)
	if dest == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "recipient is required")
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(dest)
	params.SetFrom(s.from)
	params.SetBody(body)

	type result struct {
		sid string
		err error
	}
	done := make(chan result, 1)
	go func() {
		resp, err := s.api.CreateMessage(params)
		res := result{err: err}
		if resp != nil && resp.Sid != nil {
			res.sid = *resp.Sid
		}
		done <- res
	}()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	select {
	case <-ctx.Done():
		return pkgerrors.Wrap(pkgerrors.CodeDependency, ctx.Err(), "sms send timed out")
	case res := <-done:
		if res.err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, res.err, "sms send failed")
		}
		if s.logg != nil {
			logCtx := s.logg.WithFields(ctx, map[string]any{
				"to":         logger.MaskPhone(dest),
				"message_id": res.sid,
			})
			s.logg.Info(logCtx, "sms sent")
		}
		return nil
	}
}

// LogSender writes messages to the log instead of a gateway. Used in development.
type LogSender struct {
	logg *logger.Logger
}

func NewLogSender(logg *logger.Logger) *LogSender {
	return &LogSender{logg: logg}
}

func (s *LogSender) Send(ctx context.Context, to, body string) error {
	if s.logg == nil {
		return nil
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"to":   logger.MaskPhone(to),
		"body": body,
	})
	s.logg.Warn(logCtx, "sms gateway not configured; message logged only")
	return nil
}

// E164 normalizes a local or already-prefixed number into +<country><number>.
func E164(countryCode, phone string) string {
	var digits strings.Builder
	trimmed := strings.TrimSpace(phone)
	for _, r := range trimmed {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	number := digits.String()
	if number == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, "+") {
		return "+" + number
	}
	cc := strings.TrimPrefix(strings.TrimSpace(countryCode), "+")
	if cc == "" {
		return "+" + number
	}
	number = strings.TrimLeft(number, "0")
	if len(number) > 10 && strings.HasPrefix(number, cc) {
		return "+" + number
	}
	return fmt.Sprintf("+%s%s", cc, number)
}
