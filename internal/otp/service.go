package otp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/darzi-doorstep/darzi-backend/pkg/config"
	"github.com/darzi-doorstep/darzi-backend/pkg/db/models"
	pkgerrors "github.com/darzi-doorstep/darzi-backend/pkg/errors"
	"github.com/darzi-doorstep/darzi-backend/pkg/logger"
	"github.com/darzi-doorstep/darzi-backend/pkg/security"
	"github.com/darzi-doorstep/darzi-backend/pkg/sms"
	"github.com/darzi-doorstep/darzi-backend/pkg/types"
)

var (
	// ErrSendFailed covers every send failure, including rate limiting.
	ErrSendFailed = errors.New("could not send verification code")
	// ErrVerifyFailed covers wrong, expired, used and exhausted codes alike.
	ErrVerifyFailed = errors.New("invalid or expired verification code")
)

type limiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

type codeStore interface {
	Replace(ctx context.Context, phone, codeHash string, expiresAt, now time.Time) error
	FindByPhone(ctx context.Context, phone string) (*models.OTPCode, error)
	ClaimAttempt(ctx context.Context, id uuid.UUID, codeHash string, maxAttempts int, now time.Time) (bool, error)
	MarkUsed(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
}

// Service sends and verifies one-time phone codes.
type Service interface {
	Send(ctx context.Context, phone, clientIP string) error
	Verify(ctx context.Context, phone, code string) (string, error)
}

// ServiceParams groups the OTP dependencies.
type ServiceParams struct {
	Store     codeStore
	Sender    sms.Sender
	Limiter   limiter
	OTP       config.OTPConfig
	RateLimit config.AuthRateLimitConfig
	Password  config.PasswordConfig
	Logger    *logger.Logger
}

type service struct {
	store     codeStore
	sender    sms.Sender
	limiter   limiter
	cfg       config.OTPConfig
	rateLimit config.AuthRateLimitConfig
	password  config.PasswordConfig
	logg      *logger.Logger
	now       func() time.Time
	newCode   func(length int) (string, error)
}

func NewService(p ServiceParams) (Service, error) {
	if p.Store == nil {
		return nil, fmt.Errorf("otp store required")
	}
	if p.Sender == nil {
		return nil, fmt.Errorf("sms sender required")
	}
	if p.OTP.TTL <= 0 {
		return nil, fmt.Errorf("otp ttl must be positive")
	}
	if p.OTP.Length <= 0 {
		p.OTP.Length = 6
	}
	if p.OTP.MaxAttempts <= 0 {
		p.OTP.MaxAttempts = 5
	}
	logg := p.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		store:     p.Store,
		sender:    p.Sender,
		limiter:   p.Limiter,
		cfg:       p.OTP,
		rateLimit: p.RateLimit,
		password:  p.Password,
		logg:      logg,
		now:       func() time.Time { return time.Now().UTC() },
		newCode:   security.NumericCode,
	}, nil
}

// Send issues a fresh code for phone, invalidating any earlier one, and texts it.
func (s *service) Send(ctx context.Context, rawPhone, clientIP string) error {
	phone, ok := types.NormalizeIndianMobile(rawPhone)
	if !ok {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, ErrSendFailed, "invalid phone number")
	}
	logCtx := s.logg.WithField(ctx, "phone", logger.MaskPhone(phone))

	if err := s.allow(logCtx, phone, clientIP); err != nil {
		return err
	}

	code, err := s.newCode(s.cfg.Length)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate otp")
	}
	digest, err := security.HashSecret(code, s.password)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash otp")
	}
	now := s.now()
	if err := s.store.Replace(ctx, phone, digest, now.Add(s.cfg.TTL), now); err != nil {
		s.logg.Error(logCtx, "store otp failed", err)
		return pkgerrors.Wrap(pkgerrors.CodeDependency, ErrSendFailed, "store otp")
	}
	if err := s.sender.Send(ctx, phone, s.message(code)); err != nil {
		s.logg.Error(logCtx, "deliver otp failed", err)
		return pkgerrors.Wrap(pkgerrors.CodeDependency, ErrSendFailed, "deliver otp")
	}
	s.logg.Info(logCtx, "otp sent")
	return nil
}

// Verify consumes the live code for phone and returns the normalized phone.
func (s *service) Verify(ctx context.Context, rawPhone, code string) (string, error) {
	phone, ok := types.NormalizeIndianMobile(rawPhone)
	code = strings.TrimSpace(code)
	if !ok || code == "" {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, ErrVerifyFailed, "phone and code required")
	}
	logCtx := s.logg.WithField(ctx, "phone", logger.MaskPhone(phone))

	row, err := s.store.FindByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", pkgerrors.Wrap(pkgerrors.CodeUnauthorized, ErrVerifyFailed, "no code for phone")
		}
		s.logg.Error(logCtx, "load otp failed", err)
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, ErrVerifyFailed, "load otp")
	}

	now := s.now()
	if row.UsedAt != nil || !now.Before(row.ExpiresAt) || row.Attempts >= s.cfg.MaxAttempts {
		return "", pkgerrors.Wrap(pkgerrors.CodeUnauthorized, ErrVerifyFailed, "code not usable")
	}

	claimed, err := s.store.ClaimAttempt(ctx, row.ID, row.CodeHash, s.cfg.MaxAttempts, now)
	if err != nil {
		s.logg.Error(logCtx, "claim otp attempt failed", err)
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, ErrVerifyFailed, "claim otp attempt")
	}
	if !claimed {
		return "", pkgerrors.Wrap(pkgerrors.CodeUnauthorized, ErrVerifyFailed, "attempts exhausted")
	}

	if match, err := security.VerifySecret(code, row.CodeHash); err != nil || !match {
		return "", pkgerrors.Wrap(pkgerrors.CodeUnauthorized, ErrVerifyFailed, "code mismatch")
	}

	consumed, err := s.store.MarkUsed(ctx, row.ID, now)
	if err != nil {
		s.logg.Error(logCtx, "consume otp failed", err)
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, ErrVerifyFailed, "consume otp")
	}
	if !consumed {
		return "", pkgerrors.Wrap(pkgerrors.CodeUnauthorized, ErrVerifyFailed, "code already used")
	}
	s.logg.Info(logCtx, "otp verified")
	return phone, nil
}

func (s *service) allow(ctx context.Context, phone, clientIP string) error {
	if s.limiter == nil || s.rateLimit.OTPSendWindow <= 0 {
		return nil
	}
	checks := []struct {
		scope string
		limit int
	}{
		{scope: "otp:phone:" + phone, limit: s.rateLimit.OTPSendPhoneLimit},
		{scope: "otp:ip:" + strings.TrimSpace(clientIP), limit: s.rateLimit.OTPSendIPLimit},
	}
	for _, check := range checks {
		if check.limit <= 0 || strings.HasSuffix(check.scope, ":") {
			continue
		}
		allowed, count, err := s.limiter.FixedWindowAllow(ctx, check.scope, int64(check.limit), s.rateLimit.OTPSendWindow)
		if err != nil {
			s.logg.Error(ctx, "otp rate limit check failed", err)
			return pkgerrors.Wrap(pkgerrors.CodeDependency, ErrSendFailed, "rate limit")
		}
		if !allowed {
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"scope": check.scope, "attempts": count}), "otp.rate_limit.blocked")
			return pkgerrors.Wrap(pkgerrors.CodeRateLimit, ErrSendFailed, "rate limit exceeded")
		}
	}
	return nil
}

func (s *service) message(code string) string {
	tmpl := s.cfg.MessageTmpl
	if !strings.Contains(tmpl, "%s") {
		tmpl = "Your verification code is %s."
	}
	return fmt.Sprintf(tmpl, code)
}
