package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/darzi-doorstep/darzi-backend/internal/users"
	pkgAuth "github.com/darzi-doorstep/darzi-backend/pkg/auth"
	"github.com/darzi-doorstep/darzi-backend/pkg/auth/session"
	"github.com/darzi-doorstep/darzi-backend/pkg/config"
	"github.com/darzi-doorstep/darzi-backend/pkg/db"
	"github.com/darzi-doorstep/darzi-backend/pkg/db/models"
	"github.com/darzi-doorstep/darzi-backend/pkg/enums"
	pkgerrors "github.com/darzi-doorstep/darzi-backend/pkg/errors"
	"github.com/darzi-doorstep/darzi-backend/pkg/logger"
	"github.com/darzi-doorstep/darzi-backend/pkg/types"
)

const (
	invalidCredentialsMessage = "invalid credentials"
	tokenType                 = "Bearer"
	linkAttempts              = 2
)

// Service maps identity assertions onto local users and manages their sessions.
type Service interface {
	LoginWithOTP(ctx context.Context, req OTPLoginRequest) (*LoginResponse, error)
	LoginWithIdentityToken(ctx context.Context, req ExternalLoginRequest) (*LoginResponse, error)
	Refresh(ctx context.Context, req RefreshRequest) (*LoginResponse, error)
	Logout(ctx context.Context, accessID string) error
	Me(ctx context.Context, userID uuid.UUID) (*users.UserDTO, error)
}

type otpVerifier interface {
	Verify(ctx context.Context, phone, code string) (string, error)
}

type sessionManager interface {
	Start(ctx context.Context, userID uuid.UUID) (session.Session, error)
	Rotate(ctx context.Context, refreshToken string) (session.Session, error)
	Revoke(ctx context.Context, accessID string) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	Users          *users.Repository
	Tx             txRunner
	OTP            otpVerifier
	SessionManager sessionManager
	JWTConfig      config.JWTConfig
	IdentityConfig config.IdentityConfig
	Logger         *logger.Logger
}

type service struct {
	users    *users.Repository
	tx       txRunner
	otp      otpVerifier
	sessions sessionManager
	jwtCfg   config.JWTConfig
	identity config.IdentityConfig
	logg     *logger.Logger
	now      func() time.Time
}

// assertion is a verified claim that some external subject is present.
type assertion struct {
	provider enums.IdentityProvider
	subject  string
	phone    string
	email    string
	name     string
}

// NewService constructs an auth service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Users == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	if params.OTP == nil {
		return nil, fmt.Errorf("otp verifier is required")
	}
	if params.SessionManager == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		users:    params.Users,
		tx:       params.Tx,
		otp:      params.OTP,
		sessions: params.SessionManager,
		jwtCfg:   params.JWTConfig,
		identity: params.IdentityConfig,
		logg:     logg,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) LoginWithOTP(ctx context.Context, req OTPLoginRequest) (*LoginResponse, error) {
	phone, err := s.otp.Verify(ctx, req.Phone, req.OTP)
	if err != nil {
		return nil, err
	}
	user, err := s.resolve(ctx, assertion{
		provider: enums.IdentityProviderPhone,
		subject:  phone,
		phone:    phone,
	})
	if err != nil {
		return nil, err
	}
	return s.issue(ctx, user)
}

func (s *service) LoginWithIdentityToken(ctx context.Context, req ExternalLoginRequest) (*LoginResponse, error) {
	claims, err := pkgAuth.ParseIdentityToken(s.identity, strings.TrimSpace(req.Token))
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "reason", err.Error()), "identity token rejected")
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	a := assertion{
		provider: enums.IdentityProviderExternal,
		subject:  strings.TrimSpace(claims.Subject),
		email:    strings.ToLower(strings.TrimSpace(claims.Email)),
		name:     strings.TrimSpace(claims.Name),
	}
	if phone, ok := types.NormalizeIndianMobile(claims.Phone); ok {
		a.phone = phone
	}
	user, err := s.resolve(ctx, a)
	if err != nil {
		return nil, err
	}
	return s.issue(ctx, user)
}

func (s *service) Refresh(ctx context.Context, req RefreshRequest) (*LoginResponse, error) {
	next, err := s.sessions.Rotate(ctx, req.RefreshToken)
	if err != nil {
		if errors.Is(err, session.ErrInvalidRefreshToken) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rotate refresh token")
	}
	user, err := s.activeUser(ctx, next.UserID)
	if err != nil {
		_ = s.sessions.Revoke(ctx, next.AccessID)
		return nil, err
	}
	return s.respond(user, next, s.now())
}

func (s *service) Logout(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session")
	}
	if err := s.sessions.Revoke(ctx, accessID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke session")
	}
	return nil
}

func (s *service) Me(ctx context.Context, userID uuid.UUID) (*users.UserDTO, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}
	return users.FromModel(user), nil
}

// resolve returns the user linked to the assertion, creating the profile and
// link on first sight. Concurrent first logins race on the link's unique key;
// the loser re-reads the winner's link.
func (s *service) resolve(ctx context.Context, a assertion) (*models.User, error) {
	if a.subject == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	for attempt := 0; attempt < linkAttempts; attempt++ {
		link, err := s.users.FindLink(ctx, a.provider, a.subject)
		if err == nil {
			if err := s.users.TouchLink(ctx, link.ID, s.now()); err != nil {
				s.logg.Error(ctx, "touch identity link failed", err)
			}
			return s.activeUser(ctx, link.UserID)
		}
		if !db.IsNotFound(err) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup identity link")
		}

		var linked *models.User
		err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.users.WithTx(tx)
			user, err := s.profileFor(ctx, repo, a)
			if err != nil {
				return err
			}
			if _, err := repo.CreateLink(ctx, a.provider, a.subject, user.ID); err != nil {
				return err
			}
			linked = user
			return nil
		})
		if err == nil {
			s.logg.Info(s.logg.WithFields(ctx, map[string]any{
				"provider": a.provider.String(),
				"user_id":  linked.ID.String(),
			}), "identity linked")
			if !linked.IsActive {
				return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
			}
			return linked, nil
		}
		if !db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "link identity")
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeConflict, "identity link contention, retry login")
}

func (s *service) profileFor(ctx context.Context, repo *users.Repository, a assertion) (*models.User, error) {
	var phone, email *string
	if a.phone != "" {
		existing, err := repo.FindByPhone(ctx, a.phone)
		if err == nil {
			return existing, nil
		}
		if !db.IsNotFound(err) {
			return nil, err
		}
		phone = &a.phone
	}
	if a.email != "" {
		email = &a.email
	}
	return repo.Create(ctx, users.CreateUserDTO{
		Phone:    phone,
		Email:    email,
		FullName: a.name,
		Role:     enums.UserRoleCustomer,
	})
}

func (s *service) activeUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}
	if !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	return user, nil
}

func (s *service) issue(ctx context.Context, user *models.User) (*LoginResponse, error) {
	now := s.now()
	started, err := s.sessions.Start(ctx, user.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store refresh token")
	}
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update last login")
	}
	user.LastLoginAt = &now
	return s.respond(user, started, now)
}

func (s *service) respond(user *models.User, sess session.Session, now time.Time) (*LoginResponse, error) {
	accessToken, err := pkgAuth.MintAccessToken(s.jwtCfg, now, pkgAuth.AccessTokenPayload{
		UserID: user.ID,
		Role:   user.Role,
		JTI:    sess.AccessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	return &LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: sess.RefreshToken,
		TokenType:    tokenType,
		ExpiresIn:    s.jwtCfg.ExpirationMinutes * 60,
		User:         users.FromModel(user),
	}, nil
}
