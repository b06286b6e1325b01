package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/darzi-doorstep/darzi-backend/internal/users"
	pkgAuth "github.com/darzi-doorstep/darzi-backend/pkg/auth"
	"github.com/darzi-doorstep/darzi-backend/pkg/auth/session"
	"github.com/darzi-doorstep/darzi-backend/pkg/config"
	"github.com/darzi-doorstep/darzi-backend/pkg/db"
	"github.com/darzi-doorstep/darzi-backend/pkg/db/dbtest"
	"github.com/darzi-doorstep/darzi-backend/pkg/db/models"
	"github.com/darzi-doorstep/darzi-backend/pkg/enums"
	pkgerrors "github.com/darzi-doorstep/darzi-backend/pkg/errors"
)

var (
	testJWT = config.JWTConfig{
		Secret:            "secret",
		Issuer:            "darzi",
		ExpirationMinutes: 30,
	}
	testIdentity = config.IdentityConfig{
		SigningSecret: "idp-secret",
		Issuer:        "idp",
	}
)

type stubVerifier struct {
	phone string
	err   error
}

func (s stubVerifier) Verify(context.Context, string, string) (string, error) {
	return s.phone, s.err
}

type memSessions struct {
	byAccess map[string]session.Session
}

func newMemSessions() *memSessions {
	return &memSessions{byAccess: map[string]session.Session{}}
}

func (m *memSessions) Start(_ context.Context, userID uuid.UUID) (session.Session, error) {
	accessID := session.NewAccessID()
	s := session.Session{AccessID: accessID, RefreshToken: accessID + ".secret", UserID: userID}
	m.byAccess[accessID] = s
	return s, nil
}

func (m *memSessions) Rotate(ctx context.Context, token string) (session.Session, error) {
	for id, s := range m.byAccess {
		if s.RefreshToken == token {
			delete(m.byAccess, id)
			return m.Start(ctx, s.UserID)
		}
	}
	return session.Session{}, session.ErrInvalidRefreshToken
}

func (m *memSessions) Revoke(_ context.Context, accessID string) error {
	delete(m.byAccess, accessID)
	return nil
}

type fixture struct {
	svc      Service
	conn     *gorm.DB
	users    *users.Repository
	sessions *memSessions
}

func newFixture(t *testing.T, verifier otpVerifier) *fixture {
	t.Helper()
	conn := dbtest.Open(t)
	f := &fixture{
		conn:     conn,
		users:    users.NewRepository(conn),
		sessions: newMemSessions(),
	}
	svc, err := NewService(ServiceParams{
		Users:          f.users,
		Tx:             db.NewFromConn(conn),
		OTP:            verifier,
		SessionManager: f.sessions,
		JWTConfig:      testJWT,
		IdentityConfig: testIdentity,
	})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	f.svc = svc
	return f
}

func identityToken(t *testing.T, subject, phone string) string {
	t.Helper()
	claims := pkgAuth.IdentityClaims{
		Phone: phone,
		Email: "Asha@Example.com",
		Name:  "Asha",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    testIdentity.Issuer,
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testIdentity.SigningSecret))
	if err != nil {
		t.Fatalf("sign identity token: %v", err)
	}
	return signed
}

func countLinks(t *testing.T, conn *gorm.DB) int64 {
	t.Helper()
	var n int64
	if err := conn.Model(&models.IdentityLink{}).Count(&n).Error; err != nil {
		t.Fatalf("count links: %v", err)
	}
	return n
}

func TestLoginWithOTPCreatesUserOnce(t *testing.T) {
	f := newFixture(t, stubVerifier{phone: "9876543210"})
	ctx := context.Background()

	first, err := f.svc.LoginWithOTP(ctx, OTPLoginRequest{Phone: "9876543210", OTP: "111111"})
	if err != nil {
		t.Fatalf("first login: %v", err)
	}
	second, err := f.svc.LoginWithOTP(ctx, OTPLoginRequest{Phone: "9876543210", OTP: "222222"})
	if err != nil {
		t.Fatalf("second login: %v", err)
	}

	if first.User.ID != second.User.ID {
		t.Fatalf("repeat login must reuse the user, got %s and %s", first.User.ID, second.User.ID)
	}
	if n := countLinks(t, f.conn); n != 1 {
		t.Fatalf("expected a single identity link, got %d", n)
	}
	if first.User.Role != enums.UserRoleCustomer || first.User.Phone == nil || *first.User.Phone != "9876543210" {
		t.Fatalf("unexpected profile %+v", first.User)
	}
	if first.TokenType != "Bearer" || first.ExpiresIn != 1800 {
		t.Fatalf("unexpected token metadata %s %d", first.TokenType, first.ExpiresIn)
	}

	claims, err := pkgAuth.ParseAccessToken(testJWT, second.AccessToken)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.UserID != second.User.ID {
		t.Fatalf("claims carry wrong user %s", claims.UserID)
	}
	if _, ok := f.sessions.byAccess[claims.ID]; !ok {
		t.Fatalf("access token jti should name the refresh session")
	}
}

func TestLoginWithOTPPropagatesVerifyFailure(t *testing.T) {
	verifyErr := pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid or expired verification code")
	f := newFixture(t, stubVerifier{err: verifyErr})

	_, err := f.svc.LoginWithOTP(context.Background(), OTPLoginRequest{Phone: "9876543210", OTP: "000000"})
	if !pkgerrors.Is(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if n := countLinks(t, f.conn); n != 0 {
		t.Fatalf("failed verification must not link, got %d", n)
	}
}

func TestExternalIdentityLinksToExistingPhoneProfile(t *testing.T) {
	f := newFixture(t, stubVerifier{phone: "9876543210"})
	ctx := context.Background()

	viaOTP, err := f.svc.LoginWithOTP(ctx, OTPLoginRequest{Phone: "9876543210", OTP: "111111"})
	if err != nil {
		t.Fatalf("otp login: %v", err)
	}
	viaToken, err := f.svc.LoginWithIdentityToken(ctx, ExternalLoginRequest{Token: identityToken(t, "idp|42", "+91 98765 43210")})
	if err != nil {
		t.Fatalf("external login: %v", err)
	}
	if viaOTP.User.ID != viaToken.User.ID {
		t.Fatalf("same verified phone should resolve to one profile")
	}
	if n := countLinks(t, f.conn); n != 2 {
		t.Fatalf("expected one link per provider, got %d", n)
	}
}

func TestExternalIdentityWithoutPhone(t *testing.T) {
	f := newFixture(t, stubVerifier{})
	ctx := context.Background()

	resp, err := f.svc.LoginWithIdentityToken(ctx, ExternalLoginRequest{Token: identityToken(t, "idp|7", "")})
	if err != nil {
		t.Fatalf("external login: %v", err)
	}
	if resp.User.Phone != nil || resp.User.Email == nil || *resp.User.Email != "asha@example.com" {
		t.Fatalf("unexpected profile %+v", resp.User)
	}
	if resp.User.FullName != "Asha" {
		t.Fatalf("expected name from claims, got %q", resp.User.FullName)
	}

	again, err := f.svc.LoginWithIdentityToken(ctx, ExternalLoginRequest{Token: identityToken(t, "idp|7", "")})
	if err != nil {
		t.Fatalf("repeat external login: %v", err)
	}
	if again.User.ID != resp.User.ID {
		t.Fatalf("subject should map to the same user")
	}
}

func TestExternalIdentityRejectsBadToken(t *testing.T) {
	f := newFixture(t, stubVerifier{})
	_, err := f.svc.LoginWithIdentityToken(context.Background(), ExternalLoginRequest{Token: "not-a-jwt"})
	if !pkgerrors.Is(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestRefreshRotatesAndLogoutRevokes(t *testing.T) {
	f := newFixture(t, stubVerifier{phone: "9876543210"})
	ctx := context.Background()

	login, err := f.svc.LoginWithOTP(ctx, OTPLoginRequest{Phone: "9876543210", OTP: "111111"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	refreshed, err := f.svc.Refresh(ctx, RefreshRequest{RefreshToken: login.RefreshToken})
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if refreshed.RefreshToken == login.RefreshToken {
		t.Fatalf("refresh must rotate the token")
	}
	if _, err := f.svc.Refresh(ctx, RefreshRequest{RefreshToken: login.RefreshToken}); !pkgerrors.Is(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("reused refresh token should be unauthorized, got %v", err)
	}

	claims, err := pkgAuth.ParseAccessToken(testJWT, refreshed.AccessToken)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if err := f.svc.Logout(ctx, claims.ID); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if len(f.sessions.byAccess) != 0 {
		t.Fatalf("logout should revoke the session")
	}
	if err := f.svc.Logout(ctx, ""); !pkgerrors.Is(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("blank access id should be unauthorized, got %v", err)
	}
}

func TestInactiveUserCannotLogin(t *testing.T) {
	f := newFixture(t, stubVerifier{phone: "9876543210"})
	ctx := context.Background()

	login, err := f.svc.LoginWithOTP(ctx, OTPLoginRequest{Phone: "9876543210", OTP: "111111"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := f.conn.Model(&models.User{}).Where("id = ?", login.User.ID).Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, err := f.svc.LoginWithOTP(ctx, OTPLoginRequest{Phone: "9876543210", OTP: "111111"}); !pkgerrors.Is(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if _, err := f.svc.Refresh(ctx, RefreshRequest{RefreshToken: login.RefreshToken}); !pkgerrors.Is(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected refresh to fail for inactive user, got %v", err)
	}
}

func TestMe(t *testing.T) {
	f := newFixture(t, stubVerifier{phone: "9876543210"})
	ctx := context.Background()

	login, err := f.svc.LoginWithOTP(ctx, OTPLoginRequest{Phone: "9876543210", OTP: "111111"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	me, err := f.svc.Me(ctx, login.User.ID)
	if err != nil {
		t.Fatalf("me: %v", err)
	}
	if me.LastLoginAt == nil {
		t.Fatalf("last login should be recorded")
	}
	if _, err := f.svc.Me(ctx, uuid.New()); !pkgerrors.Is(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestNewServiceValidatesDependencies(t *testing.T) {
	if _, err := NewService(ServiceParams{}); err == nil {
		t.Fatal("expected missing repository to fail")
	}
	if _, err := NewService(ServiceParams{Users: &users.Repository{}}); err == nil {
		t.Fatal("expected missing tx runner to fail")
	}
}
