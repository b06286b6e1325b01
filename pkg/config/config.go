package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Identity      IdentityConfig
	OTP           OTPConfig
	SMS           SMSConfig
	FormRelay     FormRelayConfig
	Geocoding     GeocodingConfig
	Contact       ContactConfig
	Cart          CartConfig
	Booking       BookingConfig
	Outbox        OutboxConfig
	Cron          CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Booking.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"DARZI_APP_ENV" required:"true"`
	Port         string   `envconfig:"DARZI_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"DARZI_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"DARZI_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"DARZI_CORS_ORIGINS" default:"http://localhost:5173,http://localhost:3000"`
	TrustedHops  int      `envconfig:"DARZI_TRUSTED_PROXY_HOPS" default:"1"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"DARZI_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"DARZI_DB_DSN"`
	Driver string `envconfig:"DARZI_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"DARZI_DB_HOST"`
	Port     int    `envconfig:"DARZI_DB_PORT" default:"5432"`
	User     string `envconfig:"DARZI_DB_USER"`
	Password string `envconfig:"DARZI_DB_PASSWORD"`
	Name     string `envconfig:"DARZI_DB_NAME"`
	SSLMode  string `envconfig:"DARZI_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"DARZI_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"DARZI_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"DARZI_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"DARZI_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"DARZI_REDIS_URL"`
	Address      string        `envconfig:"DARZI_REDIS_ADDR"`
	Password     string        `envconfig:"DARZI_REDIS_PASSWORD"`
	DB           int           `envconfig:"DARZI_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"DARZI_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"DARZI_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"DARZI_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"DARZI_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"DARZI_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"DARZI_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"DARZI_JWT_ISSUER" default:"darzi"`
	ExpirationMinutes      int    `envconfig:"DARZI_JWT_EXPIRATION_MINUTES" default:"60"`
	RefreshTokenTTLMinutes int    `envconfig:"DARZI_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

// PasswordConfig tunes the argon2id parameters used for OTP digests.
type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"DARZI_ARGON_MEMORY_KB" default:"19456"`
	ArgonTime        int `envconfig:"DARZI_ARGON_TIME" default:"2"`
	ArgonParallelism int `envconfig:"DARZI_ARGON_PARALLELISM" default:"1"`
	ArgonSaltLen     int `envconfig:"DARZI_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"DARZI_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	OTPSendWindow     time.Duration `envconfig:"DARZI_AUTH_RATE_LIMIT_OTP_SEND_WINDOW" default:"10m"`
	OTPSendPhoneLimit int           `envconfig:"DARZI_AUTH_RATE_LIMIT_OTP_SEND_PHONE_LIMIT" default:"3"`
	OTPSendIPLimit    int           `envconfig:"DARZI_AUTH_RATE_LIMIT_OTP_SEND_IP_LIMIT" default:"20"`
	LoginWindow       time.Duration `envconfig:"DARZI_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"5m"`
	LoginPhoneLimit   int           `envconfig:"DARZI_AUTH_RATE_LIMIT_LOGIN_PHONE_LIMIT" default:"5"`
	LoginIPLimit      int           `envconfig:"DARZI_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"30"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"DARZI_AUTO_MIGRATE" default:"false"`
}

// IdentityConfig configures verification of tokens minted by the external identity provider.
type IdentityConfig struct {
	Provider      string `envconfig:"DARZI_IDENTITY_PROVIDER" default:"external"`
	SigningSecret string `envconfig:"DARZI_IDENTITY_SIGNING_SECRET"`
	Issuer        string `envconfig:"DARZI_IDENTITY_ISSUER"`
}

type OTPConfig struct {
	TTL         time.Duration `envconfig:"DARZI_OTP_TTL" default:"5m"`
	Length      int           `envconfig:"DARZI_OTP_LENGTH" default:"6"`
	MaxAttempts int           `envconfig:"DARZI_OTP_MAX_ATTEMPTS" default:"5"`
	Retention   time.Duration `envconfig:"DARZI_OTP_RETENTION" default:"24h"`
	MessageTmpl string        `envconfig:"DARZI_OTP_MESSAGE" default:"Your Darzi verification code is %s. It expires in 5 minutes."`
}

// SMSConfig holds Twilio credentials. When AccountSID is empty the API logs codes instead of sending.
type SMSConfig struct {
	AccountSID  string        `envconfig:"DARZI_TWILIO_ACCOUNT_SID"`
	AuthToken   string        `envconfig:"DARZI_TWILIO_AUTH_TOKEN"`
	FromNumber  string        `envconfig:"DARZI_TWILIO_PHONE_NUMBER"`
	CountryCode string        `envconfig:"DARZI_SMS_COUNTRY_CODE" default:"+91"`
	Timeout     time.Duration `envconfig:"DARZI_SMS_TIMEOUT" default:"10s"`
}

// Enabled reports whether real SMS delivery is configured.
func (s SMSConfig) Enabled() bool {
	return strings.TrimSpace(s.AccountSID) != "" && strings.TrimSpace(s.AuthToken) != ""
}

type FormRelayConfig struct {
	BaseURL string        `envconfig:"DARZI_FORM_RELAY_BASE_URL" default:"https://formspree.io/f"`
	FormID  string        `envconfig:"DARZI_FORM_RELAY_FORM_ID"`
	Timeout time.Duration `envconfig:"DARZI_FORM_RELAY_TIMEOUT" default:"15s"`
}

type GeocodingConfig struct {
	BaseURL   string        `envconfig:"DARZI_GEOCODING_BASE_URL" default:"https://nominatim.openstreetmap.org"`
	UserAgent string        `envconfig:"DARZI_GEOCODING_USER_AGENT" default:"darzi-backend/1.0"`
	Timeout   time.Duration `envconfig:"DARZI_GEOCODING_TIMEOUT" default:"10s"`
	Language  string        `envconfig:"DARZI_GEOCODING_LANGUAGE" default:"en"`
}

type ContactConfig struct {
	Phone                     string `envconfig:"DARZI_CONTACT_PHONE" default:"+919876543210"`
	WhatsAppMessage           string `envconfig:"DARZI_CONTACT_WHATSAPP_MESSAGE" default:"Hi! I would like to book a doorstep tailoring pickup."`
	GeolocationTimeoutSeconds int    `envconfig:"DARZI_GEOLOCATION_TIMEOUT_SECONDS" default:"15"`
}

type CartConfig struct {
	DeviceTTL     time.Duration `envconfig:"DARZI_CART_DEVICE_TTL" default:"720h"`
	MirrorTimeout time.Duration `envconfig:"DARZI_CART_MIRROR_TIMEOUT" default:"3s"`
}

type BookingConfig struct {
	SlotStart      string        `envconfig:"DARZI_BOOKING_SLOT_START" default:"09:00"`
	SlotEnd        string        `envconfig:"DARZI_BOOKING_SLOT_END" default:"20:00"`
	HorizonDays    int           `envconfig:"DARZI_BOOKING_HORIZON_DAYS" default:"30"`
	Timezone       string        `envconfig:"DARZI_BOOKING_TIMEZONE" default:"Asia/Kolkata"`
	IdempotencyTTL time.Duration `envconfig:"DARZI_BOOKING_IDEMPOTENCY_TTL" default:"24h"`
}

func (b BookingConfig) validate() error {
	if _, err := time.Parse("15:04", b.SlotStart); err != nil {
		return fmt.Errorf("invalid %s: %w", EnvBookingSlotStart, err)
	}
	if _, err := time.Parse("15:04", b.SlotEnd); err != nil {
		return fmt.Errorf("invalid %s: %w", EnvBookingSlotEnd, err)
	}
	if _, err := time.LoadLocation(b.Timezone); err != nil {
		return fmt.Errorf("invalid %s: %w", EnvBookingTimezone, err)
	}
	return nil
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"DARZI_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"DARZI_OUTBOX_PUBLISH_POLL_MS" default:"1000"`
	MaxAttempts    int `envconfig:"DARZI_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int `envconfig:"DARZI_OUTBOX_RETENTION_DAYS" default:"30"`
}

type CronConfig struct {
	Schedule string `envconfig:"DARZI_CRON_SCHEDULE" default:"@every 1h"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range discreteDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
