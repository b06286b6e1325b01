package config

const (
	EnvPrefix = "DARZI"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv   = "DARZI_APP_ENV"
	EnvPort     = "DARZI_APP_PORT"
	EnvLogLevel = "DARZI_LOG_LEVEL"

	EnvDBDSN  = "DARZI_DB_DSN"
	EnvDBHost = "DARZI_DB_HOST"
	EnvDBUser = "DARZI_DB_USER"
	EnvDBName = "DARZI_DB_NAME"

	EnvRedisURL = "DARZI_REDIS_URL"

	EnvJWTSecret              = "DARZI_JWT_SECRET"
	EnvJWTIssuer              = "DARZI_JWT_ISSUER"
	EnvJWTExpMins             = "DARZI_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "DARZI_REFRESH_TOKEN_TTL_MINUTES"

	EnvOTPTTL          = "DARZI_OTP_TTL"
	EnvTwilioSID       = "DARZI_TWILIO_ACCOUNT_SID"
	EnvTwilioAuthToken = "DARZI_TWILIO_AUTH_TOKEN"
	EnvFormRelayFormID = "DARZI_FORM_RELAY_FORM_ID"
	EnvContactPhone    = "DARZI_CONTACT_PHONE"

	EnvBookingSlotStart = "DARZI_BOOKING_SLOT_START"
	EnvBookingSlotEnd   = "DARZI_BOOKING_SLOT_END"
	EnvBookingTimezone  = "DARZI_BOOKING_TIMEZONE"
)

var discreteDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
