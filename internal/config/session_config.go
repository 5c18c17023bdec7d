package config

import (
	"os"
	"strconv"
	"time"
)

// SessionConfig covers everything the session lifecycle needs: the persisted
// slot, credential lifetimes, and the login-status poll cadence.
type SessionConfig interface {
	GetSlotName() string
	GetSessionTTL() time.Duration
	GetAccessTokenExpiry() time.Duration
	GetRefreshTokenExpiry() time.Duration
	GetAccessTokenSecret() string
	GetLoginPollInterval() time.Duration
	PermissionEnforcementDisabled() bool
}

type Session struct{}

var _ SessionConfig = Session{}

func (Session) GetSlotName() string {
	return GetEnv("SESSION_SLOT_NAME", "session_token")
}

// GetSessionTTL is the max-age of the persisted session slot (7 days by default,
// matching the remote session record's lifetime).
func (Session) GetSessionTTL() time.Duration {
	return getDurationEnv("SESSION_TTL", 7*24*time.Hour)
}

func (Session) GetAccessTokenExpiry() time.Duration {
	return getDurationEnv("ACCESS_TOKEN_EXPIRY", 15*time.Minute)
}

func (Session) GetRefreshTokenExpiry() time.Duration {
	return getDurationEnv("REFRESH_TOKEN_EXPIRY", 7*24*time.Hour)
}

func (Session) GetAccessTokenSecret() string {
	return GetEnv("ACCESS_TOKEN_SECRET", "dev-only-secret")
}

func (Session) GetLoginPollInterval() time.Duration {
	return getDurationEnv("LOGIN_POLL_INTERVAL", 2*time.Second)
}

// PermissionEnforcementDisabled is the single deployment-level switch that
// turns off client-side permission checks (guards and dispatch alike). There
// is deliberately no per-page equivalent.
func (Session) PermissionEnforcementDisabled() bool {
	disabled, err := strconv.ParseBool(os.Getenv("DISABLE_PERMISSION_ENFORCEMENT"))
	if err != nil {
		return false
	}
	return disabled
}

func getDurationEnv(envVar string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}
