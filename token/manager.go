// Package token mints the credential pair attached to an authorized session:
// a short-lived JWT access token and a longer-lived opaque refresh token.
package token

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jrsteele09/go-course-client/internal/config"
	"github.com/jrsteele09/go-course-client/users"
	"github.com/pkg/errors"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

const refreshTokenLength = 32 // bytes of entropy, hex encoded

// Credentials is the access/refresh pair held by the session record.
type Credentials struct {
	AccessToken           string
	AccessTokenExpiresAt  time.Time
	RefreshToken          string
	RefreshTokenExpiresAt time.Time
}

// Manager creates and rotates session credentials
type Manager struct {
	config config.SessionConfig
}

// NewManager creates a new credential manager
func NewManager(cfg config.SessionConfig) *Manager {
	return &Manager{
		config: cfg,
	}
}

// Mint issues a fresh access/refresh pair for the user. Called when the
// external authority confirms a login.
func (m *Manager) Mint(user *users.User, permissions []string) (Credentials, error) {
	now := NowTimeFunc()

	accessToken, accessExpiry, err := m.mintAccessToken(user, permissions, now)
	if err != nil {
		return Credentials{}, err
	}

	refreshBytes := make([]byte, refreshTokenLength)
	if _, err := rand.Read(refreshBytes); err != nil {
		return Credentials{}, errors.Wrap(err, "[Manager.Mint] rand.Read")
	}

	return Credentials{
		AccessToken:           accessToken,
		AccessTokenExpiresAt:  accessExpiry,
		RefreshToken:          hex.EncodeToString(refreshBytes),
		RefreshTokenExpiresAt: now.Add(m.config.GetRefreshTokenExpiry()),
	}, nil
}

// Rotate issues a new access token while keeping the refresh token and its
// expiry intact. The caller is responsible for checking the refresh token is
// still valid before rotating.
func (m *Manager) Rotate(current Credentials, user *users.User, permissions []string) (Credentials, error) {
	accessToken, accessExpiry, err := m.mintAccessToken(user, permissions, NowTimeFunc())
	if err != nil {
		return Credentials{}, err
	}

	current.AccessToken = accessToken
	current.AccessTokenExpiresAt = accessExpiry
	return current, nil
}

func (m *Manager) mintAccessToken(user *users.User, permissions []string, now time.Time) (string, time.Time, error) {
	expiry := now.Add(m.config.GetAccessTokenExpiry())

	// sub/name identify the user, permissions carry the role-derived capability
	// set, jti gives the token a unique ID for revocation.
	claims := jwtlib.MapClaims{
		"sub":         user.ID,
		"name":        user.FullName,
		"permissions": permissions,
		"iat":         now.Unix(),
		"exp":         expiry.Unix(),
		"jti":         uuid.New().String(),
	}

	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(m.config.GetAccessTokenSecret()))
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, "[Manager.mintAccessToken] SignedString")
	}
	return signed, expiry, nil
}
