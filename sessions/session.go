// Package sessions defines the Session value shared between the session
// store, the state machine, and the dispatcher. Sessions are values: every
// transition produces a replacement, nothing mutates one in place.
package sessions

import (
	"time"

	"github.com/jrsteele09/go-course-client/users"
)

// Status is the authentication state of a session. Exactly one holds at any time.
type Status string

const (
	StatusUnknown    Status = "UNKNOWN"    // No session record exists
	StatusAnonymous  Status = "ANONYMOUS"  // Login initiated, awaiting external confirmation
	StatusAuthorized Status = "AUTHORIZED" // Identity confirmed, credentials attached
)

// Session is the client's view of the remote session record, keyed by
// SessionToken. Field presence follows the status:
//
//	Unknown    - no tokens, no user
//	Anonymous  - SessionToken and LoginToken only
//	Authorized - SessionToken, access/refresh credentials, and user; LoginToken cleared
type Session struct {
	Status                Status      `json:"status"`
	SessionToken          string      `json:"session_token,omitempty"`
	LoginToken            string      `json:"login_token,omitempty"`
	AccessToken           string      `json:"access_token,omitempty"`
	AccessTokenExpiresAt  time.Time   `json:"access_token_expires_at,omitzero"`
	RefreshToken          string      `json:"refresh_token,omitempty"`
	RefreshTokenExpiresAt time.Time   `json:"refresh_token_expires_at,omitzero"`
	User                  *users.User `json:"user,omitempty"`
	Permissions           []string    `json:"permissions,omitempty"`
}

// Unknown returns the empty session, the state of a client with no record.
func Unknown() Session {
	return Session{Status: StatusUnknown}
}

// Authorized reports whether the session carries a confirmed identity.
func (s Session) Authorized() bool {
	return s.Status == StatusAuthorized
}

// AccessExpired reports whether the access token's absolute expiry has passed.
// Sessions without a tracked expiry never report expired.
func (s Session) AccessExpired(now time.Time) bool {
	if s.AccessTokenExpiresAt.IsZero() {
		return false
	}
	return now.After(s.AccessTokenExpiresAt)
}

// RefreshExpired reports whether the refresh token can no longer mint access
// tokens. Past this point a full re-login is required.
func (s Session) RefreshExpired(now time.Time) bool {
	if s.RefreshTokenExpiresAt.IsZero() {
		return false
	}
	return now.After(s.RefreshTokenExpiresAt)
}

// HasPermission reports whether the session's derived permission set contains perm.
func (s Session) HasPermission(perm string) bool {
	for _, p := range s.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}
