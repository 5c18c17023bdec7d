// Package store implements the Session Store Client: the sole channel to the
// authoritative session record, addressed by the opaque session token.
package store

import (
	"context"
	"time"

	"github.com/jrsteele09/go-course-client/rbac"
	"github.com/jrsteele09/go-course-client/sessions"
)

// Login is the material returned from initiating a login: the allocated
// session identifier, the correlation token the external authority echoes
// back as state, and the URL the user must be sent to.
type Login struct {
	SessionToken string
	LoginToken   string
	AuthURL      string
}

// Store is the contract against the session authority. Absence of a record is
// a normal, representable state: Fetch never fails for a missing or empty
// token, it returns the Unknown session.
type Store interface {
	// Fetch returns the stored session for token, or Unknown when token is
	// empty or no record exists.
	Fetch(ctx context.Context, token string) (sessions.Session, error)

	// BeginLogin allocates a new session and login token pair, stores a
	// pending (Anonymous) record, and returns the redirect material.
	BeginLogin(ctx context.Context, method string) (Login, error)

	// ConfirmLogin promotes a pending record to Authorized, attaching the
	// resolved identity, derived permissions, and fresh credentials.
	// Idempotent: confirming a record that is not Anonymous returns it
	// unchanged and never double-grants.
	ConfirmLogin(ctx context.Context, sessionToken string) (sessions.Session, error)

	// RotateAccessToken issues a new access token if the refresh token is
	// still valid. An expired refresh token deletes the record and returns
	// Unknown: a full re-login is required, this is not retryable.
	RotateAccessToken(ctx context.Context, sessionToken string) (sessions.Session, error)

	// SetRoles replaces the session user's roles and recomputes permissions.
	// No-op on records that are not Authorized.
	SetRoles(ctx context.Context, sessionToken string, roles []rbac.RoleType) (sessions.Session, error)

	// EndSession deletes the remote record. revokeAll additionally removes
	// every session belonging to the same identity.
	EndSession(ctx context.Context, sessionToken string, revokeAll bool) error
}

// RecordRepo is the key-value storage under the store: get/put/delete by
// session token plus the identity fan-out used by revoke-all.
type RecordRepo interface {
	Get(ctx context.Context, token string) (sessions.Session, bool, error)
	Put(ctx context.Context, token string, session sessions.Session, ttl time.Duration) error
	Delete(ctx context.Context, token string) error
	DeleteByUser(ctx context.Context, userID string) error
}
