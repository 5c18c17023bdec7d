package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-course-client/internal/config"
	"github.com/jrsteele09/go-course-client/rbac"
	"github.com/jrsteele09/go-course-client/sessions"
	"github.com/jrsteele09/go-course-client/token"
	"github.com/jrsteele09/go-course-client/users"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

// IdentityResolver resolves the identity behind a confirmed login attempt.
// Implemented by whatever bridges the external authority's confirmation
// callback; the store never contacts the authority itself.
type IdentityResolver interface {
	Resolve(ctx context.Context, loginToken string) (*users.User, error)
}

// Client implements Store over a RecordRepo. It owns the session record
// lifecycle: allocation, promotion, credential rotation, and deletion.
type Client struct {
	repo      RecordRepo
	resolver  IdentityResolver
	tokens    *token.Manager
	config    config.SessionConfig
	authority *oauth2.Config
	nowTime   func() time.Time
}

var _ Store = (*Client)(nil)

// ClientOption defines a function type to modify the Client instance.
type ClientOption func(*Client)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ClientOption {
	return func(c *Client) {
		c.nowTime = nowFunc
	}
}

// NewClient initializes a session store client with required dependencies.
func NewClient(
	repo RecordRepo,
	resolver IdentityResolver,
	tokens *token.Manager,
	sessionCfg config.SessionConfig,
	authorityCfg config.AuthorityConfig,
	options ...ClientOption,
) (*Client, error) {
	if repo == nil {
		return nil, errors.New("[NewClient] record repo is required")
	}
	if resolver == nil {
		return nil, errors.New("[NewClient] identity resolver is required")
	}
	if tokens == nil {
		return nil, errors.New("[NewClient] token manager is required")
	}

	client := &Client{
		repo:     repo,
		resolver: resolver,
		tokens:   tokens,
		config:   sessionCfg,
		authority: &oauth2.Config{
			ClientID:    authorityCfg.GetAuthorityClientID(),
			RedirectURL: authorityCfg.GetAuthorityRedirectURL(),
			Endpoint: oauth2.Endpoint{
				AuthURL: authorityCfg.GetAuthorityAuthURL(),
			},
		},
		nowTime: time.Now,
	}

	for _, opt := range options {
		opt(client)
	}

	return client, nil
}

// Fetch returns the session stored under token. Missing records and empty
// tokens yield the Unknown session, never an error.
func (c *Client) Fetch(ctx context.Context, token string) (sessions.Session, error) {
	if token == "" {
		return sessions.Unknown(), nil
	}

	session, ok, err := c.repo.Get(ctx, token)
	if err != nil {
		return sessions.Unknown(), errors.Wrap(err, "[Client.Fetch] repo.Get")
	}
	if !ok {
		return sessions.Unknown(), nil
	}
	return session, nil
}

// BeginLogin allocates a session/login token pair, stores the pending record,
// and builds the external authority redirect URL with the login token as the
// OAuth state parameter.
func (c *Client) BeginLogin(ctx context.Context, method string) (Login, error) {
	sessionToken := uuid.New().String()
	loginToken := uuid.New().String()

	pending := sessions.Session{
		Status:       sessions.StatusAnonymous,
		SessionToken: sessionToken,
		LoginToken:   loginToken,
	}
	if err := c.repo.Put(ctx, sessionToken, pending, c.config.GetSessionTTL()); err != nil {
		return Login{}, errors.Wrap(err, "[Client.BeginLogin] repo.Put")
	}

	return Login{
		SessionToken: sessionToken,
		LoginToken:   loginToken,
		AuthURL:      c.authority.AuthCodeURL(loginToken, oauth2.SetAuthURLParam("type", method)),
	}, nil
}

// ConfirmLogin promotes a pending record to Authorized. Records that are not
// Anonymous, including missing ones, are returned unchanged: external
// confirmations can arrive more than once and must never double-grant.
func (c *Client) ConfirmLogin(ctx context.Context, sessionToken string) (sessions.Session, error) {
	current, err := c.Fetch(ctx, sessionToken)
	if err != nil {
		return sessions.Unknown(), err
	}
	if current.Status != sessions.StatusAnonymous {
		return current, nil
	}

	user, err := c.resolver.Resolve(ctx, current.LoginToken)
	if err != nil {
		return sessions.Unknown(), errors.Wrap(err, "[Client.ConfirmLogin] resolver.Resolve")
	}
	if user == nil || user.Blocked {
		// Denied logins leave no pending record behind.
		if err := c.repo.Delete(ctx, sessionToken); err != nil {
			return sessions.Unknown(), errors.Wrap(err, "[Client.ConfirmLogin] repo.Delete")
		}
		return sessions.Unknown(), nil
	}

	permissions := user.Permissions()
	creds, err := c.tokens.Mint(user, permissions)
	if err != nil {
		return sessions.Unknown(), errors.Wrap(err, "[Client.ConfirmLogin] tokens.Mint")
	}

	authorized := sessions.Session{
		Status:                sessions.StatusAuthorized,
		SessionToken:          sessionToken,
		AccessToken:           creds.AccessToken,
		AccessTokenExpiresAt:  creds.AccessTokenExpiresAt,
		RefreshToken:          creds.RefreshToken,
		RefreshTokenExpiresAt: creds.RefreshTokenExpiresAt,
		User:                  user,
		Permissions:           permissions,
	}
	if err := c.repo.Put(ctx, sessionToken, authorized, c.config.GetSessionTTL()); err != nil {
		return sessions.Unknown(), errors.Wrap(err, "[Client.ConfirmLogin] repo.Put")
	}
	return authorized, nil
}

// RotateAccessToken mints a new access token against a still-valid refresh
// token. An expired or absent refresh token is a hard boundary: the record is
// deleted and Unknown returned, forcing a full re-login.
func (c *Client) RotateAccessToken(ctx context.Context, sessionToken string) (sessions.Session, error) {
	current, err := c.Fetch(ctx, sessionToken)
	if err != nil {
		return sessions.Unknown(), err
	}
	if current.Status == sessions.StatusUnknown {
		return current, nil
	}

	if !current.Authorized() || current.RefreshToken == "" || current.RefreshExpired(c.nowTime()) {
		if err := c.repo.Delete(ctx, sessionToken); err != nil {
			return sessions.Unknown(), errors.Wrap(err, "[Client.RotateAccessToken] repo.Delete")
		}
		return sessions.Unknown(), nil
	}

	creds, err := c.tokens.Rotate(token.Credentials{
		RefreshToken:          current.RefreshToken,
		RefreshTokenExpiresAt: current.RefreshTokenExpiresAt,
	}, current.User, current.Permissions)
	if err != nil {
		return sessions.Unknown(), errors.Wrap(err, "[Client.RotateAccessToken] tokens.Rotate")
	}

	rotated := current
	rotated.AccessToken = creds.AccessToken
	rotated.AccessTokenExpiresAt = creds.AccessTokenExpiresAt
	if err := c.repo.Put(ctx, sessionToken, rotated, c.config.GetSessionTTL()); err != nil {
		return sessions.Unknown(), errors.Wrap(err, "[Client.RotateAccessToken] repo.Put")
	}
	return rotated, nil
}

// SetRoles replaces the user's roles and recomputes the derived permission
// set. Permissions are never patched directly; they always come from the
// role table. No-op on records that are not Authorized.
func (c *Client) SetRoles(ctx context.Context, sessionToken string, roles []rbac.RoleType) (sessions.Session, error) {
	current, err := c.Fetch(ctx, sessionToken)
	if err != nil {
		return sessions.Unknown(), err
	}
	if !current.Authorized() {
		return current, nil
	}

	user := *current.User
	user.Roles = append([]rbac.RoleType(nil), roles...)

	updated := current
	updated.User = &user
	updated.Permissions = rbac.PermissionsForRoles(roles)
	if err := c.repo.Put(ctx, sessionToken, updated, c.config.GetSessionTTL()); err != nil {
		return sessions.Unknown(), errors.Wrap(err, "[Client.SetRoles] repo.Put")
	}
	return updated, nil
}

// EndSession deletes the session record. With revokeAll it also removes every
// other session held by the same identity.
func (c *Client) EndSession(ctx context.Context, sessionToken string, revokeAll bool) error {
	if sessionToken == "" {
		return nil
	}

	if revokeAll {
		current, ok, err := c.repo.Get(ctx, sessionToken)
		if err != nil {
			return errors.Wrap(err, "[Client.EndSession] repo.Get")
		}
		if ok && current.User != nil {
			if err := c.repo.DeleteByUser(ctx, current.User.ID); err != nil {
				return errors.Wrap(err, "[Client.EndSession] repo.DeleteByUser")
			}
		}
	}

	if err := c.repo.Delete(ctx, sessionToken); err != nil {
		return errors.Wrap(err, "[Client.EndSession] repo.Delete")
	}
	return nil
}
