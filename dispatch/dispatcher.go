// Package dispatch is the single choke point for privileged operations. It
// resolves the caller's session, enforces token freshness, consults the
// permission decision point, and maps the failure taxonomy to notifications
// and navigation. Call sites never reimplement any of this.
package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/jrsteele09/go-course-client/events"
	"github.com/jrsteele09/go-course-client/internal/config"
	errs "github.com/jrsteele09/go-course-client/internal/errors"
	"github.com/jrsteele09/go-course-client/sessions"
	"github.com/jrsteele09/go-course-client/sessions/store"
	"github.com/jrsteele09/go-course-client/tokencarrier"
	"github.com/rs/zerolog/log"
)

// Navigator performs the navigation side effects of dispatch failures.
// Implemented by the UI shell; nothing below the dispatcher navigates.
type Navigator interface {
	// ToSignIn sends the user to the anonymous landing state. from preserves
	// the location that triggered the redirect for an optional return.
	ToSignIn(from string)
	// ToForbidden sends the user to the forbidden view.
	ToForbidden()
}

// Operation is a privileged call executed with a resolved, fresh session.
type Operation[T any] func(ctx context.Context, session sessions.Session) (T, error)

// CallOption adjusts dispatch policy for a single call.
type CallOption func(*callOptions)

type callOptions struct {
	suppressForbiddenRedirect bool
	requiredPermission        string
	from                      string
}

// SuppressForbiddenRedirect keeps a Forbidden outcome in-page: the forbidden
// event still fires but no navigation happens. For call sites that probe for
// permission and degrade gracefully.
func SuppressForbiddenRedirect() CallOption {
	return func(o *callOptions) {
		o.suppressForbiddenRedirect = true
	}
}

// RequirePermission declares the permission the operation needs. The check
// runs here, against the session's derived permission set, so route guards
// and dispatch share one authorization decision point.
func RequirePermission(permission string) CallOption {
	return func(o *callOptions) {
		o.requiredPermission = permission
	}
}

// From records the location that issued the call, preserved through a
// sign-in redirect.
func From(location string) CallOption {
	return func(o *callOptions) {
		o.from = location
	}
}

// Dispatcher wraps every outbound privileged operation with the session
// policy. Construct one at bootstrap and share it.
type Dispatcher struct {
	store   store.Store
	carrier tokencarrier.Carrier
	bus     *events.Bus
	nav     Navigator
	config  config.SessionConfig
	nowTime func() time.Time

	rotateMu sync.Mutex // single-flight guard for token rotation
}

// DispatcherOption defines a function type to modify the Dispatcher instance.
type DispatcherOption func(*Dispatcher)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) DispatcherOption {
	return func(d *Dispatcher) {
		d.nowTime = nowFunc
	}
}

// New creates a dispatcher.
func New(sessionStore store.Store, carrier tokencarrier.Carrier, bus *events.Bus, nav Navigator, cfg config.SessionConfig, options ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		store:   sessionStore,
		carrier: carrier,
		bus:     bus,
		nav:     nav,
		config:  cfg,
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(d)
	}
	return d
}

// Do executes op under the dispatch policy:
//
//  1. resolve the current session; anything but Authorized fails NotAuthorized
//  2. rotate an expired access token first, single-flight across callers
//  3. check the declared permission
//  4. run op and map its failure to the taxonomy
//
// Forbidden emits a notification and redirects unless suppressed.
// NotAuthorized ends the session and redirects to sign-in. NeedsEnrollment
// and all other errors propagate to the caller untouched.
func Do[T any](ctx context.Context, d *Dispatcher, op Operation[T], opts ...CallOption) (T, error) {
	var zero T

	options := callOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	session, err := d.resolveFresh(ctx, options)
	if err != nil {
		return zero, err
	}

	if options.requiredPermission != "" && !d.config.PermissionEnforcementDisabled() {
		if !session.HasPermission(options.requiredPermission) {
			return zero, d.forbidden(options)
		}
	}

	result, err := op(ctx, session)
	if err != nil {
		return zero, d.mapFailure(ctx, err, options)
	}
	return result, nil
}

// resolveFresh loads the session for the persisted token and guarantees an
// unexpired access token, rotating if needed.
func (d *Dispatcher) resolveFresh(ctx context.Context, options callOptions) (sessions.Session, error) {
	token, err := d.carrier.Read()
	if err != nil {
		return sessions.Unknown(), errs.Wrapf(err, "reading session slot")
	}

	session, err := d.store.Fetch(ctx, token)
	if err != nil {
		// Transport failure: propagate, the auth policy does not retry.
		return sessions.Unknown(), err
	}
	if !session.Authorized() {
		return sessions.Unknown(), d.expireSession(ctx, options)
	}

	if !session.AccessExpired(d.nowTime()) {
		return session, nil
	}

	// Serialize rotation: a caller arriving while another rotates waits here
	// and then re-reads the already-rotated record instead of rotating again.
	d.rotateMu.Lock()
	defer d.rotateMu.Unlock()

	session, err = d.store.Fetch(ctx, token)
	if err != nil {
		return sessions.Unknown(), err
	}
	if !session.Authorized() {
		return sessions.Unknown(), d.expireSession(ctx, options)
	}
	if !session.AccessExpired(d.nowTime()) {
		return session, nil
	}

	d.bus.Publish(events.Event{Kind: events.RefreshStart})
	rotated, err := d.store.RotateAccessToken(ctx, token)
	if err != nil || !rotated.Authorized() {
		d.bus.Publish(events.Event{Kind: events.RefreshFailed})
		if err != nil {
			log.Warn().Err(err).Msg("access token rotation failed")
		}
		return sessions.Unknown(), d.expireSession(ctx, options)
	}
	d.bus.Publish(events.Event{Kind: events.RefreshSuccess})
	return rotated, nil
}

// mapFailure applies the recovery policy to an operation failure.
func (d *Dispatcher) mapFailure(ctx context.Context, err error, options callOptions) error {
	switch {
	case errs.Is(err, errs.ErrNeedsEnrollment):
		// Not a permission problem: the caller is simply unrelated to the
		// resource yet. Handled in-page, never redirected.
		return err
	case errs.Is(err, errs.ErrForbidden):
		return d.forbidden(options)
	case errs.Is(err, errs.ErrNotAuthorized), errs.Is(err, errs.ErrSessionExpired):
		return d.expireSession(ctx, options)
	default:
		return err
	}
}

// forbidden emits exactly one notification and, unless the caller opted out,
// exactly one redirect.
func (d *Dispatcher) forbidden(options callOptions) error {
	d.bus.Publish(events.Event{Kind: events.Forbidden})
	if !options.suppressForbiddenRedirect {
		d.nav.ToForbidden()
	}
	return errs.ErrForbidden
}

// expireSession is the terminal NotAuthorized policy: notify, best-effort end
// the remote session, clear the slot, and force the anonymous landing state.
func (d *Dispatcher) expireSession(ctx context.Context, options callOptions) error {
	d.bus.Publish(events.Event{Kind: events.SessionExpired})

	if token, err := d.carrier.Read(); err == nil && token != "" {
		if err := d.store.EndSession(ctx, token, false); err != nil {
			log.Warn().Err(err).Msg("ending remote session after expiry failed")
		}
	}
	if err := d.carrier.Clear(); err != nil {
		log.Warn().Err(err).Msg("clearing session slot after expiry failed")
	}

	d.nav.ToSignIn(options.from)
	return errs.ErrNotAuthorized
}
