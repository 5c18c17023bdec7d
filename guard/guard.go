// Package guard provides the navigation predicates for protected views. Both
// guards are pure functions of a session snapshot; they decide, the router
// acts.
package guard

import (
	"github.com/jrsteele09/go-course-client/internal/config"
	"github.com/jrsteele09/go-course-client/rbac"
	"github.com/jrsteele09/go-course-client/sessionmgr"
)

const (
	// SignInPath is the anonymous landing state.
	SignInPath = "/"
	// ForbiddenPath is the view shown on insufficient permission.
	ForbiddenPath = "/forbidden"
)

// Decision is the outcome of a guard check. Pending means the initial session
// load is still in flight: the router should render a waiting state, not the
// unauthenticated view.
type Decision struct {
	Allow      bool
	Pending    bool
	RedirectTo string
	From       string // original target, preserved for post-login return
}

// RequireAuth permits navigation only for an authorized session. While the
// session load is in flight it reports Pending instead of denying.
func RequireAuth(snap sessionmgr.Snapshot, target string) Decision {
	if snap.Loading {
		return Decision{Pending: true}
	}
	if snap.Session.Authorized() {
		return Decision{Allow: true}
	}
	return Decision{RedirectTo: SignInPath, From: target}
}

// PermissionGuard checks a required permission against the session's derived
// set. Enforcement is switched centrally via configuration; there is no
// per-route opt-out.
type PermissionGuard struct {
	config config.SessionConfig
}

func NewPermissionGuard(cfg config.SessionConfig) PermissionGuard {
	return PermissionGuard{config: cfg}
}

// Require permits navigation iff the permission is present (or enforcement is
// disabled for this deployment). Uses the same permission check as the
// dispatcher, so the two enforcement points cannot diverge.
func (g PermissionGuard) Require(snap sessionmgr.Snapshot, permission string) Decision {
	if snap.Loading {
		return Decision{Pending: true}
	}
	if g.config.PermissionEnforcementDisabled() {
		return Decision{Allow: true}
	}
	if rbac.HasPermission(snap.Session.Permissions, permission) {
		return Decision{Allow: true}
	}
	return Decision{RedirectTo: ForbiddenPath}
}
