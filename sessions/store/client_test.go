package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/jrsteele09/go-course-client/internal/config"
	"github.com/jrsteele09/go-course-client/rbac"
	"github.com/jrsteele09/go-course-client/sessions"
	"github.com/jrsteele09/go-course-client/sessions/store"
	"github.com/jrsteele09/go-course-client/token"
	"github.com/jrsteele09/go-course-client/users"
	"github.com/stretchr/testify/require"
)

type staticResolver struct {
	user *users.User
	err  error
}

func (r staticResolver) Resolve(ctx context.Context, loginToken string) (*users.User, error) {
	return r.user, r.err
}

func teacherUser() *users.User {
	return &users.User{
		ID:       "user-1",
		Username: "jdoe",
		FullName: "John Doe",
		Email:    "john.doe@example.com",
		Roles:    []rbac.RoleType{rbac.RoleStudent, rbac.RoleTeacher},
	}
}

func newTestClient(t *testing.T, resolver store.IdentityResolver) (*store.Client, *store.InMemoryRecordRepo) {
	t.Helper()

	repo := store.NewInMemoryRecordRepo()
	client, err := store.NewClient(
		repo,
		resolver,
		token.NewManager(config.Session{}),
		config.Session{},
		config.Authority{},
	)
	require.NoError(t, err)
	return client, repo
}

func TestBeginLoginCreatesPendingRecord(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestClient(t, staticResolver{user: teacherUser()})

	login, err := client.BeginLogin(ctx, "code")
	require.NoError(t, err)
	require.NotEmpty(t, login.SessionToken)
	require.NotEmpty(t, login.LoginToken)
	require.Contains(t, login.AuthURL, "state="+login.LoginToken)
	require.Contains(t, login.AuthURL, "type=code")

	session, err := client.Fetch(ctx, login.SessionToken)
	require.NoError(t, err)
	require.Equal(t, sessions.StatusAnonymous, session.Status)
	require.Equal(t, login.SessionToken, session.SessionToken)
	require.Equal(t, login.LoginToken, session.LoginToken)
	require.Empty(t, session.AccessToken)
	require.Nil(t, session.User)
}

func TestFetchUnknownTokens(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestClient(t, staticResolver{user: teacherUser()})

	session, err := client.Fetch(ctx, "")
	require.NoError(t, err)
	require.Equal(t, sessions.StatusUnknown, session.Status)

	session, err = client.Fetch(ctx, "no-such-token")
	require.NoError(t, err)
	require.Equal(t, sessions.StatusUnknown, session.Status)
}

func TestConfirmLoginAuthorizes(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestClient(t, staticResolver{user: teacherUser()})

	login, err := client.BeginLogin(ctx, "code")
	require.NoError(t, err)

	session, err := client.ConfirmLogin(ctx, login.SessionToken)
	require.NoError(t, err)
	require.Equal(t, sessions.StatusAuthorized, session.Status)
	require.Empty(t, session.LoginToken)
	require.NotEmpty(t, session.AccessToken)
	require.NotEmpty(t, session.RefreshToken)
	require.NotNil(t, session.User)
	require.NotEmpty(t, session.Permissions, "teacher roles derive a non-empty permission set")
	require.True(t, session.HasPermission(rbac.PermCourseInfoWrite))
	require.False(t, session.HasPermission(rbac.PermUserListRead))
}

func TestConfirmLoginIdempotent(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestClient(t, staticResolver{user: teacherUser()})

	login, err := client.BeginLogin(ctx, "code")
	require.NoError(t, err)

	first, err := client.ConfirmLogin(ctx, login.SessionToken)
	require.NoError(t, err)
	second, err := client.ConfirmLogin(ctx, login.SessionToken)
	require.NoError(t, err)

	require.Equal(t, first, second, "second confirmation must be a no-op")
}

func TestConfirmLoginNeverInitiated(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestClient(t, staticResolver{user: teacherUser()})

	session, err := client.ConfirmLogin(ctx, "never-initiated")
	require.NoError(t, err)
	require.Equal(t, sessions.StatusUnknown, session.Status)
}

func TestConfirmLoginBlockedUserDenied(t *testing.T) {
	ctx := context.Background()
	blocked := teacherUser()
	blocked.Blocked = true
	client, _ := newTestClient(t, staticResolver{user: blocked})

	login, err := client.BeginLogin(ctx, "code")
	require.NoError(t, err)

	session, err := client.ConfirmLogin(ctx, login.SessionToken)
	require.NoError(t, err)
	require.Equal(t, sessions.StatusUnknown, session.Status)

	// The pending record is gone, not left half-confirmed.
	session, err = client.Fetch(ctx, login.SessionToken)
	require.NoError(t, err)
	require.Equal(t, sessions.StatusUnknown, session.Status)
}

func TestRotateAccessTokenIssuesFreshToken(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestClient(t, staticResolver{user: teacherUser()})

	login, err := client.BeginLogin(ctx, "code")
	require.NoError(t, err)
	confirmed, err := client.ConfirmLogin(ctx, login.SessionToken)
	require.NoError(t, err)

	// Advance the minting clock so the new expiry is strictly later.
	restore := token.NowTimeFunc
	token.NowTimeFunc = func() time.Time { return time.Now().Add(time.Minute) }
	defer func() { token.NowTimeFunc = restore }()

	rotated, err := client.RotateAccessToken(ctx, login.SessionToken)
	require.NoError(t, err)
	require.Equal(t, sessions.StatusAuthorized, rotated.Status)
	require.NotEqual(t, confirmed.AccessToken, rotated.AccessToken)
	require.True(t, rotated.AccessTokenExpiresAt.After(confirmed.AccessTokenExpiresAt))
	require.Equal(t, confirmed.RefreshToken, rotated.RefreshToken)
}

func TestRotateAccessTokenExpiredRefreshDeletesRecord(t *testing.T) {
	ctx := context.Background()
	client, repo := newTestClient(t, staticResolver{user: teacherUser()})

	login, err := client.BeginLogin(ctx, "code")
	require.NoError(t, err)
	confirmed, err := client.ConfirmLogin(ctx, login.SessionToken)
	require.NoError(t, err)

	expired := confirmed
	expired.RefreshTokenExpiresAt = time.Now().Add(-time.Hour)
	require.NoError(t, repo.Put(ctx, login.SessionToken, expired, time.Hour))

	session, err := client.RotateAccessToken(ctx, login.SessionToken)
	require.NoError(t, err)
	require.Equal(t, sessions.StatusUnknown, session.Status)

	session, err = client.Fetch(ctx, login.SessionToken)
	require.NoError(t, err)
	require.Equal(t, sessions.StatusUnknown, session.Status, "remote record must be deleted")
}

func TestSetRolesRecomputesPermissions(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestClient(t, staticResolver{user: teacherUser()})

	login, err := client.BeginLogin(ctx, "code")
	require.NoError(t, err)
	_, err = client.ConfirmLogin(ctx, login.SessionToken)
	require.NoError(t, err)

	session, err := client.SetRoles(ctx, login.SessionToken, []rbac.RoleType{rbac.RoleAdmin})
	require.NoError(t, err)
	require.True(t, session.HasPermission(rbac.PermUserListRead))
	require.Equal(t, rbac.PermissionsForRoles([]rbac.RoleType{rbac.RoleAdmin}), session.Permissions)

	downgraded, err := client.SetRoles(ctx, login.SessionToken, []rbac.RoleType{rbac.RoleStudent})
	require.NoError(t, err)
	require.Empty(t, downgraded.Permissions, "permissions are recomputed, never accumulated across calls")
}

func TestSetRolesOnPendingSessionIsNoOp(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestClient(t, staticResolver{user: teacherUser()})

	login, err := client.BeginLogin(ctx, "code")
	require.NoError(t, err)

	session, err := client.SetRoles(ctx, login.SessionToken, []rbac.RoleType{rbac.RoleAdmin})
	require.NoError(t, err)
	require.Equal(t, sessions.StatusAnonymous, session.Status)
	require.Empty(t, session.Permissions)
}

func TestEndSessionDeletesRecord(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestClient(t, staticResolver{user: teacherUser()})

	login, err := client.BeginLogin(ctx, "code")
	require.NoError(t, err)
	_, err = client.ConfirmLogin(ctx, login.SessionToken)
	require.NoError(t, err)

	require.NoError(t, client.EndSession(ctx, login.SessionToken, false))

	session, err := client.Fetch(ctx, login.SessionToken)
	require.NoError(t, err)
	require.Equal(t, sessions.StatusUnknown, session.Status)
}

func TestEndSessionRevokeAllFansOut(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestClient(t, staticResolver{user: teacherUser()})

	first, err := client.BeginLogin(ctx, "code")
	require.NoError(t, err)
	_, err = client.ConfirmLogin(ctx, first.SessionToken)
	require.NoError(t, err)

	second, err := client.BeginLogin(ctx, "code")
	require.NoError(t, err)
	_, err = client.ConfirmLogin(ctx, second.SessionToken)
	require.NoError(t, err)

	require.NoError(t, client.EndSession(ctx, first.SessionToken, true))

	for _, token := range []string{first.SessionToken, second.SessionToken} {
		session, err := client.Fetch(ctx, token)
		require.NoError(t, err)
		require.Equal(t, sessions.StatusUnknown, session.Status)
	}
}
