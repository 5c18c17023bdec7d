package sessionmgr_test

import (
	"context"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/go-course-client/internal/config"
	"github.com/jrsteele09/go-course-client/rbac"
	"github.com/jrsteele09/go-course-client/sessionmgr"
	"github.com/jrsteele09/go-course-client/sessions"
	"github.com/jrsteele09/go-course-client/sessions/store"
	"github.com/jrsteele09/go-course-client/token"
	"github.com/jrsteele09/go-course-client/tokencarrier"
	"github.com/jrsteele09/go-course-client/users"
	"github.com/stretchr/testify/require"
)

type staticResolver struct {
	user *users.User
}

func (r staticResolver) Resolve(ctx context.Context, loginToken string) (*users.User, error) {
	return r.user, nil
}

// fakeStore lets tests script individual store operations. Unset functions
// delegate to a harmless default.
type fakeStore struct {
	fetch      func(ctx context.Context, token string) (sessions.Session, error)
	endSession func(ctx context.Context, token string, revokeAll bool) error
}

var _ store.Store = (*fakeStore)(nil)

func (s *fakeStore) Fetch(ctx context.Context, token string) (sessions.Session, error) {
	if s.fetch != nil {
		return s.fetch(ctx, token)
	}
	return sessions.Unknown(), nil
}

func (s *fakeStore) BeginLogin(ctx context.Context, method string) (store.Login, error) {
	return store.Login{SessionToken: "sess-1", LoginToken: "log-1"}, nil
}

func (s *fakeStore) ConfirmLogin(ctx context.Context, sessionToken string) (sessions.Session, error) {
	return sessions.Unknown(), nil
}

func (s *fakeStore) RotateAccessToken(ctx context.Context, sessionToken string) (sessions.Session, error) {
	return sessions.Unknown(), nil
}

func (s *fakeStore) SetRoles(ctx context.Context, sessionToken string, roles []rbac.RoleType) (sessions.Session, error) {
	return sessions.Unknown(), nil
}

func (s *fakeStore) EndSession(ctx context.Context, token string, revokeAll bool) error {
	if s.endSession != nil {
		return s.endSession(ctx, token, revokeAll)
	}
	return nil
}

func newRealStore(t *testing.T) *store.Client {
	t.Helper()

	client, err := store.NewClient(
		store.NewInMemoryRecordRepo(),
		staticResolver{user: &users.User{
			ID:       "user-1",
			FullName: "John Doe",
			Roles:    []rbac.RoleType{rbac.RoleTeacher},
		}},
		token.NewManager(config.Session{}),
		config.Session{},
		config.Authority{},
	)
	require.NoError(t, err)
	return client
}

func TestSnapshotPendingUntilFirstLoad(t *testing.T) {
	manager := sessionmgr.New(newRealStore(t), tokencarrier.NewMemoryCarrier(), config.Session{})
	defer manager.Close()

	snap := manager.Snapshot()
	require.True(t, snap.Loading, "initial load not yet issued must read as pending")
	require.Equal(t, sessions.StatusUnknown, snap.Session.Status)

	require.NoError(t, manager.Refresh(context.Background()))

	snap = manager.Snapshot()
	require.False(t, snap.Loading)
	require.Equal(t, sessions.StatusUnknown, snap.Session.Status)
}

func TestRefreshLoadsStoredSession(t *testing.T) {
	ctx := context.Background()
	sessionStore := newRealStore(t)
	carrier := tokencarrier.NewMemoryCarrier()
	manager := sessionmgr.New(sessionStore, carrier, config.Session{})
	defer manager.Close()

	login, err := manager.BeginLogin(ctx, "code")
	require.NoError(t, err)
	require.Equal(t, sessions.StatusAnonymous, manager.Snapshot().Session.Status)

	_, err = sessionStore.ConfirmLogin(ctx, login.SessionToken)
	require.NoError(t, err)

	require.NoError(t, manager.Refresh(ctx))
	snap := manager.Snapshot()
	require.Equal(t, sessions.StatusAuthorized, snap.Session.Status)
	require.NotNil(t, snap.Session.User)
}

func TestRefreshLastStartedWins(t *testing.T) {
	ctx := context.Background()

	authorized := sessions.Session{Status: sessions.StatusAuthorized, SessionToken: "sess-new"}
	stale := sessions.Session{Status: sessions.StatusAnonymous, SessionToken: "sess-old"}

	firstStarted := make(chan struct{})
	releaseFirst := make(chan struct{})
	calls := 0
	fetcher := &fakeStore{}
	fetcher.fetch = func(ctx context.Context, tok string) (sessions.Session, error) {
		calls++
		if calls == 1 {
			close(firstStarted)
			<-releaseFirst
			return stale, nil
		}
		return authorized, nil
	}

	carrier := tokencarrier.NewMemoryCarrier()
	require.NoError(t, carrier.Write("sess-new", time.Hour))
	manager := sessionmgr.New(fetcher, carrier, config.Session{})
	defer manager.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = manager.Refresh(ctx)
	}()

	<-firstStarted
	require.NoError(t, manager.Refresh(ctx)) // started later, completes first
	close(releaseFirst)
	<-done

	snap := manager.Snapshot()
	require.Equal(t, authorized, snap.Session, "slow early refresh must not overwrite the later one")
	require.False(t, snap.Loading)
}

func TestLoginPollConfirmation(t *testing.T) {
	t.Setenv("LOGIN_POLL_INTERVAL", "10ms")

	ctx := context.Background()
	sessionStore := newRealStore(t)
	manager := sessionmgr.New(sessionStore, tokencarrier.NewMemoryCarrier(), config.Session{})
	defer manager.Close()

	login, err := manager.BeginLogin(ctx, "code")
	require.NoError(t, err)
	manager.StartLoginPoll(ctx)

	_, err = sessionStore.ConfirmLogin(ctx, login.SessionToken)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return manager.Snapshot().Session.Status == sessions.StatusAuthorized
	}, 2*time.Second, 10*time.Millisecond)
}

func TestLoginPollDenial(t *testing.T) {
	t.Setenv("LOGIN_POLL_INTERVAL", "10ms")

	ctx := context.Background()
	sessionStore := newRealStore(t)
	carrier := tokencarrier.NewMemoryCarrier()
	manager := sessionmgr.New(sessionStore, carrier, config.Session{})
	defer manager.Close()

	login, err := manager.BeginLogin(ctx, "code")
	require.NoError(t, err)
	manager.StartLoginPoll(ctx)

	// The authority denied the login: the pending record disappears.
	require.NoError(t, sessionStore.EndSession(ctx, login.SessionToken, false))

	require.Eventually(t, func() bool {
		snap := manager.Snapshot()
		return snap.Session.Status == sessions.StatusUnknown && !snap.Loading
	}, 2*time.Second, 10*time.Millisecond)

	slot, err := carrier.Read()
	require.NoError(t, err)
	require.Empty(t, slot)
}

func TestStartLoginPollTwiceRunsSinglePoller(t *testing.T) {
	t.Setenv("LOGIN_POLL_INTERVAL", "10ms")

	ctx := context.Background()
	var fetches atomic.Int64
	pending := &fakeStore{}
	pending.fetch = func(ctx context.Context, tok string) (sessions.Session, error) {
		fetches.Add(1)
		return sessions.Session{Status: sessions.StatusAnonymous, SessionToken: "sess-1", LoginToken: "log-1"}, nil
	}

	manager := sessionmgr.New(pending, tokencarrier.NewMemoryCarrier(), config.Session{})
	defer manager.Close()

	_, err := manager.BeginLogin(ctx, "code")
	require.NoError(t, err)

	// The remount scenario: the UI re-attaches and starts the poll again for
	// the same pending login. The second start must replace the first poller,
	// not add one beside it.
	manager.StartLoginPoll(ctx)
	manager.StartLoginPoll(ctx)

	time.Sleep(300 * time.Millisecond)
	manager.Close()

	observed := fetches.Load()
	require.Greater(t, observed, int64(0), "the poller must be running")
	require.Less(t, observed, int64(45), "fetch rate of two concurrent pollers, the old one was not cancelled")
}

func TestCloseStopsPollerMutations(t *testing.T) {
	t.Setenv("LOGIN_POLL_INTERVAL", "10ms")

	ctx := context.Background()
	var fetches atomic.Int64
	pending := &fakeStore{}
	pending.fetch = func(ctx context.Context, tok string) (sessions.Session, error) {
		fetches.Add(1)
		return sessions.Session{Status: sessions.StatusAnonymous, SessionToken: "sess-1", LoginToken: "log-1"}, nil
	}

	manager := sessionmgr.New(pending, tokencarrier.NewMemoryCarrier(), config.Session{})

	_, err := manager.BeginLogin(ctx, "code")
	require.NoError(t, err)
	manager.StartLoginPoll(ctx)

	manager.Close()
	settled := fetches.Load()

	// Once Close returns the poller is gone: an authority confirmation landing
	// afterwards must neither be fetched nor applied.
	pending.fetch = func(ctx context.Context, tok string) (sessions.Session, error) {
		fetches.Add(1)
		return sessions.Session{Status: sessions.StatusAuthorized, SessionToken: "sess-1"}, nil
	}
	time.Sleep(50 * time.Millisecond)

	require.Equal(t, settled, fetches.Load())
	require.Equal(t, sessions.StatusAnonymous, manager.Snapshot().Session.Status)
}

func TestFirstRefreshFailureConcludesLoad(t *testing.T) {
	ctx := context.Background()
	unreachable := &fakeStore{
		fetch: func(ctx context.Context, tok string) (sessions.Session, error) {
			return sessions.Unknown(), context.DeadlineExceeded
		},
	}
	manager := sessionmgr.New(unreachable, tokencarrier.NewMemoryCarrier(), config.Session{})
	defer manager.Close()

	require.Error(t, manager.Refresh(ctx))

	snap := manager.Snapshot()
	require.False(t, snap.Loading, "a failed load must not read as still in flight")
	require.Equal(t, sessions.StatusUnknown, snap.Session.Status)
}

func TestBeginLoginCleansUpWhenSlotWriteFails(t *testing.T) {
	ctx := context.Background()
	var ended string
	sessionStore := &fakeStore{
		endSession: func(ctx context.Context, token string, revokeAll bool) error {
			ended = token
			return nil
		},
	}
	manager := sessionmgr.New(sessionStore, failingCarrier{}, config.Session{})
	defer manager.Close()

	_, err := manager.BeginLogin(ctx, "code")
	require.Error(t, err)
	require.Equal(t, "sess-1", ended, "the unreachable pending record must be deleted")
	require.Equal(t, sessions.StatusUnknown, manager.Snapshot().Session.Status)
}

// failingCarrier rejects writes, simulating an unwritable session slot.
type failingCarrier struct{}

func (failingCarrier) Read() (string, error)             { return "", nil }
func (failingCarrier) Write(string, time.Duration) error { return os.ErrPermission }
func (failingCarrier) Clear() error                      { return nil }

func TestLogoutAlwaysClears(t *testing.T) {
	ctx := context.Background()
	sessionStore := newRealStore(t)
	carrier := tokencarrier.NewMemoryCarrier()
	manager := sessionmgr.New(sessionStore, carrier, config.Session{})
	defer manager.Close()

	login, err := manager.BeginLogin(ctx, "code")
	require.NoError(t, err)
	_, err = sessionStore.ConfirmLogin(ctx, login.SessionToken)
	require.NoError(t, err)
	require.NoError(t, manager.Refresh(ctx))

	manager.Logout(ctx, true)

	snap := manager.Snapshot()
	require.Equal(t, sessions.StatusUnknown, snap.Session.Status)

	slot, err := carrier.Read()
	require.NoError(t, err)
	require.Empty(t, slot)

	// The remote record is gone as well.
	fetched, err := sessionStore.Fetch(ctx, login.SessionToken)
	require.NoError(t, err)
	require.Equal(t, sessions.StatusUnknown, fetched.Status)
}

func TestLogoutClearsEvenWhenRemoteDeleteFails(t *testing.T) {
	ctx := context.Background()
	failing := &fakeStore{
		endSession: func(ctx context.Context, token string, revokeAll bool) error {
			return context.DeadlineExceeded
		},
	}
	carrier := tokencarrier.NewMemoryCarrier()
	require.NoError(t, carrier.Write("sess-1", time.Hour))
	manager := sessionmgr.New(failing, carrier, config.Session{})
	defer manager.Close()

	manager.Logout(ctx, false)

	require.Equal(t, sessions.StatusUnknown, manager.Snapshot().Session.Status)
	slot, err := carrier.Read()
	require.NoError(t, err)
	require.Empty(t, slot)
}
