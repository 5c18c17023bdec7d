// Package sessionmgr owns the single in-memory Session for a running client:
// initial load, refresh, login initiation, login-status polling, and logout.
// All other components read session state through it and never write.
package sessionmgr

import (
	"context"
	"sync"
	"time"

	"github.com/jrsteele09/go-course-client/internal/config"
	"github.com/jrsteele09/go-course-client/sessions"
	"github.com/jrsteele09/go-course-client/sessions/store"
	"github.com/jrsteele09/go-course-client/tokencarrier"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Snapshot is the session state handed to guards and UI. Loading marks a
// session load in flight, which is distinct from Unknown: guards render a
// pending state instead of flashing the unauthenticated view.
type Snapshot struct {
	Session sessions.Session
	Loading bool
}

// Manager is the session state machine. The held Session is replaced
// wholesale on every transition, never mutated in place.
type Manager struct {
	store   store.Store
	carrier tokencarrier.Carrier
	config  config.SessionConfig

	mu       sync.Mutex
	current  sessions.Session
	inflight int
	issued   uint64 // sequence of the most recently started refresh
	applied  uint64 // sequence of the refresh whose result is currently held

	pollCancel context.CancelFunc
	pollToken  string
	wg         sync.WaitGroup
}

// New creates a manager in the Unknown state with the initial load still
// pending. Callers should issue Refresh during bootstrap.
func New(sessionStore store.Store, carrier tokencarrier.Carrier, cfg config.SessionConfig) *Manager {
	return &Manager{
		store:   sessionStore,
		carrier: carrier,
		config:  cfg,
		current: sessions.Unknown(),
	}
}

// Snapshot returns the current session and whether a load is in flight.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		Session: m.current,
		Loading: m.inflight > 0 || m.applied == 0,
	}
}

// Refresh re-fetches the session record behind the persisted token and
// replaces the in-memory value. Overlapping refreshes are sequenced by start
// order: a refresh only applies its result if no later-started refresh has
// already applied, so a slow early fetch can never overwrite a newer state.
func (m *Manager) Refresh(ctx context.Context) error {
	m.mu.Lock()
	m.issued++
	seq := m.issued
	m.inflight++
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inflight--
		m.mu.Unlock()
	}()

	token, err := m.carrier.Read()
	if err != nil {
		log.Warn().Err(err).Msg("session slot unreadable, treating as absent")
		token = ""
	}

	session, err := m.store.Fetch(ctx, token)
	if err != nil {
		// The load concluded, even though it failed: guards must not report
		// Pending forever. The held session stays as it was and the caller
		// decides whether to retry.
		m.mu.Lock()
		if seq > m.applied {
			m.applied = seq
		}
		m.mu.Unlock()
		return errors.Wrap(err, "[Manager.Refresh] store.Fetch")
	}

	m.mu.Lock()
	if seq > m.applied {
		m.applied = seq
		m.current = session
	}
	m.mu.Unlock()
	return nil
}

// BeginLogin initiates a login: allocates the pending remote record, persists
// the session token, and moves the in-memory state to Anonymous. The returned
// Login carries the external authority URL the user must visit.
func (m *Manager) BeginLogin(ctx context.Context, method string) (store.Login, error) {
	login, err := m.store.BeginLogin(ctx, method)
	if err != nil {
		return store.Login{}, errors.Wrap(err, "[Manager.BeginLogin] store.BeginLogin")
	}

	if err := m.carrier.Write(login.SessionToken, m.config.GetSessionTTL()); err != nil {
		// Without the slot the pending record is unreachable; delete it rather
		// than leaving it to expire remotely.
		if endErr := m.store.EndSession(ctx, login.SessionToken, false); endErr != nil {
			log.Warn().Err(endErr).Msg("cleaning up pending login after slot write failure failed")
		}
		return store.Login{}, errors.Wrap(err, "[Manager.BeginLogin] carrier.Write")
	}

	m.mu.Lock()
	m.issued++
	m.applied = m.issued // an older in-flight refresh must not clobber this
	m.current = sessions.Session{
		Status:       sessions.StatusAnonymous,
		SessionToken: login.SessionToken,
		LoginToken:   login.LoginToken,
	}
	m.mu.Unlock()

	return login, nil
}

// StartLoginPoll watches the pending login for external confirmation or
// denial. One poller runs per login attempt: starting a new poll cancels any
// previous one. The poller stops itself as soon as the state leaves
// Anonymous, and is torn down by Logout and Close.
func (m *Manager) StartLoginPoll(ctx context.Context) {
	m.mu.Lock()
	current := m.current
	if current.Status != sessions.StatusAnonymous || current.LoginToken == "" {
		m.mu.Unlock()
		return
	}
	if m.pollCancel != nil {
		m.pollCancel()
	}
	pollCtx, cancel := context.WithCancel(ctx)
	m.pollCancel = cancel
	m.pollToken = current.LoginToken
	m.mu.Unlock()

	m.wg.Add(1)
	go m.pollLoginStatus(pollCtx, current.LoginToken)
}

func (m *Manager) pollLoginStatus(ctx context.Context, loginToken string) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.config.GetLoginPollInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		m.mu.Lock()
		stale := m.current.Status != sessions.StatusAnonymous || m.current.LoginToken != loginToken
		m.mu.Unlock()
		if stale {
			m.stopPoll(loginToken)
			return
		}

		token, err := m.carrier.Read()
		if err != nil || token == "" {
			continue
		}

		session, err := m.store.Fetch(ctx, token)
		if err != nil {
			// Transport failures leave the pending login intact; keep polling.
			log.Warn().Err(err).Msg("login status poll failed")
			continue
		}

		switch session.Status {
		case sessions.StatusAuthorized:
			if err := m.Refresh(ctx); err != nil {
				log.Warn().Err(err).Msg("refresh after login confirmation failed")
			}
			m.stopPoll(loginToken)
			return
		case sessions.StatusUnknown:
			// The pending record is gone: the authority denied the login.
			if err := m.carrier.Clear(); err != nil {
				log.Warn().Err(err).Msg("clearing session slot after denied login failed")
			}
			if err := m.Refresh(ctx); err != nil {
				log.Warn().Err(err).Msg("refresh after denied login failed")
			}
			m.stopPoll(loginToken)
			return
		}
	}
}

// stopPoll releases the poll registration if it still belongs to loginToken.
func (m *Manager) stopPoll(loginToken string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pollToken == loginToken && m.pollCancel != nil {
		m.pollCancel()
		m.pollCancel = nil
		m.pollToken = ""
	}
}

// Logout ends the remote session best-effort, then unconditionally clears the
// persisted slot and forces the in-memory state to Unknown. A failed remote
// delete never leaves the client logged in.
func (m *Manager) Logout(ctx context.Context, all bool) {
	token, err := m.carrier.Read()
	if err != nil {
		log.Warn().Err(err).Msg("session slot unreadable during logout")
	}
	if token != "" {
		if err := m.store.EndSession(ctx, token, all); err != nil {
			log.Warn().Err(err).Msg("remote session delete failed during logout")
		}
	}

	if err := m.carrier.Clear(); err != nil {
		log.Warn().Err(err).Msg("clearing session slot during logout failed")
	}

	m.mu.Lock()
	if m.pollCancel != nil {
		m.pollCancel()
		m.pollCancel = nil
		m.pollToken = ""
	}
	m.issued++
	m.applied = m.issued
	m.current = sessions.Unknown()
	m.mu.Unlock()
}

// Close tears down any running poller and waits for it to exit. No timer may
// outlive the manager.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.pollCancel != nil {
		m.pollCancel()
		m.pollCancel = nil
		m.pollToken = ""
	}
	m.mu.Unlock()
	m.wg.Wait()
}
