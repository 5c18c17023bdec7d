package store

import (
	"context"
	"sync"
	"time"

	"github.com/jrsteele09/go-course-client/sessions"
)

// InMemoryRecordRepo is an in-memory implementation of RecordRepo, used in
// tests and in the demo client when no Redis address is configured.
type InMemoryRecordRepo struct {
	mu      sync.RWMutex
	records map[string]storedRecord
}

type storedRecord struct {
	session   sessions.Session
	expiresAt time.Time
}

var _ RecordRepo = (*InMemoryRecordRepo)(nil)

// NewInMemoryRecordRepo creates a new in-memory session record repository
func NewInMemoryRecordRepo() *InMemoryRecordRepo {
	return &InMemoryRecordRepo{
		records: make(map[string]storedRecord),
	}
}

func (r *InMemoryRecordRepo) Get(ctx context.Context, token string) (sessions.Session, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.records[token]
	if !ok || time.Now().After(record.expiresAt) {
		return sessions.Session{}, false, nil
	}
	return record.session, true, nil
}

func (r *InMemoryRecordRepo) Put(ctx context.Context, token string, session sessions.Session, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records[token] = storedRecord{
		session:   session,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

func (r *InMemoryRecordRepo) Delete(ctx context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.records, token)
	return nil
}

func (r *InMemoryRecordRepo) DeleteByUser(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for token, record := range r.records {
		if record.session.User != nil && record.session.User.ID == userID {
			delete(r.records, token)
		}
	}
	return nil
}
