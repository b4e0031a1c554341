package session

import (
	"context"
	"sync"
	"time"

	appLog "calingen/internal/log"
)

// MemoryStore is the in-process Store backend. Expired flows linger until
// the next Sweep (scheduled via cron in serve mode) or until touched.
type MemoryStore struct {
	ttl time.Duration

	mu       sync.Mutex
	sessions map[string]*memorySession
}

type memorySession struct {
	values   map[string]string
	deadline time.Time
}

// NewMemoryStore creates an in-memory store whose flows expire after ttl
// of inactivity.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &MemoryStore{
		ttl:      ttl,
		sessions: make(map[string]*memorySession),
	}
}

func (s *MemoryStore) Set(_ context.Context, sid, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.live(sid)
	if sess == nil {
		sess = &memorySession{values: make(map[string]string)}
		s.sessions[sid] = sess
	}
	sess.values[key] = value
	sess.deadline = time.Now().Add(s.ttl)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, sid, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.live(sid)
	if sess == nil {
		return "", false, nil
	}
	value, ok := sess.values[key]
	return value, ok, nil
}

func (s *MemoryStore) Pop(_ context.Context, sid, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.live(sid)
	if sess == nil {
		return "", false, nil
	}
	value, ok := sess.values[key]
	if ok {
		delete(sess.values, key)
	}
	if len(sess.values) == 0 {
		delete(s.sessions, sid)
	}
	return value, ok, nil
}

// live returns the session for sid, dropping it first if expired. The
// caller must hold s.mu.
func (s *MemoryStore) live(sid string) *memorySession {
	sess, ok := s.sessions[sid]
	if !ok {
		return nil
	}
	if time.Now().After(sess.deadline) {
		delete(s.sessions, sid)
		return nil
	}
	return sess
}

// Sweep drops all expired sessions and returns how many were removed.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	removed := 0
	for sid, sess := range s.sessions {
		if now.After(sess.deadline) {
			delete(s.sessions, sid)
			removed++
		}
	}
	if removed > 0 {
		appLog.Debug("session sweep", "removed", removed)
	}
	return removed
}
