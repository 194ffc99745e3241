package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/labelsense/labelsense/internal/metrics"
	"github.com/labelsense/labelsense/pkg/analysis"
)

// Config carries the tunables for the in-memory store.
type Config struct {
	// TTL is the sliding idle timeout after which a session expires.
	TTL time.Duration

	// HistoryLimit caps the number of history entries kept per session.
	HistoryLimit int
}

// MemoryStore holds sessions in a mutex-guarded map. Stored sessions are
// treated as immutable snapshots: every mutation installs a replacement
// value, and callers always receive copies.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	cfg      Config
	logger   zerolog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewMemoryStore builds an empty store. Metrics may be nil.
func NewMemoryStore(cfg Config, logger zerolog.Logger, m *metrics.Metrics) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
		cfg:      cfg,
		logger:   logger.With().Str("component", "session_store").Logger(),
		metrics:  m,
		now:      time.Now,
	}
}

// Create implements Store.
func (s *MemoryStore) Create(ctx context.Context, artifacts analysis.Artifacts) (*Session, error) {
	now := s.now()
	sess := &Session{
		ID:             uuid.NewString(),
		Artifacts:      artifacts,
		History:        []HistoryEntry{},
		CreatedAt:      now,
		LastAccessedAt: now,
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	size := len(s.sessions)
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.SessionsCreatedTotal.Inc()
		s.metrics.SessionsActive.Set(float64(size))
	}
	s.logger.Debug().Str("session_id", sess.ID).Msg("session created")

	return copySession(sess), nil
}

// Get implements Store. Expired sessions are removed eagerly so a stale id
// behaves identically whether or not the sweeper ran first.
func (s *MemoryStore) Get(ctx context.Context, id string) (*Session, bool) {
	now := s.now()

	s.mu.Lock()
	sess, ok := s.sessions[id]
	if !ok {
		s.mu.Unlock()
		return nil, false
	}
	if s.expired(sess, now) {
		delete(s.sessions, id)
		size := len(s.sessions)
		s.mu.Unlock()
		s.noteExpired(1, size)
		return nil, false
	}
	next := copySession(sess)
	next.LastAccessedAt = now
	s.sessions[id] = next
	s.mu.Unlock()

	return copySession(next), true
}

// AppendHistory implements Store.
func (s *MemoryStore) AppendHistory(ctx context.Context, id, role, content string) (*Session, bool) {
	now := s.now()

	s.mu.Lock()
	sess, ok := s.sessions[id]
	if !ok {
		s.mu.Unlock()
		return nil, false
	}
	if s.expired(sess, now) {
		delete(s.sessions, id)
		size := len(s.sessions)
		s.mu.Unlock()
		s.noteExpired(1, size)
		return nil, false
	}

	next := copySession(sess)
	next.History = append(next.History, HistoryEntry{
		Role:      role,
		Content:   content,
		Timestamp: now,
	})
	if s.cfg.HistoryLimit > 0 && len(next.History) > s.cfg.HistoryLimit {
		next.History = next.History[len(next.History)-s.cfg.HistoryLimit:]
	}
	next.LastAccessedAt = now
	s.sessions[id] = next
	s.mu.Unlock()

	return copySession(next), true
}

// Delete implements Store.
func (s *MemoryStore) Delete(ctx context.Context, id string) bool {
	s.mu.Lock()
	_, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
	}
	size := len(s.sessions)
	s.mu.Unlock()

	if ok {
		if s.metrics != nil {
			s.metrics.SessionsDeletedTotal.Inc()
			s.metrics.SessionsActive.Set(float64(size))
		}
		s.logger.Debug().Str("session_id", id).Msg("session deleted")
	}
	return ok
}

// Sweep implements Store.
func (s *MemoryStore) Sweep(ctx context.Context) int {
	now := s.now()

	s.mu.Lock()
	removed := 0
	for id, sess := range s.sessions {
		if s.expired(sess, now) {
			delete(s.sessions, id)
			removed++
		}
	}
	size := len(s.sessions)
	s.mu.Unlock()

	if removed > 0 {
		s.noteExpired(removed, size)
		s.logger.Info().Int("removed", removed).Int("remaining", size).Msg("expired sessions swept")
	}
	return removed
}

// Len implements Store.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	s.sessions = make(map[string]*Session)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) expired(sess *Session, now time.Time) bool {
	return s.cfg.TTL > 0 && now.Sub(sess.LastAccessedAt) > s.cfg.TTL
}

func (s *MemoryStore) noteExpired(n, remaining int) {
	if s.metrics == nil {
		return
	}
	s.metrics.SessionsExpiredTotal.Add(float64(n))
	s.metrics.SessionsActive.Set(float64(remaining))
}

func copySession(sess *Session) *Session {
	cp := *sess
	cp.History = make([]HistoryEntry, len(sess.History))
	copy(cp.History, sess.History)
	return &cp
}
