package web

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/Deathstroke97/idoc/internal/appointments"
)

// Session is one browser's view of the appointments screen.
type Session struct {
	ID         string
	Controller *appointments.Controller

	loaded   atomic.Bool
	lastSeen time.Time
}

// claimInitialLoad returns true exactly once per session, and never after an
// explicit action has already loaded data.
func (s *Session) claimInitialLoad() bool {
	return s.loaded.CompareAndSwap(false, true)
}

func (s *Session) markLoaded() {
	s.loaded.Store(true)
}

// SessionStore maps session ids to controllers with sliding expiry.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	factory  func() *appointments.Controller
	now      func() time.Time
}

func NewSessionStore(ttl time.Duration, factory func() *appointments.Controller) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		factory:  factory,
		now:      time.Now,
	}
}

// Get returns the live session for id and refreshes its expiry.
func (s *SessionStore) Get(id string) (*Session, bool) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	now := s.now()
	if now.Sub(sess.lastSeen) > s.ttl {
		delete(s.sessions, id)
		return nil, false
	}
	sess.lastSeen = now
	return sess, true
}

func (s *SessionStore) Create() *Session {
	sess := &Session{
		ID:         uuid.New().String(),
		Controller: s.factory(),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sess.lastSeen = s.now()
	s.sessions[sess.ID] = sess
	return sess
}

// Sweep drops expired sessions and reports how many were removed.
func (s *SessionStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	removed := 0
	for id, sess := range s.sessions {
		if now.Sub(sess.lastSeen) > s.ttl {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// StartSweeper runs Sweep on a cron schedule such as "@every 1m". The caller
// stops the returned scheduler on shutdown.
func (s *SessionStore) StartSweeper(schedule string, logger zerolog.Logger) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		if n := s.Sweep(); n > 0 {
			logger.Debug().Int("removed", n).Int("active", s.Len()).Msg("expired sessions swept")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("schedule session sweep %q: %w", schedule, err)
	}
	c.Start()
	return c, nil
}
