package web

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Deathstroke97/idoc/internal/appointments"
)

func newTestStore(ttl time.Duration) (*SessionStore, *time.Time) {
	now := time.Date(2025, 2, 15, 10, 0, 0, 0, time.UTC)
	s := NewSessionStore(ttl, func() *appointments.Controller {
		return appointments.NewController(nil)
	})
	s.now = func() time.Time { return now }
	return s, &now
}

func TestSessionStore_CreateAndGet(t *testing.T) {
	s, _ := newTestStore(time.Minute)
	sess := s.Create()
	if sess.ID == "" || sess.Controller == nil {
		t.Fatalf("unexpected session: %+v", sess)
	}

	got, ok := s.Get(sess.ID)
	if !ok || got != sess {
		t.Error("expected to find the created session")
	}
}

func TestSessionStore_GetRejectsMalformedID(t *testing.T) {
	s, _ := newTestStore(time.Minute)
	s.Create()
	if _, ok := s.Get("not-a-uuid"); ok {
		t.Error("expected malformed id to miss")
	}
}

func TestSessionStore_SlidingExpiry(t *testing.T) {
	s, now := newTestStore(time.Minute)
	sess := s.Create()

	*now = now.Add(50 * time.Second)
	if _, ok := s.Get(sess.ID); !ok {
		t.Fatal("expected session alive before ttl")
	}

	*now = now.Add(50 * time.Second)
	if _, ok := s.Get(sess.ID); !ok {
		t.Fatal("expected access to extend the session")
	}

	*now = now.Add(2 * time.Minute)
	if _, ok := s.Get(sess.ID); ok {
		t.Error("expected session expired")
	}
	if s.Len() != 0 {
		t.Errorf("expected expired session removed, got %d", s.Len())
	}
}

func TestSessionStore_Sweep(t *testing.T) {
	s, now := newTestStore(time.Minute)
	s.Create()
	s.Create()

	*now = now.Add(30 * time.Second)
	fresh := s.Create()

	*now = now.Add(45 * time.Second)
	if removed := s.Sweep(); removed != 2 {
		t.Errorf("expected 2 removed, got %d", removed)
	}
	if _, ok := s.Get(fresh.ID); !ok {
		t.Error("expected the fresh session to survive")
	}
}

func TestSession_ClaimInitialLoadOnce(t *testing.T) {
	s, _ := newTestStore(time.Minute)
	sess := s.Create()
	if !sess.claimInitialLoad() {
		t.Fatal("expected first claim to succeed")
	}
	if sess.claimInitialLoad() {
		t.Error("expected second claim to fail")
	}

	other := s.Create()
	other.markLoaded()
	if other.claimInitialLoad() {
		t.Error("expected no initial load after an explicit action")
	}
}

func TestSessionStore_StartSweeper(t *testing.T) {
	s, _ := newTestStore(time.Minute)

	if _, err := s.StartSweeper("not a schedule", zerolog.Nop()); err == nil {
		t.Error("expected error for invalid schedule")
	}

	c, err := s.StartSweeper("@every 1h", zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(c.Entries()) != 1 {
		t.Errorf("expected one scheduled entry, got %d", len(c.Entries()))
	}
	c.Stop()
}
