package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/discourselab/cosmos/internal/cosmos"
)

// Store manages ephemeral exploration sessions. A session accumulates the
// user's swipe reactions and current position while they fly through a
// cosmos; nothing here is ever persisted.
type Store interface {
	EnsureSession(id string, ttl time.Duration) (*Session, error)
	GetSession(id string) (*Session, bool)
}

// Session is one user's live exploration state.
type Session struct {
	id        string
	expiresAt time.Time

	mu       sync.RWMutex
	swipes   []cosmos.SwipeEvent
	position *cosmos.UserPosition
}

func (s *Session) ID() string { return s.id }

// Expire pushes the session's expiry ttl into the future.
func (s *Session) Expire(ttl time.Duration) {
	s.mu.Lock()
	s.expiresAt = time.Now().Add(ttl)
	s.mu.Unlock()
}

// AddSwipe records one reaction. Later reactions to the same post win when
// the narrator folds them in.
func (s *Session) AddSwipe(ev cosmos.SwipeEvent) {
	if ev.PostID == "" || ev.Reaction == "" {
		return
	}
	s.mu.Lock()
	s.swipes = append(s.swipes, ev)
	s.mu.Unlock()
}

// Swipes returns a copy of the recorded reactions in arrival order.
func (s *Session) Swipes() []cosmos.SwipeEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]cosmos.SwipeEvent, len(s.swipes))
	copy(out, s.swipes)
	return out
}

// SetPosition updates the user's location in the discussion space.
func (s *Session) SetPosition(pos cosmos.UserPosition) {
	s.mu.Lock()
	p := pos
	s.position = &p
	s.mu.Unlock()
}

// Position returns the user's current location, nil when never set.
func (s *Session) Position() *cosmos.UserPosition {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.position == nil {
		return nil
	}
	p := *s.position
	return &p
}

func (s *Session) expired(now time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return now.After(s.expiresAt)
}

// InMemoryStore keeps sessions in a map and sweeps expired ones lazily on
// access. Good enough for a single-process deployment.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string]*Session)}
}

// EnsureSession returns the live session with the given id, or creates a
// fresh one (with a generated id when id is empty).
func (st *InMemoryStore) EnsureSession(id string, ttl time.Duration) (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sweepLocked(time.Now())

	if id != "" {
		if sess, ok := st.sessions[id]; ok {
			sess.Expire(ttl)
			return sess, nil
		}
	} else {
		id = uuid.NewString()
	}

	sess := &Session{id: id, expiresAt: time.Now().Add(ttl)}
	st.sessions[id] = sess
	return sess, nil
}

// GetSession returns the live session with the given id, if any.
func (st *InMemoryStore) GetSession(id string) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sweepLocked(time.Now())

	sess, ok := st.sessions[id]
	return sess, ok
}

func (st *InMemoryStore) sweepLocked(now time.Time) {
	for id, sess := range st.sessions {
		if sess.expired(now) {
			delete(st.sessions, id)
		}
	}
}
