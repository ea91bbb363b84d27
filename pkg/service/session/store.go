package session

import (
	"sync"
	"time"

	"github.com/moneta-lab/moneta/pkg/domain/model"
)

// DefaultCapacity is the number of sessions kept in memory before the least
// recently used one is evicted. In-memory history would otherwise grow
// without bound for the process lifetime.
const DefaultCapacity = 128

// Session is the in-memory ordered history of one conversation thread.
// Messages are only ever appended, never rewritten.
type Session struct {
	id string

	// turnMu serializes turns: at most one orchestrator turn may be
	// in flight per session.
	turnMu sync.Mutex

	mu       sync.RWMutex
	messages []*model.Message
	lastUsed time.Time
}

// ID returns the session identifier
func (s *Session) ID() string {
	return s.id
}

// LockTurn blocks until this session has no other turn in flight
func (s *Session) LockTurn() {
	s.turnMu.Lock()
}

// UnlockTurn releases the turn lock
func (s *Session) UnlockTurn() {
	s.turnMu.Unlock()
}

// Messages returns a copy of the session history, oldest first
func (s *Session) Messages() []*model.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*model.Message, len(s.messages))
	for i, m := range s.messages {
		result[i] = m.Clone()
	}
	return result
}

// Append adds messages to the session history in order
func (s *Session) Append(msgs ...*model.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range msgs {
		s.messages = append(s.messages, m.Clone())
	}
}

// Len returns the number of messages in the session
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// Store is a keyed session store. Sessions are created lazily on first
// reference and evicted least-recently-used once capacity is exceeded.
type Store struct {
	mu       sync.Mutex
	capacity int
	sessions map[string]*Session
}

// NewStore creates a session store. A non-positive capacity falls back to
// DefaultCapacity.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{
		capacity: capacity,
		sessions: make(map[string]*Session),
	}
}

// Get returns the session for id, creating it if needed. Accessing a
// session refreshes its eviction age.
func (st *Store) Get(id string) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, ok := st.sessions[id]
	if !ok {
		s = &Session{id: id}
		st.sessions[id] = s
	}
	// Refresh age before eviction so a freshly created session is never
	// its own victim
	s.lastUsed = time.Now()
	if !ok {
		st.evictLocked()
	}
	return s
}

// Len returns the number of live sessions
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// evictLocked drops least-recently-used sessions until within capacity.
// The capacity is small enough that a linear scan is fine.
func (st *Store) evictLocked() {
	for len(st.sessions) > st.capacity {
		var oldest *Session
		for _, s := range st.sessions {
			if oldest == nil || s.lastUsed.Before(oldest.lastUsed) {
				oldest = s
			}
		}
		delete(st.sessions, oldest.id)
	}
}
