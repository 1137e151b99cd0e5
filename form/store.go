package form

import (
	"fmt"
	"sync"
	"time"
)

// Store keeps one Form per visitor session
type Store interface {
	// Get returns the form for a session, if present and not expired
	Get(id string) (*Form, bool)

	// GetOrCreate returns the session's form, creating an empty one if needed
	GetOrCreate(id string) *Form

	// Save stores f under id, replacing any existing form
	Save(id string, f *Form) error

	// Delete removes a session
	Delete(id string) error

	// Len returns the number of stored sessions
	Len() int

	// Sweep removes expired sessions and returns how many were removed
	Sweep() int
}

// StoreConfig holds configuration for session expiry
type StoreConfig struct {
	// TTL is how long an untouched session is kept.
	// Set to 0 for no expiration.
	TTL time.Duration
}

// InMemoryStore implements Store using an in-memory map.
// A session expires once its form has not been touched for the TTL.
// Thread-safe for concurrent access.
type InMemoryStore struct {
	sessions map[string]*Form
	config   StoreConfig
	now      func() time.Time
	mu       sync.RWMutex
}

// NewInMemoryStore creates a new in-memory session store
func NewInMemoryStore(config StoreConfig) *InMemoryStore {
	return &InMemoryStore{
		sessions: make(map[string]*Form),
		config:   config,
		now:      time.Now,
	}
}

func (s *InMemoryStore) expired(f *Form, now time.Time) bool {
	return s.config.TTL > 0 && now.Sub(f.UpdatedAt()) > s.config.TTL
}

// Get returns the session's form and refreshes its expiry
func (s *InMemoryStore) Get(id string) (*Form, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, exists := s.sessions[id]
	if !exists {
		return nil, false
	}

	if s.expired(f, s.now()) {
		delete(s.sessions, id)
		return nil, false
	}

	f.touch()
	return f, true
}

// GetOrCreate returns the session's form, creating it if absent or expired
func (s *InMemoryStore) GetOrCreate(id string) *Form {
	if f, ok := s.Get(id); ok {
		return f
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// another request may have created it meanwhile
	if f, exists := s.sessions[id]; exists {
		return f
	}

	f := newForm(s.now)
	s.sessions[id] = f
	return f
}

// Save stores f under id. The form adopts the store's clock and counts as
// touched now.
func (s *InMemoryStore) Save(id string, f *Form) error {
	if id == "" {
		return fmt.Errorf("session id is required")
	}
	if f == nil {
		return fmt.Errorf("form is required")
	}

	f.mu.Lock()
	f.now = s.now
	f.updatedAt = s.now()
	f.mu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = f
	return nil
}

// Delete removes a session
func (s *InMemoryStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[id]; !exists {
		return fmt.Errorf("session %s not found", id)
	}

	delete(s.sessions, id)
	return nil
}

// Len returns the number of stored sessions, expired ones included until swept
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep removes expired sessions
func (s *InMemoryStore) Sweep() int {
	if s.config.TTL <= 0 {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, f := range s.sessions {
		if s.expired(f, now) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}
