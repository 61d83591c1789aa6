package progress

import (
	"sync"

	"github.com/google/uuid"
)

// ViewSet remembers which verses have been counted during one reading
// session. It lives in memory only and starts empty on every run.
type ViewSet struct {
	id   string
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewViewSet starts a new session.
func NewViewSet() *ViewSet {
	return &ViewSet{
		id:   uuid.NewString(),
		seen: make(map[string]struct{}),
	}
}

// ID identifies the session in logs.
func (s *ViewSet) ID() string {
	return s.id
}

// Add inserts key and reports whether it was not already present.
func (s *ViewSet) Add(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.seen[key]; ok {
		return false
	}
	s.seen[key] = struct{}{}
	return true
}

// Len returns the number of counted verses.
func (s *ViewSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}
