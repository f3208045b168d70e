package capture

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/chatexport/internal/transcript"
)

// Registry holds the live capture sessions of a process.
type Registry struct {
	normalizer *transcript.Normalizer
	merger     *transcript.Merger

	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

// NewRegistry creates a registry whose sessions share one normalizer and merger.
func NewRegistry(n *transcript.Normalizer, m *transcript.Merger) *Registry {
	return &Registry{
		normalizer: n,
		merger:     m,
		sessions:   make(map[uuid.UUID]*Session),
	}
}

// Create starts a session with a fresh ID.
func (r *Registry) Create() *Session {
	return r.GetOrCreate(uuid.New())
}

// Get returns the session with the given ID.
func (r *Registry) Get(id uuid.UUID) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// GetOrCreate returns the session with the given ID, starting it if needed.
func (r *Registry) GetOrCreate(id uuid.UUID) *Session {
	return r.GetOrCreateWith(id, nil)
}

// GetOrCreateWith is GetOrCreate that runs setup on a newly started session
// before any other caller can see it.
func (r *Registry) GetOrCreateWith(id uuid.UUID, setup func(*Session)) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		return s
	}
	s := NewSession(id, r.normalizer, r.merger)
	if setup != nil {
		setup(s)
	}
	r.sessions[id] = s
	return s
}

// Delete forgets a session.
func (r *Registry) Delete(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// List returns all sessions, oldest first.
func (r *Registry) List() []*Session {
	r.mu.RLock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Len returns the number of sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
