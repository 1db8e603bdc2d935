package chat

import (
	"sync"

	"github.com/google/uuid"

	"go-chat-memory/internal/metrics"
)

// Registry tracks connected sessions. All access goes through one lock,
// so connect/disconnect never race with a broadcast snapshot.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Connect stores a new session and returns its id.
func (r *Registry) Connect(conn Conn, name string) string {
	id := uuid.NewString()

	r.mu.Lock()
	r.sessions[id] = &Session{ID: id, Name: name, Conn: conn}
	n := len(r.sessions)
	r.mu.Unlock()

	metrics.SessionsConnected.Set(float64(n))
	return id
}

// Disconnect removes a session and returns it, or nil if it was already gone.
func (r *Registry) Disconnect(id string) *Session {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	n := len(r.sessions)
	r.mu.Unlock()

	metrics.SessionsConnected.Set(float64(n))
	return s
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// NameOf returns the display name for id, or UnknownName.
func (r *Registry) NameOf(id string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.sessions[id]; ok {
		return s.Name
	}
	return UnknownName
}

// Get returns a copy of the session for id.
func (r *Registry) Get(id string) (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return Session{}, false
	}
	return *s, true
}

// Snapshot copies the live sessions. Callers iterate the copy without the lock.
func (r *Registry) Snapshot() []Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, *s)
	}
	return out
}
