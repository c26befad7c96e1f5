package session

import (
	"sync"
	"time"
)

// handle guards one live session. All reads and writes of the session go
// through the handle's mutex.
type handle struct {
	mu sync.Mutex
	s  *Session
}

// Registry holds the live sessions of this process.
type Registry struct {
	mu      sync.RWMutex
	handles map[string]*handle
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{handles: make(map[string]*handle)}
}

// add registers s. When a session with the same id is already present the
// existing handle wins and false is returned.
func (r *Registry) add(s *Session) (*handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if h, ok := r.handles[s.ID()]; ok {
		return h, false
	}
	h := &handle{s: s}
	r.handles[s.ID()] = h
	return h, true
}

// get returns the handle of a live session.
func (r *Registry) get(id string) (*handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handles[id]
	return h, ok
}

// Remove drops a session from memory.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handles, id)
}

// Len is the number of sessions held.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handles)
}

// snapshot returns the current handles so callers can lock them one at a
// time without holding the registry lock.
func (r *Registry) snapshot() []*handle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*handle, 0, len(r.handles))
	for _, h := range r.handles {
		out = append(out, h)
	}
	return out
}

// Sweep evicts finished sessions that ended more than retention ago and
// returns their ids.
func (r *Registry) Sweep(now time.Time, retention time.Duration) []string {
	var expired []string
	for _, h := range r.snapshot() {
		h.mu.Lock()
		end, ended := h.s.EndTime()
		if h.s.Status().Terminal() && ended && now.Sub(end) >= retention {
			expired = append(expired, h.s.ID())
		}
		h.mu.Unlock()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range expired {
		delete(r.handles, id)
	}
	return expired
}
