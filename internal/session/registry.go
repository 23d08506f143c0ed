package session

import (
	"context"
	"sync"

	"go.mau.fi/whatsmeow"
)

// Sink consumes non-lifecycle network events for one session.
type Sink interface {
	Enqueue(evt interface{})
	Close()
}

// SinkFactory builds the event sink for a newly started session, bound to
// that session's client.
type SinkFactory func(sessionID string, client *whatsmeow.Client) Sink

// Handle is one live session: its client, its event sink, and the cancel
// function that stops its background goroutines.
type Handle struct {
	SessionID string
	Client    *whatsmeow.Client

	sink      Sink
	ctx       context.Context
	cancel    context.CancelFunc
	keepAlive sync.Once
}

// Registry tracks live session handles keyed by session id.
type Registry struct {
	mu      sync.Mutex
	handles map[string]*Handle
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{handles: make(map[string]*Handle)}
}

// Get returns the handle for a session id, if one is live.
func (r *Registry) Get(sessionID string) (*Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.handles[sessionID]
	return h, ok
}

// Put registers a handle, replacing any previous one for the same id.
// The replaced handle, if any, is returned so the caller can tear it down.
func (r *Registry) Put(h *Handle) *Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	old := r.handles[h.SessionID]
	r.handles[h.SessionID] = h
	return old
}

// Remove drops a handle. Removing an unknown id is a no-op.
func (r *Registry) Remove(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handles, sessionID)
}

// All returns a snapshot of the live handles.
func (r *Registry) All() []*Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Handle, 0, len(r.handles))
	for _, h := range r.handles {
		out = append(out, h)
	}
	return out
}
