package chat

import (
	"errors"
	"sync"
	"time"
)

// ErrTooManySessions is returned by Open once Max sessions are live.
var ErrTooManySessions = errors.New("too many chat sessions")

// Hub keeps the live sessions, one per visitor page.
type Hub struct {
	Max int // 0 = unlimited

	opts Options

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewHub(opts Options) *Hub {
	return &Hub{opts: opts, sessions: map[string]*Session{}}
}

func (h *Hub) Open() (*Session, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.Max > 0 && len(h.sessions) >= h.Max {
		return nil, ErrTooManySessions
	}
	s := NewSession(h.opts)
	h.sessions[s.ID] = s
	return s, nil
}

func (h *Hub) Get(id string) (*Session, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s, ok := h.sessions[id]
	return s, ok
}

func (h *Hub) Close(id string) {
	h.mu.Lock()
	s, ok := h.sessions[id]
	delete(h.sessions, id)
	h.mu.Unlock()
	if ok {
		s.Close()
	}
}

// Sweep closes sessions with no activity for longer than idle. A session
// still waiting on its reply is kept. It returns how many were closed.
func (h *Hub) Sweep(idle time.Duration, now time.Time) int {
	h.mu.Lock()
	var stale []*Session
	for id, s := range h.sessions {
		if s.State() == StateIdle && now.Sub(s.LastActive()) > idle {
			delete(h.sessions, id)
			stale = append(stale, s)
		}
	}
	h.mu.Unlock()
	for _, s := range stale {
		s.Close()
	}
	return len(stale)
}

// Shutdown cancels every in-flight reply.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	all := h.sessions
	h.sessions = map[string]*Session{}
	h.mu.Unlock()
	for _, s := range all {
		s.Close()
	}
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}
