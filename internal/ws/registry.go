package ws

import (
	"log/slog"
	"sync"
	"time"

	"github.com/filenest/backend/internal/metrics"
	"github.com/gorilla/websocket"
)

// Registry is the set of live sessions. Broadcast snapshots the membership
// under the read lock and sends outside it, so Remove may run concurrently
// with an in-flight fan-out.
type Registry struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	maxSessions int
	// closed is set by CloseAll; no session may join afterwards.
	closed bool
}

// NewRegistry returns an empty registry. A maxSessions of zero or less means
// no limit.
func NewRegistry(maxSessions int) *Registry {
	return &Registry{
		sessions:    make(map[string]*Session),
		maxSessions: maxSessions,
	}
}

// Add registers s. It fails with ErrRegistryClosed after CloseAll,
// ErrTooManyConnections when the limit is reached and ErrSessionClosed if s
// was closed before it could be added.
func (r *Registry) Add(s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRegistryClosed
	}
	if r.maxSessions > 0 && len(r.sessions) >= r.maxSessions {
		metrics.SessionsRejected.Inc()
		return ErrTooManyConnections
	}
	if !s.Alive() {
		return ErrSessionClosed
	}
	if _, ok := r.sessions[s.ID()]; ok {
		return nil
	}
	r.sessions[s.ID()] = s
	metrics.SessionsTotal.Inc()
	metrics.SessionsActive.Set(float64(len(r.sessions)))
	return nil
}

// Remove unregisters and closes the session with the given id. Removing an
// unknown id is a no-op.
func (r *Registry) Remove(id string) {
	r.remove(id, nil)
}

// remove deletes id if it still maps to want (any session when want is nil)
// and closes it before releasing the lock, so a removed session never
// accepts another message. It reports whether anything was removed.
func (r *Registry) remove(id string, want *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok || (want != nil && s != want) {
		return false
	}
	delete(r.sessions, id)
	metrics.SessionsActive.Set(float64(len(r.sessions)))
	s.Close("removed")
	return true
}

// Broadcast queues msg on every registered session and returns how many
// accepted it. A session that fails to accept is evicted; the rest still
// receive the message.
func (r *Registry) Broadcast(msg []byte) int {
	start := time.Now()
	defer func() { metrics.BroadcastDuration.Observe(time.Since(start).Seconds()) }()

	r.mu.RLock()
	targets := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		targets = append(targets, s)
	}
	r.mu.RUnlock()

	return r.fanOut(targets, msg)
}

// fanOut sends msg to targets, a membership copy that may already be stale.
// A failure on a session removed since the copy was taken is not an
// eviction and is neither logged nor counted.
func (r *Registry) fanOut(targets []*Session, msg []byte) int {
	delivered := 0
	for _, s := range targets {
		if err := s.Send(msg); err != nil {
			if r.remove(s.ID(), s) {
				slog.Warn("dropping session after failed send", "session_id", s.ID(), "error", err)
				metrics.SendFailures.WithLabelValues(failureReason(err)).Inc()
			}
			continue
		}
		delivered++
	}
	metrics.BroadcastDeliveries.Add(float64(delivered))
	return delivered
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Has reports whether a session with the given id is registered.
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sessions[id]
	return ok
}

// CloseAll closes every session with reason in its close frame, empties the
// registry and rejects later Adds.
func (r *Registry) CloseAll(reason string) {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.closed = true
	metrics.SessionsActive.Set(0)
	for _, s := range sessions {
		s.closeWith(websocket.CloseGoingAway, reason)
	}
	r.mu.Unlock()

	if len(sessions) > 0 {
		slog.Info("closed all sessions", "sessions", len(sessions), "reason", reason)
	}
}
