package ws

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/filenest/backend/internal/logging"
	"github.com/filenest/backend/internal/metrics"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"
)

type HandlerConfig struct {
	Session        SessionConfig
	AllowedOrigins []string
	// InboundRate paces each session's inbound messages, in messages per
	// second. Zero disables pacing.
	InboundRate       float64
	InboundBurst      int
	SnapshotOnConnect bool
}

// Handler upgrades /ws requests and runs one echo loop per session.
type Handler struct {
	registry    *Registry
	broadcaster *Broadcaster
	clock       clockwork.Clock
	cfg         HandlerConfig
	upgrader    websocket.Upgrader

	allowedOrigins map[string]bool
	allowedHosts   map[string]bool

	// mu orders wg.Add against Shutdown so no loop starts after Wait begins.
	mu      sync.Mutex
	closing bool
	wg      sync.WaitGroup
}

// NewHandler builds a Handler. broadcaster may be nil when snapshots on
// connect are not wanted.
func NewHandler(registry *Registry, broadcaster *Broadcaster, clock clockwork.Clock, cfg HandlerConfig) *Handler {
	h := &Handler{
		registry:       registry,
		broadcaster:    broadcaster,
		clock:          clock,
		cfg:            cfg,
		allowedOrigins: make(map[string]bool),
		allowedHosts:   make(map[string]bool),
	}
	for _, origin := range cfg.AllowedOrigins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		h.allowedOrigins[trimmed] = true
		if parsed, err := url.Parse(trimmed); err == nil && parsed.Host != "" {
			h.allowedHosts[parsed.Host] = true
		}
	}
	h.upgrader = websocket.Upgrader{CheckOrigin: h.checkOrigin}
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.track() {
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}
	defer h.wg.Done()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		slog.Debug("ws upgrade failed", "remote_addr", r.RemoteAddr, "error", err)
		return
	}
	h.Serve(r.Context(), conn, r.RemoteAddr)
}

// Serve runs the session loop for an upgraded connection and returns once
// the session has been removed and its connection closed.
func (h *Handler) Serve(ctx context.Context, conn Conn, remoteAddr string) {
	s := NewSession(conn, h.cfg.Session, h.clock)
	log := logging.WithSession(s.ID()).With("remote_addr", remoteAddr)

	if err := h.registry.Add(s); err != nil {
		log.Warn("rejecting session", "error", err)
		code := websocket.CloseTryAgainLater
		if errors.Is(err, ErrRegistryClosed) {
			code = websocket.CloseGoingAway
		}
		s.closeWith(code, err.Error())
		<-s.Done()
		return
	}
	log.Info("session connected", "sessions", h.registry.Len())

	defer func() {
		h.registry.Remove(s.ID())
		s.Close("session ended")
		<-s.Done()
		log.Info("session disconnected", "sessions", h.registry.Len())
	}()

	if h.cfg.SnapshotOnConnect && h.broadcaster != nil {
		if msg, err := h.broadcaster.Current(ctx); err != nil {
			log.Warn("initial snapshot unavailable", "error", err)
		} else if err := s.Send(msg); err != nil {
			log.Warn("initial snapshot not delivered", "error", err)
			return
		}
	}

	limiter := h.newLimiter()
	for {
		text, err := s.Receive()
		if err != nil {
			switch {
			case errors.Is(err, ErrPeerClosed):
				log.Debug("peer closed connection")
			case errors.Is(err, ErrSessionClosed):
				log.Debug("session closed locally")
			default:
				log.Debug("read failed", "error", err)
			}
			return
		}

		if err := limiter.Wait(ctx); err != nil {
			return
		}

		if err := s.Send(EncodeEcho(text)); err != nil {
			log.Warn("dropping session after failed echo", "error", err)
			metrics.SendFailures.WithLabelValues(failureReason(err)).Inc()
			return
		}
		metrics.EchoesTotal.Inc()
		log.Debug("queued reply", "type", MsgEcho, "bytes", len(text))
	}
}

// Shutdown refuses new upgrades, closes every registered session and waits
// for their loops to finish or ctx to expire.
func (h *Handler) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	h.closing = true
	h.mu.Unlock()
	h.registry.CloseAll("server shutting down")

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// track registers a session loop unless Shutdown has started.
func (h *Handler) track() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closing {
		return false
	}
	h.wg.Add(1)
	return true
}

// Wait blocks until every session loop started by ServeHTTP has returned.
func (h *Handler) Wait() {
	h.wg.Wait()
}

func (h *Handler) newLimiter() *rate.Limiter {
	if h.cfg.InboundRate <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := h.cfg.InboundBurst
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(h.cfg.InboundRate), burst)
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	if h.allowedOrigins[origin] {
		return true
	}
	parsed, err := url.Parse(origin)
	if err != nil || parsed.Host == "" {
		return false
	}
	if h.allowedHosts[parsed.Host] {
		return true
	}
	// Same-origin requests are always allowed.
	return parsed.Host == r.Host
}
