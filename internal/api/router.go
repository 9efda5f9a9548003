package api

import (
	"net/http"
	"time"

	"github.com/filenest/backend/internal/catalog"
	"github.com/filenest/backend/internal/snapshot"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// APIVersion is reported by the root endpoint.
const APIVersion = "1.0.0"

// SessionCounter reports how many WebSocket sessions are live.
type SessionCounter interface {
	Len() int
}

type Deps struct {
	Store          *catalog.Store
	Source         snapshot.Source
	Sessions       SessionCounter
	WS             http.Handler
	AllowedOrigins []string
	// RequestTimeout bounds REST handlers. It never applies to /ws.
	RequestTimeout time.Duration
}

// Server serves the REST API next to the WebSocket endpoint.
type Server struct {
	store    *catalog.Store
	source   snapshot.Source
	sessions SessionCounter
}

// NewRouter builds the HTTP handler for the whole service.
func NewRouter(d Deps) http.Handler {
	s := &Server{store: d.Store, source: d.Source, sessions: d.Sessions}

	timeout := d.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if d.WS != nil {
		r.Handle("/ws", d.WS)
	}
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(requestMetrics)
		r.Use(securityHeaders)
		r.Use(middleware.Timeout(timeout))

		r.Get("/", s.root)
		r.Get("/healthz", s.healthz)
		r.Route("/api/v1", func(r chi.Router) {
			r.Get("/search", s.search)
			r.Get("/suggestions", s.suggestions)
			r.Get("/network/stats", s.networkStats)
			r.Get("/peers", s.peers)
			r.Post("/files/upload", s.upload)
			r.Get("/files/{id}/download", s.download)
		})
	})

	return r
}
