// Package server exposes the dashboard API: REST routes for configuration,
// rule CRUD, histories and bot control, plus a WebSocket endpoint streaming
// live events. Route paths and payload shapes follow the dashboard's existing
// wire contract.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"zapbot/internal/bus"
	"zapbot/internal/config"
	"zapbot/internal/engine"
)

// BotController is the session as the routes see it.
type BotController interface {
	Start(ctx context.Context) error
	Stop() bool
	Status() string
	QRCode() string
	Running() bool
}

// Deps wires the server.
type Deps struct {
	Manager  *config.Manager
	Bot      BotController
	Bus      *bus.Bus
	Messages *engine.Log[engine.MessageRecord]
	Replies  *engine.Log[engine.ReplyRecord]
	// StaticDir, when it exists, is served at the root for the dashboard UI.
	StaticDir string
	Log       zerolog.Logger
}

// Server wraps chi and the stdlib http.Server.
type Server struct {
	srv *http.Server
	mux *chi.Mux
	log zerolog.Logger
}

func New(addr string, d Deps) *Server {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	registerRoutes(r, d)

	if d.StaticDir != "" {
		if _, err := os.Stat(d.StaticDir); err == nil {
			r.Handle("/*", http.FileServer(http.Dir(d.StaticDir)))
		}
	}

	return &Server{
		mux: r,
		log: d.Log,
		srv: &http.Server{
			Addr:              addr,
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.mux }

// Run starts the server and blocks until shutdown.
func (s *Server) Run() error {
	s.log.Info().Str("addr", s.srv.Addr).Msg("dashboard listening")
	err := s.srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

type result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Config  any    `json:"config,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
