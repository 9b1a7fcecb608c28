// Package api provides the local HTTP API server for Becoming. A companion
// UI talks to it over REST and hears about state changes over WebSocket.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/becoming/becoming/internal/core"
	"github.com/becoming/becoming/internal/insight"
	"github.com/becoming/becoming/internal/logging"
	"github.com/becoming/becoming/internal/reflection"
	"github.com/becoming/becoming/internal/state"
)

// Server is the HTTP API server
type Server struct {
	router     *chi.Mux
	httpServer *http.Server

	store       *state.Store
	reflections *reflection.Manager
	insights    *insight.Client
	wsHub       *Hub
}

// Config for the server
type Config struct {
	Port    int
	Store   *state.Store
	Insight *insight.Client
}

// New creates a new API server. A nil store is a wiring bug and fails fast.
func New(cfg Config) *Server {
	if cfg.Store == nil {
		panic("api: New called with nil store")
	}

	s := &Server{
		store:       cfg.Store,
		reflections: reflection.NewManager(cfg.Store),
		insights:    cfg.Insight,
		wsHub:       NewHub(),
	}

	// Every mutation fans out to connected UI clients.
	cfg.Store.Subscribe(func(snapshot *core.UserState) {
		s.wsHub.Broadcast(Event{Type: "state_changed", State: snapshot})
	})

	s.setupRouter()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupRouter configures all routes
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// State
		r.Get("/state", s.handleGetState)
		r.Patch("/state", s.handleUpdateState)
		r.Post("/reset", s.handleReset)

		// Wins
		r.Get("/wins", s.handleGetWins)
		r.Post("/wins", s.handleAddWin)

		// Practice logs
		r.Get("/practices", s.handleGetPracticeLogs)
		r.Post("/practices", s.handleLogPractice)

		// Focus cycle
		r.Get("/focus-cycle", s.handleGetFocusCycle)
		r.Put("/focus-cycle", s.handleSetFocusCycle)
		r.Delete("/focus-cycle", s.handleClearFocusCycle)

		// Identities
		r.Get("/identities", s.handleGetIdentities)
		r.Post("/identities", s.handleAddIdentity)
		r.Delete("/identities/{identityID}", s.handleRemoveIdentity)
		r.Post("/intentions/toggle", s.handleToggleIntention)

		// Settings
		r.Put("/settings/premium", s.handleSetPremium)
		r.Put("/settings/personality", s.handleSetPersonality)

		// Derived views
		r.Get("/stats", s.handleGetStats)

		// Reflection
		r.Get("/reflection", s.handleGetReflection)
		r.Post("/reflection/continue", s.handleReflectionContinue)
		r.Post("/reflection/pivot", s.handleReflectionPivot)

		// Insight
		r.Get("/insight", s.handleGetInsight)
	})

	// WebSocket for live state updates
	r.Get("/ws", s.wsHub.HandleWebSocket)

	// Health
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	s.router = r
}

// Start starts the HTTP server (blocking)
func (s *Server) Start() error {
	logging.Info("API server listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.wsHub.Close()
	return s.httpServer.Shutdown(ctx)
}

// Router exposes the router for tests
func (s *Server) Router() http.Handler {
	return s.router
}

// respondJSON writes a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode response: %v", err)
	}
}

// respondError writes a JSON error response
func (s *Server) respondError(w http.ResponseWriter, status int, msg string) {
	s.respondJSON(w, status, map[string]string{"error": msg})
}
