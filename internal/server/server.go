// Package server provides the HTTP server for the darshan recording service.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/ayusman/darshan/internal/app"
	"github.com/ayusman/darshan/internal/server/api"
)

// Config holds the server configuration.
type Config struct {
	StaticDir string
	App       *app.App
	Logger    *slog.Logger
}

// Server represents the HTTP server for the darshan application.
type Server struct {
	config Config
	router *mux.Router
	hub    *OverlayHub
	log    *slog.Logger
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	s := &Server{
		config: config,
		router: mux.NewRouter(),
		log:    config.Logger.With("component", "server"),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/api/health", s.handleHealth).Methods(http.MethodGet)

	if a := s.config.App; a != nil {
		var clipsHandler *api.ClipsHandler
		if a.Clips() != nil {
			clipsHandler = api.NewClipsHandler(a.Clips(), s.config.Logger)
		}
		api.Register(s.router, a, clipsHandler)

		s.router.Handle("/api/stream", NewStreamHandler(a, s.config.Logger)).Methods(http.MethodGet)

		s.hub = NewOverlayHub(a, s.config.Logger)
		s.router.Handle("/api/overlay", s.hub).Methods(http.MethodGet)
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		s.router.PathPrefix("/").Handler(http.FileServer(http.Dir(s.config.StaticDir)))
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Hub returns the overlay WebSocket hub, or nil when no session is attached.
func (s *Server) Hub() *OverlayHub {
	return s.hub
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	uptime := time.Since(s.start)

	response := map[string]interface{}{
		"status": "ok",
		"uptime": uptime.String(),
	}
	if a := s.config.App; a != nil {
		response["camera"] = a.HasCamera()
		response["recording"] = a.RecordingStatus().State
	}
	if s.hub != nil {
		response["clients"] = s.hub.Clients()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	if s.hub != nil {
		s.hub.Close()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
