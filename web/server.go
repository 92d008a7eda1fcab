// Package web serves the viewer backend: model data over HTTP, load status over a websocket and
// the browser front end as static files.
package web

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/Carmen-Shannon/oxy-glb/config"
	"github.com/Carmen-Shannon/oxy-glb/engine/viewer"
	"github.com/Carmen-Shannon/oxy-glb/status"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

// server is the implementation of the Server interface.
type server struct {
	cfg     config.Config
	session viewer.Session
	hub     status.Hub
	handler http.Handler
	http    *http.Server
}

// Server exposes a viewer session over HTTP.
type Server interface {
	// Handler returns the routed handler with logging and panic recovery applied.
	//
	// Returns:
	//   - http.Handler: the handler
	Handler() http.Handler

	// ListenAndServe serves on the configured address until Shutdown.
	//
	// Returns:
	//   - error: http.ErrServerClosed after Shutdown, or the listen error
	ListenAndServe() error

	// Shutdown stops accepting requests, waits for in-flight ones and disconnects status clients.
	//
	// Parameters:
	//   - ctx: bounds the wait for in-flight requests
	//
	// Returns:
	//   - error: the shutdown error
	Shutdown(ctx context.Context) error
}

var _ Server = &server{}

// NewServer creates a Server for session, reporting on hub.
//
// Parameters:
//   - cfg: the server settings
//   - session: the viewer session the API reads and loads into
//   - hub: the status hub served at /ws/status
//
// Returns:
//   - Server: the server
func NewServer(cfg config.Config, session viewer.Session, hub status.Hub) Server {
	s := &server{cfg: cfg, session: session, hub: hub}

	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/model", s.handleModel).Methods(http.MethodGet)
	api.HandleFunc("/model", s.handleUpload).Methods(http.MethodPost)
	api.HandleFunc("/model", s.handleClear).Methods(http.MethodDelete)
	api.HandleFunc("/model/export.glb", s.handleExport).Methods(http.MethodGet)
	api.HandleFunc("/model/meshes/{mesh:[0-9]+}/vertices", s.handleVertices).Methods(http.MethodGet)
	api.HandleFunc("/model/meshes/{mesh:[0-9]+}/indices", s.handleIndices).Methods(http.MethodGet)
	api.HandleFunc("/model/materials/{material:[0-9]+}/{slot}/thumbnail.png", s.handleThumbnail).Methods(http.MethodGet)
	api.HandleFunc("/extensions", s.handleExtensions).Methods(http.MethodGet)
	api.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	r.Handle("/ws/status", hub)

	r.PathPrefix("/").Handler(http.FileServer(http.Dir(cfg.WebDir)))

	h := handlers.RecoveryHandler(handlers.PrintRecoveryStack(cfg.Debug))(r)
	s.handler = handlers.LoggingHandler(os.Stdout, h)
	s.http = &http.Server{Addr: cfg.Addr, Handler: s.handler}
	return s
}

func (s *server) Handler() http.Handler {
	return s.handler
}

func (s *server) ListenAndServe() error {
	log.Printf("[Web] Starting server %v", s.cfg.Addr)
	return s.http.ListenAndServe()
}

func (s *server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	log.Printf("[Web] Shutting down server %v", s.cfg.Addr)
	return s.http.Shutdown(ctx)
}
