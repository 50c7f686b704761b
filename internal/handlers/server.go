// Package handlers exposes the party queue over HTTP. All room state
// reads and writes go through the store; the overlay endpoint
// additionally consults the Redis snapshot cache when configured.
package handlers

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/ytqm/ytqm/internal/auth"
	"github.com/ytqm/ytqm/internal/cache"
	"github.com/ytqm/ytqm/internal/chatwatch"
	"github.com/ytqm/ytqm/internal/store"
)

// Server holds the handler dependencies.
type Server struct {
	Log     *logrus.Logger
	Store   store.Store
	Tokens  *auth.Tokens
	Overlay *cache.Overlay
	Watcher *chatwatch.Watcher
}

// NewServer wires a handler set over the given store.
func NewServer(log *logrus.Logger, st store.Store, tokens *auth.Tokens, overlay *cache.Overlay, watcher *chatwatch.Watcher) *Server {
	return &Server{Log: log, Store: st, Tokens: tokens, Overlay: overlay, Watcher: watcher}
}

// Routes builds the route table.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	// owner account endpoints
	mux.HandleFunc("POST /auth/register", s.CreateUserHandler)
	mux.HandleFunc("POST /auth/login", s.LoginHandler)

	// room endpoints
	mux.HandleFunc("POST /rooms", s.CreateRoomHandler)
	mux.HandleFunc("GET /rooms/{id}", s.GetRoomHandler)
	mux.HandleFunc("GET /rooms/{id}/participants", s.ListParticipantsHandler)
	mux.HandleFunc("GET /rooms/{id}/queue", s.ListQueueHandler)
	mux.HandleFunc("POST /rooms/{id}/entries", s.AddEntryHandler)
	mux.HandleFunc("DELETE /rooms/{id}/participants/{username}", s.RemoveParticipantHandler)
	mux.HandleFunc("DELETE /rooms/{id}/queue/{username}", s.RemoveQueueEntryHandler)
	mux.HandleFunc("POST /rooms/{id}/next-last/clear", s.ClearNextLastHandler)

	// ordering endpoints
	mux.HandleFunc("POST /rooms/{id}/reorder", s.ReorderHandler)
	mux.HandleFunc("POST /rooms/{id}/rotate", s.RotateHandler)

	// chat monitoring endpoints
	mux.HandleFunc("POST /rooms/{id}/monitor/start", s.StartMonitorHandler)
	mux.HandleFunc("POST /rooms/{id}/monitor/stop", s.StopMonitorHandler)
	mux.HandleFunc("GET /rooms/{id}/poll", s.PollHandler)

	// public browser-source overlay
	mux.HandleFunc("GET /overlay/{token}", s.OverlayHandler)

	return mux
}
