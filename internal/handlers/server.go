// Package handlers exposes the room registry over HTTP and WebSocket.
package handlers

import (
	"net/http"

	"github.com/jason-s-yu/virus/internal/auth"
	"github.com/jason-s-yu/virus/internal/database"
	"github.com/jason-s-yu/virus/internal/middleware"
	"github.com/jason-s-yu/virus/internal/room"
	"github.com/sirupsen/logrus"
)

// Server wires the registry, token issuer and optional archive to HTTP routes.
type Server struct {
	Registry *room.Registry
	Tokens   *auth.TokenIssuer
	Archive  database.Archive // nil disables /history

	// AllowedOrigins are websocket origin patterns; empty allows only same-origin.
	AllowedOrigins []string

	logger *logrus.Logger
}

// NewServer builds a Server.
func NewServer(reg *room.Registry, tokens *auth.TokenIssuer, archive database.Archive, logger *logrus.Logger) *Server {
	return &Server{
		Registry: reg,
		Tokens:   tokens,
		Archive:  archive,
		logger:   logger,
	}
}

// Routes returns the server's handler with request logging applied.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	logged := middleware.LogMiddleware(s.logger)

	mux.HandleFunc("GET /ping", PingHandler)
	mux.Handle("POST /rooms/create", logged(http.HandlerFunc(s.CreateRoomHandler)))
	mux.Handle("POST /rooms/join", logged(http.HandlerFunc(s.JoinRoomHandler)))
	mux.Handle("GET /rooms/{id}", logged(http.HandlerFunc(s.GetRoomHandler)))
	mux.Handle("GET /rooms/{id}/history", logged(http.HandlerFunc(s.RoomHistoryHandler)))
	mux.HandleFunc("GET /rooms/{id}/ws", s.RoomWSHandler)
	return mux
}

// PingHandler answers liveness probes.
func PingHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte("pong"))
}
