// Package websocket pushes reconciled games to connected clients.
package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/fortuna/icetime/internal/publisher"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Server represents the WebSocket server
type Server struct {
	server *http.Server
	hub    *Hub
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger
}

// NewServer creates a WebSocket server and starts its hub.
func NewServer(logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "websocket")
	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		hub:    NewHub(logger),
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
	}
	go s.hub.Run(ctx)
	return s
}

// Handler returns the websocket routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/games", s.handleGames)
	mux.HandleFunc("/ws/health", s.handleHealth)
	return mux
}

// Start listens on port until Shutdown.
func (s *Server) Start(port string) error {
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%s", port),
		Handler: s.Handler(),
	}
	s.logger.Info("websocket server listening", "port", port)
	return s.server.ListenAndServe()
}

func (s *Server) handleGames(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("failed to upgrade connection", "error", err)
		return
	}

	c := NewClient(uuid.NewString(), conn, s.hub, s.logger)
	if teams := r.URL.Query()["team"]; len(teams) > 0 {
		c.Subscribe(teams)
	}
	s.hub.Register(c)

	go c.WritePump(s.ctx)
	go c.ReadPump(s.ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "healthy",
		"clients": s.hub.ClientCount(),
	})
}

// BroadcastGame sends a reconciled game to every subscribed client.
func (s *Server) BroadcastGame(msg publisher.GameReconciled) {
	s.hub.Broadcast(msg)
}

// ClientCount returns the number of connected clients.
func (s *Server) ClientCount() int {
	return s.hub.ClientCount()
}

// Shutdown closes every client and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
