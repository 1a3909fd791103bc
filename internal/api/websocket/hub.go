package websocket

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/fortuna/icetime/internal/publisher"
)

// Message types sent to and received from clients.
const (
	MessageGameReconciled = "game_reconciled"
	MessageSubscribe      = "subscribe"
	MessageUnsubscribe    = "unsubscribe"
)

// ServerMessage is the envelope pushed to clients.
type ServerMessage struct {
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// ClientMessage is what clients send; Teams narrows a subscription.
type ClientMessage struct {
	Type  string   `json:"type"`
	Teams []string `json:"teams,omitempty"`
}

// Hub maintains the set of active clients and broadcasts reconciled games
// to them. All client map changes happen on the Run goroutine.
type Hub struct {
	clients   map[*Client]bool
	clientsMu sync.RWMutex

	broadcast  chan publisher.GameReconciled
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	logger *slog.Logger
}

// NewHub creates a new Hub instance
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan publisher.GameReconciled, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run starts the hub's main loop
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return
		case c := <-h.register:
			h.registerClient(c)
		case c := <-h.unregister:
			h.unregisterClient(c)
		case msg := <-h.broadcast:
			h.broadcastGame(msg)
		}
	}
}

// Register adds a client to the hub
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Broadcast queues a reconciled game for every subscribed client. The
// message is dropped when the queue is full.
func (h *Hub) Broadcast(msg publisher.GameReconciled) {
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("broadcast buffer full, dropping message", "game_id", msg.GameID)
	}
}

// ClientCount returns the number of active clients
func (h *Hub) ClientCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

func (h *Hub) registerClient(c *Client) {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	h.clients[c] = true
	h.logger.Debug("client connected", "client_id", c.ID, "clients", len(h.clients))
}

func (h *Hub) unregisterClient(c *Client) {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
		h.logger.Debug("client disconnected", "client_id", c.ID, "clients", len(h.clients))
	}
}

func (h *Hub) broadcastGame(msg publisher.GameReconciled) {
	h.clientsMu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clientsMu.RUnlock()

	out := ServerMessage{Type: MessageGameReconciled, Payload: msg, Timestamp: time.Now().UTC()}
	for _, c := range clients {
		if !c.Matches(msg) {
			continue
		}
		if !c.trySend(out) {
			// Slow client: drop it rather than block the hub.
			h.logger.Warn("client buffer full, disconnecting", "client_id", c.ID)
			h.unregisterClient(c)
		}
	}
}

func (h *Hub) shutdown() {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
}
