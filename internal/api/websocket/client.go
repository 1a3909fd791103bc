package websocket

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/fortuna/icetime/internal/publisher"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBufferSize = 64
)

// Client is one websocket connection with an optional team filter.
type Client struct {
	ID     string
	conn   *websocket.Conn
	send   chan ServerMessage
	hub    *Hub
	logger *slog.Logger

	mu    sync.RWMutex
	teams map[string]bool
}

// NewClient creates a new client instance
func NewClient(id string, conn *websocket.Conn, hub *Hub, logger *slog.Logger) *Client {
	return &Client{
		ID:     id,
		conn:   conn,
		send:   make(chan ServerMessage, sendBufferSize),
		hub:    hub,
		logger: logger,
	}
}

// Subscribe restricts the client to games involving the given teams. No
// teams clears the filter.
func (c *Client) Subscribe(teams []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.teams = nil
	if len(teams) == 0 {
		return
	}
	c.teams = make(map[string]bool, len(teams))
	for _, t := range teams {
		c.teams[strings.ToUpper(strings.TrimSpace(t))] = true
	}
}

// Matches reports whether a game passes the client's filter.
func (c *Client) Matches(msg publisher.GameReconciled) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.teams) == 0 || c.teams[msg.HomeTeam] || c.teams[msg.AwayTeam]
}

func (c *Client) trySend(msg ServerMessage) bool {
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// ReadPump reads subscription messages until the connection closes.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for ctx.Err() == nil {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Debug("unexpected close", "client_id", c.ID, "error", err)
			}
			return
		}
		switch msg.Type {
		case MessageSubscribe:
			c.Subscribe(msg.Teams)
		case MessageUnsubscribe:
			c.Subscribe(nil)
		default:
			c.logger.Debug("ignoring client message", "client_id", c.ID, "type", msg.Type)
		}
	}
}

// WritePump writes hub messages and keepalive pings to the connection.
func (c *Client) WritePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				c.logger.Debug("write failed", "client_id", c.ID, "error", err)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
