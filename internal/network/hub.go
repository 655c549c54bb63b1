// Package network carries the WebSocket transport. It parses inbound frames
// into engine commands and fans engine output back out; no game rules live here.
package network

import (
	"context"
	"sync"

	"github.com/contagio-game/server/internal/platform/logger"
	"github.com/contagio-game/server/internal/platform/metrics"
)

// Hub maintains the set of active clients and routes outbound messages.
// It implements engine.Sink: SendTo reaches the connection bound to a
// participant, Broadcast reaches connections that have not joined yet.
type Hub struct {
	clients  map[*Client]bool
	byPlayer map[string]*Client

	register   chan *Client
	unregister chan *Client

	mu     sync.Mutex
	logger *logger.Logger
}

// NewHub initializes a new WebSocket Hub.
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		byPlayer:   make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     log,
	}
}

// Run starts the Hub's bookkeeping loop.
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.logger.Info("WebSocket Hub shutting down.")
			return ctx.Err()
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			metrics.Get().RecordWSConnection(1)
			h.logger.Info("New WebSocket client connected")
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				if client.playerID != "" {
					delete(h.byPlayer, client.playerID)
				}
				close(client.send)
			}
			h.mu.Unlock()
			metrics.Get().RecordWSConnection(-1)
			h.logger.Info("WebSocket client disconnected")
		}
	}
}

// Bind associates a joined participant with its connection so the engine can
// address it directly.
func (h *Hub) Bind(participantID string, c *Client) {
	h.mu.Lock()
	c.playerID = participantID
	h.byPlayer[participantID] = c
	h.mu.Unlock()
}

// SendTo delivers a message to one participant's connection. Slow consumers
// are dropped rather than blocking the engine.
func (h *Hub) SendTo(participantID string, message []byte) {
	if message == nil {
		return
	}
	h.mu.Lock()
	c := h.byPlayer[participantID]
	h.mu.Unlock()
	if c == nil {
		return
	}
	select {
	case c.send <- message:
		metrics.Get().RecordWSMessage(false)
	default:
		metrics.Get().RecordWSError()
	}
}

// Broadcast delivers a message to every connection not bound to a
// participant (lobby spectators).
func (h *Hub) Broadcast(message []byte) {
	if message == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if c.playerID != "" {
			continue
		}
		select {
		case c.send <- message:
			metrics.Get().RecordWSMessage(false)
		default:
			metrics.Get().RecordWSError()
		}
	}
}
