package network

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/contagio-game/server/internal/engine"
	"github.com/contagio-game/server/internal/platform/logger"
	"github.com/contagio-game/server/internal/platform/metrics"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// inboundMessage is the envelope every client frame arrives in.
type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type joinPayload struct {
	Name string `json:"name"`
}

type nightActionPayload struct {
	Action   string `json:"action"`
	TargetID string `json:"targetId"`
}

type votePayload struct {
	TargetID string `json:"targetId"`
}

type chatPayload struct {
	Message string `json:"message"`
}

// Client is a middleman between a WebSocket connection and a match.
type Client struct {
	hub   *Hub
	conn  *websocket.Conn
	match *engine.Match

	// Buffered channel of outbound messages.
	send chan []byte

	// ID of the participant this connection joined as, empty for spectators.
	playerID string

	logger *logger.Logger
}

// ServeWs upgrades an HTTP request to a WebSocket connection and attaches it
// to the given match.
func ServeWs(hub *Hub, match *engine.Match, log *logger.Logger, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("WebSocket upgrade failed: " + err.Error())
		return
	}

	client := &Client{
		hub:    hub,
		conn:   conn,
		match:  match,
		send:   make(chan []byte, 64),
		logger: log,
	}
	client.hub.register <- client

	go client.writePump()
	go client.readPump()
}

// readPump pumps messages from the WebSocket connection to the match engine.
// There is at most one reader per connection.
func (c *Client) readPump() {
	defer func() {
		if c.playerID != "" {
			c.match.Leave(c.playerID)
		}
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket read error: " + err.Error())
			}
			return
		}
		metrics.Get().RecordWSMessage(true)

		var msg inboundMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.sendError("malformed message")
			continue
		}
		c.dispatch(msg)
	}
}

// dispatch routes one inbound frame to the match's public API.
func (c *Client) dispatch(msg inboundMessage) {
	switch msg.Type {
	case "JOIN_GAME":
		if c.playerID != "" {
			c.sendError("this connection already joined")
			return
		}
		var p joinPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil || p.Name == "" {
			c.sendError("a name is required to join")
			return
		}
		id, err := c.match.Join(p.Name)
		if err != nil {
			c.sendError(err.Error())
			return
		}
		c.hub.Bind(id, c)
		c.match.Sync()

	case "START_GAME":
		if err := c.match.Start(); err != nil {
			c.sendError(err.Error())
		}

	case "NIGHT_ACTION":
		if c.playerID == "" {
			c.sendError("join the game first")
			return
		}
		var p nightActionPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			c.sendError("malformed night action")
			return
		}
		if err := c.match.SubmitNightAction(c.playerID, engine.ActionKind(p.Action), p.TargetID); err != nil {
			c.sendError(err.Error())
			return
		}
		c.sendEnvelope(engine.MsgActionConfirmed, map[string]string{"action": p.Action})

	case "VOTE":
		if c.playerID == "" {
			c.sendError("join the game first")
			return
		}
		var p votePayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			c.sendError("malformed vote")
			return
		}
		if err := c.match.SubmitVote(c.playerID, p.TargetID); err != nil {
			c.sendError(err.Error())
		}

	case "TERRORIST_CHAT":
		if c.playerID == "" {
			c.sendError("join the game first")
			return
		}
		var p chatPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil || p.Message == "" {
			return
		}
		if err := c.match.Chat(c.playerID, p.Message); err != nil {
			c.sendError(err.Error())
		}

	default:
		c.sendError("unknown message type: " + msg.Type)
	}
}

// sendError queues an ERROR envelope on this connection only.
func (c *Client) sendError(text string) {
	c.sendEnvelope("ERROR", map[string]string{"message": text})
}

func (c *Client) sendEnvelope(msgType string, payload interface{}) {
	raw, err := json.Marshal(struct {
		Type    string      `json:"type"`
		Payload interface{} `json:"payload"`
	}{Type: msgType, Payload: payload})
	if err != nil {
		return
	}
	select {
	case c.send <- raw:
	default:
		metrics.Get().RecordWSError()
	}
}

// writePump pumps messages from the send channel to the WebSocket connection.
// There is at most one writer per connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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
