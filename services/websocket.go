package services

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096

	// Per-client send buffer. A client that falls this far behind is
	// dropped and must resynchronize via a fresh snapshot.
	sendBufferSize = 256
)

// Client represents one connected event-channel subscriber.
type Client struct {
	Hub  *Hub
	Conn *websocket.Conn
	Send chan []byte
}

// WebSocketMessage is the wire format of a broadcast event: a
// discriminated type plus the payload (full task for creates and
// updates, {id} for deletes).
type WebSocketMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// ReadPump drains the connection so that pongs and close frames are
// processed. Subscribers never publish over the channel; anything they
// send is discarded.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.log.Warnw("websocket read failed", "error", err)
			}
			return
		}
	}
}

// WritePump pumps events from the hub to the connection and keeps the
// peer alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Hub fans committed store mutations out to every connected client.
// All subscriber bookkeeping happens on the Run goroutine, so the
// publisher never blocks behind a slow subscriber: delivery uses each
// client's buffered Send channel and a full buffer drops that client.
type Hub struct {
	Clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	log        *zap.SugaredLogger
}

// NewHub creates a new hub instance
func NewHub(log *zap.SugaredLogger) *Hub {
	return &Hub{
		broadcast:  make(chan []byte),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		Clients:    make(map[*Client]bool),
		log:        log,
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// BroadcastEvent publishes one mutation event to every connected
// client. Callers that need events delivered in commit order must call
// this in commit order; the hub fans each event out unmodified before
// taking the next.
func (h *Hub) BroadcastEvent(eventType string, data any) {
	message, err := json.Marshal(WebSocketMessage{Type: eventType, Data: data})
	if err != nil {
		h.log.Errorw("failed to marshal event", "type", eventType, "error", err)
		return
	}
	h.broadcast <- message
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.Clients[client] = true
			h.log.Infow("client connected", "clients", len(h.Clients))
		case client := <-h.unregister:
			if _, ok := h.Clients[client]; ok {
				delete(h.Clients, client)
				close(client.Send)
				h.log.Infow("client disconnected", "clients", len(h.Clients))
			}
		case message := <-h.broadcast:
			for client := range h.Clients {
				select {
				case client.Send <- message:
					// Message queued successfully
				default:
					// Client's send buffer is full, assume disconnected
					h.log.Warnw("client send buffer full, dropping client")
					close(client.Send)
					delete(h.Clients, client)
				}
			}
		}
	}
}
