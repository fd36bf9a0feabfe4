package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/CrowderSoup/kanban/board"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 64 * 1024

	sendBufferSize = 256
)

// Message types on the change feed
const (
	MessageSync = "sync"
	MessagePing = "ping"
	MessagePong = "pong"
)

// Client is one websocket connection of a signed-in user
type Client struct {
	ID   string
	UID  string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// WebSocketMessage is the standard message format for WebSocket communication
type WebSocketMessage struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

type delivery struct {
	uid     string
	payload []byte
}

// Hub tracks connections per user and fans "document changed" events out to
// every connection of the user whose boards changed.
type Hub struct {
	mu         sync.RWMutex
	clients    map[string]map[*Client]struct{}
	broadcast  chan delivery
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		broadcast:  make(chan delivery, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run owns registration and delivery until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for uid, set := range h.clients {
				for client := range set {
					close(client.send)
				}
				delete(h.clients, uid)
			}
			h.mu.Unlock()
			return
		case client := <-h.register:
			h.mu.Lock()
			set, ok := h.clients[client.UID]
			if !ok {
				set = make(map[*Client]struct{})
				h.clients[client.UID] = set
			}
			set[client] = struct{}{}
			h.mu.Unlock()
			slog.Debug("client connected", "uid", client.UID, "client", client.ID)
		case client := <-h.unregister:
			h.mu.Lock()
			h.removeLocked(client)
			h.mu.Unlock()
		case msg := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients[msg.uid] {
				select {
				case client.send <- msg.payload:
				default:
					slog.Warn("client send buffer full, dropping client", "uid", client.UID, "client", client.ID)
					h.removeLocked(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) removeLocked(client *Client) {
	set, ok := h.clients[client.UID]
	if !ok {
		return
	}
	if _, ok := set[client]; !ok {
		return
	}
	delete(set, client)
	close(client.send)
	if len(set) == 0 {
		delete(h.clients, client.UID)
	}
	slog.Debug("client disconnected", "uid", client.UID, "client", client.ID)
}

// Connections returns how many connections uid has open.
func (h *Hub) Connections(uid string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[uid])
}

// Notify sends the user's current boards to all of the user's connections.
func (h *Hub) Notify(uid string, boards []board.Board) {
	payload, err := json.Marshal(WebSocketMessage{Type: MessageSync, Data: boards})
	if err != nil {
		slog.Error("failed to marshal sync message", "uid", uid, "error", err)
		return
	}
	select {
	case h.broadcast <- delivery{uid: uid, payload: payload}:
	case <-h.done:
	}
}

// Attach registers conn for uid and starts its read and write pumps.
func (h *Hub) Attach(conn *websocket.Conn, uid string) *Client {
	client := &Client{
		ID:   uuid.NewString(),
		UID:  uid,
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return client
	}

	go client.writePump()
	go client.readPump()
	return client
}

func (h *Hub) detach(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// readPump handles pings from the peer until the connection closes
func (c *Client) readPump() {
	defer func() {
		c.hub.detach(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("websocket error", "uid", c.UID, "error", err)
			}
			return
		}

		var msg WebSocketMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			slog.Debug("ignoring malformed websocket message", "uid", c.UID, "error", err)
			continue
		}
		if msg.Type != MessagePing {
			continue
		}

		pong, err := json.Marshal(WebSocketMessage{
			Type: MessagePong,
			Data: map[string]string{"timestamp": time.Now().Format(time.RFC3339)},
		})
		if err != nil {
			continue
		}
		c.hub.mu.RLock()
		_, alive := c.hub.clients[c.UID][c]
		if alive {
			select {
			case c.send <- pong:
			default:
			}
		}
		c.hub.mu.RUnlock()
	}
}

// writePump pumps messages from the hub to the WebSocket connection
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
				// The hub closed the channel
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
