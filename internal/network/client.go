package network

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/MRamiBalles/pickup-server/internal/engine"
	"github.com/MRamiBalles/pickup-server/internal/platform/metrics"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Maximum message size allowed from peer.
	maxMessageSize = 512
	// Time allowed for a command to run on the engine.
	commandTimeout = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// PlayerCommand represents an incoming command from a client.
type PlayerCommand struct {
	Type     string `json:"type"`               // "THROW", "PICKUP", "INVENTORY"
	Template string `json:"template,omitempty"` // THROW
	Amount   *int   `json:"amount,omitempty"`   // THROW, optional
	ItemID   string `json:"item_id,omitempty"`  // PICKUP
}

// Reply answers a PlayerCommand.
type Reply struct {
	Kind      string           `json:"kind"` // always "reply"
	Command   string           `json:"command"`
	OK        bool             `json:"ok"`
	Error     string           `json:"error,omitempty"`
	Item      *engine.ItemView `json:"item,omitempty"`
	Inventory map[string]int   `json:"inventory,omitempty"`
}

// Client is a single WebSocket connection, optionally bound to a player.
type Client struct {
	id       string
	playerID string
	observer bool
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	rate     rateWindow
}

// NewClient creates a new WebSocket client bound to playerID (may be empty).
func NewClient(hub *Hub, conn *websocket.Conn, playerID string, observer bool) *Client {
	return &Client{
		id:       uuid.NewString(),
		playerID: playerID,
		observer: observer,
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, hub.sendBuffer),
	}
}

// ID returns the client identifier used for notifications.
func (c *Client) ID() string {
	return c.id
}

// ServeWS upgrades the request and starts the client pumps. The `player`
// query parameter binds the connection to a registered player; `observe=1`
// subscribes it to the world event stream.
func ServeWS(hub *Hub, maxPerSecond int, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		hub.logger.Error("WebSocket upgrade failed: " + err.Error())
		metrics.Get().RecordWSError()
		return
	}

	playerID := r.URL.Query().Get("player")
	observer := r.URL.Query().Get("observe") == "1"
	client := NewClient(hub, conn, playerID, observer)
	client.rate.limit = maxPerSecond
	if !hub.join(client) {
		conn.Close()
		return
	}

	if playerID != "" {
		ctx, cancel := context.WithTimeout(r.Context(), commandTimeout)
		err := hub.engine.AttachClient(ctx, playerID, client.id)
		cancel()
		if err != nil {
			hub.logger.Warn("Client attach failed: " + err.Error())
		}
	}

	go client.WritePump()
	go client.ReadPump()
}

// ReadPump pumps commands from the websocket connection to the engine.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.leave(c)
		c.conn.Close()
		c.detach()
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
				c.hub.logger.Warn("WebSocket read error: " + err.Error())
				metrics.Get().RecordWSError()
			}
			break
		}
		metrics.Get().RecordWSMessage(true)

		var cmd PlayerCommand
		if err := json.Unmarshal(message, &cmd); err != nil {
			c.hub.logger.Error("Failed to parse PlayerCommand from WebSocket. err: " + err.Error())
			continue
		}

		c.reply(c.handleCommand(cmd))
	}
}

// WritePump pumps messages from the hub to the websocket connection.
func (c *Client) WritePump() {
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
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				metrics.Get().RecordWSError()
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

// detach unbinds the connection from its player so later pickups stop
// notifying a client that is gone.
func (c *Client) detach() {
	if c.playerID == "" || c.hub.engine == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	err := c.hub.engine.DetachClient(ctx, c.playerID, c.id)
	if err != nil && !errors.Is(err, engine.ErrStopped) {
		c.hub.logger.Warn("Client detach failed: " + err.Error())
	}
}

func (c *Client) handleCommand(cmd PlayerCommand) Reply {
	r := Reply{Kind: "reply", Command: cmd.Type}

	if !c.rate.allow(time.Now()) {
		c.hub.logger.Warn("Rate limit exceeded for client " + c.id)
		r.Error = "rate limited"
		return r
	}
	if c.playerID == "" {
		r.Error = "connection is not bound to a player"
		return r
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	eng := c.hub.engine

	var err error
	switch cmd.Type {
	case "THROW":
		r.Item, err = eng.Throw(ctx, c.playerID, cmd.Template, cmd.Amount)
		r.OK = err == nil && r.Item != nil
	case "PICKUP":
		r.OK, err = eng.Pickup(ctx, c.playerID, cmd.ItemID)
	case "INVENTORY":
		r.Inventory, err = eng.Inventory(ctx, c.playerID)
		r.OK = err == nil
	default:
		r.Error = "unknown command " + cmd.Type
		return r
	}
	if err != nil {
		r.Error = err.Error()
	}
	return r
}

func (c *Client) reply(r Reply) {
	payload, err := json.Marshal(r)
	if err != nil {
		c.hub.logger.Error("Failed to serialize reply: " + err.Error())
		return
	}
	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()
	if _, ok := c.hub.clients[c]; !ok {
		return
	}
	select {
	case c.send <- payload:
		metrics.Get().RecordWSMessage(false)
	default:
		metrics.Get().RecordWSError()
	}
}

// rateWindow allows at most limit commands per second. Zero disables it.
type rateWindow struct {
	limit int
	start time.Time
	count int
}

func (w *rateWindow) allow(now time.Time) bool {
	if w.limit <= 0 {
		return true
	}
	if now.Sub(w.start) >= time.Second {
		w.start = now
		w.count = 0
	}
	if w.count >= w.limit {
		return false
	}
	w.count++
	return true
}
