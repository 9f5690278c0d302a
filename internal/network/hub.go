package network

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MRamiBalles/pickup-server/internal/engine"
	"github.com/MRamiBalles/pickup-server/internal/events"
	"github.com/MRamiBalles/pickup-server/internal/platform/logger"
	"github.com/MRamiBalles/pickup-server/internal/platform/metrics"
)

// ErrClientNotConnected is returned when notifying a client that is not registered.
var ErrClientNotConnected = errors.New("client not connected")

// Hub maintains the set of active clients, routes per-client notifications
// and broadcasts world events to observers.
type Hub struct {
	clients    map[*Client]bool
	byID       map[string]*Client
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{} // closed when Run returns
	mu         sync.Mutex
	engine     *engine.Engine
	logger     *logger.Logger
	sendBuffer int
}

// NewHub initializes a new WebSocket Hub.
func NewHub(eng *engine.Engine, log *logger.Logger, sendBuffer int) *Hub {
	if sendBuffer <= 0 {
		sendBuffer = 64
	}
	return &Hub{
		broadcast:  make(chan []byte, sendBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[*Client]bool),
		byID:       make(map[string]*Client),
		engine:     eng,
		logger:     log,
		sendBuffer: sendBuffer,
	}
}

// Run starts the Hub's main loop to handle client connections and broadcasts.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.logger.Info("WebSocket Hub shutting down.")
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.byID[client.id] = client
			h.mu.Unlock()
			metrics.Get().RecordWSConnection(1)
			h.logger.Info("New WebSocket client connected: " + client.id)
		case client := <-h.unregister:
			h.mu.Lock()
			h.drop(client)
			h.mu.Unlock()
		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				if !client.observer {
					continue
				}
				select {
				case client.send <- message:
					metrics.Get().RecordWSMessage(false)
				default:
					h.drop(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// drop removes client. Caller holds h.mu.
func (h *Hub) drop(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	if h.byID[client.id] == client {
		delete(h.byID, client.id)
	}
	close(client.send)
	metrics.Get().RecordWSConnection(-1)
	h.logger.Info("WebSocket client disconnected: " + client.id)
}

// join registers client. It reports false once the hub has stopped.
func (h *Hub) join(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// leave unregisters client. It returns immediately once the hub has stopped.
func (h *Hub) leave(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Notify formats a message and delivers it to one client.
func (h *Hub) Notify(recipient, event, format string, args ...string) error {
	payload, err := json.Marshal(ClientMessage{
		Kind: "message",
		Tag:  event,
		Text: FormatMessage(format, args...),
	})
	if err != nil {
		return fmt.Errorf("marshal client message: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	client, ok := h.byID[recipient]
	if !ok {
		return fmt.Errorf("%w: %s", ErrClientNotConnected, recipient)
	}
	select {
	case client.send <- payload:
		metrics.Get().RecordWSMessage(false)
		return nil
	default:
		metrics.Get().RecordWSError()
		return fmt.Errorf("client %s send buffer full", recipient)
	}
}

// Connected reports whether a client with the given ID is registered.
func (h *Hub) Connected(clientID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.byID[clientID]
	return ok
}

// BroadcastEvent serializes a GameEvent and queues it for every observer.
func (h *Hub) BroadcastEvent(event events.GameEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Error(fmt.Sprintf("Failed to serialize GameEvent for WebSocket broadcast: %v", err))
		return
	}
	select {
	case h.broadcast <- payload:
	case <-h.done:
	}
}

// StartEventPoller spawns a goroutine that polls the EventLog and pushes new events to observers.
// This allows the Hub to run independently from the Engine's logic loop while picking up the same events.
func (h *Hub) StartEventPoller(ctx context.Context, eventLog *events.EventLog) {
	go func() {
		pollInterval := time.NewTicker(200 * time.Millisecond)
		defer pollInterval.Stop()

		lastProcessedEvent := eventLog.Len()

		for {
			select {
			case <-ctx.Done():
				return
			case <-pollInterval.C:
				newEvents := eventLog.Since(lastProcessedEvent)
				for _, event := range newEvents {
					h.BroadcastEvent(event)
				}
				lastProcessedEvent += len(newEvents)
			}
		}
	}()
}
