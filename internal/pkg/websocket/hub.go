package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/thesisflow/internal/pkg/notify"
)

// ErrBacklogFull is returned by Notify when the hub cannot keep up.
var ErrBacklogFull = errors.New("event feed backlog full")

// Hub keeps the connected clients and fans domain events out to the ones
// subscribed to them. It is registered as a notify.Subscriber.
type Hub struct {
	clients map[*Client]bool

	// Events waiting to be broadcast
	broadcast chan notify.Event

	register   chan *Client
	unregister chan *Client
	direct     chan directMessage

	// Closed when Run returns
	done chan struct{}

	mu     sync.RWMutex
	logger zerolog.Logger
}

type directMessage struct {
	client *Client
	data   []byte
}

// Message is what the server writes to a client
type Message struct {
	// Type of message: "event", "subscribed", "unsubscribed", "pong", "error"
	Type string `json:"type"`

	Event      *notify.Event `json:"event,omitempty"`
	RequestIDs []int64       `json:"requestIds,omitempty"`
	Error      string        `json:"error,omitempty"`
	Timestamp  time.Time     `json:"timestamp"`
}

// NewHub creates a new Hub instance
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan notify.Event, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		direct:     make(chan directMessage),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run serves registrations and broadcasts until ctx is done, then closes
// every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case client := <-h.register:
			h.registerClient(client)
		case client := <-h.unregister:
			h.unregisterClient(client)
		case msg := <-h.direct:
			h.deliver(msg)
		case ev := <-h.broadcast:
			h.broadcastEvent(ev)
		}
	}
}

// join registers client. It returns false once the hub has stopped.
func (h *Hub) join(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// reply queues data for a single client.
func (h *Hub) reply(client *Client, data []byte) {
	if data == nil {
		return
	}
	select {
	case h.direct <- directMessage{client: client, data: data}:
	case <-h.done:
	}
}

// Name implements notify.Subscriber
func (h *Hub) Name() string { return "websocket" }

// Notify queues ev for broadcast without blocking the publisher.
func (h *Hub) Notify(_ context.Context, ev notify.Event) error {
	select {
	case h.broadcast <- ev:
		return nil
	default:
		return ErrBacklogFull
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	h.mu.Unlock()

	h.logger.Info().
		Str("actor", client.principal.ID).
		Bool("allRequests", client.all).
		Str("addr", client.conn.RemoteAddr().String()).
		Msg("Event feed client registered")
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(client)
}

func (h *Hub) removeLocked(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.send)
	h.logger.Info().
		Str("actor", client.principal.ID).
		Str("addr", client.conn.RemoteAddr().String()).
		Msg("Event feed client unregistered")
}

func (h *Hub) deliver(msg directMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.clients[msg.client] {
		return
	}
	select {
	case msg.client.send <- msg.data:
	default:
		h.logger.Warn().Str("actor", msg.client.principal.ID).Msg("Dropping slow event feed client")
		h.removeLocked(msg.client)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		h.removeLocked(client)
	}
}

// broadcastEvent sends ev to every interested client. Clients whose buffer is
// full are dropped.
func (h *Hub) broadcastEvent(ev notify.Event) {
	data, err := json.Marshal(Message{Type: "event", Event: &ev, Timestamp: time.Now()})
	if err != nil {
		h.logger.Error().Err(err).Str("event", string(ev.Kind)).Msg("Failed to marshal event for broadcast")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	delivered := 0
	for client := range h.clients {
		if !client.wants(ev.RequestID) {
			continue
		}
		select {
		case client.send <- data:
			delivered++
		default:
			h.logger.Warn().Str("actor", client.principal.ID).Msg("Dropping slow event feed client")
			h.removeLocked(client)
		}
	}

	h.logger.Debug().
		Str("event", string(ev.Kind)).
		Int64("requestID", ev.RequestID).
		Int("clientCount", delivered).
		Msg("Event broadcast")
}
