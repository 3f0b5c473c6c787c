package websocket

import (
	"bytes"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	appauth "github.com/yigit/thesisflow/internal/app/auth"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Clients only send small subscription commands
	maxMessageSize = 4 * 1024

	sendBuffer = 64
)

var (
	newline = []byte{'\n'}
	space   = []byte{' '}
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client is a middleman between the websocket connection and the hub
type Client struct {
	hub  *Hub
	conn *websocket.Conn

	// Buffered channel of outbound messages
	send chan []byte

	principal appauth.Principal

	// all is set for staff, who receive every event
	all bool

	mu       sync.RWMutex
	requests map[int64]bool

	commands *MessageHandler
	logger   zerolog.Logger
}

func newClient(hub *Hub, conn *websocket.Conn, p appauth.Principal, commands *MessageHandler, logger zerolog.Logger) *Client {
	return &Client{
		hub:       hub,
		conn:      conn,
		send:      make(chan []byte, sendBuffer),
		principal: p,
		all:       p.Staff(),
		requests:  make(map[int64]bool),
		commands:  commands,
		logger:    logger,
	}
}

// wants reports whether an event about requestID should reach this client.
func (c *Client) wants(requestID int64) bool {
	if c.all {
		return true
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.requests[requestID]
}

func (c *Client) subscribe(requestID int64) {
	c.mu.Lock()
	c.requests[requestID] = true
	c.mu.Unlock()
}

func (c *Client) unsubscribe(requestID int64) {
	c.mu.Lock()
	delete(c.requests, requestID)
	c.mu.Unlock()
}

// subscriptions returns the subscribed request ids in ascending order.
func (c *Client) subscriptions() []int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]int64, 0, len(c.requests))
	for id := range c.requests {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// readPump reads subscription commands until the connection closes
func (c *Client) readPump() {
	defer func() {
		c.hub.leave(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Info().Str("actor", c.principal.ID).Msg("WebSocket closed normally")
			} else if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn().Err(err).Str("actor", c.principal.ID).Msg("Unexpected WebSocket close")
			} else {
				c.logger.Debug().Err(err).Str("actor", c.principal.ID).Msg("WebSocket read error")
			}
			break
		}

		message = bytes.TrimSpace(bytes.Replace(message, newline, space, -1))
		if len(message) == 0 {
			continue
		}
		c.hub.reply(c, c.commands.Handle(c, message))
	}
}

// writePump pumps messages from the hub to the websocket connection
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

			// One JSON document per frame
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
