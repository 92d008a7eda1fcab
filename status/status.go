// Package status broadcasts viewer status messages to websocket clients.
package status

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Message types.
const (
	INFO = iota
	ERROR
	PROGRESS
)

const (
	pingPeriod   = 30 * time.Second
	writeTimeout = 40 * time.Second
	sendQueue    = 32
)

// Status is one broadcast message.
type Status struct {
	Message  string
	Time     time.Time
	Type     int
	Progress float32
}

type client struct {
	hub  *hub
	conn *websocket.Conn
	send chan []byte
}

type hub struct {
	mu       sync.Mutex
	clients  map[*client]bool
	last     []byte
	closed   bool
	upgrader websocket.Upgrader
}

// Hub fans status messages out to every connected websocket client.
// A client that connects late first receives the most recent message.
type Hub interface {
	http.Handler

	// Status broadcasts a message. NaN and infinite progress values are sent as 0.
	//
	// Parameters:
	//   - msg: the message text
	//   - typ: INFO, ERROR or PROGRESS
	//   - progress: completion in [0, 1] for PROGRESS messages
	Status(msg string, typ int, progress float32)

	// Info broadcasts a formatted INFO message.
	Info(format string, a ...any)

	// Error broadcasts a formatted ERROR message.
	Error(format string, a ...any)

	// Progress broadcasts a formatted PROGRESS message.
	Progress(progress float32, format string, a ...any)

	// Last returns the most recently broadcast message, if any.
	//
	// Returns:
	//   - Status: the message
	//   - bool: false when nothing has been broadcast yet
	Last() (Status, bool)

	// Clients returns the number of connected clients.
	Clients() int

	// Close disconnects every client. Later connections are refused.
	Close()
}

var _ Hub = &hub{}

// NewHub creates an empty Hub.
//
// Returns:
//   - Hub: the hub
func NewHub() Hub {
	return &hub{
		clients: make(map[*client]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

func (h *hub) Status(msg string, typ int, progress float32) {
	if math.IsNaN(float64(progress)) || math.IsInf(float64(progress), 0) {
		progress = 0
	}
	data, err := json.Marshal(&Status{
		Message:  msg,
		Time:     time.Now(),
		Type:     typ,
		Progress: progress,
	})
	if err != nil {
		log.Printf("[Status] marshal error: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = data
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			log.Printf("[Status] client %v is not reading, dropping it", c.conn.RemoteAddr())
			h.dropLocked(c)
		}
	}
}

func (h *hub) Info(format string, a ...any) {
	h.Status(fmt.Sprintf(format, a...), INFO, 0)
}

func (h *hub) Error(format string, a ...any) {
	h.Status(fmt.Sprintf(format, a...), ERROR, 0)
}

func (h *hub) Progress(progress float32, format string, a ...any) {
	h.Status(fmt.Sprintf(format, a...), PROGRESS, progress)
}

func (h *hub) Last() (Status, bool) {
	h.mu.Lock()
	data := h.last
	h.mu.Unlock()

	var s Status
	if data == nil {
		return s, false
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return s, false
	}
	return s, true
}

func (h *hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		h.dropLocked(c)
	}
}

// ServeHTTP upgrades the request to a websocket and registers the connection as a client.
func (h *hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Status] upgrade error: %v", err)
		return
	}

	c := &client{hub: h, conn: conn, send: make(chan []byte, sendQueue)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[c] = true
	if h.last != nil {
		c.send <- h.last
	}
	h.mu.Unlock()

	go c.writePump()
	go c.readPump()
}

// dropLocked unregisters c and closes its queue. h.mu must be held.
func (h *hub) dropLocked(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

func (h *hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(c)
}

// readPump discards incoming frames so control messages are processed, and unregisters the client on disconnect.
func (c *client) readPump() {
	defer c.hub.unregister(c)
	c.conn.SetReadLimit(512)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.hub.unregister(c)
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Printf("[Status] ws write msg error: %v", err)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("[Status] ws write ping error: %v", err)
				return
			}
		}
	}
}
