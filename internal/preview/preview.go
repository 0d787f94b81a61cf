// Package preview streams rendered frames to browsers over websockets and
// reports the daemon's health over HTTP.
package preview

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/exor2008/Pleiades/internal/led"
)

const (
	writeTimeout = 200 * time.Millisecond
	// clientBuffer is how many frames may wait for a client before it is
	// considered too slow and dropped.
	clientBuffer = 4
)

// Frame is the message sent to websocket clients for every flushed frame.
// RGB is in wiring order and marshals as base64.
type Frame struct {
	ID     uint64 `json:"frame_id"`
	Width  int    `json:"w"`
	Height int    `json:"h"`
	RGB    []byte `json:"rgb"`
}

// client is one websocket connection with its own send queue, drained by a
// writer goroutine.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub is a led.Driver that broadcasts every frame to connected websocket
// clients. It serves the websocket endpoint itself. Write never waits on the
// network.
type Hub struct {
	layout   led.Serpentine
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
	last    *Frame
	frameID uint64
}

var (
	_ led.Driver   = (*Hub)(nil)
	_ http.Handler = (*Hub)(nil)
)

// NewHub creates a hub for frames of the given layout.
func NewHub(layout led.Serpentine, logger *slog.Logger) *Hub {
	return &Hub{
		layout: layout,
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

// Write queues a frame for every client. Clients whose queue is full are
// dropped.
func (h *Hub) Write(rgb []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.frameID++
	h.last = &Frame{
		ID:     h.frameID,
		Width:  h.layout.Width,
		Height: h.layout.Height,
		RGB:    append([]byte(nil), rgb...),
	}

	if len(h.clients) == 0 {
		return nil
	}

	b, err := json.Marshal(h.last)
	if err != nil {
		return errors.Wrap(err, "failed to marshal frame")
	}

	for c := range h.clients {
		select {
		case c.send <- b:
		default:
			h.logger.Debug("dropping slow preview client", "remote", c.conn.RemoteAddr())
			h.dropLocked(c)
		}
	}
	return nil
}

// Close disconnects every client.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		h.dropLocked(c)
	}
	return nil
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Frames returns the number of frames written so far.
func (h *Hub) Frames() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.frameID
}

// ServeHTTP upgrades the request to a websocket and registers the client.
// The latest frame, if any, is sent immediately.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("failed to upgrade preview client", "error", err)
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, clientBuffer),
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	if h.last != nil {
		if b, err := json.Marshal(h.last); err == nil {
			c.send <- b
		}
	}
	h.mu.Unlock()

	h.logger.Debug("preview client connected", "remote", conn.RemoteAddr())

	go h.writeLoop(c)

	// Clients never send anything meaningful; reading only detects the close.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
		h.drop(c)
	}()
}

func (h *Hub) writeLoop(c *client) {
	for b := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
			h.logger.Debug(
				"dropping preview client",
				"remote", c.conn.RemoteAddr(),
				"error", err)
			h.drop(c)
		}
	}
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(c)
}

func (h *Hub) dropLocked(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	c.conn.Close()
}

// Status is the health report served at /health.
type Status struct {
	World   string  `json:"world"`
	On      bool    `json:"on"`
	Frames  uint64  `json:"frames"`
	Dropped uint64  `json:"dropped_commands"`
	Clients int     `json:"preview_clients"`
	UptimeS float64 `json:"uptime_s"`
}

// NewMux serves the hub at /ws and status at /health.
func NewMux(hub *Hub, status func() Status) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(status()); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
	return mux
}
