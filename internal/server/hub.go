package server

import (
	"errors"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/michalowskil/lovelace-touchpad-card/internal/protocol"
)

const (
	maxMessageSize = 4096
	writeWait      = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Surfaces are served from arbitrary dashboard origins
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// hub tracks connected surfaces
type hub struct {
	sink        Sink
	scrollScale float64
	pingPeriod  time.Duration
	logger      *log.Logger

	clients    map[*client]bool
	clientsMu  sync.RWMutex
	register   chan *client
	unregister chan *client
	shutdown   chan struct{}
	stopOnce   sync.Once

	applied  atomic.Int64
	rejected atomic.Int64

	// badFrames throttles logging of malformed frames across all clients
	badFrames *rate.Limiter

	onCount func(int)
}

// client is one connected surface
type client struct {
	hub   *hub
	conn  *websocket.Conn
	id    string
	wheel *Wheel
	done  chan struct{}
}

func newHub(sink Sink, scrollScale float64, pingPeriod time.Duration, logger *log.Logger) *hub {
	return &hub{
		sink:        sink,
		scrollScale: scrollScale,
		pingPeriod:  pingPeriod,
		logger:      logger,
		clients:     make(map[*client]bool),
		register:    make(chan *client),
		unregister:  make(chan *client),
		shutdown:    make(chan struct{}),
		badFrames:   rate.NewLimiter(rate.Every(5*time.Second), 5),
	}
}

func (h *hub) run() {
	for {
		select {
		case c := <-h.register:
			h.clientsMu.Lock()
			h.clients[c] = true
			n := len(h.clients)
			h.clientsMu.Unlock()
			h.logger.Printf("WS: Surface connected from %s. Total surfaces: %d", c.id, n)
			h.notifyCount(n)

		case c := <-h.unregister:
			h.clientsMu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.done)
				n := len(h.clients)
				h.clientsMu.Unlock()
				h.logger.Printf("WS: Surface disconnected from %s. Total surfaces: %d", c.id, n)
				h.notifyCount(n)
				continue
			}
			h.clientsMu.Unlock()

		case <-h.shutdown:
			h.clientsMu.Lock()
			for c := range h.clients {
				delete(h.clients, c)
				close(c.done)
			}
			h.clientsMu.Unlock()
			return
		}
	}
}

func (h *hub) stop() {
	h.stopOnce.Do(func() { close(h.shutdown) })
}

func (h *hub) count() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

func (h *hub) notifyCount(n int) {
	if h.onCount != nil {
		h.onCount(n)
	}
}

func (h *hub) serve(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("WS: Failed to upgrade connection: %v", err)
		return
	}

	c := &client{
		hub:   h,
		conn:  conn,
		id:    r.RemoteAddr,
		wheel: NewWheel(h.scrollScale),
		done:  make(chan struct{}),
	}

	select {
	case h.register <- c:
	case <-h.shutdown:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

// readPump applies frames from the surface in arrival order
func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.shutdown:
		}
		c.conn.Close()
	}()

	pongWait := c.hub.pingPeriod * 2
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Printf("WS: Read error from %s: %v", c.id, err)
			}
			return
		}
		c.handleFrame(data)
	}
}

// writePump keeps the connection alive and closes it on shutdown
func (c *client) writePump() {
	ticker := time.NewTicker(c.hub.pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
			return

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *client) handleFrame(data []byte) {
	msg, err := protocol.Decode(data)
	if err != nil {
		c.hub.rejected.Add(1)
		if c.hub.badFrames.Allow() {
			if errors.Is(err, protocol.ErrMalformed) {
				c.hub.logger.Printf("WS: Invalid frame from %s: %v", c.id, err)
			} else {
				c.hub.logger.Printf("WS: Rejected message from %s: %v", c.id, err)
			}
		}
		return
	}

	a, ok := toAction(msg, c.wheel)
	if !ok {
		return
	}
	c.hub.applied.Add(1)
	c.hub.sink.Apply(c.id, a)
}
