package gateway

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// envelope is the {stream, data} wrapper of §6.3's WebSocket surface.
type envelope struct {
	Stream string `json:"stream"`
	Data   any    `json:"data"`
}

// hub fans bar-close and markPrice events out to every connected client
// (§5: "failed sends cause that client to be dropped... no client's
// slowness stalls others"). Grounded on
// 0xtitan6-polymarket-mm/internal/api/stream.go's Hub/Client pattern.
type hub struct {
	mu         sync.RWMutex
	clients    map[*wsClient]bool
	register   chan *wsClient
	unregister chan *wsClient
	broadcast  chan []byte
	log        zerolog.Logger
	metrics    MetricsRecorder
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

func newHub(log zerolog.Logger, metrics MetricsRecorder) *hub {
	return &hub{
		clients:    make(map[*wsClient]bool),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		broadcast:  make(chan []byte, 256),
		log:        log,
		metrics:    metrics,
	}
}

func (h *hub) run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
			h.setClientMetric()
		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			h.setClientMetric()
		case msg := <-h.broadcast:
			h.mu.RLock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					h.log.Warn().Msg("ws: slow client dropped")
					go func(c *wsClient) { h.unregister <- c }(c)
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *hub) setClientMetric() {
	if h.metrics == nil {
		return
	}
	h.mu.RLock()
	n := len(h.clients)
	h.mu.RUnlock()
	h.metrics.SetWSClients(n)
}

func (h *hub) broadcastEnvelope(stream string, data any) {
	b, err := json.Marshal(envelope{Stream: stream, Data: data})
	if err != nil {
		h.log.Error().Err(err).Msg("ws: marshal envelope")
		return
	}
	select {
	case h.broadcast <- b:
	default:
		h.log.Warn().Msg("ws: broadcast channel full, dropping")
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleStream upgrades the connection and registers it with the hub. It
// accepts (and ignores, per §6.3) a `streams` query param since every
// client receives every broadcast.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("ws: upgrade failed")
		return
	}
	c := &wsClient{conn: conn, send: make(chan []byte, 32)}
	s.hub.register <- c

	go c.writePump(s.hub)
	go c.readPump(s.hub)
}

func (c *wsClient) writePump(h *hub) {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.unregister <- c
			return
		}
	}
}

func (c *wsClient) readPump(h *hub) {
	defer func() {
		h.unregister <- c
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
