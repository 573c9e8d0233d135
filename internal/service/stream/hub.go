// Package stream pushes analysis results to websocket subscribers.
package stream

import (
	"net/http"
	"sync"
	"time"

	"TurtleDesk/internal/domain/models"
	"TurtleDesk/internal/service/metrics"
	applogger "TurtleDesk/pkg/logger"

	"github.com/gorilla/websocket"
)

const (
	pingInterval = 45 * time.Second
	readTimeout  = 90 * time.Second
	writeTimeout = 10 * time.Second
	outBuffer    = 64
)

// Message is the envelope written to subscribers.
type Message struct {
	Type string      `json:"type"` // "signal" or "history"
	Data interface{} `json:"data"`
}

type client struct {
	conn *websocket.Conn
	out  chan Message
	once sync.Once
	done chan struct{}
}

func (c *client) close() {
	c.once.Do(func() { close(c.done) })
}

// Hub tracks subscribers and the most recent results.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*client]struct{}
	history  []models.AnalysisResult
	limit    int
	upgrader websocket.Upgrader
	l        *applogger.Logger
	wg       sync.WaitGroup
}

func NewHub(l *applogger.Logger, historyLimit int) *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		history: make([]models.AnalysisResult, 0, historyLimit),
		limit:   historyLimit,
		upgrader: websocket.Upgrader{
			CheckOrigin:       func(*http.Request) bool { return true },
			EnableCompression: true,
		},
		l: l,
	}
}

// Broadcast records r and queues it for every subscriber. Slow subscribers miss messages.
func (h *Hub) Broadcast(r *models.AnalysisResult) {
	if r == nil {
		return
	}
	h.mu.Lock()
	h.history = append(h.history, *r)
	if h.limit > 0 && len(h.history) > h.limit {
		h.history = h.history[len(h.history)-h.limit:]
	}
	h.mu.Unlock()

	msg := Message{Type: "signal", Data: r}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.out <- msg:
		default:
		}
	}
}

// History returns a copy of the retained results, oldest first.
func (h *Hub) History() []models.AnalysisResult {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]models.AnalysisResult, len(h.history))
	copy(out, h.history)
	return out
}

// Clients returns the number of connected subscribers.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and streams until the peer goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.l.Warn("websocket upgrade failed", applogger.Error(err))
		return
	}
	cl := &client{conn: conn, out: make(chan Message, outBuffer), done: make(chan struct{})}
	cl.out <- Message{Type: "history", Data: h.History()}

	h.mu.Lock()
	h.clients[cl] = struct{}{}
	h.mu.Unlock()
	metrics.StreamClients.Inc()

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.writeLoop(cl)
	}()
	h.readLoop(cl)

	h.mu.Lock()
	delete(h.clients, cl)
	h.mu.Unlock()
	metrics.StreamClients.Dec()
	cl.close()
	_ = conn.Close()
}

func (h *Hub) writeLoop(cl *client) {
	ping := time.NewTicker(pingInterval)
	defer ping.Stop()
	for {
		select {
		case msg := <-cl.out:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := cl.conn.WriteJSON(msg); err != nil {
				cl.close()
				_ = cl.conn.Close()
				return
			}
		case <-ping.C:
			_ = cl.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
		case <-cl.done:
			return
		}
	}
}

// readLoop only consumes control frames; subscribers have nothing to say.
func (h *Hub) readLoop(cl *client) {
	_ = cl.conn.SetReadDeadline(time.Now().Add(readTimeout))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(readTimeout))
	})
	for {
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Close disconnects every subscriber and waits for their writers.
func (h *Hub) Close() {
	h.mu.RLock()
	for c := range h.clients {
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutdown"),
			time.Now().Add(time.Second))
		c.close()
		_ = c.conn.Close()
	}
	h.mu.RUnlock()
	h.wg.Wait()
}
