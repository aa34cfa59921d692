package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ayusman/motionmasters/internal/gesture"
)

// statusWriteTimeout bounds a single websocket write.
const statusWriteTimeout = time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// statusMessage is sent to websocket clients whenever the label changes.
type statusMessage struct {
	Label     gesture.Label `json:"label"`
	Timestamp int64         `json:"timestamp"`
}

// statusClient is one websocket connection. SetLabel only signals notify;
// the client's writer goroutine sends the latest label.
type statusClient struct {
	conn   *websocket.Conn
	notify chan struct{}
	done   chan struct{}
}

func newStatusClient(conn *websocket.Conn) *statusClient {
	c := &statusClient{
		conn:   conn,
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	// The current label goes out first.
	c.notify <- struct{}{}
	return c
}

func (c *statusClient) signal() {
	select {
	case c.notify <- struct{}{}:
	default:
	}
}

// StatusHub holds the current status label and pushes changes to websocket
// clients. It implements render.StatusSink.
type StatusHub struct {
	logger *zap.SugaredLogger

	mu      sync.RWMutex
	label   gesture.Label
	changed time.Time
	clients map[string]*statusClient
}

// NewStatusHub creates a hub showing gesture.LabelWaiting.
func NewStatusHub(logger *zap.SugaredLogger) *StatusHub {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &StatusHub{
		logger:  logger,
		label:   gesture.LabelWaiting,
		changed: time.Now(),
		clients: make(map[string]*statusClient),
	}
}

// SetLabel records label and wakes the client writers if it differs from
// the current one. It never writes to a connection.
func (h *StatusHub) SetLabel(label gesture.Label) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if label == h.label {
		return
	}
	h.label = label
	h.changed = time.Now()

	for _, c := range h.clients {
		c.signal()
	}
}

// Label returns the current label and when it last changed.
func (h *StatusHub) Label() (gesture.Label, time.Time) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.label, h.changed
}

// Clients returns the number of connected websocket clients.
func (h *StatusHub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request to a websocket and streams label changes.
// The current label is sent immediately after connecting.
func (h *StatusHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warnf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	id := uuid.New().String()
	client := newStatusClient(conn)

	h.mu.Lock()
	h.clients[id] = client
	h.mu.Unlock()
	defer h.remove(id)

	h.logger.Debugf("Status client %s connected", id)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		h.writeLoop(id, client)
	}()

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	close(client.done)
	<-writerDone

	h.logger.Debugf("Status client %s disconnected", id)
}

// writeLoop sends the hub's label to one client each time it is signalled.
// A failed write closes the connection, which ends the read loop.
func (h *StatusHub) writeLoop(id string, c *statusClient) {
	var sent gesture.Label
	for {
		select {
		case <-c.done:
			return
		case <-c.notify:
		}

		h.mu.RLock()
		label := h.label
		msg := h.messageLocked()
		h.mu.RUnlock()

		if label == sent {
			continue
		}

		c.conn.SetWriteDeadline(time.Now().Add(statusWriteTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.logger.Debugf("Dropping status client %s: %v", id, err)
			c.conn.Close()
			return
		}
		sent = label
	}
}

func (h *StatusHub) remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, id)
}

func (h *StatusHub) messageLocked() []byte {
	msg, _ := json.Marshal(statusMessage{
		Label:     h.label,
		Timestamp: h.changed.UnixMilli(),
	})
	return msg
}
