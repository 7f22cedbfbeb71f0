// Package stream pushes door status changes to websocket clients.
package stream

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"coop-door-backend/internal/model"
)

const writeWait = 5 * time.Second

// Message is the JSON frame sent for every status.
type Message struct {
	model.DoorStatus
	State model.DoorState `json:"state"`
}

// NewMessage wraps status with its derived state.
func NewMessage(status model.DoorStatus) Message {
	return Message{DoorStatus: status, State: status.State()}
}

type client struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *client) write(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.writeLocked(data)
}

func (c *client) writeLocked(data []byte) error {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Snapshot returns the status a new client starts from.
type Snapshot func(ctx context.Context) (model.DoorStatus, error)

// Hub tracks connected websocket clients.
type Hub struct {
	upgrader websocket.Upgrader
	log      *zap.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}
}

// NewHub creates a hub. checkOrigin may be nil to allow every origin.
func NewHub(log *zap.Logger, checkOrigin func(r *http.Request) bool) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &Hub{
		upgrader: websocket.Upgrader{CheckOrigin: checkOrigin},
		log:      log.Named("stream"),
		clients:  make(map[*client]struct{}),
	}
}

// Serve upgrades the request, sends the snapshot and then blocks until the
// client goes away. Incoming frames are discarded. snapshot may be nil.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, snapshot Snapshot) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("WebSocket upgrade error", zap.Error(err))
		return
	}

	// Registered before the snapshot is read. Broadcasts to this client
	// queue on its write lock until the snapshot is out.
	c := &client{conn: conn}
	c.writeMu.Lock()
	h.add(c)
	defer h.remove(c)
	err = h.sendSnapshot(r.Context(), c, snapshot)
	c.writeMu.Unlock()
	if err != nil {
		return
	}

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) sendSnapshot(ctx context.Context, c *client, snapshot Snapshot) error {
	if snapshot == nil {
		return nil
	}
	status, err := snapshot(ctx)
	if err != nil {
		h.log.Warn("Streaming without initial status", zap.Error(err))
		return nil
	}
	data, err := json.Marshal(NewMessage(status))
	if err != nil {
		return err
	}
	return c.writeLocked(data)
}

// Broadcast sends status to every client. It satisfies the gateway's
// listener signature.
func (h *Hub) Broadcast(status model.DoorStatus) {
	data, err := json.Marshal(NewMessage(status))
	if err != nil {
		h.log.Error("Failed to marshal status frame", zap.Error(err))
		return
	}

	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if err := c.write(data); err != nil {
			h.remove(c)
		}
	}
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()

	for c := range clients {
		c.conn.Close()
	}
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	if ok {
		c.conn.Close()
	}
}
