// Package telemetry fans the console feed out to operators: a WebSocket
// hub for live dashboards and a Discord notifier for alert transitions.
package telemetry

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/stratum-ops/opsdeck/src/console/types"
)

// Hub owns the live WebSocket connections. The web layer registers
// upgraded connections with Connect and unregisters them with
// Disconnect; only the Run loop writes to registered connections.
type Hub struct {
	lock    sync.Mutex
	clients map[*websocket.Conn]bool

	broadcast chan []byte
	done      chan struct{}
	once      sync.Once
}

func NewHub() *Hub {
	return &Hub{
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan []byte, 32),
		done:      make(chan struct{}),
	}
}

// Run delivers broadcast frames to every connected client until Close.
// Clients that fail a write are dropped.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			return
		case message := <-h.broadcast:
			h.lock.Lock()
			for client := range h.clients {
				if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
					client.Close()
					delete(h.clients, client)
				}
			}
			h.lock.Unlock()
		}
	}
}

// Connect registers a client. The caller owns the read side and must
// call Disconnect when it drops.
func (h *Hub) Connect(conn *websocket.Conn) {
	h.lock.Lock()
	h.clients[conn] = true
	h.lock.Unlock()
}

// Disconnect unregisters and closes a client. Unknown connections are
// ignored, so the read loop and the run loop may both report the same
// death.
func (h *Hub) Disconnect(conn *websocket.Conn) {
	h.lock.Lock()
	if h.clients[conn] {
		delete(h.clients, conn)
		conn.Close()
	}
	h.lock.Unlock()
}

// ClientCount reports the number of connected dashboards.
func (h *Hub) ClientCount() int {
	h.lock.Lock()
	defer h.lock.Unlock()
	return len(h.clients)
}

// Broadcast queues a frame for delivery. The feed is latest-wins: when
// the queue is full the frame is dropped rather than stalling the
// publisher.
func (h *Hub) Broadcast(message []byte) {
	select {
	case <-h.done:
	case h.broadcast <- message:
	default:
		log.Printf("telemetry: hub queue full, dropping frame")
	}
}

// Publish implements the session sink. Every snapshot goes out, changed
// or not, so dashboards stay in lockstep with the tick.
func (h *Hub) Publish(snap types.Snapshot) {
	body, err := json.Marshal(snap)
	if err != nil {
		log.Printf("telemetry: marshal snapshot: %v", err)
		return
	}
	h.Broadcast(body)
}

// Close stops the run loop and drops every client.
func (h *Hub) Close() {
	h.once.Do(func() { close(h.done) })

	h.lock.Lock()
	defer h.lock.Unlock()
	for client := range h.clients {
		client.Close()
	}
	h.clients = make(map[*websocket.Conn]bool)
}

// Name implements the lifecycle module interface.
func (h *Hub) Name() string { return "telemetry.hub" }

// Start launches the run loop.
func (h *Hub) Start(ctx context.Context) error {
	go h.Run()
	return nil
}

// Stop closes the hub.
func (h *Hub) Stop(ctx context.Context) { h.Close() }
