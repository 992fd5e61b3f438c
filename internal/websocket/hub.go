// Package websocket streams pipeline run snapshots to connected clients.
// The hub fans each JSON-encoded message out to every client; slow
// consumers are dropped rather than allowed to stall a run.
package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"salescleanse/internal/config"
	"salescleanse/pkg/contracts/events"
)

const broadcastBuffer = 256

// Hub maintains the set of active clients and fans broadcast messages
// out to them. It implements pipeline.ProgressBroadcaster. The hub loop
// must be started before clients register.
type Hub struct {
	cfg config.WebSocketConfig

	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	mu      sync.RWMutex
	running bool
	quit    chan struct{}

	logger *slog.Logger

	totalConnections int64
	messagesSent     int64
	messagesDropped  int64
}

// NewHub creates a hub with the given websocket configuration.
func NewHub(cfg config.WebSocketConfig, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		cfg:        cfg,
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		quit:       make(chan struct{}),
		logger:     logger.With(slog.String("component", "websocket.hub")),
	}
}

// Start launches the hub loop. Calling Start on a running hub is a no-op.
func (h *Hub) Start() {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return
	}
	h.running = true
	h.mu.Unlock()

	go h.run()
}

// Stop shuts the hub loop down and disconnects every client.
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	h.mu.Unlock()

	close(h.quit)

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
}

// Register queues a client for registration with the hub loop.
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stats reports hub counters for health endpoints.
func (h *Hub) Stats() map[string]int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return map[string]int64{
		"active_clients":    int64(len(h.clients)),
		"total_connections": h.totalConnections,
		"messages_sent":     h.messagesSent,
		"messages_dropped":  h.messagesDropped,
	}
}

// BroadcastRunSnapshot sends a run snapshot to every connected client.
// When the broadcast queue is full the snapshot is dropped; the next one
// supersedes it anyway.
func (h *Hub) BroadcastRunSnapshot(snapshot events.RunSnapshot) {
	h.broadcastMessage(events.MessageTypeRunSnapshot, snapshot, "")
}

func (h *Hub) broadcastMessage(msgType events.MessageType, data interface{}, traceID string) {
	payload, err := json.Marshal(events.WebSocketMessage{
		BaseMessage: events.BaseMessage{
			Type:      msgType,
			Timestamp: time.Now().UTC(),
			TraceID:   traceID,
		},
		Data: data,
	})
	if err != nil {
		h.logger.Error("broadcast_marshal_failed",
			slog.String("type", string(msgType)),
			slog.String("error", err.Error()))
		return
	}

	select {
	case h.broadcast <- payload:
	default:
		h.mu.Lock()
		h.messagesDropped++
		h.mu.Unlock()
		h.logger.Warn("broadcast_queue_full", slog.String("type", string(msgType)))
	}
}

func (h *Hub) run() {
	for {
		select {
		case <-h.quit:
			h.logger.Info("hub_stopped")
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case message := <-h.broadcast:
			h.fanOut(message)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	h.totalConnections++
	count := len(h.clients)
	h.mu.Unlock()

	h.logger.Info("client_registered",
		slog.String("client_id", client.id),
		slog.String("remote_addr", client.remoteAddr),
		slog.Int("active_clients", count))

	welcome, err := json.Marshal(events.WebSocketMessage{
		BaseMessage: events.BaseMessage{
			Type:      events.MessageTypeConnect,
			Timestamp: time.Now().UTC(),
			TraceID:   client.traceID,
		},
		Data: map[string]string{"client_id": client.id, "status": "connected"},
	})
	if err != nil {
		return
	}
	select {
	case client.send <- welcome:
	default:
	}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	count := len(h.clients)
	h.mu.Unlock()

	close(client.send)

	h.logger.Info("client_unregistered",
		slog.String("client_id", client.id),
		slog.Duration("connected_for", time.Since(client.connectedAt)),
		slog.Int("active_clients", count))
}

func (h *Hub) fanOut(message []byte) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		select {
		case client.send <- message:
			h.mu.Lock()
			h.messagesSent++
			h.mu.Unlock()
		default:
			// Slow consumer: drop the client instead of stalling the run.
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			h.logger.Warn("client_send_buffer_full",
				slog.String("client_id", client.id))
		}
	}
}

func (h *Hub) pongWait() time.Duration {
	if h.cfg.PongWait > 0 {
		return h.cfg.PongWait
	}
	return 60 * time.Second
}

// pingPeriod must stay below pongWait or the peer times us out between
// pings.
func (h *Hub) pingPeriod() time.Duration {
	if h.cfg.PingPeriod > 0 && h.cfg.PingPeriod < h.pongWait() {
		return h.cfg.PingPeriod
	}
	return h.pongWait() * 9 / 10
}
