package ws

import (
	"encoding/json"
	"sync"
	"sync/atomic"

	"salun/internal/domain"
	"salun/internal/metrics"

	"github.com/rs/zerolog/log"
)

// Client represents a single WebSocket connection with user context.
type Client struct {
	UserID uint
	Role   string
	Send   chan []byte
	Hub    *Hub // set by Register so Close can unregister
	mu     sync.Mutex
	closed bool
}

func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.Send)
	if c.Hub != nil {
		c.Hub.unregister(c)
	}
}

func (c *Client) deliver(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.Send <- data:
	default:
		log.Warn().Uint("user_id", c.UserID).Msg("push buffer full, frame dropped")
	}
}

// Hub maintains the set of active clients. Events about one user go to that
// user's sockets and to every admin socket.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	// userID -> clients (one user can have multiple connections)
	byUser map[uint]map[*Client]struct{}
	admins map[*Client]struct{}
	seq    atomic.Uint64
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		byUser:  make(map[uint]map[*Client]struct{}),
		admins:  make(map[*Client]struct{}),
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c.Hub = h
	h.clients[c] = struct{}{}
	if h.byUser[c.UserID] == nil {
		h.byUser[c.UserID] = make(map[*Client]struct{})
	}
	h.byUser[c.UserID][c] = struct{}{}
	if c.Role == domain.RoleAdmin {
		h.admins[c] = struct{}{}
	}
	metrics.HubClients.Inc()
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	delete(h.admins, c)
	if m := h.byUser[c.UserID]; m != nil {
		delete(m, c)
		if len(m) == 0 {
			delete(h.byUser, c.UserID)
		}
	}
	metrics.HubClients.Dec()
}

func (h *Hub) frame(event string, data any) ([]byte, bool) {
	env, err := NewEnvelope(event, data)
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("hub: encode event")
		return nil, false
	}
	env.Seq = h.seq.Add(1)
	raw, err := json.Marshal(env)
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("hub: encode frame")
		return nil, false
	}
	metrics.HubEmitted.WithLabelValues(event).Inc()
	return raw, true
}

// Emit sends event to the sockets of userID and to all admins.
func (h *Hub) Emit(event string, userID uint, data any) {
	raw, ok := h.frame(event, data)
	if !ok {
		return
	}
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.admins)+1)
	for c := range h.admins {
		targets = append(targets, c)
	}
	for c := range h.byUser[userID] {
		if _, admin := h.admins[c]; !admin {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()
	for _, c := range targets {
		c.deliver(raw)
	}
}

// EmitToUser sends event to the sockets of userID only.
func (h *Hub) EmitToUser(event string, userID uint, data any) {
	raw, ok := h.frame(event, data)
	if !ok {
		return
	}
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.byUser[userID]))
	for c := range h.byUser[userID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()
	for _, c := range targets {
		c.deliver(raw)
	}
}

// EmitToAdmins sends event to every admin socket.
func (h *Hub) EmitToAdmins(event string, data any) {
	raw, ok := h.frame(event, data)
	if !ok {
		return
	}
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.admins))
	for c := range h.admins {
		targets = append(targets, c)
	}
	h.mu.RUnlock()
	for _, c := range targets {
		c.deliver(raw)
	}
}

// Broadcast sends event to every connected socket.
func (h *Hub) Broadcast(event string, data any) {
	raw, ok := h.frame(event, data)
	if !ok {
		return
	}
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()
	for _, c := range targets {
		c.deliver(raw)
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
