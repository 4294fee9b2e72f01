package sse

import (
	"path/filepath"
	"sync"

	"github.com/kbukum/rxkit/errors"
	"github.com/kbukum/rxkit/logger"
)

// DefaultClientBuffer is the frame buffer of a client without WithBuffer.
const DefaultClientBuffer = 64

// Client is one connected SSE consumer.
type Client struct {
	id       string
	topic    string
	metadata map[string]string
	events   chan Message

	mu     sync.Mutex
	closed bool
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithMetadata adds a metadata key-value pair to the client.
func WithMetadata(key, value string) ClientOption {
	return func(c *Client) {
		c.metadata[key] = value
	}
}

// WithBuffer sets how many frames may queue before the client is
// considered too slow.
func WithBuffer(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.events = make(chan Message, n)
		}
	}
}

// NewClient creates a client listening on topic.
func NewClient(id, topic string, opts ...ClientOption) *Client {
	c := &Client{
		id:       id,
		topic:    topic,
		metadata: make(map[string]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.events == nil {
		c.events = make(chan Message, DefaultClientBuffer)
	}
	return c
}

func (c *Client) ID() string                  { return c.id }
func (c *Client) Topic() string               { return c.topic }
func (c *Client) Metadata() map[string]string { return c.metadata }

// Events returns the frames queued for the client. The channel is closed
// when the client is unregistered.
func (c *Client) Events() <-chan Message { return c.events }

// Send queues msg without blocking. It returns false when the client is
// closed or its buffer is full.
func (c *Client) Send(msg Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.events <- msg:
		return true
	default:
		return false
	}
}

// Close closes the event channel. Safe to call multiple times.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.events)
	}
}

// Hub tracks connected clients. All operations take effect before they
// return, so a caller holding its own lock can order a registration
// against its broadcasts.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	stopped bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[string]*Client)}
}

func log() *logger.Logger { return logger.Get("sse") }

// Register adds client. A stopped hub closes the client and returns a
// DISPOSED error; a client with a duplicate id replaces the older one.
func (h *Hub) Register(client *Client) error {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		client.Close()
		return errors.Disposed("sse hub")
	}
	old := h.clients[client.id]
	h.clients[client.id] = client
	total := len(h.clients)
	h.mu.Unlock()

	if old != nil {
		old.Close()
	}
	log().Debug("client registered", logger.Fields(
		logger.FieldClientID, client.id,
		"topic", client.topic,
		"total_clients", total,
	))
	return nil
}

// Unregister removes client and closes its channel.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	if h.clients[client.id] == client {
		delete(h.clients, client.id)
	}
	total := len(h.clients)
	h.mu.Unlock()

	client.Close()
	log().Debug("client unregistered", logger.Fields(
		logger.FieldClientID, client.id,
		"total_clients", total,
	))
}

// Broadcast sends msg to every client whose topic matches pattern and
// returns how many received it. Clients that cannot keep up are dropped;
// they reconnect to get a fresh snapshot.
func (h *Hub) Broadcast(pattern string, msg Message) int {
	var slow []*Client
	sent := 0

	h.mu.RLock()
	for _, client := range h.clients {
		matched, err := filepath.Match(pattern, client.topic)
		if err != nil {
			h.mu.RUnlock()
			log().Error("pattern match error", logger.Fields("pattern", pattern, logger.FieldError, err.Error()))
			return 0
		}
		if !matched {
			continue
		}
		if client.Send(msg) {
			sent++
		} else {
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range slow {
		log().Warn("client too slow, disconnecting", logger.Fields(
			logger.FieldClientID, client.id,
			"topic", client.topic,
		))
		h.Unregister(client)
	}
	return sent
}

// Stop disconnects every client and refuses new ones. Safe to call
// multiple times.
func (h *Hub) Stop() {
	h.mu.Lock()
	h.stopped = true
	clients := h.clients
	h.clients = make(map[string]*Client)
	h.mu.Unlock()

	for _, client := range clients {
		client.Close()
	}
	if len(clients) > 0 {
		log().Debug("all clients closed during shutdown", logger.Fields("count", len(clients)))
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ClientIDs returns the ids of all connected clients.
func (h *Hub) ClientIDs() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ids := make([]string, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	return ids
}

// Client returns a client by id, or nil if not found.
func (h *Hub) Client(id string) *Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.clients[id]
}

var _ Broadcaster = (*Hub)(nil)
