package sse

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kbukum/artcache/logger"
)

const (
	defaultClientBuffer = 64
	defaultKeepAlive    = 30 * time.Second
)

// Client is one connected event stream.
type Client struct {
	id     string
	topics map[string]struct{}
	events chan Event
}

// NewClient creates a client subscribed to topics. No topics means all.
func NewClient(id string, buffer int, topics ...string) *Client {
	if buffer <= 0 {
		buffer = defaultClientBuffer
	}
	c := &Client{id: id, topics: make(map[string]struct{}, len(topics)), events: make(chan Event, buffer)}
	for _, t := range topics {
		if t = strings.TrimSpace(t); t != "" {
			c.topics[t] = struct{}{}
		}
	}
	return c
}

// ID returns the client id.
func (c *Client) ID() string { return c.id }

// Events delivers events until the client is unregistered.
func (c *Client) Events() <-chan Event { return c.events }

// Wants reports whether the client subscribed to topic.
func (c *Client) Wants(topic string) bool {
	if len(c.topics) == 0 {
		return true
	}
	_, ok := c.topics[topic]
	return ok
}

func (c *Client) send(e Event) bool {
	select {
	case c.events <- e:
		return true
	default:
		return false
	}
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithKeepAlive sets the interval of keep-alive comments on idle streams.
func WithKeepAlive(d time.Duration) HubOption {
	return func(h *Hub) { h.keepAlive = d }
}

// WithClientBuffer sets how many events a slow client may lag behind.
func WithClientBuffer(n int) HubOption {
	return func(h *Hub) { h.buffer = n }
}

// Hub tracks connected clients and fans published events out to them.
// Registration and delivery happen on the Run goroutine.
type Hub struct {
	log       *logger.Logger
	keepAlive time.Duration
	buffer    int

	mu      sync.RWMutex
	clients map[string]*Client

	register   chan *Client
	unregister chan *Client
	broadcast  chan Event
	done       chan struct{}
	stopOnce   sync.Once
	seq        atomic.Uint64
}

// NewHub creates a Hub. Call Run to start delivery.
func NewHub(log *logger.Logger, opts ...HubOption) *Hub {
	if log == nil {
		log = logger.Nop()
	}
	h := &Hub{
		log:        log.WithComponent("sse"),
		keepAlive:  defaultKeepAlive,
		buffer:     defaultClientBuffer,
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan Event, 256),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run delivers events until Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.closeAll()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c.id] = c
			n := len(h.clients)
			h.mu.Unlock()
			h.log.Debug("client registered", logger.Fields("client_id", c.id, "clients", n))

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c.id]; ok {
				delete(h.clients, c.id)
				close(c.events)
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.log.Debug("client unregistered", logger.Fields("client_id", c.id, "clients", n))

		case e := <-h.broadcast:
			h.deliver(e)
		}
	}
}

// Stop ends Run and closes every client stream. Safe to call repeatedly.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Done is closed once Stop has been called.
func (h *Hub) Done() <-chan struct{} { return h.done }

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		close(c.events)
		delete(h.clients, id)
	}
}

// Register adds c. It returns false once the hub has stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes c and closes its stream.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Publish encodes data as JSON and queues it for every client subscribed
// to topic. Events are dropped when the hub is stopped or backed up.
func (h *Hub) Publish(topic string, data any) {
	e, err := jsonEvent(topic, data)
	if err != nil {
		h.log.Log("event not encodable", logger.CategoryUI, logger.LevelError,
			logger.MergeWithError(logger.Fields("topic", topic), err))
		return
	}
	e.ID = h.seq.Add(1)
	select {
	case <-h.done:
		return
	default:
	}
	select {
	case h.broadcast <- e:
	default:
		h.log.Warn("event dropped, hub backed up", logger.Fields("topic", topic))
	}
}

func (h *Hub) deliver(e Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, c := range h.clients {
		if !c.Wants(e.Topic) {
			continue
		}
		if !c.send(e) {
			h.log.Warn("client lagging, event dropped", logger.Fields("client_id", id, "topic", e.Topic))
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

var _ Publisher = (*Hub)(nil)
