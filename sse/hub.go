package sse

import (
	"path"
	"sync"

	"github.com/kbukum/yttext/logger"
)

// DefaultClientBuffer is the number of events a slow client may fall behind by.
const DefaultClientBuffer = 64

// Client is one subscriber. It receives every event published to a topic
// that matches its glob pattern.
type Client struct {
	id      string
	pattern string
	events  chan Event
}

// NewClient creates a client subscribed to pattern, e.g. "job:*" or "job:<id>".
func NewClient(id, pattern string, buffer int) *Client {
	if buffer <= 0 {
		buffer = DefaultClientBuffer
	}
	return &Client{id: id, pattern: pattern, events: make(chan Event, buffer)}
}

// ID returns the client's unique identifier.
func (c *Client) ID() string { return c.id }

// Pattern returns the topic pattern the client listens on.
func (c *Client) Pattern() string { return c.pattern }

// Events returns the channel events are delivered on. It is closed when
// the client is unregistered or the hub stops.
func (c *Client) Events() <-chan Event { return c.events }

// send enqueues ev, reporting false when the client buffer is full.
func (c *Client) send(ev Event) bool {
	select {
	case c.events <- ev:
		return true
	default:
		return false
	}
}

type message struct {
	topic string
	event Event
}

// Hub routes published events to subscribed clients.
//
// Registration, removal and delivery all happen on the Run goroutine, so a
// client channel is never written after it is closed.
type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan message
	done       chan struct{}
	stopOnce   sync.Once
	mu         sync.RWMutex
	log        *logger.Logger
}

// NewHub creates a hub. Call Run to start delivering.
func NewHub(log *logger.Logger) *Hub {
	if log == nil {
		log = logger.Nop()
	}
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan message, 256),
		done:       make(chan struct{}),
		log:        log.WithComponent("sse"),
	}
}

// Run delivers events until Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.closeAllClients()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.id] = client
			n := len(h.clients)
			h.mu.Unlock()
			h.log.Debug("Client registered", logger.Fields("client_id", client.id, "pattern", client.pattern, "total_clients", n))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.id]; ok {
				delete(h.clients, client.id)
				close(client.events)
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.log.Debug("Client unregistered", logger.Fields("client_id", client.id, "total_clients", n))

		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

// Stop shuts the hub down and closes every client. Safe to call more than once.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, client := range h.clients {
		close(client.events)
		delete(h.clients, id)
	}
}

// Register adds a client. On a stopped hub the client is closed at once.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.events)
	}
}

// Unregister removes a client and closes its channel.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Publish sends ev to every client whose pattern matches topic. It never
// blocks: when the hub is backed up the event is dropped.
func (h *Hub) Publish(topic string, ev Event) {
	select {
	case h.broadcast <- message{topic: topic, event: ev}:
	case <-h.done:
	default:
		h.log.Warn("Broadcast queue full, dropping event", logger.Fields("topic", topic, "event", ev.Name))
	}
}

func (h *Hub) deliver(msg message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, client := range h.clients {
		matched, err := path.Match(client.pattern, msg.topic)
		if err != nil || !matched {
			continue
		}
		if !client.send(msg.event) {
			h.log.Warn("Client buffer full, dropping event", logger.Fields("client_id", id, "topic", msg.topic))
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
