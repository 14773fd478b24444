package sse

import (
	"path"
	"sync"

	"github.com/kbukum/gostream/logger"
)

const (
	clientBuffer    = 64
	broadcastBuffer = 256
)

// Event is one server-sent event.
type Event struct {
	// Name becomes the "event:" field; empty means the default message type.
	Name string
	// ID becomes the "id:" field when set.
	ID   string
	Data []byte
}

// Client represents a connected SSE client.
type Client struct {
	id     string
	filter string
	events chan Event
	once   sync.Once
}

// NewClient creates a client receiving events whose topic matches filter.
// The filter uses glob syntax ("run:*", "run:<id>"); empty matches all.
func NewClient(id, filter string) *Client {
	if filter == "" {
		filter = "*"
	}
	return &Client{
		id:     id,
		filter: filter,
		events: make(chan Event, clientBuffer),
	}
}

// ID returns the client's unique identifier.
func (c *Client) ID() string { return c.id }

// Filter returns the topic pattern the client subscribed with.
func (c *Client) Filter() string { return c.filter }

// Events returns the channel of events queued for the client. It is closed
// when the client is unregistered or the hub stops.
func (c *Client) Events() <-chan Event { return c.events }

func (c *Client) matches(topic string) bool {
	ok, err := path.Match(c.filter, topic)
	return err == nil && ok
}

// send queues e without blocking. It returns false when the client is too
// slow and the event was dropped.
func (c *Client) send(e Event) bool {
	select {
	case c.events <- e:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.once.Do(func() { close(c.events) })
}

type message struct {
	topic string
	event Event
}

// Hub fans published events out to connected clients. All client
// bookkeeping happens on the goroutine running Run.
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

// NewHub creates a hub. A nil logger uses the global one.
func NewHub(log *logger.Logger) *Hub {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan message, broadcastBuffer),
		done:       make(chan struct{}),
		log:        log.WithComponent("sse"),
	}
}

// Run is the hub's event loop. It blocks until Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.closeAllClients()
			return

		case client := <-h.register:
			h.mu.Lock()
			if old, ok := h.clients[client.id]; ok {
				old.close()
			}
			h.clients[client.id] = client
			total := len(h.clients)
			h.mu.Unlock()
			h.log.Debug("Client registered", map[string]interface{}{
				"client_id":     client.id,
				"filter":        client.filter,
				"total_clients": total,
			})

		case client := <-h.unregister:
			h.mu.Lock()
			if cur, ok := h.clients[client.id]; ok && cur == client {
				delete(h.clients, client.id)
			}
			total := len(h.clients)
			h.mu.Unlock()
			client.close()
			h.log.Debug("Client unregistered", map[string]interface{}{
				"client_id":     client.id,
				"total_clients": total,
			})

		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

// Stop shuts the hub down, closing every client. Safe to call more than once.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Done is closed once Stop has been called.
func (h *Hub) Done() <-chan struct{} { return h.done }

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, client := range h.clients {
		client.close()
		delete(h.clients, id)
	}
	h.log.Debug("All clients closed during shutdown")
}

// Register adds a client. It returns false when the hub is stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client and closes its event channel.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Publish queues e for every client whose filter matches topic. It never
// blocks: when the hub is stopped or its queue is full the event is
// dropped and false is returned.
func (h *Hub) Publish(topic string, e Event) bool {
	select {
	case <-h.done:
		return false
	default:
	}
	select {
	case h.broadcast <- message{topic: topic, event: e}:
		return true
	default:
		h.log.Warn("Broadcast queue full, dropping event", map[string]interface{}{"topic": topic})
		return false
	}
}

func (h *Hub) deliver(msg message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := 0
	for _, client := range h.clients {
		if !client.matches(msg.topic) {
			continue
		}
		if client.send(msg.event) {
			sent++
			continue
		}
		h.log.Warn("Client channel full, dropping event", map[string]interface{}{
			"client_id": client.id,
			"topic":     msg.topic,
		})
	}
	h.log.Debug("Event delivered", map[string]interface{}{
		"topic":   msg.topic,
		"clients": sent,
	})
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ClientIDs returns the IDs of all connected clients.
func (h *Hub) ClientIDs() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ids := make([]string, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	return ids
}
