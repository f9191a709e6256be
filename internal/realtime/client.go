package realtime

import (
	"sync"

	"delivery-tracking/internal/domain"
)

// Client is one live connection as seen by the hub. The transport drains
// Outbox and closes the connection when Done fires.
type Client struct {
	id     string
	send   chan []byte
	done   chan struct{}
	once   sync.Once
	closer func()

	mu       sync.Mutex
	identity *domain.Identity
	rooms    map[string]struct{}
}

func newClient(id string, queue int, closer func()) *Client {
	if queue <= 0 {
		queue = 64
	}
	return &Client{
		id:     id,
		send:   make(chan []byte, queue),
		done:   make(chan struct{}),
		closer: closer,
		rooms:  make(map[string]struct{}),
	}
}

// ID returns the connection id.
func (c *Client) ID() string { return c.id }

// Outbox yields encoded frames for the write side of the transport.
func (c *Client) Outbox() <-chan []byte { return c.send }

// Done is closed once the client is closed.
func (c *Client) Done() <-chan struct{} { return c.done }

// Identity returns the authenticated identity, if any.
func (c *Client) Identity() (domain.Identity, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.identity == nil {
		return domain.Identity{}, false
	}
	return *c.identity, true
}

func (c *Client) setIdentity(id domain.Identity) {
	c.mu.Lock()
	c.identity = &id
	c.mu.Unlock()
}

// Rooms returns the rooms the client has joined.
func (c *Client) Rooms() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.rooms))
	for r := range c.rooms {
		out = append(out, r)
	}
	return out
}

// enqueue never blocks; it reports false when the client is closed or its
// queue is full.
func (c *Client) enqueue(b []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- b:
		return true
	default:
		return false
	}
}

// Close marks the client closed and runs the transport closer once.
func (c *Client) Close() {
	c.once.Do(func() {
		close(c.done)
		if c.closer != nil {
			c.closer()
		}
	})
}
