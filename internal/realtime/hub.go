package realtime

import (
	"hash/fnv"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"

	"delivery-tracking/internal/domain"
	"delivery-tracking/internal/logx"
)

const roomShards = 32

// HubMetrics are optional collectors updated by the hub.
type HubMetrics struct {
	Connections prometheus.Gauge
	Rooms       prometheus.Gauge
	Dropped     prometheus.Counter
	Broadcasts  *prometheus.CounterVec
}

type roomShard struct {
	mu    sync.RWMutex
	rooms map[string]map[string]*Client
}

// Hub addresses connections by room and fans events out without blocking:
// a subscriber whose queue is full is closed instead of waited on.
type Hub struct {
	logger  logx.Logger
	metrics HubMetrics

	clients sync.Map // connection id -> *Client
	conns   atomic.Int64
	rooms   atomic.Int64
	shards  [roomShards]roomShard
}

// NewHub creates an empty Hub.
func NewHub(logger logx.Logger, metrics HubMetrics) *Hub {
	if logger == nil {
		logger = logx.Nop()
	}
	h := &Hub{logger: logger, metrics: metrics}
	for i := range h.shards {
		h.shards[i].rooms = make(map[string]map[string]*Client)
	}
	return h
}

func (h *Hub) register(c *Client) {
	if _, loaded := h.clients.LoadOrStore(c.id, c); loaded {
		return
	}
	n := h.conns.Add(1)
	if h.metrics.Connections != nil {
		h.metrics.Connections.Set(float64(n))
	}
}

// unregister removes c from every room it joined.
func (h *Hub) unregister(c *Client) {
	if _, ok := h.clients.LoadAndDelete(c.id); !ok {
		return
	}
	for _, room := range c.Rooms() {
		h.Leave(c, room)
	}
	n := h.conns.Add(-1)
	if h.metrics.Connections != nil {
		h.metrics.Connections.Set(float64(n))
	}
}

// Client returns a registered client by connection id.
func (h *Hub) Client(id string) (*Client, bool) {
	v, ok := h.clients.Load(id)
	if !ok {
		return nil, false
	}
	return v.(*Client), true
}

// Join adds c to room. Unregistered clients end up in no room.
func (h *Hub) Join(c *Client, room string) {
	if _, ok := h.clients.Load(c.id); !ok {
		return
	}
	s := h.shardFor(room)
	s.mu.Lock()
	members, ok := s.rooms[room]
	if !ok {
		members = make(map[string]*Client)
		s.rooms[room] = members
		h.setRooms(h.rooms.Add(1))
	}
	members[c.id] = c
	s.mu.Unlock()

	c.mu.Lock()
	c.rooms[room] = struct{}{}
	c.mu.Unlock()

	// unregister may have read c.Rooms() before the membership above was
	// recorded; whichever side sees the other undoes the join.
	if _, ok := h.clients.Load(c.id); !ok {
		h.Leave(c, room)
	}
}

// Leave removes c from room. Empty rooms are discarded.
func (h *Hub) Leave(c *Client, room string) {
	c.mu.Lock()
	delete(c.rooms, room)
	c.mu.Unlock()

	s := h.shardFor(room)
	s.mu.Lock()
	defer s.mu.Unlock()
	members, ok := s.rooms[room]
	if !ok {
		return
	}
	delete(members, c.id)
	if len(members) == 0 {
		delete(s.rooms, room)
		h.setRooms(h.rooms.Add(-1))
	}
}

// Members returns the number of connections in room.
func (h *Hub) Members(room string) int {
	s := h.shardFor(room)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms[room])
}

// Connections returns the number of registered connections.
func (h *Hub) Connections() int {
	return int(h.conns.Load())
}

// CloseAll closes every registered connection. It is used at shutdown; the
// transport tears each connection down as usual.
func (h *Hub) CloseAll() int {
	n := 0
	h.clients.Range(func(_, v any) bool {
		v.(*Client).Close()
		n++
		return true
	})
	return n
}

// Publish sends evt to its room, or to every authenticated connection for
// global events. It never blocks on a subscriber.
func (h *Hub) Publish(evt domain.Event) {
	frame, err := encodeBroadcast(evt)
	if err != nil {
		h.logger.Error("broadcast encode failed", logx.String("type", string(evt.Type)), logx.Err(err))
		return
	}
	if h.metrics.Broadcasts != nil {
		h.metrics.Broadcasts.WithLabelValues(string(evt.Type)).Inc()
	}

	for _, c := range h.targets(evt) {
		if !c.enqueue(frame) {
			h.drop(c, evt.Type)
		}
	}
}

func (h *Hub) targets(evt domain.Event) []*Client {
	var out []*Client
	if evt.Global() {
		h.clients.Range(func(_, v any) bool {
			c := v.(*Client)
			if _, ok := c.Identity(); ok {
				out = append(out, c)
			}
			return true
		})
		return out
	}

	s := h.shardFor(evt.Room)
	s.mu.RLock()
	members := s.rooms[evt.Room]
	out = make([]*Client, 0, len(members))
	for _, c := range members {
		out = append(out, c)
	}
	s.mu.RUnlock()
	return out
}

// send delivers a frame to a single client, dropping it when it cannot keep up.
func (h *Hub) send(c *Client, frame []byte) bool {
	if c.enqueue(frame) {
		return true
	}
	h.drop(c, typeAck)
	return false
}

func (h *Hub) drop(c *Client, cause domain.EventType) {
	select {
	case <-c.done:
		return
	default:
	}
	if h.metrics.Dropped != nil {
		h.metrics.Dropped.Inc()
	}
	h.logger.Warn("slow subscriber dropped",
		logx.ConnID(c.id),
		logx.String("event", string(cause)),
	)
	c.Close()
}

func (h *Hub) setRooms(n int64) {
	if h.metrics.Rooms != nil {
		h.metrics.Rooms.Set(float64(n))
	}
}

func (h *Hub) shardFor(room string) *roomShard {
	f := fnv.New32a()
	_, _ = f.Write([]byte(room))
	return &h.shards[f.Sum32()%roomShards]
}
