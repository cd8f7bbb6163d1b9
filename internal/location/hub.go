package location

import (
	"sync"

	"superrider-be/internal/metrics"

	"github.com/google/uuid"
)

const DefaultBuffer = 16

// Hub fans location events out to subscribers. Subscriptions are scoped to
// one order id, except those made with SubscribeAll which see every event.
// Each subscriber owns a bounded queue; when it is full the oldest queued
// event is dropped, so a slow reader never delays the others.
type Hub struct {
	mu     sync.RWMutex
	buffer int
	topics map[string]map[string]*Subscription
	all    map[string]*Subscription
	closed bool
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{
		buffer: buffer,
		topics: make(map[string]map[string]*Subscription),
		all:    make(map[string]*Subscription),
	}
}

// Subscribe registers interest in events for orderID.
func (h *Hub) Subscribe(orderID string) (*Subscription, error) {
	return h.subscribe(orderID)
}

// SubscribeAll registers interest in every event regardless of order id.
func (h *Hub) SubscribeAll() (*Subscription, error) {
	return h.subscribe("")
}

func (h *Hub) subscribe(orderID string) (*Subscription, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrHubClosed
	}

	sub := &Subscription{
		id:      uuid.NewString(),
		orderID: orderID,
		hub:     h,
		ch:      make(chan Event, h.buffer),
	}
	if orderID == "" {
		h.all[sub.id] = sub
	} else {
		topic, ok := h.topics[orderID]
		if !ok {
			topic = make(map[string]*Subscription)
			h.topics[orderID] = topic
		}
		topic[sub.id] = sub
	}
	metrics.LocationSubscribers.Inc()
	return sub, nil
}

// Publish delivers e to the order's subscribers and to every SubscribeAll
// subscriber. It never blocks.
func (h *Hub) Publish(e Event) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return ErrHubClosed
	}

	for _, sub := range h.topics[e.OrderID] {
		sub.offer(e)
	}
	for _, sub := range h.all {
		sub.offer(e)
	}
	metrics.LocationEventsPublishedTotal.Inc()
	return nil
}

// Subscribers reports how many subscriptions are watching orderID. An empty
// orderID counts SubscribeAll subscriptions.
func (h *Hub) Subscribers(orderID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if orderID == "" {
		return len(h.all)
	}
	return len(h.topics[orderID])
}

// Close ends every subscription. Further Publish and Subscribe calls fail
// with ErrHubClosed.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for orderID, topic := range h.topics {
		for _, sub := range topic {
			sub.closeChannel()
		}
		delete(h.topics, orderID)
	}
	for id, sub := range h.all {
		sub.closeChannel()
		delete(h.all, id)
	}
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if sub.orderID == "" {
		if _, ok := h.all[sub.id]; !ok {
			return
		}
		delete(h.all, sub.id)
	} else {
		topic, ok := h.topics[sub.orderID]
		if !ok {
			return
		}
		if _, ok := topic[sub.id]; !ok {
			return
		}
		delete(topic, sub.id)
		if len(topic) == 0 {
			delete(h.topics, sub.orderID)
		}
	}
	sub.closeChannel()
}

type Subscription struct {
	id      string
	orderID string
	hub     *Hub
	ch      chan Event
	dropped metrics.Counter
	once    sync.Once
}

func (s *Subscription) ID() string { return s.id }

// OrderID is empty for SubscribeAll subscriptions.
func (s *Subscription) OrderID() string { return s.orderID }

// Events is closed once the subscription ends.
func (s *Subscription) Events() <-chan Event { return s.ch }

// Dropped counts events discarded because this subscriber fell behind.
func (s *Subscription) Dropped() uint64 { return s.dropped.Load() }

// Close unsubscribes immediately; no event is delivered after it returns.
func (s *Subscription) Close() {
	s.hub.remove(s)
}

// offer runs with the hub read lock held, so the channel cannot be closed
// underneath it.
func (s *Subscription) offer(e Event) {
	for {
		select {
		case s.ch <- e:
			return
		default:
		}
		select {
		case <-s.ch:
			s.dropped.Inc()
			metrics.LocationEventsDroppedTotal.Inc()
		default:
		}
	}
}

// closeChannel runs with the hub write lock held, so offer cannot refill the
// queue while it is drained. Queued events are discarded: a closed
// subscription reports closed on its very next receive.
func (s *Subscription) closeChannel() {
	s.once.Do(func() {
		for len(s.ch) > 0 {
			<-s.ch
		}
		close(s.ch)
		metrics.LocationSubscribers.Dec()
	})
}
