package location

import (
	"context"
	"sync"
)

// Tracker is the consumer side of a tracking view. It watches one order id,
// ignores events for any other order and keeps only the latest position.
type Tracker struct {
	orderID string

	mu      sync.RWMutex
	pos     Position
	updated bool
	live    bool
}

// NewTracker starts at initial until the first matching event arrives.
func NewTracker(orderID string, initial Position) *Tracker {
	return &Tracker{orderID: orderID, pos: initial}
}

func (t *Tracker) OrderID() string { return t.orderID }

// Apply records e if it belongs to the watched order and reports whether it did.
func (t *Tracker) Apply(e Event) bool {
	if e.OrderID != t.orderID {
		return false
	}
	t.mu.Lock()
	t.pos = e.Position()
	t.updated = true
	t.mu.Unlock()
	return true
}

// Position returns the latest position and whether any event has been applied.
func (t *Tracker) Position() (Position, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.pos, t.updated
}

// Live reports whether Follow is currently attached to a channel.
func (t *Tracker) Live() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.live
}

// Follow applies events from sub until ctx is done or the subscription ends.
// A subscription that ends on its own yields ErrChannelUnavailable; the last
// known position is kept.
func (t *Tracker) Follow(ctx context.Context, sub *Subscription) error {
	t.setLive(true)
	defer t.setLive(false)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e, ok := <-sub.Events():
			if !ok {
				return ErrChannelUnavailable
			}
			t.Apply(e)
		}
	}
}

func (t *Tracker) setLive(v bool) {
	t.mu.Lock()
	t.live = v
	t.mu.Unlock()
}
