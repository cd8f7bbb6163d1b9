package location

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (p *recordingPublisher) Publish(e Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Event, len(p.events))
	copy(out, p.events)
	return out
}

func TestEmitter_Tick(t *testing.T) {
	pub := &recordingPublisher{}
	em := NewEmitter(pub, EmitterConfig{})

	first, err := em.Tick()
	require.NoError(t, err)
	second, err := em.Tick()
	require.NoError(t, err)

	assert.Equal(t, DefaultOrderID, first.OrderID)
	assert.InDelta(t, 12.9717, first.Lat, 1e-9)
	assert.InDelta(t, 77.5947, first.Lng, 1e-9)
	assert.InDelta(t, 12.9718, second.Lat, 1e-9)
	assert.InDelta(t, 77.5948, second.Lng, 1e-9)
	assert.Equal(t, []Event{first, second}, pub.Events())
}

func TestEmitter_CustomConfig(t *testing.T) {
	pub := &recordingPublisher{}
	em := NewEmitter(pub, EmitterConfig{
		OrderID: "ORD-101",
		Start:   Position{Lat: 1, Lng: 2},
		Step:    0.5,
	})

	e, err := em.Tick()
	require.NoError(t, err)
	assert.Equal(t, Event{OrderID: "ORD-101", Lat: 1.5, Lng: 2.5}, e)
}

func TestEmitter_Run(t *testing.T) {
	t.Run("Publishes until cancelled", func(t *testing.T) {
		pub := &recordingPublisher{}
		em := NewEmitter(pub, EmitterConfig{Interval: 5 * time.Millisecond})

		ctx, cancel := context.WithCancel(context.Background())
		errCh := make(chan error, 1)
		go func() { errCh <- em.Run(ctx) }()

		assert.Eventually(t, func() bool { return len(pub.Events()) >= 3 }, time.Second, 5*time.Millisecond)
		cancel()
		assert.ErrorIs(t, <-errCh, context.Canceled)

		events := pub.Events()
		for i := 1; i < len(events); i++ {
			assert.Greater(t, events[i].Lat, events[i-1].Lat)
		}
	})

	t.Run("Stops when hub closes", func(t *testing.T) {
		hub := NewHub(1)
		hub.Close()
		em := NewEmitter(hub, EmitterConfig{Interval: time.Millisecond})

		err := em.Run(context.Background())
		assert.ErrorIs(t, err, ErrHubClosed)
	})

	t.Run("Keeps going on publish errors", func(t *testing.T) {
		pub := &recordingPublisher{err: errors.New("transient")}
		em := NewEmitter(pub, EmitterConfig{Interval: time.Millisecond})

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		assert.ErrorIs(t, em.Run(ctx), context.DeadlineExceeded)
	})
}
