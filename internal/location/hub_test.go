package location

import (
	"sync"
	"testing"
	"time"

	"superrider-be/internal/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(sub *Subscription) []Event {
	var out []Event
	for {
		select {
		case e, ok := <-sub.Events():
			if !ok {
				return out
			}
			out = append(out, e)
		default:
			return out
		}
	}
}

func TestHub_ScopesEventsByOrder(t *testing.T) {
	hub := NewHub(8)
	defer hub.Close()

	subA, err := hub.Subscribe("A")
	require.NoError(t, err)
	subB, err := hub.Subscribe("B")
	require.NoError(t, err)

	require.NoError(t, hub.Publish(Event{OrderID: "A", Lat: 1, Lng: 1}))
	require.NoError(t, hub.Publish(Event{OrderID: "B", Lat: 2, Lng: 2}))
	require.NoError(t, hub.Publish(Event{OrderID: "A", Lat: 3, Lng: 3}))

	gotA := drain(subA)
	require.Len(t, gotA, 2)
	for _, e := range gotA {
		assert.Equal(t, "A", e.OrderID)
	}
	assert.Equal(t, []Event{{OrderID: "B", Lat: 2, Lng: 2}}, drain(subB))
}

func TestHub_SubscribeAll(t *testing.T) {
	hub := NewHub(8)
	defer hub.Close()

	all, err := hub.SubscribeAll()
	require.NoError(t, err)
	assert.Equal(t, "", all.OrderID())
	assert.Equal(t, 1, hub.Subscribers(""))

	require.NoError(t, hub.Publish(Event{OrderID: "A"}))
	require.NoError(t, hub.Publish(Event{OrderID: "B"}))

	got := drain(all)
	require.Len(t, got, 2)
	assert.Equal(t, "A", got[0].OrderID)
	assert.Equal(t, "B", got[1].OrderID)
}

func TestHub_PreservesOrder(t *testing.T) {
	hub := NewHub(16)
	defer hub.Close()

	sub, err := hub.Subscribe("A")
	require.NoError(t, err)

	for i := 1; i <= 10; i++ {
		require.NoError(t, hub.Publish(Event{OrderID: "A", Lat: float64(i)}))
	}

	got := drain(sub)
	require.Len(t, got, 10)
	for i, e := range got {
		assert.Equal(t, float64(i+1), e.Lat)
	}
}

func TestHub_DropsOldestWhenFull(t *testing.T) {
	hub := NewHub(2)
	defer hub.Close()

	slow, err := hub.Subscribe("A")
	require.NoError(t, err)
	fast, err := hub.Subscribe("A")
	require.NoError(t, err)

	before := testutil.ToFloat64(metrics.LocationEventsDroppedTotal)

	for i := 1; i <= 3; i++ {
		require.NoError(t, hub.Publish(Event{OrderID: "A", Lat: float64(i)}))
		if i < 3 {
			// fast keeps up
			<-fast.Events()
		}
	}

	got := drain(slow)
	require.Len(t, got, 2)
	assert.Equal(t, 2.0, got[0].Lat)
	assert.Equal(t, 3.0, got[1].Lat)
	assert.Equal(t, uint64(1), slow.Dropped())

	assert.Equal(t, []Event{{OrderID: "A", Lat: 3}}, drain(fast))
	assert.Equal(t, uint64(0), fast.Dropped())
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.LocationEventsDroppedTotal))
}

func TestHub_PublishNeverBlocks(t *testing.T) {
	hub := NewHub(1)
	defer hub.Close()

	_, err := hub.Subscribe("A")
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			_ = hub.Publish(Event{OrderID: "A"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on an unread subscriber")
	}
}

func TestSubscription_Close(t *testing.T) {
	hub := NewHub(4)
	defer hub.Close()

	sub, err := hub.Subscribe("A")
	require.NoError(t, err)
	assert.NotEmpty(t, sub.ID())
	assert.Equal(t, "A", sub.OrderID())
	assert.Equal(t, 1, hub.Subscribers("A"))

	sub.Close()
	assert.Equal(t, 0, hub.Subscribers("A"))

	require.NoError(t, hub.Publish(Event{OrderID: "A"}))
	_, ok := <-sub.Events()
	assert.False(t, ok, "closed subscription must not receive events")

	assert.NotPanics(t, sub.Close)
}

func TestSubscription_CloseDiscardsQueued(t *testing.T) {
	hub := NewHub(4)
	defer hub.Close()

	sub, err := hub.Subscribe("A")
	require.NoError(t, err)
	require.NoError(t, hub.Publish(Event{OrderID: "A", Lat: 1, Lng: 1}))
	require.NoError(t, hub.Publish(Event{OrderID: "A", Lat: 2, Lng: 2}))

	sub.Close()

	e, ok := <-sub.Events()
	assert.False(t, ok, "queued event %+v delivered after Close", e)
	assert.Zero(t, sub.Dropped())
}

func TestHub_CloseDiscardsQueued(t *testing.T) {
	hub := NewHub(4)

	sub, err := hub.Subscribe("A")
	require.NoError(t, err)
	require.NoError(t, hub.Publish(Event{OrderID: "A", Lat: 1}))

	hub.Close()

	_, ok := <-sub.Events()
	assert.False(t, ok)
}

func TestHub_Close(t *testing.T) {
	hub := NewHub(4)

	sub, err := hub.Subscribe("A")
	require.NoError(t, err)
	all, err := hub.SubscribeAll()
	require.NoError(t, err)

	hub.Close()

	_, ok := <-sub.Events()
	assert.False(t, ok)
	_, ok = <-all.Events()
	assert.False(t, ok)

	assert.ErrorIs(t, hub.Publish(Event{OrderID: "A"}), ErrHubClosed)
	_, err = hub.Subscribe("A")
	assert.ErrorIs(t, err, ErrHubClosed)

	assert.NotPanics(t, hub.Close)
	assert.NotPanics(t, sub.Close)
}

func TestHub_ConcurrentUse(t *testing.T) {
	hub := NewHub(4)
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = hub.Publish(Event{OrderID: "A"})
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				sub, err := hub.Subscribe("A")
				if err != nil {
					return
				}
				drain(sub)
				sub.Close()
			}
		}()
	}
	wg.Wait()
	hub.Close()
	assert.Equal(t, 0, hub.Subscribers("A"))
}

func TestNewHub_DefaultBuffer(t *testing.T) {
	hub := NewHub(0)
	defer hub.Close()

	sub, err := hub.Subscribe("A")
	require.NoError(t, err)
	assert.Equal(t, DefaultBuffer, cap(sub.ch))
}
