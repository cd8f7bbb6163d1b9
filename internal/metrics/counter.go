package metrics

import (
	"sync/atomic"
	"time"
)

// Counter is a lock-free counter for per-object bookkeeping that does not
// belong in the Prometheus registry (e.g. drops on a single subscription).
type Counter struct {
	value uint64
}

func (c *Counter) Inc() {
	atomic.AddUint64(&c.value, 1)
}

func (c *Counter) Load() uint64 {
	return atomic.LoadUint64(&c.value)
}

type Timer struct {
	start time.Time
}

func StartTimer() *Timer {
	return &Timer{start: time.Now()}
}

func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

func (t *Timer) Seconds() float64 {
	return t.Duration().Seconds()
}
