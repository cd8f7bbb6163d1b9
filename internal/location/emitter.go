package location

import (
	"context"
	"errors"
	"time"

	"superrider-be/internal/logger"

	"go.uber.org/zap"
)

const (
	DefaultOrderID  = "test123"
	DefaultInterval = 3 * time.Second
	DefaultStep     = 0.0001
)

// DefaultStart is where the simulated driver begins.
var DefaultStart = Position{Lat: 12.9716, Lng: 77.5946}

type EmitterConfig struct {
	OrderID  string
	Start    Position
	Step     float64
	Interval time.Duration
}

func (c EmitterConfig) withDefaults() EmitterConfig {
	if c.OrderID == "" {
		c.OrderID = DefaultOrderID
	}
	if c.Start == (Position{}) {
		c.Start = DefaultStart
	}
	if c.Step == 0 {
		c.Step = DefaultStep
	}
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	return c
}

// Emitter simulates a driver feed: on every tick it moves the position by
// Step along both axes and publishes it for OrderID.
type Emitter struct {
	cfg EmitterConfig
	pub Publisher
	pos Position
}

func NewEmitter(pub Publisher, cfg EmitterConfig) *Emitter {
	cfg = cfg.withDefaults()
	return &Emitter{cfg: cfg, pub: pub, pos: cfg.Start}
}

// Tick advances the position once and publishes it.
func (e *Emitter) Tick() (Event, error) {
	e.pos.Lat += e.cfg.Step
	e.pos.Lng += e.cfg.Step

	ev := Event{OrderID: e.cfg.OrderID, Lat: e.pos.Lat, Lng: e.pos.Lng}
	return ev, e.pub.Publish(ev)
}

// Run ticks every Interval until ctx is done or the publisher is closed.
func (e *Emitter) Run(ctx context.Context) error {
	log := logger.FromCtx(logger.WithOrderID(ctx, e.cfg.OrderID))
	log.Info("location emitter started", zap.Duration("interval", e.cfg.Interval))

	ticker := time.NewTicker(e.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("location emitter stopped")
			return ctx.Err()
		case <-ticker.C:
			ev, err := e.Tick()
			if errors.Is(err, ErrHubClosed) {
				log.Warn("location hub closed, stopping emitter")
				return err
			}
			if err != nil {
				log.Error("failed to publish location", zap.Error(err))
				continue
			}
			log.Debug("emitted driver location",
				zap.Float64("lat", ev.Lat),
				zap.Float64("lng", ev.Lng),
			)
		}
	}
}
