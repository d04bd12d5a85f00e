package engine

import (
	"context"
	"log/slog"
	"time"
)

// Clock drives periodic ticks. A tick always runs to completion before the
// next one is started; missed intervals are dropped, not queued.
type Clock struct {
	engine   *Engine
	interval time.Duration
	onTick   func(TickReport)
}

// NewClock returns a clock ticking e every interval. onTick may be nil.
func NewClock(e *Engine, interval time.Duration, onTick func(TickReport)) *Clock {
	if interval <= 0 {
		interval = 333 * time.Millisecond
	}
	return &Clock{engine: e, interval: interval, onTick: onTick}
}

// Run ticks until ctx is cancelled.
func (c *Clock) Run(ctx context.Context) error {
	slog.Info("simulation clock starting", "interval", c.interval)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("simulation clock stopped")
			return nil
		case <-ticker.C:
			c.tick(ctx)
		}
	}
}

// TickN runs n ticks back to back, stopping early if ctx is cancelled.
func (c *Clock) TickN(ctx context.Context, n int) int {
	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			return i
		}
		c.tick(ctx)
	}
	return n
}

func (c *Clock) tick(ctx context.Context) {
	report := c.engine.Tick(ctx)
	if len(report.Replaced) > 0 || len(report.Faults) > 0 {
		slog.Debug("tick",
			"replaced", len(report.Replaced),
			"faults", len(report.Faults),
			"took", report.Duration,
		)
	}
	if c.onTick != nil {
		c.onTick(report)
	}
}
