package mixnet

import (
	"context"
	"log/slog"
	"time"
)

// TickDriver periodically invokes Tick on a cascade. The cascade itself has
// no timer; the driver is owned by the surrounding service and is the sole
// caller of Tick. Overlapping invocations are rejected by the cascade's
// single-flight guard, so the driver never queues or coalesces ticks.
type TickDriver struct {
	ticker   Ticker
	interval time.Duration
	log      *slog.Logger
}

// NewTickDriver creates a driver invoking the ticker at the given interval.
func NewTickDriver(ticker Ticker, interval time.Duration, log *slog.Logger) *TickDriver {
	if log == nil {
		log = slog.Default()
	}
	return &TickDriver{
		ticker:   ticker,
		interval: interval,
		log:      log,
	}
}

// Run ticks until the context is cancelled. A panic inside a single tick is
// caught and logged; the periodic loop keeps running afterwards.
func (d *TickDriver) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.log.Info("tick driver started", "interval", d.interval)
	for {
		select {
		case <-ctx.Done():
			d.log.Info("tick driver stopped")
			return
		case <-ticker.C:
			d.safeTick()
		}
	}
}

func (d *TickDriver) safeTick() {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("tick panicked", "panic", r)
		}
	}()
	d.ticker.Tick()
}
