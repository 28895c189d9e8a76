// Package host drives an engine from a wall-clock loop.
package host

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Ticker advances the simulation by dt seconds. *engine.Engine implements
// it.
type Ticker interface {
	Tick(dt float64) error
}

// Loop ticks a Ticker at a fixed rate. The delta passed to each tick is the
// real time elapsed since the previous one, capped at maxDelta (0 = no cap).
type Loop struct {
	target   Ticker
	rate     time.Duration
	maxDelta time.Duration
	log      *zap.Logger
	now      func() time.Time
	ticks    uint64
}

func NewLoop(target Ticker, rate, maxDelta time.Duration, log *zap.Logger) *Loop {
	return &Loop{
		target:   target,
		rate:     rate,
		maxDelta: maxDelta,
		log:      log,
		now:      time.Now,
	}
}

// Run ticks until ctx is cancelled (returns nil) or a tick fails (returns
// the tick error).
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.rate)
	defer ticker.Stop()

	l.log.Info("game loop started", zap.Duration("tick", l.rate), zap.Duration("max_delta", l.maxDelta))
	last := l.now()
	for {
		select {
		case <-ctx.Done():
			l.log.Info("game loop stopped", zap.Uint64("ticks", l.ticks))
			return nil
		case <-ticker.C:
			now := l.now()
			dt := l.clamp(now.Sub(last))
			last = now
			if err := l.target.Tick(dt.Seconds()); err != nil {
				return fmt.Errorf("tick %d: %w", l.ticks+1, err)
			}
			l.ticks++
		}
	}
}

// Ticks returns the number of completed ticks.
func (l *Loop) Ticks() uint64 { return l.ticks }

func (l *Loop) clamp(dt time.Duration) time.Duration {
	if dt < 0 {
		return 0
	}
	if l.maxDelta > 0 && dt > l.maxDelta {
		return l.maxDelta
	}
	return dt
}
