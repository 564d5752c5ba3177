package session

import (
	"context"
	"sync"
	"time"
)

// Clock drives the session at a fixed cadence. Start emits tick 0
// immediately and then one tick per interval; Stop halts emission without
// touching anything downstream. A new Start always begins again at 0.
type Clock struct {
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewClock returns a clock ticking at the given interval. Intervals of
// zero or less fall back to one second.
func NewClock(interval time.Duration) *Clock {
	if interval <= 0 {
		interval = time.Second
	}
	return &Clock{interval: interval}
}

// Start begins emitting ticks to onTick, stopping any previous run first.
// onTick is called from the clock goroutine and must not call back into
// Start or Stop.
func (c *Clock) Start(onTick func(int)) {
	c.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	c.mu.Lock()
	c.cancel = cancel
	c.done = done
	c.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		tick := 0
		onTick(tick)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				tick++
				onTick(tick)
			}
		}
	}()
}

// Stop halts tick emission and waits for the clock goroutine to exit.
// Stopping an idle clock is a no-op.
func (c *Clock) Stop() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}
