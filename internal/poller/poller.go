// Package poller runs a function on a fixed interval.
package poller

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// PollFunc is invoked once per tick. Its error is ignored by the poller;
// the next tick runs regardless.
type PollFunc func(ctx context.Context) error

// Poller fires PollFunc immediately and then on every tick. Each call runs
// in its own goroutine, so a slow call may overlap the next one.
type Poller struct {
	interval time.Duration
	fn       PollFunc
	inflight sync.WaitGroup
	done     chan struct{}
}

// Start launches a poller that stops when ctx is cancelled.
func Start(ctx context.Context, interval time.Duration, fn PollFunc) *Poller {
	p := &Poller{
		interval: interval,
		fn:       fn,
		done:     make(chan struct{}),
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer close(p.done)
		defer ticker.Stop()
		slog.Info("Status poller started", "interval", interval)

		p.fire(ctx)
		for {
			select {
			case <-ticker.C:
				p.fire(ctx)
			case <-ctx.Done():
				slog.Info("Status poller shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
	return p
}

func (p *Poller) fire(ctx context.Context) {
	p.inflight.Add(1)
	go func() {
		defer p.inflight.Done()
		_ = p.fn(ctx)
	}()
}

// Wait blocks until the poller has stopped and every in-flight call returned.
func (p *Poller) Wait() {
	<-p.done
	p.inflight.Wait()
}
