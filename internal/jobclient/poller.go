package jobclient

import (
	"context"
	"sync"
	"time"
)

// Poller is the handle of a running poll loop. Stop releases it; calling
// Stop more than once is a no-op.
type Poller struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// startPoller calls tick every interval until tick reports a terminal state,
// ctx is cancelled, or the returned handle is stopped. Ticks are sequenced:
// a slow tick delays the next one and missed ticks are dropped, so two
// ticks never run at the same time.
func startPoller(ctx context.Context, interval time.Duration, tick func(context.Context) bool) *Poller {
	ctx, cancel := context.WithCancel(ctx)
	p := &Poller{
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(p.done)
		defer p.Stop()

		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
			}
			if tick(ctx) {
				return
			}
		}
	}()

	return p
}

// Stop cancels the loop. It does not wait for an in-flight tick; use Done
// for that.
func (p *Poller) Stop() {
	p.once.Do(p.cancel)
}

// Done is closed once the loop has exited.
func (p *Poller) Done() <-chan struct{} {
	return p.done
}
