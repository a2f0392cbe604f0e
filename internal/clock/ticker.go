package clock

import (
	"context"
	"time"
)

// Ticker is the cancellation handle of a repeating task started by Every.
type Ticker struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Every calls fn once synchronously and then from a goroutine every
// interval until ctx is done or Stop is called. A non-positive interval
// runs fn once and returns an already stopped Ticker.
func Every(ctx context.Context, interval time.Duration, fn func(now time.Time)) *Ticker {
	fn(time.Now())

	ctx, cancel := context.WithCancel(ctx)
	t := &Ticker{cancel: cancel, done: make(chan struct{})}
	if interval <= 0 {
		cancel()
		close(t.done)
		return t
	}

	go func() {
		defer close(t.done)
		tk := time.NewTicker(interval)
		defer tk.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-tk.C:
				fn(now)
			}
		}
	}()
	return t
}

// Stop cancels the task and waits for an in-flight call to return. It is
// safe to call more than once and on a nil Ticker.
func (t *Ticker) Stop() {
	if t == nil {
		return
	}
	t.cancel()
	<-t.done
}

// Done is closed once the task has stopped.
func (t *Ticker) Done() <-chan struct{} {
	return t.done
}
