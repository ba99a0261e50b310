// Package retry implements the connection loop shared by the clients of the
// local services.
package retry

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
)

// MinInterval is used when a non-positive interval is configured.
const MinInterval = time.Second

// Interval converts a retry setting in seconds into a duration.
func Interval(seconds int) time.Duration {
	interval := time.Duration(seconds) * time.Second
	if interval < MinInterval {
		return MinInterval
	}
	return interval
}

// Poll calls `attempt` immediately and then once every `interval` until ctx
// is cancelled. `report` is called with nil whenever the connection comes up
// (the first success, and every success that follows a failure), and with
// the error whenever it goes down (the first failure, and every failure that
// follows a success). Consecutive failures are only reported once, so that
// an unreachable service doesn't flood the caller.
func Poll(ctx context.Context, clock clockwork.Clock, interval time.Duration,
	attempt func(context.Context) error, report func(error)) {
	if interval < MinInterval {
		interval = MinInterval
	}

	const (
		unknown = iota
		up
		down
	)
	state := unknown
	for {
		err := attempt(ctx)
		if ctx.Err() != nil {
			return
		}

		switch {
		case err == nil && state != up:
			state = up
			report(nil)
		case err != nil && state != down:
			state = down
			report(err)
		}

		select {
		case <-ctx.Done():
			return
		case <-clock.After(interval):
		}
	}
}
