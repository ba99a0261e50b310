package retry

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"

	"github.com/sidkik/devmirror/pkg/errors"
)

func TestInterval(t *testing.T) {
	assert.Equal(t, 10*time.Second, Interval(10))
	assert.Equal(t, MinInterval, Interval(0))
	assert.Equal(t, MinInterval, Interval(-3))
}

func TestPollReportsTransitions(t *testing.T) {
	errDown := errors.New("connection refused")
	// The outcome of each attempt, in order.
	outcomes := []error{errDown, errDown, nil, nil, errDown, nil}

	clock := clockwork.NewFakeClock()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var lock sync.Mutex
	var reports []error
	attempts := 0
	attempt := func(context.Context) error {
		lock.Lock()
		defer lock.Unlock()
		err := outcomes[attempts]
		attempts++
		if attempts == len(outcomes) {
			cancel()
		}
		return err
	}
	report := func(err error) {
		lock.Lock()
		defer lock.Unlock()
		reports = append(reports, err)
	}

	done := make(chan struct{})
	go func() {
		Poll(ctx, clock, 5*time.Second, attempt, report)
		close(done)
	}()

	for i := 1; i < len(outcomes); i++ {
		clock.BlockUntil(1)
		clock.Advance(5 * time.Second)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Poll didn't return after the context was cancelled")
	}

	// The last attempt raced with the cancellation, so it's not reported.
	assert.Equal(t, []error{errDown, nil, errDown}, reports)
}

func TestPollStopsWhileWaiting(t *testing.T) {
	clock := clockwork.NewFakeClock()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		Poll(ctx, clock, time.Minute, func(context.Context) error { return nil }, func(error) {})
		close(done)
	}()

	clock.BlockUntil(1)
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Poll didn't return after the context was cancelled")
	}
}
