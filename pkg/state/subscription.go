package state

import (
	"sync"

	"github.com/sidkik/devmirror/pkg/config"
)

// Subscription receives every snapshot published by a Store, in order,
// until it's unsubscribed.
type Subscription struct {
	store *Store
	out   chan config.Configuration
	done  chan struct{}

	lock    sync.Mutex
	cond    *sync.Cond
	pending []config.Configuration
	closed  bool

	unsubscribeOnce sync.Once
}

func newSubscription(store *Store) *Subscription {
	sub := &Subscription{
		store: store,
		out:   make(chan config.Configuration),
		done:  make(chan struct{}),
	}
	sub.cond = sync.NewCond(&sub.lock)
	go sub.run()
	return sub
}

// C returns the channel snapshots are delivered on. It's closed after
// Unsubscribe.
func (sub *Subscription) C() <-chan config.Configuration {
	return sub.out
}

// Unsubscribe detaches the subscription. Snapshots that haven't been
// received yet are dropped.
func (sub *Subscription) Unsubscribe() {
	sub.unsubscribeOnce.Do(func() {
		sub.store.unsubscribe(sub)

		sub.lock.Lock()
		sub.closed = true
		sub.pending = nil
		sub.lock.Unlock()
		sub.cond.Broadcast()
		close(sub.done)
	})
}

// push queues a snapshot for delivery. It never blocks, so that a slow
// subscriber can't hold up a commit.
func (sub *Subscription) push(snapshot config.Configuration) {
	sub.lock.Lock()
	defer sub.lock.Unlock()
	if sub.closed {
		return
	}
	sub.pending = append(sub.pending, snapshot)
	sub.cond.Signal()
}

func (sub *Subscription) next() (config.Configuration, bool) {
	sub.lock.Lock()
	defer sub.lock.Unlock()
	for len(sub.pending) == 0 && !sub.closed {
		sub.cond.Wait()
	}
	if sub.closed {
		return config.Configuration{}, false
	}
	snapshot := sub.pending[0]
	sub.pending[0] = config.Configuration{}
	sub.pending = sub.pending[1:]
	return snapshot, true
}

func (sub *Subscription) run() {
	defer close(sub.out)
	for {
		snapshot, ok := sub.next()
		if !ok {
			return
		}

		select {
		case sub.out <- snapshot:
		case <-sub.done:
			return
		}
	}
}
