// Package state holds the live devmirror configuration and broadcasts a
// snapshot of it after every change.
//
// All mutations go through Commit, which applies the change and publishes
// the resulting snapshot under a single lock. Subscribers therefore only
// ever observe fully applied commits, in the order the commits happened.
package state

import (
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/sidkik/devmirror/pkg/config"
)

// Store owns the canonical Configuration.
type Store struct {
	persist config.Store

	lock        sync.Mutex
	live        config.Configuration
	latest      config.Configuration
	subscribers map[*Subscription]struct{}

	// saveLock orders writes to the persistence adapter so that an older
	// snapshot never overwrites a newer one.
	saveLock sync.Mutex
	saveSeq  uint64
	savedSeq uint64
}

// New creates a Store seeded with `initial`. Every non-silent commit is
// written to `persist`, which may be nil to disable persistence.
func New(initial config.Configuration, persist config.Store) *Store {
	return &Store{
		persist:     persist,
		live:        initial.Clone(),
		latest:      initial.Clone(),
		subscribers: map[*Subscription]struct{}{},
	}
}

// Current returns a copy of the latest snapshot.
func (s *Store) Current() config.Configuration {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.latest.Clone()
}

// Subscribe attaches a new subscriber. The first value it receives is the
// snapshot current at attach time.
func (s *Store) Subscribe() *Subscription {
	s.lock.Lock()
	defer s.lock.Unlock()

	sub := newSubscription(s)
	sub.push(s.latest.Clone())
	s.subscribers[sub] = struct{}{}
	return sub
}

func (s *Store) unsubscribe(sub *Subscription) {
	s.lock.Lock()
	defer s.lock.Unlock()
	delete(s.subscribers, sub)
}

// Commit applies `mutate` to the live configuration, publishes the result
// and persists it.
func (s *Store) Commit(mutate func(*config.Configuration)) {
	s.commit(mutate, true)
}

// CommitSilent is like Commit, but doesn't persist the result. It's used
// for changes that only touch volatile state such as the project list.
func (s *Store) CommitSilent(mutate func(*config.Configuration)) {
	s.commit(mutate, false)
}

// Reset replaces the whole configuration.
func (s *Store) Reset(cfg config.Configuration) {
	s.Commit(func(live *config.Configuration) {
		*live = cfg.Clone()
	})
}

func (s *Store) commit(mutate func(*config.Configuration), persist bool) {
	s.lock.Lock()
	mutate(&s.live)
	snapshot := s.live.Clone()
	s.latest = snapshot
	for sub := range s.subscribers {
		sub.push(snapshot.Clone())
	}

	var seq uint64
	if persist && s.persist != nil {
		s.saveSeq++
		seq = s.saveSeq
	}
	s.lock.Unlock()

	if seq != 0 {
		s.save(seq, snapshot)
	}
}

func (s *Store) save(seq uint64, snapshot config.Configuration) {
	s.saveLock.Lock()
	defer s.saveLock.Unlock()

	if seq < s.savedSeq {
		log.WithField("seq", seq).Debug("Skipping save of outdated configuration")
		return
	}
	s.savedSeq = seq

	if err := s.persist.Save(snapshot); err != nil {
		log.WithError(err).Warn("Failed to save configuration")
	}
}
