// Package supervisor maintains the connections to the local agent and the
// local sync tool. A connection to the agent leads to a connection to the
// sync tool, which in turn triggers a reconcile of the project list.
package supervisor

import (
	"context"
	"runtime"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/sidkik/devmirror/pkg/agent"
	"github.com/sidkik/devmirror/pkg/alert"
	"github.com/sidkik/devmirror/pkg/config"
	"github.com/sidkik/devmirror/pkg/errors"
	"github.com/sidkik/devmirror/pkg/state"
	"github.com/sidkik/devmirror/pkg/synctool"
)

// Reconciler rebuilds the project list once the sync tool is reachable.
type Reconciler interface {
	Reconcile(ctx context.Context) error
}

// The platform used to pick an agent package to suggest. Mocked for unit
// testing.
var (
	goos   = runtime.GOOS
	goarch = runtime.GOARCH
)

// Supervisor owns at most one live connection subscription per backend.
type Supervisor struct {
	ctx        context.Context
	store      *state.Store
	agent      agent.Client
	syncTool   synctool.Client
	reconciler Reconciler
	alerts     alert.Sink

	agentLock sync.Mutex
	agentSub  *subscription

	syncToolLock sync.Mutex
	syncToolSub  *subscription
}

type subscription struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// stop cancels the subscription and waits for its watcher to exit, so no
// event of the old subscription is handled after stop returns.
func (sub *subscription) stop() {
	sub.cancel()
	<-sub.done
}

// New creates a Supervisor. Connections live until Close is called or
// `ctx` is cancelled.
func New(ctx context.Context, store *state.Store, agentClient agent.Client,
	syncToolClient synctool.Client, reconciler Reconciler, alerts alert.Sink) *Supervisor {
	return &Supervisor{
		ctx:        ctx,
		store:      store,
		agent:      agentClient,
		syncTool:   syncToolClient,
		reconciler: reconciler,
		alerts:     alerts,
	}
}

// ReconnectAgent drops the current agent connection, if any, and connects
// again using the agent settings of the current configuration.
func (s *Supervisor) ReconnectAgent() {
	s.agentLock.Lock()
	defer s.agentLock.Unlock()

	if s.agentSub != nil {
		s.agentSub.stop()
		s.agentSub = nil
	}
	if s.ctx.Err() != nil {
		return
	}

	cfg := s.store.Current()
	ctx, cancel := context.WithCancel(s.ctx)
	sub := &subscription{cancel: cancel, done: make(chan struct{})}
	s.agentSub = sub

	log.WithField("url", cfg.Agent.URL).Debug("Connecting to agent")
	events := s.agent.Connect(ctx, cfg.Agent.Retry, cfg.Agent.URL)
	go func() {
		defer close(sub.done)
		for ev := range events {
			if ctx.Err() != nil {
				continue
			}
			s.handleAgentEvent(ev)
		}
	}()
}

func (s *Supervisor) handleAgentEvent(ev agent.Event) {
	if ev.Err == nil {
		log.WithField("address", ev.Status.Address).Info("Connected to agent")
		s.ReconnectSyncTool()
		return
	}

	if !errors.IsUnreachable(ev.Err) {
		s.alerts.Raise(alert.Generic("%s", ev.Err))
		return
	}

	var suggested *config.AgentPackage
	pkgs := s.store.Current().AgentPackages
	if pkg, ok := config.LatestAgentPackage(pkgs, goos, goarch); ok {
		suggested = &pkg
	}
	s.alerts.Raise(alert.AgentNotInstalled(ev.Err, goos, suggested))
}

// ReconnectSyncTool drops the current sync tool connection, if any, and
// connects again using the sync tool settings of the current
// configuration.
func (s *Supervisor) ReconnectSyncTool() {
	s.syncToolLock.Lock()
	defer s.syncToolLock.Unlock()

	if s.syncToolSub != nil {
		s.syncToolSub.stop()
		s.syncToolSub = nil
	}
	if s.ctx.Err() != nil {
		return
	}

	cfg := s.store.Current()
	ctx, cancel := context.WithCancel(s.ctx)
	sub := &subscription{cancel: cancel, done: make(chan struct{})}
	s.syncToolSub = sub

	log.WithField("url", cfg.SyncTool.URL).Debug("Connecting to sync tool")
	events := s.syncTool.Connect(ctx, cfg.SyncTool.Retry, cfg.SyncTool.URL)
	go func() {
		defer close(sub.done)
		for ev := range events {
			if ctx.Err() != nil {
				continue
			}
			s.handleSyncToolEvent(ctx, ev)
		}
	}()
}

func (s *Supervisor) handleSyncToolEvent(ctx context.Context, ev synctool.Event) {
	if ev.Err != nil {
		if errors.IsUnreachable(ev.Err) {
			s.alerts.Raise(alert.SyncToolUnreachable(ev.Err))
		} else {
			s.alerts.Raise(alert.Generic("%s", ev.Err))
		}
		return
	}

	log.WithField("nodeID", ev.Status.NodeID).Info("Connected to sync tool")
	s.store.Commit(func(cfg *config.Configuration) {
		cfg.SyncTool.ID = ev.Status.NodeID
		cfg.SyncTool.Tilde = ev.Status.HomeDir
		if cfg.ProjectsRootDir == "" {
			cfg.ProjectsRootDir = ev.Status.HomeDir
		}
	})

	if err := s.reconciler.Reconcile(ctx); err != nil {
		log.WithError(err).Debug("Failed to reconcile projects")
	}
}

// Close drops both connections.
func (s *Supervisor) Close() {
	s.agentLock.Lock()
	if s.agentSub != nil {
		s.agentSub.stop()
		s.agentSub = nil
	}
	s.agentLock.Unlock()

	s.syncToolLock.Lock()
	if s.syncToolSub != nil {
		s.syncToolSub.stop()
		s.syncToolSub = nil
	}
	s.syncToolLock.Unlock()
}
