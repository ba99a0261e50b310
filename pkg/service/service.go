// Package service wires the state store, the connection supervisor and the
// project manager into the configuration synchronization service.
package service

import (
	"context"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mitchellh/go-homedir"
	log "github.com/sirupsen/logrus"

	"github.com/sidkik/devmirror/pkg/agent"
	"github.com/sidkik/devmirror/pkg/alert"
	"github.com/sidkik/devmirror/pkg/config"
	"github.com/sidkik/devmirror/pkg/errors"
	"github.com/sidkik/devmirror/pkg/projects"
	"github.com/sidkik/devmirror/pkg/remote"
	"github.com/sidkik/devmirror/pkg/retry"
	"github.com/sidkik/devmirror/pkg/state"
	"github.com/sidkik/devmirror/pkg/supervisor"
	"github.com/sidkik/devmirror/pkg/synctool"
)

// Deps are the collaborators of the Service. Nil clients are replaced by
// the default implementations.
type Deps struct {
	Persist  config.Store
	Server   remote.Client
	Agent    agent.Client
	SyncTool synctool.Client
	Alerts   alert.Sink
}

// Service is the configuration synchronization service.
type Service struct {
	store    *state.Store
	projects *projects.Manager
	server   remote.Client
	agent    agent.Client
	syncTool synctool.Client
	alerts   alert.Sink
	clock    clockwork.Clock

	lock       sync.Mutex
	cancel     context.CancelFunc
	supervisor *supervisor.Supervisor
	wg         sync.WaitGroup
}

// New creates a Service seeded with the persisted configuration, or the
// defaults if nothing was persisted yet.
func New(deps Deps) (*Service, error) {
	cfg := config.Default()
	if deps.Persist != nil {
		persisted, ok, err := deps.Persist.Load()
		if err != nil {
			return nil, errors.WithContext(err, "load config")
		}
		if ok {
			cfg = persisted
		}
	}

	if deps.Server == nil {
		deps.Server = remote.New(cfg.ServerURL)
	}
	if deps.Agent == nil {
		deps.Agent = agent.New()
	}
	if deps.SyncTool == nil {
		deps.SyncTool = synctool.New()
	}
	if deps.Alerts == nil {
		deps.Alerts = alert.LogSink{Logger: log.StandardLogger()}
	}

	store := state.New(cfg, deps.Persist)
	return &Service{
		store:    store,
		projects: projects.NewManager(store, deps.Server, deps.SyncTool, deps.Alerts),
		server:   deps.Server,
		agent:    deps.Agent,
		syncTool: deps.SyncTool,
		alerts:   deps.Alerts,
		clock:    clockwork.NewRealClock(),
	}, nil
}

// Store returns the state store that publishes the configuration.
func (s *Service) Store() *state.Store {
	return s.store
}

// Projects returns the project manager.
func (s *Service) Projects() *projects.Manager {
	return s.projects
}

// Server returns the client for the remote server.
func (s *Service) Server() remote.Client {
	return s.server
}

// Start connects to the backends. It returns immediately; the connections
// are maintained in the background until Stop is called or ctx is
// cancelled.
func (s *Service) Start(ctx context.Context) {
	s.lock.Lock()
	defer s.lock.Unlock()

	ctx, s.cancel = context.WithCancel(ctx)
	s.supervisor = supervisor.New(ctx, s.store, s.agent, s.syncTool, s.projects, s.alerts)

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		s.refreshAgentPackages(ctx)
	}()
	go func() {
		defer s.wg.Done()
		s.watchStateChanges(ctx)
	}()

	s.supervisor.ReconnectAgent()
}

// Stop drops every connection and waits for the background workers to
// exit.
func (s *Service) Stop() {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.cancel == nil {
		return
	}
	s.cancel()
	s.supervisor.Close()
	s.wg.Wait()
	s.cancel = nil
}

// ReconnectAgent restarts the agent connection, and with it the sync tool
// connection, using the current settings.
func (s *Service) ReconnectAgent() {
	s.lock.Lock()
	sup := s.supervisor
	s.lock.Unlock()

	if sup != nil {
		sup.ReconnectAgent()
	}
}

func (s *Service) refreshAgentPackages(ctx context.Context) {
	info, err := s.server.GetInfo(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.alerts.Raise(alert.Generic("Could not get agent packages from the server: %s", err))
		}
		return
	}

	s.store.Commit(func(cfg *config.Configuration) {
		cfg.AgentPackages = info.Packages
	})
	log.WithField("count", len(info.Packages)).Debug("Updated agent packages")
}

// watchStateChanges applies the server's project state changes until ctx
// is cancelled. The feed is reopened whenever it drops.
func (s *Service) watchStateChanges(ctx context.Context) {
	interval := retry.Interval(s.store.Current().Agent.Retry)
	for {
		changes, err := s.server.ProjectStateChanges(ctx)
		if err != nil {
			log.WithError(err).Debug("Failed to open project state feed")
		} else {
			s.applyStateChanges(ctx, changes)
			log.Debug("Project state feed closed")
		}

		select {
		case <-ctx.Done():
			return
		case <-s.clock.After(interval):
		}
	}
}

func (s *Service) applyStateChanges(ctx context.Context, changes <-chan remote.StateChange) {
	for {
		select {
		case <-ctx.Done():
			return
		case change, ok := <-changes:
			if !ok {
				return
			}
			s.projects.ApplyStateChange(change)
		}
	}
}

// SetServerURL changes the remote server address. It takes effect the next
// time the service is created.
func (s *Service) SetServerURL(url string) {
	s.store.Commit(func(cfg *config.Configuration) {
		cfg.ServerURL = url
	})
}

// SetAgentURL changes the agent address used by the next reconnect.
func (s *Service) SetAgentURL(url string) {
	s.store.Commit(func(cfg *config.Configuration) {
		cfg.Agent.URL = url
	})
}

// SetSyncToolURL changes the sync tool address used by the next reconnect.
func (s *Service) SetSyncToolURL(url string) {
	s.store.Commit(func(cfg *config.Configuration) {
		cfg.SyncTool.URL = url
	})
}

// SetRetry sets the retry interval, in seconds, of both the agent and the
// sync tool connections.
func (s *Service) SetRetry(seconds int) {
	s.store.Commit(func(cfg *config.Configuration) {
		cfg.Agent.Retry = seconds
		cfg.SyncTool.Retry = seconds
	})
}

// Mocked for unit testing.
var homedirExpand = homedir.Expand

// SetProjectsRootDir sets the directory relative project paths are
// resolved against. A leading `~` is the sync tool's home directory, or
// the local one if the sync tool hasn't been reached yet.
func (s *Service) SetProjectsRootDir(dir string) error {
	if strings.HasPrefix(dir, "~") {
		if tilde := s.store.Current().SyncTool.Tilde; tilde != "" {
			dir = tilde + dir[1:]
		} else {
			expanded, err := homedirExpand(dir)
			if err != nil {
				return errors.WithContext(err, "expand home directory")
			}
			dir = expanded
		}
	}

	s.store.Commit(func(cfg *config.Configuration) {
		cfg.ProjectsRootDir = dir
	})
	return nil
}

// LabelRootName returns the prefix used to label projects created from
// this machine. It's empty until the sync tool has been reached.
func (s *Service) LabelRootName() string {
	return s.store.Current().LabelRootName()
}

// LatestAgentPackage returns the newest agent package published by the
// server for the given platform. Empty `goos` and `arch` default to the
// current platform.
func (s *Service) LatestAgentPackage(goos, arch string) (config.AgentPackage, bool) {
	if goos == "" {
		goos = runtime.GOOS
	}
	if arch == "" {
		arch = runtime.GOARCH
	}
	return config.LatestAgentPackage(s.store.Current().AgentPackages, goos, arch)
}

// WaitReady blocks until the project list has been reconciled once.
func (s *Service) WaitReady(ctx context.Context, timeout time.Duration) error {
	select {
	case <-s.projects.Ready():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.clock.After(timeout):
		return errors.NewFriendlyError("Timed out waiting for the project list. " +
			"Check that the devmirror agent and the sync tool are running.")
	}
}
