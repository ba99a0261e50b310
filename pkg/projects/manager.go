// Package projects keeps the project list in the state store in line with
// the remote server and the local sync tool.
package projects

import (
	"context"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/sidkik/devmirror/pkg/alert"
	"github.com/sidkik/devmirror/pkg/config"
	"github.com/sidkik/devmirror/pkg/errors"
	"github.com/sidkik/devmirror/pkg/remote"
	"github.com/sidkik/devmirror/pkg/state"
	"github.com/sidkik/devmirror/pkg/synctool"
)

// Manager reconciles and mutates the project list.
type Manager struct {
	store    *state.Store
	server   remote.Client
	syncTool synctool.Client
	alerts   alert.Sink

	ready     chan struct{}
	readyOnce sync.Once
}

// NewManager creates a Manager that publishes its changes to `store`.
func NewManager(store *state.Store, server remote.Client, syncTool synctool.Client,
	alerts alert.Sink) *Manager {
	return &Manager{
		store:    store,
		server:   server,
		syncTool: syncTool,
		alerts:   alerts,
		ready:    make(chan struct{}),
	}
}

// Ready is closed once the first reconcile has completed.
func (m *Manager) Ready() <-chan struct{} {
	return m.ready
}

// Reconcile rebuilds the project list from the server's definitions and
// the sync tool's records. A project is included if the sync tool knows
// it, or if it's path-mapped and so doesn't need the sync tool.
func (m *Manager) Reconcile(ctx context.Context) error {
	m.store.CommitSilent(func(cfg *config.Configuration) {
		cfg.Projects = []config.Project{}
	})

	var wg sync.WaitGroup
	var remoteDefs []config.RemoteProject
	var localRecords []synctool.Record
	var remoteErr, localErr error

	wg.Add(2)
	go func() {
		defer wg.Done()
		remoteDefs, remoteErr = m.server.GetProjects(ctx)
	}()
	go func() {
		defer wg.Done()
		localRecords, localErr = m.syncTool.GetProjects(ctx)
	}()
	wg.Wait()

	// A cancelled reconcile was replaced on purpose, so fetch failures
	// aren't worth alerting about.
	if err := ctx.Err(); err != nil {
		return err
	}

	if remoteErr != nil {
		m.alerts.Raise(alert.Generic("Could not load initial state of remote projects: %s", remoteErr))
		return errors.WithContext(remoteErr, "get remote projects")
	}
	if localErr != nil {
		m.alerts.Raise(alert.Generic("Could not load initial state of local projects: %s", localErr))
		return errors.WithContext(localErr, "get local projects")
	}

	local := map[string]struct{}{}
	for _, record := range localRecords {
		local[record.ID] = struct{}{}
	}

	var included []config.Project
	for _, def := range remoteDefs {
		_, isLocal := local[def.ID]
		if !isLocal && def.Type != config.PathMap {
			log.WithField("id", def.ID).WithField("label", def.Label).
				Debug("Skipping cloud-sync project unknown to the sync tool")
			continue
		}
		included = append(included, FromRemote(def))
	}

	m.store.CommitSilent(func(cfg *config.Configuration) {
		for _, p := range included {
			upsert(cfg, p)
		}
	})
	log.WithField("count", len(included)).Debug("Reconciled projects")

	m.readyOnce.Do(func() { close(m.ready) })
	return nil
}

// Add creates the project on the server and, for cloud-sync projects,
// shares its folder through the sync tool. The project is only added to
// the store once both succeed. The caller's input is returned unchanged.
func (m *Manager) Add(ctx context.Context, input config.Project) (config.Project, error) {
	cfg := m.store.Current()

	def := config.RemoteProject{
		Label:        input.Label,
		Path:         NormalizeClientPath(input.PathClient, cfg.SyncTool.Tilde, cfg.ProjectsRootDir),
		Type:         input.Type,
		DefaultSDKID: input.DefaultSDKID,
		DataPathMap:  config.PathMapData{ServerPath: input.PathServer},
		DataCloudSync: config.CloudSyncData{
			SyncThingID: cfg.SyncTool.ID,
		},
	}

	added, err := m.server.AddProject(ctx, def)
	if err != nil {
		return config.Project{}, errors.WithContext(err, "add remote project")
	}

	if added.Type == config.CloudSync {
		record := synctool.Record{
			ID:           added.ID,
			Label:        added.Label,
			Path:         added.Path,
			ServerNodeID: added.DataCloudSync.BuilderSThgID,
		}
		if err := m.syncTool.AddProject(ctx, record); err != nil {
			return config.Project{}, errors.WithContext(err, "add local project")
		}
	}

	m.store.CommitSilent(func(cfg *config.Configuration) {
		upsert(cfg, FromRemote(added))
	})
	return input, nil
}

// Delete removes the project from the server, from the sync tool when it's
// a cloud-sync project, and finally from the store. It returns p.
func (m *Manager) Delete(ctx context.Context, p config.Project) (config.Project, error) {
	cfg := m.store.Current()
	idx := cfg.ProjectIndex(p.ID)
	if idx == -1 {
		return config.Project{}, errors.InvalidProjectID{ID: p.ID}
	}
	existing := cfg.Projects[idx]

	if err := m.server.DeleteProject(ctx, p.ID); err != nil {
		return config.Project{}, errors.WithContext(err, "delete remote project")
	}

	if existing.Type == config.CloudSync {
		if err := m.syncTool.DeleteProject(ctx, p.ID); err != nil {
			return config.Project{}, errors.WithContext(err, "delete local project")
		}
	}

	m.store.CommitSilent(func(cfg *config.Configuration) {
		i := idx
		if i >= len(cfg.Projects) || cfg.Projects[i].ID != p.ID {
			i = cfg.ProjectIndex(p.ID)
		}
		if i == -1 {
			return
		}
		cfg.Projects = append(cfg.Projects[:i], cfg.Projects[i+1:]...)
	})
	return p, nil
}

// Sync asks the server to synchronize the project. It returns the server's
// response.
func (m *Manager) Sync(ctx context.Context, p config.Project) (string, error) {
	if m.store.Current().ProjectIndex(p.ID) == -1 {
		return "", errors.InvalidProjectID{ID: p.ID}
	}

	resp, err := m.server.SyncProject(ctx, p.ID)
	if err != nil {
		return "", errors.WithContext(err, fmt.Sprintf("sync project %s", p.ID))
	}
	return resp, nil
}

// ApplyStateChange records a synchronization state change pushed by the
// server. Changes for unknown projects are ignored.
func (m *Manager) ApplyStateChange(change remote.StateChange) {
	if m.store.Current().ProjectIndex(change.ID) == -1 {
		log.WithField("id", change.ID).Debug("Ignoring state change for unknown project")
		return
	}

	m.store.CommitSilent(func(cfg *config.Configuration) {
		i := cfg.ProjectIndex(change.ID)
		if i == -1 {
			return
		}
		p := &cfg.Projects[i]
		p.IsInSync = change.IsInSync
		p.Status = change.Status
		p.IsUsable = config.Usable(change.IsInSync, change.Status)
	})
}
