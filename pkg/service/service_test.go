package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sidkik/devmirror/pkg/agent"
	agentMocks "github.com/sidkik/devmirror/pkg/agent/mocks"
	"github.com/sidkik/devmirror/pkg/alert"
	"github.com/sidkik/devmirror/pkg/config"
	"github.com/sidkik/devmirror/pkg/errors"
	"github.com/sidkik/devmirror/pkg/remote"
	remoteMocks "github.com/sidkik/devmirror/pkg/remote/mocks"
	syncToolMocks "github.com/sidkik/devmirror/pkg/synctool/mocks"
)

type memoryStore struct {
	lock    sync.Mutex
	cfg     config.Configuration
	present bool
	loadErr error
	saves   int
}

func (m *memoryStore) Load() (config.Configuration, bool, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.cfg, m.present, m.loadErr
}

func (m *memoryStore) Save(cfg config.Configuration) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.cfg, m.present = cfg, true
	m.saves++
	return nil
}

func (m *memoryStore) get() config.Configuration {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.cfg
}

func newTestService(t *testing.T, persist config.Store) (*Service, *remoteMocks.Client) {
	server := &remoteMocks.Client{}
	svc, err := New(Deps{
		Persist:  persist,
		Server:   server,
		Agent:    &agentMocks.Client{},
		SyncTool: &syncToolMocks.Client{},
		Alerts:   alert.SinkFunc(func(alert.Alert) {}),
	})
	require.NoError(t, err)
	return svc, server
}

func TestNew(t *testing.T) {
	persisted := config.Default()
	persisted.ServerURL = "http://builder:8000/api/v1"
	persisted.Agent.Retry = 3

	tests := []struct {
		name   string
		store  *memoryStore
		exp    config.Configuration
		expErr bool
	}{
		{
			name:  "Absent",
			store: &memoryStore{},
			exp:   config.Default(),
		},
		{
			name:  "Persisted",
			store: &memoryStore{cfg: persisted, present: true},
			exp:   persisted,
		},
		{
			name:   "LoadError",
			store:  &memoryStore{loadErr: errors.New("corrupt")},
			expErr: true,
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			svc, err := New(Deps{Persist: test.store, Server: &remoteMocks.Client{}})
			if test.expErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.exp, svc.Store().Current())
		})
	}
}

func TestSetters(t *testing.T) {
	persist := &memoryStore{}
	svc, _ := newTestService(t, persist)

	svc.SetServerURL("http://builder/api/v1")
	svc.SetAgentURL("http://localhost:9010")
	svc.SetSyncToolURL("http://localhost:9386")
	svc.SetRetry(5)

	cfg := svc.Store().Current()
	assert.Equal(t, "http://builder/api/v1", cfg.ServerURL)
	assert.Equal(t, "http://localhost:9010", cfg.Agent.URL)
	assert.Equal(t, "http://localhost:9386", cfg.SyncTool.URL)
	assert.Equal(t, 5, cfg.Agent.Retry)
	assert.Equal(t, 5, cfg.SyncTool.Retry)

	assert.Equal(t, 4, persist.saves)
	assert.Equal(t, 5, persist.get().SyncTool.Retry)
}

func TestSetProjectsRootDir(t *testing.T) {
	defer func(orig func(string) (string, error)) {
		homedirExpand = orig
	}(homedirExpand)
	homedirExpand = func(path string) (string, error) {
		return "/local" + path[1:], nil
	}

	svc, _ := newTestService(t, nil)

	require.NoError(t, svc.SetProjectsRootDir("~/work"))
	assert.Equal(t, "/local/work", svc.Store().Current().ProjectsRootDir)

	svc.Store().Commit(func(cfg *config.Configuration) {
		cfg.SyncTool.Tilde = "/home/u"
	})
	require.NoError(t, svc.SetProjectsRootDir("~/work"))
	assert.Equal(t, "/home/u/work", svc.Store().Current().ProjectsRootDir)

	require.NoError(t, svc.SetProjectsRootDir("/abs"))
	assert.Equal(t, "/abs", svc.Store().Current().ProjectsRootDir)
}

func TestLabelRootName(t *testing.T) {
	svc, _ := newTestService(t, nil)
	assert.Equal(t, "", svc.LabelRootName())

	svc.Store().Commit(func(cfg *config.Configuration) {
		cfg.SyncTool.ID = "ABCDEFG-HIJKLMN-OPQRSTU"
	})
	assert.Equal(t, "ABCDEFG-HIJKLMN", svc.LabelRootName())
}

func TestLatestAgentPackage(t *testing.T) {
	svc, _ := newTestService(t, nil)
	svc.Store().Commit(func(cfg *config.Configuration) {
		cfg.AgentPackages = []config.AgentPackage{
			{OS: "linux", Arch: "amd64", Version: "1.10.0"},
			{OS: "linux", Arch: "amd64", Version: "1.9.0"},
		}
	})

	pkg, ok := svc.LatestAgentPackage("linux", "amd64")
	assert.True(t, ok)
	assert.Equal(t, "1.10.0", pkg.Version)

	_, ok = svc.LatestAgentPackage("darwin", "arm64")
	assert.False(t, ok)
}

// waitFor reads snapshots until `cond` holds.
func waitFor(t *testing.T, svc *Service, cond func(config.Configuration) bool) {
	sub := svc.Store().Subscribe()
	defer sub.Unsubscribe()

	deadline := time.After(5 * time.Second)
	for {
		select {
		case cfg := <-sub.C():
			if cond(cfg) {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for configuration")
		}
	}
}

func TestStart(t *testing.T) {
	agentClient := &agentMocks.Client{}
	server := &remoteMocks.Client{}
	svc, err := New(Deps{
		Server:   server,
		Agent:    agentClient,
		SyncTool: &syncToolMocks.Client{},
		Alerts:   alert.SinkFunc(func(alert.Alert) {}),
	})
	require.NoError(t, err)

	svc.Store().CommitSilent(func(cfg *config.Configuration) {
		cfg.Projects = []config.Project{{ID: "P1", Label: "a", Status: config.StatusEnable}}
	})

	agentClient.On("Connect", mock.Anything, 10, config.DefaultAgentURL).Return(
		func(ctx context.Context, _ int, _ string) <-chan agent.Event {
			events := make(chan agent.Event)
			go func() {
				<-ctx.Done()
				close(events)
			}()
			return events
		})

	server.On("GetInfo", mock.Anything).Return(remote.Info{Packages: []config.AgentPackage{
		{OS: "linux", Arch: "amd64", Version: "1.0.0", URL: "http://pkg"},
	}}, nil)

	changes := make(chan remote.StateChange, 1)
	changes <- remote.StateChange{ID: "P1", IsInSync: true, Status: config.StatusEnable}
	server.On("ProjectStateChanges", mock.Anything).Return((<-chan remote.StateChange)(changes), nil).Once()
	server.On("ProjectStateChanges", mock.Anything).Return(nil, errors.New("closed"))

	svc.Start(context.Background())
	defer svc.Stop()

	waitFor(t, svc, func(cfg config.Configuration) bool {
		return len(cfg.AgentPackages) == 1 &&
			len(cfg.Projects) == 1 && cfg.Projects[0].IsUsable
	})
}

func TestStartPackagesError(t *testing.T) {
	alerts := make(chan alert.Alert, 1)
	agentClient := &agentMocks.Client{}
	server := &remoteMocks.Client{}
	svc, err := New(Deps{
		Server:   server,
		Agent:    agentClient,
		SyncTool: &syncToolMocks.Client{},
		Alerts:   alert.SinkFunc(func(a alert.Alert) { alerts <- a }),
	})
	require.NoError(t, err)

	agentClient.On("Connect", mock.Anything, mock.Anything, mock.Anything).Return(
		func(ctx context.Context, _ int, _ string) <-chan agent.Event {
			events := make(chan agent.Event)
			go func() {
				<-ctx.Done()
				close(events)
			}()
			return events
		})
	server.On("GetInfo", mock.Anything).Return(remote.Info{}, errors.New("boom"))
	server.On("ProjectStateChanges", mock.Anything).Return(nil, errors.New("closed"))

	svc.Start(context.Background())
	defer svc.Stop()

	select {
	case a := <-alerts:
		assert.Contains(t, a.Message, "boom")
	case <-time.After(5 * time.Second):
		t.Fatal("no alert raised")
	}
}

func TestWaitReady(t *testing.T) {
	svc, _ := newTestService(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Equal(t, context.Canceled, svc.WaitReady(ctx, time.Hour))
}
