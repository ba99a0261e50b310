// Package config defines the devmirror configuration model and the adapter
// that persists it between runs.
package config

import (
	"fmt"
	"time"

	"github.com/sidkik/devmirror/pkg/errors"
)

// ProjectType is the synchronization type of a project.
type ProjectType int

const (
	// PathMap projects are reachable by the server through a shared
	// filesystem path, so they need no local sync daemon counterpart.
	PathMap ProjectType = 1

	// CloudSync projects are mirrored between machines by the local sync
	// tool.
	CloudSync ProjectType = 2
)

func (t ProjectType) String() string {
	switch t {
	case PathMap:
		return "path-map"
	case CloudSync:
		return "cloud-sync"
	default:
		return fmt.Sprintf("unknown(%d)", int(t))
	}
}

// ParseProjectType parses the names returned by ProjectType.String.
func ParseProjectType(s string) (ProjectType, error) {
	switch s {
	case "path-map", "pathmap":
		return PathMap, nil
	case "cloud-sync", "cloudsync":
		return CloudSync, nil
	default:
		return 0, errors.New("unknown project type %q", s)
	}
}

// ProjectStatus is the state of a project as reported by the server.
type ProjectStatus string

// The statuses a project can be in.
const (
	StatusErrorConfig ProjectStatus = "ErrorConfig"
	StatusDisable     ProjectStatus = "Disable"
	StatusEnable      ProjectStatus = "Enable"
	StatusPause       ProjectStatus = "Pause"
	StatusSyncing     ProjectStatus = "Syncing"
)

// PathMapData is the part of a remote project definition specific to
// path-mapped projects.
type PathMapData struct {
	ServerPath string `json:"serverPath,omitempty"`
}

// CloudSyncData is the part of a remote project definition specific to
// cloud-sync projects.
type CloudSyncData struct {
	// SyncThingID is the node id of the local sync tool.
	SyncThingID string `json:"syncThingID,omitempty"`

	// BuilderSThgID is the node id of the server-side sync peer.
	BuilderSThgID string `json:"builderSThgID,omitempty"`
}

// RemoteProject is a project definition as known by the remote server.
type RemoteProject struct {
	ID            string        `json:"id"`
	Label         string        `json:"label"`
	Path          string        `json:"path"`
	Type          ProjectType   `json:"type"`
	Status        ProjectStatus `json:"status,omitempty"`
	IsInSync      bool          `json:"isInSync,omitempty"`
	DefaultSDKID  string        `json:"defaultSdkID,omitempty"`
	DataPathMap   PathMapData   `json:"dataPathMap"`
	DataCloudSync CloudSyncData `json:"dataCloudSync"`
}

// Project is the client-side view of a RemoteProject.
type Project struct {
	ID         string        `json:"id,omitempty"`
	Label      string        `json:"label"`
	PathClient string        `json:"pathClient"`
	PathServer string        `json:"pathServer,omitempty"`
	Type       ProjectType   `json:"type"`
	Status     ProjectStatus `json:"status,omitempty"`
	IsInSync   bool          `json:"isInSync,omitempty"`

	// IsUsable is derived from IsInSync and Status. See Usable.
	IsUsable     bool   `json:"isUsable,omitempty"`
	DefaultSDKID string `json:"defaultSdkID,omitempty"`

	// ServerDef is the definition the project was built from. It's shared
	// between snapshots and must not be modified.
	ServerDef *RemoteProject `json:"serverDef,omitempty"`

	// Only used by user interfaces.
	IsExpanded bool `json:"isExpanded,omitempty"`
	Visible    bool `json:"visible,omitempty"`
}

// Usable returns whether a project in the given state can be built from.
func Usable(isInSync bool, status ProjectStatus) bool {
	return isInSync && status == StatusEnable
}

// AgentConfig holds the settings for connecting to the local agent.
type AgentConfig struct {
	URL string `json:"url"`

	// Retry is the number of seconds between connection attempts.
	Retry int `json:"retry"`
}

// RetryInterval returns Retry as a duration.
func (c AgentConfig) RetryInterval() time.Duration {
	return time.Duration(c.Retry) * time.Second
}

// AgentPackage is a downloadable build of the agent.
type AgentPackage struct {
	OS      string `json:"os"`
	Arch    string `json:"arch"`
	Version string `json:"version"`
	URL     string `json:"url"`
}

// SyncToolConfig holds the settings for connecting to the local sync tool,
// and the values it reported the last time it was reached.
type SyncToolConfig struct {
	// ID is the node identifier assigned to the local sync tool.
	ID    string `json:"id,omitempty"`
	URL   string `json:"url"`
	Retry int    `json:"retry"`

	// Tilde is the home directory that `~` expands to on the machine
	// running the sync tool.
	Tilde string `json:"tilde,omitempty"`
}

// RetryInterval returns Retry as a duration.
func (c SyncToolConfig) RetryInterval() time.Duration {
	return time.Duration(c.Retry) * time.Second
}

// Configuration is the root of the devmirror state.
type Configuration struct {
	Version         string         `json:"version,omitempty"`
	ServerURL       string         `json:"serverURL"`
	Agent           AgentConfig    `json:"agent"`
	AgentPackages   []AgentPackage `json:"agentPackages,omitempty"`
	ProjectsRootDir string         `json:"projectsRootDir"`
	SyncTool        SyncToolConfig `json:"syncTool"`

	// Projects is rebuilt from the backends on every connection, and is
	// never persisted.
	Projects []Project `json:"projects,omitempty"`
}

// Default values used when no configuration has been persisted yet.
const (
	DefaultServerURL     = "http://localhost:8000/api/v1"
	DefaultAgentURL      = "http://localhost:8010"
	DefaultSyncToolURL   = "http://localhost:8386"
	DefaultRetrySeconds  = 10
	labelRootNameMaxSize = 15
)

// Default returns the configuration used on first start.
func Default() Configuration {
	return Configuration{
		Version:   SupportedConfigVersion,
		ServerURL: DefaultServerURL,
		Agent: AgentConfig{
			URL:   DefaultAgentURL,
			Retry: DefaultRetrySeconds,
		},
		AgentPackages: []AgentPackage{},
		Projects:      []Project{},
		SyncTool: SyncToolConfig{
			URL:   DefaultSyncToolURL,
			Retry: DefaultRetrySeconds,
		},
	}
}

// Clone returns a copy of `c` that can be modified without affecting `c`.
// ServerDef pointers are shared between the two.
func (c Configuration) Clone() Configuration {
	clone := c
	if c.AgentPackages != nil {
		clone.AgentPackages = make([]AgentPackage, len(c.AgentPackages))
		copy(clone.AgentPackages, c.AgentPackages)
	}
	if c.Projects != nil {
		clone.Projects = make([]Project, len(c.Projects))
		copy(clone.Projects, c.Projects)
	}
	return clone
}

// ProjectIndex returns the index of the project with the given id, or -1.
func (c Configuration) ProjectIndex(id string) int {
	for i, p := range c.Projects {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// LabelRootName returns a short form of the sync tool's node id, suitable
// for prefixing project labels. It's empty until the sync tool has been
// reached.
func (c Configuration) LabelRootName() string {
	id := c.SyncTool.ID
	if len(id) > labelRootNameMaxSize {
		return id[:labelRootNameMaxSize]
	}
	return id
}
