package projects

import (
	"sort"

	"github.com/sidkik/devmirror/pkg/config"
)

// FromRemote converts a server definition into the local project model.
func FromRemote(def config.RemoteProject) config.Project {
	serverDef := def
	return config.Project{
		ID:           def.ID,
		Label:        def.Label,
		PathClient:   def.Path,
		PathServer:   def.DataPathMap.ServerPath,
		Type:         def.Type,
		Status:       def.Status,
		IsInSync:     def.IsInSync,
		IsUsable:     config.Usable(def.IsInSync, def.Status),
		DefaultSDKID: def.DefaultSDKID,
		ServerDef:    &serverDef,
	}
}

// InsertSorted inserts `p` into `projects`, which must already be sorted by
// label. Projects with equal labels keep their insertion order.
func InsertSorted(projects []config.Project, p config.Project) []config.Project {
	i := sort.Search(len(projects), func(i int) bool {
		return projects[i].Label > p.Label
	})

	projects = append(projects, config.Project{})
	copy(projects[i+1:], projects[i:])
	projects[i] = p
	return projects
}

// upsert replaces any project with the same ID as `p` and inserts `p` at
// its sorted position.
func upsert(cfg *config.Configuration, p config.Project) {
	if i := cfg.ProjectIndex(p.ID); i != -1 {
		cfg.Projects = append(cfg.Projects[:i], cfg.Projects[i+1:]...)
	}
	cfg.Projects = InsertSorted(cfg.Projects, p)
}
