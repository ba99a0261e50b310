package projects

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/sidkik/devmirror/cmd/util"
	"github.com/sidkik/devmirror/pkg/config"
	"github.com/sidkik/devmirror/pkg/errors"
	"github.com/sidkik/devmirror/pkg/service"
)

var (
	stdout io.Writer = os.Stdout

	// Mocked for unit testing.
	startService     = util.StartService
	handleFatalError = util.HandleFatalError
)

// New creates a new `projects` command.
func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "Manage the projects mirrored to the build server",
	}
	cmd.AddCommand(newListCommand(), newAddCommand(), newDeleteCommand(), newSyncCommand())
	return cmd
}

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the projects",
		Run: func(_ *cobra.Command, _ []string) {
			withService(func(ctx context.Context, svc *service.Service) error {
				printProjects(stdout, svc.Store().Current().Projects)
				return nil
			})
		},
	}
}

type addOptions struct {
	label, path, serverPath, projectType, sdk string
}

func newAddCommand() *cobra.Command {
	var opts addOptions
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a project",
		Long: "Add a project. Relative paths are resolved against the projects root\n" +
			"directory, and a leading `~` is the home directory reported by the sync tool.",
		Run: func(_ *cobra.Command, _ []string) {
			input, err := opts.project()
			if err != nil {
				util.HandleFatalError(err)
			}

			withService(func(ctx context.Context, svc *service.Service) error {
				p, err := svc.Projects().Add(ctx, input)
				if err != nil {
					return errors.WithContext(err, "add project")
				}
				fmt.Fprintf(stdout, "Added project %s\n", p.Label)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&opts.label, "label", "", "The name of the project.")
	cmd.Flags().StringVar(&opts.path, "path", "", "The project directory on this machine.")
	cmd.Flags().StringVar(&opts.serverPath, "server-path", "",
		"The project directory on the build server. Only used by path-map projects.")
	cmd.Flags().StringVar(&opts.projectType, "type", config.PathMap.String(),
		"How the project is shared with the build server: path-map or cloud-sync.")
	cmd.Flags().StringVar(&opts.sdk, "sdk", "", "The id of the SDK used to build the project.")
	return cmd
}

func (opts addOptions) project() (config.Project, error) {
	switch {
	case opts.label == "":
		return config.Project{}, errors.MissingFieldError{Field: "label"}
	case opts.path == "":
		return config.Project{}, errors.MissingFieldError{Field: "path"}
	}

	projectType, err := config.ParseProjectType(opts.projectType)
	if err != nil {
		return config.Project{}, err
	}

	if projectType == config.PathMap && opts.serverPath == "" {
		return config.Project{}, errors.MissingFieldError{Field: "server-path"}
	}

	return config.Project{
		Label:        opts.label,
		PathClient:   opts.path,
		PathServer:   opts.serverPath,
		Type:         projectType,
		DefaultSDKID: opts.sdk,
	}, nil
}

func newDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a project",
		Args:  cobra.ExactArgs(1),
		Run: func(_ *cobra.Command, args []string) {
			withService(func(ctx context.Context, svc *service.Service) error {
				p := lookupProject(svc.Store().Current(), args[0])
				if _, err := svc.Projects().Delete(ctx, p); err != nil {
					return errors.WithContext(err, "delete project")
				}
				fmt.Fprintf(stdout, "Deleted project %s (%s)\n", p.Label, p.ID)
				return nil
			})
		},
	}
}

func newSyncCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sync ID",
		Short: "Ask the build server to synchronize a project",
		Args:  cobra.ExactArgs(1),
		Run: func(_ *cobra.Command, args []string) {
			withService(func(ctx context.Context, svc *service.Service) error {
				resp, err := svc.Projects().Sync(ctx, config.Project{ID: args[0]})
				if err != nil {
					return errors.WithContext(err, "sync project")
				}
				if resp != "" {
					fmt.Fprintln(stdout, resp)
				}
				return nil
			})
		},
	}
}

// lookupProject returns the stored project with the given id, or a project
// carrying only the id if it isn't known.
func lookupProject(cfg config.Configuration, id string) config.Project {
	if i := cfg.ProjectIndex(id); i != -1 {
		return cfg.Projects[i]
	}
	return config.Project{ID: id}
}

// withService runs fn against a started service. The service is stopped
// before any fatal exit, since the exit skips deferred calls.
func withService(fn func(context.Context, *service.Service) error) {
	ctx, cancel := context.WithCancel(context.Background())

	svc, stop, err := startService(ctx)
	if err != nil {
		cancel()
		handleFatalError(err)
		return
	}

	err = fn(ctx, svc)
	stop()
	cancel()
	if err != nil {
		handleFatalError(err)
	}
}

func printProjects(w io.Writer, projects []config.Project) {
	if len(projects) == 0 {
		fmt.Fprintln(w, "No projects found.")
		return
	}

	table := tablewriter.NewWriter(w)
	table.Header("ID", "Label", "Type", "Local Path", "Server Path", "Status", "In Sync")
	for _, p := range projects {
		table.Append(p.ID, p.Label, p.Type.String(), p.PathClient, p.PathServer,
			string(p.Status), strconv.FormatBool(p.IsInSync))
	}
	table.Render()
}
