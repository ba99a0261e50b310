package version

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sidkik/devmirror/cmd/util"
	"github.com/sidkik/devmirror/pkg/errors"
	"github.com/sidkik/devmirror/pkg/version"
)

var stdout io.Writer = os.Stdout

// New creates a new `version` command.
func New() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the local and remote version of devmirror.",
		Long: "Print the local version of devmirror and the version running\n" +
			"on the build server.",
		Run: func(_ *cobra.Command, args []string) {
			if err := run(context.Background()); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
}

func run(ctx context.Context) error {
	fmt.Fprintf(stdout, "local version:  %s\n", version.Version)

	svc, err := util.NewService()
	if err != nil {
		return err
	}

	serverURL := svc.Store().Current().ServerURL
	remoteVersion, err := svc.Server().GetVersion(ctx)
	if err != nil {
		return errors.WithContext(err, fmt.Sprintf("get version of %s", serverURL))
	}

	fmt.Fprintf(stdout, "server version: %s\n", remoteVersion)
	return nil
}
