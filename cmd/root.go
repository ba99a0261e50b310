package cmd

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sidkik/devmirror/cmd/agent"
	configCmd "github.com/sidkik/devmirror/cmd/config"
	"github.com/sidkik/devmirror/cmd/projects"
	"github.com/sidkik/devmirror/cmd/run"
	"github.com/sidkik/devmirror/cmd/util"
	"github.com/sidkik/devmirror/cmd/version"
)

// verboseLogKey is the environment variable used to enable verbose logging.
// When it's set to `true`, Debug events are logged, rather than just Info and
// above.
const verboseLogKey = "DEVMIRROR_LOG_VERBOSE"

// Execute runs the main CLI process.
func Execute() {
	if os.Getenv(verboseLogKey) == "true" {
		log.SetLevel(log.DebugLevel)
	}

	rootCmd := &cobra.Command{
		Use:          "devmirror",
		Short:        "Keep development projects mirrored between this machine and a build server",
		SilenceUsage: true,

		// The call to rootCmd.Execute prints the error, so we silence errors
		// here to avoid double printing.
		SilenceErrors: true,
	}
	rootCmd.AddCommand(
		agent.New(),
		configCmd.New(),
		projects.New(),
		run.New(),
		version.New(),
	)

	if err := rootCmd.Execute(); err != nil {
		util.HandleFatalError(err)
	}
}
