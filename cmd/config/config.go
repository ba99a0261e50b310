package config

import (
	"bufio"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sidkik/devmirror/cmd/util"
	"github.com/sidkik/devmirror/pkg/config"
	"github.com/sidkik/devmirror/pkg/errors"
	"github.com/sidkik/devmirror/pkg/service"
)

// Mocked for unit testing.
var (
	stdout     io.Writer = os.Stdout
	stdin      io.Reader = os.Stdin
	newService           = util.NewService
)

type options struct {
	serverURL   string
	agentURL    string
	syncToolURL string
	rootDir     string
	retry       int
}

func (opts options) empty() bool {
	return opts == options{}
}

// New creates a new `config` command.
func New() *cobra.Command {
	var cliOpts options
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Setup the devmirror configuration",
		Long: "Setup the devmirror configuration.\n" +
			"Without flags, `devmirror config` interactively prompts for every setting.",
		Run: func(_ *cobra.Command, _ []string) {
			if err := setupConfig(cliOpts); err != nil {
				err = errors.NewFriendlyError("Failed to setup configuration:\n%s", err)
				util.HandleFatalError(err)
			}
		},
	}
	cmd.Flags().StringVar(&cliOpts.serverURL, "server", "",
		"Set the URL of the build server API, e.g. http://builder:8000/api/v1.")
	cmd.Flags().StringVar(&cliOpts.agentURL, "agent", "",
		"Set the URL of the local devmirror agent.")
	cmd.Flags().StringVar(&cliOpts.syncToolURL, "sync-tool", "",
		"Set the URL of the local sync tool daemon.")
	cmd.Flags().StringVar(&cliOpts.rootDir, "root", "",
		"Set the directory relative project paths are resolved against. "+
			"A leading `~` is expanded.")
	cmd.Flags().IntVar(&cliOpts.retry, "retry", 0,
		"Set the interval, in seconds, between connection attempts to the local services.")

	// Setup the commands for querying the contents of the config.
	type getterSpec struct {
		use, short string
		fn         func(config.Configuration) string
	}

	getters := []getterSpec{
		{
			use:   "get-server",
			short: "Get the configured build server URL",
			fn:    func(cfg config.Configuration) string { return cfg.ServerURL },
		},
		{
			use:   "get-agent",
			short: "Get the configured agent URL",
			fn:    func(cfg config.Configuration) string { return cfg.Agent.URL },
		},
		{
			use:   "get-sync-tool",
			short: "Get the configured sync tool URL",
			fn:    func(cfg config.Configuration) string { return cfg.SyncTool.URL },
		},
		{
			use:   "get-root",
			short: "Get the configured projects root directory",
			fn:    func(cfg config.Configuration) string { return cfg.ProjectsRootDir },
		},
		{
			use:   "get-retry",
			short: "Get the configured connection retry interval",
			fn:    func(cfg config.Configuration) string { return strconv.Itoa(cfg.Agent.Retry) },
		},
	}
	for _, getter := range getters {
		getter := getter
		cmd.AddCommand(&cobra.Command{
			Use:   getter.use,
			Short: getter.short,
			Run: func(_ *cobra.Command, _ []string) {
				svc, err := newService()
				if err != nil {
					err = errors.WithContext(err, "read config")
					util.HandleFatalError(err)
				}

				fmt.Fprintln(stdout, getter.fn(svc.Store().Current()))
			},
		})
	}

	return cmd
}

func setupConfig(cliOpts options) error {
	svc, err := newService()
	if err != nil {
		return errors.WithContext(err, "read config")
	}

	opts := cliOpts
	if opts.empty() {
		opts, err = promptOptions(svc.Store().Current())
		if err != nil {
			return errors.WithContext(err, "prompt")
		}
	}

	if err := apply(svc, opts); err != nil {
		return err
	}

	fmt.Fprintf(stdout, "Wrote config to %s\n", config.DefaultPath)
	return nil
}

func apply(svc *service.Service, opts options) error {
	for _, u := range []string{opts.serverURL, opts.agentURL, opts.syncToolURL} {
		if err := validateURL(u); err != nil {
			return err
		}
	}
	if opts.retry < 0 {
		return errors.New("retry interval must be positive")
	}

	if opts.serverURL != "" {
		svc.SetServerURL(opts.serverURL)
	}
	if opts.agentURL != "" {
		svc.SetAgentURL(opts.agentURL)
	}
	if opts.syncToolURL != "" {
		svc.SetSyncToolURL(opts.syncToolURL)
	}
	if opts.retry != 0 {
		svc.SetRetry(opts.retry)
	}
	if opts.rootDir != "" {
		if err := svc.SetProjectsRootDir(opts.rootDir); err != nil {
			return errors.WithContext(err, "set projects root dir")
		}
	}
	return nil
}

func validateURL(raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return errors.WithContext(err, "parse url")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("%q must be an http or https URL", raw)
	}
	return nil
}

type prompt struct {
	helpString, prompt, defaultAnswer, currAnswer string
	field                                         *string
}

// promptOptions interacts with the user to decide the desired
// configuration. The current settings and the defaults are offered as
// choices.
func promptOptions(curr config.Configuration) (options, error) {
	defaults := config.Default()

	var opts options
	prompts := []prompt{
		{
			helpString:    "Enter the URL of the build server API.",
			prompt:        "Server URL",
			defaultAnswer: defaults.ServerURL,
			currAnswer:    curr.ServerURL,
			field:         &opts.serverURL,
		},
		{
			helpString:    "Enter the URL of the local devmirror agent.",
			prompt:        "Agent URL",
			defaultAnswer: defaults.Agent.URL,
			currAnswer:    curr.Agent.URL,
			field:         &opts.agentURL,
		},
		{
			helpString:    "Enter the URL of the local sync tool daemon.",
			prompt:        "Sync tool URL",
			defaultAnswer: defaults.SyncTool.URL,
			currAnswer:    curr.SyncTool.URL,
			field:         &opts.syncToolURL,
		},
		{
			helpString: "Enter the directory relative project paths are resolved against.\n" +
				"It defaults to the home directory reported by the sync tool.",
			prompt:     "Projects root directory",
			currAnswer: curr.ProjectsRootDir,
			field:      &opts.rootDir,
		},
	}

	stdinReader := bufio.NewReader(stdin)
	for _, prompt := range prompts {
		resp, err := promptUser(stdinReader, prompt.helpString, prompt.prompt,
			prompt.defaultAnswer, prompt.currAnswer)
		if err != nil {
			return options{}, errors.WithContext(err, "read response")
		}
		*prompt.field = resp
	}
	return opts, nil
}

func promptUser(stdinReader *bufio.Reader, helpString, prompt, defaultAnswer, currAnswer string) (string, error) {
	// Display a new line at the end to separate different fields to make it
	// look clearer.
	defer fmt.Fprintln(stdout)

	choices := []string{}
	if defaultAnswer != "" {
		choices = append(choices, defaultAnswer)
	}
	if currAnswer != "" && currAnswer != defaultAnswer {
		choices = append(choices, currAnswer)
	}
	choices = append(choices, "(Enter manually)")

	fmt.Fprintln(stdout, helpString+"\n"+prompt+":")

	if nOptions := len(choices); nOptions > 1 {
		fmt.Fprintln(stdout)
		for i, option := range choices {
			if i == 0 {
				option = fmt.Sprintf("%s (recommended)", option)
			}
			fmt.Fprintf(stdout, "\t%d. %s\n", i+1, option)
		}
		fmt.Fprintln(stdout)

		for {
			fmt.Fprintf(stdout, "Please choose one [1-%d]: ", nOptions)
			choiceStr, err := stdinReader.ReadString('\n')
			if err != nil {
				return "", err
			}

			var choice int
			choiceStr = strings.TrimRight(choiceStr, "\n")

			// Default to the first choice if user doesn't enter anything.
			if choiceStr == "" {
				choice = 1
			} else {
				choice, err = strconv.Atoi(choiceStr)
				if err != nil || choice < 1 || choice > nOptions {
					// Try again if the input is invalid.
					continue
				}
			}

			if choice == nOptions {
				break
			}

			return choices[choice-1], nil
		}
	}

	fmt.Fprint(stdout, "Please enter manually: ")
	resp, err := stdinReader.ReadString('\n')
	if err != nil {
		return "", err
	}

	return strings.TrimRight(resp, "\n"), nil
}
