package run

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sidkik/devmirror/cmd/util"
	"github.com/sidkik/devmirror/pkg/config"
)

// New creates a new `run` command.
func New() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Keep the project list synchronized until interrupted",
		Long: "Connect to the local agent, the local sync tool and the build server,\n" +
			"and log every change to the projects until Ctrl-C is pressed.",
		Run: func(_ *cobra.Command, _ []string) {
			if err := run(); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
}

func run() error {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	svc, err := util.NewService()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub := svc.Store().Subscribe()
	defer sub.Unsubscribe()

	svc.Start(ctx)
	defer svc.Stop()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(signals)

	var last summary
	for {
		select {
		case <-signals:
			log.Info("Shutting down")
			return nil
		case cfg, ok := <-sub.C():
			if !ok {
				return nil
			}
			if curr := summarize(cfg); curr != last {
				curr.log()
				last = curr
			}
		}
	}
}

// summary is the part of a snapshot that's worth logging.
type summary struct {
	syncToolID string
	rootDir    string
	projects   int
	usable     int
	inSync     int
}

func summarize(cfg config.Configuration) summary {
	s := summary{
		syncToolID: cfg.LabelRootName(),
		rootDir:    cfg.ProjectsRootDir,
		projects:   len(cfg.Projects),
	}
	for _, p := range cfg.Projects {
		if p.IsUsable {
			s.usable++
		}
		if p.IsInSync {
			s.inSync++
		}
	}
	return s
}

func (s summary) log() {
	log.WithFields(log.Fields{
		"syncTool": s.syncToolID,
		"rootDir":  s.rootDir,
		"projects": s.projects,
		"usable":   s.usable,
		"inSync":   s.inSync,
	}).Info("Configuration updated")
}
