// Package alert defines how the core reports problems to the user.
package alert

import (
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/sidkik/devmirror/pkg/config"
)

// Kind identifies the kind of alert so that user interfaces can render
// structured alerts differently from plain text.
type Kind string

const (
	// KindGeneric alerts only carry a message.
	KindGeneric Kind = "generic"

	// KindAgentNotInstalled is raised when the local agent can't be reached
	// at all.
	KindAgentNotInstalled Kind = "agent-not-installed"

	// KindSyncToolUnreachable is raised when the local sync daemon can't be
	// reached.
	KindSyncToolUnreachable Kind = "sync-tool-unreachable"
)

// Link is a pointer to documentation or a download, shown alongside an
// alert.
type Link struct {
	Title string
	URL   string
}

// Alert is a problem that should be shown to the user.
type Alert struct {
	Kind    Kind
	Message string

	// Hint is a one line suggestion of how to fix the problem.
	Hint  string
	Links []Link
}

// String renders the alert as plain text.
func (a Alert) String() string {
	var sb strings.Builder
	sb.WriteString(a.Message)
	if a.Hint != "" {
		sb.WriteString("\n")
		sb.WriteString(a.Hint)
	}
	for _, link := range a.Links {
		fmt.Fprintf(&sb, "\n  - %s: %s", link.Title, link.URL)
	}
	return sb.String()
}

// Sink receives alerts. Raise must not block for long.
type Sink interface {
	Raise(Alert)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Alert)

// Raise implements Sink.Raise.
func (f SinkFunc) Raise(a Alert) {
	f(a)
}

// LogSink writes alerts to a logrus logger.
type LogSink struct {
	Logger log.FieldLogger
}

// Raise implements Sink.Raise.
func (s LogSink) Raise(a Alert) {
	logger := s.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}
	logger.WithField("kind", a.Kind).Error(a.String())
}

// Generic creates a plain alert.
func Generic(format string, args ...interface{}) Alert {
	return Alert{Kind: KindGeneric, Message: fmt.Sprintf(format, args...)}
}

const installDocsRoot = "https://docs.devmirror.dev/install/"

// AgentNotInstalled creates the alert raised when nothing answers at the
// agent's address. If a package of the agent is available for the current
// platform, a link to it is included.
func AgentNotInstalled(err error, goos string, pkg *config.AgentPackage) Alert {
	a := Alert{
		Kind:    KindAgentNotInstalled,
		Message: err.Error(),
		Hint:    "You may need to install and start the devmirror agent:",
	}
	switch goos {
	case "linux":
		a.Links = append(a.Links, Link{"On Linux", installDocsRoot + "linux"})
	case "darwin":
		a.Links = append(a.Links, Link{"On macOS", installDocsRoot + "other-platforms"})
	case "windows":
		a.Links = append(a.Links, Link{"On Windows", installDocsRoot + "other-platforms"})
	default:
		a.Links = append(a.Links,
			Link{"On Linux", installDocsRoot + "linux"},
			Link{"On other platforms", installDocsRoot + "other-platforms"})
	}
	if pkg != nil {
		a.Links = append(a.Links, Link{
			Title: fmt.Sprintf("Download agent %s (%s/%s)", pkg.Version, pkg.OS, pkg.Arch),
			URL:   pkg.URL,
		})
	}
	return a
}

// SyncToolUnreachable creates the alert raised when nothing answers at the
// sync tool's address.
func SyncToolUnreachable(err error) Alert {
	return Alert{
		Kind:    KindSyncToolUnreachable,
		Message: err.Error(),
		Hint:    "Please check that the local devmirror agent is running.",
	}
}
