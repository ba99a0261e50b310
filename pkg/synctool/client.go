// Package synctool talks to the local file synchronization daemon over its
// REST API.
package synctool

//go:generate mockery -name Client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"

	"github.com/sidkik/devmirror/pkg/errors"
	"github.com/sidkik/devmirror/pkg/retry"
)

// ServiceName is the name used in connection errors.
const ServiceName = "sync tool local daemon"

const requestTimeout = 10 * time.Second

// Status is reported every time a connection to the daemon is established.
type Status struct {
	// NodeID is the identifier the daemon uses for this machine.
	NodeID string `json:"myID"`

	// HomeDir is what `~` expands to on this machine.
	HomeDir string `json:"tilde"`
}

// Event is either a Status or an error. Errors are always
// errors.ConnectionError values.
type Event struct {
	Status Status
	Err    error
}

// Record is a folder shared by the daemon.
type Record struct {
	ID    string
	Label string
	Path  string

	// ServerNodeID is the node id of the remote peer the folder is shared
	// with. It's only used when adding a folder.
	ServerNodeID string
}

// Client is used for communicating with the local sync daemon.
type Client interface {
	// Connect keeps trying to reach the daemon at `address` every
	// `retrySeconds`. An event is sent whenever the connection comes up or
	// goes down. The channel is closed once ctx is cancelled. The other
	// methods talk to the address of the most recent Connect.
	Connect(ctx context.Context, retrySeconds int, address string) <-chan Event

	GetProjects(ctx context.Context) ([]Record, error)
	AddProject(ctx context.Context, record Record) error
	DeleteProject(ctx context.Context, id string) error
}

type restClient struct {
	httpClient *http.Client
	clock      clockwork.Clock

	lock    sync.Mutex
	baseURL string
}

// New creates a Client.
func New() Client {
	return &restClient{
		httpClient: &http.Client{Timeout: requestTimeout},
		clock:      clockwork.NewRealClock(),
	}
}

func (c *restClient) Connect(ctx context.Context, retrySeconds int, address string) <-chan Event {
	c.lock.Lock()
	c.baseURL = strings.TrimSuffix(address, "/")
	c.lock.Unlock()

	events := make(chan Event)
	go func() {
		defer close(events)

		send := func(ev Event) {
			select {
			case events <- ev:
			case <-ctx.Done():
			}
		}

		var last Status
		attempt := func(ctx context.Context) error {
			var sts Status
			if err := c.do(ctx, address, http.MethodGet, "/rest/system/status", nil, &sts); err != nil {
				return err
			}
			last = sts
			return nil
		}

		retry.Poll(ctx, c.clock, retry.Interval(retrySeconds), attempt, func(err error) {
			if err != nil {
				log.WithError(err).WithField("address", address).Debug("Sync tool connection lost")
				send(Event{Err: err})
				return
			}
			log.WithField("nodeID", last.NodeID).Debug("Connected to sync tool")
			send(Event{Status: last})
		})
	}()
	return events
}

type folderDevice struct {
	DeviceID string `json:"deviceID"`
}

type folder struct {
	ID      string         `json:"id"`
	Label   string         `json:"label"`
	Path    string         `json:"path"`
	Type    string         `json:"type,omitempty"`
	Devices []folderDevice `json:"devices,omitempty"`
}

func (c *restClient) GetProjects(ctx context.Context) ([]Record, error) {
	var folders []folder
	if err := c.do(ctx, c.address(), http.MethodGet, "/rest/config/folders", nil, &folders); err != nil {
		return nil, errors.WithContext(err, "list folders")
	}

	records := make([]Record, 0, len(folders))
	for _, f := range folders {
		records = append(records, Record{ID: f.ID, Label: f.Label, Path: f.Path})
	}
	return records, nil
}

func (c *restClient) AddProject(ctx context.Context, record Record) error {
	if record.ID == "" {
		return errors.MissingFieldError{Field: "id"}
	}

	f := folder{
		ID:    record.ID,
		Label: record.Label,
		Path:  record.Path,
		Type:  "sendreceive",
	}
	if record.ServerNodeID != "" {
		f.Devices = []folderDevice{{DeviceID: record.ServerNodeID}}
	}
	if err := c.do(ctx, c.address(), http.MethodPost, "/rest/config/folders", f, nil); err != nil {
		return errors.WithContext(err, fmt.Sprintf("add folder %q", record.ID))
	}
	return nil
}

func (c *restClient) DeleteProject(ctx context.Context, id string) error {
	path := "/rest/config/folders/" + url.PathEscape(id)
	if err := c.do(ctx, c.address(), http.MethodDelete, path, nil, nil); err != nil {
		return errors.WithContext(err, fmt.Sprintf("delete folder %q", id))
	}
	return nil
}

func (c *restClient) address() string {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.baseURL
}

func (c *restClient) do(ctx context.Context, baseURL, method, path string, body, out interface{}) error {
	if baseURL == "" {
		return errors.ConnectionError{
			Service: ServiceName,
			Kind:    errors.KindGeneric,
			Err:     errors.New("not connected"),
		}
	}

	var reqBody io.Reader
	if body != nil {
		jsonBytes, err := json.Marshal(body)
		if err != nil {
			return errors.WithContext(err, "marshal")
		}
		reqBody = bytes.NewReader(jsonBytes)
	}

	req, err := http.NewRequest(method, strings.TrimSuffix(baseURL, "/")+path, reqBody)
	if err != nil {
		return errors.WithContext(err, "create request")
	}
	req = req.WithContext(ctx)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classify(err)
	}
	defer resp.Body.Close()

	respBody, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return errors.WithContext(err, "read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.ConnectionError{
			Service: ServiceName,
			Kind:    errors.KindGeneric,
			Err: errors.New("%s %s: unexpected status %d: %s",
				method, path, resp.StatusCode, strings.TrimSpace(string(respBody))),
		}
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return errors.WithContext(err, "unmarshal response")
	}
	return nil
}

// classify marks failures to reach the daemon's socket as unreachable.
// Every error from http.Client.Do is a *url.Error, so only the underlying
// *net.OpError (refused or timed out dial) counts.
func classify(err error) error {
	kind := errors.KindGeneric
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		kind = errors.KindUnreachable
	}
	return errors.ConnectionError{Service: ServiceName, Kind: kind, Err: err}
}
