// Package remote is the client for the remote build server's REST API.
package remote

//go:generate mockery -name Client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sidkik/devmirror/pkg/config"
	"github.com/sidkik/devmirror/pkg/errors"
)

const requestTimeout = 1 * time.Minute

// Info describes what the server offers to clients.
type Info struct {
	Packages []config.AgentPackage
}

// StateChange is pushed by the server whenever the synchronization state of
// a project changes.
type StateChange struct {
	ID       string               `json:"id"`
	IsInSync bool                 `json:"isInSync"`
	Status   config.ProjectStatus `json:"status"`
}

// Client is used for communicating with the remote server.
type Client interface {
	GetInfo(ctx context.Context) (Info, error)
	GetVersion(ctx context.Context) (string, error)
	GetProjects(ctx context.Context) ([]config.RemoteProject, error)
	AddProject(ctx context.Context, def config.RemoteProject) (config.RemoteProject, error)
	DeleteProject(ctx context.Context, id string) error
	SyncProject(ctx context.Context, id string) (string, error)

	// ProjectStateChanges streams state changes until ctx is cancelled or
	// the connection drops, at which point the channel is closed.
	ProjectStateChanges(ctx context.Context) (<-chan StateChange, error)
}

type httpClient struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for the server API rooted at `baseURL`, e.g.
// "http://builder:8000/api/v1".
func New(baseURL string) Client {
	return httpClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

type agentTarball struct {
	OS      string `json:"os"`
	Arch    string `json:"arch"`
	Version string `json:"version"`
	FileURL string `json:"fileUrl"`
}

func (c httpClient) GetInfo(ctx context.Context) (Info, error) {
	var resp struct {
		Tarballs []agentTarball `json:"tarballs"`
	}
	if err := c.do(ctx, http.MethodGet, "/agent/info", nil, &resp); err != nil {
		return Info{}, err
	}

	info := Info{Packages: []config.AgentPackage{}}
	for _, tb := range resp.Tarballs {
		info.Packages = append(info.Packages, config.AgentPackage{
			OS:      tb.OS,
			Arch:    tb.Arch,
			Version: tb.Version,
			URL:     tb.FileURL,
		})
	}
	return info, nil
}

func (c httpClient) GetVersion(ctx context.Context) (string, error) {
	var resp struct {
		Version string `json:"version"`
	}
	if err := c.do(ctx, http.MethodGet, "/version", nil, &resp); err != nil {
		return "", err
	}
	return resp.Version, nil
}

func (c httpClient) GetProjects(ctx context.Context) ([]config.RemoteProject, error) {
	var projects []config.RemoteProject
	if err := c.do(ctx, http.MethodGet, "/folders", nil, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

func (c httpClient) AddProject(ctx context.Context, def config.RemoteProject) (config.RemoteProject, error) {
	var added config.RemoteProject
	if err := c.do(ctx, http.MethodPost, "/folder", def, &added); err != nil {
		return config.RemoteProject{}, err
	}
	return added, nil
}

func (c httpClient) DeleteProject(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/folder/"+url.PathEscape(id), nil, nil)
}

func (c httpClient) SyncProject(ctx context.Context, id string) (string, error) {
	var result string
	if err := c.do(ctx, http.MethodPost, "/folder/sync/"+url.PathEscape(id), nil, &result); err != nil {
		return "", err
	}
	return result, nil
}

// apiError is the body returned by the server on failure.
type apiError struct {
	Status int    `json:"status"`
	Error  string `json:"error"`
}

func (c httpClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		jsonBytes, err := json.Marshal(body)
		if err != nil {
			return errors.WithContext(err, "marshal")
		}
		reqBody = bytes.NewReader(jsonBytes)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reqBody)
	if err != nil {
		return errors.WithContext(err, "create request")
	}
	req = req.WithContext(ctx)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.WithContext(err, fmt.Sprintf("%s %s", method, path))
	}
	defer resp.Body.Close()

	respBody, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return errors.WithContext(err, "read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr apiError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error != "" {
			return errors.New("server error: %s", apiErr.Error)
		}
		return errors.New("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return errors.WithContext(err, "unmarshal response")
	}
	return nil
}
