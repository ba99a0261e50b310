package remote

import (
	"context"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidkik/devmirror/pkg/config"
)

func fakeServer(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/agent/info", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"tarballs": [{"os": "linux", "arch": "amd64",
			"version": "1.2.0", "fileUrl": "https://dl/agent-linux.tgz"}]}`))
	})
	mux.HandleFunc("/api/v1/version", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"version": "1.2.0", "apiVersion": "1"}`))
	})
	mux.HandleFunc("/api/v1/folders", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`[{"id": "p1", "label": "one", "path": "/src/one", "type": 1,
			"status": "Enable", "isInSync": true,
			"dataPathMap": {"serverPath": "/srv/one"}, "dataCloudSync": {}}]`))
	})
	mux.HandleFunc("/api/v1/folder", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		body, _ := ioutil.ReadAll(r.Body)
		var def config.RemoteProject
		assert.NoError(t, json.Unmarshal(body, &def))
		def.ID = "assigned-id"
		def.Status = config.StatusEnable
		json.NewEncoder(w).Encode(def)
	})
	mux.HandleFunc("/api/v1/folder/", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/folder/p1":
			assert.Equal(t, http.MethodDelete, r.Method)
			w.Write([]byte(`{}`))
		case "/api/v1/folder/sync/p1":
			assert.Equal(t, http.MethodPost, r.Method)
			w.Write([]byte(`""`))
		default:
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"status": 400, "error": "Invalid id"}`))
		}
	})
	mux.HandleFunc("/api/v1/events/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "")

		ctx := r.Context()
		wsjson.Write(ctx, conn, StateChange{ID: "p1", IsInSync: false, Status: config.StatusSyncing})
		wsjson.Write(ctx, conn, map[string]string{"type": "keepalive"})
		wsjson.Write(ctx, conn, StateChange{ID: "p1", IsInSync: true, Status: config.StatusEnable})
	})
	return httptest.NewServer(mux)
}

func TestClient(t *testing.T) {
	server := fakeServer(t)
	defer server.Close()

	client := New(server.URL + "/api/v1/")
	ctx := context.Background()

	info, err := client.GetInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, []config.AgentPackage{{
		OS: "linux", Arch: "amd64", Version: "1.2.0", URL: "https://dl/agent-linux.tgz",
	}}, info.Packages)

	version, err := client.GetVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1.2.0", version)

	projects, err := client.GetProjects(ctx)
	require.NoError(t, err)
	assert.Equal(t, []config.RemoteProject{{
		ID:          "p1",
		Label:       "one",
		Path:        "/src/one",
		Type:        config.PathMap,
		Status:      config.StatusEnable,
		IsInSync:    true,
		DataPathMap: config.PathMapData{ServerPath: "/srv/one"},
	}}, projects)

	added, err := client.AddProject(ctx, config.RemoteProject{
		Label: "two", Path: "/src/two", Type: config.CloudSync,
	})
	require.NoError(t, err)
	assert.Equal(t, "assigned-id", added.ID)
	assert.Equal(t, config.CloudSync, added.Type)

	assert.NoError(t, client.DeleteProject(ctx, "p1"))

	result, err := client.SyncProject(ctx, "p1")
	assert.NoError(t, err)
	assert.Empty(t, result)

	_, err = client.SyncProject(ctx, "unknown")
	assert.EqualError(t, err, "server error: Invalid id")
}

func TestProjectStateChanges(t *testing.T) {
	server := fakeServer(t)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	changes, err := New(server.URL+"/api/v1").ProjectStateChanges(ctx)
	require.NoError(t, err)

	var received []StateChange
	for change := range changes {
		received = append(received, change)
	}
	assert.Equal(t, []StateChange{
		{ID: "p1", IsInSync: false, Status: config.StatusSyncing},
		{ID: "p1", IsInSync: true, Status: config.StatusEnable},
	}, received)
}

func TestWsURL(t *testing.T) {
	assert.Equal(t, "ws://host:8000/api/v1", wsURL("http://host:8000/api/v1"))
	assert.Equal(t, "wss://host/api/v1", wsURL("https://host/api/v1"))
	assert.Equal(t, "ws://already", wsURL("ws://already"))
}
