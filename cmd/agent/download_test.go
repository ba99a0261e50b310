package agent

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidkik/devmirror/pkg/config"
)

type tarEntry struct {
	name     string
	typeflag byte
	mode     int64
	body     string
}

func makePackage(t *testing.T, entries []tarEntry) []byte {
	var buf bytes.Buffer
	gzw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gzw)
	for _, entry := range entries {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     entry.name,
			Typeflag: entry.typeflag,
			Mode:     entry.mode,
			Size:     int64(len(entry.body)),
		}))
		_, err := tw.Write([]byte(entry.body))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gzw.Close())
	return buf.Bytes()
}

func TestDownloadAgent(t *testing.T) {
	archive := makePackage(t, []tarEntry{
		{name: "bin/", typeflag: tar.TypeDir, mode: 0755},
		{name: "bin/devmirror-agent", typeflag: tar.TypeReg, mode: 0755, body: "agent binary\n"},
		{name: "README", typeflag: tar.TypeReg, mode: 0644, body: "readme\n"},
	})

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/agent-1.2.0.tar.gz", r.URL.Path)
		w.Header().Set("Content-Type", "application/x-gzip")
		_, err := w.Write(archive)
		assert.NoError(t, err)
	}))
	defer ts.Close()

	fs = afero.NewMemMapFs()
	getWorkingDirectory = func() (string, error) { return "/work", nil }

	dir, err := downloadAgent(context.Background(), config.AgentPackage{
		Version: "1.2.0",
		URL:     ts.URL + "/agent-1.2.0.tar.gz",
	})
	require.NoError(t, err)
	assert.Equal(t, "/work/devmirror-agent-1.2.0", dir)

	contents, err := afero.ReadFile(fs, "/work/devmirror-agent-1.2.0/bin/devmirror-agent")
	assert.NoError(t, err)
	assert.Equal(t, "agent binary\n", string(contents))

	contents, err = afero.ReadFile(fs, "/work/devmirror-agent-1.2.0/README")
	assert.NoError(t, err)
	assert.Equal(t, "readme\n", string(contents))
}

func TestDownloadAgentBadResponse(t *testing.T) {
	tests := []struct {
		name   string
		status int
		ctype  string
	}{
		{name: "NotFound", status: http.StatusNotFound, ctype: "application/x-gzip"},
		{name: "WrongContentType", status: http.StatusOK, ctype: "text/html"},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", test.ctype)
				w.WriteHeader(test.status)
			}))
			defer ts.Close()

			fs = afero.NewMemMapFs()
			_, err := downloadAgent(context.Background(), config.AgentPackage{URL: ts.URL})
			assert.Error(t, err)
		})
	}
}

func TestExtractPackage(t *testing.T) {
	tests := []struct {
		name     string
		entries  []tarEntry
		expFiles map[string]string
		expErr   bool
	}{
		{
			name: "TraversalIsContained",
			entries: []tarEntry{
				{name: "../../etc/passwd", typeflag: tar.TypeReg, mode: 0644, body: "x"},
			},
			expFiles: map[string]string{"/dst/etc/passwd": "x"},
		},
		{
			name: "SkipsSymlinks",
			entries: []tarEntry{
				{name: "link", typeflag: tar.TypeSymlink, mode: 0777},
				{name: "file", typeflag: tar.TypeReg, mode: 0644, body: "y"},
			},
			expFiles: map[string]string{"/dst/file": "y"},
		},
		{
			name:    "Empty",
			entries: nil,
			expErr:  true,
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			fs = afero.NewMemMapFs()
			err := extractPackage(bytes.NewReader(makePackage(t, test.entries)), "/dst")
			if test.expErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			for path, exp := range test.expFiles {
				contents, err := afero.ReadFile(fs, path)
				assert.NoError(t, err)
				assert.Equal(t, exp, string(contents))
			}
		})
	}
}
