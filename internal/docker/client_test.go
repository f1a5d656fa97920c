package docker

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDaemon serves the handler over a unix socket the way dockerd does.
func fakeDaemon(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	socket := filepath.Join(t.TempDir(), "docker.sock")
	ln, err := net.Listen("unix", socket)
	require.NoError(t, err)

	srv := httptest.NewUnstartedServer(handler)
	srv.Listener.Close()
	srv.Listener = ln
	srv.Start()
	t.Cleanup(srv.Close)

	return NewClient(socket)
}

func TestPing(t *testing.T) {
	c := fakeDaemon(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/_ping", r.URL.Path)
		w.Write([]byte("OK"))
	}))
	assert.True(t, c.Ping(context.Background()))
}

func TestPingDaemonDown(t *testing.T) {
	c := NewClient(filepath.Join(t.TempDir(), "nonexistent.sock"))
	assert.False(t, c.Ping(context.Background()))
}

func TestContainersReturnsRawJSON(t *testing.T) {
	c := fakeDaemon(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/containers/json", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("all"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"Id":"abc","State":"running"}]`))
	}))

	raw, err := c.Containers(context.Background())
	require.NoError(t, err)

	var containers []map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &containers))
	assert.Equal(t, "abc", containers[0]["Id"])
}

func TestContainerStatsPath(t *testing.T) {
	c := fakeDaemon(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/containers/abc123/stats", r.URL.Path)
		assert.Equal(t, "false", r.URL.Query().Get("stream"))
		w.Write([]byte(`{"cpu_stats":{}}`))
	}))

	_, err := c.ContainerStats(context.Background(), "abc123")
	assert.NoError(t, err)
}

func TestContainerActionForwardsEngineError(t *testing.T) {
	c := fakeDaemon(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/containers/abc/start", r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"No such container: abc"}`))
	}))

	_, err := c.ContainerAction(context.Background(), "abc", "start")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "No such container: abc", apiErr.Message)
}

func TestContainerActionNoContent(t *testing.T) {
	c := fakeDaemon(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	raw, err := c.ContainerAction(context.Background(), "abc", "stop")
	require.NoError(t, err)
	assert.Nil(t, raw)
}

func TestRemoveContainer(t *testing.T) {
	c := fakeDaemon(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/containers/abc", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))

	_, err := c.RemoveContainer(context.Background(), "abc")
	assert.NoError(t, err)
}
