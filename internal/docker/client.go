// Package docker talks to the local Docker daemon over its unix socket using
// the plain HTTP engine API. It deliberately avoids the official SDK: the
// agent only needs a handful of read and lifecycle endpoints, and the raw
// API keeps the dependency surface small.
package docker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os/exec"
	"strings"
	"time"
)

// Client issues requests against the Docker engine API via the unix socket.
type Client struct {
	socket string
	http   *http.Client
}

// NewClient builds a client for the daemon socket at the given path.
func NewClient(socket string) *Client {
	return &Client{
		socket: socket,
		http: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
					var d net.Dialer
					return d.DialContext(ctx, "unix", socket)
				},
			},
		},
	}
}

// Installed reports whether a docker binary is present on the host.
func Installed() bool {
	_, err := exec.LookPath("docker")
	return err == nil
}

// Ping reports whether the daemon answers on the socket.
func (c *Client) Ping(ctx context.Context) bool {
	body, _, err := c.get(ctx, "/_ping")
	if err != nil {
		return false
	}
	return strings.TrimSpace(string(body)) == "OK"
}

// Version returns the daemon's /version payload.
func (c *Client) Version(ctx context.Context) (json.RawMessage, error) {
	return c.getJSON(ctx, "/version")
}

// Containers returns every container on the host, running or not.
func (c *Client) Containers(ctx context.Context) (json.RawMessage, error) {
	return c.getJSON(ctx, "/containers/json?all=true")
}

// ContainerStats returns a single stats snapshot for one container.
func (c *Client) ContainerStats(ctx context.Context, id string) (json.RawMessage, error) {
	return c.getJSON(ctx, fmt.Sprintf("/containers/%s/stats?stream=false", id))
}

// APIError carries a non-2xx engine response so handlers can forward the
// daemon's own status and message.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("docker: engine returned %d: %s", e.StatusCode, e.Message)
}

// ContainerAction posts a lifecycle action (start, stop, restart, pause,
// unpause, kill) for one container. The engine usually answers 204.
func (c *Client) ContainerAction(ctx context.Context, id, action string) (json.RawMessage, error) {
	return c.send(ctx, http.MethodPost, fmt.Sprintf("/containers/%s/%s", id, action))
}

// RemoveContainer deletes a container.
func (c *Client) RemoveContainer(ctx context.Context, id string) (json.RawMessage, error) {
	return c.send(ctx, http.MethodDelete, "/containers/"+id)
}

func (c *Client) get(ctx context.Context, path string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://docker"+path, nil)
	if err != nil {
		return nil, 0, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("docker: socket request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("docker: read response: %w", err)
	}
	return body, resp.StatusCode, nil
}

func (c *Client) getJSON(ctx context.Context, path string) (json.RawMessage, error) {
	body, status, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, &APIError{StatusCode: status, Message: engineMessage(body)}
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("docker: engine returned invalid JSON for %s", path)
	}
	return json.RawMessage(body), nil
}

func (c *Client) send(ctx context.Context, method, path string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, method, "http://docker"+path, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("docker: socket request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("docker: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: engineMessage(body)}
	}
	if len(body) == 0 || !json.Valid(body) {
		return nil, nil
	}
	return json.RawMessage(body), nil
}

// engineMessage extracts the daemon's {"message": ...} error body, falling
// back to the raw text.
func engineMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	return strings.TrimSpace(string(body))
}
