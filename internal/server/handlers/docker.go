package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/perchhub/perch/internal/docker"
	"github.com/perchhub/perch/internal/response"
)

// Docker serves container inventory, stats and lifecycle routes backed by
// the engine API on the local unix socket.
type Docker struct {
	client *docker.Client
	logger *zap.Logger
}

func NewDocker(client *docker.Client, logger *zap.Logger) *Docker {
	return &Docker{client: client, logger: logger}
}

// containerOverview mirrors the console's docker landing view: install and
// daemon state plus the full container list when the daemon is reachable.
type containerOverview struct {
	IsInstalled bool            `json:"is_installed"`
	IsRunning   bool            `json:"is_running"`
	Version     json.RawMessage `json:"version"`
	Containers  json.RawMessage `json:"containers"`
}

func (h *Docker) Containers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	overview := containerOverview{
		IsInstalled: docker.Installed(),
		Version:     json.RawMessage("null"),
		Containers:  json.RawMessage("null"),
	}

	if overview.IsInstalled && h.client.Ping(ctx) {
		overview.IsRunning = true
		if version, err := h.client.Version(ctx); err == nil {
			overview.Version = version
		}
		if containers, err := h.client.Containers(ctx); err == nil {
			overview.Containers = containers
		}
	}

	response.Success(w, overview)
}

func (h *Docker) ContainerStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.requireDaemon(ctx, w) {
		return
	}

	stats, err := h.client.ContainerStats(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.respondEngineError(w, err)
		return
	}
	response.Success(w, stats)
}

func (h *Docker) Version(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.requireDaemon(ctx, w) {
		return
	}

	version, err := h.client.Version(ctx)
	if err != nil {
		h.respondEngineError(w, err)
		return
	}
	response.Success(w, version)
}

// Action handles the lifecycle POST routes. The path's action segment is
// constrained by the router, so only known verbs reach here.
func (h *Docker) Action(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.requireDaemon(ctx, w) {
		return
	}

	id := chi.URLParam(r, "id")
	action := chi.URLParam(r, "action")
	// The console exposes "resume"; the engine calls it unpause.
	if action == "resume" {
		action = "unpause"
	}

	body, err := h.client.ContainerAction(ctx, id, action)
	if err != nil {
		h.respondEngineError(w, err)
		return
	}
	respondRaw(w, body)
}

func (h *Docker) Remove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.requireDaemon(ctx, w) {
		return
	}

	body, err := h.client.RemoveContainer(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.respondEngineError(w, err)
		return
	}
	respondRaw(w, body)
}

// respondRaw avoids rendering a typed-nil RawMessage as JSON null; lifecycle
// actions usually have no body.
func respondRaw(w http.ResponseWriter, body json.RawMessage) {
	if body == nil {
		response.Success(w, nil)
		return
	}
	response.Success(w, body)
}

func (h *Docker) requireDaemon(ctx context.Context, w http.ResponseWriter) bool {
	if !h.client.Ping(ctx) {
		response.Error(w, http.StatusServiceUnavailable, "Docker daemon is not running.")
		return false
	}
	return true
}

// respondEngineError forwards the daemon's own status and message when it
// answered with an error, and hides transport failures behind a 500.
func (h *Docker) respondEngineError(w http.ResponseWriter, err error) {
	var apiErr *docker.APIError
	if errors.As(err, &apiErr) {
		response.Error(w, apiErr.StatusCode, apiErr.Message)
		return
	}
	h.logger.Error("docker socket request failed", zap.Error(err))
	response.Error(w, http.StatusInternalServerError, "Failed to communicate with Docker socket.")
}
