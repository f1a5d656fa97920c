// Package handlers implements the HTTP route handlers behind the admission
// pipeline. Handlers only shape responses; telemetry and docker access live
// in their own packages.
package handlers

import (
	"net/http"

	"github.com/perchhub/perch/internal/response"
)

// AgentInfo is the unauthenticated metadata served at the root path.
type AgentInfo struct {
	Name       string `json:"name"`
	Version    string `json:"version"`
	Stage      string `json:"stage"`
	Repository string `json:"repository"`
}

// Root serves agent metadata. The root path is exempt from token auth so
// consoles can discover the agent before pairing.
type Root struct {
	Info AgentInfo
}

func NewRoot(info AgentInfo) *Root {
	return &Root{Info: info}
}

func (h *Root) Handle(w http.ResponseWriter, r *http.Request) {
	response.Success(w, h.Info)
}
