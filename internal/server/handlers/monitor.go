package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/perchhub/perch/internal/monitor"
	"github.com/perchhub/perch/internal/response"
)

// Monitor serves the cached host telemetry routes.
type Monitor struct {
	mon    *monitor.Monitor
	logger *zap.Logger
}

func NewMonitor(mon *monitor.Monitor, logger *zap.Logger) *Monitor {
	return &Monitor{mon: mon, logger: logger}
}

func (h *Monitor) serve(w http.ResponseWriter, r *http.Request, name string, c *monitor.Collector) {
	value, err := c.Get(r.Context())
	if err != nil {
		h.logger.Error("telemetry sample failed",
			zap.String("collector", name),
			zap.Error(err))
		response.InternalError(w)
		return
	}
	response.Success(w, value)
}

func (h *Monitor) CPU(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "cpu", h.mon.CPU)
}

func (h *Monitor) Memory(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "memory", h.mon.Memory)
}

func (h *Monitor) Storage(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "storage", h.mon.Storage)
}

func (h *Monitor) Network(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "network", h.mon.Network)
}

func (h *Monitor) System(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "system", h.mon.System)
}
