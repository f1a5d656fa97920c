package monitor

import (
	"context"

	"go.uber.org/zap"

	"github.com/perchhub/perch/internal/config"
)

// Monitor bundles the host telemetry collectors consumed by the API routes.
type Monitor struct {
	CPU     *Collector
	Memory  *Collector
	Storage *Collector
	Network *Collector
	System  *Collector
}

// New builds collectors for every telemetry source. base should live for the
// whole process; canceling it stops any running refresh loops.
func New(base context.Context, cfg config.MonitorConfig, logger *zap.Logger) *Monitor {
	refresh := cfg.RefreshInterval
	idle := cfg.IdleTimeout

	return &Monitor{
		CPU:     NewCollector(base, "cpu", refresh, idle, logger, sampleCPU),
		Memory:  NewCollector(base, "memory", refresh, idle, logger, sampleMemory),
		Storage: NewCollector(base, "storage", refresh, idle, logger, sampleStorage),
		Network: NewCollector(base, "network", refresh, idle, logger, newNetworkSampler().sample),
		System:  NewCollector(base, "system", refresh, idle, logger, sampleSystem),
	}
}
