package monitor

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v4/cpu"
)

// CoreUsage is the per-core usage sample exposed by the CPU route.
type CoreUsage struct {
	Core  string  `json:"core"`
	Usage float64 `json:"usage"`
}

// CPUFrequency reports the advertised and current clock in GHz. gopsutil
// exposes a single nominal frequency on most platforms, so both fields may
// carry the same value.
type CPUFrequency struct {
	MaxFrequencyGHz     float64 `json:"max_frequency_ghz"`
	CurrentFrequencyGHz float64 `json:"current_frequency_ghz"`
}

// CPUInfo is the payload of GET /v1/monitor/cpu.
type CPUInfo struct {
	CPU         string       `json:"cpu"`
	Cores       int          `json:"cores"`
	GlobalUsage float64      `json:"global_usage"`
	PerCore     []CoreUsage  `json:"per_core"`
	Frequency   CPUFrequency `json:"frequency"`
}

// sampleCPU reads brand and usage counters. Usage uses interval 0, which
// diffs against the previous read; the refresh loop's cadence provides the
// measurement window.
func sampleCPU(ctx context.Context) (interface{}, error) {
	info, err := cpu.InfoWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("monitor: cpu info: %w", err)
	}

	brand := ""
	freqGHz := 0.0
	if len(info) > 0 {
		brand = info[0].ModelName
		freqGHz = info[0].Mhz / 1000.0
	}

	perCore, err := cpu.PercentWithContext(ctx, 0, true)
	if err != nil {
		return nil, fmt.Errorf("monitor: cpu usage: %w", err)
	}
	global, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return nil, fmt.Errorf("monitor: cpu usage: %w", err)
	}

	cores := make([]CoreUsage, len(perCore))
	for i, usage := range perCore {
		cores[i] = CoreUsage{Core: fmt.Sprintf("cpu%d", i), Usage: usage}
	}

	globalUsage := 0.0
	if len(global) > 0 {
		globalUsage = global[0]
	}

	return &CPUInfo{
		CPU:         brand,
		Cores:       len(perCore),
		GlobalUsage: globalUsage,
		PerCore:     cores,
		Frequency: CPUFrequency{
			MaxFrequencyGHz:     freqGHz,
			CurrentFrequencyGHz: freqGHz,
		},
	}, nil
}
