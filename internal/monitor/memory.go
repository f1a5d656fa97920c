package monitor

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v4/mem"
)

// MemoryInfo is the payload of GET /v1/monitor/memory. All values in bytes.
type MemoryInfo struct {
	Total     uint64 `json:"total"`
	Used      uint64 `json:"used"`
	TotalSwap uint64 `json:"total_swap"`
	UsedSwap  uint64 `json:"used_swap"`
	Unit      string `json:"unit"`
}

func sampleMemory(ctx context.Context) (interface{}, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("monitor: virtual memory: %w", err)
	}
	swap, err := mem.SwapMemoryWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("monitor: swap memory: %w", err)
	}

	return &MemoryInfo{
		Total:     vm.Total,
		Used:      vm.Used,
		TotalSwap: swap.Total,
		UsedSwap:  swap.Used,
		Unit:      "bytes",
	}, nil
}
