package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	psnet "github.com/shirou/gopsutil/v4/net"
)

// InterfaceTraffic is one interface's cumulative counters plus the transfer
// rate observed since the previous sample.
type InterfaceTraffic struct {
	Name        string  `json:"name"`
	RxBytes     uint64  `json:"rx_bytes"`
	TxBytes     uint64  `json:"tx_bytes"`
	RxRateBytes float64 `json:"rx_rate_bytes"`
	TxRateBytes float64 `json:"tx_rate_bytes"`
}

// NetworkInfo is the payload of GET /v1/monitor/network.
type NetworkInfo struct {
	Interfaces []InterfaceTraffic `json:"interfaces"`
	Unit       string             `json:"unit"`
}

// networkSampler carries the previous counter readings so successive samples
// can report rates. The first sample after start reports zero rates.
type networkSampler struct {
	mu   sync.Mutex
	prev map[string]psnet.IOCountersStat
	last time.Time
}

func newNetworkSampler() *networkSampler {
	return &networkSampler{prev: make(map[string]psnet.IOCountersStat)}
}

func (s *networkSampler) sample(ctx context.Context) (interface{}, error) {
	counters, err := psnet.IOCountersWithContext(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("monitor: network counters: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(s.last).Seconds()

	ifaces := make([]InterfaceTraffic, 0, len(counters))
	for _, c := range counters {
		entry := InterfaceTraffic{
			Name:    c.Name,
			RxBytes: c.BytesRecv,
			TxBytes: c.BytesSent,
		}
		if prev, ok := s.prev[c.Name]; ok && elapsed > 0 &&
			c.BytesRecv >= prev.BytesRecv && c.BytesSent >= prev.BytesSent {
			entry.RxRateBytes = float64(c.BytesRecv-prev.BytesRecv) / elapsed
			entry.TxRateBytes = float64(c.BytesSent-prev.BytesSent) / elapsed
		}
		ifaces = append(ifaces, entry)
		s.prev[c.Name] = c
	}
	s.last = now

	return &NetworkInfo{Interfaces: ifaces, Unit: "bytes"}, nil
}
