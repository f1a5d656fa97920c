package monitor

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strings"

	"github.com/shirou/gopsutil/v4/host"
	psnet "github.com/shirou/gopsutil/v4/net"
)

// InterfaceAddr pairs an interface with its assigned addresses.
type InterfaceAddr struct {
	Name      string   `json:"name"`
	Addresses []string `json:"addresses"`
}

// SystemInfo is the payload of GET /v1/system/information.
type SystemInfo struct {
	Hostname      string          `json:"hostname"`
	OS            string          `json:"os"`
	Platform      string          `json:"platform"`
	KernelVersion string          `json:"kernel_version"`
	Architecture  string          `json:"architecture"`
	UptimeSeconds uint64          `json:"uptime_seconds"`
	BootTime      uint64          `json:"boot_time"`
	Interfaces    []InterfaceAddr `json:"interfaces"`
}

// isLoopback reports whether the CIDR-or-plain address is a loopback.
func isLoopback(addr string) bool {
	raw := addr
	if i := strings.IndexByte(addr, '/'); i >= 0 {
		raw = addr[:i]
	}
	ip := net.ParseIP(raw)
	return ip != nil && ip.IsLoopback()
}

func sampleSystem(ctx context.Context) (interface{}, error) {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("monitor: host info: %w", err)
	}

	ifaces, err := psnet.InterfacesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("monitor: interfaces: %w", err)
	}

	addrs := make([]InterfaceAddr, 0, len(ifaces))
	for _, iface := range ifaces {
		entry := InterfaceAddr{Name: iface.Name}
		for _, a := range iface.Addrs {
			if isLoopback(a.Addr) {
				continue
			}
			entry.Addresses = append(entry.Addresses, a.Addr)
		}
		if len(entry.Addresses) > 0 {
			addrs = append(addrs, entry)
		}
	}

	sort.Slice(addrs, func(i, j int) bool { return addrs[i].Name < addrs[j].Name })

	return &SystemInfo{
		Hostname:      info.Hostname,
		OS:            info.OS,
		Platform:      fmt.Sprintf("%s %s", info.Platform, info.PlatformVersion),
		KernelVersion: info.KernelVersion,
		Architecture:  info.KernelArch,
		UptimeSeconds: info.Uptime,
		BootTime:      info.BootTime,
		Interfaces:    addrs,
	}, nil
}
