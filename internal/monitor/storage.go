package monitor

import (
	"context"
	"fmt"
	"strings"

	"github.com/shirou/gopsutil/v4/disk"
)

// MountInfo describes one mounted filesystem.
type MountInfo struct {
	Device     string  `json:"device"`
	MountPoint string  `json:"mount_point"`
	FSType     string  `json:"fs_type"`
	Total      uint64  `json:"total"`
	Used       uint64  `json:"used"`
	UsedPct    float64 `json:"used_percent"`
}

// StorageInfo is the payload of GET /v1/monitor/storage.
type StorageInfo struct {
	Mounts []MountInfo `json:"mounts"`
	Unit   string      `json:"unit"`
}

func sampleStorage(ctx context.Context) (interface{}, error) {
	parts, err := disk.PartitionsWithContext(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("monitor: partitions: %w", err)
	}

	mounts := make([]MountInfo, 0, len(parts))
	for _, p := range parts {
		if skipMount(p.Mountpoint) {
			continue
		}
		usage, err := disk.UsageWithContext(ctx, p.Mountpoint)
		if err != nil {
			continue
		}
		mounts = append(mounts, MountInfo{
			Device:     p.Device,
			MountPoint: p.Mountpoint,
			FSType:     p.Fstype,
			Total:      usage.Total,
			Used:       usage.Used,
			UsedPct:    usage.UsedPercent,
		})
	}

	return &StorageInfo{Mounts: mounts, Unit: "bytes"}, nil
}

// skipMount filters pseudo and volatile mount points that only add noise to
// the console's storage view.
func skipMount(mountPoint string) bool {
	for _, prefix := range []string{"/proc", "/sys", "/dev", "/run", "/boot/efi"} {
		if strings.HasPrefix(mountPoint, prefix) {
			return true
		}
	}
	return false
}
