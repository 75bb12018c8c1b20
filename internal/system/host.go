package system

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// A 1080p render holds a handful of canvas-sized RGBA buffers plus the
// decoded sources; 512 MiB per concurrent job leaves room for ffmpeg.
const perJobMemory = 512 << 20

type HostStats struct {
	LogicalCPUs     int     `json:"logical_cpus" yaml:"logical_cpus"`
	CPUPercent      float64 `json:"cpu_percent" yaml:"cpu_percent"`
	TotalMemory     uint64  `json:"total_memory" yaml:"total_memory"`
	AvailableMemory uint64  `json:"available_memory" yaml:"available_memory"`
}

func ReadHostStats(ctx context.Context) (HostStats, error) {
	var s HostStats

	n, err := cpu.CountsWithContext(ctx, true)
	if err != nil {
		return s, fmt.Errorf("cpu count: %w", err)
	}
	s.LogicalCPUs = n

	if pct, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(pct) > 0 {
		s.CPUPercent = pct[0]
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return s, fmt.Errorf("memory stats: %w", err)
	}
	s.TotalMemory = vm.Total
	s.AvailableMemory = vm.Available
	return s, nil
}

// RecommendedWorkers caps the requested job concurrency by logical CPUs and
// available memory. It never returns less than one.
func RecommendedWorkers(requested int, s HostStats) int {
	n := requested
	if s.LogicalCPUs > 0 && n > s.LogicalCPUs {
		n = s.LogicalCPUs
	}
	if s.AvailableMemory > 0 {
		if byMem := int(s.AvailableMemory / perJobMemory); byMem < n {
			n = byMem
		}
	}
	if n < 1 {
		n = 1
	}
	return n
}
