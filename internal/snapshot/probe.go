package snapshot

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// HostProbe samples resource usage of the machine running the node.
type HostProbe interface {
	Sample(ctx context.Context) (HostStats, error)
}

// SystemProbe reads CPU and memory usage through gopsutil.
type SystemProbe struct{}

func (SystemProbe) Sample(ctx context.Context) (HostStats, error) {
	// interval 0 compares against the previous call instead of sleeping
	percents, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return HostStats{}, fmt.Errorf("cpu percent: %w", err)
	}
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return HostStats{}, fmt.Errorf("virtual memory: %w", err)
	}

	stats := HostStats{MemoryPercent: vm.UsedPercent}
	if len(percents) > 0 {
		stats.CPUPercent = percents[0]
	}
	return stats, nil
}
