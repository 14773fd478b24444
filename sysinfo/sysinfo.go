package sysinfo

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
)

const mb = 1024 * 1024

// Memory reports system memory in bytes.
type Memory struct {
	Total uint64 `json:"total"`
	Free  uint64 `json:"free"`
	Used  uint64 `json:"used"`
	// UsedPercent is Used over Total in the range 0 to 100.
	UsedPercent float64 `json:"used_percent"`
}

// TotalMB returns the total memory in mebibytes.
func (m Memory) TotalMB() float64 { return float64(m.Total) / mb }

// FreeMB returns the free memory in mebibytes.
func (m Memory) FreeMB() float64 { return float64(m.Free) / mb }

// CPU describes one logical processor.
type CPU struct {
	Model string  `json:"model"`
	MHz   float64 `json:"mhz"`
}

// Load holds the 1, 5 and 15 minute load averages.
type Load struct {
	Load1  float64 `json:"load1"`
	Load5  float64 `json:"load5"`
	Load15 float64 `json:"load15"`
}

// Stats is a single sample of host resource usage.
type Stats struct {
	Time     time.Time `json:"time"`
	Memory   Memory    `json:"memory"`
	CPUCount int       `json:"cpu_count"`
	CPUs     []CPU     `json:"cpus,omitempty"`
	// Load is nil on platforms without load averages.
	Load       *Load `json:"load,omitempty"`
	Goroutines int   `json:"goroutines"`
}

// Sample reads memory, CPU and load statistics once. Memory is required;
// CPU details and load averages are best effort and omitted when the
// platform does not provide them.
func Sample(ctx context.Context) (Stats, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("reading memory stats: %w", err)
	}

	stats := Stats{
		Time: time.Now().UTC(),
		Memory: Memory{
			Total:       vm.Total,
			Free:        vm.Available,
			Used:        vm.Used,
			UsedPercent: vm.UsedPercent,
		},
		CPUCount:   runtime.NumCPU(),
		Goroutines: runtime.NumGoroutine(),
	}

	if n, err := cpu.CountsWithContext(ctx, true); err == nil && n > 0 {
		stats.CPUCount = n
	}
	if infos, err := cpu.InfoWithContext(ctx); err == nil {
		for _, info := range infos {
			stats.CPUs = append(stats.CPUs, CPU{Model: info.ModelName, MHz: info.Mhz})
		}
	}
	if avg, err := load.AvgWithContext(ctx); err == nil {
		stats.Load = &Load{Load1: avg.Load1, Load5: avg.Load5, Load15: avg.Load15}
	}
	return stats, nil
}

// Summary formats the headline numbers of s on one line.
func (s Stats) Summary() string {
	line := fmt.Sprintf("memory %.2f/%.2f MB free, %d cpus", s.Memory.FreeMB(), s.Memory.TotalMB(), s.CPUCount)
	if s.Load != nil {
		line += fmt.Sprintf(", load %.2f %.2f %.2f", s.Load.Load1, s.Load.Load5, s.Load.Load15)
	}
	return line
}
