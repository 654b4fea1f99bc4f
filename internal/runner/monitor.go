package runner

import (
	"context"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/signalnine/eegmark/internal/result"
)

// DefaultInterval is how often the monitor samples memory.
const DefaultInterval = 500 * time.Millisecond

// Usage is what a Monitor observed between Start and Stop.
type Usage struct {
	MaxMemoryBytes uint64
	// CPUPercent is total utilisation across all cpus over the window.
	CPUPercent float64
}

// Monitor samples system-wide memory use while a benchmark runs.
type Monitor struct {
	interval time.Duration

	mu     sync.Mutex
	maxMem uint64
	cancel context.CancelFunc
	done   chan struct{}
}

func NewMonitor(interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Monitor{interval: interval}
}

func (m *Monitor) Start(ctx context.Context) {
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	// Primes the cpu counters so the Stop call measures this window.
	cpu.PercentWithContext(ctx, 0, false)
	m.sample(ctx)
	go func() {
		defer close(m.done)
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.sample(ctx)
			}
		}
	}()
}

func (m *Monitor) sample(ctx context.Context) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return
	}
	m.mu.Lock()
	if vm.Used > m.maxMem {
		m.maxMem = vm.Used
	}
	m.mu.Unlock()
}

// Stop ends sampling and returns the usage seen since Start.
func (m *Monitor) Stop() Usage {
	if m.cancel == nil {
		return Usage{}
	}
	m.cancel()
	<-m.done
	m.sample(context.Background())

	var u Usage
	if pct, err := cpu.PercentWithContext(context.Background(), 0, false); err == nil && len(pct) > 0 {
		u.CPUPercent = pct[0]
	}
	m.mu.Lock()
	u.MaxMemoryBytes = m.maxMem
	m.mu.Unlock()
	return u
}

// HostInfo describes the machine trials run on. Fields that cannot be read
// are left empty.
func HostInfo(ctx context.Context) result.Host {
	var h result.Host
	if info, err := host.InfoWithContext(ctx); err == nil {
		h.Hostname = info.Hostname
		h.OS = info.OS
		h.Platform = info.Platform
		h.Kernel = info.KernelVersion
	}
	if n, err := cpu.CountsWithContext(ctx, true); err == nil {
		h.CPUs = n
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		h.TotalMemory = vm.Total
	}
	return h
}
