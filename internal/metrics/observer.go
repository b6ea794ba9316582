package metrics

import (
	"context"
	"time"

	gopsproc "github.com/shirou/gopsutil/v4/process"
)

// Sample is one instance's resource usage at a point in time (C13).
type Sample struct {
	Name  string
	Index int
	PID   int32
}

// Observe samples CPU percent and RSS for each pid in samples and publishes
// them as gauges. It never blocks the supervisory lock: callers take a
// read-only snapshot of live instances before calling Observe. A PID that has
// already been reaped is silently skipped; sampling is best-effort.
func Observe(ctx context.Context, samples []Sample) {
	for _, s := range samples {
		p, err := gopsproc.NewProcess(s.PID)
		if err != nil {
			continue
		}
		if cpu, err := p.CPUPercentWithContext(ctx); err == nil {
			SetProcessCPUPercent(s.Name, s.Index, cpu)
		}
		if mem, err := p.MemoryInfoWithContext(ctx); err == nil && mem != nil {
			SetProcessRSSBytes(s.Name, s.Index, mem.RSS)
		}
	}
}

// RunObserver ticks once per interval, calling collect to obtain a fresh
// snapshot of live instances and then sampling them, until ctx is cancelled.
func RunObserver(ctx context.Context, interval time.Duration, collect func() []Sample) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			Observe(ctx, collect())
		}
	}
}
