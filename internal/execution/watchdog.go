package execution

import (
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// Heartbeat is the scheduler worker's last-seen-alive signal plus basic
// host resource stats, grounded on the sibling dashboard's
// getSystemStats (CPU/RAM via gopsutil) — there the numbers feed an LED
// display, here they feed a health probe that can detect a wedged
// worker: if LastTick stops advancing, the worker crashed without an
// observable panic (the run loop only touches state under its own
// mutex, so a deadlock elsewhere will not corrupt the scheduler, but it
// will stop ticks).
type Heartbeat struct {
	LastTick    time.Time
	PendingJobs int
	CPUPercent  float64
	RAMPercent  float64
}

// Healthy reports whether the scheduler has ticked within the given
// staleness budget.
func (h Heartbeat) Healthy(staleAfter time.Duration) bool {
	return !h.LastTick.IsZero() && time.Since(h.LastTick) < staleAfter
}

// Heartbeat snapshots the scheduler's liveness and host resource usage.
// The worker updates lastTick on every poll; this method never blocks
// the worker itself, it only reads the timestamp under lock.
func (s *Scheduler) Heartbeat() Heartbeat {
	s.mu.Lock()
	lastTick := s.lastTick
	pending := s.queue.Len()
	s.mu.Unlock()

	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil || len(cpuPercent) == 0 {
		cpuPercent = []float64{0}
	}

	var ramPercent float64
	if memStat, err := mem.VirtualMemory(); err == nil {
		ramPercent = memStat.UsedPercent
	}

	return Heartbeat{
		LastTick:    lastTick,
		PendingJobs: pending,
		CPUPercent:  cpuPercent[0],
		RAMPercent:  ramPercent,
	}
}
