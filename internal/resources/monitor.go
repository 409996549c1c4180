package resources

import (
	"sync"
	"time"

	"github.com/scribeflow/scribeflow/internal/utils"
)

// DefaultMonitorInterval is the default memory sampling period
const DefaultMonitorInterval = 30 * time.Second

// Monitor periodically samples system memory, keeps current/peak metrics
// fresh, and forces a cleanup pass when usage crosses the critical threshold.
// It runs on its own goroutine and is stopped cooperatively.
type Monitor struct {
	manager  *Manager
	interval time.Duration

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
}

// NewMonitor creates a monitor for the given manager
func NewMonitor(manager *Manager, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = DefaultMonitorInterval
	}
	return &Monitor{
		manager:  manager,
		interval: interval,
	}
}

// Start launches the sampling loop. Starting an already-running monitor is a
// no-op.
func (mo *Monitor) Start() {
	mo.mu.Lock()
	defer mo.mu.Unlock()
	if mo.running {
		return
	}
	mo.stop = make(chan struct{})
	mo.done = make(chan struct{})
	mo.running = true
	go mo.loop(mo.stop, mo.done)
	utils.LogDebug("Memory monitor started (interval %s)", mo.interval)
}

// Stop signals the loop to exit and waits up to timeout for it to finish.
// Returns false if the loop did not stop in time.
func (mo *Monitor) Stop(timeout time.Duration) bool {
	mo.mu.Lock()
	if !mo.running {
		mo.mu.Unlock()
		return true
	}
	close(mo.stop)
	done := mo.done
	mo.running = false
	mo.mu.Unlock()

	select {
	case <-done:
		utils.LogDebug("Memory monitor stopped")
		return true
	case <-time.After(timeout):
		utils.LogWarning("Memory monitor did not stop within %s", timeout)
		return false
	}
}

// Running reports whether the sampling loop is active
func (mo *Monitor) Running() bool {
	mo.mu.Lock()
	defer mo.mu.Unlock()
	return mo.running
}

func (mo *Monitor) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(mo.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			mo.sample()
		}
	}
}

// sample takes one measurement. Failures are logged and swallowed; a broken
// memory source must never crash the host process.
func (mo *Monitor) sample() {
	defer func() {
		if r := recover(); r != nil {
			utils.LogError("Memory monitor recovered from panic: %v", r)
		}
	}()

	stats, err := mo.manager.sampleMemory()
	if err != nil {
		utils.LogDebug("Memory sample failed: %v", err)
		return
	}

	if stats.UsedFraction() >= mo.manager.criticalFraction() {
		utils.LogWarning("Memory usage critical (%.0f%%), forcing cleanup", stats.UsedFraction()*100)
		mo.manager.ForceCleanup()
	}
}
