package resources

import (
	"context"
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"github.com/scribeflow/scribeflow/internal/utils"
)

// Default timing for native teardown and swap settling
const (
	DefaultGracePeriod    = 10 * time.Second
	DefaultSettleInterval = 2 * time.Second
)

// Default memory guard thresholds, as fractions of total memory in use
const (
	DefaultWarningFraction  = 0.80
	DefaultCriticalFraction = 0.90
)

// LoadConfig carries per-load parameters through to the loader callback
type LoadConfig struct {
	ModelPath string
	Language  string
	Threads   int
	Extra     map[string]string
}

// LoaderFunc starts a native process or initializes an in-process engine for
// a class. It must not partially mutate global state on failure.
type LoaderFunc func(ctx context.Context, class Class, cfg LoadConfig) (Instance, error)

// LoadedResource is the bookkeeping record for one resident engine
type LoadedResource struct {
	Instance     Instance
	PID          int // 0 for in-process engines
	FootprintGB  float64
	LoadDuration time.Duration
	LastUsed     time.Time
}

// Metrics are process-wide monotonic counters, reset only by restart
type Metrics struct {
	Loads           uint64
	Unloads         uint64
	Swaps           uint64
	Cleanups        uint64
	TotalLoadTime   time.Duration
	TotalUnloadTime time.Duration
	CurrentMemoryGB float64
	PeakMemoryGB    float64
}

// ClassStatus is a read-only view of one loaded class
type ClassStatus struct {
	Class        Class
	PID          int
	FootprintGB  float64
	LoadDuration time.Duration
	LastUsed     time.Time
}

// Status is a point-in-time snapshot of the manager
type Status struct {
	Loaded []ClassStatus
	Memory MemoryStats
}

// Manager serializes load/unload per class and guards loading behind available
// system memory. Construct one per process at the composition root and share
// it by reference.
type Manager struct {
	mu      sync.Mutex // guards active and metrics together
	active  map[Class]*LoadedResource
	metrics Metrics

	classMu     map[Class]*sync.Mutex // serializes transitions per class
	loaders     map[Class]LoaderFunc
	constraints map[Class]Constraints
	mem         MemoryQuerier
	grace       time.Duration
	settle      time.Duration
	warnFrac    float64
	critFrac    float64
}

// Option configures a Manager
type Option func(*Manager)

// WithMemoryQuerier overrides the system memory source
func WithMemoryQuerier(q MemoryQuerier) Option {
	return func(m *Manager) { m.mem = q }
}

// WithConstraints overrides the built-in per-class constraints table
func WithConstraints(table map[Class]Constraints) Option {
	return func(m *Manager) { m.constraints = table }
}

// WithGracePeriod sets the bounded wait before force-killing a native process
func WithGracePeriod(d time.Duration) Option {
	return func(m *Manager) { m.grace = d }
}

// WithSettleInterval sets the pause after release during a swap, letting
// native memory actually return to the OS
func WithSettleInterval(d time.Duration) Option {
	return func(m *Manager) { m.settle = d }
}

// WithThresholds sets the warning and critical used-memory fractions
func WithThresholds(warning, critical float64) Option {
	return func(m *Manager) {
		m.warnFrac = warning
		m.critFrac = critical
	}
}

// NewManager creates a resource manager with one loader per class
func NewManager(loaders map[Class]LoaderFunc, opts ...Option) *Manager {
	m := &Manager{
		active:      make(map[Class]*LoadedResource),
		classMu:     make(map[Class]*sync.Mutex),
		loaders:     loaders,
		constraints: defaultConstraints,
		mem:         NewSystemQuerier(),
		grace:       DefaultGracePeriod,
		settle:      DefaultSettleInterval,
		warnFrac:    DefaultWarningFraction,
		critFrac:    DefaultCriticalFraction,
	}
	for _, opt := range opts {
		opt(m)
	}
	for class := range m.constraints {
		m.classMu[class] = &sync.Mutex{}
	}
	return m
}

func (m *Manager) constraintsFor(class Class) (Constraints, error) {
	c, ok := m.constraints[class]
	if !ok {
		return Constraints{}, fmt.Errorf("%w: %s", ErrUnknownClass, class)
	}
	return c, nil
}

func (m *Manager) classLock(class Class) *sync.Mutex {
	// classMu is fully populated at construction; constraintsFor rejects
	// unknown classes before this is reached
	return m.classMu[class]
}

// IsLoaded reports whether the class currently has a resident instance
func (m *Manager) IsLoaded(class Class) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.active[class]
	return ok
}

// Handle returns the service-level handle of the loaded instance and
// refreshes its last-used timestamp. Ownership stays with the manager.
func (m *Manager) Handle(class Class) (interface{}, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res, ok := m.active[class]
	if !ok {
		return nil, false
	}
	res.LastUsed = time.Now()
	return res.Instance.Handle, true
}

// Acquire loads the class's engine if it is not already resident. Calling it
// again while loaded just refreshes the last-used timestamp. The memory guard
// refuses the load outright when available memory is below the class minimum,
// after one best-effort cleanup pass.
func (m *Manager) Acquire(ctx context.Context, class Class, cfg LoadConfig) error {
	cons, err := m.constraintsFor(class)
	if err != nil {
		return err
	}

	if m.touchIfLoaded(class) {
		return nil
	}

	lock := m.classLock(class)
	lock.Lock()
	defer lock.Unlock()

	// Re-check under the class lock: a racing caller may have finished the
	// load while we waited
	if m.touchIfLoaded(class) {
		return nil
	}

	if err := m.checkMemoryGuard(class, cons); err != nil {
		return err
	}

	loader, ok := m.loaders[class]
	if !ok || loader == nil {
		return fmt.Errorf("no loader registered for class %s", class)
	}

	before, _ := m.mem.Query()

	start := time.Now()
	inst, err := safeLoad(ctx, loader, class, cfg)
	if err != nil {
		// Nothing was registered; the class stays unloaded
		return fmt.Errorf("failed to load %s: %w", class, err)
	}
	loadTime := time.Since(start)

	after, memErr := m.mem.Query()
	footprint := 0.0
	if memErr == nil && before.AvailableBytes > after.AvailableBytes {
		footprint = float64(before.AvailableBytes-after.AvailableBytes) / bytesPerGB
	}

	pid, _ := inst.PID()
	m.mu.Lock()
	m.active[class] = &LoadedResource{
		Instance:     inst,
		PID:          pid,
		FootprintGB:  footprint,
		LoadDuration: loadTime,
		LastUsed:     time.Now(),
	}
	m.metrics.Loads++
	m.metrics.TotalLoadTime += loadTime
	m.mu.Unlock()

	utils.LogVerbose("Loaded %s engine in %.1fs (footprint %.2f GB, pid %d)",
		class, loadTime.Seconds(), footprint, pid)
	return nil
}

// safeLoad invokes the loader and converts a panic into an error so a
// misbehaving callback cannot leave the manager inconsistent.
func safeLoad(ctx context.Context, loader LoaderFunc, class Class, cfg LoadConfig) (inst Instance, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("loader panic for class %s: %v", class, r)
		}
	}()
	return loader(ctx, class, cfg)
}

func (m *Manager) touchIfLoaded(class Class) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if res, ok := m.active[class]; ok {
		res.LastUsed = time.Now()
		return true
	}
	return false
}

// checkMemoryGuard fails fast when available memory is below the class
// minimum, trying one reclamation pass before giving up.
func (m *Manager) checkMemoryGuard(class Class, cons Constraints) error {
	stats, err := m.mem.Query()
	if err != nil {
		// Best effort: an unreadable memory source must not wedge loading
		utils.LogWarning("Memory query failed, skipping guard for %s: %v", class, err)
		return nil
	}

	if stats.AvailableGB() < cons.MinMemoryGB {
		utils.LogVerbose("Low memory before loading %s (%.1f GB available), forcing cleanup",
			class, stats.AvailableGB())
		m.ForceCleanup()

		stats, err = m.mem.Query()
		if err == nil && stats.AvailableGB() < cons.MinMemoryGB {
			return fmt.Errorf("insufficient memory for %s: %.1f GB available, %.1f GB required",
				class, stats.AvailableGB(), cons.MinMemoryGB)
		}
	}

	if stats.UsedFraction() >= m.warnFrac {
		utils.LogWarning("System memory usage at %.0f%% before loading %s",
			stats.UsedFraction()*100, class)
	}
	return nil
}

// Release unloads the class's engine. A class that is not loaded is a no-op.
// The bookkeeping record is removed even when native teardown misbehaves, so
// a stuck process can never leave the class permanently wedged.
func (m *Manager) Release(class Class) {
	lock := m.classLock(class)
	if lock == nil {
		// Unknown class can never be loaded
		return
	}
	lock.Lock()
	defer lock.Unlock()

	m.mu.Lock()
	res, ok := m.active[class]
	m.mu.Unlock()
	if !ok {
		return
	}

	start := time.Now()
	err := res.Instance.shutdown(m.grace)
	unloadTime := time.Since(start)

	m.mu.Lock()
	delete(m.active, class)
	m.metrics.Unloads++
	m.metrics.TotalUnloadTime += unloadTime
	m.mu.Unlock()

	if err != nil {
		// Fatal for this instance only; bookkeeping is already gone
		utils.LogError("Teardown of %s engine failed: %v", class, err)
	} else {
		utils.LogVerbose("Unloaded %s engine in %.1fs", class, unloadTime.Seconds())
	}

	m.reclaim()
}

// Swap releases from's engine (when loaded), waits for native memory to
// settle, forces a reclamation pass, and loads to's engine. On failure both
// classes end up unloaded; from is intentionally released first to free
// headroom for to.
func (m *Manager) Swap(ctx context.Context, from, to Class, cfg LoadConfig) error {
	if from == to {
		return fmt.Errorf("cannot swap class %s into itself", from)
	}
	if _, err := m.constraintsFor(from); err != nil {
		return err
	}
	if _, err := m.constraintsFor(to); err != nil {
		return err
	}

	if m.IsLoaded(from) {
		m.Release(from)
		time.Sleep(m.settle)
	}
	m.ForceCleanup()

	if err := m.Acquire(ctx, to, cfg); err != nil {
		return fmt.Errorf("swap %s -> %s: %w", from, to, err)
	}

	m.mu.Lock()
	m.metrics.Swaps++
	m.mu.Unlock()
	return nil
}

// ForceCleanup triggers host-level memory reclamation. Safe to call anytime.
func (m *Manager) ForceCleanup() {
	m.reclaim()
	m.mu.Lock()
	m.metrics.Cleanups++
	m.mu.Unlock()
}

func (m *Manager) reclaim() {
	runtime.GC()
	debug.FreeOSMemory()
}

// sampleMemory refreshes current/peak usage; used by the monitor loop. It
// never takes a class lock, so it cannot block behind an in-flight load.
func (m *Manager) sampleMemory() (MemoryStats, error) {
	stats, err := m.mem.Query()
	if err != nil {
		return MemoryStats{}, err
	}
	m.mu.Lock()
	m.metrics.CurrentMemoryGB = stats.UsedGB()
	if stats.UsedGB() > m.metrics.PeakMemoryGB {
		m.metrics.PeakMemoryGB = stats.UsedGB()
	}
	m.mu.Unlock()
	return stats, nil
}

// criticalFraction exposes the critical threshold to the monitor
func (m *Manager) criticalFraction() float64 {
	return m.critFrac
}

// Status assembles a snapshot of loaded classes and current memory
func (m *Manager) Status() Status {
	stats, _ := m.mem.Query()

	m.mu.Lock()
	loaded := make([]ClassStatus, 0, len(m.active))
	for class, res := range m.active {
		loaded = append(loaded, ClassStatus{
			Class:        class,
			PID:          res.PID,
			FootprintGB:  res.FootprintGB,
			LoadDuration: res.LoadDuration,
			LastUsed:     res.LastUsed,
		})
	}
	m.mu.Unlock()

	return Status{Loaded: loaded, Memory: stats}
}

// MetricsSnapshot returns a copy of the current counters
func (m *Manager) MetricsSnapshot() Metrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.metrics
}

// ReleaseAll unloads every resident class; used on shutdown
func (m *Manager) ReleaseAll() {
	m.mu.Lock()
	classes := make([]Class, 0, len(m.active))
	for class := range m.active {
		classes = append(classes, class)
	}
	m.mu.Unlock()

	for _, class := range classes {
		m.Release(class)
	}
}
