package resources

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonitor_StartStop(t *testing.T) {
	m := newTestManager(t, nil)
	mo := NewMonitor(m, 10*time.Millisecond)

	assert.False(t, mo.Running())

	mo.Start()
	assert.True(t, mo.Running())

	// Starting again must be a no-op
	mo.Start()
	assert.True(t, mo.Running())

	assert.True(t, mo.Stop(time.Second))
	assert.False(t, mo.Running())

	// Stopping a stopped monitor is fine
	assert.True(t, mo.Stop(time.Second))
}

func TestMonitor_UpdatesMemoryMetrics(t *testing.T) {
	m := newTestManager(t, nil)
	mo := NewMonitor(m, 5*time.Millisecond)

	mo.Start()
	defer mo.Stop(time.Second)

	require.Eventually(t, func() bool {
		return m.MetricsSnapshot().CurrentMemoryGB > 0
	}, time.Second, 5*time.Millisecond)

	metrics := m.MetricsSnapshot()
	assert.Equal(t, 8.0, metrics.CurrentMemoryGB)
	assert.Equal(t, 8.0, metrics.PeakMemoryGB)
}

func TestMonitor_TriggersCleanupWhenCritical(t *testing.T) {
	critical := &StaticQuerier{Stats: MemoryStats{
		TotalBytes:     16 * testGB,
		AvailableBytes: 1 * testGB,
		UsedBytes:      15 * testGB,
	}}
	m := newTestManager(t, nil, WithMemoryQuerier(critical))
	mo := NewMonitor(m, 5*time.Millisecond)

	mo.Start()
	defer mo.Stop(time.Second)

	require.Eventually(t, func() bool {
		return m.MetricsSnapshot().Cleanups > 0
	}, time.Second, 5*time.Millisecond)
}

func TestMonitor_SurvivesBrokenMemorySource(t *testing.T) {
	broken := &StaticQuerier{Err: assert.AnError}
	m := newTestManager(t, nil, WithMemoryQuerier(broken))
	mo := NewMonitor(m, 5*time.Millisecond)

	mo.Start()
	time.Sleep(30 * time.Millisecond)

	assert.True(t, mo.Running())
	assert.True(t, mo.Stop(time.Second))
}

func TestNewMonitor_DefaultInterval(t *testing.T) {
	mo := NewMonitor(newTestManager(t, nil), 0)
	assert.Equal(t, DefaultMonitorInterval, mo.interval)
}
