package resources

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

const bytesPerGB = 1024 * 1024 * 1024

// MemoryStats is a point-in-time view of system memory
type MemoryStats struct {
	TotalBytes     uint64
	AvailableBytes uint64
	UsedBytes      uint64
}

// TotalGB returns total memory in gigabytes
func (s MemoryStats) TotalGB() float64 {
	return float64(s.TotalBytes) / bytesPerGB
}

// AvailableGB returns available memory in gigabytes
func (s MemoryStats) AvailableGB() float64 {
	return float64(s.AvailableBytes) / bytesPerGB
}

// UsedGB returns used memory in gigabytes
func (s MemoryStats) UsedGB() float64 {
	return float64(s.UsedBytes) / bytesPerGB
}

// UsedFraction returns used/total, or 0 when total is unknown
func (s MemoryStats) UsedFraction() float64 {
	if s.TotalBytes == 0 {
		return 0
	}
	return float64(s.UsedBytes) / float64(s.TotalBytes)
}

// MemoryQuerier reports system memory. Implementations must be safe for
// concurrent use.
type MemoryQuerier interface {
	Query() (MemoryStats, error)
}

// NewSystemQuerier returns the platform memory querier. On Linux it reads
// /proc/meminfo.
func NewSystemQuerier() MemoryQuerier {
	return &procMemoryQuerier{path: "/proc/meminfo"}
}

// procMemoryQuerier reads MemTotal/MemAvailable from a meminfo-format file
type procMemoryQuerier struct {
	path string
}

func (q *procMemoryQuerier) Query() (MemoryStats, error) {
	f, err := os.Open(q.path)
	if err != nil {
		return MemoryStats{}, fmt.Errorf("failed to open %s: %w", q.path, err)
	}
	defer f.Close()

	var stats MemoryStats
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		// meminfo values are in kB
		kb, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			continue
		}
		switch fields[0] {
		case "MemTotal:":
			stats.TotalBytes = kb * 1024
		case "MemAvailable:":
			stats.AvailableBytes = kb * 1024
		}
	}
	if err := scanner.Err(); err != nil {
		return MemoryStats{}, fmt.Errorf("failed to read %s: %w", q.path, err)
	}

	if stats.TotalBytes == 0 {
		return MemoryStats{}, fmt.Errorf("no MemTotal entry in %s", q.path)
	}
	if stats.AvailableBytes > stats.TotalBytes {
		stats.AvailableBytes = stats.TotalBytes
	}
	stats.UsedBytes = stats.TotalBytes - stats.AvailableBytes
	return stats, nil
}

// StaticQuerier returns fixed memory stats; used by tests and as an override
// when the platform querier is unavailable.
type StaticQuerier struct {
	Stats MemoryStats
	Err   error
}

func (q *StaticQuerier) Query() (MemoryStats, error) {
	return q.Stats, q.Err
}
