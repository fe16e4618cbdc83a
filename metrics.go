package blink

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// AllocatedBytes returns the bytes handed out since the last reset, in O(1).
// Older chunks count as fully used, so until the arena has settled into a
// single chunk the figure includes the unused tail of each older chunk.
// Once one chunk serves the whole workload it is exact.
func (a *Arena) AllocatedBytes() int {
	return chainAllocated(a.root)
}

// TotalCapacity returns the usable capacity of all chunks, in O(1).
func (a *Arena) TotalCapacity() int {
	return chainCapacity(a.root)
}

// NumChunks returns the number of chunks the arena holds. It walks the chain.
func (a *Arena) NumChunks() int {
	return chainLen(a.root)
}

// ChunkSize returns the minimum chunk capacity the arena requests.
func (a *Arena) ChunkSize() int {
	return int(a.minChunkSize)
}

// Utilization returns AllocatedBytes / TotalCapacity, or 0 without chunks.
func (a *Arena) Utilization() float64 {
	return utilization(a.AllocatedBytes(), a.TotalCapacity())
}

// Metrics returns a snapshot of arena statistics.
func (a *Arena) Metrics() Metrics {
	return newMetrics(a.root, a.minChunkSize)
}

// AllocatedBytes returns the bytes handed out since the last reset. See
// Arena.AllocatedBytes for how older chunks are counted.
func (s *SyncArena) AllocatedBytes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return chainAllocated(s.root)
}

// TotalCapacity returns the usable capacity of all chunks.
func (s *SyncArena) TotalCapacity() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return chainCapacity(s.root)
}

// NumChunks returns the number of chunks the arena holds.
func (s *SyncArena) NumChunks() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return chainLen(s.root)
}

// ChunkSize returns the minimum chunk capacity the arena requests.
func (s *SyncArena) ChunkSize() int {
	return int(s.minChunkSize)
}

// Utilization returns AllocatedBytes / TotalCapacity, or 0 without chunks.
func (s *SyncArena) Utilization() float64 {
	m := s.Metrics()
	return m.Utilization
}

// Metrics returns a consistent snapshot of arena statistics.
func (s *SyncArena) Metrics() Metrics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newMetrics(s.root, s.minChunkSize)
}

// AllocatedBytes returns the bytes handed out by this local arena, not
// counting what other proxies took from the shared arena.
func (l *LocalArena) AllocatedBytes() int { return l.arena.AllocatedBytes() }

// TotalCapacity returns the capacity of the local chunks.
func (l *LocalArena) TotalCapacity() int { return l.arena.TotalCapacity() }

// NumChunks returns the number of local chunks.
func (l *LocalArena) NumChunks() int { return l.arena.NumChunks() }

// Metrics returns a snapshot of the local arena's statistics.
func (l *LocalArena) Metrics() Metrics { return l.arena.Metrics() }

// Metrics contains statistical information about an arena.
type Metrics struct {
	AllocatedBytes int     // Bytes handed out since the last reset
	TotalCapacity  int     // Usable bytes across all chunks
	NumChunks      int     // Chunks in the chain
	ChunkSize      int     // Minimum chunk capacity
	Utilization    float64 // AllocatedBytes / TotalCapacity (0.0-1.0)
}

func newMetrics(root *chunk, minChunkSize uintptr) Metrics {
	m := Metrics{
		AllocatedBytes: chainAllocated(root),
		TotalCapacity:  chainCapacity(root),
		NumChunks:      chainLen(root),
		ChunkSize:      int(minChunkSize),
	}
	m.Utilization = utilization(m.AllocatedBytes, m.TotalCapacity)
	return m
}

func utilization(used, capacity int) float64 {
	if capacity == 0 {
		return 0
	}
	return float64(used) / float64(capacity)
}

// String renders the snapshot with human readable byte counts.
func (m Metrics) String() string {
	return fmt.Sprintf("allocated %s of %s in %d chunks (%.1f%%), min chunk %s",
		humanize.IBytes(uint64(m.AllocatedBytes)),
		humanize.IBytes(uint64(m.TotalCapacity)),
		m.NumChunks,
		m.Utilization*100,
		humanize.IBytes(uint64(m.ChunkSize)),
	)
}
