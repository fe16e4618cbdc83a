package blink

import "sync/atomic"

// LocalArena is a single-owner arena that takes its chunks from a SyncArena
// instead of a general allocator. Each goroutine can hold its own LocalArena
// and allocate without any locking; the shared arena is touched once per
// chunk.
//
// Chunks never go back to the shared arena: Reset and Close abandon them, and
// their memory is reclaimed when the shared arena itself is reset. Every
// LocalArena must be closed before its SyncArena is reset or released.
type LocalArena struct {
	arena  Arena
	shared *SyncArena
	closed atomic.Bool
}

// Local returns a LocalArena drawing chunks from s. Its minimum chunk size
// defaults to zero, so it starts from the smallest power-of-two block that
// fits the first request and doubles from there; pass WithChunkSize to seed
// it. WithAllocator has no effect: the upstream is always s.
func (s *SyncArena) Local(opts ...Option) *LocalArena {
	o := buildOptions(0, append([]Option{WithLogger(s.log)}, opts...))
	o.upstream = s
	l := &LocalArena{shared: s}
	l.arena.init(o)
	s.locals.Add(1)
	return l
}

// Shared returns the SyncArena l draws its chunks from.
func (l *LocalArena) Shared() *SyncArena { return l.shared }

// Allocate returns layout.Size bytes aligned to layout.Align, taking a new chunk from
// the shared arena when the current one is full.
func (l *LocalArena) Allocate(layout Layout) ([]byte, error) {
	debugAssert(!l.closed.Load(), "LocalArena used after Close")
	return l.arena.Allocate(layout)
}

// AllocBytes allocates n bytes with byte alignment.
func (l *LocalArena) AllocBytes(n int) ([]byte, error) {
	layout, err := bytesLayout(n)
	if err != nil {
		return nil, err
	}
	return l.Allocate(layout)
}

// AllocFast tries to serve layout from the current local chunk.
func (l *LocalArena) AllocFast(layout Layout) []byte {
	return l.arena.AllocFast(layout)
}

// Resize changes the size of b, in place when it is the most recent local
// allocation.
func (l *LocalArena) Resize(b []byte, old, want Layout) ([]byte, error) {
	return l.arena.Resize(b, old, want)
}

// Deallocate reclaims b if it is the most recent local allocation.
func (l *LocalArena) Deallocate(b []byte, layout Layout) {
	l.arena.Deallocate(b, layout)
}

// Reset makes the local arena's memory available again. With keepLast the
// newest chunk is rewound and reused; the rest are abandoned to the shared
// arena.
func (l *LocalArena) Reset(keepLast bool) {
	l.arena.ResetLeak(keepLast)
}

// Close abandons every chunk and detaches l from the shared arena. It is safe
// to call more than once.
func (l *LocalArena) Close() {
	if l.closed.Swap(true) {
		return
	}
	l.arena.ResetLeak(false)
	l.shared.locals.Add(-1)
}
