package blink

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/zeebo/errs/v2"
)

// SyncArena is a bump allocator safe for concurrent use. Allocations that fit
// in the current chunk take only a read lock and bump the chunk's cursor with
// compare-and-swap, so goroutines allocate in parallel. Linking a new chunk
// and resetting take the write lock.
//
// Like Arena, a SyncArena must be released before it is dropped. It has no
// ResetLeak.
type SyncArena struct {
	mu           sync.RWMutex
	root         *chunk
	minChunkSize uintptr
	upstream     Allocator
	log          *slog.Logger
	locals       atomic.Int64 // attached LocalArena proxies
}

// NewSyncArena creates a SyncArena. Without options it requests chunks of at
// least DefaultChunkSize bytes from Heap.
func NewSyncArena(opts ...Option) *SyncArena {
	o := buildOptions(DefaultChunkSize, opts)
	s := &SyncArena{
		minChunkSize: uintptr(o.chunkSize),
		upstream:     o.upstream,
		log:          o.logger,
	}
	watchRelease(s, func(s *SyncArena) bool { return s.root != nil }, "SyncArena")
	return s
}

// Allocate returns l.Size bytes aligned to l.Align. It is safe to call from
// any number of goroutines.
func (s *SyncArena) Allocate(l Layout) ([]byte, error) {
	if l.Size == 0 {
		return nil, nil
	}
	if !l.valid() {
		return nil, errs.Errorf("%w: alignment %d", ErrInvalidLayout, l.Align)
	}
	if b := s.AllocFast(l); b != nil {
		return b, nil
	}
	return s.AllocSlow(l, s.upstream)
}

// AllocBytes allocates n bytes with byte alignment.
func (s *SyncArena) AllocBytes(n int) ([]byte, error) {
	l, err := bytesLayout(n)
	if err != nil {
		return nil, err
	}
	return s.Allocate(l)
}

// AllocFast tries to serve l from the current chunk under the read lock.
func (s *SyncArena) AllocFast(l Layout) []byte {
	if l.Size == 0 {
		return nil
	}
	s.mu.RLock()
	var b []byte
	if s.root != nil {
		b = s.root.allocShared(l)
	}
	s.mu.RUnlock()
	return b
}

// AllocSlow takes the write lock and serves l, linking a new chunk from
// upstream if the current one is still full. Goroutines racing past the same
// full chunk therefore link it only once.
func (s *SyncArena) AllocSlow(l Layout, upstream Allocator) ([]byte, error) {
	if l.Size == 0 {
		return nil, nil
	}
	if !l.valid() {
		return nil, errs.Errorf("%w: alignment %d", ErrInvalidLayout, l.Align)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.allocLocked(l, upstream)
}

func (s *SyncArena) allocLocked(l Layout, upstream Allocator) ([]byte, error) {
	if s.root != nil {
		if b := s.root.alloc(l); b != nil {
			return b, nil
		}
	}
	c, err := grow(s.log, s.root, s.minChunkSize, l, upstream)
	if err != nil {
		return nil, err
	}
	s.root = c
	b := c.alloc(l)
	debugAssert(b != nil, "fresh chunk of %d bytes cannot serve %d", c.capacity(), l.Size)
	return b, nil
}

// Resize changes the size of b, previously allocated with layout old, to
// want, in place when b is the most recent allocation and by moving it
// otherwise.
func (s *SyncArena) Resize(b []byte, old, want Layout) ([]byte, error) {
	if !want.valid() {
		return nil, errs.Errorf("%w: alignment %d", ErrInvalidLayout, want.Align)
	}
	if old.Size == 0 || b == nil {
		return s.Allocate(want)
	}
	if want.Size == 0 {
		s.Deallocate(b, old)
		return nil, nil
	}
	if nb := s.ResizeFast(b, old, want); nb != nil {
		return nb, nil
	}
	return s.ResizeSlow(b, old, want, s.upstream)
}

// ResizeFast resizes b within the current chunk under the read lock.
func (s *SyncArena) ResizeFast(b []byte, old, want Layout) []byte {
	if old.Size == 0 || want.Size == 0 {
		return nil
	}
	s.mu.RLock()
	var nb []byte
	if s.root != nil {
		nb = s.root.resize(b, old, want)
	}
	s.mu.RUnlock()
	return nb
}

// ResizeSlow takes the write lock, retries the in-place resize and otherwise
// moves b into fresh memory.
func (s *SyncArena) ResizeSlow(b []byte, old, want Layout, upstream Allocator) ([]byte, error) {
	if !want.valid() {
		return nil, errs.Errorf("%w: alignment %d", ErrInvalidLayout, want.Align)
	}
	if want.Size == 0 {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.root != nil && old.Size != 0 {
		if nb := s.root.resize(b, old, want); nb != nil {
			return nb, nil
		}
	}
	nb, err := s.allocLocked(want, upstream)
	if err != nil {
		return nil, err
	}
	copy(nb, b[:min(uintptr(len(b)), old.Size)])
	return nb, nil
}

// Deallocate reclaims b if it is still the most recent allocation.
func (s *SyncArena) Deallocate(b []byte, l Layout) {
	if l.Size == 0 || b == nil {
		return
	}
	s.mu.RLock()
	if s.root != nil {
		s.root.dealloc(b, l.Size)
	}
	s.mu.RUnlock()
}

// EnsureCapacity links a new chunk now unless the current one already has n
// free bytes.
func (s *SyncArena) EnsureCapacity(n int) error {
	if n <= 0 {
		return nil
	}
	l := BytesLayout(n)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.root != nil {
		if _, _, ok := s.root.fit(s.root.cursor.Load(), l); ok {
			return nil
		}
	}
	c, err := grow(s.log, s.root, s.minChunkSize, l, s.upstream)
	if err != nil {
		return err
	}
	s.root = c
	return nil
}

// Reset keeps the newest chunk, rewound, and returns the others to the
// configured upstream allocator.
func (s *SyncArena) Reset() {
	s.ResetWith(true, s.upstream)
}

// Release returns every chunk to the configured upstream allocator.
func (s *SyncArena) Release() {
	s.ResetWith(false, s.upstream)
}

// ResetWith returns all chunks but the newest (all unless keepLast) to
// upstream under the write lock. Every LocalArena drawing from s must be
// closed first: their chunks live inside s.
func (s *SyncArena) ResetWith(keepLast bool, upstream Allocator) {
	s.mu.Lock()
	defer s.mu.Unlock()
	debugAssert(s.locals.Load() == 0, "SyncArena reset with %d LocalArena still attached", s.locals.Load())
	s.root = releaseChain(s.log, s.root, keepLast, upstream)
}
