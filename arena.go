package blink

import (
	"log/slog"

	"github.com/zeebo/errs/v2"
)

// Arena is a single-owner bump allocator. It does no synchronization: an
// Arena may move between goroutines, but two goroutines must never call into
// the same Arena at the same time, not even for read-only methods. Use
// SyncArena for shared access.
//
// An Arena starts without chunks. It must be brought back to that state with
// Release (or ResetWith/ResetLeak with keepLast false) before it is dropped;
// builds with the blinkdebug tag panic when an Arena still owning chunks is
// collected.
type Arena struct {
	root         *chunk
	minChunkSize uintptr
	upstream     Allocator
	log          *slog.Logger
	guard        ownerGuard
}

// NewArena creates an Arena. Without options it requests chunks of at least
// DefaultChunkSize bytes from Heap.
func NewArena(opts ...Option) *Arena {
	a := new(Arena)
	a.init(buildOptions(DefaultChunkSize, opts))
	watchRelease(a, func(a *Arena) bool { return a.root != nil }, "Arena")
	return a
}

func (a *Arena) init(o options) {
	a.minChunkSize = uintptr(o.chunkSize)
	a.upstream = o.upstream
	a.log = o.logger
}

// Allocate returns l.Size bytes aligned to l.Align, growing the arena from
// its upstream allocator when the current chunk is full. Zero-size layouts
// return nil. The memory is not zeroed.
func (a *Arena) Allocate(l Layout) ([]byte, error) {
	if l.Size == 0 {
		return nil, nil
	}
	if !l.valid() {
		return nil, errs.Errorf("%w: alignment %d", ErrInvalidLayout, l.Align)
	}
	a.guard.enter()
	b, err := a.allocate(l, a.upstream)
	a.guard.exit()
	return b, err
}

func (a *Arena) allocate(l Layout, upstream Allocator) ([]byte, error) {
	if a.root != nil {
		if b := a.root.alloc(l); b != nil {
			return b, nil
		}
	}
	return a.allocSlow(l, upstream)
}

// AllocBytes allocates n bytes with byte alignment. A negative n is an
// ErrInvalidLayout.
func (a *Arena) AllocBytes(n int) ([]byte, error) {
	l, err := bytesLayout(n)
	if err != nil {
		return nil, err
	}
	return a.Allocate(l)
}

// AllocFast tries to serve l from the current chunk. It returns nil when the
// chunk has no room (or there is no chunk yet, or l is zero sized); the
// caller then goes to AllocSlow.
func (a *Arena) AllocFast(l Layout) []byte {
	if a.root == nil || l.Size == 0 {
		return nil
	}
	return a.root.alloc(l)
}

// AllocSlow links a new chunk obtained from upstream and serves l from it.
// On failure the arena is unchanged.
func (a *Arena) AllocSlow(l Layout, upstream Allocator) ([]byte, error) {
	if l.Size == 0 {
		return nil, nil
	}
	if !l.valid() {
		return nil, errs.Errorf("%w: alignment %d", ErrInvalidLayout, l.Align)
	}
	return a.allocSlow(l, upstream)
}

func (a *Arena) allocSlow(l Layout, upstream Allocator) ([]byte, error) {
	c, err := grow(a.log, a.root, a.minChunkSize, l, upstream)
	if err != nil {
		return nil, err
	}
	a.root = c
	b := c.alloc(l)
	debugAssert(b != nil, "fresh chunk of %d bytes cannot serve %d", c.capacity(), l.Size)
	return b, nil
}

// Resize changes the size of b, previously allocated with layout old, to
// want. The most recent allocation grows and shrinks in place; any other block
// is moved to fresh memory with its contents copied, and the old bytes are
// abandoned until the next reset.
func (a *Arena) Resize(b []byte, old, want Layout) ([]byte, error) {
	if !want.valid() {
		return nil, errs.Errorf("%w: alignment %d", ErrInvalidLayout, want.Align)
	}
	a.guard.enter()
	defer a.guard.exit()
	if old.Size == 0 || b == nil {
		if want.Size == 0 {
			return nil, nil
		}
		return a.allocate(want, a.upstream)
	}
	if want.Size == 0 {
		a.deallocate(b, old.Size)
		return nil, nil
	}
	if nb := a.ResizeFast(b, old, want); nb != nil {
		return nb, nil
	}
	return a.resizeSlow(b, want, a.upstream)
}

// ResizeFast resizes b within the current chunk. It returns nil when that is
// not possible, in which case the caller falls back to ResizeSlow.
func (a *Arena) ResizeFast(b []byte, old, want Layout) []byte {
	if a.root == nil || old.Size == 0 || want.Size == 0 {
		return nil
	}
	return a.root.resize(b, old, want)
}

// ResizeSlow allocates want, first from the current chunk and then from a
// new chunk obtained from upstream, and copies b into it.
func (a *Arena) ResizeSlow(b []byte, old, want Layout, upstream Allocator) ([]byte, error) {
	if !want.valid() {
		return nil, errs.Errorf("%w: alignment %d", ErrInvalidLayout, want.Align)
	}
	if want.Size == 0 {
		return nil, nil
	}
	return a.resizeSlow(b[:min(uintptr(len(b)), old.Size)], want, upstream)
}

func (a *Arena) resizeSlow(b []byte, want Layout, upstream Allocator) ([]byte, error) {
	nb, err := a.allocate(want, upstream)
	if err != nil {
		return nil, err
	}
	copy(nb, b)
	return nb, nil
}

// Deallocate reclaims b if it is the most recent allocation and otherwise
// does nothing.
func (a *Arena) Deallocate(b []byte, l Layout) {
	a.guard.enter()
	a.deallocate(b, l.Size)
	a.guard.exit()
}

func (a *Arena) deallocate(b []byte, size uintptr) {
	if a.root == nil || size == 0 || b == nil {
		return
	}
	a.root.dealloc(b, size)
}

// EnsureCapacity links a new chunk now unless the current one already has n
// free bytes, so that a following burst of allocations stays on the fast path.
func (a *Arena) EnsureCapacity(n int) error {
	if n <= 0 {
		return nil
	}
	l := BytesLayout(n)
	a.guard.enter()
	defer a.guard.exit()
	if a.root != nil {
		if _, _, ok := a.root.fit(a.root.cursor.Load(), l); ok {
			return nil
		}
	}
	c, err := grow(a.log, a.root, a.minChunkSize, l, a.upstream)
	if err != nil {
		return err
	}
	a.root = c
	return nil
}

// Reset makes all memory available again, keeping the newest chunk and
// returning the others to the configured upstream allocator.
func (a *Arena) Reset() {
	a.ResetWith(true, a.upstream)
}

// Release returns every chunk to the configured upstream allocator. The arena
// stays usable and starts over from an empty chain.
func (a *Arena) Release() {
	a.ResetWith(false, a.upstream)
}

// ResetWith returns all chunks but the newest (all chunks unless keepLast) to
// upstream, which must be the allocator they came from. A kept chunk is
// rewound for reuse.
//
// Every block handed out before the reset becomes invalid, except that
// memory inside a kept chunk stays mapped until it is overwritten.
func (a *Arena) ResetWith(keepLast bool, upstream Allocator) {
	a.guard.enter()
	a.root = releaseChain(a.log, a.root, keepLast, upstream)
	a.guard.exit()
}

// ResetLeak behaves like ResetWith but never calls an upstream allocator: the
// dropped chunks are abandoned. With Heap the collector reclaims them; other
// upstreams keep them until they are freed by other means.
func (a *Arena) ResetLeak(keepLast bool) {
	a.guard.enter()
	a.root = releaseChain(a.log, a.root, keepLast, nil)
	a.guard.exit()
}
