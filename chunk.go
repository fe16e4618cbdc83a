package blink

import (
	"log/slog"
	"math"
	"math/bits"
	"sync/atomic"
	"unsafe"

	"github.com/zeebo/errs/v2"
)

// HeaderSize is the per-chunk bookkeeping charged against every block taken
// from the upstream allocator: cursor, end, prev link and cumulative size.
// A chunk of capacity c occupies a block of exactly c+HeaderSize bytes.
const HeaderSize = int(unsafe.Sizeof(chunkHeader{}))

// chunkAlign is the alignment requested for every chunk block.
const chunkAlign = unsafe.Alignof(chunkHeader{})

type chunkHeader struct {
	cursor     atomic.Uintptr // offset of the next free byte from base
	end        uintptr        // usable capacity, fixed at creation
	prev       *chunk         // next older chunk, nil for the oldest
	cumulative uintptr        // capacity of prev and all of its ancestors
}

// chunk is one block of upstream memory with its own bump cursor. The usable
// region starts HeaderSize bytes into the block. The header itself lives on the
// Go heap: chunk memory is not scanned by the collector, so the prev link
// cannot be stored inside it.
type chunk struct {
	chunkHeader
	base   unsafe.Pointer
	block  []byte
	layout Layout // layout block was allocated with, handed back on release
}

func newChunk(block []byte, layout Layout, prev *chunk) *chunk {
	c := &chunk{
		base:   unsafe.Add(unsafe.Pointer(unsafe.SliceData(block)), HeaderSize),
		block:  block,
		layout: layout,
	}
	c.end = layout.Size - uintptr(HeaderSize)
	c.prev = prev
	if prev != nil {
		c.cumulative = prev.cumulative + prev.end
	}
	return c
}

func (c *chunk) capacity() uintptr { return c.end }

func (c *chunk) slice(off, n uintptr) []byte {
	return unsafe.Slice((*byte)(unsafe.Add(c.base, off)), n)
}

// fit returns where a block satisfying l would start and end if the cursor
// were at cur.
func (c *chunk) fit(cur uintptr, l Layout) (start, next uintptr, ok bool) {
	base := uintptr(c.base)
	start = alignUp(base+cur, l.Align) - base
	if start < cur || start > c.end || l.Size > c.end-start {
		return 0, 0, false
	}
	return start, start + l.Size, true
}

// alloc bumps the cursor without synchronization. It is used by single-owner
// arenas and by the shared arena while it holds the write lock.
func (c *chunk) alloc(l Layout) []byte {
	start, next, ok := c.fit(c.cursor.Load(), l)
	if !ok {
		return nil
	}
	c.cursor.Store(next)
	return c.slice(start, l.Size)
}

// allocShared bumps the cursor with a compare-and-swap loop so that any
// number of readers can allocate from the chunk at once.
func (c *chunk) allocShared(l Layout) []byte {
	for {
		cur := c.cursor.Load()
		start, next, ok := c.fit(cur, l)
		if !ok {
			return nil
		}
		if c.cursor.CompareAndSwap(cur, next) {
			return c.slice(start, l.Size)
		}
	}
}

// offsetOf reports the offset of b's first byte within the usable region.
func (c *chunk) offsetOf(b []byte) (uintptr, bool) {
	p := uintptr(unsafe.Pointer(unsafe.SliceData(b)))
	base := uintptr(c.base)
	if p < base || p-base > c.end {
		return 0, false
	}
	return p - base, true
}

// resize grows or shrinks b in place. Only the tail block may grow, and only
// while the chunk has room; shrinking always succeeds and gives the space back
// when b is the tail. A nil result means the caller has to move the block.
func (c *chunk) resize(b []byte, old, want Layout) []byte {
	off, ok := c.offsetOf(b)
	if !ok || old.Size > c.end-off || (uintptr(c.base)+off)&(want.Align-1) != 0 {
		return nil
	}
	for {
		cur := c.cursor.Load()
		if off+old.Size != cur {
			if want.Size <= old.Size {
				return c.slice(off, want.Size)
			}
			return nil
		}
		if want.Size > c.end-off {
			return nil
		}
		next := off + want.Size
		debugAssert(next <= c.end, "cursor %d past chunk end %d", next, c.end)
		if c.cursor.CompareAndSwap(cur, next) {
			return c.slice(off, want.Size)
		}
	}
}

// dealloc retracts the cursor when b is the most recent allocation and
// ignores every other block.
func (c *chunk) dealloc(b []byte, size uintptr) {
	off, ok := c.offsetOf(b)
	if !ok || size > c.end-off {
		return
	}
	c.cursor.CompareAndSwap(off+size, off)
}

// rewind turns c into a fresh, sole chunk.
func (c *chunk) rewind() {
	c.cursor.Store(0)
	c.prev = nil
	c.cumulative = 0
}

// chunkCapacity sizes the chunk the slow path links in front of root to serve
// l. The request is max(minSize, root capacity) plus room for l (or just the
// larger of minSize and l for the first chunk), then rounded so that the whole
// block, header included, is a power of two.
func chunkCapacity(minSize uintptr, root *chunk, l Layout) (uintptr, error) {
	need, carry := bits.Add(uint(l.Size), uint(l.Align-1), 0)
	if carry != 0 {
		return 0, errs.Errorf("%w: %d bytes aligned to %d", ErrTooLarge, l.Size, l.Align)
	}
	size := max(uint(minSize), need)
	if root != nil {
		size, carry = bits.Add(max(uint(minSize), uint(root.capacity())), need, 0)
		if carry != 0 {
			return 0, errs.Errorf("%w: chunk after %d bytes", ErrTooLarge, root.capacity())
		}
	}
	total, carry := bits.Add(size, uint(HeaderSize), 0)
	if carry != 0 || total > math.MaxInt/2+1 {
		return 0, errs.Errorf("%w: %d byte chunk", ErrTooLarge, size)
	}
	return uintptr(nextPowerOfTwo(total)) - uintptr(HeaderSize), nil
}

func nextPowerOfTwo(x uint) uint {
	if x <= 1 {
		return 1
	}
	return 1 << bits.Len(x-1)
}

// grow obtains a chunk able to serve l from upstream and returns it linked in
// front of root. The chain is left untouched when upstream fails.
func grow(log *slog.Logger, root *chunk, minSize uintptr, l Layout, upstream Allocator) (*chunk, error) {
	capacity, err := chunkCapacity(minSize, root, l)
	if err != nil {
		return nil, err
	}
	bl := Layout{Size: capacity + uintptr(HeaderSize), Align: chunkAlign}
	block, err := upstream.Allocate(bl)
	if err != nil {
		log.Warn("blink: upstream allocation failed", "block", bl.Size, "error", err)
		return nil, errs.Errorf("%w: %d byte chunk: %w", ErrAllocFailed, bl.Size, err)
	}
	if uintptr(len(block)) < bl.Size || uintptr(unsafe.Pointer(unsafe.SliceData(block)))&(chunkAlign-1) != 0 {
		upstream.Deallocate(block, bl)
		return nil, errs.Errorf("%w: upstream returned %d bytes for a %d byte chunk", ErrAllocFailed, len(block), bl.Size)
	}
	c := newChunk(block, bl, root)
	log.Debug("blink: chunk allocated", "capacity", c.capacity(), "cumulative", c.cumulative, "block", bl.Size)
	return c, nil
}

// releaseChain unlinks every chunk behind root, and root itself unless
// keepLast, handing each block back to upstream newest first. A nil upstream
// leaks the blocks. It returns the new root.
func releaseChain(log *slog.Logger, root *chunk, keepLast bool, upstream Allocator) *chunk {
	if root == nil {
		return nil
	}
	next, kept := root, (*chunk)(nil)
	if keepLast {
		next, kept = root.prev, root
		root.rewind()
	}
	released := 0
	for c := next; c != nil; {
		prev := c.prev
		c.prev = nil
		if upstream != nil {
			upstream.Deallocate(c.block, c.layout)
		}
		released++
		c = prev
	}
	log.Debug("blink: reset", "released", released, "kept", kept != nil, "leak", upstream == nil)
	return kept
}

func chainAllocated(root *chunk) int {
	if root == nil {
		return 0
	}
	return int(root.cursor.Load() + root.cumulative)
}

func chainCapacity(root *chunk) int {
	if root == nil {
		return 0
	}
	return int(root.capacity() + root.cumulative)
}

func chainLen(root *chunk) int {
	n := 0
	for c := root; c != nil; c = c.prev {
		n++
	}
	return n
}
