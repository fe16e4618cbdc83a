package blink

import (
	"math/bits"
	"runtime"
	"unsafe"

	"github.com/zeebo/errs/v2"
)

// Allocator supplies raw memory blocks. Arenas use it to obtain chunks on the
// slow path and hand them back on reset; they never keep more than the
// configured instance.
//
// Deallocate must accept exactly the layout the block was allocated with.
type Allocator interface {
	Allocate(l Layout) ([]byte, error)
	Deallocate(block []byte, l Layout)
}

// Heap allocates blocks from the Go heap. Deallocate is a no-op: the garbage
// collector reclaims a block once nothing refers to it.
//
// Heap memory is allocated as []byte and is not scanned by the collector.
// Never store the only reference to a heap object inside it.
type Heap struct{}

// Allocate returns a zeroed block of l.Size bytes aligned to l.Align.
func (Heap) Allocate(l Layout) ([]byte, error) {
	if !l.valid() {
		return nil, errs.Errorf("%w: alignment %d", ErrInvalidLayout, l.Align)
	}
	if l.Size == 0 {
		return nil, nil
	}
	if l.Align > maxHeapBlock || l.Size > maxHeapBlock-l.Align {
		return nil, errs.Errorf("%w: %d bytes exceeds the %d byte heap block limit", ErrTooLarge, l.Size, maxHeapBlock)
	}
	return heapBlock(l)
}

// maxHeapBlock bounds the buffers Heap asks the runtime for: 1<<48 bytes on
// 64-bit platforms, the runtime's per-allocation limit there, and 1<<31 on
// 32-bit ones.
const maxHeapBlock = uintptr(1) << (min(bits.UintSize, 49) - 1)

// heapBlock over-allocates so an aligned start exists inside the buffer.
// Platforms with a smaller heap make the runtime reject lengths below
// maxHeapBlock; that panic comes back as ErrTooLarge.
func heapBlock(l Layout) (block []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			rerr, ok := r.(runtime.Error)
			if !ok {
				panic(r)
			}
			block, err = nil, errs.Errorf("%w: %d bytes: %w", ErrTooLarge, l.Size, rerr)
		}
	}()
	buf := make([]byte, l.Size+l.Align-1)
	addr := uintptr(unsafe.Pointer(unsafe.SliceData(buf)))
	off := alignUp(addr, l.Align) - addr
	return buf[off : off+l.Size : off+l.Size], nil
}

// Deallocate does nothing.
func (Heap) Deallocate([]byte, Layout) {}
