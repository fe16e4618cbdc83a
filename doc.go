// Package blink implements bump-pointer arenas for Go.
//
// # Overview
//
// An arena hands out memory by advancing a cursor through large chunks and
// never tracks individual allocations. Everything is reclaimed at once by a
// reset, which makes arenas a good fit for:
//
//   - Many short-lived objects with a bounded lifetime (a request, a frame,
//     a parse pass)
//   - Hot paths where garbage collection pressure matters
//   - Workloads that repeat the same allocation pattern over and over
//
// # Basic Usage
//
//	a := blink.NewArena()  // 64 KiB minimum chunks from the Go heap
//	defer a.Release()      // chunks go back to the upstream allocator
//
//	buf, err := a.AllocBytes(1024)
//	p, err := blink.New[MyStruct](a)
//	s, err := blink.MakeSlice[int](a, 100)
//
//	a.Reset() // O(1) for a warmed-up arena; the newest chunk is kept
//
// # Chunks and growth
//
// Chunks form a list, newest first. When the current chunk cannot serve a
// request, the slow path asks the upstream Allocator for a new one whose block
// (capacity plus HeaderSize of bookkeeping) is a power of two and at least
// the capacity of the previous chunk plus the request. Chunk sizes therefore
// roughly double, and after a Reset that keeps the newest chunk a repeated
// workload fits in that single chunk: the arena has warmed up and never calls
// upstream again.
//
// AllocatedBytes and TotalCapacity are O(1). Before warm-up AllocatedBytes
// counts older chunks as full; afterwards it is exact.
//
// # Deallocation and resizing
//
// Deallocate reclaims a block only when it is the most recent allocation, so
// stack-like (LIFO) frees cost nothing and every other free is ignored.
// Resize grows or shrinks the most recent allocation in place and moves any
// other block.
//
// # Thread Safety
//
// Arena has no synchronization. It may be handed from one goroutine to
// another, but concurrent calls on the same Arena are undefined behavior.
//
// SyncArena is safe for concurrent use. Allocations that fit in the current
// chunk bump an atomic cursor under a read lock; linking a chunk or resetting
// takes the write lock:
//
//	shared := blink.NewSyncArena()
//	defer shared.Release()
//
//	b, err := shared.AllocBytes(64) // from any goroutine
//
// LocalArena combines the two: a private arena per goroutine that takes whole
// chunks from a SyncArena, so the lock is touched once per chunk rather than
// once per allocation:
//
//	local := shared.Local()
//	defer local.Close()
//
// # Upstream allocators
//
// Chunks come from an Allocator: Heap (the default), Mmap for memory outside
// the Go heap, Limited to cap the bytes in use, or another arena. Allocate
// failures reach the caller wrapped in ErrAllocFailed; the arena is left as
// it was.
//
// # Important Notes
//
//   - Memory handed out is valid until the chunk holding it is released
//   - Arena memory is not scanned by the garbage collector; do not store the
//     only pointer to a heap object in it
//   - Memory is not zeroed unless you use New or MakeSlice
//   - Arena and SyncArena must be released before they are dropped; build
//     with -tags blinkdebug to check this and other contract violations
package blink
