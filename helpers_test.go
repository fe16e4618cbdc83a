package blink

import (
	"errors"
	"sync"
	"unsafe"
)

var errInjected = errors.New("injected upstream failure")

// recordingAllocator serves blocks from the heap and records every call.
type recordingAllocator struct {
	mu        sync.Mutex
	allocated []Layout
	freed     []Layout
	fail      bool
}

func (r *recordingAllocator) Allocate(l Layout) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return nil, errInjected
	}
	r.allocated = append(r.allocated, l)
	return Heap{}.Allocate(l)
}

func (r *recordingAllocator) Deallocate(_ []byte, l Layout) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.freed = append(r.freed, l)
}

func (r *recordingAllocator) setFail(fail bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail = fail
}

func (r *recordingAllocator) counts() (allocs, frees int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.allocated), len(r.freed)
}

func addr(b []byte) uintptr {
	return uintptr(unsafe.Pointer(unsafe.SliceData(b)))
}

// skipUnless64 skips tests whose literal numbers assume a 32 byte header.
func skipUnless64(t interface{ Skip(...any) }) {
	if HeaderSize != 32 {
		t.Skip("chunk arithmetic below assumes a 64-bit header")
	}
}
