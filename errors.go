package blink

import "errors"

var (
	// ErrInvalidLayout is returned for negative sizes or alignments that are not
	// a power of two.
	ErrInvalidLayout = errors.New("blink: invalid layout")
	// ErrTooLarge is returned when a request cannot be expressed as a chunk size
	// without overflowing, or is larger than Heap can allocate at once.
	ErrTooLarge = errors.New("blink: allocation too large")
	// ErrAllocFailed is returned when the upstream allocator could not supply a chunk.
	ErrAllocFailed = errors.New("blink: upstream allocation failed")
	// ErrBudgetExceeded is returned by Limited when a block would exceed its budget.
	ErrBudgetExceeded = errors.New("blink: memory budget exceeded")
	// ErrUnsupported is returned by upstream allocators that cannot serve a layout
	// on this platform.
	ErrUnsupported = errors.New("blink: unsupported")
)
