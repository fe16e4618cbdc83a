package blink

import (
	"unsafe"
)

// New allocates a zeroed T from a. Any Allocator works, including every
// arena in this package.
//
// Arena memory is not scanned by the garbage collector: T must not hold the
// only reference to heap objects.
func New[T any](a Allocator) (*T, error) {
	b, err := a.Allocate(LayoutOf[T]())
	if err != nil {
		return nil, err
	}
	if b == nil {
		return new(T), nil
	}
	clear(b)
	return (*T)(unsafe.Pointer(unsafe.SliceData(b))), nil
}

// MakeSlice allocates a zeroed slice of n elements of type T from a.
// Returns nil if n <= 0.
func MakeSlice[T any](a Allocator, n int) ([]T, error) {
	s, b, err := makeSlice[T](a, n)
	clear(b)
	return s, err
}

// MakeSliceUninit allocates a slice of n elements of type T without zeroing
// it. After a reset the memory holds whatever was written before.
func MakeSliceUninit[T any](a Allocator, n int) ([]T, error) {
	s, _, err := makeSlice[T](a, n)
	return s, err
}

func makeSlice[T any](a Allocator, n int) ([]T, []byte, error) {
	if n <= 0 {
		return nil, nil, nil
	}
	l, err := ArrayLayout[T](n)
	if err != nil {
		return nil, nil, err
	}
	b, err := a.Allocate(l)
	if err != nil {
		return nil, nil, err
	}
	if b == nil {
		return make([]T, n), nil, nil
	}
	return unsafe.Slice((*T)(unsafe.Pointer(unsafe.SliceData(b))), n), b, nil
}
