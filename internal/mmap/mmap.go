package mmap

import "errors"

var (
	// ErrUnsupported is returned on platforms without anonymous mappings.
	ErrUnsupported = errors.New("mmap: anonymous mappings not supported on this platform")
	// ErrInvalidSize is returned for non-positive mapping sizes.
	ErrInvalidSize = errors.New("mmap: invalid size")
)

// Anon maps size bytes of anonymous memory.
func Anon(size int) ([]byte, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}
	return osMapAnon(size)
}

// Release unmaps a slice previously returned by Anon. The slice must not be
// resliced.
func Release(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	return osUnmap(data)
}

// PageSize returns the mapping granularity, which is also the largest
// alignment Anon guarantees.
func PageSize() int {
	return osPageSize()
}
