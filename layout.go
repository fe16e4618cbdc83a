package blink

import (
	"math/bits"
	"unsafe"

	"github.com/zeebo/errs/v2"
)

// Layout describes the size and alignment of a block of memory.
type Layout struct {
	Size  uintptr
	Align uintptr
}

// NewLayout validates size and align and returns the matching Layout.
// align must be a power of two; size must not be negative.
func NewLayout(size, align int) (Layout, error) {
	if size < 0 {
		return Layout{}, errs.Errorf("%w: negative size %d", ErrInvalidLayout, size)
	}
	if align <= 0 || bits.OnesCount(uint(align)) != 1 {
		return Layout{}, errs.Errorf("%w: alignment %d is not a power of two", ErrInvalidLayout, align)
	}
	return Layout{Size: uintptr(size), Align: uintptr(align)}, nil
}

// bytesLayout is the layout AllocBytes uses. Unlike BytesLayout it rejects a
// negative n.
func bytesLayout(n int) (Layout, error) {
	if n < 0 {
		return Layout{}, errs.Errorf("%w: negative size %d", ErrInvalidLayout, n)
	}
	return Layout{Size: uintptr(n), Align: 1}, nil
}

// BytesLayout is the layout of n bytes with byte alignment. A negative n is
// treated as zero.
func BytesLayout(n int) Layout {
	if n < 0 {
		n = 0
	}
	return Layout{Size: uintptr(n), Align: 1}
}

// LayoutOf returns the layout of a single T.
func LayoutOf[T any]() Layout {
	var zero T
	return Layout{Size: unsafe.Sizeof(zero), Align: unsafe.Alignof(zero)}
}

// ArrayLayout returns the layout of n contiguous values of type T.
func ArrayLayout[T any](n int) (Layout, error) {
	l := LayoutOf[T]()
	if n < 0 {
		return Layout{}, errs.Errorf("%w: negative element count %d", ErrInvalidLayout, n)
	}
	hi, size := bits.Mul(uint(l.Size), uint(n))
	if hi != 0 {
		return Layout{}, errs.Errorf("%w: %d elements of %d bytes", ErrTooLarge, n, l.Size)
	}
	l.Size = uintptr(size)
	return l, nil
}

func (l Layout) valid() bool {
	return l.Align != 0 && l.Align&(l.Align-1) == 0
}

// alignUp rounds addr up to a multiple of align, which must be a power of two.
func alignUp(addr, align uintptr) uintptr {
	mask := align - 1
	return (addr + mask) &^ mask
}
