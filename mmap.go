package blink

import (
	"errors"
	"math"

	"github.com/zeebo/errs/v2"

	"github.com/pavanmanishd/blink/internal/mmap"
)

// Mmap allocates blocks as anonymous memory mappings outside the Go heap and
// unmaps them on Deallocate. Blocks are page aligned; larger alignments are
// rejected with ErrUnsupported.
//
// Memory from Mmap is released only through Deallocate, so ResetLeak on an
// arena backed by Mmap leaks for the lifetime of the process.
type Mmap struct{}

// Allocate maps l.Size bytes.
func (Mmap) Allocate(l Layout) ([]byte, error) {
	if !l.valid() {
		return nil, errs.Errorf("%w: alignment %d", ErrInvalidLayout, l.Align)
	}
	if l.Size == 0 {
		return nil, nil
	}
	if l.Align > uintptr(mmap.PageSize()) {
		return nil, errs.Errorf("%w: alignment %d exceeds page size %d", ErrUnsupported, l.Align, mmap.PageSize())
	}
	if l.Size > math.MaxInt {
		return nil, errs.Errorf("%w: %d bytes", ErrTooLarge, l.Size)
	}
	b, err := mmap.Anon(int(l.Size))
	if errors.Is(err, mmap.ErrUnsupported) {
		return nil, errs.Errorf("%w: %w", ErrUnsupported, err)
	} else if err != nil {
		return nil, errs.Wrap(err)
	}
	return b, nil
}

// Deallocate unmaps block.
func (Mmap) Deallocate(block []byte, _ Layout) {
	_ = mmap.Release(block)
}
