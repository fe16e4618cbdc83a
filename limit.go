package blink

import (
	"sync/atomic"

	"github.com/zeebo/errs/v2"
	"golang.org/x/sync/semaphore"
)

// Limited caps the bytes another Allocator may have outstanding. Requests
// that would exceed the budget fail immediately with ErrBudgetExceeded;
// callers decide whether and when to retry.
type Limited struct {
	upstream Allocator
	limit    int64
	sem      *semaphore.Weighted
	inUse    atomic.Int64
}

// NewLimited wraps upstream with a budget of limit bytes.
func NewLimited(upstream Allocator, limit int64) *Limited {
	if limit < 0 {
		limit = 0
	}
	return &Limited{
		upstream: upstream,
		limit:    limit,
		sem:      semaphore.NewWeighted(limit),
	}
}

// Allocate reserves l.Size bytes of budget and forwards to upstream.
func (m *Limited) Allocate(l Layout) ([]byte, error) {
	n := int64(l.Size)
	if n < 0 || !m.sem.TryAcquire(n) {
		return nil, errs.Errorf("%w: %d bytes requested, %d of %d in use",
			ErrBudgetExceeded, l.Size, m.inUse.Load(), m.limit)
	}
	b, err := m.upstream.Allocate(l)
	if err != nil {
		m.sem.Release(n)
		return nil, err
	}
	m.inUse.Add(n)
	return b, nil
}

// Deallocate returns block to upstream and its bytes to the budget.
func (m *Limited) Deallocate(block []byte, l Layout) {
	m.upstream.Deallocate(block, l)
	n := int64(l.Size)
	m.inUse.Add(-n)
	m.sem.Release(n)
}

// InUse returns the bytes currently allocated through m.
func (m *Limited) InUse() int64 { return m.inUse.Load() }

// Limit returns the budget in bytes.
func (m *Limited) Limit() int64 { return m.limit }
