package blink

import "log/slog"

// DefaultChunkSize is the default minimum chunk capacity (64 KiB).
const DefaultChunkSize = 1 << 16

type options struct {
	chunkSize int
	upstream  Allocator
	logger    *slog.Logger
}

// Option configures an arena at construction.
type Option func(*options)

// WithChunkSize sets the minimum capacity of chunks the arena requests from
// its upstream allocator. Zero lets the arena start from the smallest
// power-of-two block that fits the first request. Negative values are ignored.
func WithChunkSize(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.chunkSize = n
		}
	}
}

// WithAllocator sets the upstream allocator used by Allocate, Resize, Reset
// and Release. The default is Heap.
func WithAllocator(a Allocator) Option {
	return func(o *options) {
		if a != nil {
			o.upstream = a
		}
	}
}

// WithLogger sets the logger used on the slow path and on reset.
// The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func buildOptions(chunkSize int, opts []Option) options {
	o := options{
		chunkSize: chunkSize,
		upstream:  Heap{},
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
