package blink

import "testing"

// request is a pointer-free record of the size a request handler keeps per
// item.
type request struct {
	ID      int64
	Payload [56]byte
}

// serveRequest allocates what one simulated request needs from a.
func serveRequest(b *testing.B, a Allocator, items int) {
	for j := 0; j < items; j++ {
		r, err := New[request](a)
		if err != nil {
			b.Fatal(err)
		}
		r.ID = int64(j)
	}
	body, err := MakeSliceUninit[byte](a, 2048)
	if err != nil {
		b.Fatal(err)
	}
	body[0] = 1
}

// BenchmarkRealisticUsage compares the ways one arena can be driven through a
// request loop.
func BenchmarkRealisticUsage(b *testing.B) {
	// A warmed arena keeps its largest chunk across requests.
	b.Run("Requests/ResetAndReuse", func(b *testing.B) {
		a := NewArena(WithChunkSize(4096))
		defer a.Release()
		for i := 0; i < b.N; i++ {
			serveRequest(b, a, 100)
			a.Reset()
		}
	})

	// Releasing every time rebuilds the chain from the smallest chunk.
	b.Run("Requests/ReleaseAndGrow", func(b *testing.B) {
		a := NewArena(WithChunkSize(4096))
		defer a.Release()
		for i := 0; i < b.N; i++ {
			serveRequest(b, a, 100)
			a.Release()
		}
	})

	// EnsureCapacity sizes the chunk once so the request never leaves the
	// fast path.
	b.Run("Requests/Presized", func(b *testing.B) {
		a := NewArena(WithChunkSize(4096))
		defer a.Release()
		for i := 0; i < b.N; i++ {
			if err := a.EnsureCapacity(100*64 + 2048); err != nil {
				b.Fatal(err)
			}
			serveRequest(b, a, 100)
			a.Release()
		}
	})

	b.Run("Resize/TailInPlace", func(b *testing.B) {
		a := NewArena(WithChunkSize(1 << 20))
		defer a.Release()
		for i := 0; i < b.N; i++ {
			buf, _ := a.AllocBytes(512)
			buf, _ = a.Resize(buf, BytesLayout(512), BytesLayout(1024))
			buf, _ = a.Resize(buf, BytesLayout(1024), BytesLayout(2048))
			buf[0] = byte(i)
			if i%256 == 255 {
				a.Reset()
			}
		}
	})

	// An allocation after each buffer pins it, so every resize moves.
	b.Run("Resize/Moved", func(b *testing.B) {
		a := NewArena(WithChunkSize(1 << 20))
		defer a.Release()
		for i := 0; i < b.N; i++ {
			buf, _ := a.AllocBytes(512)
			_, _ = a.AllocBytes(8)
			buf, _ = a.Resize(buf, BytesLayout(512), BytesLayout(1024))
			_, _ = a.AllocBytes(8)
			buf, _ = a.Resize(buf, BytesLayout(1024), BytesLayout(2048))
			buf[0] = byte(i)
			if i%128 == 127 {
				a.Reset()
			}
		}
	})

	b.Run("Parallel/LocalOverShared", func(b *testing.B) {
		shared := NewSyncArena(WithChunkSize(1 << 20))
		defer shared.Release()
		b.RunParallel(func(pb *testing.PB) {
			local := shared.Local(WithChunkSize(64 * 1024))
			defer local.Close()
			i := 0
			for pb.Next() {
				_, _ = local.AllocBytes(128)
				i++
				if i%1000 == 0 {
					local.Reset(true)
				}
			}
		})
	})

	b.Run("Parallel/SharedOnly", func(b *testing.B) {
		shared := NewSyncArena(WithChunkSize(1 << 20))
		defer shared.Release()
		b.RunParallel(func(pb *testing.PB) {
			for pb.Next() {
				_, _ = shared.AllocBytes(128)
			}
		})
	})

	// The budget adds one semaphore round trip per chunk, never per
	// allocation.
	b.Run("Upstream/Heap", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			a := NewArena(WithChunkSize(1024))
			serveRequest(b, a, 100)
			a.Release()
		}
	})

	b.Run("Upstream/Limited", func(b *testing.B) {
		budget := NewLimited(Heap{}, 1<<20)
		for i := 0; i < b.N; i++ {
			a := NewArena(WithChunkSize(1024), WithAllocator(budget))
			serveRequest(b, a, 100)
			a.Release()
		}
	})
}
