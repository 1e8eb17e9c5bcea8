// Package arena implements the compilation's single bump-allocating
// scratch region plus a pool of growable "dynamic" regions, per spec.md
// §4.1. Unlike the teacher (google-gapid/core/memory/arena, a cgo
// wrapper around a native allocator), this Arena is pure Go: static
// allocations are Go values handed out by value/pointer and never
// individually freed, and "dynamic" regions are growable byte buffers
// that Finalize copies into a fresh, immutable static allocation. There
// is nothing to Dispose in Go — the arena (and everything it owns) is
// reclaimed by the garbage collector when the *Arena value is dropped;
// Dispose is kept only as a no-op for API parity with the teacher, since
// some callers model a compilation's lifetime as create/dispose.
package arena

import "fmt"

// Stats mirrors google-gapid/core/memory/arena's Stats: a snapshot of
// how much this arena has handed out.
type Stats struct {
	NumAllocations    int
	NumBytesAllocated int
}

func (s Stats) String() string {
	return fmt.Sprintf("{allocs: %d, bytes: %d}", s.NumAllocations, s.NumBytesAllocated)
}

// Arena is a bump-allocated scratch arena with a pool of growable dynamic
// buffers. Failure policy (spec.md §4.1): exhaustion aborts the process;
// since this implementation delegates to the Go heap, the only failure
// mode left is an allocation request of a negative or absurd size, which
// panics rather than silently wrapping.
type Arena struct {
	stats  Stats
	dynMu  []*dynBuf
	frozen bool
}

// New constructs a new, empty Arena.
func New() *Arena { return &Arena{} }

// Dispose is a no-op kept for API parity with the teacher's cgo arena;
// Go's GC reclaims everything once the Arena is unreachable.
func (a *Arena) Dispose() {}

// Stats returns the current allocation statistics.
func (a *Arena) Stats() Stats { return a.stats }

// Static allocates a fixed-size, bump-allocated block that is never
// individually freed — spec.md's "static" region. The returned slice is
// zeroed and sized exactly to n.
func (a *Arena) Static(n int) []byte {
	if n < 0 {
		panic("arena: negative allocation size")
	}
	a.stats.NumAllocations++
	a.stats.NumBytesAllocated += n
	return make([]byte, n)
}

// dynBuf is one "dynamic" growable region: spec.md describes a fixed pool
// of equal-size chunks with an occupancy bitmap that either grows by
// claiming the next chunk or relocates-and-copies when blocked. In pure
// Go there is no adjacent-chunk concept to block on, so Dynamic models
// the same observable contract (grow-in-place when possible, otherwise
// reallocate-and-copy) directly against a Go byte slice with spare
// capacity, which is the idiomatic Go analogue of "claim the next chunk".
type dynBuf struct {
	buf []byte
}

// Dynamic is a handle to one growable dynamic-region allocation.
type Dynamic struct {
	a   *Arena
	buf *dynBuf
}

// NewDynamic allocates a new dynamic region of the given initial size.
func (a *Arena) NewDynamic(initial int) *Dynamic {
	if initial < 1 {
		initial = 64
	}
	d := &dynBuf{buf: make([]byte, 0, initial)}
	a.dynMu = append(a.dynMu, d)
	a.stats.NumAllocations++
	return &Dynamic{a: a, buf: d}
}

// Bytes returns the region's current content.
func (d *Dynamic) Bytes() []byte { return d.buf.buf }

// Len returns the number of bytes currently written.
func (d *Dynamic) Len() int { return len(d.buf.buf) }

// Cap returns the region's current backing capacity.
func (d *Dynamic) Cap() int { return cap(d.buf.buf) }

// Grow ensures the region can hold at least n more bytes, growing
// in-place when the backing slice has spare capacity and relocating
// (copy to a new, larger backing array) otherwise — the two outcomes
// spec.md §4.1 names explicitly.
func (d *Dynamic) Grow(n int) {
	need := len(d.buf.buf) + n
	if need <= cap(d.buf.buf) {
		return
	}
	newCap := cap(d.buf.buf)
	if newCap == 0 {
		newCap = 64
	}
	for newCap < need {
		newCap *= 2
	}
	fresh := make([]byte, len(d.buf.buf), newCap)
	copy(fresh, d.buf.buf)
	d.buf.buf = fresh
	d.a.stats.NumBytesAllocated += newCap
}

// Append writes p to the region, growing as needed, and returns the
// offset at which p now begins.
func (d *Dynamic) Append(p []byte) int {
	d.Grow(len(p))
	off := len(d.buf.buf)
	d.buf.buf = append(d.buf.buf, p...)
	return off
}

// Finalize copies the dynamic region's current bytes into a fresh
// static allocation and detaches the dynamic region (it must not be
// written to again) — spec.md's "finalize(ptr, nbytes) copies a dynamic
// buffer into a fresh static allocation and releases the dynamic
// chunks", used to seal hashmaps and instruction sequences.
func (d *Dynamic) Finalize() []byte {
	out := d.a.Static(len(d.buf.buf))
	copy(out, d.buf.buf)
	d.buf.buf = nil
	return out
}
