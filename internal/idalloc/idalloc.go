// Package idalloc provides a process-wide monotonically increasing
// identifier source for embeddings.
package idalloc

import "sync/atomic"

// Allocator is a relaxed fetch-and-add counter. The zero value is not
// usable; construct one with New or Restore.
type Allocator struct {
	next atomic.Uint64
}

// New creates an Allocator whose first Next() call returns 1.
func New() *Allocator {
	a := &Allocator{}
	a.next.Store(1)
	return a
}

// Restore creates an Allocator that continues issuing ids after
// highestSeen, used after a snapshot load so reissued ids never collide
// with ids already stored on disk.
func Restore(highestSeen uint64) *Allocator {
	a := &Allocator{}
	a.next.Store(highestSeen + 1)
	return a
}

// Next returns a fresh id and advances the counter. Never returns 0.
func (a *Allocator) Next() uint64 {
	return a.next.Add(1) - 1
}
