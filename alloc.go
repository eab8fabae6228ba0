package listq

import "unsafe"

// An Allocator accounts for the storage a Queue uses. Every
// successful Alloc made by a Queue is matched by a Release of the
// same size once the storage is no longer needed, so an Allocator can
// be used to detect leaks or to simulate running out of memory.
type Allocator interface {
	// Alloc reserves n bytes. It returns false if the reservation
	// can't be satisfied.
	Alloc(n int) bool

	// Release returns n bytes reserved by an earlier call to Alloc.
	Release(n int)
}

// Heap is an Allocator that always succeeds. It is the default for
// queues created without WithAllocator.
var Heap Allocator = heap{}

type heap struct{}

func (heap) Alloc(int) bool { return true }
func (heap) Release(int)    {}

var (
	queueSize = int(unsafe.Sizeof(Queue{}))
	nodeSize  = int(unsafe.Sizeof(node{}))
)

// valueSize is the size reserved for a stored copy of s, including
// room for a terminator.
func valueSize(s string) int {
	return len(s) + 1
}

// An Option configures a Queue created by New.
type Option func(*Queue)

// WithAllocator makes the queue account for its storage with a.
func WithAllocator(a Allocator) Option {
	return func(q *Queue) {
		q.alloc = a
	}
}
