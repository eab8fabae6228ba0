package listq

import (
	"errors"
	"fmt"
	"strings"
)

// A Queue holds strings in a singly-linked chain of nodes. It caches
// references to both ends of the chain and the number of nodes, so
// insertion at either end, removal from the head, and Size are all
// constant time.
//
// A zero value Queue is ready to use and accounts for its storage
// with Heap. A nil *Queue is valid to call methods on: it behaves as
// an absent queue, reporting ErrNilQueue from operations that can
// fail and doing nothing otherwise.
//
// Each stored value is a private copy of the string that was
// inserted. Nodes are never shared with callers, so Reverse and Sort
// can freely relink them.
type Queue struct {
	_ noCopy

	head, tail *node
	size       int
	alloc      Allocator
}

// New returns a new, empty queue. It only fails if the allocator
// refuses to supply storage for the queue itself, in which case it
// returns ErrNoMemory.
func New(opts ...Option) (*Queue, error) {
	var q Queue
	for _, opt := range opts {
		opt(&q)
	}

	if !q.allocator().Alloc(queueSize) {
		return nil, ErrNoMemory
	}
	return &q, nil
}

func (q *Queue) allocator() Allocator {
	if q.alloc == nil {
		return Heap
	}
	return q.alloc
}

// Free releases every node of the queue, followed by the queue
// itself. The queue must not be used afterwards.
func (q *Queue) Free() {
	if q == nil {
		return
	}

	a := q.allocator()
	for n := q.head; n != nil; {
		next := n.next
		n.release(a)
		n = next
	}
	q.head, q.tail, q.size = nil, nil, 0

	a.Release(queueSize)
}

// newNode allocates a detached node holding a copy of s. If either
// the node or the copy can't be allocated, nothing stays reserved.
func (q *Queue) newNode(s string) (*node, error) {
	if q == nil {
		return nil, ErrNilQueue
	}

	a := q.allocator()
	if !a.Alloc(nodeSize) {
		return nil, ErrNoMemory
	}
	if !a.Alloc(valueSize(s)) {
		a.Release(nodeSize)
		return nil, ErrNoMemory
	}

	return &node{val: strings.Clone(s)}, nil
}

// InsertHead adds a copy of s in front of the current head.
func (q *Queue) InsertHead(s string) error {
	n, err := q.newNode(s)
	if err != nil {
		return err
	}

	n.next = q.head
	q.head = n
	if q.tail == nil {
		q.tail = n
	}
	q.size++

	return nil
}

// InsertTail adds a copy of s after the current tail.
func (q *Queue) InsertTail(s string) error {
	n, err := q.newNode(s)
	if err != nil {
		return err
	}

	q.tail = q.tail.link(n)
	if q.head == nil {
		q.head = n
	}
	q.size++

	return nil
}

// RemoveHead detaches the head node and releases it. If buf is not
// empty, the removed value is copied into it first, truncated to at
// most len(buf)-1 bytes and followed by a zero byte. Truncation is
// not an error.
//
// It returns ErrEmpty, and leaves the queue alone, if there is
// nothing to remove.
func (q *Queue) RemoveHead(buf []byte) error {
	if q == nil {
		return ErrNilQueue
	}
	if q.head == nil {
		return ErrEmpty
	}

	n := q.head
	if len(buf) > 0 {
		c := copy(buf[:len(buf)-1], n.val)
		buf[c] = 0
	}

	q.head = n.next
	if q.head == nil {
		q.tail = nil
	}
	q.size--

	n.release(q.allocator())
	return nil
}

// Peek returns the value at the head of the queue. It returns false
// if the queue is empty.
func (q *Queue) Peek() (v string, ok bool) {
	if q == nil || q.head == nil {
		return v, false
	}
	return q.head.val, true
}

// Size returns the number of values in the queue.
func (q *Queue) Size() int {
	if q == nil {
		return 0
	}
	return q.size
}

// Reverse reverses the order of the queue by relinking its nodes.
func (q *Queue) Reverse() {
	if q == nil || q.size <= 1 {
		return
	}

	var prev *node
	cur := q.head
	for cur != nil {
		next := cur.next
		cur.next = prev
		prev, cur = cur, next
	}

	q.head, q.tail = prev, q.head
}

// Check verifies the structural consistency of the queue, returning
// a description of the first problem found.
func (q *Queue) Check() error {
	if q == nil {
		return nil
	}

	if (q.head == nil) != (q.tail == nil) {
		return errors.New("only one of head and tail is present")
	}
	if q.size == 0 && q.head != nil {
		return errors.New("size is 0 but head is present")
	}
	if q.size == 1 && q.head != q.tail {
		return errors.New("size is 1 but head and tail differ")
	}
	if q.tail != nil && q.tail.next != nil {
		return errors.New("tail is not the last node")
	}

	var count int
	var last *node
	for n := q.head; n != nil; n = n.next {
		count++
		if count > q.size {
			return fmt.Errorf("chain is longer than size %v", q.size)
		}
		last = n
	}
	if count != q.size {
		return fmt.Errorf("chain has %v nodes but size is %v", count, q.size)
	}
	if last != q.tail {
		return errors.New("tail is not reachable from head")
	}

	return nil
}

type node struct {
	val  string
	next *node
}

// link appends next after n, which may be nil, and returns next.
func (n *node) link(next *node) *node {
	if n != nil {
		n.next = next
	}
	return next
}

func (n *node) release(a Allocator) {
	a.Release(valueSize(n.val))
	a.Release(nodeSize)
	n.next = nil
}
