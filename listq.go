// Package listq provides a queue of strings backed by a singly-linked
// list. Besides the usual FIFO operations, a Queue can insert at
// either end and can be reversed and sorted in place by relinking its
// nodes.
//
// A Queue is not safe for concurrent use.
package listq

import "errors"

var (
	// ErrNilQueue is returned by operations invoked on a nil *Queue.
	ErrNilQueue = errors.New("listq: nil queue")

	// ErrEmpty is returned when removing from an empty queue.
	ErrEmpty = errors.New("listq: queue is empty")

	// ErrNoMemory is returned when the queue's Allocator refuses a
	// request. The queue is left unmodified.
	ErrNoMemory = errors.New("listq: allocation failed")
)

type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}
