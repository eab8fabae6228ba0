package listq

import "iter"

// All returns an iterator over the values of the queue from head to
// tail. The queue must not be modified during iteration.
func (q *Queue) All() iter.Seq[string] {
	return func(yield func(string) bool) {
		if q == nil {
			return
		}

		cur := q.head
		for cur != nil {
			if !yield(cur.val) {
				return
			}
			cur = cur.next
		}
	}
}
