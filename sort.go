package listq

// Sort sorts the queue into ascending byte-wise order by relinking its
// nodes with a merge sort. Equal values keep their relative order. No
// nodes are allocated or released.
func (q *Queue) Sort() {
	if q == nil || q.size <= 1 {
		return
	}

	q.head = mergeSort(q.head)

	// The merge doesn't track the last node, so find it again.
	tail := q.head
	for tail.next != nil {
		tail = tail.next
	}
	q.tail = tail
}

// mergeSort sorts the chain starting at head and returns its new
// first node.
func mergeSort(head *node) *node {
	if head == nil || head.next == nil {
		return head
	}

	mid := split(head)
	return merge(mergeSort(head), mergeSort(mid))
}

// split cuts the chain starting at head after its middle node and
// returns the first node of the second half. For an odd length, the
// first half gets the extra node.
func split(head *node) *node {
	slow, fast := head, head.next
	for fast != nil && fast.next != nil {
		slow = slow.next
		fast = fast.next.next
	}

	mid := slow.next
	slow.next = nil
	return mid
}

// merge combines two sorted chains into one. When the front values
// are equal, the node from a goes first.
func merge(a, b *node) *node {
	var head node
	cur := &head
	for a != nil && b != nil {
		if a.val <= b.val {
			cur.next, a = a, a.next
		} else {
			cur.next, b = b, b.next
		}
		cur = cur.next
	}

	if a != nil {
		cur.next = a
	} else {
		cur.next = b
	}
	return head.next
}
