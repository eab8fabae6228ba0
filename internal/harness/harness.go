// Package harness tracks the storage used by queues and can simulate
// allocation failures.
package harness

import (
	"fmt"
	"math/rand/v2"
)

// A Tracker is a listq.Allocator that counts outstanding reservations
// and, while failing is enabled, refuses a percentage of them at
// random. The zero value never fails.
type Tracker struct {
	rng     *rand.Rand
	percent int
	failing bool

	blocks int
	bytes  int

	allocs   int
	failures int
}

// NewTracker returns a Tracker that fails percent% of allocations
// once failing is enabled. Failures are drawn from a PCG source seeded
// with seed, so runs are reproducible.
func NewTracker(percent int, seed uint64) *Tracker {
	return &Tracker{
		rng:     rand.New(rand.NewPCG(seed, seed)),
		percent: clampPercent(percent),
	}
}

func clampPercent(p int) int {
	return min(max(p, 0), 100)
}

// SetPercent changes the failure percentage.
func (t *Tracker) SetPercent(percent int) {
	t.percent = clampPercent(percent)
}

// Percent returns the current failure percentage.
func (t *Tracker) Percent() int {
	return t.percent
}

// SetFailing enables or disables injected failures. Code under test
// typically runs with failures enabled, while the harness's own
// bookkeeping runs with them disabled.
func (t *Tracker) SetFailing(failing bool) {
	t.failing = failing
}

func (t *Tracker) fail() bool {
	if !t.failing || t.percent == 0 || t.rng == nil {
		return false
	}
	return t.rng.IntN(100) < t.percent
}

// Alloc implements listq.Allocator.
func (t *Tracker) Alloc(n int) bool {
	if t.fail() {
		t.failures++
		return false
	}

	t.allocs++
	t.blocks++
	t.bytes += n
	return true
}

// Release implements listq.Allocator. Releasing more than was
// allocated is a bug in the caller and panics.
func (t *Tracker) Release(n int) {
	if t.blocks == 0 || t.bytes < n {
		panic(fmt.Errorf("release of %v bytes with %v blocks (%v bytes) outstanding", n, t.blocks, t.bytes))
	}

	t.blocks--
	t.bytes -= n
}

// Leaked returns the number of blocks and bytes that are currently
// allocated.
func (t *Tracker) Leaked() (blocks, bytes int) {
	return t.blocks, t.bytes
}

// Stats returns the number of successful and refused allocations so
// far.
func (t *Tracker) Stats() (allocs, failures int) {
	return t.allocs, t.failures
}

// Check returns an error if any blocks are still allocated.
func (t *Tracker) Check() error {
	if t.blocks == 0 {
		return nil
	}
	return fmt.Errorf("%v blocks (%v bytes) still allocated", t.blocks, t.bytes)
}
