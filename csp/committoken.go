package csp

import "sync/atomic"

// unclaimed is the sentinel index meaning no operation has won the
// select yet.
const unclaimed int32 = -1

// commitToken is the single cross-channel synchronization primitive used
// by Select: a one-shot compare-and-set cell shared by every waiter
// belonging to one Select call. Whichever channel's counterpart dequeues
// and claims a waiter first wins; every other channel's dequeue of a
// waiter carrying the same token then fails its claim and discards it.
type commitToken struct {
	claimed atomic.Int32
}

func newCommitToken() *commitToken {
	t := &commitToken{}
	t.claimed.Store(unclaimed)
	return t
}

// tryClaim succeeds exactly once, the first time it is called with any
// index, via compare-and-set from unclaimed.
func (t *commitToken) tryClaim(index int) bool {
	return t.claimed.CompareAndSwap(unclaimed, int32(index))
}

// winner returns the committed index, or unclaimed if nothing has won yet.
func (t *commitToken) winner() int {
	return int(t.claimed.Load())
}
