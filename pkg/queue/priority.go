package queue

import "time"

// Priority identifies which of a PriorityQueue's two FIFOs a payload came
// from or should go to.
type Priority int

const (
	Low Priority = iota
	High
)

func (p Priority) String() string {
	if p == High {
		return "high"
	}
	return "low"
}

// PriorityQueue composes a high-priority and a low-priority Queue with
// strict, non-preemptive priority: Pop always drains everything available
// on the high-priority side before waiting on the low-priority side, and
// never interleaves mid-drain.
type PriorityQueue struct {
	hp *Queue
	lp *Queue
}

// NewPriorityQueue creates an empty high/low priority queue pair.
func NewPriorityQueue() *PriorityQueue {
	return &PriorityQueue{hp: New(), lp: New()}
}

// PushHigh enqueues a payload on the high-priority side.
func (pq *PriorityQueue) PushHigh(item []byte) { pq.hp.Push(item) }

// PushLow enqueues a payload on the low-priority side.
func (pq *PriorityQueue) PushLow(item []byte) { pq.lp.Push(item) }

// Pop attempts a non-blocking receive from the high-priority queue first;
// if that is empty, it attempts a bounded wait (lpTimeout) on the
// low-priority queue. ok is false if both were empty for the full attempt.
func (pq *PriorityQueue) Pop(lpTimeout time.Duration) (item []byte, priority Priority, ok bool) {
	if item, ok := pq.hp.PopNoWait(); ok {
		return item, High, true
	}
	if item, ok := pq.lp.PopWait(lpTimeout); ok {
		return item, Low, true
	}
	return nil, 0, false
}

// HighLen and LowLen report current depth, used by monitoring snapshots.
func (pq *PriorityQueue) HighLen() int { return pq.hp.Len() }
func (pq *PriorityQueue) LowLen() int  { return pq.lp.Len() }

// Clean empties both queues, discarding their contents. Used by the
// manager's clean_queue operation.
func (pq *PriorityQueue) Clean() {
	pq.hp.Drain()
	pq.lp.Drain()
}

// Close closes both underlying queues.
func (pq *PriorityQueue) Close() {
	pq.hp.Close()
	pq.lp.Close()
}

// Empty reports whether both the high- and low-priority queues are
// currently empty, the condition a clean shutdown waits for.
func (pq *PriorityQueue) Empty() bool {
	return pq.hp.Len() == 0 && pq.lp.Len() == 0
}
