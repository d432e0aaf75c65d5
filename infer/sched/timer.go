package sched

import (
	"sync/atomic"
	"time"
)

// Timer is the handle of one scheduled callback.
type Timer struct {
	id       uint64
	owner    *Scheduler
	deadline time.Time
	fn       func()

	// claimed is set exactly once, by dispatch or by Cancel.
	claimed atomic.Bool
	fired   atomic.Bool

	// index is the heap position, -1 once removed. Guarded by owner.mu.
	index int

	done chan struct{}
}

// Deadline returns when the timer becomes due.
func (t *Timer) Deadline() time.Time { return t.deadline }

// Done is closed once the callback has returned, the timer was cancelled,
// or the scheduler shut down before running it.
func (t *Timer) Done() <-chan struct{} { return t.done }

// Fired reports whether the callback was started.
func (t *Timer) Fired() bool { return t.fired.Load() }

// timerHeap orders timers by deadline, then by scheduling order.
type timerHeap []*Timer

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].deadline.Equal(h[j].deadline) {
		return h[i].id < h[j].id
	}
	return h[i].deadline.Before(h[j].deadline)
}

func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x any) {
	t := x.(*Timer)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}
