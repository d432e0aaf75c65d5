// Package sched provides the cooperative timing primitives of the runtime:
// Yield, Sleep, a monotonic microsecond clock and one-shot timers.
//
// One-shot timers are (deadline, task) pairs held in a heap and consumed by
// a single dispatch loop. A timer carries an atomic claimed flag: whichever
// of the dispatch loop and Cancel sets it first wins, so a timer either
// runs its callback or reports a successful cancellation, never both.
// Callbacks run on worker goroutines, not on the caller's goroutine.
package sched

import (
	"context"
	"runtime"
	"time"
)

var epoch = time.Now()

// Yield gives up the processor to other goroutines without blocking for a
// minimum duration.
func Yield() {
	runtime.Gosched()
}

// Sleep blocks for at least d or until ctx is done, whichever comes first.
// It returns ctx.Err() when cut short.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Now returns monotonic microseconds since process start.
func Now() int64 {
	return time.Since(epoch).Microseconds()
}
