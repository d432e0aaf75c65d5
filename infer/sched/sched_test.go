package sched

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/klog/v2/ktesting"

	"github.com/cwbudde/algo-infer/infer/core"
)

func newScheduler(t *testing.T, opts ...Option) *Scheduler {
	t.Helper()
	_, ctx := ktesting.NewTestContext(t)
	s := New(ctx, opts...)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func waitDone(t *testing.T, tm *Timer) {
	t.Helper()
	select {
	case <-tm.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("timer never completed")
	}
}

func TestYieldReturns(t *testing.T) {
	for i := 0; i < 100; i++ {
		Yield()
	}
}

func TestSleep(t *testing.T) {
	start := time.Now()
	require.NoError(t, Sleep(context.Background(), 20*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)

	assert.NoError(t, Sleep(context.Background(), 0))
}

func TestSleep_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := Sleep(ctx, time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 30*time.Second)
}

func TestNowIsMonotonic(t *testing.T) {
	a := Now()
	time.Sleep(2 * time.Millisecond)
	b := Now()
	assert.GreaterOrEqual(t, b-a, int64(2000))
}

func TestScheduleOnce_RunsAfterDelay(t *testing.T) {
	s := newScheduler(t)

	start := time.Now()
	var ranAt atomic.Int64
	tm, err := s.ScheduleOnce(15*time.Millisecond, func() {
		ranAt.Store(int64(time.Since(start)))
	})
	require.NoError(t, err)

	waitDone(t, tm)
	assert.True(t, tm.Fired())
	assert.GreaterOrEqual(t, time.Duration(ranAt.Load()), 15*time.Millisecond)

	cancelled, err := s.Cancel(tm)
	require.NoError(t, err)
	assert.False(t, cancelled, "cancel after firing is a no-op")
}

func TestScheduleOnce_DeadlineOrder(t *testing.T) {
	s := newScheduler(t)

	var mu sync.Mutex
	var order []int
	record := func(n int) func() {
		return func() {
			mu.Lock()
			order = append(order, n)
			mu.Unlock()
		}
	}

	t3, err := s.ScheduleOnce(60*time.Millisecond, record(3))
	require.NoError(t, err)
	_, err = s.ScheduleOnce(20*time.Millisecond, record(1))
	require.NoError(t, err)
	_, err = s.ScheduleOnce(40*time.Millisecond, record(2))
	require.NoError(t, err)

	waitDone(t, t3)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestCancel_BeforeDue(t *testing.T) {
	s := newScheduler(t)

	var ran atomic.Bool
	tm, err := s.ScheduleOnce(time.Hour, func() { ran.Store(true) })
	require.NoError(t, err)
	assert.Equal(t, 1, s.Pending())

	cancelled, err := s.Cancel(tm)
	require.NoError(t, err)
	assert.True(t, cancelled)
	assert.Equal(t, 0, s.Pending())
	waitDone(t, tm)

	cancelled, err = s.Cancel(tm)
	require.NoError(t, err)
	assert.False(t, cancelled, "second cancel reports nothing")
	assert.False(t, ran.Load())
	assert.False(t, tm.Fired())
}

func TestCancel_InvalidHandles(t *testing.T) {
	s1 := newScheduler(t)
	s2 := newScheduler(t)

	_, err := s1.Cancel(nil)
	assert.ErrorIs(t, err, core.ErrInvalidHandle)

	tm, err := s2.ScheduleOnce(time.Hour, func() {})
	require.NoError(t, err)
	_, err = s1.Cancel(tm)
	assert.ErrorIs(t, err, core.ErrInvalidHandle)
}

// Each trial either cancels or runs, never both, and no callback runs twice.
func TestCancelRace_AtMostOnce(t *testing.T) {
	s := newScheduler(t, WithWorkers(4))

	const trials = 2000
	counts := make([]atomic.Int32, trials)
	cancelled := make([]bool, trials)
	timers := make([]*Timer, trials)

	for i := range trials {
		tm, err := s.ScheduleOnce(0, func() { counts[i].Add(1) })
		require.NoError(t, err)
		ok, err := s.Cancel(tm)
		require.NoError(t, err)
		cancelled[i] = ok
		timers[i] = tm
	}
	for _, tm := range timers {
		waitDone(t, tm)
	}
	require.NoError(t, s.Close())

	for i := range trials {
		n := counts[i].Load()
		assert.LessOrEqual(t, n, int32(1), "trial %d ran %d times", i, n)
		if cancelled[i] {
			assert.Zero(t, n, "trial %d was cancelled and ran", i)
		} else {
			assert.Equal(t, int32(1), n, "trial %d was neither cancelled nor run", i)
		}
	}
}

func TestPanicInCallbackIsRecovered(t *testing.T) {
	s := newScheduler(t)

	bad, err := s.ScheduleOnce(0, func() { panic("boom") })
	require.NoError(t, err)
	waitDone(t, bad)

	var ran atomic.Bool
	good, err := s.ScheduleOnce(0, func() { ran.Store(true) })
	require.NoError(t, err)
	waitDone(t, good)
	assert.True(t, ran.Load())
}

func TestClose(t *testing.T) {
	_, ctx := ktesting.NewTestContext(t)
	s := New(ctx)

	var ran atomic.Bool
	tm, err := s.ScheduleOnce(time.Hour, func() { ran.Store(true) })
	require.NoError(t, err)

	require.NoError(t, s.Close())
	waitDone(t, tm)
	assert.False(t, ran.Load())

	cancelled, err := s.Cancel(tm)
	require.NoError(t, err)
	assert.False(t, cancelled)

	_, err = s.ScheduleOnce(0, func() {})
	assert.ErrorIs(t, err, ErrClosed)
	assert.True(t, errors.Is(s.Close(), ErrClosed))
}

func TestContextCancelStopsScheduler(t *testing.T) {
	_, ctx := ktesting.NewTestContext(t)
	ctx, cancel := context.WithCancel(ctx)
	s := New(ctx)
	defer s.Close()

	cancel()
	_, err := s.ScheduleOnce(0, func() {})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestScheduleOnce_NilCallback(t *testing.T) {
	s := newScheduler(t)
	_, err := s.ScheduleOnce(0, nil)
	assert.ErrorIs(t, err, ErrNilCallback)
}

func TestDefaultScheduler(t *testing.T) {
	done := make(chan struct{})
	tm, err := ScheduleOnce(time.Millisecond, func() { close(done) })
	require.NoError(t, err)
	waitDone(t, tm)

	select {
	case <-done:
	default:
		t.Fatal("callback did not run before Done closed")
	}
	assert.Same(t, Default(), Default())
}

// blockWorker occupies a single worker until the returned func is called.
func blockWorker(t *testing.T, s *Scheduler) func() {
	t.Helper()
	started := make(chan struct{})
	release := make(chan struct{})
	_, err := s.ScheduleOnce(0, func() {
		close(started)
		<-release
	})
	require.NoError(t, err)
	<-started
	return func() { close(release) }
}

func TestContextCancel_BufferedTimerCompletes(t *testing.T) {
	for trial := 0; trial < 40; trial++ {
		_, ctx := ktesting.NewTestContext(t)
		ctx, cancel := context.WithCancel(ctx)
		s := New(ctx, WithWorkers(1))

		release := blockWorker(t, s)
		tm, err := s.ScheduleOnce(0, func() {})
		require.NoError(t, err)
		require.Eventually(t, func() bool { return s.Pending() == 0 }, time.Second, time.Millisecond)

		cancel()
		release()
		ok, err := s.Cancel(tm)
		require.NoError(t, err)
		assert.False(t, ok, "dispatched timer must not be cancellable")

		// No Close: the context alone must settle every timer.
		waitDone(t, tm)
		require.NoError(t, s.Close())
	}
}

func TestContextCancel_UnbufferedQueue(t *testing.T) {
	_, ctx := ktesting.NewTestContext(t)
	ctx, cancel := context.WithCancel(ctx)
	s := New(ctx, WithWorkers(1), WithQueueSize(0))

	release := blockWorker(t, s)
	var timers []*Timer
	for _, d := range []time.Duration{0, 0, 0, time.Hour} {
		tm, err := s.ScheduleOnce(d, func() {})
		require.NoError(t, err)
		timers = append(timers, tm)
	}
	require.Eventually(t, func() bool { return s.Pending() <= 3 }, time.Second, time.Millisecond)

	cancel()
	release()
	for _, tm := range timers {
		waitDone(t, tm)
	}
	assert.False(t, timers[3].Fired())
	require.NoError(t, s.Close())
}
