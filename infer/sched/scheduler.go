package sched

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"k8s.io/klog/v2"

	"github.com/cwbudde/algo-infer/infer/core"
)

// Errors returned by the scheduler.
var (
	ErrClosed      = errors.New("sched: scheduler closed")
	ErrNilCallback = errors.New("sched: nil callback")
)

// Scheduler runs one-shot callbacks after a delay.
type Scheduler struct {
	cfg    Config
	log    klog.Logger
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	queue  timerHeap
	nextID uint64
	closed bool

	wake    chan struct{}
	work    chan *Timer
	wg      sync.WaitGroup
	stopped chan struct{}
}

// New starts a scheduler. It stops when ctx is done or Close is called.
func New(ctx context.Context, opts ...Option) *Scheduler {
	cfg := ApplyOptions(opts...)
	log := klog.FromContext(ctx)
	if cfg.Logger != nil {
		log = *cfg.Logger
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &Scheduler{
		cfg:     cfg,
		log:     log.WithName("sched"),
		ctx:     ctx,
		cancel:  cancel,
		wake:    make(chan struct{}, 1),
		work:    make(chan *Timer, cfg.QueueSize),
		stopped: make(chan struct{}),
	}

	s.wg.Add(1 + cfg.Workers)
	go s.dispatch()
	for i := 0; i < cfg.Workers; i++ {
		go s.worker(i)
	}
	go s.shutdown()
	s.log.V(2).Info("scheduler started", "workers", cfg.Workers, "queue", cfg.QueueSize)
	return s
}

var (
	defaultScheduler *Scheduler
	defaultOnce      sync.Once
)

// Default returns a process-wide scheduler with one worker, started on
// first use.
func Default() *Scheduler {
	defaultOnce.Do(func() {
		defaultScheduler = New(context.Background())
	})
	return defaultScheduler
}

// ScheduleOnce schedules fn on the default scheduler.
func ScheduleOnce(delay time.Duration, fn func()) (*Timer, error) {
	return Default().ScheduleOnce(delay, fn)
}

// ScheduleOnce arranges for fn to run once after delay. A non-positive
// delay makes the timer due immediately. fn runs on a worker goroutine and
// must synchronize any state it shares with the caller.
func (s *Scheduler) ScheduleOnce(delay time.Duration, fn func()) (*Timer, error) {
	if fn == nil {
		return nil, ErrNilCallback
	}
	if delay < 0 {
		delay = 0
	}

	s.mu.Lock()
	if s.closed || s.ctx.Err() != nil {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	s.nextID++
	t := &Timer{
		id:       s.nextID,
		owner:    s,
		deadline: time.Now().Add(delay),
		fn:       fn,
		done:     make(chan struct{}),
	}
	heap.Push(&s.queue, t)
	first := t.index == 0
	s.mu.Unlock()

	if first {
		s.poke()
	}
	return t, nil
}

// Cancel stops t if it has not been dispatched yet and reports whether it
// did. Cancelling a timer that already ran, or is running, returns false.
// A nil timer or one from another scheduler is core.ErrInvalidHandle.
func (s *Scheduler) Cancel(t *Timer) (bool, error) {
	if t == nil || t.owner != s {
		return false, fmt.Errorf("sched: cancel of unknown timer: %w", core.ErrInvalidHandle)
	}
	if !t.claimed.CompareAndSwap(false, true) {
		return false, nil
	}

	s.mu.Lock()
	if t.index >= 0 {
		heap.Remove(&s.queue, t.index)
	}
	s.mu.Unlock()

	close(t.done)
	return true, nil
}

// Pending returns the number of timers not yet due.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Len()
}

// Close stops the scheduler and waits for running callbacks to return.
// Timers that have not run by then never will; their Done channels are
// closed. A second Close returns ErrClosed.
func (s *Scheduler) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	<-s.stopped
	return nil
}

// shutdown runs once the context ends, whether through Close or the
// parent. It waits for dispatch and the workers, then drops every timer
// that did not run so no Done channel stays open.
func (s *Scheduler) shutdown() {
	defer close(s.stopped)
	<-s.ctx.Done()
	s.wg.Wait()

	dropped := 0

	// Claimed timers still queued for a worker.
	for drained := false; !drained; {
		select {
		case t := <-s.work:
			close(t.done)
			dropped++
		default:
			drained = true
		}
	}

	// ScheduleOnce rejects new timers once ctx is done, so the queue
	// cannot grow after this point.
	s.mu.Lock()
	pending := s.queue
	s.queue = nil
	for _, t := range pending {
		t.index = -1
	}
	s.mu.Unlock()

	for _, t := range pending {
		if t.claimed.CompareAndSwap(false, true) {
			close(t.done)
			dropped++
		}
	}
	s.log.V(2).Info("scheduler stopped", "dropped", dropped)
}

func (s *Scheduler) poke() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// dispatch is the single loop that moves due timers to the workers. It
// pops one timer at a time so a timer is either in the queue or claimed.
func (s *Scheduler) dispatch() {
	defer s.wg.Done()

	idle := time.NewTimer(time.Hour)
	defer idle.Stop()

	for {
		t, wait := s.popDue(time.Now())
		if t != nil {
			// Cancel may have claimed t between popDue and here.
			if !t.claimed.CompareAndSwap(false, true) {
				continue
			}
			select {
			case s.work <- t:
			case <-s.ctx.Done():
				close(t.done)
				return
			}
			continue
		}

		idle.Reset(wait)
		select {
		case <-s.ctx.Done():
			return
		case <-s.wake:
		case <-idle.C:
		}
		if !idle.Stop() {
			select {
			case <-idle.C:
			default:
			}
		}
	}
}

// popDue removes the earliest timer if it is due at now. Otherwise it
// returns how long to wait for the next one.
func (s *Scheduler) popDue(now time.Time) (*Timer, time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.queue.Len() == 0 {
		return nil, time.Hour
	}
	if next := s.queue[0]; next.deadline.After(now) {
		return nil, next.deadline.Sub(now)
	}
	return heap.Pop(&s.queue).(*Timer), 0
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case t := <-s.work:
			s.run(id, t)
		}
	}
}

func (s *Scheduler) run(worker int, t *Timer) {
	defer close(t.done)
	defer func() {
		if r := recover(); r != nil {
			s.log.Error(fmt.Errorf("%v", r), "timer callback panicked", "timer", t.id, "worker", worker)
		}
	}()

	t.fired.Store(true)
	t.fn()
}
