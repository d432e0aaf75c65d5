package arena

import (
	"errors"
	"fmt"
	"sync"

	"k8s.io/klog/v2"

	"github.com/cwbudde/algo-infer/infer/core"
)

// Arena owns every raw buffer handed to layers and codecs.
// It is safe for concurrent use.
type Arena struct {
	cfg Config
	log klog.Logger

	mu        sync.Mutex
	nextID    uint64
	live      map[uint64]*Tensor
	fastBytes int64
	dmaBytes  int64
}

// Stats summarizes live allocations.
type Stats struct {
	Live      int
	FastBytes int64
	DMABytes  int64
}

// New returns an empty Arena.
func New(opts ...Option) *Arena {
	cfg := ApplyOptions(opts...)
	return &Arena{
		cfg:  cfg,
		log:  cfg.Logger,
		live: make(map[uint64]*Tensor),
	}
}

// AllocateFast returns a zeroed tensor of n elements aligned to
// core.SIMDAlign. It fails with core.ErrOutOfMemory when the request would
// exceed the configured capacity.
func (a *Arena) AllocateFast(dt DType, n int) (*Tensor, error) {
	size, err := byteSize(dt, n, core.SIMDAlign)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cfg.Capacity > 0 && a.fastBytes+int64(size) > a.cfg.Capacity {
		return nil, fmt.Errorf("arena: fast request of %d bytes exceeds capacity (%d of %d in use): %w",
			size, a.fastBytes, a.cfg.Capacity, core.ErrOutOfMemory)
	}

	buf, backing := alignedWindow(size, core.SIMDAlign)
	t := &Tensor{
		dtype:   dt,
		n:       n,
		align:   core.SIMDAlign,
		buf:     buf,
		backing: backing,
	}
	a.track(t)
	a.fastBytes += int64(size)
	return t, nil
}

// AllocateDMA returns a zeroed, page-aligned tensor backed by a locked
// anonymous mapping. Platforms without memory locking report
// core.ErrHardwareUnavailable; callers fall back to AllocateFast.
func (a *Arena) AllocateDMA(dt DType, n int) (*Tensor, error) {
	size, err := byteSize(dt, n, core.PageAlign)
	if err != nil {
		return nil, err
	}
	if size == 0 {
		size = core.PageAlign
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cfg.DMACapacity > 0 && a.dmaBytes+int64(size) > a.cfg.DMACapacity {
		return nil, fmt.Errorf("arena: dma request of %d bytes exceeds capacity (%d of %d locked): %w",
			size, a.dmaBytes, a.cfg.DMACapacity, core.ErrOutOfMemory)
	}

	region, err := mapLocked(size)
	if err != nil {
		a.log.V(1).Info("dma allocation failed", "bytes", size, "err", err)
		return nil, err
	}

	t := &Tensor{
		dtype:   dt,
		n:       n,
		align:   core.PageAlign,
		buf:     region,
		backing: region,
		dma:     true,
	}
	a.track(t)
	a.dmaBytes += int64(size)
	a.log.V(2).Info("dma region locked", "bytes", size, "locked", a.dmaBytes)
	return t, nil
}

// Release frees t immediately. Sensitive buffers are zeroed first.
// Releasing a tensor twice or one this arena does not own reports
// core.ErrInvalidHandle.
func (a *Arena) Release(t *Tensor) error {
	if t == nil {
		return fmt.Errorf("arena: release of nil tensor: %w", core.ErrInvalidHandle)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if t.owner != a {
		return fmt.Errorf("arena: tensor not owned by this arena: %w", core.ErrInvalidHandle)
	}
	if _, ok := a.live[t.id]; !ok {
		return fmt.Errorf("arena: tensor %d already released: %w", t.id, core.ErrInvalidHandle)
	}
	return a.releaseLocked(t)
}

func (a *Arena) releaseLocked(t *Tensor) error {
	delete(a.live, t.id)

	if t.sensitive {
		clear(t.buf)
	}

	var err error
	size := int64(len(t.buf))
	if t.dma {
		err = unmapLocked(t.backing)
		a.dmaBytes -= size
		a.log.V(2).Info("dma region released", "bytes", size, "locked", a.dmaBytes)
	} else {
		a.fastBytes -= size
	}

	t.buf = nil
	t.backing = nil
	t.owner = nil
	return err
}

// Owns reports whether t is live in this arena. Unlike Tensor.Released it
// is safe to call while another goroutine closes the arena.
func (a *Arena) Owns(t *Tensor) bool {
	if t == nil {
		return false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if t.owner != a {
		return false
	}
	_, ok := a.live[t.id]
	return ok
}

// reuse zeroes t for another round if it is still live in a.
func (a *Arena) reuse(t *Tensor) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.live[t.id]; !ok || t.owner != a {
		return false
	}
	clear(t.buf)
	return true
}

// Stats returns a snapshot of live allocations.
func (a *Arena) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Stats{
		Live:      len(a.live),
		FastBytes: a.fastBytes,
		DMABytes:  a.dmaBytes,
	}
}

// Close releases every tensor still live.
func (a *Arena) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var errs []error
	for _, t := range a.live {
		if err := a.releaseLocked(t); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// track registers t; a.mu must be held.
func (a *Arena) track(t *Tensor) {
	a.nextID++
	t.id = a.nextID
	t.owner = a
	a.live[t.id] = t
}

func byteSize(dt DType, n, align int) (int, error) {
	if dt.Size() == 0 {
		return 0, fmt.Errorf("arena: unknown dtype %d: %w", dt, core.ErrInvalidShape)
	}
	if n < 0 {
		return 0, fmt.Errorf("arena: negative length %d: %w", n, core.ErrInvalidShape)
	}
	return core.AlignUp(n*dt.Size(), align), nil
}
