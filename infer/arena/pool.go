package arena

import (
	"errors"
	"sync"
)

type poolKey struct {
	dtype DType
	n     int
}

// Pool recycles fast activation tensors between forward passes to keep
// allocation out of the inference loop.
//
// Unlike sync.Pool it never drops a tensor silently: every tensor it holds
// is still tracked by the Arena and is returned to it by Drain.
type Pool struct {
	arena *Arena
	limit int

	mu   sync.Mutex
	free map[poolKey][]*Tensor
}

// NewPool returns a Pool that keeps at most limit idle tensors per shape.
// A non-positive limit keeps 4.
func NewPool(a *Arena, limit int) *Pool {
	if limit <= 0 {
		limit = 4
	}
	return &Pool{
		arena: a,
		limit: limit,
		free:  make(map[poolKey][]*Tensor),
	}
}

// Get returns a zeroed tensor of n elements of dt.
// Callers hand it back with Put when done.
func (p *Pool) Get(dt DType, n int) (*Tensor, error) {
	key := poolKey{dt, n}

	p.mu.Lock()
	for idle := p.free[key]; len(idle) > 0; idle = p.free[key] {
		t := idle[len(idle)-1]
		p.free[key] = idle[:len(idle)-1]
		// Arena.Close may have reclaimed idle tensors.
		if !p.arena.reuse(t) {
			continue
		}
		p.mu.Unlock()
		return t, nil
	}
	p.mu.Unlock()

	return p.arena.AllocateFast(dt, n)
}

// Put returns t to the pool. The caller must not use t afterwards.
// Tensors beyond the idle limit go straight back to the arena.
func (p *Pool) Put(t *Tensor) error {
	if t == nil {
		return nil
	}
	key := poolKey{t.dtype, t.n}

	p.mu.Lock()
	if len(p.free[key]) < p.limit {
		p.free[key] = append(p.free[key], t)
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	return p.arena.Release(t)
}

// Drain releases every idle tensor back to the arena.
func (p *Pool) Drain() error {
	p.mu.Lock()
	free := p.free
	p.free = make(map[poolKey][]*Tensor)
	p.mu.Unlock()

	var errs []error
	for _, idle := range free {
		for _, t := range idle {
			if !p.arena.Owns(t) {
				continue
			}
			if err := p.arena.Release(t); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
