package layers

import (
	"fmt"

	"github.com/cwbudde/algo-infer/infer/arena"
	"github.com/cwbudde/algo-infer/infer/core"
	"github.com/cwbudde/algo-infer/infer/quant"
	"github.com/cwbudde/algo-infer/infer/vector"
)

// Kind identifies a layer variant.
type Kind int

const (
	KindDense Kind = iota
	KindConv1D
	KindMaxPool
)

// String returns the layer kind name.
func (k Kind) String() string {
	switch k {
	case KindDense:
		return "dense"
	case KindConv1D:
		return "conv1d"
	case KindMaxPool:
		return "maxpool"
	default:
		return "unknown"
	}
}

// Layer is one stage of a quantized forward pass.
//
// Forward borrows src and dst for the duration of the call. dst must not be
// shared with a concurrent Forward.
type Layer interface {
	Kind() Kind
	OutputLen(inputLen int) (int, error)
	Forward(dst, src []int8) error
	Release() error
}

var errDenseReleased = fmt.Errorf("layers: dense used after release: %w", core.ErrInvalidHandle)

var (
	_ Layer = (*Dense)(nil)
	_ Layer = (*Conv1D)(nil)
	_ Layer = (*MaxPool)(nil)
)

// quantizeWeights copies w into a new sensitive int8 tensor owned by a.
func quantizeWeights(a *arena.Arena, e *vector.Engine, w []float32) (*arena.Tensor, error) {
	t, err := a.AllocateFast(arena.Int8, len(w))
	if err != nil {
		return nil, err
	}
	t.MarkSensitive()
	if err := e.Quantize(t.Int8(), w); err != nil {
		_ = a.Release(t)
		return nil, err
	}
	return t, nil
}

// Dense is a fully connected layer with ReLU-like unsigned output.
type Dense struct {
	cfg     Config
	arena   *arena.Arena
	pool    *arena.Pool
	ownPool bool
	weights *arena.Tensor
	in, out int
}

// NewDense quantizes weights (row-major by output unit, out*in values) into
// a layer owned by a.
func NewDense(a *arena.Arena, weights []float32, in, out int, opts ...Option) (*Dense, error) {
	if in <= 0 || out <= 0 || len(weights) != in*out {
		return nil, fmt.Errorf("layers: dense %dx%d with %d weights: %w", in, out, len(weights), core.ErrInvalidShape)
	}
	cfg := ApplyOptions(opts...)

	w, err := quantizeWeights(a, cfg.Engine, weights)
	if err != nil {
		return nil, err
	}

	d := &Dense{cfg: cfg, arena: a, pool: cfg.Pool, weights: w, in: in, out: out}
	if d.pool == nil {
		d.pool = arena.NewPool(a, 0)
		d.ownPool = true
	}
	return d, nil
}

// Kind returns KindDense.
func (d *Dense) Kind() Kind { return KindDense }

// In returns the input width.
func (d *Dense) In() int { return d.in }

// Out returns the output width.
func (d *Dense) Out() int { return d.out }

// Weights returns the quantized weights. Callers must not modify them.
func (d *Dense) Weights() []int8 { return d.weights.Int8() }

// OutputLen returns Out when inputLen matches In.
func (d *Dense) OutputLen(inputLen int) (int, error) {
	if inputLen != d.in {
		return 0, fmt.Errorf("layers: dense input %d, want %d: %w", inputLen, d.in, core.ErrInvalidShape)
	}
	return d.out, nil
}

// ForwardU8 writes the raw activation bytes (0..255) of src into dst.
func (d *Dense) ForwardU8(dst []uint8, src []int8) error {
	if !d.arena.Owns(d.weights) {
		return errDenseReleased
	}
	return DenseForwardQ8With(d.cfg.Engine, src, d.weights.Int8(), dst, d.in, d.out)
}

// Forward computes the layer and saturates the activations into the signed
// domain so the result can feed the next layer.
func (d *Dense) Forward(dst, src []int8) error {
	if !d.arena.Owns(d.weights) {
		return errDenseReleased
	}
	if len(dst) != d.out {
		return fmt.Errorf("layers: dense output has %d values, want %d: %w", len(dst), d.out, core.ErrInvalidShape)
	}

	scratch, err := d.pool.Get(arena.Uint8, d.out)
	if err != nil {
		return err
	}
	defer func() { _ = d.pool.Put(scratch) }()

	if err := d.ForwardU8(scratch.Uint8(), src); err != nil {
		return err
	}
	return quant.SaturateU8ToI8(dst, scratch.Uint8())
}

// Release zeroes and returns the weights to the arena. Releasing twice
// reports core.ErrInvalidHandle.
func (d *Dense) Release() error {
	if err := d.arena.Release(d.weights); err != nil {
		return err
	}
	if d.ownPool {
		return d.pool.Drain()
	}
	return nil
}

// Conv1D is a single-channel valid cross-correlation layer.
type Conv1D struct {
	cfg    Config
	arena  *arena.Arena
	kernel *arena.Tensor
}

// NewConv1D quantizes kernel into a layer owned by a.
func NewConv1D(a *arena.Arena, kernel []float32, opts ...Option) (*Conv1D, error) {
	if len(kernel) == 0 {
		return nil, fmt.Errorf("layers: empty conv1d kernel: %w", core.ErrInvalidShape)
	}
	cfg := ApplyOptions(opts...)

	k, err := quantizeWeights(a, cfg.Engine, kernel)
	if err != nil {
		return nil, err
	}
	return &Conv1D{cfg: cfg, arena: a, kernel: k}, nil
}

// Kind returns KindConv1D.
func (c *Conv1D) Kind() Kind { return KindConv1D }

// Kernel returns the quantized kernel. Callers must not modify it.
func (c *Conv1D) Kernel() []int8 { return c.kernel.Int8() }

// OutputLen returns inputLen-len(kernel)+1.
func (c *Conv1D) OutputLen(inputLen int) (int, error) {
	return Conv1DOutputLen(inputLen, c.kernel.Len())
}

// Forward correlates src with the kernel into dst.
func (c *Conv1D) Forward(dst, src []int8) error {
	if !c.arena.Owns(c.kernel) {
		return fmt.Errorf("layers: conv1d used after release: %w", core.ErrInvalidHandle)
	}
	return Conv1DQ8With(c.cfg.Engine, src, c.kernel.Int8(), dst)
}

// Release zeroes and returns the kernel to the arena.
func (c *Conv1D) Release() error {
	return c.arena.Release(c.kernel)
}

// MaxPool is a weightless non-overlapping max pooling layer.
type MaxPool struct {
	window   int
	released bool
}

// NewMaxPool returns a pooling layer over windows of the given width.
func NewMaxPool(window int) (*MaxPool, error) {
	if window <= 0 {
		return nil, fmt.Errorf("layers: max pool window %d: %w", window, core.ErrInvalidShape)
	}
	return &MaxPool{window: window}, nil
}

// Kind returns KindMaxPool.
func (m *MaxPool) Kind() Kind { return KindMaxPool }

// OutputLen returns inputLen/window.
func (m *MaxPool) OutputLen(inputLen int) (int, error) {
	return MaxPoolOutputLen(inputLen, m.window)
}

// Forward pools src into dst.
func (m *MaxPool) Forward(dst, src []int8) error {
	if m.released {
		return fmt.Errorf("layers: max pool used after release: %w", core.ErrInvalidHandle)
	}
	return MaxPool1DQ8(src, dst, m.window)
}

// Release marks the layer unusable.
func (m *MaxPool) Release() error {
	if m.released {
		return fmt.Errorf("layers: max pool released twice: %w", core.ErrInvalidHandle)
	}
	m.released = true
	return nil
}
