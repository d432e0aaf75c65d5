package vector

import (
	"fmt"
	"sync"

	"github.com/cwbudde/algo-infer/infer/core"
	"github.com/cwbudde/algo-infer/infer/vector/internal/registry"
	"github.com/cwbudde/algo-infer/internal/cpu"
)

// Engine is a kernel set bound to a CPU capability.
type Engine struct {
	entry    *registry.OpEntry
	features cpu.Features
}

var (
	defaultEngine *Engine
	defaultOnce   sync.Once
)

// New returns the engine best suited to features.
func New(features cpu.Features) (*Engine, error) {
	entry := registry.Global.Lookup(features)
	if entry == nil {
		return nil, fmt.Errorf("vector: no kernel set for %s features", features.Architecture)
	}
	return &Engine{entry: entry, features: features}, nil
}

// Scalar returns the engine that runs every operation element by element.
func Scalar() *Engine {
	e, err := New(cpu.Features{ForceGeneric: true})
	if err != nil {
		panic("vector: generic kernels not registered")
	}
	return e
}

// Default returns the engine for the detected CPU, created on first use.
func Default() *Engine {
	defaultOnce.Do(func() {
		e, err := New(cpu.DetectFeatures())
		if err != nil {
			panic(err)
		}
		defaultEngine = e
	})
	return defaultEngine
}

// Name returns the kernel set name (e.g. "generic", "avx2").
func (e *Engine) Name() string { return e.entry.Name }

// Lanes returns the float32 elements processed per vector step.
func (e *Engine) Lanes() int { return e.entry.Lanes }

// Features returns the capability the engine was built from.
func (e *Engine) Features() cpu.Features { return e.features }

// Add computes dst[i] = a[i] + b[i] for i in [0, count).
func (e *Engine) Add(dst, a, b []float32, count int) error {
	if err := checkCount("add", count, len(dst), len(a), len(b)); err != nil {
		return err
	}
	e.entry.Add(dst[:count], a[:count], b[:count])
	return nil
}

// Mul computes dst[i] = a[i] * b[i] for i in [0, count).
func (e *Engine) Mul(dst, a, b []float32, count int) error {
	if err := checkCount("mul", count, len(dst), len(a), len(b)); err != nil {
		return err
	}
	e.entry.Mul(dst[:count], a[:count], b[:count])
	return nil
}

// Quantize saturates src into dst; both must have the same length.
func (e *Engine) Quantize(dst []int8, src []float32) error {
	if len(dst) != len(src) {
		return fmt.Errorf("vector: quantize %d values into %d: %w", len(src), len(dst), core.ErrInvalidShape)
	}
	e.entry.Quantize(dst, src)
	return nil
}

// Dequantize expands src into dst; both must have the same length.
func (e *Engine) Dequantize(dst []float32, src []int8) error {
	if len(dst) != len(src) {
		return fmt.Errorf("vector: dequantize %d values into %d: %w", len(src), len(dst), core.ErrInvalidShape)
	}
	e.entry.Dequantize(dst, src)
	return nil
}

// DotQ8 returns the 32-bit dot product of a and b. It is the inner loop
// of the layer kernels, which validate shapes up front; it panics when the
// lengths differ.
func (e *Engine) DotQ8(a, b []int8) int32 {
	return e.entry.DotQ8(a, b)
}

func checkCount(op string, count int, lens ...int) error {
	if count < 0 {
		return fmt.Errorf("vector: %s with negative count %d: %w", op, count, core.ErrInvalidShape)
	}
	for _, n := range lens {
		if count > n {
			return fmt.Errorf("vector: %s count %d exceeds buffer length %d: %w", op, count, n, core.ErrInvalidShape)
		}
	}
	return nil
}
