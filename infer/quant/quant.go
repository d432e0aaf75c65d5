// Package quant converts between float32 tensors and the runtime's signed
// 8-bit fixed-point representation.
//
// The scale is the process-wide constant 127: the float range [-1, 1] maps
// onto [-127, 127]. Values outside the range saturate, they never wrap:
//
//	q = clamp(round(x * 127), -127, 127)   // round half away from zero
//	x = q / 127
//
// For x in [-1, 1], |Dequantize(Quantize(x)) - x| <= 1/127.
package quant

import (
	"fmt"

	"github.com/cwbudde/algo-infer/infer/arena"
	"github.com/cwbudde/algo-infer/infer/core"
	"github.com/cwbudde/algo-infer/infer/vector"
)

// Scale is the float-to-fixed scale factor.
const Scale = core.QuantScale

// MaxError is the round-trip bound for inputs in [-1, 1].
const MaxError = 1.0 / Scale

// QuantizeValue quantizes one float.
func QuantizeValue(x float32) int8 { return core.SaturateQ8(x) }

// DequantizeValue expands one quantized value.
func DequantizeValue(q int8) float32 { return core.ExpandQ8(q) }

// QuantizeTo quantizes src into dst with the default engine.
func QuantizeTo(dst []int8, src []float32) error {
	return vector.Default().Quantize(dst, src)
}

// DequantizeTo expands src into dst with the default engine.
func DequantizeTo(dst []float32, src []int8) error {
	return vector.Default().Dequantize(dst, src)
}

// SaturateU8ToI8 narrows non-negative activation bytes into the signed
// domain, clamping values above 127.
// dst and src must have the same length.
func SaturateU8ToI8(dst []int8, src []uint8) error {
	if len(dst) != len(src) {
		return fmt.Errorf("quant: saturate %d values into %d: %w", len(src), len(dst), core.ErrInvalidShape)
	}
	for i, v := range src {
		if v > core.QuantMax {
			v = core.QuantMax
		}
		dst[i] = int8(v)
	}
	return nil
}

// Codec quantizes whole tensors, allocating each destination from an arena.
type Codec struct {
	arena  *arena.Arena
	engine *vector.Engine
}

// NewCodec returns a Codec. A nil engine selects vector.Default().
func NewCodec(a *arena.Arena, e *vector.Engine) *Codec {
	if e == nil {
		e = vector.Default()
	}
	return &Codec{arena: a, engine: e}
}

// Quantize returns a new int8 tensor holding the quantized elements of src.
// src must be a live float32 tensor.
func (c *Codec) Quantize(src *arena.Tensor) (*arena.Tensor, error) {
	if err := checkSource(src, arena.Float32); err != nil {
		return nil, err
	}
	dst, err := c.arena.AllocateFast(arena.Int8, src.Len())
	if err != nil {
		return nil, err
	}
	if err := c.engine.Quantize(dst.Int8(), src.Float32()); err != nil {
		_ = c.arena.Release(dst)
		return nil, err
	}
	return dst, nil
}

// Dequantize returns a new float32 tensor holding src / 127.
// src must be a live int8 tensor.
func (c *Codec) Dequantize(src *arena.Tensor) (*arena.Tensor, error) {
	if err := checkSource(src, arena.Int8); err != nil {
		return nil, err
	}
	dst, err := c.arena.AllocateFast(arena.Float32, src.Len())
	if err != nil {
		return nil, err
	}
	if err := c.engine.Dequantize(dst.Float32(), src.Int8()); err != nil {
		_ = c.arena.Release(dst)
		return nil, err
	}
	return dst, nil
}

func checkSource(t *arena.Tensor, want arena.DType) error {
	if t == nil || t.Released() {
		return fmt.Errorf("quant: source tensor is not live: %w", core.ErrInvalidHandle)
	}
	if t.DType() != want {
		return fmt.Errorf("quant: source is %s, want %s: %w", t.DType(), want, core.ErrInvalidShape)
	}
	return nil
}
