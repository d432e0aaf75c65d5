// Package lanes holds the lane-parallel kernels.
//
// Each kernel walks the input in full lanes of Width elements, re-slicing
// one lane at a time so the compiler drops bounds checks and can keep the
// lane in registers, then finishes the tail element by element. Lane and
// tail bodies use the same per-element arithmetic as package generic, so
// results are bit-identical for any length.
package lanes

import "github.com/cwbudde/algo-infer/infer/core"

// Kernels is a kernel set for one lane width. Width must be a positive
// multiple of 4.
type Kernels struct {
	Width int
}

// Add performs element-wise addition: dst[i] = a[i] + b[i].
// Slices must have equal length. Panics if lengths differ.
func (k Kernels) Add(dst, a, b []float32) {
	if len(a) != len(b) || len(dst) != len(a) {
		panic("vector: slice length mismatch")
	}
	w := k.Width
	n := len(dst)
	i := 0
	for ; i+w <= n; i += w {
		d := dst[i : i+w : i+w]
		x := a[i : i+w : i+w]
		y := b[i : i+w : i+w]
		for j := 0; j < w; j += 4 {
			d[j] = x[j] + y[j]
			d[j+1] = x[j+1] + y[j+1]
			d[j+2] = x[j+2] + y[j+2]
			d[j+3] = x[j+3] + y[j+3]
		}
	}
	for ; i < n; i++ {
		dst[i] = a[i] + b[i]
	}
}

// Mul performs element-wise multiplication: dst[i] = a[i] * b[i].
// Slices must have equal length. Panics if lengths differ.
func (k Kernels) Mul(dst, a, b []float32) {
	if len(a) != len(b) || len(dst) != len(a) {
		panic("vector: slice length mismatch")
	}
	w := k.Width
	n := len(dst)
	i := 0
	for ; i+w <= n; i += w {
		d := dst[i : i+w : i+w]
		x := a[i : i+w : i+w]
		y := b[i : i+w : i+w]
		for j := 0; j < w; j += 4 {
			d[j] = x[j] * y[j]
			d[j+1] = x[j+1] * y[j+1]
			d[j+2] = x[j+2] * y[j+2]
			d[j+3] = x[j+3] * y[j+3]
		}
	}
	for ; i < n; i++ {
		dst[i] = a[i] * b[i]
	}
}

// Quantize saturates each float into the signed 8-bit domain.
// Slices must have equal length. Panics if lengths differ.
func (k Kernels) Quantize(dst []int8, src []float32) {
	if len(dst) != len(src) {
		panic("vector: slice length mismatch")
	}
	w := k.Width
	n := len(src)
	i := 0
	for ; i+w <= n; i += w {
		d := dst[i : i+w : i+w]
		s := src[i : i+w : i+w]
		for j := 0; j < w; j += 4 {
			d[j] = core.SaturateQ8(s[j])
			d[j+1] = core.SaturateQ8(s[j+1])
			d[j+2] = core.SaturateQ8(s[j+2])
			d[j+3] = core.SaturateQ8(s[j+3])
		}
	}
	for ; i < n; i++ {
		dst[i] = core.SaturateQ8(src[i])
	}
}

// Dequantize maps each quantized value back to float: dst[i] = src[i] / 127.
// Slices must have equal length. Panics if lengths differ.
func (k Kernels) Dequantize(dst []float32, src []int8) {
	if len(dst) != len(src) {
		panic("vector: slice length mismatch")
	}
	w := k.Width
	n := len(src)
	i := 0
	for ; i+w <= n; i += w {
		d := dst[i : i+w : i+w]
		s := src[i : i+w : i+w]
		for j := 0; j < w; j += 4 {
			d[j] = core.ExpandQ8(s[j])
			d[j+1] = core.ExpandQ8(s[j+1])
			d[j+2] = core.ExpandQ8(s[j+2])
			d[j+3] = core.ExpandQ8(s[j+3])
		}
	}
	for ; i < n; i++ {
		dst[i] = core.ExpandQ8(src[i])
	}
}

// DotQ8 returns sum(a[i] * b[i]) accumulated in 32 bits.
//
// Four partial accumulators per lane group are folded at the end. Integer
// addition wraps identically in any order, so the result matches the
// scalar kernel even past int32 overflow.
// Slices must have equal length. Panics if lengths differ.
func (k Kernels) DotQ8(a, b []int8) int32 {
	if len(a) != len(b) {
		panic("vector: slice length mismatch")
	}
	w := k.Width
	n := len(a)
	var acc0, acc1, acc2, acc3 int32
	i := 0
	for ; i+w <= n; i += w {
		x := a[i : i+w : i+w]
		y := b[i : i+w : i+w]
		for j := 0; j < w; j += 4 {
			acc0 += int32(x[j]) * int32(y[j])
			acc1 += int32(x[j+1]) * int32(y[j+1])
			acc2 += int32(x[j+2]) * int32(y[j+2])
			acc3 += int32(x[j+3]) * int32(y[j+3])
		}
	}
	acc := acc0 + acc1 + acc2 + acc3
	for ; i < n; i++ {
		acc += int32(a[i]) * int32(b[i])
	}
	return acc
}
