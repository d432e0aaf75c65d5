// Package generic holds the all-scalar reference kernels. They define the
// arithmetic every lane kernel must reproduce exactly.
package generic

import "github.com/cwbudde/algo-infer/infer/core"

// Add performs element-wise addition: dst[i] = a[i] + b[i].
// Slices must have equal length. Panics if lengths differ.
func Add(dst, a, b []float32) {
	if len(a) != len(b) || len(dst) != len(a) {
		panic("vector: slice length mismatch")
	}
	for i := range dst {
		dst[i] = a[i] + b[i]
	}
}

// Mul performs element-wise multiplication: dst[i] = a[i] * b[i].
// Slices must have equal length. Panics if lengths differ.
func Mul(dst, a, b []float32) {
	if len(a) != len(b) || len(dst) != len(a) {
		panic("vector: slice length mismatch")
	}
	for i := range dst {
		dst[i] = a[i] * b[i]
	}
}

// Quantize saturates each float into the signed 8-bit domain.
// Slices must have equal length. Panics if lengths differ.
func Quantize(dst []int8, src []float32) {
	if len(dst) != len(src) {
		panic("vector: slice length mismatch")
	}
	for i, x := range src {
		dst[i] = core.SaturateQ8(x)
	}
}

// Dequantize maps each quantized value back to float: dst[i] = src[i] / 127.
// Slices must have equal length. Panics if lengths differ.
func Dequantize(dst []float32, src []int8) {
	if len(dst) != len(src) {
		panic("vector: slice length mismatch")
	}
	for i, q := range src {
		dst[i] = core.ExpandQ8(q)
	}
}

// DotQ8 returns sum(a[i] * b[i]) accumulated in 32 bits.
// Slices must have equal length. Panics if lengths differ.
func DotQ8(a, b []int8) int32 {
	if len(a) != len(b) {
		panic("vector: slice length mismatch")
	}
	var acc int32
	for i := range a {
		acc += int32(a[i]) * int32(b[i])
	}
	return acc
}
