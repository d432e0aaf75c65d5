// Package core holds the constants, error kinds and numeric helpers shared by
// the inference runtime packages.
package core

import "math"

const (
	// QuantScale maps the float range [-1, 1] onto [-127, 127].
	QuantScale = 127

	// QuantMax is the largest magnitude a quantized value may take.
	QuantMax = 127

	// DenseDivisor collapses the dense accumulator into an activation byte.
	// It deliberately differs from QuantScale; trained weights depend on it.
	DenseDivisor = 128

	// SIMDAlign is the byte alignment of fast buffers (one 256-bit register).
	SIMDAlign = 32

	// PageAlign is the byte alignment of DMA-capable buffers.
	PageAlign = 4096
)

// ClampInt32 limits v to [lo, hi].
func ClampInt32(v, lo, hi int32) int32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// RoundHalfAwayFromZero rounds x to the nearest integer, resolving ties
// away from zero (63.5 -> 64, -63.5 -> -64).
func RoundHalfAwayFromZero(x float32) float32 {
	return float32(math.Round(float64(x)))
}

// AlignUp rounds n up to the next multiple of align. align must be a power
// of two.
func AlignUp(n, align int) int {
	return (n + align - 1) &^ (align - 1)
}

// IsPowerOfTwo reports whether n is a positive power of two.
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// SaturateQ8 quantizes one float: clamp(round(x*127), -127, 127).
// NaN maps to 0. Every quantization path in the runtime funnels through
// this function so scalar and lane kernels agree bit for bit.
func SaturateQ8(x float32) int8 {
	if x != x {
		return 0
	}
	v := RoundHalfAwayFromZero(x * QuantScale)
	if v > QuantMax {
		return QuantMax
	}
	if v < -QuantMax {
		return -QuantMax
	}
	return int8(v)
}

// ExpandQ8 dequantizes one value: q / 127.
func ExpandQ8(q int8) float32 {
	return float32(q) / QuantScale
}
