package layers

import (
	"fmt"
	"math"

	"github.com/meko-christian/algo-approx"

	"github.com/cwbudde/algo-infer/infer/core"
)

// ReLU clamps negative values of x to zero in place.
func ReLU(x []float32) {
	for i, v := range x {
		if v < 0 {
			x[i] = 0
		}
	}
}

// Sigmoid writes 1/(1+exp(-x)) for each element of src into dst.
func Sigmoid(dst, src []float32) error {
	if len(dst) != len(src) {
		return fmt.Errorf("layers: sigmoid %d values into %d: %w", len(src), len(dst), core.ErrInvalidShape)
	}
	for i, v := range src {
		dst[i] = float32(sigmoid(float64(v)))
	}
	return nil
}

// Tanh writes tanh(x) for each element of src into dst.
func Tanh(dst, src []float32) error {
	if len(dst) != len(src) {
		return fmt.Errorf("layers: tanh %d values into %d: %w", len(src), len(dst), core.ErrInvalidShape)
	}
	for i, v := range src {
		dst[i] = float32(2*sigmoid(2*float64(v)) - 1)
	}
	return nil
}

// Softmax writes the normalized exponentials of src into dst. The maximum
// is subtracted first so large scores cannot overflow.
func Softmax(dst, src []float32) error {
	if len(dst) != len(src) {
		return fmt.Errorf("layers: softmax %d values into %d: %w", len(src), len(dst), core.ErrInvalidShape)
	}
	if len(src) == 0 {
		return nil
	}

	maxV := float64(src[0])
	for _, v := range src[1:] {
		maxV = math.Max(maxV, float64(v))
	}

	var sum float64
	for i, v := range src {
		e := expNeg(float64(v) - maxV)
		dst[i] = float32(e)
		sum += e
	}
	inv := 1 / sum
	for i := range dst {
		dst[i] = float32(float64(dst[i]) * inv)
	}
	return nil
}

// Argmax returns the index of the largest element, the first on ties, or
// -1 for an empty slice.
func Argmax(x []float32) int {
	if len(x) == 0 {
		return -1
	}
	best := 0
	for i, v := range x[1:] {
		if v > x[best] {
			best = i + 1
		}
	}
	return best
}

func sigmoid(x float64) float64 {
	switch {
	case x > 40:
		return 1
	case x < -40:
		return 0
	}
	return 1 / (1 + approx.FastExp(-x))
}

// expNeg returns exp(x) for x <= 0, flushing to zero below float32 range.
func expNeg(x float64) float64 {
	if x < -88 {
		return 0
	}
	return approx.FastExp(x)
}
