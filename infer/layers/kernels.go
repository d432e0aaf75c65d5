package layers

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-infer/infer/core"
	"github.com/cwbudde/algo-infer/infer/vector"
)

// DenseForwardQ8 computes one fully connected layer with the default engine.
//
// weights is row-major by output unit: weights[i*inSize+j] connects input j
// to output i. For each output unit the products are summed in int32 and
// the result is clamp(acc/128, 0, 255), dividing with truncation toward
// zero.
func DenseForwardQ8(input, weights []int8, output []uint8, inSize, outSize int) error {
	return DenseForwardQ8With(vector.Default(), input, weights, output, inSize, outSize)
}

// DenseForwardQ8With is DenseForwardQ8 on an explicit engine.
func DenseForwardQ8With(e *vector.Engine, input, weights []int8, output []uint8, inSize, outSize int) error {
	if inSize <= 0 || outSize <= 0 {
		return fmt.Errorf("layers: dense %dx%d: %w", inSize, outSize, core.ErrInvalidShape)
	}
	if len(input) != inSize {
		return fmt.Errorf("layers: dense input has %d values, want %d: %w", len(input), inSize, core.ErrInvalidShape)
	}
	if len(weights) != inSize*outSize {
		return fmt.Errorf("layers: dense weights have %d values, want %d: %w", len(weights), inSize*outSize, core.ErrInvalidShape)
	}
	if len(output) != outSize {
		return fmt.Errorf("layers: dense output has %d values, want %d: %w", len(output), outSize, core.ErrInvalidShape)
	}

	for i := range outSize {
		row := weights[i*inSize : (i+1)*inSize : (i+1)*inSize]
		acc := e.DotQ8(input, row)
		output[i] = uint8(core.ClampInt32(acc/core.DenseDivisor, 0, math.MaxUint8))
	}
	return nil
}

// Conv1DOutputLen returns the valid cross-correlation length, or an error
// when the kernel is empty or longer than the input.
func Conv1DOutputLen(size, kernelSize int) (int, error) {
	if kernelSize == 0 || kernelSize > size {
		return 0, fmt.Errorf("layers: conv1d kernel %d over input %d: %w", kernelSize, size, core.ErrInvalidShape)
	}
	return size - kernelSize + 1, nil
}

// Conv1DQ8 computes the valid cross-correlation of input with kernel using
// the default engine:
//
//	output[p] = clamp(sum_k input[p+k]*kernel[k] / len(kernel), -128, 127)
//
// output must hold exactly len(input)-len(kernel)+1 values.
func Conv1DQ8(input, kernel, output []int8) error {
	return Conv1DQ8With(vector.Default(), input, kernel, output)
}

// Conv1DQ8With is Conv1DQ8 on an explicit engine.
func Conv1DQ8With(e *vector.Engine, input, kernel, output []int8) error {
	n, err := Conv1DOutputLen(len(input), len(kernel))
	if err != nil {
		return err
	}
	if len(output) != n {
		return fmt.Errorf("layers: conv1d output has %d values, want %d: %w", len(output), n, core.ErrInvalidShape)
	}

	k := len(kernel)
	div := int32(k)
	for p := range n {
		acc := e.DotQ8(input[p:p+k:p+k], kernel)
		output[p] = int8(core.ClampInt32(acc/div, math.MinInt8, math.MaxInt8))
	}
	return nil
}

// MaxPoolOutputLen returns the pooled length for non-overlapping windows.
// A trailing partial window is dropped.
func MaxPoolOutputLen(size, window int) (int, error) {
	if window <= 0 || window > size {
		return 0, fmt.Errorf("layers: max pool window %d over input %d: %w", window, size, core.ErrInvalidShape)
	}
	return size / window, nil
}

// MaxPool1DQ8 writes the maximum of each non-overlapping window of input.
func MaxPool1DQ8(input, output []int8, window int) error {
	n, err := MaxPoolOutputLen(len(input), window)
	if err != nil {
		return err
	}
	if len(output) != n {
		return fmt.Errorf("layers: max pool output has %d values, want %d: %w", len(output), n, core.ErrInvalidShape)
	}

	for p := range n {
		w := input[p*window : (p+1)*window]
		m := w[0]
		for _, v := range w[1:] {
			if v > m {
				m = v
			}
		}
		output[p] = m
	}
	return nil
}
