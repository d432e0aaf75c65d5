package layers

import (
	"fmt"

	algofft "github.com/MeKo-Christian/algo-fft"

	"github.com/cwbudde/algo-infer/infer/core"
)

// fftThreshold is the kernel length from which Conv1DReference switches
// from direct summation to FFT correlation.
const fftThreshold = 32

// Conv1DReference computes the unscaled valid cross-correlation of input
// with kernel in float64. It is the reference the quantized Conv1DQ8 is
// checked against: Conv1DQ8's accumulator divided by len(kernel) should
// track this result divided by len(kernel) times the quantization scales.
func Conv1DReference(input, kernel []float64) ([]float64, error) {
	n, err := Conv1DOutputLen(len(input), len(kernel))
	if err != nil {
		return nil, err
	}
	if len(kernel) < fftThreshold {
		return correlateDirect(input, kernel, n), nil
	}
	return correlateFFT(input, kernel, n)
}

func correlateDirect(input, kernel []float64, n int) []float64 {
	out := make([]float64, n)
	for p := range out {
		var sum float64
		for k, h := range kernel {
			sum += input[p+k] * h
		}
		out[p] = sum
	}
	return out
}

// correlateFFT convolves input with the reversed kernel and keeps the fully
// overlapping lags.
func correlateFFT(input, kernel []float64, n int) ([]float64, error) {
	m := len(kernel)
	fftSize := nextPowerOf2(len(input) + m - 1)

	plan, err := algofft.NewPlan64(fftSize)
	if err != nil {
		return nil, fmt.Errorf("layers: failed to create FFT plan: %w", err)
	}

	xPadded := make([]complex128, fftSize)
	hPadded := make([]complex128, fftSize)
	for i, v := range input {
		xPadded[i] = complex(v, 0)
	}
	for i, v := range kernel {
		hPadded[m-1-i] = complex(v, 0)
	}

	xFreq := make([]complex128, fftSize)
	hFreq := make([]complex128, fftSize)
	if err := plan.Forward(xFreq, xPadded); err != nil {
		return nil, fmt.Errorf("layers: forward FFT failed: %w", err)
	}
	if err := plan.Forward(hFreq, hPadded); err != nil {
		return nil, fmt.Errorf("layers: forward FFT failed: %w", err)
	}

	for i := range xFreq {
		xFreq[i] *= hFreq[i]
	}

	// Reuse the padded input as the time-domain result.
	if err := plan.Inverse(xPadded, xFreq); err != nil {
		return nil, fmt.Errorf("layers: inverse FFT failed: %w", err)
	}

	out := make([]float64, n)
	for p := range out {
		out[p] = real(xPadded[p+m-1])
	}
	return out, nil
}

func nextPowerOf2(n int) int {
	p := 1
	for p < n {
		p *= 2
	}
	return p
}

// Conv1DExpected returns what Conv1DQ8 produces for input and kernel,
// computed through the float64 reference path. Exact for integer inputs
// well below 2^53.
func Conv1DExpected(input, kernel []int8) ([]int8, error) {
	x := make([]float64, len(input))
	for i, v := range input {
		x[i] = float64(v)
	}
	h := make([]float64, len(kernel))
	for i, v := range kernel {
		h[i] = float64(v)
	}

	ref, err := Conv1DReference(x, h)
	if err != nil {
		return nil, err
	}

	out := make([]int8, len(ref))
	k := int32(len(kernel))
	for i, v := range ref {
		acc := int32(roundNearest(v))
		out[i] = int8(core.ClampInt32(acc/k, -128, 127))
	}
	return out, nil
}

// roundNearest removes FFT round-off from an integer-valued result.
func roundNearest(v float64) float64 {
	if v < 0 {
		return -float64(int64(-v + 0.5))
	}
	return float64(int64(v + 0.5))
}
