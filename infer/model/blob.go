package model

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/cwbudde/algo-infer/infer/core"
)

// A weight blob is a flat run of little-endian float32 values:
//
//	[In*Hidden input weights][Hidden*Out hidden weights]
//
// Both sections are input-major: weight (j -> i) sits at j*width + i, where
// width is the size of the layer the weight feeds.

// readSection reads exactly n floats. Anything short is core.ErrInvalidModel.
func readSection(r io.Reader, name string, n int) ([]float32, error) {
	out := make([]float32, n)
	if err := binary.Read(r, binary.LittleEndian, out); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("model: %s weights truncated, want %d floats: %w", name, n, core.ErrInvalidModel)
		}
		return nil, fmt.Errorf("model: reading %s weights: %w", name, err)
	}
	return out, nil
}

// EncodeBlob writes the two weight sections for shape to w.
func EncodeBlob(w io.Writer, shape Shape, inputWeights, hiddenWeights []float32) error {
	if err := shape.Validate(); err != nil {
		return err
	}
	if len(inputWeights) != shape.InputWeights() || len(hiddenWeights) != shape.HiddenWeights() {
		return fmt.Errorf("model: %d+%d weights for shape %s: %w",
			len(inputWeights), len(hiddenWeights), shape, core.ErrInvalidShape)
	}
	if err := binary.Write(w, binary.LittleEndian, inputWeights); err != nil {
		return fmt.Errorf("model: writing input weights: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, hiddenWeights); err != nil {
		return fmt.Errorf("model: writing hidden weights: %w", err)
	}
	return nil
}

// transpose converts input-major weights (j*out + i) into the row-major
// layout the dense kernel reads (i*in + j).
func transpose(w []float32, in, out int) []float32 {
	t := make([]float32, len(w))
	for j := 0; j < in; j++ {
		for i := 0; i < out; i++ {
			t[i*in+j] = w[j*out+i]
		}
	}
	return t
}
