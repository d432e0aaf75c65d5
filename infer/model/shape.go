package model

import (
	"fmt"

	"github.com/cwbudde/algo-infer/infer/core"
)

// Shape is the geometry of a two-layer perceptron.
type Shape struct {
	In     int
	Hidden int
	Out    int
}

// DefaultShape classifies 28x28 images into 10 classes.
var DefaultShape = Shape{In: 784, Hidden: 128, Out: 10}

// Validate reports core.ErrInvalidShape for non-positive sizes.
func (s Shape) Validate() error {
	if s.In <= 0 || s.Hidden <= 0 || s.Out <= 0 {
		return fmt.Errorf("model: shape %s: %w", s, core.ErrInvalidShape)
	}
	return nil
}

// InputWeights returns the number of input-to-hidden weights.
func (s Shape) InputWeights() int { return s.In * s.Hidden }

// HiddenWeights returns the number of hidden-to-output weights.
func (s Shape) HiddenWeights() int { return s.Hidden * s.Out }

// BlobSize returns the byte length of a weight blob for s.
func (s Shape) BlobSize() int64 {
	return int64(s.InputWeights()+s.HiddenWeights()) * 4
}

func (s Shape) String() string {
	return fmt.Sprintf("%dx%dx%d", s.In, s.Hidden, s.Out)
}
