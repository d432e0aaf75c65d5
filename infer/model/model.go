// Package model loads and runs the quantized two-layer perceptron used for
// image classification.
//
// Weights come from a little-endian float32 blob (see EncodeBlob) or from a
// seeded uniform initializer. They are quantized once when the model is
// built; Forward and Classify only read them and may run concurrently.
package model

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"

	"github.com/cwbudde/algo-vecmath"
	"k8s.io/klog/v2"

	"github.com/cwbudde/algo-infer/infer/arena"
	"github.com/cwbudde/algo-infer/infer/core"
	"github.com/cwbudde/algo-infer/infer/layers"
	"github.com/cwbudde/algo-infer/infer/quant"
	"github.com/cwbudde/algo-infer/infer/vector"
)

// Model is a quantized In -> Hidden -> Out perceptron with ReLU-like
// activations.
type Model struct {
	shape  Shape
	arena  *arena.Arena
	pool   *arena.Pool
	engine *vector.Engine
	log    klog.Logger

	hidden *layers.Dense
	output *layers.Dense

	// Float weights in blob order, kept for WriteBlob and ReferenceForward.
	inputWeights  []float32
	hiddenWeights []float32
}

// Result is the outcome of Classify.
type Result struct {
	// Class is the index of the highest score.
	Class int

	// Confidence is the softmax probability of Class.
	Confidence float32

	// Scores are the dequantized output activations.
	Scores []float32
}

// Load reads a weight blob for shape from r and quantizes it into a.
// A blob shorter than shape requires reports core.ErrInvalidModel.
func Load(ctx context.Context, r io.Reader, shape Shape, a *arena.Arena, opts ...Option) (*Model, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}

	inputWeights, err := readSection(r, "input", shape.InputWeights())
	if err != nil {
		return nil, err
	}
	hiddenWeights, err := readSection(r, "hidden", shape.HiddenWeights())
	if err != nil {
		return nil, err
	}

	m, err := build(ctx, shape, a, inputWeights, hiddenWeights, opts...)
	if err != nil {
		return nil, err
	}
	m.log.Info("loaded model", "shape", shape, "bytes", shape.BlobSize(), "engine", m.engine.Name())
	return m, nil
}

// NewRandom builds a model with weights drawn uniformly from [-1, 1].
func NewRandom(ctx context.Context, shape Shape, seed int64, a *arena.Arena, opts ...Option) (*Model, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(seed))
	uniform := func(n int) []float32 {
		w := make([]float32, n)
		for i := range w {
			w[i] = rng.Float32()*2 - 1
		}
		return w
	}

	m, err := build(ctx, shape, a, uniform(shape.InputWeights()), uniform(shape.HiddenWeights()), opts...)
	if err != nil {
		return nil, err
	}
	m.log.Info("initialized random model", "shape", shape, "seed", seed, "engine", m.engine.Name())
	return m, nil
}

func build(ctx context.Context, shape Shape, a *arena.Arena, inputWeights, hiddenWeights []float32, opts ...Option) (*Model, error) {
	cfg := ApplyOptions(opts...)
	log := klog.FromContext(ctx)
	if cfg.Logger != nil {
		log = *cfg.Logger
	}

	pool := arena.NewPool(a, 0)
	layerOpts := []layers.Option{layers.WithEngine(cfg.Engine), layers.WithPool(pool)}

	hidden, err := layers.NewDense(a, transpose(inputWeights, shape.In, shape.Hidden), shape.In, shape.Hidden, layerOpts...)
	if err != nil {
		return nil, fmt.Errorf("model: hidden layer: %w", err)
	}
	output, err := layers.NewDense(a, transpose(hiddenWeights, shape.Hidden, shape.Out), shape.Hidden, shape.Out, layerOpts...)
	if err != nil {
		_ = hidden.Release()
		return nil, fmt.Errorf("model: output layer: %w", err)
	}
	log.V(2).Info("quantized weights", "hidden", shape.InputWeights(), "output", shape.HiddenWeights())

	return &Model{
		shape:         shape,
		arena:         a,
		pool:          pool,
		engine:        cfg.Engine,
		log:           log,
		hidden:        hidden,
		output:        output,
		inputWeights:  inputWeights,
		hiddenWeights: hiddenWeights,
	}, nil
}

// Shape returns the model geometry.
func (m *Model) Shape() Shape { return m.shape }

// Forward runs the quantized network on input values in [0, 1] and returns
// Out dequantized activations (each in [0, 255/127]).
func (m *Model) Forward(input []float32) ([]float32, error) {
	if len(input) != m.shape.In {
		return nil, fmt.Errorf("model: input has %d values, want %d: %w", len(input), m.shape.In, core.ErrInvalidShape)
	}

	qIn, err := m.pool.Get(arena.Int8, m.shape.In)
	if err != nil {
		return nil, err
	}
	defer m.put(qIn)

	hid, err := m.pool.Get(arena.Int8, m.shape.Hidden)
	if err != nil {
		return nil, err
	}
	defer m.put(hid)

	out, err := m.pool.Get(arena.Uint8, m.shape.Out)
	if err != nil {
		return nil, err
	}
	defer m.put(out)

	if err := m.engine.Quantize(qIn.Int8(), input); err != nil {
		return nil, err
	}
	if err := m.hidden.Forward(hid.Int8(), qIn.Int8()); err != nil {
		return nil, err
	}
	if err := m.output.ForwardU8(out.Uint8(), hid.Int8()); err != nil {
		return nil, err
	}

	scores := make([]float32, m.shape.Out)
	for i, v := range out.Uint8() {
		scores[i] = float32(v) / quant.Scale
	}
	return scores, nil
}

// Classify normalizes In pixel bytes by 255, runs Forward and picks the
// highest scoring class.
func (m *Model) Classify(pixels []byte) (Result, error) {
	if len(pixels) != m.shape.In {
		return Result{}, fmt.Errorf("model: %d pixels, want %d: %w", len(pixels), m.shape.In, core.ErrInvalidShape)
	}

	input := make([]float32, len(pixels))
	for i, p := range pixels {
		input[i] = float32(p) / 255
	}

	scores, err := m.Forward(input)
	if err != nil {
		return Result{}, err
	}

	probs := make([]float32, len(scores))
	if err := layers.Softmax(probs, scores); err != nil {
		return Result{}, err
	}
	class := layers.Argmax(scores)
	m.log.V(3).Info("classified", "class", class, "score", scores[class])

	return Result{Class: class, Confidence: probs[class], Scores: scores}, nil
}

// ReferenceForward runs the unquantized network in float64 with ReLU after
// each layer. Quantized scores track it while activations stay within
// [0, 1].
func (m *Model) ReferenceForward(input []float32) ([]float64, error) {
	if len(input) != m.shape.In {
		return nil, fmt.Errorf("model: input has %d values, want %d: %w", len(input), m.shape.In, core.ErrInvalidShape)
	}

	x := make([]float64, len(input))
	for i, v := range input {
		x[i] = float64(v)
	}
	h := referenceLayer(x, m.inputWeights, m.shape.In, m.shape.Hidden)
	return referenceLayer(h, m.hiddenWeights, m.shape.Hidden, m.shape.Out), nil
}

// referenceLayer computes relu(sum_j x[j] * w[j*out+i]) for each i.
func referenceLayer(x []float64, w []float32, in, out int) []float64 {
	col := make([]float64, in)
	prod := make([]float64, in)
	y := make([]float64, out)
	for i := range y {
		for j := range col {
			col[j] = float64(w[j*out+i])
		}
		vecmath.MulBlock(prod, x, col)

		var sum float64
		for _, p := range prod {
			sum += p
		}
		if sum > 0 {
			y[i] = sum
		}
	}
	return y
}

// WriteBlob encodes the model's float weights in blob format.
func (m *Model) WriteBlob(w io.Writer) error {
	return EncodeBlob(w, m.shape, m.inputWeights, m.hiddenWeights)
}

// Close wipes the quantized weights and returns all scratch to the arena.
func (m *Model) Close() error {
	var errs []error
	if err := m.hidden.Release(); err != nil {
		errs = append(errs, err)
	}
	if err := m.output.Release(); err != nil {
		errs = append(errs, err)
	}
	if err := m.pool.Drain(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (m *Model) put(t *arena.Tensor) {
	if err := m.pool.Put(t); err != nil {
		m.log.Error(err, "returning scratch tensor")
	}
}
