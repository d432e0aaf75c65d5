// Package layers provides the quantized layer kernels of the inference
// runtime and the Layer values a model is assembled from.
//
// Kernels:
//
//   - DenseForwardQ8: fully connected layer, int32 accumulation, output
//     clamp(acc/128, 0, 255) with truncating division
//   - Conv1DQ8: valid 1-D cross-correlation, output clamp(acc/k, -128, 127)
//   - MaxPool1DQ8: non-overlapping max pooling
//
// Every kernel validates shapes before it writes. A kernel that returns an
// error has left its output untouched.
//
// Layers (Dense, Conv1D, MaxPool) own their quantized weights. Weights are
// quantized once at construction into an arena tensor marked sensitive and
// are read-only afterwards, so one layer may serve concurrent forward
// passes as long as each pass brings its own destination.
//
// The float64 helpers (Conv1DReference and the activations) are reference
// paths used to check quantized results and to post-process scores.
package layers
