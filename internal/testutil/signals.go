package testutil

import "math/rand"

// DeterministicUniform returns length values drawn uniformly from
// [-amplitude, amplitude] with a fixed seed.
func DeterministicUniform(seed int64, amplitude float32, length int) []float32 {
	out := make([]float32, length)
	rng := rand.New(rand.NewSource(seed))
	for i := range out {
		out[i] = (rng.Float32()*2 - 1) * amplitude
	}
	return out
}

// DeterministicInt8 returns length int8 values in [-127, 127] with a fixed
// seed.
func DeterministicInt8(seed int64, length int) []int8 {
	out := make([]int8, length)
	rng := rand.New(rand.NewSource(seed))
	for i := range out {
		out[i] = int8(rng.Intn(255) - 127)
	}
	return out
}

// Ramp returns length evenly spaced values from lo to hi inclusive.
func Ramp(lo, hi float32, length int) []float32 {
	out := make([]float32, length)
	if length == 1 {
		out[0] = lo
		return out
	}
	step := (hi - lo) / float32(length-1)
	for i := range out {
		out[i] = lo + step*float32(i)
	}
	if length > 0 {
		out[length-1] = hi
	}
	return out
}
