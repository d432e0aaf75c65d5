// Package vector is the runtime's vector engine: element-wise float
// arithmetic, saturating quantize/dequantize and the 8-bit dot product used
// by the layer kernels.
//
// An Engine is bound once to the kernel set that suits the detected CPU
// (see internal/cpu). Every kernel set is a full-lane loop plus a scalar
// remainder with the same per-element arithmetic as the scalar reference,
// so any two engines produce bit-identical results; the choice only affects
// speed.
//
// # Usage
//
//	e := vector.Default()
//	if err := e.Add(dst, a, b, len(dst)); err != nil {
//		return err
//	}
//
// Engine methods validate their arguments and report core.ErrInvalidShape
// instead of reading past a slice. They allocate nothing and are safe for
// concurrent use on distinct destination slices.
package vector
