// Package arena allocates the aligned buffers the inference runtime works on.
//
// Two allocation classes exist:
//
//   - AllocateFast returns a buffer aligned to the SIMD register width
//     (32 bytes), suitable for weights and activations.
//   - AllocateDMA returns a page-aligned (4096 bytes), locked region that the
//     kernel will not swap out, suitable for hardware transfer. Locked memory
//     is a finite per-process resource; callers size DMA buffers explicitly.
//
// Every buffer is a *Tensor owned by the Arena that produced it. Release
// frees it immediately, zeroing the memory first when the tensor was marked
// sensitive. Releasing twice, or releasing a tensor owned by another arena,
// reports core.ErrInvalidHandle.
//
// # Usage
//
//	a := arena.New(arena.WithCapacity(1 << 20))
//	defer a.Close()
//
//	w, err := a.AllocateFast(arena.Int8, 784*128)
//	if err != nil {
//		return err
//	}
//	w.MarkSensitive()
//	defer a.Release(w)
package arena
