package arena

import "unsafe"

// Tensor is a contiguous, aligned buffer of elements owned by an Arena.
//
// The byte length of the buffer is always a multiple of Align; Len is the
// logical element count the caller asked for. A tensor is invalid once it
// has been released.
type Tensor struct {
	id    uint64
	owner *Arena

	dtype DType
	n     int
	align int

	buf     []byte // aligned window, len multiple of align
	backing []byte // allocation the window points into
	dma     bool

	sensitive bool
}

// DType returns the element type.
func (t *Tensor) DType() DType { return t.dtype }

// Len returns the logical element count.
func (t *Tensor) Len() int { return t.n }

// Align returns the byte alignment fixed at allocation.
func (t *Tensor) Align() int { return t.align }

// DMA reports whether the tensor lives in locked, page-aligned memory.
func (t *Tensor) DMA() bool { return t.dma }

// Sensitive reports whether the buffer is zeroed on release.
func (t *Tensor) Sensitive() bool { return t.sensitive }

// MarkSensitive requests that Release wipe the buffer before freeing it.
// Use it for quantized weights and any key material.
func (t *Tensor) MarkSensitive() { t.sensitive = true }

// Released reports whether the tensor's memory has been returned.
func (t *Tensor) Released() bool { return t.buf == nil && t.owner == nil }

// Bytes returns the whole aligned buffer, including padding past Len.
func (t *Tensor) Bytes() []byte { return t.buf }

// Float32 returns the first Len elements viewed as float32.
// It returns nil if the tensor holds another type or was released.
func (t *Tensor) Float32() []float32 {
	if t.dtype != Float32 || t.n == 0 || len(t.buf) == 0 {
		return nil
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(&t.buf[0])), t.n)
}

// Int8 returns the first Len elements viewed as int8.
// It returns nil if the tensor holds another type or was released.
func (t *Tensor) Int8() []int8 {
	if t.dtype != Int8 || t.n == 0 || len(t.buf) == 0 {
		return nil
	}
	return unsafe.Slice((*int8)(unsafe.Pointer(&t.buf[0])), t.n)
}

// Uint8 returns the first Len elements viewed as uint8.
// It returns nil if the tensor holds another type or was released.
func (t *Tensor) Uint8() []uint8 {
	if t.dtype != Uint8 || t.n == 0 || len(t.buf) == 0 {
		return nil
	}
	return t.buf[:t.n]
}

// Zero clears the whole buffer.
func (t *Tensor) Zero() {
	clear(t.buf)
}

// alignedWindow over-allocates and returns a size-byte window whose first
// element sits on an align boundary.
func alignedWindow(size, align int) (window, backing []byte) {
	if size == 0 {
		return []byte{}, nil
	}
	backing = make([]byte, size+align-1)
	ptr := uintptr(unsafe.Pointer(&backing[0]))
	offset := 0
	if mod := int(ptr % uintptr(align)); mod != 0 {
		offset = align - mod
	}
	return backing[offset : offset+size : offset+size], backing
}

func isAligned(b []byte, align int) bool {
	if len(b) == 0 {
		return true
	}
	return uintptr(unsafe.Pointer(&b[0]))%uintptr(align) == 0
}
