package core

import "errors"

// Error kinds shared by every runtime component. Operations wrap them with
// context, so callers match with errors.Is.
var (
	// ErrOutOfMemory reports an allocation that could not be satisfied.
	// Recoverable: retry smaller or release other buffers.
	ErrOutOfMemory = errors.New("infer: out of memory")

	// ErrHardwareUnavailable reports that no DMA-capable region exists on
	// this platform. Not retryable; fall back to fast allocation.
	ErrHardwareUnavailable = errors.New("infer: hardware unavailable")

	// ErrInvalidShape reports a length or alignment mismatch between the
	// buffers passed to an operation.
	ErrInvalidShape = errors.New("infer: invalid shape")

	// ErrInvalidModel reports a malformed or truncated weight blob.
	ErrInvalidModel = errors.New("infer: invalid model")

	// ErrInvalidHandle reports use of a released or unknown tensor or timer.
	ErrInvalidHandle = errors.New("infer: invalid handle")
)
