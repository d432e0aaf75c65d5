//go:build linux || darwin || freebsd || netbsd || openbsd

package arena

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/cwbudde/algo-infer/infer/core"
)

// mapLocked maps an anonymous private region and pins it in RAM.
func mapLocked(size int) ([]byte, error) {
	region, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		if errors.Is(err, unix.ENOMEM) {
			return nil, fmt.Errorf("arena: mmap %d bytes: %w", size, core.ErrOutOfMemory)
		}
		return nil, fmt.Errorf("arena: mmap %d bytes: %v: %w", size, err, core.ErrHardwareUnavailable)
	}

	if err := unix.Mlock(region); err != nil {
		_ = unix.Munmap(region)
		switch {
		case errors.Is(err, unix.ENOMEM), errors.Is(err, unix.EAGAIN):
			return nil, fmt.Errorf("arena: mlock %d bytes: %v: %w", size, err, core.ErrOutOfMemory)
		default:
			return nil, fmt.Errorf("arena: mlock %d bytes: %v: %w", size, err, core.ErrHardwareUnavailable)
		}
	}
	return region, nil
}

func unmapLocked(region []byte) error {
	if err := unix.Munlock(region); err != nil {
		return fmt.Errorf("arena: munlock: %w", err)
	}
	if err := unix.Munmap(region); err != nil {
		return fmt.Errorf("arena: munmap: %w", err)
	}
	return nil
}
