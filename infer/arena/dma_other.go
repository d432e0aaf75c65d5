//go:build !(linux || darwin || freebsd || netbsd || openbsd)

package arena

import (
	"fmt"
	"runtime"

	"github.com/cwbudde/algo-infer/infer/core"
)

func mapLocked(size int) ([]byte, error) {
	return nil, fmt.Errorf("arena: no lockable memory on %s: %w", runtime.GOOS, core.ErrHardwareUnavailable)
}

func unmapLocked([]byte) error { return nil }
